package conversation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Persona is a named system prompt stored as a markdown file with an
// optional frontmatter block.
type Persona struct {
	Name        string
	Title       string
	Description string
	Prompt      string
}

// PersonaLoader reads personas from <dir>/<name>.md.
type PersonaLoader struct {
	dir string
}

// NewPersonaLoader creates a PersonaLoader.
func NewPersonaLoader(dir string) *PersonaLoader {
	return &PersonaLoader{dir: dir}
}

// Load reads the named persona.
func (l *PersonaLoader) Load(name string) (*Persona, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid persona name %q", name)
	}

	content, err := os.ReadFile(filepath.Join(l.dir, name+".md"))
	if err != nil {
		return nil, fmt.Errorf("failed to read persona: %w", err)
	}

	p := ParsePersona(string(content))
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// Resolve returns the system prompt for name, or DefaultPersona when the
// persona cannot be loaded.
func (l *PersonaLoader) Resolve(name string) string {
	if name == "" {
		return DefaultPersona
	}

	p, err := l.Load(name)
	if err != nil || p.Prompt == "" {
		slog.Warn("Persona not available, using default", "persona", name, "err", err)
		return DefaultPersona
	}
	return p.Prompt
}

// ParsePersona splits frontmatter from the prompt body. Without
// frontmatter the whole content is the prompt.
func ParsePersona(content string) *Persona {
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[0]) != "" {
		return &Persona{Prompt: strings.TrimSpace(content)}
	}

	p := &Persona{Prompt: strings.TrimSpace(parts[2])}
	for _, line := range strings.Split(parts[1], "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch strings.TrimSpace(key) {
		case "name":
			p.Name = value
		case "title":
			p.Title = value
		case "description":
			p.Description = value
		}
	}

	return p
}

// List returns every persona in the directory.
func (l *PersonaLoader) List() ([]*Persona, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas directory: %w", err)
	}

	var personas []*Persona
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		p, err := l.Load(strings.TrimSuffix(entry.Name(), ".md"))
		if err != nil {
			continue
		}
		personas = append(personas, p)
	}

	return personas, nil
}

// EnsureDefaultPersonas writes the built-in personas that are missing.
func EnsureDefaultPersonas(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	personas := map[string]string{
		"jarvis.md": `---
name: "jarvis"
title: "Jarvis"
description: "Witty personal assistant"
---

` + DefaultPersona,
		"butler.md": `---
name: "butler"
title: "Butler"
description: "Formal and concise"
---

You are Jarvis, a discreet and formal butler. Address the user politely and answer in one short sentence.`,
	}

	for name, content := range personas {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to create persona %s: %w", name, err)
			}
		}
	}

	return nil
}
