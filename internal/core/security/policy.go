package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// AllowlistPolicy is the operator's allowlist. It is loaded once at startup
// and never mutated afterwards.
type AllowlistPolicy struct {
	// Programs may run without confirmation.
	Programs []string `json:"programs" mapstructure:"programs"`

	// AllowDelete lets file deletion skip confirmation.
	AllowDelete bool `json:"allow_delete" mapstructure:"allow_delete"`

	// DangerousKeywords are matched against command subjects and logged.
	DangerousKeywords []string `json:"dangerous_keywords" mapstructure:"dangerous_keywords"`
}

// DefaultAllowlist returns the empty, maximally restrictive policy.
func DefaultAllowlist() *AllowlistPolicy {
	return &AllowlistPolicy{
		Programs:          []string{},
		AllowDelete:       false,
		DangerousKeywords: []string{},
	}
}

// LoadAllowlist reads the policy file at path. It never fails: a missing,
// unreadable or malformed file logs a warning and yields DefaultAllowlist.
func LoadAllowlist(path string) *AllowlistPolicy {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Allowlist not found, using restrictive defaults", "path", path)
		} else {
			slog.Warn("Failed to read allowlist, using restrictive defaults", "path", path, "err", err)
		}
		return DefaultAllowlist()
	}

	policy, err := ParseAllowlist(data)
	if err != nil {
		slog.Warn("Invalid allowlist, using restrictive defaults", "path", path, "err", err)
		return DefaultAllowlist()
	}

	slog.Debug("Loaded allowlist", "path", path,
		"programs", len(policy.Programs),
		"allow_delete", policy.AllowDelete,
		"dangerous_keywords", len(policy.DangerousKeywords))

	return policy
}

// ParseAllowlist decodes a policy document. Unknown fields and wrong field
// types are schema errors.
func ParseAllowlist(data []byte) (*AllowlistPolicy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var policy AllowlistPolicy
	if err := dec.Decode(&policy); err != nil {
		return nil, fmt.Errorf("failed to decode allowlist: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode allowlist: trailing data")
	}

	if policy.Programs == nil {
		policy.Programs = []string{}
	}
	if policy.DangerousKeywords == nil {
		policy.DangerousKeywords = []string{}
	}

	return &policy, nil
}

// IsAllowedProgram reports whether programPath may run without
// confirmation.
//
// The reference is reduced to its base name without extension and
// lowercased, then compared with every entry case-insensitively. It matches
// when the name equals an entry, is a substring of an entry, or contains an
// entry, so with an entry "note", "notepad.exe" is allowed.
func IsAllowedProgram(policy *AllowlistPolicy, programPath string) bool {
	if policy == nil {
		return false
	}

	name := NormalizeProgram(programPath)
	if name == "" {
		return false
	}

	for _, entry := range policy.Programs {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if name == entry || strings.Contains(entry, name) || strings.Contains(name, entry) {
			return true
		}
	}

	return false
}

// NormalizeProgram strips directories (either separator style) and the
// extension from a program reference and lowercases it.
func NormalizeProgram(programPath string) string {
	name := strings.TrimSpace(programPath)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
