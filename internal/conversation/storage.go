package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned when no stored session has the requested id.
var ErrNotFound = errors.New("session not found")

// Storage persists sessions.
type Storage interface {
	Save(s *Session) error
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	Delete(id string) error
}

// FileStorage keeps one directory per session under a per-day directory:
// <dir>/<YYYYMMDD>/<id>/messages.json.
type FileStorage struct {
	conversationsDir string
}

// NewFileStorage creates a FileStorage rooted at conversationsDir.
func NewFileStorage(conversationsDir string) *FileStorage {
	return &FileStorage{
		conversationsDir: conversationsDir,
	}
}

func (s *FileStorage) datePath(sess *Session) string {
	date := sess.CreatedAt.Format("20060102")
	return filepath.Join(s.conversationsDir, date)
}

func (s *FileStorage) sessionPath(id string) (string, error) {
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	entries, err := os.ReadDir(s.conversationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("failed to read conversations directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(s.conversationsDir, entry.Name(), id)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save writes the session, replacing an earlier copy.
func (s *FileStorage) Save(sess *Session) error {
	dir := filepath.Join(s.datePath(sess), sess.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "messages.json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write messages file: %w", err)
	}

	return nil
}

// Get loads a session by id.
func (s *FileStorage) Get(id string) (*Session, error) {
	dir, err := s.sessionPath(id)
	if err != nil {
		return nil, err
	}

	messagesFile := filepath.Join(dir, "messages.json")
	data, err := os.ReadFile(messagesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// List returns every readable session, most recently updated first.
// Unreadable entries are skipped.
func (s *FileStorage) List() ([]*Session, error) {
	var sessions []*Session

	entries, err := os.ReadDir(s.conversationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return sessions, nil
		}
		return nil, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	for _, dateEntry := range entries {
		if !dateEntry.IsDir() {
			continue
		}

		datePath := filepath.Join(s.conversationsDir, dateEntry.Name())
		convEntries, err := os.ReadDir(datePath)
		if err != nil {
			continue
		}

		for _, entry := range convEntries {
			if !entry.IsDir() {
				continue
			}

			sess, err := s.Get(entry.Name())
			if err != nil {
				continue
			}

			sessions = append(sessions, sess)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

// Delete removes a stored session.
func (s *FileStorage) Delete(id string) error {
	dir, err := s.sessionPath(id)
	if err != nil {
		return err
	}

	return os.RemoveAll(dir)
}
