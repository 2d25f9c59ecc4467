package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Recorder is the append side of the audit log.
type Recorder interface {
	Append(rec Record) error
}

// Log appends records to a line-oriented file. Appends are serialized
// within the process by a mutex and across processes sharing the file by
// an advisory lock on path + ".lock".
type Log struct {
	path string
	file *os.File
	lock *flock.Flock
	now  func() time.Time
	mu   sync.Mutex
}

// Open opens (creating if needed) the audit log at path. The parent
// directory is created when missing.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &Log{
		path: path,
		file: f,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes one record. A zero Timestamp is set to the current time.
func (l *Log) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	if !rec.Outcome.Valid() {
		return fmt.Errorf("unknown audit outcome: %q", rec.Outcome)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("audit log is closed")
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock audit log: %w", err)
	}
	defer l.lock.Unlock()

	if _, err := l.file.WriteString(rec.Line() + "\n"); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// Close releases the file. Further appends fail.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	return err
}

// ReadRecords parses every record in the log at path. A missing file is
// an empty log. Lines that do not parse are skipped and counted.
func ReadRecords(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	records := []Record{}
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read audit log: %w", err)
	}

	return records, skipped, nil
}

// Discard is a Recorder that drops every record.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Append(Record) error { return nil }

// Memory is an in-memory Recorder.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

// Append stores rec, stamping a zero Timestamp with the current time.
func (m *Memory) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of the stored records.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Count returns how many stored records have outcome o.
func (m *Memory) Count(o Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.records {
		if r.Outcome == o {
			n++
		}
	}
	return n
}
