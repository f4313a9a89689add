package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

// ErrNotFound is returned by Get when a key has no entry. A key holding an
// empty string is found, not absent.
var ErrNotFound = errors.New("key not found in state")

// Entry is one recorded identifier.
type Entry struct {
	Key   string
	Value string
}

// Store persists resource identifiers as newline-delimited KEY=VALUE text.
// The file on disk is the source of truth; every operation re-reads it, so
// two processes writing disjoint keys interleave safely enough (last write
// wins per key, no locking).
type Store struct {
	path     string
	simulate bool
}

// NewStore returns a store backed by the file at path. In simulate mode all
// mutating operations become no-ops that only log intent.
func NewStore(path string, simulate bool) *Store {
	return &Store{path: path, simulate: simulate}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Put upserts a key. The old entry, if any, is replaced in place so the file
// never holds duplicate keys; new keys append. The file is durably rewritten
// before Put returns.
func (s *Store) Put(key, value string) error {
	if s.simulate {
		logging.Info("simulate: would record state", "key", key, "value", value)
		return nil
	}

	entries, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, Entry{Key: key, Value: value})
	}

	return s.write(entries)
}

// Get returns the value for key, or ErrNotFound when the key is absent or
// the store file does not exist.
func (s *Store) Get(key string) (string, error) {
	entries, err := s.load()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Key == key {
			return e.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Delete removes a single key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if s.simulate {
		logging.Info("simulate: would remove state key", "key", key)
		return nil
	}

	entries, err := s.load()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	return s.write(kept)
}

// Clear removes all entries. Used only after a fully successful teardown.
func (s *Store) Clear() error {
	if s.simulate {
		logging.Info("simulate: would clear state")
		return nil
	}
	return s.write(nil)
}

// Snapshot returns all entries in file insertion order.
func (s *Store) Snapshot() ([]Entry, error) {
	return s.load()
}

// load parses the backing file. A missing file is an empty store. Malformed
// lines (no '=') are skipped; stray ANSI escape sequences in values are
// stripped on read.
func (s *Store) load() ([]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			logging.Debug("skipping malformed state line", "line", line)
			continue
		}
		entries = append(entries, Entry{Key: key, Value: stripANSI(value)})
	}
	return entries, nil
}

// write rewrites the whole file via a temp file and rename so a crashed
// writer never leaves a half-written store behind.
func (s *Store) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s=%s\n", e.Key, e.Value)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}
	return nil
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
