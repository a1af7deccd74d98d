// Package session owns the on-disk layout of delegation sessions: the
// handoff record, the append-only invocation log, the live status file, and
// the cancel signal. Everything is discoverable from the session id alone.
// An SQLite index carries discovery and purge metadata alongside; the JSON
// handoff record stays the durable source of truth.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
)

// ErrSessionNotFound indicates no persisted record exists for the id.
var ErrSessionNotFound = errors.New("session not found")

// DefaultRoot returns the sessions directory under the XDG data dir.
func DefaultRoot() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "flynn", "sessions")
}

// Store manages session directories under a root. Writes to the same
// session are serialized; distinct sessions proceed concurrently.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultRoot()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions root: %w", err)
	}
	return &Store{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the sessions root directory.
func (s *Store) Root() string {
	return s.root
}

// SessionDir returns the directory for a session id.
func (s *Store) SessionDir(id string) string {
	return filepath.Join(s.root, id)
}

// HandoffPath returns the session's handoff record path.
func (s *Store) HandoffPath(id string) string {
	return filepath.Join(s.root, id, "handoff.json")
}

// LogPath returns the session's invocation log path.
func (s *Store) LogPath(id string) string {
	return filepath.Join(s.root, id, "delegate.log")
}

// StatusPath returns the session's live status file path.
func (s *Store) StatusPath(id string) string {
	return filepath.Join(s.root, id, "status.json")
}

// CancelPath returns the session's cancel signal file path.
func (s *Store) CancelPath(id string) string {
	return filepath.Join(s.root, id, "cancel")
}

// lock returns the per-session mutex, creating it on first use.
func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// EnsureSession creates the session directory.
func (s *Store) EnsureSession(id string) error {
	if err := os.MkdirAll(s.SessionDir(id), 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return nil
}

// SaveHandoff serializes and atomically replaces the handoff record.
func (s *Store) SaveHandoff(f *handoff.File) error {
	l := s.lock(f.Session.ID)
	l.Lock()
	defer l.Unlock()
	return s.saveHandoffLocked(f)
}

func (s *Store) saveHandoffLocked(f *handoff.File) error {
	data, err := handoff.Serialize(f)
	if err != nil {
		return err
	}
	if err := s.EnsureSession(f.Session.ID); err != nil {
		return err
	}
	return writeFileAtomic(s.HandoffPath(f.Session.ID), data, 0644)
}

// LoadHandoff reads and parses the session's handoff record.
func (s *Store) LoadHandoff(id string) (*handoff.File, error) {
	data, err := os.ReadFile(s.HandoffPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("read handoff: %w", err)
	}
	return handoff.Parse(data)
}

// Mutate applies fn to the session's handoff record under the session lock
// and persists the result. The read-modify-write is atomic with respect to
// other Mutate and SaveHandoff calls for the same session.
func (s *Store) Mutate(id string, fn func(*handoff.File) error) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	f, err := s.LoadHandoff(id)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.saveHandoffLocked(f)
}

// RequestCancel writes the cancel signal file for a session.
func (s *Store) RequestCancel(id string) error {
	if err := s.EnsureSession(id); err != nil {
		return err
	}
	return os.WriteFile(s.CancelPath(id), []byte("cancel\n"), 0644)
}

// CancelRequested reports whether the session's cancel signal exists.
func (s *Store) CancelRequested(id string) bool {
	_, err := os.Stat(s.CancelPath(id))
	return err == nil
}

// ClearCancel removes the session's cancel signal, if present.
func (s *Store) ClearCancel(id string) {
	os.Remove(s.CancelPath(id))
}

// Remove deletes a session directory and everything in it.
func (s *Store) Remove(id string) error {
	return os.RemoveAll(s.SessionDir(id))
}

// writeFileAtomic writes via a temp file and rename so readers never see a
// partial record.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
