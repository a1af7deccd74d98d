package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LiveState is the coarse state of an in-flight or finished invocation.
type LiveState string

const (
	LiveRunning   LiveState = "running"
	LiveCompleted LiveState = "completed"
	LiveFailed    LiveState = "failed"
	LiveTimeout   LiveState = "timeout"
	LiveCancelled LiveState = "cancelled"
)

// Valid returns true if the state is a known value.
func (s LiveState) Valid() bool {
	switch s {
	case LiveRunning, LiveCompleted, LiveFailed, LiveTimeout, LiveCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state is final.
func (s LiveState) Terminal() bool {
	return s != LiveRunning
}

// LiveStatus is the session's live status record. The executor rewrites it
// at every state change; status readers treat it as fresher than the
// handoff record when the two disagree.
type LiveStatus struct {
	SessionID   string    `json:"session_id"`
	State       LiveState `json:"state"`
	ChunkID     string    `json:"chunk_id,omitempty"`
	ChunkIndex  int       `json:"chunk_index,omitempty"`
	TotalChunks int       `json:"total_chunks,omitempty"`
	Group       int       `json:"group,omitempty"`
	PID         int       `json:"pid,omitempty"`
	Message     string    `json:"message,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WriteLiveStatus atomically replaces the session's live status file.
func (s *Store) WriteLiveStatus(st LiveStatus) error {
	st.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal live status: %w", err)
	}
	if err := s.EnsureSession(st.SessionID); err != nil {
		return err
	}
	return writeFileAtomic(s.StatusPath(st.SessionID), data, 0644)
}

// ReadLiveStatus reads the session's live status file. Returns
// ErrSessionNotFound when the file does not exist.
func (s *Store) ReadLiveStatus(id string) (*LiveStatus, error) {
	data, err := os.ReadFile(s.StatusPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("read live status: %w", err)
	}
	var st LiveStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse live status: %w", err)
	}
	return &st, nil
}
