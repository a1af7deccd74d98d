package delegate

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyTask indicates a delegation request with no task text.
var ErrEmptyTask = errors.New("task text is required")

// TimeoutError marks a subprocess that exceeded its allotted time. The
// subprocess may still be finishing work in the background; Hint tells the
// caller to poll status rather than assume total failure.
type TimeoutError struct {
	SessionID string
	ChunkID   string
	Timeout   time.Duration
	Hint      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("delegation timed out after %s (session %s): %s", e.Timeout, e.SessionID, e.Hint)
}

// ExecError marks a subprocess that failed to spawn or exited non-zero.
// Captured output always rides along for diagnosis.
type ExecError struct {
	SessionID string
	ChunkID   string
	Stdout    string
	Stderr    string
	Err       error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("delegation failed (session %s): %v", e.SessionID, e.Err)
	if e.Stderr != "" {
		msg += "; stderr: " + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// pollHint builds the recovery hint attached to timeout outcomes.
func pollHint(sessionID string) string {
	return fmt.Sprintf("the subprocess may still be completing in the background; poll 'flynn status %s' before retrying", sessionID)
}
