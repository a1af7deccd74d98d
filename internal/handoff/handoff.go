// Package handoff defines the versioned session record shared across
// process boundaries between the local agent and the delegate, and the pure
// operations that mutate it. Persistence belongs to the executor; this
// package never touches I/O.
package handoff

import "time"

// ProtocolVersion is the handoff protocol version written by this build.
// The major component gates parsing: a record with a newer major version
// fails closed rather than being interpreted with guessed semantics.
const ProtocolVersion = "1.0"

// Initiator identifies which side of the handoff created or owns something.
type Initiator string

const (
	// InitiatorLocalAgent is the orchestrating agent on this machine.
	InitiatorLocalAgent Initiator = "local-agent"
	// InitiatorDelegate is the external AI-coding subprocess.
	InitiatorDelegate Initiator = "delegate"
)

// Valid returns true if the initiator is a known value.
func (i Initiator) Valid() bool {
	return i == InitiatorLocalAgent || i == InitiatorDelegate
}

// SessionStatus is the lifecycle state of a delegation session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionPaused    SessionStatus = "paused"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionActive, SessionCompleted, SessionFailed, SessionPaused:
		return true
	default:
		return false
	}
}

// TaskStatus is the lifecycle state of a single handoff task. Status
// advances monotonically: pending, in_progress, then completed or failed.
// Blocked is reachable when a dependency task fails.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskBlocked    TaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskBlocked:
		return true
	default:
		return false
	}
}

// rank orders task statuses for the monotonic-advance check. Terminal
// states share the highest rank.
func (s TaskStatus) rank() int {
	switch s {
	case TaskPending:
		return 0
	case TaskInProgress:
		return 1
	case TaskBlocked:
		return 2
	case TaskCompleted, TaskFailed:
		return 3
	default:
		return -1
	}
}

// Priority is the urgency of a handoff task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Metadata describes the record itself.
type Metadata struct {
	// Version is the protocol version the record was written with.
	Version string `json:"version"`
	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at"`
	// Initiator records which side created the session.
	Initiator Initiator `json:"initiator"`
}

// Session is the session-level state of the record.
type Session struct {
	// ID is the session identifier; all on-disk artifacts key off it.
	ID string `json:"id"`
	// Status is the session lifecycle state.
	Status SessionStatus `json:"status"`
	// ThreadID is the external tool's conversation id, when known.
	ThreadID string `json:"thread_id,omitempty"`
	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is set only when Status transitions to completed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// InputContext is the context handed to the delegate for one task.
type InputContext struct {
	// Files lists files relevant to the task.
	Files []string `json:"files,omitempty"`
	// CodeExcerpts holds short code snippets for orientation.
	CodeExcerpts []string `json:"code_excerpts,omitempty"`
	// Requirements is free-form requirements text.
	Requirements string `json:"requirements,omitempty"`
	// Constraints lists hard constraints on the work.
	Constraints []string `json:"constraints,omitempty"`
	// DependsOn lists task ids that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`
}

// OutputContext is what the delegate produced for one task.
type OutputContext struct {
	// FilesModified lists files changed by the delegate.
	FilesModified []string `json:"files_modified,omitempty"`
	// FilesCreated lists files created by the delegate.
	FilesCreated []string `json:"files_created,omitempty"`
	// Summary is the delegate's summary of the work.
	Summary string `json:"summary,omitempty"`
	// Notes holds additional remarks.
	Notes []string `json:"notes,omitempty"`
	// Errors lists errors encountered during the work.
	Errors []string `json:"errors,omitempty"`
}

// Task is one unit of delegated work within the session.
type Task struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	AssignedTo  Initiator     `json:"assigned_to"`
	Status      TaskStatus    `json:"status"`
	Priority    Priority      `json:"priority"`
	Input       InputContext  `json:"input_context"`
	Output      *OutputContext `json:"output_context,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Decision is one append-only audit entry in shared memory.
type Decision struct {
	By   Initiator `json:"by"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Note is a shared free-form note.
type Note struct {
	By   Initiator `json:"by"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Memory is the shared context both sides may read.
type Memory struct {
	// ProjectContext orients the delegate in the project.
	ProjectContext string `json:"project_context,omitempty"`
	// Decisions is the append-only decision trail.
	Decisions []Decision `json:"decisions,omitempty"`
	// SharedNotes is the append-only note trail.
	SharedNotes []Note `json:"shared_notes,omitempty"`
}

// File is the complete handoff record for one delegation session. It is
// the durable source of truth for session and task state; the executor is
// its only writer, and all mutations are whole-record read-modify-write.
type File struct {
	Metadata Metadata `json:"metadata"`
	Session  Session  `json:"session"`
	Tasks    []Task   `json:"tasks"`
	Memory   Memory   `json:"memory"`
}
