package handoff

import (
	"errors"
	"fmt"
	"time"
)

// ErrTaskNotFound indicates an update referenced an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// now returns the current time, truncated for stable serialization.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// New creates a fresh handoff record for a session, status pending.
func New(sessionID string, initiator Initiator) *File {
	ts := now()
	return &File{
		Metadata: Metadata{
			Version:   ProtocolVersion,
			CreatedAt: ts,
			UpdatedAt: ts,
			Initiator: initiator,
		},
		Session: Session{
			ID:        sessionID,
			Status:    SessionPending,
			StartedAt: ts,
		},
	}
}

// touch refreshes the updated timestamp. Every mutation goes through it.
func (f *File) touch() {
	f.Metadata.UpdatedAt = now()
}

// AddTask appends a task to the record, status pending.
func (f *File) AddTask(id, description string, assignedTo Initiator, priority Priority, input InputContext) *Task {
	if priority == "" {
		priority = PriorityMedium
	}
	ts := now()
	f.Tasks = append(f.Tasks, Task{
		ID:          id,
		Description: description,
		AssignedTo:  assignedTo,
		Status:      TaskPending,
		Priority:    priority,
		Input:       input,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	f.touch()
	return &f.Tasks[len(f.Tasks)-1]
}

// TaskUpdate describes a task mutation. Zero-valued fields are left as-is.
type TaskUpdate struct {
	Status   TaskStatus
	Priority Priority
	Output   *OutputContext
}

// UpdateTask applies an update to the task with the given id. An unknown id
// or an invalid transition fails without modifying the record.
func (f *File) UpdateTask(id string, update TaskUpdate) error {
	idx := -1
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	// Validate everything before mutating anything.
	if update.Status != "" {
		if !update.Status.Valid() {
			return fmt.Errorf("invalid task status %q", update.Status)
		}
		if update.Status.rank() < f.Tasks[idx].Status.rank() {
			return fmt.Errorf("task %s: cannot move status backwards from %s to %s",
				id, f.Tasks[idx].Status, update.Status)
		}
	}
	if update.Priority != "" && !update.Priority.Valid() {
		return fmt.Errorf("invalid task priority %q", update.Priority)
	}

	task := &f.Tasks[idx]
	if update.Status != "" {
		task.Status = update.Status
	}
	if update.Priority != "" {
		task.Priority = update.Priority
	}
	if update.Output != nil {
		task.Output = update.Output
	}
	task.UpdatedAt = now()
	f.touch()
	return nil
}

// UpdateSessionStatus transitions the session status. CompletedAt is set
// only when the status becomes completed.
func (f *File) UpdateSessionStatus(status SessionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid session status %q", status)
	}
	f.Session.Status = status
	if status == SessionCompleted {
		ts := now()
		f.Session.CompletedAt = &ts
	}
	f.touch()
	return nil
}

// SetThreadID records the external tool's conversation id.
func (f *File) SetThreadID(threadID string) {
	f.Session.ThreadID = threadID
	f.touch()
}

// AddDecision appends to the decision trail. Entries are never edited or
// removed.
func (f *File) AddDecision(by Initiator, text string) {
	f.Memory.Decisions = append(f.Memory.Decisions, Decision{By: by, Text: text, At: now()})
	f.touch()
}

// AddSharedNote appends to the shared note trail.
func (f *File) AddSharedNote(by Initiator, text string) {
	f.Memory.SharedNotes = append(f.Memory.SharedNotes, Note{By: by, Text: text, At: now()})
	f.touch()
}

// Task returns the task with the given id, or nil.
func (f *File) Task(id string) *Task {
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			return &f.Tasks[i]
		}
	}
	return nil
}

// NextOpenTask returns the first task still pending or in progress, or nil
// when every task has resolved. Resume uses it to find where to pick up.
func (f *File) NextOpenTask() *Task {
	for i := range f.Tasks {
		switch f.Tasks[i].Status {
		case TaskPending, TaskInProgress:
			return &f.Tasks[i]
		}
	}
	return nil
}
