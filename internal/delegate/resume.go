package delegate

import (
	"context"
	"fmt"
	"time"

	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/pkg/models"
)

// ResumeResult is the outcome of resuming a persisted session.
type ResumeResult struct {
	Success   bool
	SessionID string
	// TaskID is the task that was re-delegated, or "" when nothing was open.
	TaskID  string
	Summary string
	Hint    string
}

// Resume loads a persisted session, finds the first task still pending or
// in progress, and re-delegates that one task. Completed tasks are never
// retried; a session with nothing open resolves successfully as-is.
func (e *Executor) Resume(ctx context.Context, sessionID string) (*ResumeResult, error) {
	f, err := e.store.LoadHandoff(sessionID)
	if err != nil {
		return nil, err
	}

	open := f.NextOpenTask()
	if open == nil {
		return &ResumeResult{
			Success:   true,
			SessionID: sessionID,
			Summary:   "all tasks already resolved; nothing to resume",
		}, nil
	}

	logw, err := e.store.OpenLog(sessionID)
	if err != nil {
		return nil, err
	}
	defer logw.Close()
	logw.Printf("session %s resuming task %s", sessionID, open.ID)

	e.store.ClearCancel(sessionID)
	e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateSessionStatus(handoff.SessionActive)
	})

	chunk := models.TaskChunk{
		ID:           open.ID,
		Description:  open.Description,
		Dependencies: open.Input.DependsOn,
		Context: models.ChunkContext{
			Files:      open.Input.Files,
			ParentTask: open.Description,
		},
	}
	run := newChunkRun([]models.TaskChunk{chunk}, [][]string{{open.ID}})
	// Completed predecessors feed the prompt the same way a fresh chunked
	// run's dependencies do.
	for _, dep := range open.Input.DependsOn {
		depTask := f.Task(dep)
		if depTask == nil || depTask.Status != handoff.TaskCompleted {
			continue
		}
		summary := ""
		if depTask.Output != nil {
			summary = depTask.Output.Summary
		}
		run.byID[dep] = &models.TaskChunk{ID: dep, Description: depTask.Description}
		run.record(&chunkOutcome{ChunkID: dep, Success: true, Summary: summary})
	}

	timeout := e.cfg.Delegate.Timeout
	e.runChunk(ctx, sessionID, "", timeout, 0, &run.chunks[0], run, logw)

	out := run.outcome(open.ID)
	if out == nil {
		return nil, fmt.Errorf("resume of task %s produced no outcome", open.ID)
	}

	sessionStatus := handoff.SessionCompleted
	if !out.Success {
		sessionStatus = handoff.SessionFailed
	}
	// Only close the session when no other task remains open.
	if remaining, err := e.store.LoadHandoff(sessionID); err == nil && remaining.NextOpenTask() != nil {
		sessionStatus = handoff.SessionPaused
	}
	e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateSessionStatus(sessionStatus)
	})
	if e.index != nil {
		now := time.Now()
		e.index.UpdateSessionStatus(sessionID, string(sessionStatus), &now)
	}

	result := &ResumeResult{
		Success:   out.Success,
		SessionID: sessionID,
		TaskID:    open.ID,
		Summary:   out.Summary,
	}
	if !out.Success {
		if out.TimedOut {
			result.Hint = pollHint(sessionID)
		} else {
			result.Hint = fmt.Sprintf("inspect %s and retry with 'flynn resume %s'", e.store.LogPath(sessionID), sessionID)
		}
	}
	return result, nil
}
