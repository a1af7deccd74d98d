package delegate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
	"github.com/reze83/Flynn-Project-sub000/pkg/models"
)

// chunkOutcome is one chunk's terminal record.
type chunkOutcome struct {
	ChunkID   string
	Success   bool
	Blocked   bool
	TimedOut  bool
	Cancelled bool
	Summary   string
	Err       string
}

// chunkRun tracks the chunks, their schedule, and their outcomes for one
// delegation.
type chunkRun struct {
	chunks []models.TaskChunk
	groups [][]string
	byID   map[string]*models.TaskChunk

	mu      sync.Mutex
	results map[string]*chunkOutcome
}

func newChunkRun(chunks []models.TaskChunk, groups [][]string) *chunkRun {
	run := &chunkRun{
		chunks:  chunks,
		groups:  groups,
		byID:    make(map[string]*models.TaskChunk, len(chunks)),
		results: make(map[string]*chunkOutcome, len(chunks)),
	}
	for i := range chunks {
		run.byID[chunks[i].ID] = &chunks[i]
	}
	return run
}

func (r *chunkRun) record(out *chunkOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[out.ChunkID] = out
}

func (r *chunkRun) outcome(id string) *chunkOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[id]
}

// depFailed returns the id of the first dependency that did not complete,
// or "". Blocked dependencies count as failed, so blocking propagates to
// transitive dependents group by group.
func (r *chunkRun) depFailed(chunk *models.TaskChunk) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range chunk.Dependencies {
		out, ok := r.results[dep]
		if !ok || !out.Success {
			return dep
		}
	}
	return ""
}

func (r *chunkRun) timedOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, out := range r.results {
		if out.TimedOut {
			return true
		}
	}
	return false
}

// outcomes returns the completed count, the error list, and the successful
// summaries in chunk order.
func (r *chunkRun) outcomes() (completed int, errs []string, summaries []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.chunks {
		out, ok := r.results[r.chunks[i].ID]
		if !ok {
			errs = append(errs, fmt.Sprintf("chunk %s: never ran", r.chunks[i].ID))
			continue
		}
		if out.Success {
			completed++
			if out.Summary != "" {
				summaries = append(summaries, out.Summary)
			}
			continue
		}
		errs = append(errs, fmt.Sprintf("chunk %s: %s", out.ChunkID, out.Err))
	}
	return completed, errs, summaries
}

// runGroups executes the schedule. Groups run strictly in order; members
// of a group run concurrently up to the configured parallelism, and the
// coordinator waits for every member to resolve before advancing.
func (e *Executor) runGroups(ctx context.Context, sessionID, workDir string, timeout time.Duration, run *chunkRun, logw *session.LogWriter) {
	maxParallel := e.cfg.Delegate.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}

	for gi, group := range run.groups {
		sem := make(chan struct{}, maxParallel)
		var wg sync.WaitGroup

		for _, id := range group {
			chunk := run.byID[id]
			if chunk == nil {
				continue
			}

			if dep := run.depFailed(chunk); dep != "" {
				e.markBlocked(sessionID, chunk, dep, run, logw)
				continue
			}

			wg.Add(1)
			sem <- struct{}{}
			go func(gi int, chunk *models.TaskChunk) {
				defer wg.Done()
				defer func() { <-sem }()
				e.runChunk(ctx, sessionID, workDir, timeout, gi, chunk, run, logw)
			}(gi, chunk)
		}
		wg.Wait()
	}
}

// markBlocked records a chunk skipped because a dependency failed.
func (e *Executor) markBlocked(sessionID string, chunk *models.TaskChunk, failedDep string, run *chunkRun, logw *session.LogWriter) {
	reason := fmt.Sprintf("blocked: dependency %s did not complete", failedDep)
	logw.Printf("chunk %s %s", chunk.ID, reason)

	e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateTask(chunk.ID, handoff.TaskUpdate{
			Status: handoff.TaskBlocked,
			Output: &handoff.OutputContext{Errors: []string{reason}},
		})
	})
	run.record(&chunkOutcome{ChunkID: chunk.ID, Blocked: true, Err: reason})
}

// runChunk drives one chunk through starting, running, completing, and a
// terminal state, streaming events into the log as it goes.
func (e *Executor) runChunk(ctx context.Context, sessionID, workDir string, timeout time.Duration, group int, chunk *models.TaskChunk, run *chunkRun, logw *session.LogWriter) {
	prompt := e.buildPrompt(chunk, run)

	e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateTask(chunk.ID, handoff.TaskUpdate{Status: handoff.TaskInProgress})
	})

	chunkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := e.factory.NewRunner(chunkCtx)
	logw.Printf("chunk %s starting (group %d): %s", chunk.ID, group, chunk.Description)

	if err := runner.Start(prompt, workDir); err != nil {
		e.resolveChunk(sessionID, chunk, run, logw, &chunkOutcome{
			ChunkID: chunk.ID,
			Err:     (&ExecError{SessionID: sessionID, ChunkID: chunk.ID, Stderr: runner.Stderr(), Err: err}).Error(),
		})
		return
	}

	e.store.WriteLiveStatus(session.LiveStatus{
		SessionID:   sessionID,
		State:       session.LiveRunning,
		ChunkID:     chunk.ID,
		ChunkIndex:  chunk.Index,
		TotalChunks: len(run.chunks),
		Group:       group,
		PID:         runner.PID(),
		Message:     "subprocess running",
	})

	var summary Summary
	cancelled := false
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()

	out := runner.Output()
loop:
	for {
		select {
		case event, ok := <-out:
			if !ok {
				break loop
			}
			e.logEvent(logw, chunk.ID, event)
			summary.Observe(event)
		case <-chunkCtx.Done():
			runner.Kill()
			for event := range out {
				e.logEvent(logw, chunk.ID, event)
				summary.Observe(event)
			}
			break loop
		case <-ticker.C:
			if e.store.CancelRequested(sessionID) {
				cancelled = true
				runner.Kill()
				for event := range out {
					e.logEvent(logw, chunk.ID, event)
					summary.Observe(event)
				}
				break loop
			}
		}
	}

	waitErr := runner.Wait()

	if summary.ThreadID != "" {
		e.store.Mutate(sessionID, func(f *handoff.File) error {
			f.SetThreadID(summary.ThreadID)
			return nil
		})
	}

	switch {
	case cancelled:
		logw.Printf("chunk %s cancelled by signal", chunk.ID)
		e.store.WriteLiveStatus(session.LiveStatus{
			SessionID: sessionID, State: session.LiveCancelled,
			ChunkID: chunk.ID, TotalChunks: len(run.chunks), Group: group,
			Message: "cancelled by signal",
		})
		e.resolveChunk(sessionID, chunk, run, logw, &chunkOutcome{
			ChunkID: chunk.ID, Cancelled: true, Err: "cancelled by signal",
		})

	case chunkCtx.Err() == context.DeadlineExceeded:
		logw.Printf("chunk %s timeout after %s; subprocess terminated", chunk.ID, timeout)
		e.store.WriteLiveStatus(session.LiveStatus{
			SessionID: sessionID, State: session.LiveTimeout,
			ChunkID: chunk.ID, TotalChunks: len(run.chunks), Group: group,
			Message: fmt.Sprintf("timeout after %s", timeout),
		})
		e.resolveChunk(sessionID, chunk, run, logw, &chunkOutcome{
			ChunkID: chunk.ID, TimedOut: true,
			Err: (&TimeoutError{SessionID: sessionID, ChunkID: chunk.ID, Timeout: timeout, Hint: pollHint(sessionID)}).Error(),
		})

	case waitErr != nil:
		e.resolveChunk(sessionID, chunk, run, logw, &chunkOutcome{
			ChunkID: chunk.ID,
			Err: (&ExecError{
				SessionID: sessionID, ChunkID: chunk.ID,
				Stdout: summary.Text(), Stderr: runner.Stderr(), Err: waitErr,
			}).Error(),
		})

	default:
		e.resolveChunk(sessionID, chunk, run, logw, &chunkOutcome{
			ChunkID: chunk.ID, Success: true, Summary: summary.Text(),
		})
	}
}

// resolveChunk persists a chunk's terminal state into the handoff record
// and the run.
func (e *Executor) resolveChunk(sessionID string, chunk *models.TaskChunk, run *chunkRun, logw *session.LogWriter, out *chunkOutcome) {
	status := handoff.TaskFailed
	output := &handoff.OutputContext{}
	if out.Success {
		status = handoff.TaskCompleted
		output.Summary = out.Summary
	} else {
		output.Errors = []string{out.Err}
		logw.Printf("chunk %s failed: %s", chunk.ID, out.Err)
	}

	e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateTask(chunk.ID, handoff.TaskUpdate{Status: status, Output: output})
	})
	run.record(out)
}

// logEvent appends one stream event to the session log.
func (e *Executor) logEvent(logw *session.LogWriter, chunkID string, event Event) {
	switch {
	case len(event.Raw) > 0:
		logw.Raw(string(event.Raw))
	case event.Error != "":
		logw.Printf("chunk %s: %s", chunkID, event.Error)
	case event.Text != "":
		logw.Raw(event.Text)
	}
}

// buildPrompt prepends dependency recaps and file references to a chunk's
// description so a dependent chunk starts with its predecessors' results.
func (e *Executor) buildPrompt(chunk *models.TaskChunk, run *chunkRun) string {
	var b strings.Builder
	for _, dep := range chunk.Dependencies {
		out := run.outcome(dep)
		if out == nil || !out.Success || out.Summary == "" {
			continue
		}
		depChunk := run.byID[dep]
		desc := ""
		if depChunk != nil {
			desc = depChunk.Description
		}
		b.WriteString(fmt.Sprintf("Previously completed: %s\nResult: %s\n\n", desc, recap(out.Summary)))
	}
	if len(chunk.Context.Files) > 0 {
		b.WriteString("Relevant files: " + strings.Join(chunk.Context.Files, ", ") + "\n\n")
	}
	b.WriteString(chunk.Description)
	return b.String()
}

// recap truncates a dependency summary so prompts stay short.
func recap(s string) string {
	const max = 400
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
