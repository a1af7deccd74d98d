package delegate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reze83/Flynn-Project-sub000/internal/chunker"
	"github.com/reze83/Flynn-Project-sub000/internal/config"
	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/internal/policy"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
	"github.com/reze83/Flynn-Project-sub000/pkg/models"
)

// cancelPollInterval is how often an in-flight chunk checks for the cancel
// signal file.
const cancelPollInterval = 500 * time.Millisecond

// Executor is the delegation orchestrator. It is the only writer of
// handoff records; concurrent chunk completions serialize through the
// store's per-session lock.
type Executor struct {
	cfg     *config.Config
	store   *session.Store
	index   *session.Index
	gate    policy.Gate
	factory RunnerFactory
	chunker *chunker.Chunker
}

// NewExecutor wires an executor. index and gate may be nil; a nil gate
// allows everything, a nil index skips discovery metadata.
func NewExecutor(cfg *config.Config, store *session.Store, index *session.Index, gate policy.Gate, factory RunnerFactory) *Executor {
	if cfg == nil {
		cfg = config.Default()
	}
	if factory == nil {
		factory = &CLIRunnerFactory{
			Binary:    cfg.Delegate.Binary,
			Model:     cfg.Delegate.Model,
			ExtraArgs: cfg.Delegate.ExtraArgs,
		}
	}
	return &Executor{
		cfg:     cfg,
		store:   store,
		index:   index,
		gate:    gate,
		factory: factory,
		chunker: chunker.New(chunker.Config{
			ScoreThreshold:  cfg.Chunking.ScoreThreshold,
			TimeoutFraction: cfg.Chunking.TimeoutFraction,
			MinChunks:       cfg.Chunking.MinChunks,
			MaxChunks:       cfg.Chunking.MaxChunks,
		}),
	}
}

// DelegateRequest describes one delegation.
type DelegateRequest struct {
	// Task is the natural-language task text.
	Task string
	// WorkingDir is the subprocess working directory.
	WorkingDir string
	// Context is optional project context recorded in the handoff memory.
	Context string
	// Timeout is the per-chunk timeout; zero means the configured default.
	Timeout time.Duration
	// EnableChunking turns on decomposition for complex tasks.
	EnableChunking bool
}

// DelegateResult is the aggregate outcome of one delegation.
type DelegateResult struct {
	// Success is true only when every chunk completed.
	Success bool
	// SessionID keys all persisted artifacts.
	SessionID string
	// Summary concatenates the successful chunks' extracted summaries.
	Summary string
	// LogFile and StatusFile locate the session's observability artifacts.
	LogFile    string
	StatusFile string
	// Chunking is set when decomposition ran.
	Chunking *models.ChunkingResult
	// CompletedChunks and TotalChunks count the chunk outcomes.
	CompletedChunks int
	TotalChunks     int
	// Errors lists per-chunk error strings.
	Errors []string
	// Hint carries recovery guidance when Success is false.
	Hint string
}

// Delegate runs a task through the external subprocess, decomposing it
// first when chunking is enabled and the task warrants it.
func (e *Executor) Delegate(ctx context.Context, req DelegateRequest) (*DelegateResult, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, ErrEmptyTask
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Delegate.Timeout
	}

	if err := e.checkPolicy(req); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()

	var chunking *models.ChunkingResult
	if req.EnableChunking {
		result := e.chunker.Chunk(req.Task, timeout)
		if result.RequiresChunking {
			chunking = &result
		}
	}

	f := handoff.New(sessionID, handoff.InitiatorLocalAgent)
	f.Memory.ProjectContext = req.Context

	var run *chunkRun
	if chunking != nil {
		for i := range chunking.Chunks {
			chunk := &chunking.Chunks[i]
			f.AddTask(chunk.ID, chunk.Description, handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{
				Files:     chunk.Context.Files,
				DependsOn: chunk.Dependencies,
			})
		}
		run = newChunkRun(chunking.Chunks, chunking.ExecutionOrder)
	} else {
		taskID := uuid.New().String()
		f.AddTask(taskID, req.Task, handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{})
		single := models.TaskChunk{
			ID:          taskID,
			Description: req.Task,
			Context:     models.ChunkContext{ParentTask: req.Task},
		}
		run = newChunkRun([]models.TaskChunk{single}, [][]string{{taskID}})
	}

	if err := f.UpdateSessionStatus(handoff.SessionActive); err != nil {
		return nil, err
	}
	if err := e.store.SaveHandoff(f); err != nil {
		return nil, err
	}
	e.recordIndex(sessionID, req.Task, "active", len(run.chunks), nil)

	logw, err := e.store.OpenLog(sessionID)
	if err != nil {
		return nil, err
	}
	defer logw.Close()
	logw.Printf("session %s started: %s", sessionID, req.Task)
	if chunking != nil {
		logw.Printf("chunked into %d chunks over %d groups", len(chunking.Chunks), len(chunking.ExecutionOrder))
	}

	e.store.ClearCancel(sessionID)
	e.store.WriteLiveStatus(session.LiveStatus{
		SessionID:   sessionID,
		State:       session.LiveRunning,
		TotalChunks: len(run.chunks),
		Message:     "delegation started",
	})

	e.runGroups(ctx, sessionID, req.WorkingDir, timeout, run, logw)

	return e.finish(sessionID, run, chunking, logw)
}

// finish reconciles terminal state into the handoff record, the live
// status, and the session index, then builds the aggregate result.
func (e *Executor) finish(sessionID string, run *chunkRun, chunking *models.ChunkingResult, logw *session.LogWriter) (*DelegateResult, error) {
	completed, errs, summaries := run.outcomes()
	success := completed == len(run.chunks)

	sessionStatus := handoff.SessionCompleted
	liveState := session.LiveCompleted
	message := "all chunks completed"
	if !success {
		sessionStatus = handoff.SessionFailed
		liveState = session.LiveFailed
		message = fmt.Sprintf("%d of %d chunks completed", completed, len(run.chunks))
	}
	if run.timedOut() {
		liveState = session.LiveTimeout
		message = "delegation timed out"
	}

	if err := e.store.Mutate(sessionID, func(f *handoff.File) error {
		return f.UpdateSessionStatus(sessionStatus)
	}); err != nil {
		return nil, err
	}
	e.store.WriteLiveStatus(session.LiveStatus{
		SessionID:   sessionID,
		State:       liveState,
		TotalChunks: len(run.chunks),
		Message:     message,
	})
	now := time.Now()
	e.recordIndex(sessionID, "", string(sessionStatus), len(run.chunks), &now)
	logw.Printf("session %s finished: %s", sessionID, message)

	result := &DelegateResult{
		Success:         success,
		SessionID:       sessionID,
		Summary:         strings.Join(summaries, "\n"),
		LogFile:         e.store.LogPath(sessionID),
		StatusFile:      e.store.StatusPath(sessionID),
		Chunking:        chunking,
		CompletedChunks: completed,
		TotalChunks:     len(run.chunks),
		Errors:          errs,
	}
	if !success {
		if run.timedOut() {
			result.Hint = pollHint(sessionID)
		} else {
			result.Hint = fmt.Sprintf("inspect %s for subprocess output, then resume with 'flynn resume %s'", result.LogFile, sessionID)
		}
	}
	return result, nil
}

// checkPolicy validates the spawn command and task text before anything
// runs. A denial is a hard failure.
func (e *Executor) checkPolicy(req DelegateRequest) error {
	if e.gate == nil {
		return nil
	}
	if cli, ok := e.factory.(*CLIRunnerFactory); ok {
		if res := e.gate.ValidateCommand(cli.CommandLine()); !res.Allowed {
			return &policy.BlockedError{Subject: cli.CommandLine(), Kind: "command", Reason: res.Reason}
		}
	}
	// The task text is handed to a tool that executes shell commands on the
	// caller's behalf; embedded denied fragments are refused up front.
	if res := e.gate.ValidateCommand(req.Task); !res.Allowed {
		return &policy.BlockedError{Subject: req.Task, Kind: "command", Reason: res.Reason}
	}
	if req.WorkingDir != "" {
		if res := e.gate.ValidatePath(req.WorkingDir, policy.AccessWrite); !res.Allowed {
			return &policy.BlockedError{Subject: req.WorkingDir, Kind: "path", Reason: res.Reason}
		}
	}
	return nil
}

func (e *Executor) recordIndex(sessionID, task, status string, chunkCount int, completedAt *time.Time) {
	if e.index == nil {
		return
	}
	if task != "" {
		e.index.RecordSession(session.SessionRecord{
			ID:         sessionID,
			Task:       task,
			Status:     status,
			ChunkCount: chunkCount,
			StartedAt:  time.Now(),
		})
		return
	}
	e.index.UpdateSessionStatus(sessionID, status, completedAt)
}
