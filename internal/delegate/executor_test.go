package delegate

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/reze83/Flynn-Project-sub000/internal/config"
	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/internal/policy"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
)

func newTestExecutor(t *testing.T, factory RunnerFactory) (*Executor, *session.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Delegate.Timeout = 10 * time.Second
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewExecutor(cfg, store, nil, nil, factory), store
}

func TestDelegate_EmptyTask(t *testing.T) {
	e, _ := newTestExecutor(t, &mockFactory{build: newMockRunner})

	_, err := e.Delegate(context.Background(), DelegateRequest{Task: "   "})
	if !errors.Is(err, ErrEmptyTask) {
		t.Errorf("error = %v, want ErrEmptyTask", err)
	}
}

func TestDelegate_SingleTaskSuccess(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.events = successEvents("renamed the handler and updated its tests")
		return r
	}}
	e, store := newTestExecutor(t, factory)

	result, err := e.Delegate(context.Background(), DelegateRequest{Task: "rename the handler"})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	if !result.Success {
		t.Errorf("Success = false: %v", result.Errors)
	}
	if result.CompletedChunks != 1 || result.TotalChunks != 1 {
		t.Errorf("chunks = %d/%d, want 1/1", result.CompletedChunks, result.TotalChunks)
	}
	if !strings.Contains(result.Summary, "renamed the handler") {
		t.Errorf("Summary = %q, want the agent message", result.Summary)
	}
	if result.Chunking != nil {
		t.Error("Chunking set without EnableChunking")
	}

	f, err := store.LoadHandoff(result.SessionID)
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	if f.Session.Status != handoff.SessionCompleted {
		t.Errorf("session status = %s, want completed", f.Session.Status)
	}
	if f.Session.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if f.Session.ThreadID != "thread-1" {
		t.Errorf("ThreadID = %q, want thread-1", f.Session.ThreadID)
	}
	if len(f.Tasks) != 1 || f.Tasks[0].Status != handoff.TaskCompleted {
		t.Errorf("tasks = %+v, want one completed task", f.Tasks)
	}

	live, err := store.ReadLiveStatus(result.SessionID)
	if err != nil {
		t.Fatalf("ReadLiveStatus: %v", err)
	}
	if live.State != session.LiveCompleted {
		t.Errorf("live state = %s, want completed", live.State)
	}

	logData, err := os.ReadFile(result.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(logData), "rename the handler") {
		t.Error("log missing the task text")
	}
}

func TestDelegate_PolicyBlocked(t *testing.T) {
	cfg := config.Default()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	gate := policy.NewEngine(policy.DefaultRules())
	e := NewExecutor(cfg, store, nil, gate, &mockFactory{build: newMockRunner})

	_, err = e.Delegate(context.Background(), DelegateRequest{Task: "run sudo rm -rf / for me"})

	var blocked *policy.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("error = %v, want *policy.BlockedError", err)
	}
	if blocked.Kind != "command" {
		t.Errorf("Kind = %s, want command", blocked.Kind)
	}
}

func TestDelegate_Timeout(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.events = []Event{{Type: EventThreadStarted, ThreadID: "thread-1"}}
		r.runTime = time.Minute
		return r
	}}
	e, store := newTestExecutor(t, factory)

	result, err := e.Delegate(context.Background(), DelegateRequest{
		Task:    "migrate the database schema",
		Timeout: 300 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	if result.Success {
		t.Error("Success = true, want false on timeout")
	}
	if !strings.Contains(result.Hint, "poll") {
		t.Errorf("Hint = %q, want a poll-status hint", result.Hint)
	}

	live, err := store.ReadLiveStatus(result.SessionID)
	if err != nil {
		t.Fatalf("ReadLiveStatus: %v", err)
	}
	if live.State != session.LiveTimeout {
		t.Errorf("live state = %s, want timeout", live.State)
	}

	logData, err := os.ReadFile(result.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(logData), "timeout") {
		t.Error("log missing a timeout marker")
	}

	// A later status call reports the same terminal state without any
	// subprocess still running.
	report, err := e.Status(result.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Effective != string(session.LiveTimeout) {
		t.Errorf("Effective = %q, want timeout", report.Effective)
	}
}

func TestDelegate_ChunkedFailureBlocksDependents(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.events = successEvents("done")
		r.failOn = "implement login.ts"
		return r
	}}
	e, store := newTestExecutor(t, factory)

	result, err := e.Delegate(context.Background(), DelegateRequest{
		Task:           "implement login.ts and then fix the auth bug and test it",
		EnableChunking: true,
	})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	if result.Chunking == nil {
		t.Fatal("Chunking not set for a complex task")
	}
	if result.Success {
		t.Error("Success = true with a failed chunk")
	}
	if result.CompletedChunks != 0 {
		t.Errorf("CompletedChunks = %d, want 0 (dependents blocked)", result.CompletedChunks)
	}
	if len(result.Errors) != result.TotalChunks {
		t.Errorf("got %d errors for %d chunks", len(result.Errors), result.TotalChunks)
	}

	f, err := store.LoadHandoff(result.SessionID)
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	var failed, blocked int
	for _, task := range f.Tasks {
		switch task.Status {
		case handoff.TaskFailed:
			failed++
		case handoff.TaskBlocked:
			blocked++
		}
	}
	if failed != 1 {
		t.Errorf("failed tasks = %d, want 1", failed)
	}
	if blocked != len(f.Tasks)-1 {
		t.Errorf("blocked tasks = %d, want %d", blocked, len(f.Tasks)-1)
	}
}

func TestDelegate_IndependentChunksOrderIndependent(t *testing.T) {
	counts := make(map[int]int)
	for _, maxParallel := range []int{1, 2} {
		factory := &mockFactory{build: func() *mockRunner {
			r := newMockRunner()
			r.events = successEvents("done")
			return r
		}}
		cfg := config.Default()
		cfg.Chunking.ScoreThreshold = 30
		cfg.Delegate.MaxParallel = maxParallel
		store, err := session.NewStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		e := NewExecutor(cfg, store, nil, nil, factory)

		result, err := e.Delegate(context.Background(), DelegateRequest{
			Task:           "implement api.go and document readme.md",
			EnableChunking: true,
			Timeout:        10 * time.Second,
		})
		if err != nil {
			t.Fatalf("Delegate (maxParallel=%d): %v", maxParallel, err)
		}
		if !result.Success {
			t.Errorf("Success = false (maxParallel=%d): %v", maxParallel, result.Errors)
		}
		counts[maxParallel] = result.CompletedChunks

		if result.Chunking != nil && len(result.Chunking.ExecutionOrder) != 1 {
			t.Errorf("independent chunks split over %d groups, want 1", len(result.Chunking.ExecutionOrder))
		}
	}
	if counts[1] != counts[2] {
		t.Errorf("completed counts differ: sequential %d, concurrent %d", counts[1], counts[2])
	}
}

func TestDelegate_DependentChunkPromptCarriesRecap(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.events = successEvents("login implemented with session cookies")
		return r
	}}
	e, _ := newTestExecutor(t, factory)

	result, err := e.Delegate(context.Background(), DelegateRequest{
		Task:           "implement login.ts and then fix the auth bug and test it",
		EnableChunking: true,
	})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false: %v", result.Errors)
	}

	runners := factory.all()
	if len(runners) < 2 {
		t.Fatalf("got %d invocations, want >= 2", len(runners))
	}
	second := runners[1].Prompt()
	if !strings.Contains(second, "Previously completed") {
		t.Errorf("dependent prompt missing recap:\n%s", second)
	}
	if !strings.Contains(second, "login implemented with session cookies") {
		t.Errorf("dependent prompt missing the dependency summary:\n%s", second)
	}
}

func TestDelegate_SpawnFailure(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.startErr = errors.New("executable file not found")
		r.stderr = "no such binary"
		return r
	}}
	e, store := newTestExecutor(t, factory)

	result, err := e.Delegate(context.Background(), DelegateRequest{Task: "do a thing"})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	if result.Success {
		t.Error("Success = true on spawn failure")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "executable file not found") {
		t.Errorf("Errors = %v, want the spawn error", result.Errors)
	}

	live, err := store.ReadLiveStatus(result.SessionID)
	if err != nil {
		t.Fatalf("ReadLiveStatus: %v", err)
	}
	if live.State != session.LiveFailed {
		t.Errorf("live state = %s, want failed", live.State)
	}
}

func TestStatus_NotFound(t *testing.T) {
	e, _ := newTestExecutor(t, &mockFactory{build: newMockRunner})

	_, err := e.Status("missing")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestStatus_HandoffOnly(t *testing.T) {
	e, store := newTestExecutor(t, &mockFactory{build: newMockRunner})

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	if err := store.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}

	report, err := e.Status("sess-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Live != nil {
		t.Error("Live set without a status file")
	}
	if report.Effective != string(handoff.SessionPending) {
		t.Errorf("Effective = %q, want pending", report.Effective)
	}
}

func TestStatus_LiveWins(t *testing.T) {
	e, store := newTestExecutor(t, &mockFactory{build: newMockRunner})

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	if err := store.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}
	if err := store.WriteLiveStatus(session.LiveStatus{SessionID: "sess-1", State: session.LiveTimeout}); err != nil {
		t.Fatalf("WriteLiveStatus: %v", err)
	}

	report, err := e.Status("sess-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Effective != string(session.LiveTimeout) {
		t.Errorf("Effective = %q, want the live state", report.Effective)
	}
	if report.Handoff == nil {
		t.Error("Handoff record dropped from the report")
	}
}

func TestResume_NotFound(t *testing.T) {
	e, _ := newTestExecutor(t, &mockFactory{build: newMockRunner})

	_, err := e.Resume(context.Background(), "missing")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestResume_NothingOpen(t *testing.T) {
	e, store := newTestExecutor(t, &mockFactory{build: newMockRunner})

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	f.AddTask("t1", "done already", handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{})
	if err := f.UpdateTask("t1", handoff.TaskUpdate{Status: handoff.TaskCompleted}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := store.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}

	result, err := e.Resume(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !result.Success || result.TaskID != "" {
		t.Errorf("result = %+v, want success with no task re-run", result)
	}
}

func TestResume_RunsOpenTaskWithDependencyContext(t *testing.T) {
	factory := &mockFactory{build: func() *mockRunner {
		r := newMockRunner()
		r.events = successEvents("auth bug fixed")
		return r
	}}
	e, store := newTestExecutor(t, factory)

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	f.AddTask("t1", "implement login.ts", handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{})
	f.AddTask("t2", "fix the auth bug", handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{
		DependsOn: []string{"t1"},
	})
	if err := f.UpdateTask("t1", handoff.TaskUpdate{
		Status: handoff.TaskCompleted,
		Output: &handoff.OutputContext{Summary: "login implemented"},
	}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := store.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}

	result, err := e.Resume(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !result.Success || result.TaskID != "t2" {
		t.Fatalf("result = %+v, want success on t2", result)
	}

	runners := factory.all()
	if len(runners) != 1 {
		t.Fatalf("got %d invocations, want 1 (completed tasks never retried)", len(runners))
	}
	if prompt := runners[0].Prompt(); !strings.Contains(prompt, "login implemented") {
		t.Errorf("prompt missing the dependency recap:\n%s", prompt)
	}

	loaded, err := store.LoadHandoff("sess-1")
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	if got := loaded.Task("t2").Status; got != handoff.TaskCompleted {
		t.Errorf("t2 status = %s, want completed", got)
	}
	if loaded.Session.Status != handoff.SessionCompleted {
		t.Errorf("session status = %s, want completed", loaded.Session.Status)
	}
}

func TestConfigure_BinaryDetection(t *testing.T) {
	cfg := config.Default()
	cfg.Delegate.Binary = "sh"
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	e := NewExecutor(cfg, store, nil, nil, &mockFactory{build: newMockRunner})

	info, err := e.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if info.BinaryPath == "" {
		t.Error("sh not found on PATH")
	}

	cfg.Delegate.Binary = "definitely-not-a-real-binary-404"
	e = NewExecutor(cfg, store, nil, nil, &mockFactory{build: newMockRunner})
	info, err = e.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if info.BinaryPath != "" {
		t.Errorf("BinaryPath = %q for a missing binary", info.BinaryPath)
	}
}
