package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStore_Layout(t *testing.T) {
	s := newTestStore(t)

	dir := s.SessionDir("abc")
	for _, path := range []string{
		s.HandoffPath("abc"),
		s.LogPath("abc"),
		s.StatusPath("abc"),
		s.CancelPath("abc"),
	} {
		if filepath.Dir(path) != dir {
			t.Errorf("%s not inside session dir %s", path, dir)
		}
	}
}

func TestStore_SaveLoadHandoff(t *testing.T) {
	s := newTestStore(t)

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	f.AddTask("t1", "do the thing", handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{})

	if err := s.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}
	loaded, err := s.LoadHandoff("sess-1")
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	if loaded.Session.ID != "sess-1" || len(loaded.Tasks) != 1 {
		t.Errorf("loaded %+v, want the saved record", loaded)
	}
}

func TestStore_LoadMissingSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadHandoff("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_Mutate(t *testing.T) {
	s := newTestStore(t)

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	f.AddTask("t1", "do the thing", handoff.InitiatorDelegate, handoff.PriorityMedium, handoff.InputContext{})
	if err := s.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}

	err := s.Mutate("sess-1", func(f *handoff.File) error {
		return f.UpdateTask("t1", handoff.TaskUpdate{Status: handoff.TaskCompleted})
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	loaded, err := s.LoadHandoff("sess-1")
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	if got := loaded.Task("t1").Status; got != handoff.TaskCompleted {
		t.Errorf("Status = %s, want completed", got)
	}
}

func TestStore_MutateErrorLeavesRecord(t *testing.T) {
	s := newTestStore(t)

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	if err := s.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}
	before, err := os.ReadFile(s.HandoffPath("sess-1"))
	if err != nil {
		t.Fatalf("read handoff: %v", err)
	}

	wantErr := errors.New("boom")
	if err := s.Mutate("sess-1", func(*handoff.File) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("Mutate error = %v, want boom", err)
	}

	after, err := os.ReadFile(s.HandoffPath("sess-1"))
	if err != nil {
		t.Fatalf("read handoff: %v", err)
	}
	if string(before) != string(after) {
		t.Error("record modified by a failed Mutate")
	}
}

func TestStore_ConcurrentMutate(t *testing.T) {
	s := newTestStore(t)

	f := handoff.New("sess-1", handoff.InitiatorLocalAgent)
	if err := s.SaveHandoff(f); err != nil {
		t.Fatalf("SaveHandoff: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Mutate("sess-1", func(f *handoff.File) error {
				f.AddSharedNote(handoff.InitiatorDelegate, "note")
				return nil
			})
			if err != nil {
				t.Errorf("Mutate: %v", err)
			}
		}()
	}
	wg.Wait()

	loaded, err := s.LoadHandoff("sess-1")
	if err != nil {
		t.Fatalf("LoadHandoff: %v", err)
	}
	if got := len(loaded.Memory.SharedNotes); got != 8 {
		t.Errorf("got %d notes, want 8 (lost update)", got)
	}
}

func TestStore_CancelSignal(t *testing.T) {
	s := newTestStore(t)

	if s.CancelRequested("sess-1") {
		t.Fatal("cancel reported before request")
	}
	if err := s.RequestCancel("sess-1"); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !s.CancelRequested("sess-1") {
		t.Fatal("cancel not reported after request")
	}
	s.ClearCancel("sess-1")
	if s.CancelRequested("sess-1") {
		t.Fatal("cancel reported after clear")
	}
}

func TestStore_LiveStatusRoundTrip(t *testing.T) {
	s := newTestStore(t)

	st := LiveStatus{
		SessionID:   "sess-1",
		State:       LiveRunning,
		ChunkID:     "c1",
		ChunkIndex:  0,
		TotalChunks: 3,
		PID:         4242,
		Message:     "spawned",
	}
	if err := s.WriteLiveStatus(st); err != nil {
		t.Fatalf("WriteLiveStatus: %v", err)
	}

	got, err := s.ReadLiveStatus("sess-1")
	if err != nil {
		t.Fatalf("ReadLiveStatus: %v", err)
	}
	if got.State != LiveRunning || got.PID != 4242 || got.TotalChunks != 3 {
		t.Errorf("got %+v, want the written record", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on write")
	}
}

func TestStore_ReadLiveStatusMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadLiveStatus("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestLogWriter_Appends(t *testing.T) {
	s := newTestStore(t)

	w, err := s.OpenLog("sess-1")
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	w.Printf("spawned pid %d", 99)
	w.Raw("raw subprocess line")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening appends rather than truncating.
	w, err = s.OpenLog("sess-1")
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	w.Printf("resumed")
	w.Close()

	data, err := os.ReadFile(s.LogPath("sess-1"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	for _, want := range []string{"spawned pid 99", "raw subprocess line", "resumed"} {
		if !strings.Contains(text, want) {
			t.Errorf("log missing %q:\n%s", want, text)
		}
	}
	if lines := strings.Count(text, "\n"); lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}

func TestWatchLiveStatus_ObservesTerminalState(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteLiveStatus(LiveStatus{SessionID: "sess-1", State: LiveRunning}); err != nil {
		t.Fatalf("WriteLiveStatus: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := s.WatchLiveStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("WatchLiveStatus: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.WriteLiveStatus(LiveStatus{SessionID: "sess-1", State: LiveCompleted, Message: "done"})
	}()

	var states []LiveState
	for st := range ch {
		states = append(states, st.State)
	}
	if len(states) == 0 {
		t.Fatal("no states observed")
	}
	if last := states[len(states)-1]; last != LiveCompleted {
		t.Errorf("last state = %s, want completed", last)
	}
}

func TestWatchLiveStatus_ContextCancels(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureSession("sess-1"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.WatchLiveStatus(ctx, "sess-1")
	if err != nil {
		t.Fatalf("WatchLiveStatus: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// Drain anything buffered before cancel landed.
			for range ch {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
