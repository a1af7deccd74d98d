package delegate

import (
	"context"
	"strings"
	"testing"
	"time"
)

// shellFactory runs the prompt as a shell script, standing in for the real
// CLI so the process plumbing is exercised end to end.
func shellFactory() *CLIRunnerFactory {
	return &CLIRunnerFactory{Binary: "sh", BaseArgs: []string{"-c"}}
}

func TestProcess_StreamsEvents(t *testing.T) {
	script := `echo '{"type":"thread.started","thread_id":"th_9"}'
echo '{"type":"item.completed","item":{"item_type":"agent_message","text":"hello"}}'
echo 'not json at all'
echo '{"type":"turn.completed"}'`

	runner := shellFactory().NewRunner(context.Background())
	if err := runner.Start(script, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if runner.PID() == 0 {
		t.Error("PID = 0 after Start")
	}

	var events []Event
	for event := range runner.Output() {
		events = append(events, event)
	}
	if err := runner.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Type != EventThreadStarted || events[0].ThreadID != "th_9" {
		t.Errorf("events[0] = %+v, want thread.started th_9", events[0])
	}
	if events[1].Type != EventItemCompleted || events[1].Text != "hello" {
		t.Errorf("events[1] = %+v, want the agent message", events[1])
	}
	if events[2].Type != EventRaw || !strings.Contains(events[2].Text, "not json") {
		t.Errorf("events[2] = %+v, want the raw line preserved", events[2])
	}
	if events[3].Type != EventTurnCompleted {
		t.Errorf("events[3] = %+v, want turn.completed", events[3])
	}
}

func TestProcess_CapturesStderrOnFailure(t *testing.T) {
	runner := shellFactory().NewRunner(context.Background())
	if err := runner.Start(`echo 'boom' >&2; exit 3`, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range runner.Output() {
	}

	err := runner.Wait()
	if err == nil {
		t.Fatal("Wait = nil for a non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q missing captured stderr", err)
	}
	if !strings.Contains(runner.Stderr(), "boom") {
		t.Errorf("Stderr() = %q, want the captured output", runner.Stderr())
	}
}

func TestProcess_ContextCancelKills(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	runner := shellFactory().NewRunner(ctx)
	if err := runner.Start(`sleep 30`, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		for range runner.Output() {
		}
		done <- runner.Wait()
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Wait = nil for a killed process")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("process not killed by context deadline")
	}
}

func TestProcess_StartTwice(t *testing.T) {
	runner := shellFactory().NewRunner(context.Background())
	if err := runner.Start(`true`, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := runner.Start(`true`, ""); err == nil {
		t.Error("second Start accepted")
	}
	for range runner.Output() {
	}
	runner.Wait()
}

func TestProcess_MissingBinary(t *testing.T) {
	factory := &CLIRunnerFactory{Binary: "definitely-not-a-real-binary-404"}
	runner := factory.NewRunner(context.Background())

	if err := runner.Start("hello", ""); err == nil {
		t.Error("Start succeeded for a missing binary")
	}
}
