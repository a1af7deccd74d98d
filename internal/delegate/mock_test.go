package delegate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// mockRunner scripts one subprocess invocation for executor tests.
type mockRunner struct {
	events   []Event
	startErr error
	waitErr  error
	// failOn makes Wait fail when the prompt contains the substring.
	failOn string
	// runTime keeps the "subprocess" alive after its events, until killed.
	runTime time.Duration
	stderr  string

	mu       sync.Mutex
	prompt   string
	workDir  string
	out      chan Event
	done     chan struct{}
	killed   chan struct{}
	killOnce sync.Once
}

func newMockRunner() *mockRunner {
	return &mockRunner{killed: make(chan struct{})}
}

func (m *mockRunner) Start(prompt, workDir string) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.prompt = prompt
	m.workDir = workDir
	if m.failOn != "" && strings.Contains(prompt, m.failOn) {
		m.waitErr = errors.New("scripted failure")
	}
	m.out = make(chan Event, len(m.events)+1)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		defer close(m.out)
		for _, event := range m.events {
			select {
			case m.out <- event:
			case <-m.killed:
				return
			}
		}
		if m.runTime > 0 {
			select {
			case <-time.After(m.runTime):
			case <-m.killed:
			}
		}
	}()
	return nil
}

func (m *mockRunner) Output() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out
}

func (m *mockRunner) Wait() error {
	<-m.done
	select {
	case <-m.killed:
		return errors.New("process killed")
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

func (m *mockRunner) Kill() error {
	m.killOnce.Do(func() { close(m.killed) })
	return nil
}

func (m *mockRunner) Stderr() string { return m.stderr }

func (m *mockRunner) PID() int { return 4242 }

func (m *mockRunner) Prompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompt
}

// mockFactory hands out scripted runners and remembers them.
type mockFactory struct {
	build func() *mockRunner

	mu      sync.Mutex
	runners []*mockRunner
}

func (f *mockFactory) NewRunner(ctx context.Context) Runner {
	r := f.build()
	f.mu.Lock()
	f.runners = append(f.runners, r)
	f.mu.Unlock()
	return r
}

func (f *mockFactory) all() []*mockRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*mockRunner{}, f.runners...)
}

// successEvents is a minimal healthy event stream.
func successEvents(message string) []Event {
	return []Event{
		{Type: EventThreadStarted, ThreadID: "thread-1"},
		{Type: EventTurnStarted},
		{Type: EventItemCompleted, ItemType: "agent_message", Text: message},
		{Type: EventTurnCompleted},
	}
}
