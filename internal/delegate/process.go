package delegate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Process manages one CLI subprocess, streaming its parsed events.
type Process struct {
	binary string
	args   []string

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	ctx       context.Context
	cancel    context.CancelFunc
	outputCh  chan Event
	stderrBuf []byte
	once      sync.Once
	mu        sync.Mutex
	started   bool
	done      chan struct{}
}

// NewProcess creates a Process for the given binary and base arguments.
// The context cancels the subprocess when it ends.
func NewProcess(ctx context.Context, binary string, args []string) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		binary:   binary,
		args:     args,
		ctx:      ctx,
		cancel:   cancel,
		outputCh: make(chan Event, 100),
		done:     make(chan struct{}),
	}
}

// Start launches the subprocess with the prompt appended to the argument
// list and the given working directory.
func (p *Process) Start(prompt, workDir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("process already started")
	}
	if p.binary == "" {
		return fmt.Errorf("no delegate binary configured")
	}

	args := append(append([]string{}, p.args...), prompt)
	p.cmd = exec.CommandContext(p.ctx, p.binary, args...)
	if workDir != "" {
		p.cmd.Dir = workDir
	}

	var err error
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	p.started = true

	go p.readOutput()
	go p.readStderr()

	return nil
}

// readOutput reads stdout line by line and emits parsed events.
func (p *Process) readOutput() {
	defer close(p.outputCh)
	defer close(p.done)

	scanner := bufio.NewScanner(p.stdout)
	// Event lines can carry whole file contents.
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		select {
		case p.outputCh <- ParseEvent(line):
		case <-p.ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && p.ctx.Err() == nil {
		p.outputCh <- Event{
			Type:  EventError,
			Error: fmt.Sprintf("read error: %v", err),
		}
	}
}

// readStderr captures stderr incrementally so spawn-time hangs still leave
// diagnostics behind.
func (p *Process) readStderr() {
	scanner := bufio.NewScanner(p.stderr)
	buf := make([]byte, 16*1024)
	scanner.Buffer(buf, 256*1024)

	var all []byte
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		p.mu.Lock()
		all = append(all, line...)
		all = append(all, '\n')
		p.stderrBuf = all
		p.mu.Unlock()

		select {
		case p.outputCh <- Event{Type: EventError, Error: fmt.Sprintf("[stderr] %s", line)}:
		case <-p.ctx.Done():
			return
		default:
			// Channel full; the buffer still has it.
		}
	}
}

// Output returns the event channel. It closes when the subprocess's stdout
// closes or the context ends.
func (p *Process) Output() <-chan Event {
	return p.outputCh
}

// Wait waits for the subprocess to exit. On failure the error carries the
// captured stderr and any context cancellation cause.
func (p *Process) Wait() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("process not started")
	}
	p.mu.Unlock()

	<-p.done

	err := p.cmd.Wait()
	if err != nil {
		p.mu.Lock()
		stderr := string(p.stderrBuf)
		p.mu.Unlock()

		msg := fmt.Sprintf("process exited with error: %v", err)
		if p.ctx.Err() != nil {
			msg += fmt.Sprintf(" (context: %v)", p.ctx.Err())
		}
		if stderr != "" {
			msg += fmt.Sprintf("; stderr: %s", stderr)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// Kill terminates the subprocess immediately.
func (p *Process) Kill() error {
	p.once.Do(func() {
		p.cancel()
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Stderr returns the captured stderr output so far.
func (p *Process) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.stderrBuf)
}

// PID returns the subprocess id, or 0 before Start.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

var _ Runner = (*Process)(nil)
