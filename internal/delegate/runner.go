package delegate

import "context"

// Runner is one subprocess invocation. The Process implementation spawns
// the real CLI; tests substitute their own.
type Runner interface {
	// Start launches the subprocess with the given prompt and working
	// directory.
	Start(prompt, workDir string) error

	// Output returns the parsed event stream. The channel closes when the
	// subprocess's stdout closes.
	Output() <-chan Event

	// Wait blocks until the subprocess exits and returns its exit error.
	Wait() error

	// Kill terminates the subprocess immediately.
	Kill() error

	// Stderr returns captured stderr output.
	Stderr() string

	// PID returns the subprocess id, or 0 before Start.
	PID() int
}

// RunnerFactory creates a Runner per invocation. The context carries the
// per-chunk timeout.
type RunnerFactory interface {
	NewRunner(ctx context.Context) Runner
}

// CLIRunnerFactory builds Process runners for a concrete CLI binary.
type CLIRunnerFactory struct {
	// Binary is the executable name or path.
	Binary string
	// BaseArgs precede everything else; nil means the tool's non-interactive
	// streaming mode ("exec --json").
	BaseArgs []string
	// Model is passed as --model when set.
	Model string
	// ExtraArgs are appended before the prompt.
	ExtraArgs []string
}

// NewRunner creates a Process bound to the factory's binary and arguments.
func (f *CLIRunnerFactory) NewRunner(ctx context.Context) Runner {
	return NewProcess(ctx, f.Binary, f.buildArgs())
}

func (f *CLIRunnerFactory) buildArgs() []string {
	args := f.BaseArgs
	if args == nil {
		args = []string{"exec", "--json"}
	}
	out := append([]string{}, args...)
	if f.Model != "" {
		out = append(out, "--model", f.Model)
	}
	out = append(out, f.ExtraArgs...)
	return out
}

// CommandLine returns the command the factory would spawn, without the
// prompt, for policy validation and diagnostics.
func (f *CLIRunnerFactory) CommandLine() string {
	line := f.Binary
	for _, arg := range f.buildArgs() {
		line += " " + arg
	}
	return line
}

var _ RunnerFactory = (*CLIRunnerFactory)(nil)
