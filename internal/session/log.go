package session

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogWriter appends timestamped lines to a session's invocation log. The
// log is append-only; a resumed session continues the same file.
type LogWriter struct {
	mu   sync.Mutex
	file *os.File
}

// OpenLog opens the session's log for appending, creating it if needed.
func (s *Store) OpenLog(id string) (*LogWriter, error) {
	if err := s.EnsureSession(id); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.LogPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	return &LogWriter{file: f}, nil
}

// Printf appends one formatted, timestamped line.
func (w *LogWriter) Printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ts := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(w.file, "[%s] %s\n", ts, fmt.Sprintf(format, args...))
}

// Raw appends text without a timestamp prefix, for subprocess output.
func (w *LogWriter) Raw(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.file, text)
}

// Close flushes and closes the log file.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
