package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/delegate"
	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show session state",
	Long: `Display the state of a delegation session.

Without a session id, lists recent sessions from the index.
With --watch, follows the session's live status until it reaches a
terminal state.

Examples:
  flynn status
  flynn status 4f7c2e1a-...
  flynn status 4f7c2e1a-... --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Follow live status updates until the session finishes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		return listRecentSessions(a)
	}
	sessionID := args[0]

	if statusWatch {
		return watchSession(cmd, a, sessionID)
	}

	report, err := a.executor.Status(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return err
	}
	printStatusReport(report)
	return nil
}

// listRecentSessions prints the session index, newest first.
func listRecentSessions(a *app) error {
	if a.index == nil {
		fmt.Println("No session index available.")
		return nil
	}
	sessions, err := a.index.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Run 'flynn delegate <task>' to start one.")
		return nil
	}

	fmt.Printf("Recent sessions:\n\n")
	for _, s := range sessions {
		fmt.Printf("  %s  %s  %s\n", s.ID, statusColor(s.Status), truncate(s.Task, 60))
	}
	fmt.Printf("\nRun 'flynn status <session-id>' for details.\n")
	return nil
}

func watchSession(cmd *cobra.Command, a *app, sessionID string) error {
	updates, err := a.store.WatchLiveStatus(cmd.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return err
	}
	for st := range updates {
		printLiveStatus(&st)
	}
	return nil
}

func printStatusReport(report *delegate.StatusReport) {
	fmt.Printf("Session: %s\n", report.SessionID)
	fmt.Printf("Status:  %s\n", statusColor(report.Effective))

	if report.Live != nil {
		printLiveStatus(report.Live)
	}
	if report.Handoff != nil {
		printTaskTable(report.Handoff)
	}
}

func printLiveStatus(st *session.LiveStatus) {
	line := fmt.Sprintf("[%s] %s", st.UpdatedAt.Local().Format("15:04:05"), statusColor(string(st.State)))
	if st.ChunkID != "" {
		line += fmt.Sprintf("  chunk %d/%d (group %d)", st.ChunkIndex+1, st.TotalChunks, st.Group+1)
	}
	if st.PID > 0 {
		line += fmt.Sprintf("  pid %d", st.PID)
	}
	if st.Message != "" {
		line += "  " + st.Message
	}
	fmt.Println(line)
}

func printTaskTable(f *handoff.File) {
	fmt.Printf("\nTasks (%d):\n", len(f.Tasks))
	for _, task := range f.Tasks {
		fmt.Printf("  %s %s\n", taskSymbol(task.Status), truncate(task.Description, 70))
		if task.Output != nil && task.Output.Summary != "" {
			fmt.Printf("      %s\n", truncate(task.Output.Summary, 76))
		}
		if task.Output != nil {
			for _, e := range task.Output.Errors {
				fmt.Printf("      %s %s\n", color.RedString("!"), truncate(e, 74))
			}
		}
	}
}

func taskSymbol(status handoff.TaskStatus) string {
	switch status {
	case handoff.TaskCompleted:
		return color.GreenString("✓")
	case handoff.TaskFailed:
		return color.RedString("✗")
	case handoff.TaskBlocked:
		return color.YellowString("⊘")
	case handoff.TaskInProgress:
		return color.CyanString("▶")
	default:
		return "·"
	}
}

func statusColor(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed", "timeout", "cancelled":
		return color.RedString(status)
	case "active", "running":
		return color.CyanString(status)
	case "paused", "blocked":
		return color.YellowString(status)
	default:
		return status
	}
}
