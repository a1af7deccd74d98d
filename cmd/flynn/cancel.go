package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Request cancellation of a running session",
	Long: `Write the session's cancel signal. The executor polls for it and
kills the in-flight subprocess; chunks that already completed keep their
results, so the session can be resumed later.

Examples:
  flynn cancel 4f7c2e1a-...`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := args[0]
	if _, err := os.Stat(a.store.SessionDir(sessionID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return err
	}

	if err := a.store.RequestCancel(sessionID); err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	fmt.Printf("%s Cancellation requested for session %s\n", color.YellowString("⊘"), sessionID)
	fmt.Println("The running chunk will stop at its next cancel check.")
	return nil
}
