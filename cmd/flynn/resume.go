package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/session"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume an interrupted session",
	Long: `Re-delegate the first task in a session that is still pending or in
progress. Completed tasks are never retried; their results feed the
resumed task's context instead.

Examples:
  flynn resume 4f7c2e1a-...`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := CheckDelegateCLI(a.cfg.Delegate.Binary); err != nil {
		return err
	}

	result, err := a.executor.Resume(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", args[0])
		}
		return err
	}

	if result.TaskID == "" {
		fmt.Printf("%s %s\n", color.GreenString("✓"), result.Summary)
		return nil
	}
	if result.Success {
		fmt.Printf("%s Task %s completed\n", color.GreenString("✓"), result.TaskID)
	} else {
		fmt.Printf("%s Task %s failed\n", color.RedString("✗"), result.TaskID)
	}
	if result.Summary != "" {
		fmt.Printf("\n%s\n", result.Summary)
	}
	if result.Hint != "" {
		fmt.Printf("\n%s %s\n", color.YellowString("Hint:"), result.Hint)
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
