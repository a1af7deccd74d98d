package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	cleanupRetention time.Duration
	cleanupDryRun    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove sessions older than the retention window",
	Long: `Purge old session directories and their index rows.

The retention window comes from configuration (sessions.retention,
default 720h) unless overridden with --retention.

Examples:
  flynn cleanup
  flynn cleanup --retention 168h
  flynn cleanup --dry-run`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupRetention, "retention", 0, "Override the retention window")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	retention := cleanupRetention
	if retention <= 0 {
		retention = a.cfg.Sessions.Retention
	}

	if cleanupDryRun {
		if a.index == nil {
			fmt.Println("No session index available.")
			return nil
		}
		sessions, err := a.index.ListSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		cutoff := time.Now().Add(-retention)
		count := 0
		for _, s := range sessions {
			if s.StartedAt.Before(cutoff) {
				count++
			}
		}
		fmt.Printf("Dry run: would purge %d session(s) older than %s.\n", count, retention)
		return nil
	}

	purged, err := a.executor.Cleanup(retention)
	if err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}
	if purged > 0 {
		fmt.Printf("Purged %d session(s) older than %s.\n", purged, retention)
	} else {
		fmt.Printf("No sessions older than %s found.\n", retention)
	}
	return nil
}
