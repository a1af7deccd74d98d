package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/delegate"
)

var (
	delegateDir     string
	delegateContext string
	delegateTimeout time.Duration
	delegateNoChunk bool
)

var delegateCmd = &cobra.Command{
	Use:   "delegate <task>",
	Short: "Delegate a task to the external coding CLI",
	Long: `Delegate a task to the configured AI coding CLI.

Complex tasks are decomposed into chunks first; independent chunks run in
parallel and dependent chunks receive their predecessors' results. Every
run persists a session you can inspect with 'flynn status' and resume
with 'flynn resume'.

Examples:
  flynn delegate "fix the race in server.go"
  flynn delegate "implement auth.go and then add tests" --timeout 30m
  flynn delegate "refactor the parser" --dir ./subproject --no-chunk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelegate,
}

func init() {
	delegateCmd.Flags().StringVarP(&delegateDir, "dir", "d", "", "Working directory for the subprocess")
	delegateCmd.Flags().StringVar(&delegateContext, "context", "", "Project context recorded in the session memory")
	delegateCmd.Flags().DurationVarP(&delegateTimeout, "timeout", "t", 0, "Per-chunk timeout (default from config)")
	delegateCmd.Flags().BoolVar(&delegateNoChunk, "no-chunk", false, "Run the task as a single chunk regardless of complexity")
}

func runDelegate(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := CheckDelegateCLI(a.cfg.Delegate.Binary); err != nil {
		return err
	}

	task := strings.Join(args, " ")
	result, err := a.executor.Delegate(cmd.Context(), delegate.DelegateRequest{
		Task:           task,
		WorkingDir:     delegateDir,
		Context:        delegateContext,
		Timeout:        delegateTimeout,
		EnableChunking: !delegateNoChunk,
	})
	if err != nil {
		return err
	}

	printDelegateResult(result)
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func printDelegateResult(result *delegate.DelegateResult) {
	if result.Chunking != nil {
		fmt.Printf("Task split into %d chunk(s) over %d group(s): %s\n",
			len(result.Chunking.Chunks), len(result.Chunking.ExecutionOrder), result.Chunking.Reason)
	}

	if result.Success {
		fmt.Printf("%s Delegation completed (%d/%d chunks)\n",
			color.GreenString("✓"), result.CompletedChunks, result.TotalChunks)
	} else {
		fmt.Printf("%s Delegation failed (%d/%d chunks completed)\n",
			color.RedString("✗"), result.CompletedChunks, result.TotalChunks)
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if result.Summary != "" {
		fmt.Printf("\n%s\n", result.Summary)
	}

	fmt.Printf("\nSession: %s\n", result.SessionID)
	fmt.Printf("Log:     %s\n", result.LogFile)
	if result.Hint != "" {
		fmt.Printf("\n%s %s\n", color.YellowString("Hint:"), result.Hint)
	}
}
