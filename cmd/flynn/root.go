package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/config"
	"github.com/reze83/Flynn-Project-sub000/internal/delegate"
	"github.com/reze83/Flynn-Project-sub000/internal/policy"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
)

// CheckDelegateCLI verifies that the configured delegate CLI is available
// in PATH. Returns an error with setup instructions if not found.
func CheckDelegateCLI(binary string) error {
	_, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s CLI not found in PATH\n\n"+
			"Flynn delegates task execution to an AI coding CLI.\n\n"+
			"Install the tool, or point Flynn at a different one:\n"+
			"  flynn config delegate.binary <name>\n\n"+
			"Run 'flynn configure' to diagnose the delegate environment.", binary)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "flynn",
	Short: "Task Decomposition & Delegated Execution Engine",
	Long: `Flynn decomposes complex tasks into delegable chunks, schedules them
by dependency, and executes each chunk through an external AI coding CLI.

Core capabilities:
- Scores task complexity from the task text alone
- Splits complex tasks into dependency-ordered chunks
- Runs independent chunks in parallel, dependents with carried context
- Persists every session as a versioned handoff record
- Resumes interrupted sessions without retrying completed work`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles the wired executor with the handles the commands need.
type app struct {
	cfg      *config.Config
	store    *session.Store
	index    *session.Index
	executor *delegate.Executor
}

func (a *app) Close() {
	if a.index != nil {
		a.index.Close()
	}
}

// buildApp loads configuration and wires the executor stack. A session
// index that fails to open degrades to nil rather than blocking the run.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root := cfg.Sessions.Dir
	if root == "" {
		root = session.DefaultRoot()
	}
	store, err := session.NewStore(root)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	index, err := session.OpenIndex(session.IndexPath(root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session index unavailable: %v\n", err)
		index = nil
	}

	rules, err := policy.LoadRules(cfg.Policy.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load policy rules: %w", err)
	}
	gate := policy.NewEngine(rules)

	return &app{
		cfg:      cfg,
		store:    store,
		index:    index,
		executor: delegate.NewExecutor(cfg, store, index, gate, nil),
	}, nil
}
