package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/chunker"
	"github.com/reze83/Flynn-Project-sub000/internal/config"
)

var (
	chunkJSON    bool
	chunkTimeout time.Duration
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <task>",
	Short: "Analyze a task and show the chunking plan without executing",
	Long: `Score a task's complexity and show how it would be decomposed.

Nothing is executed and nothing is persisted. Use this to preview what
'flynn delegate' would do with a task.

Examples:
  flynn chunk "implement auth.go and then add tests for it"
  flynn chunk "fix the typo in README.md" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "Emit the chunking result as JSON")
	chunkCmd.Flags().DurationVarP(&chunkTimeout, "timeout", "t", 0, "Timeout assumed for the decision (default from config)")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	timeout := chunkTimeout
	if timeout <= 0 {
		timeout = cfg.Delegate.Timeout
	}

	c := chunker.New(chunker.Config{
		ScoreThreshold:  cfg.Chunking.ScoreThreshold,
		TimeoutFraction: cfg.Chunking.TimeoutFraction,
		MinChunks:       cfg.Chunking.MinChunks,
		MaxChunks:       cfg.Chunking.MaxChunks,
	})
	result := c.Chunk(strings.Join(args, " "), timeout)

	if chunkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	analysis := result.Complexity
	fmt.Printf("Complexity: %s (score %d)\n", analysis.Level, analysis.Score)
	fmt.Printf("Estimated:  %.0f minute(s)\n", result.TotalEstimatedMinutes)
	for _, rec := range analysis.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}

	if !result.RequiresChunking {
		fmt.Printf("\n%s No chunking needed: %s\n", color.GreenString("✓"), result.Reason)
		return nil
	}

	fmt.Printf("\n%s Chunking recommended: %s\n", color.YellowString("→"), result.Reason)
	for gi, group := range result.ExecutionOrder {
		fmt.Printf("\nGroup %d:\n", gi+1)
		for _, id := range group {
			chunk := result.Chunk(id)
			if chunk == nil {
				continue
			}
			fmt.Printf("  [%s] %s\n", chunk.Complexity, chunk.Description)
			if len(chunk.Dependencies) > 0 {
				deps := make([]string, 0, len(chunk.Dependencies))
				for _, dep := range chunk.Dependencies {
					if d := result.Chunk(dep); d != nil {
						deps = append(deps, fmt.Sprintf("%q", truncate(d.Description, 40)))
					}
				}
				fmt.Printf("      after %s\n", strings.Join(deps, ", "))
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
