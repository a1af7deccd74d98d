package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Diagnose the delegate tool environment",
	Long: `Probe the delegate CLI environment and report what Flynn found.

Checks:
  - The delegate binary on PATH
  - The tool's own configuration (model, provider, approval mode)
  - Cloud credentials, when the configured provider needs them

Nothing is modified.`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.executor.Configure(cmd.Context())
	if err != nil {
		return err
	}

	if info.BinaryPath != "" {
		printCheck("✓", fmt.Sprintf("%s found at %s", a.cfg.Delegate.Binary, info.BinaryPath), color.FgGreen)
	} else {
		printCheck("✗", fmt.Sprintf("%s not found in PATH", a.cfg.Delegate.Binary), color.FgRed)
	}

	if info.Model != "" {
		printCheck("✓", fmt.Sprintf("model: %s", info.Model), color.FgGreen)
	} else {
		printCheck("⚠", "no model configured in the tool's config file", color.FgYellow)
	}
	if info.Provider != "" {
		printCheck("✓", fmt.Sprintf("provider: %s", info.Provider), color.FgGreen)
	}
	if info.ApprovalMode != "" {
		printCheck("✓", fmt.Sprintf("approval mode: %s", info.ApprovalMode), color.FgGreen)
	}

	if strings.Contains(strings.ToLower(info.Provider), "bedrock") {
		if info.BedrockCredentials {
			printCheck("✓", "AWS credentials resolve for Bedrock", color.FgGreen)
		} else {
			printCheck("✗", "Bedrock provider configured but AWS credentials do not resolve", color.FgRed)
		}
	}

	if a.cfg.Delegate.Model != "" {
		fmt.Printf("\nFlynn overrides the model per invocation: %s\n", a.cfg.Delegate.Model)
	}
	return nil
}

// printCheck prints a status line with color
func printCheck(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
