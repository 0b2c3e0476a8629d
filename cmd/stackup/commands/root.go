// Package commands implements the stackup CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackup",
		Short: "stackup - AI ecosystem host provisioning orchestrator",
		Long: `stackup provisions a cloud VM for the AI application stack: workflow
engine, customer-messaging platform, chat interface, and the bridge
integration service.

It runs a fixed, ordered pipeline of idempotent steps: host preparation,
storage and swap configuration, secret resolution, configuration rendering,
and dependency-ordered service launch. Re-running on a partially provisioned
host is safe; already-satisfied steps are skipped.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newProvisionCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
