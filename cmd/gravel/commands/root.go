package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gravel",
		Short: "Gravel - Incremental Build Analysis Engine",
		Long: `Gravel analyzes build targets over an incremental, memoized node graph.

Features:
  - Parallel demand-driven evaluation with restart-based suspension
  - Configurable attributes resolved against named configurations
  - Per-target error attribution (direct vs. transitive failures)
  - Persistent evaluation history backed by SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
