package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theauditor/auditor-core/internal/analytics"
)

var (
	verboseFlag bool
	debugFlag   bool
	// Version is stamped at build time via -ldflags; HEAD is the
	// development default when it is not.
	Version   = "0.1.0"
	GitCommit = "HEAD"
)

var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Multi-language static taint analyzer",
	Long: `auditor indexes a repository into a relational fact database, projects
those facts into a dataflow graph, and runs demand-driven taint analysis
over it to find source-to-sink vulnerabilities across a polyglot codebase.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		disableMetrics, _ := cmd.Flags().GetBool("disable-metrics") //nolint:all
		verboseFlag, _ = cmd.Flags().GetBool("verbose")             //nolint:all
		debugFlag, _ = cmd.Flags().GetBool("debug")                 //nolint:all
		analytics.LoadEnvFile()
		analytics.Init(disableMetrics)
		analytics.SetVersion(Version)
	},
}

// Execute runs the root command; main.go's only caller.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("disable-metrics", false, "Disable metrics collection")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "Trace-level output with elapsed timings")
}
