package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theauditor/auditor-core/internal/analytics"
	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/log"
	"github.com/theauditor/auditor-core/internal/pipeline"
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Walk a repository and build its relational fact database and dataflow graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]

		analytics.Report(analytics.IndexStarted, nil)

		cfg := config.Default(projectPath)
		cfg.LoadEnv()
		cfg.Debug = debugFlag

		verbosity := log.VerbosityDefault
		switch {
		case debugFlag:
			verbosity = log.VerbosityDebug
		case verboseFlag:
			verbosity = log.VerbosityVerbose
		}
		logger := log.New(verbosity)

		res, err := pipeline.Index(context.Background(), cfg, logger)
		if err != nil {
			analytics.Report(analytics.Fatal, map[string]interface{}{"phase": "index"})
			return err
		}

		analytics.Report(analytics.IndexCompleted, map[string]interface{}{
			"files_extracted": res.FilesExtracted,
			"files_skipped":   res.FilesSkipped,
		})

		fmt.Printf("indexed %d files (%d extracted, %d skipped) into %s\n",
			res.FilesWalked, res.FilesExtracted, res.FilesSkipped, cfg.OutputDir)
		if len(res.Findings) > 0 {
			fmt.Printf("%d extraction warnings; see manifest.json\n", len(res.Findings))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
