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

var taintCmd = &cobra.Command{
	Use:   "taint",
	Short: "Run demand-driven taint analysis against the last `auditor index` run",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath, _ := cmd.Flags().GetString("project")
		if projectPath == "" {
			projectPath = "."
		}

		analytics.Report(analytics.TaintStarted, nil)

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

		res, err := pipeline.Taint(context.Background(), cfg, logger)
		if err != nil {
			analytics.Report(analytics.Fatal, map[string]interface{}{"phase": "taint"})
			return err
		}

		analytics.Report(analytics.TaintCompleted, map[string]interface{}{
			"vulnerable": res.Vulnerable,
			"sanitized":  res.Sanitized,
		})

		fmt.Printf("taint analysis: %d vulnerable, %d sanitized findings; %d forward flow paths recorded\n",
			res.Vulnerable, res.Sanitized, res.FlowPaths)
		return nil
	},
}

func init() {
	taintCmd.Flags().String("project", ".", "project root analyzed by a prior `auditor index` run")
	rootCmd.AddCommand(taintCmd)
}
