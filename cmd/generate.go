package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/server"
)

var (
	generateIntakeID string
	generateFull     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report for one intake form",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if d := runTimeout(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		env, err := initApp(ctx, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Run(ctx, generateIntakeID)
		if err != nil {
			return eris.Wrapf(err, "generate report for intake %s", generateIntakeID)
		}
		return writeReport(cmd.OutOrStdout(), report, generateFull)
	},
}

// writeReport prints the report id and timing, or the whole report when full
// is set.
func writeReport(w io.Writer, report *model.Report, full bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if full {
		return enc.Encode(report)
	}
	return enc.Encode(server.GenerateResponse{
		ReportID:         report.ID,
		GenerationTimeMs: report.Metadata.GenerationTimeMs,
	})
}

func init() {
	generateCmd.Flags().StringVar(&generateIntakeID, "intake", "", "intake form id")
	generateCmd.Flags().BoolVar(&generateFull, "full", false, "print the full report instead of its id")
	_ = generateCmd.MarkFlagRequired("intake")
	rootCmd.AddCommand(generateCmd)
}
