package main

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/devstats-cli/internal/export"
	"github.com/sells-group/devstats-cli/internal/model"
)

var (
	prepareFormat       string
	prepareOutput       string
	prepareReportFormat string
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Validate the source, derive fields and write the prepared dataset",
	Long:  "Writes the prepared records (CSV or JSON) to --output or stdout, and the quality report to stderr.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkChoice("format", prepareFormat, "csv", "json"); err != nil {
			return err
		}
		if err := checkChoice("report-format", prepareReportFormat, export.ReportFormats...); err != nil {
			return err
		}

		ds, report, err := loadPrepared(cmd.Context(), "prepare", cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if prepareOutput != "" && prepareOutput != "-" {
			f, err := os.Create(prepareOutput)
			if err != nil {
				return eris.Wrap(err, "prepare: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := writeRecords(out, ds.Records(), prepareFormat); err != nil {
			return err
		}
		if prepareOutput != "" && prepareOutput != "-" {
			zap.L().Info("prepared dataset written", zap.String("path", prepareOutput), zap.Int("records", ds.Len()))
		}

		return export.WriteReport(cmd.ErrOrStderr(), report, prepareReportFormat)
	},
}

func init() {
	prepareCmd.Flags().StringVar(&prepareFormat, "format", "csv", "output format: csv or json")
	prepareCmd.Flags().StringVarP(&prepareOutput, "output", "o", "", "output file (default stdout)")
	prepareCmd.Flags().StringVar(&prepareReportFormat, "report-format", export.ReportText, "quality report format: text, json or yaml")
	rootCmd.AddCommand(prepareCmd)
}

func writeRecords(w io.Writer, records []model.Record, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return export.WriteJSON(w, records)
	default:
		return export.WriteCSV(w, records)
	}
}

// checkChoice rejects a flag value outside choices.
func checkChoice(flag, value string, choices ...string) error {
	v := strings.ToLower(value)
	for _, c := range choices {
		if v == c {
			return nil
		}
	}
	return eris.Errorf("--%s must be one of %s, got %q", flag, strings.Join(choices, ", "), value)
}
