package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/devstats-cli/internal/dataset"
	"github.com/sells-group/devstats-cli/internal/model"
	"github.com/sells-group/devstats-cli/internal/prepare"
	"github.com/sells-group/devstats-cli/internal/source"
)

// loadPrepared acquires the configured source and prepares it. Validation
// issues are written to errOut before the error is returned.
func loadPrepared(ctx context.Context, mode string, errOut io.Writer) (*dataset.Dataset, model.QualityReport, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, model.QualityReport{}, err
	}

	raw, err := source.Load(ctx, cfg.Source, source.NewFetchers(cfg))
	if err != nil {
		return nil, model.QualityReport{}, err
	}

	ds, report, err := prepare.Prepare(raw)
	if err != nil {
		var verr *prepare.ValidationError
		if errors.As(err, &verr) {
			printIssues(errOut, verr.Issues)
			return nil, model.QualityReport{}, eris.Errorf("prepare: %d invalid field(s) in %d row(s)", len(verr.Issues), len(verr.Rows()))
		}
		return nil, model.QualityReport{}, eris.Wrap(err, "prepare dataset")
	}

	zap.L().Info("dataset prepared",
		zap.Int("rows", report.RowsProcessed),
		zap.Int("missing_before", report.MissingBefore),
		zap.Int("missing_after", report.MissingAfter),
	)
	return ds, report, nil
}

// printIssues writes one line per validation issue.
func printIssues(out io.Writer, issues []prepare.Issue) {
	_, _ = fmt.Fprintf(out, "%d validation issue(s):\n", len(issues))
	for _, is := range issues {
		_, _ = fmt.Fprintf(out, "  %s\n", is)
	}
}
