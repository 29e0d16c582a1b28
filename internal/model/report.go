package model

import "time"

// QualityReport summarizes one preparation run.
type QualityReport struct {
	MissingBefore int       `json:"missing_before" yaml:"missing_before"`
	MissingAfter  int       `json:"missing_after" yaml:"missing_after"`
	RowsProcessed int       `json:"rows_processed" yaml:"rows_processed"`
	ColumnsAdded  []string  `json:"columns_added" yaml:"columns_added"`
	GeneratedAt   time.Time `json:"generated_at" yaml:"generated_at"`
}

// Healthy reports whether the prepared dataset has no missing values.
func (r QualityReport) Healthy() bool {
	return r.MissingAfter == 0
}
