// Package prepare turns raw country-year observations into a derived,
// validated and deterministically ordered dataset plus a quality report.
package prepare

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/sells-group/devstats-cli/internal/dataset"
	"github.com/sells-group/devstats-cli/internal/model"
)

// Preparer runs the preparation pipeline. It holds no per-run state and is
// safe for concurrent use.
type Preparer struct {
	now func() time.Time
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithClock overrides the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(p *Preparer) {
		p.now = now
	}
}

// New creates a Preparer.
func New(opts ...Option) *Preparer {
	p := &Preparer{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPreparer = New()

// Prepare runs the pipeline with the wall clock.
func Prepare(raw []model.RawRecord) (*dataset.Dataset, model.QualityReport, error) {
	return defaultPreparer.Prepare(raw)
}

// Prepare validates raw, derives gdp_total, decade, income_category and
// data_quality for every record, and returns the records sorted by
// (entity, year) with input order breaking ties. raw is not modified.
//
// Any invalid row aborts the whole run with a *ValidationError; no partially
// derived dataset is ever returned.
func (p *Preparer) Prepare(raw []model.RawRecord) (*dataset.Dataset, model.QualityReport, error) {
	if len(raw) == 0 {
		return nil, model.QualityReport{}, ErrEmptyInput
	}

	missingBefore := 0
	for _, r := range raw {
		missingBefore += r.MissingCount()
	}

	if issues := Validate(raw); len(issues) > 0 {
		return nil, model.QualityReport{}, &ValidationError{Issues: issues}
	}

	records := make([]model.Record, len(raw))
	for i, r := range raw {
		records[i] = derive(r)
	}

	slices.SortStableFunc(records, func(a, b model.Record) int {
		if c := cmp.Compare(a.Entity, b.Entity); c != 0 {
			return c
		}
		return cmp.Compare(a.Year, b.Year)
	})

	missingAfter := 0
	for _, r := range records {
		missingAfter += r.MissingCount()
	}

	report := model.QualityReport{
		MissingBefore: missingBefore,
		MissingAfter:  missingAfter,
		RowsProcessed: len(records),
		ColumnsAdded:  slices.Clone(model.DerivedFields),
		GeneratedAt:   p.now(),
	}
	return dataset.New(records), report, nil
}

// derive computes the derived fields of an already validated record.
func derive(r model.RawRecord) model.Record {
	out := model.Record{
		Entity:       r.Entity,
		Year:         *r.Year,
		Population:   *r.Population,
		GDPPerCapita: *r.GDPPerCapita,
		Region:       r.Region,
		DataQuality:  model.DataQualityComplete,
	}
	if r.LifeExpectancy != nil {
		out.LifeExpectancy = model.Float64(*r.LifeExpectancy)
	}
	out.GDPTotal = out.GDPPerCapita * out.Population
	out.Decade = model.Decade(out.Year)
	out.IncomeCategory = model.ClassifyIncome(out.GDPPerCapita)
	return out
}

// Validate reports every field of raw that would block or corrupt a
// derivation. Missing life expectancy and region are allowed.
func Validate(raw []model.RawRecord) []Issue {
	var issues []Issue
	for i, r := range raw {
		add := func(field, reason string) {
			issues = append(issues, Issue{Row: i, Entity: r.Entity, Field: field, Reason: reason})
		}

		if r.Entity == "" {
			add(model.FieldEntity, "missing")
		}
		if r.Year == nil {
			add(model.FieldYear, "missing")
		}
		popOK, gdpOK := false, false
		switch {
		case r.Population == nil:
			add(model.FieldPopulation, "missing")
		case !finite(*r.Population) || *r.Population <= 0:
			add(model.FieldPopulation, "must be positive")
		default:
			popOK = true
		}
		switch {
		case r.GDPPerCapita == nil:
			add(model.FieldGDPPerCapita, "missing")
		case !finite(*r.GDPPerCapita) || *r.GDPPerCapita < 0:
			add(model.FieldGDPPerCapita, "must be non-negative")
		default:
			gdpOK = true
		}
		if popOK && gdpOK {
			total := *r.Population * *r.GDPPerCapita
			if !finite(total) {
				add(model.FieldGDPTotal, "overflows")
			}
		}
		if r.LifeExpectancy != nil && (!finite(*r.LifeExpectancy) || *r.LifeExpectancy <= 0) {
			add(model.FieldLifeExpectancy, "must be positive")
		}
	}
	return issues
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
