// Package export renders prepared records and quality reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/devstats-cli/internal/model"
)

// Report formats accepted by WriteReport.
const (
	ReportText = "text"
	ReportJSON = "json"
	ReportYAML = "yaml"
)

// ReportFormats lists the accepted report formats.
var ReportFormats = []string{ReportText, ReportJSON, ReportYAML}

// csvColumns is the raw fields followed by the derived ones.
var csvColumns = append(append([]string{}, model.RawFields...), model.DerivedFields...)

// WriteCSV writes records with a header row. Missing values are empty cells.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "export csv: write header")
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return eris.Wrap(err, "export csv: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export csv: flush")
}

func csvRow(r model.Record) []string {
	lifeExp := ""
	if r.LifeExpectancy != nil {
		lifeExp = formatFloat(*r.LifeExpectancy)
	}
	category := ""
	if r.IncomeCategory.Valid() {
		category = r.IncomeCategory.String()
	}

	return []string{
		r.Entity,                    // entity
		strconv.Itoa(r.Year),        // year
		formatFloat(r.Population),   // population
		lifeExp,                     // life_expectancy
		formatFloat(r.GDPPerCapita), // gdp_per_capita
		r.Region,                    // region
		formatFloat(r.GDPTotal),     // gdp_total
		strconv.Itoa(r.Decade),      // decade
		category,                    // income_category
		r.DataQuality,               // data_quality
	}
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteJSON writes records as an indented JSON array. A nil slice is
// written as [].
func WriteJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "export json: encode")
}

// WriteReport renders report as text, json or yaml.
func WriteReport(w io.Writer, report model.QualityReport, format string) error {
	switch strings.ToLower(format) {
	case "", ReportText:
		return writeReportText(w, report)
	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "export report: encode json")
	case ReportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "export report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export report: close yaml")
	default:
		return eris.Errorf("export report: unknown format %q (want %s)", format, strings.Join(ReportFormats, ", "))
	}
}

func writeReportText(out io.Writer, r model.QualityReport) error {
	status := "healthy"
	if !r.Healthy() {
		status = "incomplete"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Rows processed:\t%d\n", r.RowsProcessed)
	_, _ = fmt.Fprintf(w, "Missing before:\t%d\n", r.MissingBefore)
	_, _ = fmt.Fprintf(w, "Missing after:\t%d\n", r.MissingAfter)
	_, _ = fmt.Fprintf(w, "Columns added:\t%s\n", strings.Join(r.ColumnsAdded, ", "))
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", status)
	if !r.GeneratedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Generated at:\t%s\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	}
	return eris.Wrap(w.Flush(), "export report: write text")
}
