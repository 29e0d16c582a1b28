package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/devstats-cli/internal/model"
)

// ParseError reports a cell that is present but not a valid value for its field.
type ParseError struct {
	Line  int
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source: line %d: %s: cannot parse %q", e.Line, e.Field, e.Value)
}

// isMissing reports whether a cell is one of the accepted empty markers.
func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return true
	}
	return false
}

// parseFloatPtr parses s as a float, returning nil for missing markers.
func parseFloatPtr(s string) (*float64, bool) {
	if isMissing(s) {
		return nil, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// parseYearPtr parses s as a whole year. Spreadsheets may hand back "1952.0".
func parseYearPtr(s string) (*int, bool) {
	if isMissing(s) {
		return nil, true
	}
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return &v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, false
	}
	v := int(f)
	return &v, true
}

// cleanText trims s and maps missing markers to "".
func cleanText(s string) string {
	if isMissing(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// buildRecord converts the six field values of one row into a RawRecord.
func buildRecord(line int, get func(field string) string) (model.RawRecord, error) {
	rec := model.RawRecord{
		Entity: cleanText(get(model.FieldEntity)),
		Region: cleanText(get(model.FieldRegion)),
	}

	var ok bool
	if rec.Year, ok = parseYearPtr(get(model.FieldYear)); !ok {
		return rec, &ParseError{Line: line, Field: model.FieldYear, Value: get(model.FieldYear)}
	}
	floats := []struct {
		field string
		dst   **float64
	}{
		{model.FieldPopulation, &rec.Population},
		{model.FieldLifeExpectancy, &rec.LifeExpectancy},
		{model.FieldGDPPerCapita, &rec.GDPPerCapita},
	}
	for _, f := range floats {
		if *f.dst, ok = parseFloatPtr(get(f.field)); !ok {
			return rec, &ParseError{Line: line, Field: f.field, Value: get(f.field)}
		}
	}
	return rec, nil
}
