package source

import (
	"slices"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/devstats-cli/internal/model"
)

// fieldAliases lists the normalized headers recognized for each record field.
// The first alias matches the gapminder export.
var fieldAliases = map[string][]string{
	model.FieldEntity:         {"country", "entity", "countryname", "name"},
	model.FieldYear:           {"year"},
	model.FieldPopulation:     {"pop", "population"},
	model.FieldLifeExpectancy: {"lifeexp", "lifeexpectancy"},
	model.FieldGDPPerCapita:   {"gdppercap", "gdppercapita"},
	model.FieldRegion:         {"continent", "region"},
}

// normalizeHeader lowercases s and drops everything but letters and digits.
// "gdpPercap" -> "gdppercap", "Life Expectancy" -> "lifeexpectancy".
func normalizeHeader(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// headerNames returns the normalized names accepted for field, honoring an override.
func headerNames(field string, overrides map[string]string) []string {
	if h, ok := overrides[field]; ok && strings.TrimSpace(h) != "" {
		return []string{normalizeHeader(h)}
	}
	return fieldAliases[field]
}

func checkOverrides(overrides map[string]string) error {
	for field := range overrides {
		if !slices.Contains(model.RawFields, field) {
			return eris.Errorf("source: unknown field %q in column overrides", field)
		}
	}
	return nil
}

// columnMap maps each record field to its column index.
type columnMap map[string]int

// mapColumns resolves every record field against header. All six fields
// must be present.
func mapColumns(header []string, overrides map[string]string) (columnMap, error) {
	if err := checkOverrides(overrides); err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		n := normalizeHeader(col)
		if _, dup := idx[n]; !dup {
			idx[n] = i
		}
	}

	cols := make(columnMap, len(model.RawFields))
	var missing []string
	for _, field := range model.RawFields {
		found := false
		for _, name := range headerNames(field, overrides) {
			if i, ok := idx[name]; ok {
				cols[field] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("source: missing column(s) for %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// value returns the cell for field, or "" when the row is short.
func (c columnMap) value(fields []string, field string) string {
	i := c[field]
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
