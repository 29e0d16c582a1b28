// Package model defines the country-year records and the quality report
// produced by a preparation run.
package model

// DataQualityComplete marks a record that went through preparation.
const DataQualityComplete = "Complete"

// Field names as they appear in exports and validation issues.
const (
	FieldEntity         = "entity"
	FieldYear           = "year"
	FieldPopulation     = "population"
	FieldLifeExpectancy = "life_expectancy"
	FieldGDPPerCapita   = "gdp_per_capita"
	FieldRegion         = "region"
	FieldGDPTotal       = "gdp_total"
	FieldDecade         = "decade"
	FieldIncomeCategory = "income_category"
	FieldDataQuality    = "data_quality"
)

// RawFields lists the fields a raw record supplies, in export order.
var RawFields = []string{
	FieldEntity,
	FieldYear,
	FieldPopulation,
	FieldLifeExpectancy,
	FieldGDPPerCapita,
	FieldRegion,
}

// DerivedFields lists the fields added during preparation, in the order they are added.
var DerivedFields = []string{
	FieldGDPTotal,
	FieldDecade,
	FieldIncomeCategory,
	FieldDataQuality,
}

// RawRecord is one country-year observation as acquired from a source.
// Empty strings and nil pointers mark missing values.
type RawRecord struct {
	Entity         string   `json:"entity"`
	Year           *int     `json:"year"`
	Population     *float64 `json:"population"`
	LifeExpectancy *float64 `json:"life_expectancy"`
	GDPPerCapita   *float64 `json:"gdp_per_capita"`
	Region         string   `json:"region"`
}

// MissingCount returns the number of absent fields in r.
func (r RawRecord) MissingCount() int {
	n := 0
	if r.Entity == "" {
		n++
	}
	if r.Year == nil {
		n++
	}
	if r.Population == nil {
		n++
	}
	if r.LifeExpectancy == nil {
		n++
	}
	if r.GDPPerCapita == nil {
		n++
	}
	if r.Region == "" {
		n++
	}
	return n
}

// Record is a fully prepared observation. LifeExpectancy and Region are
// carried through as acquired and may still be missing.
type Record struct {
	Entity         string         `json:"entity"`
	Year           int            `json:"year"`
	Population     float64        `json:"population"`
	LifeExpectancy *float64       `json:"life_expectancy"`
	GDPPerCapita   float64        `json:"gdp_per_capita"`
	Region         string         `json:"region"`
	GDPTotal       float64        `json:"gdp_total"`
	Decade         int            `json:"decade"`
	IncomeCategory IncomeCategory `json:"income_category"`
	DataQuality    string         `json:"data_quality"`
}

// MissingCount returns the number of absent fields in r, derived fields included.
func (r Record) MissingCount() int {
	n := 0
	if r.Entity == "" {
		n++
	}
	if r.LifeExpectancy == nil {
		n++
	}
	if r.Region == "" {
		n++
	}
	if !r.IncomeCategory.Valid() {
		n++
	}
	if r.DataQuality == "" {
		n++
	}
	return n
}

// Decade returns floor(year/10)*10, rounding toward negative infinity.
func Decade(year int) int {
	d := year / 10
	if year%10 != 0 && year < 0 {
		d--
	}
	return d * 10
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
