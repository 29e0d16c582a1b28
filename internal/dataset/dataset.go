// Package dataset provides read-only queries over a prepared, (entity, year)
// ordered set of records.
package dataset

import (
	"cmp"
	"slices"

	"github.com/sells-group/devstats-cli/internal/model"
)

// Dataset is an immutable prepared dataset. Accessors return copies so a
// single handle can be shared across goroutines.
type Dataset struct {
	records []model.Record
}

// New wraps records, which must already be sorted by (entity, year).
// The slice is copied.
func New(records []model.Record) *Dataset {
	return &Dataset{records: slices.Clone(records)}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in dataset order.
func (d *Dataset) Records() []model.Record {
	return cloneRecords(d.records)
}

// FilterYear returns the records observed in year, in dataset order.
func (d *Dataset) FilterYear(year int) []model.Record {
	var out []model.Record
	for _, r := range d.records {
		if r.Year == year {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

// FilterEntity returns every record of entity, ordered by year.
func (d *Dataset) FilterEntity(entity string) []model.Record {
	lo, hi := d.EntityRange(entity)
	return cloneRecords(d.records[lo:hi])
}

// Filter applies optional year and entity filters. A nil year or empty
// entity leaves that dimension unfiltered.
func (d *Dataset) Filter(year *int, entity string) []model.Record {
	var src []model.Record
	if entity != "" {
		lo, hi := d.EntityRange(entity)
		src = d.records[lo:hi]
	} else {
		src = d.records
	}
	var out []model.Record
	for _, r := range src {
		if year != nil && r.Year != *year {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	return out
}

// EntityRange returns the half-open index range [lo, hi) holding entity's
// records. lo == hi when the entity is absent.
func (d *Dataset) EntityRange(entity string) (int, int) {
	lo, _ := slices.BinarySearchFunc(d.records, entity, func(r model.Record, e string) int {
		return cmp.Compare(r.Entity, e)
	})
	hi := lo
	for hi < len(d.records) && d.records[hi].Entity == entity {
		hi++
	}
	return lo, hi
}

// Entities returns the distinct entities in ascending order.
func (d *Dataset) Entities() []string {
	var out []string
	for i, r := range d.records {
		if i == 0 || r.Entity != d.records[i-1].Entity {
			out = append(out, r.Entity)
		}
	}
	return out
}

// Years returns the distinct observation years in ascending order.
func (d *Dataset) Years() []int {
	seen := make(map[int]struct{})
	for _, r := range d.records {
		seen[r.Year] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}

// YearRange returns the first and last observation year. ok is false for
// an empty dataset.
func (d *Dataset) YearRange() (minYear, maxYear int, ok bool) {
	years := d.Years()
	if len(years) == 0 {
		return 0, 0, false
	}
	return years[0], years[len(years)-1], true
}

// Regions returns the distinct non-empty regions in ascending order.
func (d *Dataset) Regions() []string {
	seen := make(map[string]struct{})
	for _, r := range d.records {
		if r.Region != "" {
			seen[r.Region] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for region := range seen {
		out = append(out, region)
	}
	slices.Sort(out)
	return out
}

func cloneRecords(in []model.Record) []model.Record {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Record, len(in))
	for i, r := range in {
		out[i] = cloneRecord(r)
	}
	return out
}

// cloneRecord detaches the LifeExpectancy pointer from the dataset's copy.
func cloneRecord(r model.Record) model.Record {
	if r.LifeExpectancy != nil {
		r.LifeExpectancy = model.Float64(*r.LifeExpectancy)
	}
	return r
}
