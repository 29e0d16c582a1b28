package dataset

import (
	"slices"
	"strings"

	"github.com/sells-group/devstats-cli/internal/model"
)

// RegionMean holds the mean of each numeric field for one region.
type RegionMean struct {
	Region         string   `json:"region"`
	Count          int      `json:"count"`
	Population     float64  `json:"population"`
	LifeExpectancy *float64 `json:"life_expectancy"`
	GDPPerCapita   float64  `json:"gdp_per_capita"`
	GDPTotal       float64  `json:"gdp_total"`
}

// RegionShare holds a region's summed population and its share of the total.
type RegionShare struct {
	Region     string  `json:"region"`
	Population float64 `json:"population"`
	Share      float64 `json:"share"`
}

type regionAcc struct {
	count      int
	population float64
	gdpPerCap  float64
	gdpTotal   float64
	lifeSum    float64
	lifeCount  int
}

// MeanByRegion groups records by region and averages the numeric fields.
// Records without a region are skipped; missing life expectancies are
// excluded from that field's mean only. Results are ordered by region.
func MeanByRegion(records []model.Record) []RegionMean {
	groups := make(map[string]*regionAcc)
	for _, r := range records {
		if r.Region == "" {
			continue
		}
		acc, ok := groups[r.Region]
		if !ok {
			acc = &regionAcc{}
			groups[r.Region] = acc
		}
		acc.count++
		acc.population += r.Population
		acc.gdpPerCap += r.GDPPerCapita
		acc.gdpTotal += r.GDPTotal
		if r.LifeExpectancy != nil {
			acc.lifeSum += *r.LifeExpectancy
			acc.lifeCount++
		}
	}

	out := make([]RegionMean, 0, len(groups))
	for region, acc := range groups {
		n := float64(acc.count)
		m := RegionMean{
			Region:       region,
			Count:        acc.count,
			Population:   acc.population / n,
			GDPPerCapita: acc.gdpPerCap / n,
			GDPTotal:     acc.gdpTotal / n,
		}
		if acc.lifeCount > 0 {
			m.LifeExpectancy = model.Float64(acc.lifeSum / float64(acc.lifeCount))
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b RegionMean) int {
		return strings.Compare(a.Region, b.Region)
	})
	return out
}

// PopulationShare sums population per region and reports each region's
// fraction of the grand total. Records without a region are skipped.
func PopulationShare(records []model.Record) []RegionShare {
	sums := make(map[string]float64)
	var total float64
	for _, r := range records {
		if r.Region == "" {
			continue
		}
		sums[r.Region] += r.Population
		total += r.Population
	}

	out := make([]RegionShare, 0, len(sums))
	for region, pop := range sums {
		s := RegionShare{Region: region, Population: pop}
		if total > 0 {
			s.Share = pop / total
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b RegionShare) int {
		return strings.Compare(a.Region, b.Region)
	})
	return out
}
