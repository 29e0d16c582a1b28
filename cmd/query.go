package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/devstats-cli/internal/dataset"
	"github.com/sells-group/devstats-cli/internal/model"
)

var (
	queryYear            int
	queryEntity          string
	queryRegionMean      bool
	queryPopulationShare bool
	queryList            string
	queryFormat          string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter the prepared dataset or summarize it by region",
	Example: `  devstats query --year 2007 --region-mean
  devstats query --entity Chile --format json
  devstats query --list regions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkChoice("format", queryFormat, "table", "csv", "json"); err != nil {
			return err
		}
		format := strings.ToLower(queryFormat)
		list := strings.ToLower(queryList)
		if list != "" {
			if err := checkChoice("list", list, "entities", "years", "regions"); err != nil {
				return err
			}
		}

		ds, _, err := loadPrepared(cmd.Context(), "prepare", cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if list != "" {
			return writeList(out, ds, list, format == "json")
		}

		var year *int
		if cmd.Flags().Changed("year") {
			year = &queryYear
		}
		records := ds.Filter(year, strings.TrimSpace(queryEntity))

		switch {
		case queryRegionMean:
			means := dataset.MeanByRegion(records)
			if format == "json" {
				return writeJSONValue(out, means)
			}
			formatRegionMeans(out, means)
		case queryPopulationShare:
			shares := dataset.PopulationShare(records)
			if format == "json" {
				return writeJSONValue(out, shares)
			}
			formatPopulationShares(out, shares)
		default:
			if format == "table" {
				formatRecords(out, records)
				return nil
			}
			return writeRecords(out, records, format)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryYear, "year", 0, "only records observed in this year")
	queryCmd.Flags().StringVar(&queryEntity, "entity", "", "only records of this entity")
	queryCmd.Flags().BoolVar(&queryRegionMean, "region-mean", false, "print per-region means of the numeric fields")
	queryCmd.Flags().BoolVar(&queryPopulationShare, "population-share", false, "print each region's share of total population")
	queryCmd.Flags().StringVar(&queryList, "list", "", "list distinct values: entities, years or regions")
	queryCmd.Flags().StringVar(&queryFormat, "format", "table", "output format: table, csv or json (csv applies to records only)")
	queryCmd.MarkFlagsMutuallyExclusive("region-mean", "population-share", "list")
	rootCmd.AddCommand(queryCmd)
}

func writeList(out io.Writer, ds *dataset.Dataset, kind string, asJSON bool) error {
	var values []string
	switch kind {
	case "entities":
		values = ds.Entities()
	case "regions":
		values = ds.Regions()
	case "years":
		years := ds.Years()
		if asJSON {
			return writeJSONValue(out, years)
		}
		for _, y := range years {
			values = append(values, strconv.Itoa(y))
		}
	}
	if asJSON {
		if values == nil {
			values = []string{}
		}
		return writeJSONValue(out, values)
	}
	for _, v := range values {
		_, _ = fmt.Fprintln(out, v)
	}
	return nil
}

// formatRecords writes a tabular list of records to w.
func formatRecords(out io.Writer, records []model.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTITY\tYEAR\tREGION\tPOPULATION\tLIFE_EXP\tGDP_PER_CAP\tINCOME")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t----------\t--------\t-----------\t------")

	for _, r := range records {
		lifeExp := "-"
		if r.LifeExpectancy != nil {
			lifeExp = fmt.Sprintf("%.1f", *r.LifeExpectancy)
		}
		region := r.Region
		if region == "" {
			region = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%.0f\t%s\t%.2f\t%s\n",
			r.Entity,
			r.Year,
			region,
			r.Population,
			lifeExp,
			r.GDPPerCapita,
			r.IncomeCategory,
		)
	}
	_ = w.Flush()
}

// formatRegionMeans writes per-region means to w.
func formatRegionMeans(out io.Writer, means []dataset.RegionMean) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REGION\tROWS\tPOPULATION\tLIFE_EXP\tGDP_PER_CAP\tGDP_TOTAL")
	_, _ = fmt.Fprintln(w, "------\t----\t----------\t--------\t-----------\t---------")

	for _, m := range means {
		lifeExp := "-"
		if m.LifeExpectancy != nil {
			lifeExp = fmt.Sprintf("%.2f", *m.LifeExpectancy)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.0f\t%s\t%.2f\t%.0f\n",
			m.Region, m.Count, m.Population, lifeExp, m.GDPPerCapita, m.GDPTotal)
	}
	_ = w.Flush()
}

// formatPopulationShares writes each region's population and share to w.
func formatPopulationShares(out io.Writer, shares []dataset.RegionShare) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REGION\tPOPULATION\tSHARE")
	_, _ = fmt.Fprintln(w, "------\t----------\t-----")

	for _, s := range shares {
		_, _ = fmt.Fprintf(w, "%s\t%.0f\t%.2f%%\n", s.Region, s.Population, s.Share*100)
	}
	_ = w.Flush()
}

// writeJSONValue writes v as indented JSON.
func writeJSONValue(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "query: encode json")
}
