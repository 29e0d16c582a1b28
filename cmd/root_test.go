package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/devstats-cli/internal/dataset"
	"github.com/sells-group/devstats-cli/internal/model"
)

const testCSV = `country,continent,year,lifeExp,pop,gdpPercap
Chile,Americas,1957,56.074,7048426,4315.622723
Chad,Africa,1957,39.881,2894855,1308.495577
Chad,Africa,1952,38.092,2682462,1178.665927
Chile,Americas,1952,54.745,6377619,3939.978789
`

// resetFlags restores every flag to its default so commands can be
// executed repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI in a temp working directory holding a gapminder CSV.
func execute(t *testing.T, csv string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gapminder.csv"), []byte(csv), 0o644))

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"prepare", "query", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "devstats", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("source"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("source-format"))
}

func TestPrepareCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{"format": "csv", "output": "", "report-format": "text"} {
		flag := prepareCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "prepare should have --%s", name)
		assert.Equal(t, def, flag.DefValue)
	}
}

func TestQueryCommand_Flags(t *testing.T) {
	for _, name := range []string{"year", "entity", "region-mean", "population-share", "list", "format"} {
		assert.NotNil(t, queryCmd.Flags().Lookup(name), "query should have --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPrepare_CSVToStdout(t *testing.T) {
	out, errOut, err := execute(t, testCSV, "prepare")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "entity,year,population,life_expectancy,gdp_per_capita,region,gdp_total,decade,income_category,data_quality", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Chad,1952,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Chad,1957,"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "Chile,1952,"), lines[3])
	assert.Contains(t, lines[1], "Low Income,Complete")

	assert.Contains(t, errOut, "Rows processed:  4")
	assert.Contains(t, errOut, "healthy")
}

func TestPrepare_JSONToFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "prepared.json")
	_, errOut, err := execute(t, testCSV, "prepare", "--format", "json", "-o", outPath, "--report-format", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var records []model.Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 4)
	assert.Equal(t, "Chad", records[0].Entity)
	assert.Equal(t, 1950, records[0].Decade)

	var report model.QualityReport
	require.NoError(t, json.Unmarshal([]byte(errOut), &report))
	assert.Equal(t, 4, report.RowsProcessed)
	assert.Equal(t, model.DerivedFields, report.ColumnsAdded)
}

func TestPrepare_ValidationFailure(t *testing.T) {
	bad := testCSV + "Utopia,Atlantis,1960,70,-5,100\n"
	out, errOut, err := execute(t, bad, "prepare")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "1 validation issue(s)")
	assert.Contains(t, errOut, "population")
	assert.Contains(t, err.Error(), "1 invalid field(s) in 1 row(s)")
}

func TestPrepare_EmptyInput(t *testing.T) {
	_, _, err := execute(t, "country,continent,year,lifeExp,pop,gdpPercap\n", "prepare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty input")
}

func TestPrepare_BadFlags(t *testing.T) {
	_, _, err := execute(t, testCSV, "prepare", "--format", "parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format must be one of csv, json")

	_, _, err = execute(t, testCSV, "prepare", "--report-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--report-format")
}

func TestPrepare_SourceFlag(t *testing.T) {
	alt := filepath.Join(t.TempDir(), "other.tsv")
	require.NoError(t, os.WriteFile(alt, []byte("country\tcontinent\tyear\tlifeExp\tpop\tgdpPercap\nPeru\tAmericas\t1952\t43.9\t8025700\t3758.5\n"), 0o644))

	out, _, err := execute(t, testCSV, "prepare", "--source", alt)
	require.NoError(t, err)
	assert.Contains(t, out, "Peru,1952,")
	assert.NotContains(t, out, "Chad")
}

func TestQuery_FilterTable(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--year", "1952")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTITY")
	assert.Contains(t, out, "Chad")
	assert.Contains(t, out, "Chile")
	assert.NotContains(t, out, "1957")
}

func TestQuery_EntityJSON(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--entity", "Chile", "--format", "json")
	require.NoError(t, err)

	var records []model.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 1952, records[0].Year)
	assert.Equal(t, 1957, records[1].Year)
}

func TestQuery_YearZeroIsAFilter(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--year", "0", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestQuery_RegionMean(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--year", "1952", "--region-mean", "--format", "json")
	require.NoError(t, err)

	var means []dataset.RegionMean
	require.NoError(t, json.Unmarshal([]byte(out), &means))
	require.Len(t, means, 2)
	assert.Equal(t, "Africa", means[0].Region)
	assert.InDelta(t, 2682462.0, means[0].Population, 1e-6)

	out, _, err = execute(t, testCSV, "query", "--region-mean")
	require.NoError(t, err)
	assert.Contains(t, out, "REGION")
	assert.Contains(t, out, "Americas")
}

func TestQuery_PopulationShare(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--year", "1957", "--population-share")
	require.NoError(t, err)
	assert.Contains(t, out, "SHARE")
	assert.Contains(t, out, "Africa")
	assert.Contains(t, out, "%")
}

func TestQuery_List(t *testing.T) {
	out, _, err := execute(t, testCSV, "query", "--list", "entities")
	require.NoError(t, err)
	assert.Equal(t, "Chad\nChile\n", out)

	out, _, err = execute(t, testCSV, "query", "--list", "years", "--format", "json")
	require.NoError(t, err)
	var years []int
	require.NoError(t, json.Unmarshal([]byte(out), &years))
	assert.Equal(t, []int{1952, 1957}, years)

	_, _, err = execute(t, testCSV, "query", "--list", "continents")
	require.Error(t, err)
}

func TestQuery_MutuallyExclusive(t *testing.T) {
	_, _, err := execute(t, testCSV, "query", "--region-mean", "--population-share")
	require.Error(t, err)
}
