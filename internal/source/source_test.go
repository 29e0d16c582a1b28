package source

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/devstats-cli/internal/config"
	"github.com/sells-group/devstats-cli/internal/fetcher"
	"github.com/sells-group/devstats-cli/internal/model"
)

const gapminderCSV = `country,continent,year,lifeExp,pop,gdpPercap,iso_alpha,iso_num
Afghanistan,Asia,1952,28.801,8425333,779.4453145,AFG,4
Afghanistan,Asia,1957,30.332,9240934,820.8530296,AFG,4
Albania,Europe,1952,55.23,1282697,1601.056136,ALB,8
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testFetchers() Fetchers {
	return Fetchers{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RatePerHost: 1000}),
		FTP:  fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
	}
}

func TestLoad_GapminderCSV(t *testing.T) {
	p := writeFile(t, "gapminder.csv", gapminderCSV)

	recs, err := Load(context.Background(), config.SourceConfig{Path: p, Format: "auto"}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, "Afghanistan", first.Entity)
	assert.Equal(t, "Asia", first.Region)
	require.NotNil(t, first.Year)
	assert.Equal(t, 1952, *first.Year)
	assert.InDelta(t, 8425333.0, *first.Population, 1e-9)
	assert.InDelta(t, 28.801, *first.LifeExpectancy, 1e-9)
	assert.InDelta(t, 779.4453145, *first.GDPPerCapita, 1e-9)
	assert.Zero(t, first.MissingCount())
}

func TestLoad_MissingMarkers(t *testing.T) {
	p := writeFile(t, "gapminder.csv", `country,continent,year,lifeExp,pop,gdpPercap
Chad,,1952,NA,2682462,1178.67
,Africa,1957,null,-,N/A
`)

	recs, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "", recs[0].Region)
	assert.Nil(t, recs[0].LifeExpectancy)
	assert.Equal(t, 2, recs[0].MissingCount())

	assert.Equal(t, "", recs[1].Entity)
	assert.Nil(t, recs[1].Population)
	assert.Nil(t, recs[1].GDPPerCapita)
	assert.Equal(t, 4, recs[1].MissingCount())
}

func TestLoad_ShortRowIsMissing(t *testing.T) {
	p := writeFile(t, "gapminder.csv", "country,continent,year,lifeExp,pop,gdpPercap\nChad,Africa,1952\n")

	recs, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].MissingCount())
}

func TestLoad_ParseError(t *testing.T) {
	p := writeFile(t, "gapminder.csv", `country,continent,year,lifeExp,pop,gdpPercap
Chad,Africa,1952,38.09,2682462,1178.67
Chile,Americas,nineteen,54.75,6377619,3939.98
`)

	_, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, "year", perr.Field)
	assert.Equal(t, "nineteen", perr.Value)
}

func TestLoad_MissingColumn(t *testing.T) {
	p := writeFile(t, "gapminder.csv", "country,year,pop,gdpPercap\nChad,1952,2682462,1178.67\n")

	_, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column(s) for life_expectancy, region")
}

func TestLoad_HeaderOnlyBadHeader(t *testing.T) {
	p := writeFile(t, "gapminder.csv", "country,year\n")

	_, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column(s)")
}

func TestLoad_HeaderOnly(t *testing.T) {
	p := writeFile(t, "gapminder.csv", "country,continent,year,lifeExp,pop,gdpPercap\n")

	recs, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLoad_ColumnOverrides(t *testing.T) {
	p := writeFile(t, "wdi.tsv", "Country Name\tWorld Region\tYear\tLife Exp (yrs)\tPopulation\tGDP pc\n"+
		"Chad\tAfrica\t1952\t38.09\t2682462\t1178.67\n")

	cfg := config.SourceConfig{
		Path: p,
		Columns: map[string]string{
			"region":          "World Region",
			"life_expectancy": "Life Exp (yrs)",
			"gdp_per_capita":  "GDP pc",
		},
	}
	recs, err := Load(context.Background(), cfg, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Chad", recs[0].Entity)
	assert.Equal(t, "Africa", recs[0].Region)
	assert.InDelta(t, 38.09, *recs[0].LifeExpectancy, 1e-9)
	assert.InDelta(t, 1178.67, *recs[0].GDPPerCapita, 1e-9)

	cfg.Columns = map[string]string{"gdp": "GDP pc"}
	_, err = Load(context.Background(), cfg, testFetchers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "gdp"`)
}

func TestLoad_Latin1(t *testing.T) {
	p := writeFile(t, "gapminder.csv", "country,continent,year,lifeExp,pop,gdpPercap\n"+
		"C\xf4te d'Ivoire,Africa,1952,40.477,2977019,1388.59\n")

	recs, err := Load(context.Background(), config.SourceConfig{Path: p, Encoding: "latin1"}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Côte d'Ivoire", recs[0].Entity)
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "gapminder.json", `[
  {"country": "Chad", "continent": "Africa", "year": 1952, "lifeExp": 38.092, "pop": 2682462, "gdpPercap": 1178.67},
  {"country": "Chile", "continent": "Americas", "year": "1957", "lifeExp": null, "pop": 7048426, "gdpPercap": 4315.62}
]`)

	recs, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1952, *recs[0].Year)
	assert.Equal(t, 1957, *recs[1].Year)
	assert.Nil(t, recs[1].LifeExpectancy)
	assert.Equal(t, "Americas", recs[1].Region)
}

func TestLoad_JSONBadValue(t *testing.T) {
	p := writeFile(t, "gapminder.json", `[{"country": "Chad", "continent": "Africa", "year": 1952, "lifeExp": true, "pop": 1, "gdpPercap": 1}]`)

	_, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "life_expectancy", perr.Field)
	assert.Equal(t, 1, perr.Line)
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("gapminder")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"country", "continent", "year", "lifeExp", "pop", "gdpPercap"},
		{"Norway", "Europe", "2007", "80.196", "4627926", "49357.19"},
	} {
		row := sheet.AddRow()
		for _, c := range rowData {
			row.AddCell().SetString(c)
		}
	}
	p := filepath.Join(t.TempDir(), "gapminder.xlsx")
	require.NoError(t, f.Save(p))

	recs, err := Load(context.Background(), config.SourceConfig{Path: p, Sheet: "gapminder"}, testFetchers())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Norway", recs[0].Entity)
	assert.Equal(t, 2007, *recs[0].Year)
}

func TestLoad_Zipped(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "gapminder.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(zf)
	fw, err := w.Create("gapminder/gapminder.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(gapminderCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, zf.Close())

	recs, err := Load(context.Background(), config.SourceConfig{Path: zipPath}, testFetchers())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/gapminder.csv", r.URL.Path)
		w.Write([]byte(gapminderCSV))
	}))
	defer srv.Close()

	recs, err := Load(context.Background(), config.SourceConfig{Path: srv.URL + "/data/gapminder.csv?v=2"}, testFetchers())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestLoad_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), config.SourceConfig{Path: srv.URL + "/gapminder.csv"}, testFetchers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SourceConfig
		want string
	}{
		{"missing file", config.SourceConfig{Path: filepath.Join(t.TempDir(), "nope.csv")}, "source: open"},
		{"unknown scheme", config.SourceConfig{Path: "s3://bucket/gapminder.csv"}, "unsupported scheme"},
		{"undetectable format", config.SourceConfig{Path: writeFile(t, "gapminder.dat", "x")}, "cannot detect format"},
		{"unsupported format", config.SourceConfig{Path: writeFile(t, "gapminder.csv", "x"), Format: "parquet"}, "unsupported format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.cfg, testFetchers())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"gapminder.csv", FormatCSV},
		{"data/GAPMINDER.TSV", FormatTSV},
		{"x.tab", FormatTSV},
		{"x.xlsx", FormatXLSX},
		{"https://example.com/export.json?token=abc", FormatJSON},
		{"ftp://ftp.example.org/pub/gapminder.csv", FormatCSV},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := DetectFormat("gapminder")
	assert.Error(t, err)
}

func TestNewFetchers(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.TimeoutSecs = 10
	cfg.HTTP.RateLimit = 2
	cfg.FTP.TimeoutSecs = 5

	f := NewFetchers(cfg)
	assert.NotNil(t, f.HTTP)
	assert.NotNil(t, f.FTP)
}

func TestMaterialize_NoFetcher(t *testing.T) {
	_, err := materialize(context.Background(), "ftp://ftp.example.org/gapminder.csv", Fetchers{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher configured")
}

func TestRecordRoundTrip(t *testing.T) {
	// The loaded records prepare cleanly: required fields all present.
	p := writeFile(t, "gapminder.csv", gapminderCSV)
	recs, err := Load(context.Background(), config.SourceConfig{Path: p}, testFetchers())
	require.NoError(t, err)
	for _, r := range recs {
		assert.Equal(t, 0, r.MissingCount())
		assert.IsType(t, model.RawRecord{}, r)
	}
}
