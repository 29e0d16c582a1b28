// Package source acquires raw country-year records from a local file or an
// HTTP(S)/FTP URL, in CSV, TSV, XLSX or JSON form, optionally zipped.
package source

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/devstats-cli/internal/config"
	"github.com/sells-group/devstats-cli/internal/fetcher"
	"github.com/sells-group/devstats-cli/internal/model"
)

// Format identifies how a source file is encoded.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var extFormats = map[string]Format{
	".csv":  FormatCSV,
	".tsv":  FormatTSV,
	".tab":  FormatTSV,
	".xlsx": FormatXLSX,
	".json": FormatJSON,
}

// dataExts are the extensions searched for inside a zip archive.
var dataExts = []string{".csv", ".tsv", ".tab", ".xlsx", ".json"}

// Fetchers holds the remote downloaders, keyed by URL scheme family.
type Fetchers struct {
	HTTP fetcher.Fetcher
	FTP  fetcher.Fetcher
}

// NewFetchers builds HTTP and FTP fetchers from configuration.
func NewFetchers(cfg *config.Config) Fetchers {
	return Fetchers{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:   cfg.HTTP.UserAgent,
			Timeout:     time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
			MaxRetries:  cfg.HTTP.MaxRetries,
			RatePerHost: rate.Limit(cfg.HTTP.RateLimit),
		}),
		FTP: fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.FTP.TimeoutSecs) * time.Second,
		}),
	}
}

// DetectFormat picks a format from the file extension of location, which
// may be a path or URL.
func DetectFormat(location string) (Format, error) {
	name := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(path.Ext(name))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	return "", eris.Errorf("source: cannot detect format of %q; set source.format", location)
}

// Load acquires the raw records described by cfg. Remote sources are
// downloaded to a temporary directory that is removed before returning.
func Load(ctx context.Context, cfg config.SourceConfig, f Fetchers) ([]model.RawRecord, error) {
	tmpDir, err := os.MkdirTemp("", "devstats-*")
	if err != nil {
		return nil, eris.Wrap(err, "source: create temp dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	local, err := materialize(ctx, cfg.Path, f, tmpDir)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		local, err = fetcher.ExtractZIPData(local, tmpDir, dataExts)
		if err != nil {
			return nil, eris.Wrapf(err, "source: unpack %s", cfg.Path)
		}
	}

	format := Format(strings.ToLower(cfg.Format))
	if format == "" || format == FormatAuto {
		if format, err = DetectFormat(local); err != nil {
			return nil, err
		}
	}

	var records []model.RawRecord
	switch format {
	case FormatCSV:
		records, err = readDelimited(ctx, local, ',', cfg)
	case FormatTSV:
		records, err = readDelimited(ctx, local, '\t', cfg)
	case FormatXLSX:
		records, err = readXLSX(local, cfg)
	case FormatJSON:
		records, err = readJSON(ctx, local, cfg)
	default:
		return nil, eris.Errorf("source: unsupported format %q", format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: load %s", cfg.Path)
	}

	zap.L().Info("source loaded",
		zap.String("path", cfg.Path),
		zap.String("format", string(format)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// materialize returns a local path for location, downloading remote
// sources into dir.
func materialize(ctx context.Context, location string, f Fetchers, dir string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 { // "C:\..." parses with scheme "c"
		if _, statErr := os.Stat(location); statErr != nil {
			return "", eris.Wrapf(statErr, "source: open %s", location)
		}
		return location, nil
	}

	var dl fetcher.Fetcher
	switch u.Scheme {
	case "http", "https":
		dl = f.HTTP
	case "ftp":
		dl = f.FTP
	case "file":
		return u.Path, nil
	default:
		return "", eris.Errorf("source: unsupported scheme %q", u.Scheme)
	}
	if dl == nil {
		return "", eris.Errorf("source: no fetcher configured for %s", u.Scheme)
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "download"
	}
	dest := filepath.Join(dir, base)

	zap.L().Info("downloading source", zap.String("url", location))
	n, err := dl.DownloadToFile(ctx, location, dest)
	if err != nil {
		return "", eris.Wrapf(err, "source: download %s", location)
	}
	zap.L().Debug("source downloaded", zap.String("url", location), zap.Int64("bytes", n))
	return dest, nil
}

func readDelimited(ctx context.Context, p string, delim rune, cfg config.SourceConfig) ([]model.RawRecord, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "open")
	}
	defer file.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, file, fetcher.CSVOptions{
		Delimiter:  delim,
		HasHeader:  true,
		HeaderCh:   headerCh,
		Comment:    '#',
		Encoding:   cfg.Encoding,
		LazyQuotes: true,
	})

	var (
		cols    columnMap
		records []model.RawRecord
		mapErr  error
	)
	for row := range rowCh {
		if mapErr != nil {
			continue // drain so the reader goroutine can exit
		}
		if cols == nil {
			if cols, mapErr = mapColumns(<-headerCh, cfg.Columns); mapErr != nil {
				continue
			}
		}
		rec, err := buildRecord(row.Line, func(field string) string { return cols.value(row.Fields, field) })
		if err != nil {
			mapErr = err
			continue
		}
		records = append(records, rec)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}
	if cols == nil {
		// Header-only or empty file: still report a bad header.
		select {
		case header := <-headerCh:
			if _, err := mapColumns(header, cfg.Columns); err != nil {
				return nil, err
			}
		default:
		}
	}
	return records, nil
}

func readXLSX(p string, cfg config.SourceConfig) ([]model.RawRecord, error) {
	rows, err := fetcher.ReadXLSX(p, fetcher.XLSXOptions{SheetName: cfg.Sheet})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols, err := mapColumns(rows[0].Fields, cfg.Columns)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := buildRecord(row.Line, func(field string) string { return cols.value(row.Fields, field) })
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readJSON(ctx context.Context, p string, cfg config.SourceConfig) ([]model.RawRecord, error) {
	if err := checkOverrides(cfg.Columns); err != nil {
		return nil, err
	}

	file, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "open")
	}
	defer file.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamJSONRows(ctx, file, fetcher.JSONOptions{Encoding: cfg.Encoding})

	var (
		records []model.RawRecord
		convErr error
	)
	for row := range rowCh {
		if convErr != nil {
			continue
		}
		byKey := make(map[string]string, len(row.Fields))
		for k, v := range row.Fields {
			byKey[normalizeHeader(k)] = v
		}
		get := func(field string) string {
			for _, name := range headerNames(field, cfg.Columns) {
				if v, ok := byKey[name]; ok {
					return v
				}
			}
			return ""
		}
		rec, err := buildRecord(row.Index, get)
		if err != nil {
			convErr = err
			continue
		}
		records = append(records, rec)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if convErr != nil {
		return nil, convErr
	}
	return records, nil
}
