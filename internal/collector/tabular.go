package collector

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// Tabular collector types.
const (
	TypeCSV  = "csv-export"
	TypeXLSX = "xlsx-export"
)

// TabularCollector reads bulk roll exports published as CSV or XLSX, over
// HTTP or FTP, optionally zipped. Source metadata may set "delimiter",
// "sheet" and "headerRow".
type TabularCollector struct {
	*Base
	format string
}

// NewCSVCollector creates the csv-export collector.
func NewCSVCollector(deps Deps) *TabularCollector {
	return &TabularCollector{Base: NewBase(TypeCSV, "", deps), format: ".csv"}
}

// NewXLSXCollector creates the xlsx-export collector.
func NewXLSXCollector(deps Deps) *TabularCollector {
	return &TabularCollector{Base: NewBase(TypeXLSX, "", deps), format: ".xlsx"}
}

// Collect implements DataCollector.
func (c *TabularCollector) Collect(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	return c.Run(ctx, source, c.fetch)
}

func (c *TabularCollector) fetch(ctx context.Context, source model.SourceConfig) ([]map[string]any, error) {
	if source.URL == "" {
		return nil, eris.New("collector: tabular source has no url")
	}
	workDir, err := c.workDir("tabular-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	local, err := c.download(ctx, source.URL, workDir)
	if err != nil {
		return nil, err
	}

	switch c.format {
	case ".xlsx":
		return fetcher.ReadXLSXRecords(local, fetcher.XLSXOptions{
			SheetName: source.MetadataString("sheet", ""),
			HeaderRow: metadataInt(source, "headerRow", 0),
		})
	default:
		f, err := os.Open(local)
		if err != nil {
			return nil, eris.Wrap(err, "collector: open csv")
		}
		defer f.Close() //nolint:errcheck

		opts := fetcher.CSVOptions{LazyQuotes: true, TrimSpace: true}
		if d := source.MetadataString("delimiter", ""); d != "" {
			opts.Delimiter = []rune(d)[0]
		}
		return fetcher.ReadCSVRecords(ctx, f, opts)
	}
}

// download fetches rawURL into dir and returns the path of the data file,
// extracting it first when the download is a ZIP.
func (c *TabularCollector) download(ctx context.Context, rawURL, dir string) (string, error) {
	name := "download" + c.format
	if u, err := url.Parse(rawURL); err == nil && path.Ext(u.Path) != "" {
		name = path.Base(u.Path)
	}
	local := filepath.Join(dir, name)
	if _, err := c.deps.Fetcher.DownloadToFile(ctx, rawURL, local); err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	extracted, err := fetcher.ExtractZIP(local, filepath.Join(dir, "unzipped"))
	if err != nil {
		return "", err
	}
	data, ok := fetcher.FindByExt(extracted, c.format)
	if !ok {
		return "", eris.Errorf("collector: no %s file in %s", c.format, rawURL)
	}
	return data, nil
}

// metadataInt reads an integer from source metadata. YAML yields int and
// JSON yields float64.
func metadataInt(source model.SourceConfig, key string, def int) int {
	switch v := source.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
