package collector

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// TypeStMarys is the collector type for the St. Mary's County, MD search.
const TypeStMarys = "st-marys-county-md"

// DefaultMaxPages bounds pagination through search results.
const DefaultMaxPages = 25

// StMarysCollector scrapes the St. Mary's County real property search
// results. Each page carries a table.results whose header row names the
// columns; pagination follows the a.next link.
type StMarysCollector struct {
	*Base
	maxPages int
}

// NewStMarysCollector creates the collector. probeURL is the search landing
// page checked by Initialize.
func NewStMarysCollector(probeURL string, maxPages int, deps Deps) *StMarysCollector {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &StMarysCollector{
		Base:     NewBase(TypeStMarys, probeURL, deps),
		maxPages: maxPages,
	}
}

// Collect implements DataCollector.
func (c *StMarysCollector) Collect(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	return c.Run(ctx, source, c.fetchPages)
}

func (c *StMarysCollector) fetchPages(ctx context.Context, source model.SourceConfig) ([]map[string]any, error) {
	if source.URL == "" {
		return nil, eris.New("collector: st marys source has no url")
	}
	maxPages := metadataInt(source, "maxPages", c.maxPages)

	var records []map[string]any
	seen := map[string]bool{}
	next := source.URL
	for page := 0; next != "" && page < maxPages; page++ {
		if seen[next] {
			break
		}
		seen[next] = true

		rows, nextURL, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, eris.Wrapf(err, "collector: st marys page %d", page+1)
		}
		records = append(records, rows...)
		next = nextURL
	}
	return records, nil
}

func (c *StMarysCollector) fetchPage(ctx context.Context, pageURL string) ([]map[string]any, string, error) {
	body, err := c.deps.Fetcher.Download(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, "", eris.Wrap(err, "collector: parse html")
	}
	rows := parseResultsTable(doc)

	next := ""
	if href, ok := doc.Find("a.next").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		next, err = resolveURL(pageURL, strings.TrimSpace(href))
		if err != nil {
			return nil, "", err
		}
	}
	return rows, next, nil
}

// parseResultsTable maps each body row of table.results to its header
// names. Rows without an account number are skipped.
func parseResultsTable(doc *goquery.Document) []map[string]any {
	table := doc.Find("table.results").First()

	var headers []string
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cleanText(th.Text()))
	})
	if len(headers) == 0 {
		table.Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, cleanText(th.Text()))
		})
	}

	var rows []map[string]any
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		rec := make(map[string]any, len(headers))
		cells.Each(func(i int, td *goquery.Selection) {
			if i < len(headers) && headers[i] != "" {
				rec[headers[i]] = cleanText(td.Text())
			}
		})
		if link, ok := tr.Find("a[href]").First().Attr("href"); ok {
			rec["detailUrl"] = link
		}
		if v, _ := rec["Account Number"].(string); v == "" {
			if v, _ := rec["accountNumber"].(string); v == "" {
				return
			}
		}
		rows = append(rows, rec)
	})
	return rows
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrap(err, "collector: parse page url")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", eris.Wrap(err, "collector: parse next link")
	}
	return b.ResolveReference(r).String(), nil
}
