package collector

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// TypeJSON is the collector type for JSON open-data endpoints.
const TypeJSON = "json-api"

// JSONCollector reads a JSON array of records, or an object holding the
// array under metadata.recordsKey (default "records").
type JSONCollector struct {
	*Base
}

// NewJSONCollector creates a JSONCollector.
func NewJSONCollector(deps Deps) *JSONCollector {
	return &JSONCollector{Base: NewBase(TypeJSON, "", deps)}
}

// Collect implements DataCollector.
func (c *JSONCollector) Collect(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	return c.Run(ctx, source, c.fetch)
}

func (c *JSONCollector) fetch(ctx context.Context, source model.SourceConfig) ([]map[string]any, error) {
	if source.URL == "" {
		return nil, eris.New("collector: json source has no url")
	}
	body, err := c.deps.Fetcher.Download(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return fetcher.DecodeRecords(ctx, body, source.MetadataString("recordsKey", "records"))
}
