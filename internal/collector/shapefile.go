package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-ingest/internal/fetcher"
	"github.com/sells-group/parcel-ingest/internal/model"
)

// TypeShapefile is the collector type for zipped parcel shapefiles.
const TypeShapefile = "parcel-shapefile"

// ShapefileCollector reads parcel layers distributed as zipped shapefiles.
// DBF attributes become record fields. When the layer is in geographic
// coordinates, the shape's bounding-box center is added as latitude and
// longitude.
type ShapefileCollector struct {
	*Base
}

// NewShapefileCollector creates a ShapefileCollector.
func NewShapefileCollector(deps Deps) *ShapefileCollector {
	return &ShapefileCollector{Base: NewBase(TypeShapefile, "", deps)}
}

// Collect implements DataCollector.
func (c *ShapefileCollector) Collect(ctx context.Context, source model.SourceConfig) *model.CollectionResult {
	return c.Run(ctx, source, c.fetch)
}

func (c *ShapefileCollector) fetch(ctx context.Context, source model.SourceConfig) ([]map[string]any, error) {
	if source.URL == "" {
		return nil, eris.New("collector: shapefile source has no url")
	}
	workDir, err := c.workDir("shapefile-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	zipPath := filepath.Join(workDir, "parcels.zip")
	if _, err := c.deps.Fetcher.DownloadToFile(ctx, source.URL, zipPath); err != nil {
		return nil, err
	}
	extracted, err := fetcher.ExtractZIP(zipPath, filepath.Join(workDir, "unzipped"))
	if err != nil {
		return nil, err
	}
	shpPath, ok := fetcher.FindByExt(extracted, ".shp")
	if !ok {
		return nil, eris.Errorf("collector: no .shp file in %s", source.URL)
	}
	return ReadShapefile(ctx, shpPath)
}

// ReadShapefile reads every feature's attributes from shpPath.
func ReadShapefile(ctx context.Context, shpPath string) ([]map[string]any, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var records []map[string]any
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "collector: read shapefile")
		}
		idx, shape := reader.Shape()

		rec := make(map[string]any, len(names)+2)
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(idx, i), "\x00"))
			if val != "" {
				rec[name] = val
			}
		}
		if lat, lon, ok := shapeCenter(shape); ok {
			rec["latitude"] = lat
			rec["longitude"] = lon
		}
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "collector: read shapefile %s", shpPath)
	}
	return records, nil
}

// shapeCenter returns the bounding-box center when it lies in WGS84 range.
// Projected layers (state plane feet) fall outside it and yield false.
func shapeCenter(s shp.Shape) (lat, lon float64, ok bool) {
	if s == nil {
		return 0, 0, false
	}
	if _, isNull := s.(*shp.Null); isNull {
		return 0, 0, false
	}
	box := s.BBox()
	lon = (box.MinX + box.MaxX) / 2
	lat = (box.MinY + box.MaxY) / 2
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || (lat == 0 && lon == 0) {
		return 0, 0, false
	}
	return lat, lon, true
}
