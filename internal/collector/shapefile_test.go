package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// writeTestShapefile writes a point layer with PARCEL_ID and OWNER columns
// and returns the .shp, .shx and .dbf contents keyed by file name.
func writeTestShapefile(t *testing.T, points []shp.Point, ids, owners []string) map[string][]byte {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "parcels")

	w, err := shp.Create(base+".shp", shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("PARCEL_ID", 20),
		shp.StringField("OWNER", 40),
	}))
	for i := range points {
		idx := int(w.Write(&points[i]))
		require.NoError(t, w.WriteAttribute(idx, 0, ids[i]))
		require.NoError(t, w.WriteAttribute(idx, 1, owners[i]))
	}
	w.Close()

	files := map[string][]byte{}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(base + ext)
		require.NoError(t, err)
		files["parcels"+ext] = data
	}
	return files
}

func TestReadShapefile(t *testing.T) {
	files := writeTestShapefile(t,
		[]shp.Point{{X: -76.636, Y: 38.291}, {X: 2500000, Y: 7000000}},
		[]string{"P-1", "P-2"},
		[]string{"SMITH JOHN", "DOE JANE"},
	)
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	records, err := ReadShapefile(context.Background(), filepath.Join(dir, "parcels.shp"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "P-1", records[0]["PARCEL_ID"])
	assert.Equal(t, "SMITH JOHN", records[0]["OWNER"])
	assert.InDelta(t, 38.291, records[0]["latitude"], 1e-9)
	assert.InDelta(t, -76.636, records[0]["longitude"], 1e-9)

	// Projected coordinates are out of degree range and left off.
	assert.Equal(t, "P-2", records[1]["PARCEL_ID"])
	assert.NotContains(t, records[1], "latitude")
}

func TestReadShapefile_Truncated(t *testing.T) {
	files := writeTestShapefile(t,
		[]shp.Point{{X: -76.636, Y: 38.291}, {X: -76.640, Y: 38.295}},
		[]string{"P-1", "P-2"},
		[]string{"SMITH JOHN", "DOE JANE"},
	)
	dir := t.TempDir()
	for name, data := range files {
		if name == "parcels.shp" {
			// Cut into the second point's Y coordinate.
			data = data[:len(data)-4]
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	records, err := ReadShapefile(context.Background(), filepath.Join(dir, "parcels.shp"))
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "read shapefile")
}

func TestShapefileCollector(t *testing.T) {
	files := writeTestShapefile(t,
		[]shp.Point{{X: -76.5, Y: 38.2}},
		[]string{"P-9"},
		[]string{"OWNER"},
	)
	srv := serveFiles(t, map[string][]byte{"/parcels.zip": zipBytes(t, files)})

	arts := &memArtifacts{}
	c := NewShapefileCollector(Deps{Fetcher: testHTTPFetcher(), Artifacts: arts, TempDir: t.TempDir()})
	require.NoError(t, c.Initialize(context.Background()))

	r := c.Collect(context.Background(), model.SourceConfig{ID: "shp", URL: srv.URL + "/parcels.zip"})
	require.True(t, r.Success, r.Message)
	assert.Equal(t, 1, r.Metadata[model.MetaRecordsFetched])
	assert.Len(t, arts.saved, 1)
}

func TestShapeCenter(t *testing.T) {
	_, _, ok := shapeCenter(nil)
	assert.False(t, ok)
	_, _, ok = shapeCenter(&shp.Null{})
	assert.False(t, ok)
	_, _, ok = shapeCenter(&shp.Point{})
	assert.False(t, ok)

	lat, lon, ok := shapeCenter(&shp.Point{X: -97.3, Y: 32.7})
	require.True(t, ok)
	assert.InDelta(t, 32.7, lat, 1e-9)
	assert.InDelta(t, -97.3, lon, 1e-9)
}
