package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-ingest/internal/model"
)

const sourcesYAML = `
sources:
  - id: st-marys-md
    name: St. Mary's County Real Property Search
    type: county-assessor
    url: https://www.stmaryscountymd.gov/realestate/search
    region:
      state: MD
      county: St. Mary's
    collector_type: st-marys-county-md
    schedule:
      frequency: weekly
      day_of_week: 1
    metadata:
      maxPages: 10
  - id: tarrant-tx
    name: Tarrant Appraisal District certified roll
    url: https://www.tad.org/content/data-download/PropertyData.zip
    region:
      state: TX
      county: Tarrant
    collector_type: csv-export
    status: inactive
    metadata:
      delimiter: "|"
      standardization: tarrant-county-tx
`

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sourcesYAML), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	stm := sources[0]
	assert.Equal(t, "st-marys-md", stm.ID)
	assert.Equal(t, "st-marys-county-md", stm.CollectorType)
	assert.Equal(t, model.Region{State: "MD", County: "St. Mary's"}, stm.Region)
	assert.Equal(t, "weekly", stm.Schedule.Frequency)
	require.NotNil(t, stm.Schedule.DayOfWeek)
	assert.Equal(t, 1, *stm.Schedule.DayOfWeek)
	assert.Equal(t, 10, stm.Metadata["maxPages"])
	assert.Equal(t, model.SourceStatusActive, stm.Status)

	assert.Equal(t, model.SourceStatusInactive, sources[1].Status)
	assert.Equal(t, "tarrant-county-tx", sources[1].MetadataString("standardization", ""))
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseSources_TopLevelList(t *testing.T) {
	sources, err := ParseSources([]byte(`
- id: a
  collector_type: json-api
- id: b
  collector_type: csv-export
`))
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b", sources[1].ID)
}

func TestParseSources_Empty(t *testing.T) {
	sources, err := ParseSources(nil)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestParseSources_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing id", "- collector_type: json-api", "has no id"},
		{"duplicate id", "- {id: a, collector_type: x}\n- {id: a, collector_type: y}", "duplicate source id"},
		{"missing collector", "- id: a", "has no collector_type"},
		{"bad yaml", "- id: [", "parse sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSources([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestActiveSources(t *testing.T) {
	sources := []model.SourceConfig{
		{ID: "a", Status: model.SourceStatusActive},
		{ID: "b", Status: model.SourceStatusInactive},
		{ID: "c", Status: model.SourceStatusActive},
		{ID: "d", Status: model.SourceStatusError},
	}

	all := ActiveSources(sources)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[1].ID)

	only := ActiveSources(sources, "c", "b")
	require.Len(t, only, 1)
	assert.Equal(t, "c", only[0].ID)
}
