package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parcel-ingest/internal/model"
)

// sourcesFile is the on-disk shape of the sources list.
type sourcesFile struct {
	Sources []model.SourceConfig `yaml:"sources"`
}

// LoadSources reads source configurations from a YAML file holding either a
// top-level list or a "sources" key. IDs must be unique and every source
// needs a collector type. Sources without a status are treated as active.
func LoadSources(path string) ([]model.SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources %s", path)
	}
	return ParseSources(data)
}

// ParseSources is LoadSources on an in-memory document.
func ParseSources(data []byte) ([]model.SourceConfig, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, eris.Wrap(err, "config: parse sources")
	}

	if len(root.Content) == 0 {
		return nil, nil
	}

	var sources []model.SourceConfig
	if root.Content[0].Kind == yaml.SequenceNode {
		if err := root.Content[0].Decode(&sources); err != nil {
			return nil, eris.Wrap(err, "config: decode sources")
		}
	} else {
		var f sourcesFile
		if err := root.Decode(&f); err != nil {
			return nil, eris.Wrap(err, "config: decode sources")
		}
		sources = f.Sources
	}

	seen := make(map[string]bool, len(sources))
	for i := range sources {
		s := &sources[i]
		if s.ID == "" {
			return nil, eris.Errorf("config: source %d has no id", i)
		}
		if seen[s.ID] {
			return nil, eris.Errorf("config: duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if s.CollectorType == "" {
			return nil, eris.Errorf("config: source %q has no collector_type", s.ID)
		}
		if s.Status == "" {
			s.Status = model.SourceStatusActive
		}
	}
	return sources, nil
}

// ActiveSources filters to active sources, optionally restricted to ids.
func ActiveSources(sources []model.SourceConfig, ids ...string) []model.SourceConfig {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.SourceConfig
	for _, s := range sources {
		if s.Status != model.SourceStatusActive {
			continue
		}
		if len(want) > 0 && !want[s.ID] {
			continue
		}
		out = append(out, s)
	}
	return out
}
