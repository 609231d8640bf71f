// Package model defines the property records, source configurations, and
// collection results shared by collectors, the pipeline, and the store.
package model

// SourceStatus is the administrative state of a configured source.
type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusInactive SourceStatus = "inactive"
	SourceStatusError    SourceStatus = "error"
)

// Region locates a source within a state and county.
type Region struct {
	State  string `json:"state" yaml:"state"`
	County string `json:"county" yaml:"county"`
}

// Schedule describes how often a source is expected to be collected. The
// core never acts on it; it is carried for the external scheduler.
type Schedule struct {
	Frequency  string `json:"frequency" yaml:"frequency"`
	DayOfWeek  *int   `json:"dayOfWeek,omitempty" yaml:"day_of_week,omitempty"`
	DayOfMonth *int   `json:"dayOfMonth,omitempty" yaml:"day_of_month,omitempty"`
}

// SourceConfig is a configured origin of property data. It is administered
// externally and treated as read-only input.
type SourceConfig struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Type          string         `json:"type" yaml:"type"`
	URL           string         `json:"url" yaml:"url"`
	Region        Region         `json:"region" yaml:"region"`
	CollectorType string         `json:"collectorType" yaml:"collector_type"`
	Schedule      Schedule       `json:"schedule" yaml:"schedule"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Status        SourceStatus   `json:"status" yaml:"status"`
}

// MetadataString returns a string metadata value, or def when absent.
func (s SourceConfig) MetadataString(key, def string) string {
	if v, ok := s.Metadata[key].(string); ok && v != "" {
		return v
	}
	return def
}
