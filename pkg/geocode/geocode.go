// Package geocode resolves property addresses to coordinates through a
// pluggable Provider, fronted by a bounded in-memory cache.
package geocode

import (
	"context"
	"strings"
)

// Result is a resolved address.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
	Confidence       float64 `json:"confidence"`
}

// Provider is a geocoding backend. Geocode returns (nil, nil) when the
// address could not be matched.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
}

// normalizeKey trims, collapses whitespace, and lower-cases an address so
// differently cased spellings share one cache slot.
func normalizeKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
