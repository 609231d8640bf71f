package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// Continental US bounding box used to place simulated points.
const (
	minLat = 24.5
	maxLat = 49.0
	minLon = -124.7
	maxLon = -66.9
)

// SimulatedConfidence is the confidence reported by SimulatedProvider.
const SimulatedConfidence = 0.5

// SimulatedProvider is a deterministic stand-in for a real geocoder. It
// hashes the normalized address into a stable point; the same address always
// lands on the same coordinates.
type SimulatedProvider struct{}

// NewSimulatedProvider returns a SimulatedProvider.
func NewSimulatedProvider() *SimulatedProvider { return &SimulatedProvider{} }

// Name implements Provider.
func (p *SimulatedProvider) Name() string { return "simulated" }

// Geocode implements Provider.
func (p *SimulatedProvider) Geocode(_ context.Context, address string) (*Result, error) {
	key := normalizeKey(address)
	if key == "" {
		return nil, nil
	}
	sum := sha256.Sum256([]byte(key))
	latFrac := float64(binary.BigEndian.Uint32(sum[0:4])) / float64(^uint32(0))
	lonFrac := float64(binary.BigEndian.Uint32(sum[4:8])) / float64(^uint32(0))

	return &Result{
		Latitude:         minLat + latFrac*(maxLat-minLat),
		Longitude:        minLon + lonFrac*(maxLon-minLon),
		FormattedAddress: strings.Join(strings.Fields(address), " "),
		Confidence:       SimulatedConfidence,
	}, nil
}
