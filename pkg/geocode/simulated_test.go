package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedProvider_Deterministic(t *testing.T) {
	p := NewSimulatedProvider()
	a, err := p.Geocode(context.Background(), "1000 Main St, Leonardtown, MD 20650")
	require.NoError(t, err)
	b, err := p.Geocode(context.Background(), "1000  main st, leonardtown, md 20650")
	require.NoError(t, err)

	assert.Equal(t, a.Latitude, b.Latitude)
	assert.Equal(t, a.Longitude, b.Longitude)
	assert.Equal(t, SimulatedConfidence, a.Confidence)
	assert.Equal(t, "1000 Main St, Leonardtown, MD 20650", a.FormattedAddress)
}

func TestSimulatedProvider_InBounds(t *testing.T) {
	p := NewSimulatedProvider()
	for _, addr := range []string{"a", "1 Elm", "742 Evergreen Terrace", "PO Box 9"} {
		r, err := p.Geocode(context.Background(), addr)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Latitude, minLat)
		assert.LessOrEqual(t, r.Latitude, maxLat)
		assert.GreaterOrEqual(t, r.Longitude, minLon)
		assert.LessOrEqual(t, r.Longitude, maxLon)
	}
}

func TestSimulatedProvider_DistinctAddresses(t *testing.T) {
	p := NewSimulatedProvider()
	a, _ := p.Geocode(context.Background(), "1 Main St")
	b, _ := p.Geocode(context.Background(), "2 Main St")
	assert.NotEqual(t, a.Latitude, b.Latitude)
}

func TestSimulatedProvider_Empty(t *testing.T) {
	r, err := NewSimulatedProvider().Geocode(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, r)
}
