package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Praça da Sé to MASP, São Paulo: roughly 2.6 km
	d := HaversineKm(-23.5503, -46.6339, -23.5614, -46.6559)
	assert.InDelta(t, 2.6, d, 0.4)
	assert.Zero(t, HaversineKm(10, 10, 10, 10))
}

func TestNearest(t *testing.T) {
	origin := Point{Lat: -23.5503, Lng: -46.6339}
	points := []Point{
		{Lat: -22.9068, Lng: -43.1729}, // Rio de Janeiro
		{Lat: -23.5614, Lng: -46.6559},
		{Lat: -23.5505, Lng: -46.6333},
	}
	ranked := Nearest(origin, points, 0)
	assert.Len(t, ranked, 3)
	assert.Equal(t, 2, ranked[0].Index)
	assert.Equal(t, 1, ranked[1].Index)
	assert.Equal(t, 0, ranked[2].Index)

	ranked = Nearest(origin, points, 50)
	assert.Len(t, ranked, 2)
}

func TestValidPoint(t *testing.T) {
	assert.True(t, ValidPoint(-23.5, -46.6))
	assert.False(t, ValidPoint(91, 0))
	assert.False(t, ValidPoint(0, -181))
}
