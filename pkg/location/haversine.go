package location

import (
	"math"
	"sort"
)

// EarthRadiusKm is the Earth radius in kilometers for Haversine.
const EarthRadiusKm = 6371.0

// HaversineKm returns distance in km between two points (lat/lng in degrees).
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	φ1, φ2 := rad(lat1), rad(lat2)
	Δφ := rad(lat2 - lat1)
	Δλ := rad(lng2 - lng1)
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Point is a coordinate pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// ValidPoint reports whether lat/lng are inside their ranges.
func ValidPoint(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Ranked is an index into the caller's slice with its distance from the origin.
type Ranked struct {
	Index      int
	DistanceKm float64
}

// Nearest orders points by distance from origin, closest first. A positive
// maxKm drops points farther than that.
func Nearest(origin Point, points []Point, maxKm float64) []Ranked {
	out := make([]Ranked, 0, len(points))
	for i, p := range points {
		d := HaversineKm(origin.Lat, origin.Lng, p.Lat, p.Lng)
		if maxKm > 0 && d > maxKm {
			continue
		}
		out = append(out, Ranked{Index: i, DistanceKm: d})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceKm < out[b].DistanceKm })
	return out
}
