package paths

import (
	"math"

	"github.com/tcdata/railnet/internal/models"
)

// sinuosity to twisting factor support points, interpolated linearly
var twistTable = []struct{ sinuosity, twist float64 }{
	{1.000, 0.01},
	{1.010, 0.10},
	{1.025, 0.13},
	{1.050, 0.15},
	{1.100, 0.20},
	{1.150, 0.28},
	{1.200, 0.30},
	{1.330, 0.40},
	{1.400, 0.50},
	{1.900, 0.80},
}

// TwistingFactor maps the ratio of track length to direct distance to the
// twisting factor of a path. Ratios below 1 yield 0, ratios beyond the
// table yield 0.8.
func TwistingFactor(sinuosity float64) float64 {
	if sinuosity < 1 {
		return 0
	}
	for i := 0; i+1 < len(twistTable); i++ {
		lo, hi := twistTable[i], twistTable[i+1]
		if lo.sinuosity <= sinuosity && sinuosity < hi.sinuosity {
			return lo.twist + (sinuosity-lo.sinuosity)*(hi.twist-lo.twist)/(hi.sinuosity-lo.sinuosity)
		}
	}
	return 0.8
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// distanceKm returns the great circle distance between two locations
func distanceKm(a, b models.Location) float64 {
	const earthRadius = 6371.0
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
