package domain

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinates is returned when caller-supplied coordinates fall
// outside the valid latitude/longitude ranges. It is the only provider-layer
// error surfaced to callers; everything else degrades to substitute data.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// ValidCoordinates reports whether lat is in [-90, 90] and lon in [-180, 180].
// Invalid coordinates must never reach Distance.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance returns the haversine great-circle distance in kilometers between
// two coordinate pairs. Symmetric in its arguments; zero for identical points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
