package geo

import (
	"math"

	"github.com/tripforge/itinera/internal/app/models"
)

const earthRadiusKm = 6371.0

// ValidateCoordinates checks if latitude and longitude are valid.
// Latitude must be between -90 and 90, longitude between -180 and 180.
// A (0, 0) pair is treated as missing data.
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 && !(lat == 0 && lng == 0)
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b models.Coordinates) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Centroid calculates the center point of multiple coordinates, skipping
// invalid entries. Returns the fallback if no valid coordinates exist.
func Centroid(coords []models.Coordinates, fallback models.Coordinates) models.Coordinates {
	var latSum, lngSum float64
	valid := 0
	for _, c := range coords {
		if !ValidateCoordinates(c.Latitude, c.Longitude) {
			continue
		}
		latSum += c.Latitude
		lngSum += c.Longitude
		valid++
	}
	if valid == 0 {
		return fallback
	}
	return models.Coordinates{
		Latitude:  latSum / float64(valid),
		Longitude: lngSum / float64(valid),
	}
}

// Bounds returns the bounding box for a set of coordinates.
// Returns minLat, maxLat, minLng, maxLng.
func Bounds(coords []models.Coordinates) (float64, float64, float64, float64) {
	if len(coords) == 0 {
		return 0, 0, 0, 0
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLng := math.MaxFloat64
	maxLng := -math.MaxFloat64

	for _, c := range coords {
		if !ValidateCoordinates(c.Latitude, c.Longitude) {
			continue
		}
		if c.Latitude < minLat {
			minLat = c.Latitude
		}
		if c.Latitude > maxLat {
			maxLat = c.Latitude
		}
		if c.Longitude < minLng {
			minLng = c.Longitude
		}
		if c.Longitude > maxLng {
			maxLng = c.Longitude
		}
	}

	return minLat, maxLat, minLng, maxLng
}
