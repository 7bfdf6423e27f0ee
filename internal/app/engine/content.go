package engine

import (
	"strings"
	"time"

	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/pkg/geo"
)

// transportMatchRadiusKm bounds how far a transport endpoint may sit
// from a destination and still serve it.
const transportMatchRadiusKm = 50

// splitComponents partitions the mixed content set by concrete type.
// Items of unknown dynamic type are dropped.
func splitComponents(content []models.Component) ([]models.Activity, []models.Accommodation, []models.Transportation) {
	var activities []models.Activity
	var accommodations []models.Accommodation
	var transports []models.Transportation
	for _, c := range content {
		switch v := c.(type) {
		case models.Activity:
			activities = append(activities, v)
		case *models.Activity:
			activities = append(activities, *v)
		case models.Accommodation:
			accommodations = append(accommodations, v)
		case *models.Accommodation:
			accommodations = append(accommodations, *v)
		case models.Transportation:
			transports = append(transports, v)
		case *models.Transportation:
			transports = append(transports, *v)
		}
	}
	return activities, accommodations, transports
}

func toComponents(items []models.Activity) []models.Component {
	out := make([]models.Component, len(items))
	for i, a := range items {
		out[i] = a
	}
	return out
}

func toComponentsAcc(items []models.Accommodation) []models.Component {
	out := make([]models.Component, len(items))
	for i, a := range items {
		out[i] = a
	}
	return out
}

func toComponentsTrn(items []models.Transportation) []models.Component {
	out := make([]models.Component, len(items))
	for i, t := range items {
		out[i] = t
	}
	return out
}

// selectActivities keeps the activities whose ids survived filtering,
// preserving the score ordering.
func selectActivities(all []models.Activity, kept []models.ContentMatchScore) []models.Activity {
	byID := make(map[string]models.Activity, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	out := make([]models.Activity, 0, len(kept))
	for _, s := range kept {
		if a, ok := byID[s.ContentID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func selectAccommodations(all []models.Accommodation, kept []models.ContentMatchScore) []models.Accommodation {
	byID := make(map[string]models.Accommodation, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	out := make([]models.Accommodation, 0, len(kept))
	for _, s := range kept {
		if a, ok := byID[s.ContentID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func selectTransportations(all []models.Transportation, kept []models.ContentMatchScore) []models.Transportation {
	byID := make(map[string]models.Transportation, len(all))
	for _, tr := range all {
		byID[tr.ID] = tr
	}
	out := make([]models.Transportation, 0, len(kept))
	for _, s := range kept {
		if tr, ok := byID[s.ContentID]; ok {
			out = append(out, tr)
		}
	}
	return out
}

// matchTransportLeg converts the best-scored transportation component
// connecting the two destinations into a travel leg. Returns nil when
// no component serves the route.
func matchTransportLeg(transports []models.Transportation, from, to models.Destination) *models.TransportLeg {
	for _, tr := range transports {
		if !servesEndpoint(tr.FromLocation, tr.FromCoordinates, from) ||
			!servesEndpoint(tr.ToLocation, tr.ToCoordinates, to) {
			continue
		}
		leg := models.TransportLeg{
			Mode:       tr.Mode,
			DistanceKm: geo.HaversineKm(from.Coordinates, to.Coordinates),
			Duration:   time.Duration(tr.DurationMinutes) * time.Minute,
		}
		if tr.EstimatedCost != nil {
			leg.Cost = *tr.EstimatedCost
		}
		return &leg
	}
	return nil
}

// servesEndpoint matches a transport endpoint to a destination by name
// or by proximity.
func servesEndpoint(location string, coords models.Coordinates, d models.Destination) bool {
	if location != "" && strings.Contains(strings.ToLower(location), strings.ToLower(d.Title)) {
		return true
	}
	return coords.Valid() && !coords.IsZero() && geo.HaversineKm(coords, d.Coordinates) <= transportMatchRadiusKm
}

func selectDestinations(all []models.Destination, kept []models.ContentMatchScore) []models.Destination {
	byID := make(map[string]models.Destination, len(all))
	for _, d := range all {
		byID[d.ID] = d
	}
	out := make([]models.Destination, 0, len(kept))
	for _, s := range kept {
		if d, ok := byID[s.ContentID]; ok {
			out = append(out, d)
		}
	}
	return out
}

// rotateActivities offsets the candidate pool per day so consecutive
// days don't all open with the same top-scored activity.
func rotateActivities(activities []models.Activity, day int) []models.Activity {
	n := len(activities)
	if n <= 1 {
		return activities
	}
	offset := day % n
	out := make([]models.Activity, 0, n)
	out = append(out, activities[offset:]...)
	out = append(out, activities[:offset]...)
	return out
}
