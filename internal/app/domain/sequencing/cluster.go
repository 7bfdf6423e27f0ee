package sequencing

import (
	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/pkg/geo"
)

// Cluster groups destinations within the configured radius of each
// other. The centroid and radius are retained for inter-cluster routing.
type Cluster struct {
	Centroid     models.Coordinates
	RadiusKm     float64
	Destinations []models.Destination
}

// clusterDestinations greedily groups destinations: each destination
// joins the first cluster whose centroid lies within radiusKm, otherwise
// it seeds a new cluster. Centroids are recomputed on every addition.
func clusterDestinations(dests []models.Destination, radiusKm float64) []Cluster {
	clusters := make([]Cluster, 0, len(dests))

	for _, d := range dests {
		placed := false
		for i := range clusters {
			if geo.HaversineKm(clusters[i].Centroid, d.Coordinates) <= radiusKm {
				clusters[i].Destinations = append(clusters[i].Destinations, d)
				clusters[i].recompute()
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, Cluster{
				Centroid:     d.Coordinates,
				Destinations: []models.Destination{d},
			})
		}
	}

	return clusters
}

// recompute refreshes the centroid and radius after membership changes.
func (c *Cluster) recompute() {
	coords := make([]models.Coordinates, len(c.Destinations))
	for i, d := range c.Destinations {
		coords[i] = d.Coordinates
	}
	c.Centroid = geo.Centroid(coords, c.Centroid)

	c.RadiusKm = 0
	for _, d := range c.Destinations {
		if dist := geo.HaversineKm(c.Centroid, d.Coordinates); dist > c.RadiusKm {
			c.RadiusKm = dist
		}
	}
}

// orderClusters arranges clusters nearest-neighbor first, starting from
// the traveler's start location or the first cluster if unspecified.
func orderClusters(clusters []Cluster, start *models.Coordinates) []Cluster {
	if len(clusters) <= 1 {
		return clusters
	}

	remaining := append([]Cluster(nil), clusters...)
	ordered := make([]Cluster, 0, len(clusters))

	var cursor models.Coordinates
	if start != nil && start.Valid() && !start.IsZero() {
		cursor = *start
	} else {
		ordered = append(ordered, remaining[0])
		cursor = remaining[0].Centroid
		remaining = remaining[1:]
	}

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.HaversineKm(cursor, remaining[0].Centroid)
		for i := 1; i < len(remaining); i++ {
			if dist := geo.HaversineKm(cursor, remaining[i].Centroid); dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		ordered = append(ordered, remaining[best])
		cursor = remaining[best].Centroid
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}

// nearestNeighborOrder orders destinations greedily from the given start
// point. Used for small clusters where the genetic search is overkill.
func nearestNeighborOrder(dests []models.Destination, start models.Coordinates) []models.Destination {
	if len(dests) <= 1 {
		return dests
	}

	remaining := append([]models.Destination(nil), dests...)
	ordered := make([]models.Destination, 0, len(dests))
	cursor := start

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.HaversineKm(cursor, remaining[0].Coordinates)
		for i := 1; i < len(remaining); i++ {
			if dist := geo.HaversineKm(cursor, remaining[i].Coordinates); dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		ordered = append(ordered, remaining[best])
		cursor = remaining[best].Coordinates
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}
