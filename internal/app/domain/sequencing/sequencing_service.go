package sequencing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/pkg/geo"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the destination sequencing contract.
type Service interface {
	SequenceDestinations(ctx context.Context, dests []models.Destination, prefs models.UserPreferences) ([]models.SequencedDestination, error)
	ValidateSequence(ctx context.Context, seq []models.SequencedDestination, prefs models.UserPreferences) []models.SequenceIssue
	EstimateLeg(from, to models.Coordinates, mode models.TransportMode) models.TransportLeg
}

// Config tunes clustering and the genetic search.
type Config struct {
	ClusterRadiusKm float64
	MutationRate    float64
	Seed            int64
	// Clusters larger than this use the genetic search instead of
	// nearest-neighbor.
	GAThreshold int
}

// DefaultConfig returns the documented sequencing defaults.
func DefaultConfig() Config {
	return Config{
		ClusterRadiusKm: 100,
		MutationRate:    0.10,
		GAThreshold:     5,
	}
}

// defaultMaxTravelPerDay applies when preferences leave the cap unset.
const defaultMaxTravelPerDay = 8 * time.Hour

// gaFitnessBase keeps fitness positive for continental-scale routes.
const gaFitnessBase = 10000.0

// ServiceImpl provides the implementation for the sequencing Service.
// Travel-time lookups are memoized for the lifetime of the instance.
type ServiceImpl struct {
	logger *zap.Logger
	cfg    Config

	travelTimes *gocache.Cache
}

// NewService creates a sequencing service. A zero Seed gives a
// time-derived seed; tests inject a fixed one for reproducibility.
func NewService(cfg Config, logger *zap.Logger) *ServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ClusterRadiusKm <= 0 {
		cfg.ClusterRadiusKm = DefaultConfig().ClusterRadiusKm
	}
	if cfg.MutationRate <= 0 {
		cfg.MutationRate = DefaultConfig().MutationRate
	}
	if cfg.GAThreshold <= 0 {
		cfg.GAThreshold = DefaultConfig().GAThreshold
	}
	return &ServiceImpl{
		logger:      logger,
		cfg:         cfg,
		travelTimes: gocache.New(gocache.NoExpiration, 0),
	}
}

// newRNG derives a generator per invocation. *rand.Rand is not safe for
// concurrent use, so sharing one across requests is not an option.
func (s *ServiceImpl) newRNG() *rand.Rand {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// SequenceDestinations clusters, orders, and schedules destinations into
// a dated sequence.
func (s *ServiceImpl) SequenceDestinations(ctx context.Context, dests []models.Destination, prefs models.UserPreferences) ([]models.SequencedDestination, error) {
	_, span := otel.Tracer("SequencingService").Start(ctx, "SequenceDestinations", trace.WithAttributes(
		attribute.Int("destinations.count", len(dests)),
		attribute.Float64("cluster.radius_km", s.cfg.ClusterRadiusKm),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "SequenceDestinations"), zap.Int("destinations", len(dests)))

	if len(dests) == 0 {
		span.SetStatus(codes.Error, "No destinations")
		return nil, models.ErrNoDestinations
	}

	clusters := clusterDestinations(dests, s.cfg.ClusterRadiusKm)
	span.SetAttributes(attribute.Int("clusters.count", len(clusters)))
	l.Debug("Destinations clustered", zap.Int("clusters", len(clusters)))

	ordered := orderClusters(clusters, prefs.StartLocation)

	route := make([]models.Destination, 0, len(dests))
	cursor := startPoint(prefs, ordered)
	rng := s.newRNG()
	for _, cluster := range ordered {
		var members []models.Destination
		if len(cluster.Destinations) <= s.cfg.GAThreshold {
			members = nearestNeighborOrder(cluster.Destinations, cursor)
		} else {
			members = s.geneticOrder(ctx, cluster.Destinations, cursor, prefs, rng)
		}
		route = append(route, members...)
		if len(members) > 0 {
			cursor = members[len(members)-1].Coordinates
		}
	}

	seq, err := s.allocateDays(route, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Day allocation failed")
		return nil, fmt.Errorf("error sequencing destinations: %w", err)
	}

	l.Info("Destinations sequenced", zap.Int("stops", len(seq)))
	span.SetStatus(codes.Ok, "Destinations sequenced")
	return seq, nil
}

// geneticOrder runs the genetic search over one cluster's members.
func (s *ServiceImpl) geneticOrder(ctx context.Context, members []models.Destination, start models.Coordinates, prefs models.UserPreferences, rng *rand.Rand) []models.Destination {
	maxTravel := prefs.MaxTravelTimePerDay
	if maxTravel <= 0 {
		maxTravel = defaultMaxTravelPerDay
	}

	mustVisit := make(map[string]string, len(prefs.MustVisitOrder))
	for _, pair := range prefs.MustVisitOrder {
		mustVisit[pair[0]] = pair[1]
	}

	fitness := func(order []int) float64 {
		totalDist := 0.0
		totalTravelMin := 0.0
		penalty := 0.0
		bonus := 0.0

		cursor := start
		for i, idx := range order {
			d := members[idx]
			dist := geo.HaversineKm(cursor, d.Coordinates)
			legMode := s.legModeForDistance(prefs, dist)
			travel := s.travelDuration(cursor, d.Coordinates, legMode)

			totalDist += dist
			totalTravelMin += travel.Minutes()
			if travel > maxTravel {
				penalty += (travel - maxTravel).Minutes() * 2
			}
			if i > 0 {
				prev := members[order[i-1]]
				if next, ok := mustVisit[prev.ID]; ok && next == d.ID {
					bonus += 50
				}
			}
			cursor = d.Coordinates
		}

		return gaFitnessBase - totalDist*0.1 - totalTravelMin*0.5 - penalty + bonus
	}

	optimizer := newGeneticOptimizer(len(members), s.cfg.MutationRate, rng, fitness)
	best, _ := optimizer.Run(ctx)

	out := make([]models.Destination, len(members))
	for i, idx := range best {
		out[i] = members[idx]
	}
	return out
}

// allocateDays divides the trip evenly across the ordered route,
// remainder days going to the earliest destinations, and computes
// travel legs between consecutive stops.
func (s *ServiceImpl) allocateDays(route []models.Destination, prefs models.UserPreferences) ([]models.SequencedDestination, error) {
	tripDays := prefs.TripDurationDays()
	if tripDays < 1 {
		return nil, &models.FieldError{Field: "end_date", Code: models.CodeInvalidDateRange, Message: "trip must span at least one day"}
	}
	if len(route) > tripDays {
		// Not every destination fits; keep the first tripDays stops.
		route = route[:tripDays]
	}

	perStop := tripDays / len(route)
	remainder := tripDays % len(route)

	seq := make([]models.SequencedDestination, 0, len(route))
	dayCursor := prefs.StartDate
	for i, d := range route {
		days := perStop
		if i < remainder {
			days++
		}

		sd := models.SequencedDestination{
			Destination:   d,
			SequenceOrder: i,
			ArrivalDate:   dayCursor,
			DepartureDate: dayCursor.AddDate(0, 0, days-1),
			DaysAllocated: days,
		}

		if i > 0 {
			prev := route[i-1]
			dist := geo.HaversineKm(prev.Coordinates, d.Coordinates)
			mode := s.legModeForDistance(prefs, dist)
			leg := s.EstimateLeg(prev.Coordinates, d.Coordinates, mode)
			sd.TravelTimeFromPrevious = leg.Duration
			sd.TransportToPrevious = &leg
		}

		seq = append(seq, sd)
		dayCursor = sd.DepartureDate.AddDate(0, 0, 1)
	}

	return seq, nil
}

// EstimateLeg computes the distance, duration, and cost of a connection
// using modeled speed for the mode over the Haversine distance.
func (s *ServiceImpl) EstimateLeg(from, to models.Coordinates, mode models.TransportMode) models.TransportLeg {
	dist := geo.HaversineKm(from, to)
	return models.TransportLeg{
		Mode:       mode,
		DistanceKm: dist,
		Duration:   s.travelDuration(from, to, mode),
		Cost:       legCost(dist, mode),
	}
}

// travelDuration memoizes (from, to, mode) lookups for the service
// lifetime.
func (s *ServiceImpl) travelDuration(from, to models.Coordinates, mode models.TransportMode) time.Duration {
	key := fmt.Sprintf("%.5f,%.5f|%.5f,%.5f|%s", from.Latitude, from.Longitude, to.Latitude, to.Longitude, mode)
	if v, found := s.travelTimes.Get(key); found {
		return v.(time.Duration)
	}

	dist := geo.HaversineKm(from, to)
	hours := dist / mode.SpeedKmh()
	if mode == models.TransportFlight {
		// Airport overhead dominates short hops.
		hours += 2
	}
	d := time.Duration(hours * float64(time.Hour))

	s.travelTimes.Set(key, d, gocache.NoExpiration)
	return d
}

// legModeForDistance returns the traveler's preferred mode or a
// distance-derived default.
func (s *ServiceImpl) legModeForDistance(prefs models.UserPreferences, distKm float64) models.TransportMode {
	if prefs.TransportPref != "" {
		return prefs.TransportPref
	}
	return modeForDistance(distKm)
}

func modeForDistance(distKm float64) models.TransportMode {
	switch {
	case distKm <= 3:
		return models.TransportWalking
	case distKm <= 15:
		return models.TransportCycling
	case distKm <= 200:
		return models.TransportCar
	case distKm <= 700:
		return models.TransportTrain
	default:
		return models.TransportFlight
	}
}

// legCost models per-km pricing by mode, in USD.
func legCost(distKm float64, mode models.TransportMode) models.Money {
	perKm := map[models.TransportMode]float64{
		models.TransportWalking: 0,
		models.TransportCycling: 0,
		models.TransportCar:     0.45,
		models.TransportBus:     0.12,
		models.TransportTrain:   0.20,
		models.TransportFlight:  0.30,
		models.TransportFerry:   0.25,
	}
	rate, ok := perKm[mode]
	if !ok {
		rate = 0.45
	}
	amount := distKm * rate
	if mode == models.TransportFlight {
		amount += 60 // base fare floor
	}
	return models.MustMoney(amount, "USD")
}

// startPoint picks where routing begins: the traveler's start location
// when given, otherwise the first cluster centroid.
func startPoint(prefs models.UserPreferences, ordered []Cluster) models.Coordinates {
	if prefs.StartLocation != nil && prefs.StartLocation.Valid() && !prefs.StartLocation.IsZero() {
		return *prefs.StartLocation
	}
	if len(ordered) > 0 {
		return ordered[0].Centroid
	}
	return models.Coordinates{}
}
