package sequencing

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itinera/internal/app/models"
)

// Real-world coordinates keep the distance math honest.
var (
	paris      = models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	versailles = models.Coordinates{Latitude: 48.8049, Longitude: 2.1204}
	lyon       = models.Coordinates{Latitude: 45.7640, Longitude: 4.8357}
	avignon    = models.Coordinates{Latitude: 43.9493, Longitude: 4.8055}
	marseille  = models.Coordinates{Latitude: 43.2965, Longitude: 5.3698}
	nice       = models.Coordinates{Latitude: 43.7102, Longitude: 7.2620}
)

func dest(id, title string, c models.Coordinates) models.Destination {
	return models.Destination{ID: id, Title: title, Location: title, Coordinates: c, CountryCode: "FR"}
}

func seqPrefs(days int) models.UserPreferences {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return models.UserPreferences{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, days-1),
		PrimaryDestination: "France",
		Travelers:          2,
	}
}

func TestClusterDestinationsGroupsByRadius(t *testing.T) {
	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("versailles", "Versailles", versailles),
		dest("marseille", "Marseille", marseille),
		dest("avignon", "Avignon", avignon),
	}

	clusters := clusterDestinations(dests, 100)
	require.Len(t, clusters, 2, "Paris/Versailles and Marseille/Avignon each fit one 100km cluster")

	sizes := []int{len(clusters[0].Destinations), len(clusters[1].Destinations)}
	assert.ElementsMatch(t, []int{2, 2}, sizes)
}

func TestClusterDestinationsTinyRadius(t *testing.T) {
	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("lyon", "Lyon", lyon),
		dest("nice", "Nice", nice),
	}

	clusters := clusterDestinations(dests, 1)
	assert.Len(t, clusters, 3, "every distant destination seeds its own cluster")
}

func TestNearestNeighborOrder(t *testing.T) {
	dests := []models.Destination{
		dest("nice", "Nice", nice),
		dest("paris", "Paris", paris),
		dest("lyon", "Lyon", lyon),
	}

	ordered := nearestNeighborOrder(dests, paris)
	require.Len(t, ordered, 3)
	assert.Equal(t, "paris", ordered[0].ID)
	assert.Equal(t, "lyon", ordered[1].ID)
	assert.Equal(t, "nice", ordered[2].ID)
}

func TestGeneticOptimizerHistoryIsMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// Ten points on a line; the optimal tour visits them in order.
	points := make([]float64, 10)
	for i := range points {
		points[i] = float64(i)
	}
	fitness := func(order []int) float64 {
		total := 0.0
		for i := 1; i < len(order); i++ {
			d := points[order[i]] - points[order[i-1]]
			if d < 0 {
				d = -d
			}
			total += d
		}
		return 1000 - total
	}

	opt := newGeneticOptimizer(10, 0.10, rng, fitness)
	best, history := opt.Run(context.Background())

	require.Len(t, best, 10)
	seen := make(map[int]bool)
	for _, idx := range best {
		assert.False(t, seen[idx], "ordering must be a permutation")
		seen[idx] = true
	}

	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i], history[i-1], "elitism keeps the best fitness from regressing")
	}
	assert.GreaterOrEqual(t, history[len(history)-1], history[0])
}

func TestOrderCrossoverProducesPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opt := newGeneticOptimizer(8, 0.10, rng, func([]int) float64 { return 0 })

	a := rng.Perm(8)
	b := rng.Perm(8)
	for i := 0; i < 50; i++ {
		child := opt.orderCrossover(a, b)
		seen := make(map[int]bool, 8)
		for _, gene := range child {
			require.False(t, seen[gene])
			require.GreaterOrEqual(t, gene, 0)
			require.Less(t, gene, 8)
			seen[gene] = true
		}
	}
}

func TestSequenceDestinationsAllocatesAllDays(t *testing.T) {
	svc := NewService(Config{Seed: 1}, nil)
	prefs := seqPrefs(10)

	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("lyon", "Lyon", lyon),
		dest("marseille", "Marseille", marseille),
	}

	seq, err := svc.SequenceDestinations(context.Background(), dests, prefs)
	require.NoError(t, err)
	require.Len(t, seq, 3)

	totalDays := 0
	for i, sd := range seq {
		assert.Equal(t, i, sd.SequenceOrder)
		assert.GreaterOrEqual(t, sd.DaysAllocated, 1)
		totalDays += sd.DaysAllocated
		if i > 0 {
			require.NotNil(t, sd.TransportToPrevious)
			assert.Greater(t, sd.TravelTimeFromPrevious, time.Duration(0))
		}
	}
	assert.Equal(t, 10, totalDays, "every trip day is allocated")

	// Dates are contiguous.
	for i := 1; i < len(seq); i++ {
		expected := seq[i-1].DepartureDate.AddDate(0, 0, 1)
		assert.Equal(t, expected, seq[i].ArrivalDate)
	}
}

func TestSequenceDestinationsTruncatesWhenTripTooShort(t *testing.T) {
	svc := NewService(Config{Seed: 1}, nil)
	prefs := seqPrefs(2)

	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("lyon", "Lyon", lyon),
		dest("marseille", "Marseille", marseille),
	}

	seq, err := svc.SequenceDestinations(context.Background(), dests, prefs)
	require.NoError(t, err)
	assert.Len(t, seq, 2, "a two-day trip fits at most two stops")
}

func TestSequenceDestinationsEmptyInput(t *testing.T) {
	svc := NewService(Config{}, nil)
	_, err := svc.SequenceDestinations(context.Background(), nil, seqPrefs(5))
	assert.ErrorIs(t, err, models.ErrNoDestinations)
}

func TestEstimateLeg(t *testing.T) {
	svc := NewService(Config{Seed: 1}, nil)

	leg := svc.EstimateLeg(paris, lyon, models.TransportTrain)
	assert.Equal(t, models.TransportTrain, leg.Mode)
	assert.InDelta(t, 392, leg.DistanceKm, 10, "Paris-Lyon is roughly 390km great-circle")
	assert.InDelta(t, (leg.DistanceKm/80)*float64(time.Hour), float64(leg.Duration), float64(time.Minute))
	assert.Greater(t, leg.Cost.Amount, 0.0)
	assert.Equal(t, "USD", leg.Cost.Currency)

	flight := svc.EstimateLeg(paris, nice, models.TransportFlight)
	assert.Greater(t, flight.Duration, 2*time.Hour, "flights carry airport overhead")
}

func TestModeForDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want models.TransportMode
	}{
		{2, models.TransportWalking},
		{10, models.TransportCycling},
		{150, models.TransportCar},
		{500, models.TransportTrain},
		{900, models.TransportFlight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, modeForDistance(tt.km))
	}
}

func TestValidateSequenceFlagsExcessiveTravel(t *testing.T) {
	svc := NewService(Config{Seed: 1}, nil)
	prefs := seqPrefs(4)
	prefs.MaxTravelTimePerDay = time.Hour

	start := prefs.StartDate
	seq := []models.SequencedDestination{
		{
			Destination:   dest("paris", "Paris", paris),
			ArrivalDate:   start,
			DepartureDate: start.AddDate(0, 0, 1),
			DaysAllocated: 2,
		},
		{
			Destination:            dest("marseille", "Marseille", marseille),
			SequenceOrder:          1,
			ArrivalDate:            start.AddDate(0, 0, 2),
			DepartureDate:          start.AddDate(0, 0, 3),
			DaysAllocated:          2,
			TravelTimeFromPrevious: 5 * time.Hour,
		},
	}

	issues := svc.ValidateSequence(context.Background(), seq, prefs)

	var warned bool
	for _, issue := range issues {
		if issue.Code == models.IssueExcessiveTravelTime {
			warned = true
			assert.Equal(t, models.SeverityWarning, issue.Severity)
			assert.Equal(t, []string{"paris", "marseille"}, issue.DestinationIDs)
		}
	}
	assert.True(t, warned, "5h leg against a 1h cap must warn")
	assert.False(t, HasBlockingIssues(issues), "warnings alone do not block")
}

func TestValidateSequenceBlocksOnErrors(t *testing.T) {
	svc := NewService(Config{Seed: 1}, nil)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	seq := []models.SequencedDestination{
		{
			Destination:   dest("paris", "Paris", paris),
			ArrivalDate:   start.AddDate(0, 0, 3),
			DepartureDate: start,
			DaysAllocated: 0,
		},
	}

	issues := svc.ValidateSequence(context.Background(), seq, seqPrefs(4))
	assert.True(t, HasBlockingIssues(issues))

	codes := make(map[string]bool)
	for _, issue := range issues {
		codes[issue.Code] = true
	}
	assert.True(t, codes[models.IssueArrivalAfterDeparture])
	assert.True(t, codes[models.IssueNoDaysAllocated])
}

func TestGeneticOptimizerStopsWhenCancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	opt := newGeneticOptimizer(10, 0.10, rng, func(order []int) float64 { return float64(order[0]) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	best, history := opt.Run(ctx)

	require.Len(t, best, 10)
	assert.Empty(t, history, "no generations run after cancellation")
}

func TestSequenceDestinationsConcurrentUse(t *testing.T) {
	svc := NewService(Config{Seed: 5}, nil)

	// Seven stops in one cluster, enough to take the genetic path.
	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("versailles", "Versailles", versailles),
		dest("stdenis", "Saint-Denis", models.Coordinates{Latitude: 48.9362, Longitude: 2.3574}),
		dest("meaux", "Meaux", models.Coordinates{Latitude: 48.9608, Longitude: 2.8789}),
		dest("chartres", "Chartres", models.Coordinates{Latitude: 48.4439, Longitude: 1.4893}),
		dest("fontainebleau", "Fontainebleau", models.Coordinates{Latitude: 48.4047, Longitude: 2.7016}),
		dest("compiegne", "Compiegne", models.Coordinates{Latitude: 49.4179, Longitude: 2.8261}),
	}
	prefs := seqPrefs(14)

	const workers = 4
	results := make([][]models.SequencedDestination, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			seq, err := svc.SequenceDestinations(context.Background(), dests, prefs)
			assert.NoError(t, err)
			results[w] = seq
		}(w)
	}
	wg.Wait()

	// Each call derives its own generator from the seed, so concurrent
	// callers get identical, deterministic sequences.
	for w := 1; w < workers; w++ {
		require.Equal(t, len(results[0]), len(results[w]))
		for i := range results[0] {
			assert.Equal(t, results[0][i].ID, results[w][i].ID)
		}
	}
}

func TestSequenceIsReproducibleWithSeed(t *testing.T) {
	dests := []models.Destination{
		dest("paris", "Paris", paris),
		dest("versailles", "Versailles", versailles),
		dest("lyon", "Lyon", lyon),
		dest("marseille", "Marseille", marseille),
		dest("nice", "Nice", nice),
	}
	prefs := seqPrefs(15)

	first, err := NewService(Config{Seed: 99}, nil).SequenceDestinations(context.Background(), dests, prefs)
	require.NoError(t, err)
	second, err := NewService(Config{Seed: 99}, nil).SequenceDestinations(context.Background(), dests, prefs)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].DaysAllocated, second[i].DaysAllocated)
	}
}
