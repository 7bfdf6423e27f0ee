package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itinera/internal/app/domain/dayplan"
	"github.com/tripforge/itinera/internal/app/domain/matching"
	"github.com/tripforge/itinera/internal/app/domain/pricing"
	"github.com/tripforge/itinera/internal/app/domain/sequencing"
	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/pkg/cache"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	matcher, err := matching.NewService(matching.DefaultWeights(), nil)
	require.NoError(t, err)

	sequencer := sequencing.NewService(sequencing.Config{Seed: 1}, nil)
	planner := dayplan.NewService(nil)
	pricer := pricing.NewService(pricing.DefaultConfig(), nil, nil, nil)
	results := cache.NewUnifiedCache[models.GeneratedItinerary](time.Minute, "itineraries", nil)

	return New(models.DefaultEngineOptions(), matcher, sequencer, planner, pricer, results, nil)
}

func testDestinations() []models.Destination {
	return []models.Destination{
		{ID: "paris", Title: "Paris", Location: "Paris, France", Coordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, CountryCode: "FR", LocalCurrency: "EUR"},
		{ID: "lyon", Title: "Lyon", Location: "Lyon, France", Coordinates: models.Coordinates{Latitude: 45.7640, Longitude: 4.8357}, CountryCode: "FR", LocalCurrency: "EUR"},
		{ID: "marseille", Title: "Marseille", Location: "Marseille, France", Coordinates: models.Coordinates{Latitude: 43.2965, Longitude: 5.3698}, CountryCode: "FR", LocalCurrency: "EUR"},
	}
}

func testContent(activities int) []models.Component {
	out := make([]models.Component, 0, activities+1)
	categories := []models.ActivityCategory{
		models.CategoryCultural,
		models.CategorySightseeing,
		models.CategoryCulinary,
		models.CategoryNature,
	}
	for i := 0; i < activities; i++ {
		cost := models.MustMoney(15+float64(i%5)*10, "USD")
		out = append(out, models.Activity{
			BaseComponent: models.BaseComponent{
				ID:            fmt.Sprintf("act-%d", i),
				Title:         fmt.Sprintf("Museum and market visit %d", i),
				Description:   "A local art and food highlight",
				EstimatedCost: &cost,
				CreatedAt:     time.Now().UTC(),
				UpdatedAt:     time.Now().UTC(),
			},
			Category:    categories[i%len(categories)],
			Location:    "Paris",
			Coordinates: models.Coordinates{Latitude: 48.85 + float64(i)*0.001, Longitude: 2.35},
			TimeSlot:    models.TimeSlot{StartTime: "09:00", EndTime: "11:00", DurationMinutes: 120},
			Difficulty:  models.DifficultyEasy,
		})
	}

	rating := 3
	out = append(out, models.Accommodation{
		BaseComponent: models.BaseComponent{
			ID:          "acc-1",
			Title:       "Boutique Hotel",
			Description: "Small central hotel",
			CreatedAt:   time.Now().UTC(),
		},
		Kind:        models.AccommodationHotel,
		Location:    "Paris",
		Coordinates: models.Coordinates{Latitude: 48.86, Longitude: 2.34},
		StarRating:  &rating,
		RoomTypes: []models.RoomType{
			{Name: "Double", Capacity: 2, PricePerNight: models.MustMoney(110, "USD")},
		},
		CheckInTime:  "15:00",
		CheckOutTime: "11:00",
		Contact:      models.ContactInfo{Address: "5 Rue de Test, Paris"},
	})
	return out
}

func testRequest(days int) models.GenerationRequest {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	budget := 2400.0
	return models.GenerationRequest{
		Preferences: models.UserPreferences{
			StartDate:          start,
			EndDate:            start.AddDate(0, 0, days-1),
			PrimaryDestination: "Paris",
			Travelers:          4,
			BudgetMax:          &budget,
			BudgetCurrency:     "USD",
			Interests:          []string{"art", "food"},
			Pace:               models.PaceModerate,
		},
		AvailableContent: testContent(12),
		Destinations:     testDestinations(),
	}
}

func TestGenerateFullTrip(t *testing.T) {
	e := newTestEngine(t)

	result := e.Generate(context.Background(), testRequest(13))
	require.True(t, result.Success, "generation failed: %v", result.Error)
	require.NotNil(t, result.Itinerary)

	itin := result.Itinerary
	assert.Len(t, itin.Days, 13, "every trip day gets a plan")
	assert.Len(t, itin.Destinations, 3)
	assert.Greater(t, itin.TotalCost.Amount, 0.0)
	assert.Equal(t, "USD", itin.TotalCost.Currency)
	assert.Equal(t, models.ItinerarySchemaVersion, itin.SchemaVersion)
	assert.NotEmpty(t, itin.ID)
	assert.NotEmpty(t, result.CacheKey)

	assert.Equal(t, 3, itin.Summary.DestinationCount)
	assert.Greater(t, itin.Summary.ActivityCount, 0)
	assert.NotEmpty(t, itin.Summary.Highlights)

	assert.False(t, itin.Metadata.FallbackUsed)
	assert.NotEmpty(t, itin.Metadata.StageTimings)
	assert.Greater(t, itin.Metadata.ComponentsEvaluated, 0)

	for _, day := range itin.Days {
		assert.NotEmpty(t, day.DestinationID)
		assert.Len(t, day.Meals, 3)
	}
}

func TestGenerateOffersRelaxedAlternative(t *testing.T) {
	e := newTestEngine(t)

	result := e.Generate(context.Background(), testRequest(5))
	require.True(t, result.Success, "generation failed: %v", result.Error)

	var relaxed *models.GeneratedItinerary
	for i := range result.Alternatives {
		if result.Alternatives[i].Preferences.Pace == models.PaceRelaxed {
			relaxed = &result.Alternatives[i]
		}
	}
	require.NotNil(t, relaxed, "moderate-pace trip should yield a relaxed variant")
	assert.NotEqual(t, result.Itinerary.ID, relaxed.ID)
	assert.Contains(t, relaxed.Title, "(relaxed)")
	assert.Len(t, relaxed.Days, len(result.Itinerary.Days))
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Generate(ctx, testRequest(5))
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.GenerationFailed, result.Error.Code)
}

func TestGenerateUsesScoredTransportLegs(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(6)
	req.Destinations = req.Destinations[:2]
	start := models.Coordinates{Latitude: 48.86, Longitude: 2.35}
	req.Preferences.StartLocation = &start

	cost := models.MustMoney(79, "USD")
	req.AvailableContent = append(req.AvailableContent, models.Transportation{
		BaseComponent: models.BaseComponent{
			ID:            "trn-1",
			Title:         "Paris to Lyon high-speed rail",
			Description:   "Direct rail connection",
			EstimatedCost: &cost,
			CreatedAt:     time.Now().UTC(),
		},
		Mode:            models.TransportTrain,
		FromLocation:    "Paris",
		ToLocation:      "Lyon",
		FromCoordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522},
		ToCoordinates:   models.Coordinates{Latitude: 45.7640, Longitude: 4.8357},
		DepartureTime:   time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC),
		ArrivalTime:     time.Date(2026, 10, 3, 11, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
		Carrier:         "SNCF",
	})

	result := e.Generate(context.Background(), req)
	require.True(t, result.Success, "generation failed: %v", result.Error)

	var legs []models.TransportLeg
	for _, day := range result.Itinerary.Days {
		legs = append(legs, day.Transportation...)
	}
	require.NotEmpty(t, legs)

	found := false
	for _, leg := range legs {
		if leg.Cost.Amount == 79.0 {
			found = true
			assert.Equal(t, models.TransportTrain, leg.Mode)
			assert.Equal(t, 2*time.Hour, leg.Duration)
		}
	}
	assert.True(t, found, "rail component should supply the inbound leg")
}

func TestGenerateServesFromCache(t *testing.T) {
	e := newTestEngine(t)
	req := testRequest(5)

	first := e.Generate(context.Background(), req)
	require.True(t, first.Success)
	assert.False(t, first.Metadata.CacheHit)

	second := e.Generate(context.Background(), req)
	require.True(t, second.Success)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Itinerary.ID, second.Itinerary.ID)
}

func TestGenerateRejectsInvalidDates(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(5)
	req.Preferences.StartDate, req.Preferences.EndDate = req.Preferences.EndDate, req.Preferences.StartDate

	result := e.Generate(context.Background(), req)
	assert.False(t, result.Success)
	assert.Nil(t, result.Itinerary)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.GenerationValidationFailed, result.Error.Code)

	var verr *models.ValidationError
	require.ErrorAs(t, result.Error, &verr)
	assert.True(t, verr.HasCode(models.CodeInvalidDateRange))
}

func TestGenerateRejectsMissingTravelers(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(5)
	req.Preferences.Travelers = 0

	result := e.Generate(context.Background(), req)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.GenerationValidationFailed, result.Error.Code)
}

func TestGenerateFailsWithoutContent(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(5)
	req.AvailableContent = nil

	result := e.Generate(context.Background(), req)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.GenerationFailed, result.Error.Code)
}

func TestGenerateFailsWithoutDestinations(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(5)
	req.Destinations = nil

	result := e.Generate(context.Background(), req)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.GenerationFailed, result.Error.Code)
}

func TestGenerateSequentialMatchesParallel(t *testing.T) {
	e := newTestEngine(t)

	req := testRequest(6)
	opts := models.DefaultEngineOptions()
	opts.EnableParallelProcessing = false
	opts.CacheEnabled = false
	req.Options = &opts

	result := e.Generate(context.Background(), req)
	require.True(t, result.Success, "generation failed: %v", result.Error)
	assert.Len(t, result.Itinerary.Days, 6)
}

func TestValidatePreferences(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	valid := models.UserPreferences{
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 4),
		PrimaryDestination: "Paris",
		Travelers:          2,
	}
	assert.Nil(t, ValidatePreferences(valid))

	tests := []struct {
		name     string
		mutate   func(*models.UserPreferences)
		wantCode string
	}{
		{
			name:     "start after end",
			mutate:   func(p *models.UserPreferences) { p.StartDate = p.EndDate.AddDate(0, 0, 1) },
			wantCode: models.CodeInvalidDateRange,
		},
		{
			name:     "trip too long",
			mutate:   func(p *models.UserPreferences) { p.EndDate = p.StartDate.AddDate(0, 0, 40) },
			wantCode: models.CodeTripTooLong,
		},
		{
			name:     "no destination",
			mutate:   func(p *models.UserPreferences) { p.PrimaryDestination = "  " },
			wantCode: models.CodeRequired,
		},
		{
			name:     "no travelers",
			mutate:   func(p *models.UserPreferences) { p.Travelers = 0 },
			wantCode: models.CodeNoTravelers,
		},
		{
			name: "inverted budget",
			mutate: func(p *models.UserPreferences) {
				lo, hi := 900.0, 100.0
				p.BudgetMin, p.BudgetMax = &lo, &hi
			},
			wantCode: models.CodeInvalidBudget,
		},
		{
			name:     "bad currency",
			mutate:   func(p *models.UserPreferences) { p.BudgetCurrency = "NOPE" },
			wantCode: models.CodeInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := valid
			tt.mutate(&prefs)
			verr := ValidatePreferences(prefs)
			require.NotNil(t, verr)
			assert.True(t, verr.HasCode(tt.wantCode), "expected %s in %v", tt.wantCode, verr.Errors)
		})
	}
}

func TestBuildSummaryLabels(t *testing.T) {
	itin := &models.GeneratedItinerary{
		Destinations: []models.SequencedDestination{{Destination: models.Destination{ID: "paris"}}},
		Days: []models.ItineraryDay{
			{
				Activities: []models.ScheduledActivity{
					{Activity: models.Activity{
						BaseComponent: models.BaseComponent{ID: "a", Title: "Cathedral tour"},
						Category:      models.CategoryCultural,
						Difficulty:    models.DifficultyEasy,
					}},
					{Activity: models.Activity{
						BaseComponent: models.BaseComponent{ID: "b", Title: "Mountain trek"},
						Category:      models.CategoryAdventure,
						Difficulty:    models.DifficultyChallenging,
					}},
				},
			},
		},
	}

	summary := buildSummary(itin)
	assert.Equal(t, 1, summary.DestinationCount)
	assert.Equal(t, 2, summary.ActivityCount)
	assert.Contains(t, summary.Highlights, "Cathedral tour")
	assert.Equal(t, "moderate", summary.PhysicalDemand)
	assert.Equal(t, "moderate", summary.CulturalImmersion)
}

func TestSplitComponents(t *testing.T) {
	content := testContent(3)
	activities, accommodations, transports := splitComponents(content)

	assert.Len(t, activities, 3)
	assert.Len(t, accommodations, 1)
	assert.Empty(t, transports)
}
