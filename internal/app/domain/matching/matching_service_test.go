package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itinera/internal/app/models"
)

func testPrefs() models.UserPreferences {
	budget := 200.0
	return models.UserPreferences{
		StartDate:          time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		PrimaryDestination: "Paris",
		Travelers:          2,
		BudgetMax:          &budget,
		BudgetCurrency:     "USD",
		Interests:          []string{"art", "food"},
		Pace:               models.PaceModerate,
	}
}

func makeActivity(id, title, desc string, cost float64, created time.Time) models.Activity {
	var money *models.Money
	if cost > 0 {
		m := models.MustMoney(cost, "USD")
		money = &m
	}
	return models.Activity{
		BaseComponent: models.BaseComponent{
			ID:            id,
			Title:         title,
			Description:   desc,
			EstimatedCost: money,
			CreatedAt:     created,
			UpdatedAt:     created,
		},
		Category:    models.CategoryCultural,
		Location:    "Paris",
		Coordinates: models.Coordinates{Latitude: 48.85, Longitude: 2.35},
		TimeSlot:    models.TimeSlot{StartTime: "10:00", EndTime: "12:00", DurationMinutes: 120},
		Difficulty:  models.DifficultyModerate,
	}
}

func TestNewServiceRejectsBadWeights(t *testing.T) {
	w := DefaultWeights()
	w.Interests += 10

	_, err := NewService(w, nil)
	assert.Error(t, err)

	_, err = NewService(DefaultWeights(), nil)
	assert.NoError(t, err)
}

func TestAnalyzePreferencesBuildsCriteria(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	criteria, err := svc.AnalyzePreferences(context.Background(), testPrefs())
	require.NoError(t, err)

	assert.Equal(t, []string{"art", "food"}, criteria.InterestKeywords)
	require.NotNil(t, criteria.BudgetPerDay)
	// 200 per person x 2 travelers over 10 days
	assert.InDelta(t, 40.0, criteria.BudgetPerDay.Amount, 0.001)
	assert.Equal(t, models.SeasonAutumn, criteria.TravelSeason)
}

func TestScoreContentPrefersInterestMatches(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	criteria, err := svc.AnalyzePreferences(context.Background(), testPrefs())
	require.NoError(t, err)

	now := time.Now().UTC()
	matchBoth := makeActivity("a1", "Art and food walk", "Combines street art and local food stalls", 20, now)
	matchOne := makeActivity("a2", "Modern art tour", "Gallery visits", 20, now)
	matchNone := makeActivity("a3", "Kayak rental", "Paddle along the river", 20, now)

	scores := svc.ScoreContent(context.Background(), []models.Component{matchNone, matchOne, matchBoth}, criteria)
	require.Len(t, scores, 3)

	assert.Equal(t, "a1", scores[0].ContentID)
	assert.Equal(t, "a2", scores[1].ContentID)
	assert.Equal(t, "a3", scores[2].ContentID)
	assert.Greater(t, scores[0].Score, scores[2].Score)
	assert.Contains(t, scores[0].Rationale, "matched")
}

func TestScoreContentTieBreaksByRecency(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	criteria, err := svc.AnalyzePreferences(context.Background(), testPrefs())
	require.NoError(t, err)

	older := makeActivity("old", "Art museum", "Classic art collection", 20, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := makeActivity("new", "Art museum", "Classic art collection", 20, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	scores := svc.ScoreContent(context.Background(), []models.Component{older, newer}, criteria)
	require.Len(t, scores, 2)
	assert.Equal(t, scores[0].Score, scores[1].Score)
	assert.Equal(t, "new", scores[0].ContentID, "identical scores break toward the newer item")
}

func TestFilterByScore(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	scores := []models.ContentMatchScore{
		{ContentID: "a", Score: 0.9},
		{ContentID: "b", Score: 0.5},
		{ContentID: "c", Score: 0.49},
	}

	kept := svc.FilterByScore(scores, 0.5)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ContentID)
	assert.Equal(t, "b", kept[1].ContentID)
}

func TestScoreDestinations(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	criteria, err := svc.AnalyzePreferences(context.Background(), testPrefs())
	require.NoError(t, err)

	dests := []models.Destination{
		{ID: "d1", Title: "Food market district", Location: "Lyon", Coordinates: models.Coordinates{Latitude: 45.76, Longitude: 4.83}},
		{ID: "d2", Title: "Industrial port", Location: "Le Havre", Coordinates: models.Coordinates{Latitude: 49.49, Longitude: 0.1}},
	}

	scores := svc.ScoreDestinations(context.Background(), dests, criteria)
	require.Len(t, scores, 2)
	assert.Equal(t, "d1", scores[0].ContentID, "interest-matching destination ranks first")
	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
}

func TestAccessibilityScoring(t *testing.T) {
	svc, err := NewService(DefaultWeights(), nil)
	require.NoError(t, err)

	prefs := testPrefs()
	prefs.RequiresAccessible = true
	criteria, err := svc.AnalyzePreferences(context.Background(), prefs)
	require.NoError(t, err)

	now := time.Now().UTC()
	accessible := makeActivity("yes", "Art museum", "Wheelchair friendly galleries", 20, now)
	accessible.WheelchairAccessible = true
	inaccessible := makeActivity("no", "Art museum", "Wheelchair friendly galleries", 20, now)

	scores := svc.ScoreContent(context.Background(), []models.Component{inaccessible, accessible}, criteria)
	require.Len(t, scores, 2)
	assert.Equal(t, "yes", scores[0].ContentID)
	assert.Greater(t, scores[0].Score, scores[1].Score)
}
