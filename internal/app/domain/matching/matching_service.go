package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	aho_corasick "github.com/petar-dambovaliev/aho-corasick"
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

// Service defines the preference matching contract. All methods are pure
// with respect to a single request.
type Service interface {
	AnalyzePreferences(ctx context.Context, prefs models.UserPreferences) (*Criteria, error)
	ScoreContent(ctx context.Context, items []models.Component, criteria *Criteria) []models.ContentMatchScore
	ScoreDestinations(ctx context.Context, dests []models.Destination, criteria *Criteria) []models.ContentMatchScore
	FilterByScore(scores []models.ContentMatchScore, threshold float64) []models.ContentMatchScore
}

// Weights distributes scoring emphasis across criteria, in percent.
// They must sum to 100.
type Weights struct {
	Interests     int
	Budget        int
	Location      int
	Timing        int
	Difficulty    int
	Accessibility int
}

// DefaultWeights returns the documented default distribution.
func DefaultWeights() Weights {
	return Weights{
		Interests:     35,
		Budget:        25,
		Location:      20,
		Timing:        10,
		Difficulty:    5,
		Accessibility: 5,
	}
}

// Sum returns the weight total, which must be 100 for a valid config.
func (w Weights) Sum() int {
	return w.Interests + w.Budget + w.Location + w.Timing + w.Difficulty + w.Accessibility
}

// Criteria is the weighted criteria vector extracted from preferences.
type Criteria struct {
	Weights            Weights
	InterestKeywords   []string
	BudgetPerDay       *models.Money
	TargetLocation     *models.Coordinates
	TravelWindow       models.DateRange
	TravelSeason       models.Season
	Pace               models.PacePreference
	RequiresAccessible bool
	CreatedAtTieBreak  bool

	automaton *aho_corasick.AhoCorasick
}

// ServiceImpl provides the implementation for the matching Service.
type ServiceImpl struct {
	logger  *zap.Logger
	weights Weights
}

// NewService creates a matching service with the given weights.
// Zero-valued weights fall back to the defaults.
func NewService(weights Weights, logger *zap.Logger) (*ServiceImpl, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if weights.Sum() != 100 {
		return nil, fmt.Errorf("criteria weights must sum to 100, got %d", weights.Sum())
	}
	return &ServiceImpl{logger: logger, weights: weights}, nil
}

// AnalyzePreferences extracts a weighted criteria vector from the
// traveler's preferences.
func (s *ServiceImpl) AnalyzePreferences(ctx context.Context, prefs models.UserPreferences) (*Criteria, error) {
	_, span := otel.Tracer("MatchingService").Start(ctx, "AnalyzePreferences", trace.WithAttributes(
		attribute.Int("interests.count", len(prefs.Interests)),
		attribute.Int("travelers", prefs.Travelers),
	))
	defer span.End()

	c := &Criteria{
		Weights:            s.weights,
		TravelWindow:       prefs.TravelWindow(),
		TravelSeason:       models.SeasonOf(prefs.StartDate.Month()),
		Pace:               prefs.Pace,
		RequiresAccessible: prefs.RequiresAccessible,
		CreatedAtTieBreak:  true,
	}
	if c.Pace == "" {
		c.Pace = models.PaceModerate
	}

	for _, interest := range prefs.Interests {
		kw := strings.ToLower(strings.TrimSpace(interest))
		if kw != "" {
			c.InterestKeywords = append(c.InterestKeywords, kw)
		}
	}
	if len(c.InterestKeywords) > 0 {
		builder := aho_corasick.NewAhoCorasickBuilder(aho_corasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  false,
			MatchKind:            aho_corasick.LeftMostLongestMatch,
		})
		ac := builder.Build(c.InterestKeywords)
		c.automaton = &ac
	}

	if prefs.BudgetMax != nil && prefs.TripDurationDays() > 0 {
		currency := prefs.BudgetCurrency
		if currency == "" {
			currency = "USD"
		}
		perDay := *prefs.BudgetMax * float64(prefs.Travelers) / float64(prefs.TripDurationDays())
		budget, err := models.NewMoney(perDay, currency)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid budget currency")
			return nil, fmt.Errorf("error analyzing preferences: %w", err)
		}
		c.BudgetPerDay = &budget
	}

	if prefs.StartLocation != nil && prefs.StartLocation.Valid() && !prefs.StartLocation.IsZero() {
		c.TargetLocation = prefs.StartLocation
	}

	span.SetStatus(codes.Ok, "Criteria extracted")
	return c, nil
}

// ScoreContent computes a 0..1 score for each content item by combining
// per-criterion sub-scores with the configured weights. Output is sorted
// by score descending; ties break toward more recent CreatedAt.
func (s *ServiceImpl) ScoreContent(ctx context.Context, items []models.Component, criteria *Criteria) []models.ContentMatchScore {
	_, span := otel.Tracer("MatchingService").Start(ctx, "ScoreContent", trace.WithAttributes(
		attribute.Int("items.count", len(items)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "ScoreContent"), zap.Int("items", len(items)))

	scores := make([]models.ContentMatchScore, 0, len(items))
	order := make(map[string]int, len(items)) // contentID -> item index for tie-breaking
	for i, item := range items {
		score, rationale := s.scoreOne(item, criteria)
		scores = append(scores, models.ContentMatchScore{
			ContentID: item.Base().ID,
			Score:     score,
			Rationale: rationale,
		})
		order[item.Base().ID] = i
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		a := items[order[scores[i].ContentID]].Base()
		b := items[order[scores[j].ContentID]].Base()
		return a.CreatedAt.After(b.CreatedAt)
	})

	l.Debug("Content scored")
	span.SetStatus(codes.Ok, "Content scored")
	return scores
}

// ScoreDestinations scores candidate destinations. Destinations have no
// cost or schedule, so only interest and location criteria apply; the
// remaining weight contributes a neutral sub-score.
func (s *ServiceImpl) ScoreDestinations(ctx context.Context, dests []models.Destination, criteria *Criteria) []models.ContentMatchScore {
	_, span := otel.Tracer("MatchingService").Start(ctx, "ScoreDestinations", trace.WithAttributes(
		attribute.Int("destinations.count", len(dests)),
	))
	defer span.End()

	w := criteria.Weights
	scores := make([]models.ContentMatchScore, 0, len(dests))
	for _, d := range dests {
		text := strings.ToLower(d.Title + " " + d.Location)
		interest, matched := criteria.interestScore(text)
		location := criteria.locationScore(d.Coordinates)
		neutralWeight := float64(w.Budget+w.Timing+w.Difficulty+w.Accessibility) / 100

		score := clamp01(float64(w.Interests)/100*interest +
			float64(w.Location)/100*location +
			neutralWeight*0.5)

		rationale := fmt.Sprintf("destination match: interests %.2f, proximity %.2f", interest, location)
		if len(matched) > 0 {
			rationale += "; matched " + strings.Join(matched, ", ")
		}
		scores = append(scores, models.ContentMatchScore{ContentID: d.ID, Score: score, Rationale: rationale})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	span.SetStatus(codes.Ok, "Destinations scored")
	return scores
}

// FilterByScore keeps scores at or above the threshold.
func (s *ServiceImpl) FilterByScore(scores []models.ContentMatchScore, threshold float64) []models.ContentMatchScore {
	kept := make([]models.ContentMatchScore, 0, len(scores))
	for _, sc := range scores {
		if sc.Score >= threshold {
			kept = append(kept, sc)
		}
	}
	return kept
}

// scoreOne combines the per-criterion sub-scores for a single component.
func (s *ServiceImpl) scoreOne(item models.Component, c *Criteria) (float64, string) {
	base := item.Base()
	w := c.Weights

	text := strings.ToLower(base.Title + " " + base.Description + " " + strings.Join(base.Tags, " "))
	interest, matched := c.interestScore(text)
	budget := c.budgetScore(item)
	location := c.locationScore(componentCoordinates(item))
	timing := c.timingScore(item)
	difficulty := c.difficultyScore(item)
	accessibility := c.accessibilityScore(item)

	score := clamp01(float64(w.Interests)/100*interest +
		float64(w.Budget)/100*budget +
		float64(w.Location)/100*location +
		float64(w.Timing)/100*timing +
		float64(w.Difficulty)/100*difficulty +
		float64(w.Accessibility)/100*accessibility)

	rationale := fmt.Sprintf("interests %.2f, budget %.2f, location %.2f, timing %.2f, difficulty %.2f, accessibility %.2f",
		interest, budget, location, timing, difficulty, accessibility)
	if len(matched) > 0 {
		rationale += "; matched " + strings.Join(matched, ", ")
	}
	return score, rationale
}

// interestScore scans the text with the interest automaton and returns
// the fraction of distinct interests found plus the matched keywords.
// With no stated interests every item scores neutral.
func (c *Criteria) interestScore(text string) (float64, []string) {
	if len(c.InterestKeywords) == 0 || c.automaton == nil {
		return 0.5, nil
	}
	found := make(map[int]bool)
	for _, m := range c.automaton.FindAll(text) {
		found[m.Pattern()] = true
	}
	if len(found) == 0 {
		return 0, nil
	}
	matched := make([]string, 0, len(found))
	for idx := range found {
		matched = append(matched, c.InterestKeywords[idx])
	}
	sort.Strings(matched)
	return clamp01(float64(len(found)) / float64(len(c.InterestKeywords))), matched
}

// budgetScore compares the component cost against the daily budget.
func (c *Criteria) budgetScore(item models.Component) float64 {
	cost := item.Base().EstimatedCost
	if cost == nil {
		return 0.5
	}
	if c.BudgetPerDay == nil {
		return 0.7 // priced content with no stated budget is mildly positive
	}
	if c.BudgetPerDay.Amount <= 0 {
		return 0.5
	}
	ratio := cost.Amount / c.BudgetPerDay.Amount
	switch {
	case ratio <= 0.25:
		return 1
	case ratio <= 0.5:
		return 0.8
	case ratio <= 1:
		return 0.5
	case ratio <= 1.5:
		return 0.2
	default:
		return 0
	}
}

// locationScore decays linearly with distance from the target location,
// reaching zero at 500 km.
func (c *Criteria) locationScore(coords models.Coordinates) float64 {
	if c.TargetLocation == nil || coords.IsZero() || !coords.Valid() {
		return 0.5
	}
	dist := geo.HaversineKm(*c.TargetLocation, coords)
	return clamp01(1 - dist/500)
}

// timingScore checks availability inside the travel window.
func (c *Criteria) timingScore(item models.Component) float64 {
	if c.TravelWindow.Start.IsZero() {
		return 0.5
	}
	if item.IsAvailable(c.TravelWindow) {
		return 1
	}
	return 0
}

// difficultyScore aligns activity difficulty with the traveler's pace.
func (c *Criteria) difficultyScore(item models.Component) float64 {
	activity, ok := item.(models.Activity)
	if !ok {
		return 0.5
	}
	tolerated := map[models.PacePreference]map[models.DifficultyLevel]float64{
		models.PaceRelaxed: {
			models.DifficultyEasy:        1,
			models.DifficultyModerate:    0.6,
			models.DifficultyChallenging: 0.2,
			models.DifficultyExtreme:     0,
		},
		models.PaceModerate: {
			models.DifficultyEasy:        0.8,
			models.DifficultyModerate:    1,
			models.DifficultyChallenging: 0.6,
			models.DifficultyExtreme:     0.2,
		},
		models.PacePacked: {
			models.DifficultyEasy:        0.6,
			models.DifficultyModerate:    0.9,
			models.DifficultyChallenging: 1,
			models.DifficultyExtreme:     0.5,
		},
	}
	if scores, ok := tolerated[c.Pace]; ok {
		if v, ok := scores[activity.Difficulty]; ok {
			return v
		}
	}
	return 0.5
}

// accessibilityScore fails items that cannot host an accessible group.
func (c *Criteria) accessibilityScore(item models.Component) float64 {
	if !c.RequiresAccessible {
		return 1
	}
	if activity, ok := item.(models.Activity); ok {
		if activity.WheelchairAccessible {
			return 1
		}
		return 0
	}
	return 0.8
}

// componentCoordinates extracts the representative point of a component.
func componentCoordinates(item models.Component) models.Coordinates {
	switch v := item.(type) {
	case models.Activity:
		return v.Coordinates
	case models.Accommodation:
		return v.Coordinates
	case models.Transportation:
		return v.FromCoordinates
	default:
		return models.Coordinates{}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
