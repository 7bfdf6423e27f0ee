package dayplan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the day planning contract.
type Service interface {
	PlanDay(ctx context.Context, dest models.SequencedDestination, date time.Time, candidates []models.Activity, prefs models.UserPreferences) (*models.ItineraryDay, error)
	OptimizeDaySchedule(ctx context.Context, day *models.ItineraryDay, prefs models.UserPreferences)
	ValidateDayPlan(ctx context.Context, day models.ItineraryDay, prefs models.UserPreferences) Report
}

// Report is the outcome of validating a single day plan.
type Report struct {
	Issues       []string `json:"issues,omitempty"`
	Satisfaction float64  `json:"satisfaction"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// pacingProfile sets activity density and scheduling slack per pace.
type pacingProfile struct {
	maxActivities int
	buffer        time.Duration
}

var pacingProfiles = map[models.PacePreference]pacingProfile{
	models.PaceRelaxed:  {maxActivities: 2, buffer: 60 * time.Minute},
	models.PaceModerate: {maxActivities: 3, buffer: 45 * time.Minute},
	models.PacePacked:   {maxActivities: 5, buffer: 20 * time.Minute},
}

// Default day window and meal times, local clock.
const (
	defaultDayStart = "09:00"
	defaultDayEnd   = "21:00"
)

type mealWindow struct {
	kind     models.MealType
	start    string
	duration time.Duration
}

var mealWindows = []mealWindow{
	{kind: models.MealBreakfast, start: "08:00", duration: 45 * time.Minute},
	{kind: models.MealLunch, start: "12:30", duration: time.Hour},
	{kind: models.MealDinner, start: "19:00", duration: 90 * time.Minute},
}

// ServiceImpl provides the implementation for the day planning Service.
type ServiceImpl struct {
	logger *zap.Logger
}

// NewService creates a day planning service.
func NewService(logger *zap.Logger) *ServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceImpl{logger: logger}
}

// PlanDay selects and times activities for one day at a destination,
// respecting the traveler's pacing, day window, and meal slots.
// Candidates are expected pre-sorted by match score, best first.
func (s *ServiceImpl) PlanDay(ctx context.Context, dest models.SequencedDestination, date time.Time, candidates []models.Activity, prefs models.UserPreferences) (*models.ItineraryDay, error) {
	_, span := otel.Tracer("DayPlanningService").Start(ctx, "PlanDay", trace.WithAttributes(
		attribute.String("destination.id", dest.ID),
		attribute.String("date", date.Format("2006-01-02")),
		attribute.Int("candidates.count", len(candidates)),
	))
	defer span.End()

	pace := prefs.Pace
	if pace == "" {
		pace = models.PaceModerate
	}
	profile := pacingProfiles[pace]

	dayStart, err := clockOn(date, orDefault(prefs.DayStart, defaultDayStart))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid day start")
		return nil, fmt.Errorf("error planning day: %w", err)
	}
	dayEnd, err := clockOn(date, orDefault(prefs.DayEnd, defaultDayEnd))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid day end")
		return nil, fmt.Errorf("error planning day: %w", err)
	}
	if !dayStart.Before(dayEnd) {
		err := &models.FieldError{Field: "day_start", Code: models.CodeInvalidRange, Message: "day start must precede day end"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid day window")
		return nil, err
	}

	day := &models.ItineraryDay{
		Date:          date,
		DestinationID: dest.ID,
		Pacing:        pace,
		Meals:         s.mealSlots(date, prefs),
	}

	// Walk the day forward, placing the best-scored candidates that fit
	// between meals and inside the window.
	cursor := dayStart
	placed := 0
	for _, candidate := range candidates {
		if placed >= profile.maxActivities {
			break
		}
		duration := candidate.EstimatedDuration()
		if duration <= 0 {
			continue
		}

		start := cursor
		end := start.Add(duration)
		// Push past any meal the slot would overlap.
		for _, meal := range day.Meals {
			if overlaps(start, end, meal.StartTime, meal.EndTime) {
				start = meal.EndTime.Add(profile.buffer / 2)
				end = start.Add(duration)
			}
		}
		if end.After(dayEnd) {
			continue
		}

		day.Activities = append(day.Activities, models.ScheduledActivity{
			Activity:  candidate,
			StartTime: start,
			EndTime:   end,
		})
		placed++
		cursor = end.Add(profile.buffer)
	}

	day.EstimatedCost = s.dayCost(day, prefs)

	s.logger.Debug("Day planned",
		zap.String("destination", dest.ID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("activities", len(day.Activities)),
	)
	span.SetAttributes(attribute.Int("activities.count", len(day.Activities)))
	span.SetStatus(codes.Ok, "Day planned")
	return day, nil
}

// OptimizeDaySchedule re-orders and tightens timing without changing the
// activity set: activities are sorted by start time and gaps compressed
// to the pacing buffer.
func (s *ServiceImpl) OptimizeDaySchedule(ctx context.Context, day *models.ItineraryDay, prefs models.UserPreferences) {
	_, span := otel.Tracer("DayPlanningService").Start(ctx, "OptimizeDaySchedule")
	defer span.End()

	if len(day.Activities) == 0 {
		span.SetStatus(codes.Ok, "Nothing to optimize")
		return
	}

	profile := pacingProfiles[day.Pacing]
	if profile.maxActivities == 0 {
		profile = pacingProfiles[models.PaceModerate]
	}

	sort.SliceStable(day.Activities, func(i, j int) bool {
		return day.Activities[i].StartTime.Before(day.Activities[j].StartTime)
	})

	cursor := day.Activities[0].StartTime
	for i := range day.Activities {
		act := &day.Activities[i]
		duration := act.EndTime.Sub(act.StartTime)

		start := cursor
		end := start.Add(duration)
		for _, meal := range day.Meals {
			if overlaps(start, end, meal.StartTime, meal.EndTime) {
				start = meal.EndTime.Add(profile.buffer / 2)
				end = start.Add(duration)
			}
		}

		act.StartTime = start
		act.EndTime = end
		cursor = end.Add(profile.buffer)
	}

	span.SetStatus(codes.Ok, "Day schedule optimized")
}

// ValidateDayPlan flags timing conflicts, budget overruns, and
// accessibility mismatches, returning a satisfaction score and
// improvement suggestions.
func (s *ServiceImpl) ValidateDayPlan(ctx context.Context, day models.ItineraryDay, prefs models.UserPreferences) Report {
	_, span := otel.Tracer("DayPlanningService").Start(ctx, "ValidateDayPlan")
	defer span.End()

	report := Report{Satisfaction: 1}

	for i := 0; i < len(day.Activities); i++ {
		for j := i + 1; j < len(day.Activities); j++ {
			a, b := day.Activities[i], day.Activities[j]
			if overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				report.Issues = append(report.Issues, fmt.Sprintf("%q overlaps %q", a.Activity.Title, b.Activity.Title))
				report.Suggestions = append(report.Suggestions, fmt.Sprintf("reschedule %q after %q ends", b.Activity.Title, a.Activity.Title))
				report.Satisfaction -= 0.25
			}
		}
		for _, meal := range day.Meals {
			a := day.Activities[i]
			if overlaps(a.StartTime, a.EndTime, meal.StartTime, meal.EndTime) {
				report.Issues = append(report.Issues, fmt.Sprintf("%q runs through %s", a.Activity.Title, meal.Type))
				report.Satisfaction -= 0.1
			}
		}
	}

	if budget := dailyBudget(prefs); budget != nil && day.EstimatedCost.Amount > budget.Amount {
		report.Issues = append(report.Issues, fmt.Sprintf("day cost %s exceeds daily budget %s", day.EstimatedCost, *budget))
		report.Suggestions = append(report.Suggestions, "swap the most expensive activity for a free alternative")
		report.Satisfaction -= 0.2
	}

	if prefs.RequiresAccessible {
		for _, a := range day.Activities {
			if !a.Activity.WheelchairAccessible {
				report.Issues = append(report.Issues, fmt.Sprintf("%q is not wheelchair accessible", a.Activity.Title))
				report.Suggestions = append(report.Suggestions, fmt.Sprintf("replace %q with an accessible option", a.Activity.Title))
				report.Satisfaction -= 0.3
			}
		}
	}

	if report.Satisfaction < 0 {
		report.Satisfaction = 0
	}

	span.SetAttributes(
		attribute.Int("issues.count", len(report.Issues)),
		attribute.Float64("satisfaction", report.Satisfaction),
	)
	span.SetStatus(codes.Ok, "Day plan validated")
	return report
}

// mealSlots builds the three daily meal windows with the traveler's
// style and per-meal budget.
func (s *ServiceImpl) mealSlots(date time.Time, prefs models.UserPreferences) []models.MealSlot {
	perMeal := 25.0 // modeled default per traveler
	if budget := dailyBudget(prefs); budget != nil {
		// Meals together get roughly a fifth of the daily budget.
		perMeal = budget.Amount * 0.20 / 3 / float64(max(prefs.Travelers, 1))
	}

	currency := prefs.BudgetCurrency
	if currency == "" {
		currency = "USD"
	}

	slots := make([]models.MealSlot, 0, len(mealWindows))
	for _, w := range mealWindows {
		start, err := clockOn(date, w.start)
		if err != nil {
			continue
		}
		slots = append(slots, models.MealSlot{
			Type:      w.kind,
			StartTime: start,
			EndTime:   start.Add(w.duration),
			Style:     prefs.MealStyle,
			Budget:    models.Money{Amount: perMeal, Currency: currency},
		})
	}
	return slots
}

// dayCost sums activity costs and meal budgets for the day.
func (s *ServiceImpl) dayCost(day *models.ItineraryDay, prefs models.UserPreferences) models.Money {
	currency := prefs.BudgetCurrency
	if currency == "" {
		currency = "USD"
	}
	total := 0.0
	for _, a := range day.Activities {
		if cost := a.Activity.EstimatedCost; cost != nil {
			total += cost.Amount * float64(max(prefs.Travelers, 1))
		}
	}
	for _, meal := range day.Meals {
		total += meal.Budget.Amount * float64(max(prefs.Travelers, 1))
	}
	return models.Money{Amount: total, Currency: currency}
}

// dailyBudget derives the whole-group daily budget from preferences.
func dailyBudget(prefs models.UserPreferences) *models.Money {
	if prefs.BudgetMax == nil {
		return nil
	}
	days := prefs.TripDurationDays()
	if days < 1 {
		return nil
	}
	currency := prefs.BudgetCurrency
	if currency == "" {
		currency = "USD"
	}
	return &models.Money{
		Amount:   *prefs.BudgetMax * float64(max(prefs.Travelers, 1)) / float64(days),
		Currency: currency,
	}
}

func clockOn(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid HH:MM value %q", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
