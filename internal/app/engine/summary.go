package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
)

// maxHighlights caps the summary highlight list.
const maxHighlights = 5

// buildSummary derives the at-a-glance summary from the assembled days.
func buildSummary(itin *models.GeneratedItinerary) models.ItinerarySummary {
	type ranked struct {
		title    string
		priority int
	}
	var all []ranked
	activityCount := 0
	demandScore := 0.0
	cultural := 0

	for _, day := range itin.Days {
		for _, sa := range day.Activities {
			activityCount++
			all = append(all, ranked{title: sa.Activity.Title, priority: sa.Activity.Priority()})
			switch sa.Activity.Difficulty {
			case models.DifficultyModerate:
				demandScore += 1
			case models.DifficultyChallenging:
				demandScore += 2
			case models.DifficultyExtreme:
				demandScore += 3
			}
			switch sa.Activity.Category {
			case models.CategoryCultural, models.CategorySightseeing, models.CategoryCulinary:
				cultural++
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].priority > all[j].priority })
	seen := make(map[string]bool, maxHighlights)
	var highlights []string
	for _, r := range all {
		if seen[r.title] {
			continue
		}
		seen[r.title] = true
		highlights = append(highlights, r.title)
		if len(highlights) == maxHighlights {
			break
		}
	}

	return models.ItinerarySummary{
		Highlights:        highlights,
		DestinationCount:  len(itin.Destinations),
		ActivityCount:     activityCount,
		PhysicalDemand:    demandLabel(demandScore, activityCount),
		CulturalImmersion: immersionLabel(cultural, activityCount),
	}
}

// demandLabel maps the mean difficulty weight to a coarse label.
func demandLabel(score float64, count int) string {
	if count == 0 {
		return "low"
	}
	switch avg := score / float64(count); {
	case avg >= 1.5:
		return "high"
	case avg >= 0.5:
		return "moderate"
	default:
		return "low"
	}
}

// immersionLabel maps the cultural-activity fraction to a coarse label.
func immersionLabel(cultural, count int) string {
	if count == 0 {
		return "low"
	}
	switch frac := float64(cultural) / float64(count); {
	case frac >= 0.6:
		return "high"
	case frac >= 0.3:
		return "moderate"
	default:
		return "low"
	}
}

// generateAlternatives produces optional variants of a successful
// itinerary: a cheaper one via budget optimization, and a lighter one
// with the day schedules replanned at a relaxed pace. Failures here are
// logged and swallowed; alternatives are never load-bearing.
func (e *Engine) generateAlternatives(ctx context.Context, base *models.GeneratedItinerary) []models.GeneratedItinerary {
	var alts []models.GeneratedItinerary

	if budget := e.budgetVariant(ctx, base); budget != nil {
		alts = append(alts, *budget)
	}
	if relaxed := e.relaxedVariant(ctx, base); relaxed != nil {
		alts = append(alts, *relaxed)
	}
	return alts
}

// budgetVariant re-optimizes the itinerary toward 85% of its cost.
func (e *Engine) budgetVariant(ctx context.Context, base *models.GeneratedItinerary) *models.GeneratedItinerary {
	target := models.Money{Amount: base.TotalCost.Amount * 0.85, Currency: base.TotalCost.Currency}
	res, err := e.pricer.OptimizeForBudget(ctx, base, target)
	if err != nil {
		e.logger.Debug("Budget alternative skipped", zap.Error(err))
		return nil
	}
	if res.CostReduction <= 0 {
		return nil
	}
	alt := res.Itinerary
	alt.ID = uuid.NewString()
	alt.Title = fmt.Sprintf("%s (budget)", base.Title)
	alt.Description = fmt.Sprintf("Lower-cost variant saving %.2f %s", res.CostReduction, target.Currency)
	alt.Summary = buildSummary(alt)
	return alt
}

// relaxedVariant replans each day at a relaxed pace and reprices.
func (e *Engine) relaxedVariant(ctx context.Context, base *models.GeneratedItinerary) *models.GeneratedItinerary {
	if base.Preferences.Pace == models.PaceRelaxed {
		return nil
	}

	prefs := base.Preferences
	prefs.Pace = models.PaceRelaxed

	byDest := make(map[string]models.SequencedDestination, len(base.Destinations))
	for _, sd := range base.Destinations {
		byDest[sd.ID] = sd
	}

	alt := *base
	alt.Days = make([]models.ItineraryDay, 0, len(base.Days))
	for _, day := range base.Days {
		dest, ok := byDest[day.DestinationID]
		if !ok {
			return nil
		}
		candidates := make([]models.Activity, 0, len(day.Activities))
		for _, sa := range day.Activities {
			candidates = append(candidates, sa.Activity)
		}
		planned, err := e.planner.PlanDay(ctx, dest, day.Date, candidates, prefs)
		if err != nil {
			e.logger.Debug("Relaxed alternative skipped", zap.Error(err))
			return nil
		}
		planned.Accommodation = day.Accommodation
		planned.Transportation = day.Transportation
		alt.Days = append(alt.Days, *planned)
	}

	pctx := pricingContext(prefs, firstCountry(base.Destinations))
	costs, err := e.pricer.CalculateItineraryCost(ctx, &alt, pctx)
	if err != nil {
		e.logger.Debug("Relaxed alternative pricing skipped", zap.Error(err))
		return nil
	}
	alt.Costs = costs
	alt.TotalCost = costs.Total
	alt.Preferences = prefs
	alt.ID = uuid.NewString()
	alt.Title = fmt.Sprintf("%s (relaxed)", base.Title)
	alt.Description = "Lighter-schedule variant with fewer activities per day"
	alt.Summary = buildSummary(&alt)
	return &alt
}
