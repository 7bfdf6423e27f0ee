package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
)

// AppliedStrategy reports one cost reduction step and its tradeoff.
type AppliedStrategy struct {
	Name     string       `json:"name"`
	Savings  models.Money `json:"savings"`
	Tradeoff string       `json:"tradeoff"`
}

// OptimizationResult is the outcome of a budget optimization pass.
type OptimizationResult struct {
	Itinerary     *models.GeneratedItinerary `json:"itinerary"`
	OriginalCost  models.Money               `json:"original_cost"`
	OptimizedCost models.Money               `json:"optimized_cost"`
	CostReduction float64                    `json:"cost_reduction"`
	Applied       []AppliedStrategy          `json:"applied,omitempty"`
	TargetMet     bool                       `json:"target_met"`
}

// OptimizeForBudget applies reduction strategies in priority order:
// accommodation downgrade, activity substitution, transportation change.
// It never increases total cost and stops once the target is met or no
// further reduction is possible. The input itinerary is not mutated.
func (s *ServiceImpl) OptimizeForBudget(ctx context.Context, itin *models.GeneratedItinerary, maxBudget models.Money) (*OptimizationResult, error) {
	_, span := otel.Tracer("PricingService").Start(ctx, "OptimizeForBudget", trace.WithAttributes(
		attribute.Float64("budget.max", maxBudget.Amount),
		attribute.Float64("cost.current", itin.TotalCost.Amount),
	))
	defer span.End()

	if itin.TotalCost.Currency != maxBudget.Currency {
		err := fmt.Errorf("budget currency %s does not match itinerary currency %s", maxBudget.Currency, itin.TotalCost.Currency)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Currency mismatch")
		return nil, err
	}

	result := &OptimizationResult{
		OriginalCost: itin.TotalCost,
	}

	// Already affordable: return the itinerary unchanged.
	if itin.TotalCost.Amount <= maxBudget.Amount {
		result.Itinerary = itin
		result.OptimizedCost = itin.TotalCost
		result.TargetMet = true
		span.SetStatus(codes.Ok, "Already within budget")
		return result, nil
	}

	work := copyItinerary(itin)
	contingencyPct := effectiveContingencyPct(itin, s.cfg.ContingencyPct)

	strategies := []func(*models.GeneratedItinerary) *AppliedStrategy{
		s.downgradeAccommodation,
		s.substituteActivities,
		s.changeTransportation,
	}

	for _, strategy := range strategies {
		if work.TotalCost.Amount <= maxBudget.Amount {
			break
		}
		applied := strategy(work)
		if applied == nil || applied.Savings.Amount <= 0 {
			continue
		}
		result.Applied = append(result.Applied, *applied)
		s.recomputeTotals(work, contingencyPct)
		s.logger.Debug("Budget strategy applied",
			zap.String("strategy", applied.Name),
			zap.Float64("savings", applied.Savings.Amount),
		)
	}

	result.Itinerary = work
	result.OptimizedCost = work.TotalCost
	result.CostReduction = roundTo2(result.OriginalCost.Amount - work.TotalCost.Amount)
	result.TargetMet = work.TotalCost.Amount <= maxBudget.Amount

	span.SetAttributes(
		attribute.Float64("cost.optimized", result.OptimizedCost.Amount),
		attribute.Bool("target.met", result.TargetMet),
	)
	span.SetStatus(codes.Ok, "Budget optimization complete")
	return result, nil
}

// downgradeAccommodation switches every stay to its cheapest room and
// models the downgrade as a 25% cut in the accommodation category.
func (s *ServiceImpl) downgradeAccommodation(itin *models.GeneratedItinerary) *AppliedStrategy {
	if itin.Costs.Accommodation.Amount <= 0 {
		return nil
	}

	downgraded := 0
	for i := range itin.Days {
		acc := itin.Days[i].Accommodation
		if acc == nil || len(acc.RoomTypes) < 2 {
			continue
		}
		cheapest := acc.CheapestRoom()
		if cheapest == nil {
			continue
		}
		trimmed := *acc
		trimmed.RoomTypes = []models.RoomType{*cheapest}
		itin.Days[i].Accommodation = &trimmed
		downgraded++
	}

	savings := itin.Costs.Accommodation.MulFloat(0.25)
	itin.Costs.Accommodation.Amount = roundTo2(itin.Costs.Accommodation.Amount - savings.Amount)

	tradeoff := "lower room category across all stays"
	if downgraded > 0 {
		tradeoff = fmt.Sprintf("cheapest room selected at %d stays", downgraded)
	}
	return &AppliedStrategy{Name: "accommodation_downgrade", Savings: savings, Tradeoff: tradeoff}
}

// substituteActivities drops the most expensive paid activities, up to a
// third of the schedule, modeling substitution by free alternatives.
func (s *ServiceImpl) substituteActivities(itin *models.GeneratedItinerary) *AppliedStrategy {
	type paid struct {
		day, idx int
		amount   float64
		title    string
	}

	var candidates []paid
	for d := range itin.Days {
		for i, scheduled := range itin.Days[d].Activities {
			if cost := scheduled.Activity.EstimatedCost; cost != nil && cost.Amount > 0 {
				candidates = append(candidates, paid{day: d, idx: i, amount: cost.Amount, title: scheduled.Activity.Title})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].amount > candidates[j].amount })

	limit := (len(candidates) + 2) / 3
	removed := candidates[:limit]

	drop := make(map[[2]int]bool, len(removed))
	var titles []string
	total := 0.0
	for _, r := range removed {
		drop[[2]int{r.day, r.idx}] = true
		titles = append(titles, r.title)
		total += r.amount
	}

	for d := range itin.Days {
		kept := itin.Days[d].Activities[:0]
		for i, scheduled := range itin.Days[d].Activities {
			if !drop[[2]int{d, i}] {
				kept = append(kept, scheduled)
			}
		}
		itin.Days[d].Activities = kept
	}

	savings := models.Money{Amount: roundTo2(total), Currency: itin.Costs.Activities.Currency}
	itin.Costs.Activities.Amount = roundTo2(itin.Costs.Activities.Amount - savings.Amount)
	if itin.Costs.Activities.Amount < 0 {
		itin.Costs.Activities.Amount = 0
	}

	return &AppliedStrategy{
		Name:     "activity_substitution",
		Savings:  savings,
		Tradeoff: "replaced with free alternatives: " + strings.Join(titles, ", "),
	}
}

// changeTransportation swaps short-haul flights for trains and reprices
// the legs.
func (s *ServiceImpl) changeTransportation(itin *models.GeneratedItinerary) *AppliedStrategy {
	const shortHaulKm = 800

	saved := 0.0
	swapped := 0
	for i := range itin.Destinations {
		leg := itin.Destinations[i].TransportToPrevious
		if leg == nil || leg.Mode != models.TransportFlight || leg.DistanceKm > shortHaulKm {
			continue
		}
		trainCost := leg.DistanceKm * 0.20
		if trainCost >= leg.Cost.Amount {
			continue
		}
		saved += leg.Cost.Amount - trainCost
		leg.Mode = models.TransportTrain
		leg.Cost.Amount = roundTo2(trainCost)
		swapped++
	}
	if swapped == 0 {
		return nil
	}

	savings := models.Money{Amount: roundTo2(saved), Currency: itin.Costs.Transportation.Currency}
	itin.Costs.Transportation.Amount = roundTo2(itin.Costs.Transportation.Amount - savings.Amount)
	if itin.Costs.Transportation.Amount < 0 {
		itin.Costs.Transportation.Amount = 0
	}

	return &AppliedStrategy{
		Name:     "transportation_change",
		Savings:  savings,
		Tradeoff: fmt.Sprintf("%d short-haul flights replaced by rail, adding travel time", swapped),
	}
}

// recomputeTotals refreshes total and contingency after a strategy ran.
func (s *ServiceImpl) recomputeTotals(itin *models.GeneratedItinerary, contingencyPct float64) {
	b := &itin.Costs
	subtotal := b.Accommodation.Amount + b.Activities.Amount + b.Transportation.Amount + b.Meals.Amount + b.Misc.Amount
	b.Contingency.Amount = roundTo2(subtotal * contingencyPct)
	b.Total.Amount = roundTo2(subtotal + b.Contingency.Amount)
	itin.TotalCost = b.Total
}

// effectiveContingencyPct reads the rate the itinerary was priced with, so
// optimization keeps any per-request override instead of reverting to the
// service default.
func effectiveContingencyPct(itin *models.GeneratedItinerary, fallback float64) float64 {
	b := itin.Costs
	subtotal := b.Accommodation.Amount + b.Activities.Amount + b.Transportation.Amount + b.Meals.Amount + b.Misc.Amount
	if subtotal <= 0 || b.Contingency.Amount <= 0 {
		return fallback
	}
	return b.Contingency.Amount / subtotal
}

// copyItinerary deep-copies the mutable parts the optimizer touches.
func copyItinerary(itin *models.GeneratedItinerary) *models.GeneratedItinerary {
	dup := *itin

	dup.Destinations = make([]models.SequencedDestination, len(itin.Destinations))
	for i, sd := range itin.Destinations {
		dup.Destinations[i] = sd
		if sd.TransportToPrevious != nil {
			leg := *sd.TransportToPrevious
			dup.Destinations[i].TransportToPrevious = &leg
		}
	}

	dup.Days = make([]models.ItineraryDay, len(itin.Days))
	for i, day := range itin.Days {
		dup.Days[i] = day
		dup.Days[i].Activities = append([]models.ScheduledActivity(nil), day.Activities...)
		dup.Days[i].Transportation = append([]models.TransportLeg(nil), day.Transportation...)
		dup.Days[i].Meals = append([]models.MealSlot(nil), day.Meals...)
		if day.Accommodation != nil {
			acc := *day.Accommodation
			dup.Days[i].Accommodation = &acc
		}
	}

	dup.Costs.PerDay = append([]models.Money(nil), itin.Costs.PerDay...)
	return &dup
}
