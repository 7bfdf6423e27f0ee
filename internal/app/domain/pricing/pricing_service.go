package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/observability/metrics"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the pricing contract.
type Service interface {
	EstimateComponentCost(ctx context.Context, comp models.Component, pctx PriceContext) (Estimate, error)
	CalculateItineraryCost(ctx context.Context, itin *models.GeneratedItinerary, pctx PriceContext) (models.CostBreakdown, error)
	OptimizeForBudget(ctx context.Context, itin *models.GeneratedItinerary, maxBudget models.Money) (*OptimizationResult, error)
}

// PriceContext carries the per-request facts pricing depends on.
type PriceContext struct {
	Travelers   int
	TravelDate  time.Time
	BookingDate time.Time
	CountryCode string
	Currency    string
	// ContingencyPct overrides the service-level contingency rate for
	// this request when set above zero.
	ContingencyPct float64
}

// Estimate is a priced component with its data provenance.
type Estimate struct {
	Cost     models.Money
	RealTime bool
	Source   string
}

// Config tunes the pricing model.
type Config struct {
	CacheTTL        time.Duration
	ContingencyPct  float64
	GroupSizeMin    int
	GroupDiscount   float64
	AdvanceCapDays  int
	ProviderTimeout time.Duration
}

// DefaultConfig returns the documented pricing defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:        30 * time.Minute,
		ContingencyPct:  0.15,
		GroupSizeMin:    4,
		GroupDiscount:   0.10,
		AdvanceCapDays:  60,
		ProviderTimeout: 300 * time.Millisecond,
	}
}

// regionalMultipliers adjust modeled prices by destination country.
var regionalMultipliers = map[string]float64{
	"CH": 1.40,
	"NO": 1.35,
	"IS": 1.30,
	"JP": 1.15,
	"GB": 1.15,
	"FR": 1.10,
	"US": 1.00,
	"ES": 0.90,
	"PT": 0.85,
	"MX": 0.70,
	"TH": 0.60,
	"VN": 0.55,
	"IN": 0.50,
}

// ServiceImpl provides the implementation for the pricing Service.
type ServiceImpl struct {
	logger   *zap.Logger
	cfg      Config
	provider ExternalDataProvider
	health   *providerHealth
	rates    *ExchangeRates
	cache    *gocache.Cache
}

// NewService creates a pricing service. provider may be nil; every
// estimate then comes from the model.
func NewService(cfg Config, provider ExternalDataProvider, rates *ExchangeRates, logger *zap.Logger) *ServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.ContingencyPct <= 0 {
		cfg.ContingencyPct = def.ContingencyPct
	}
	if cfg.GroupSizeMin <= 0 {
		cfg.GroupSizeMin = def.GroupSizeMin
	}
	if cfg.GroupDiscount <= 0 {
		cfg.GroupDiscount = def.GroupDiscount
	}
	if cfg.AdvanceCapDays <= 0 {
		cfg.AdvanceCapDays = def.AdvanceCapDays
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if rates == nil {
		rates = NewExchangeRates(nil, time.Hour, logger)
	}
	return &ServiceImpl{
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		health:   newProviderHealth(),
		rates:    rates,
		cache:    gocache.New(cfg.CacheTTL, cfg.CacheTTL*2),
	}
}

// EstimateComponentCost prices one component: real-time provider data
// first, then the model. Results are cached for the configured TTL.
func (s *ServiceImpl) EstimateComponentCost(ctx context.Context, comp models.Component, pctx PriceContext) (Estimate, error) {
	ctx, span := otel.Tracer("PricingService").Start(ctx, "EstimateComponentCost", trace.WithAttributes(
		attribute.String("component.id", comp.Base().ID),
		attribute.String("component.type", string(comp.Type())),
	))
	defer span.End()

	key := fmt.Sprintf("%s|%s|%d|%s", comp.Base().ID, pctx.TravelDate.Format("2006-01-02"), pctx.Travelers, pctx.Currency)
	if v, found := s.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Component priced from cache")
		return v.(Estimate), nil
	}

	estimate, err := s.estimateUncached(ctx, comp, pctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Component pricing failed")
		return Estimate{}, err
	}

	s.cache.Set(key, estimate, gocache.DefaultExpiration)
	span.SetAttributes(attribute.Bool("estimate.realtime", estimate.RealTime))
	span.SetStatus(codes.Ok, "Component priced")
	return estimate, nil
}

func (s *ServiceImpl) estimateUncached(ctx context.Context, comp models.Component, pctx PriceContext) (Estimate, error) {
	if cost, source, ok := s.realTimePrice(ctx, comp, pctx); ok {
		converted, err := s.rates.Convert(ctx, cost, pctx.Currency)
		if err == nil {
			return Estimate{Cost: converted, RealTime: true, Source: source}, nil
		}
		// Unconvertible live currency falls through to the model.
		s.logger.Warn("Discarding unconvertible real-time price", zap.Error(err))
	}
	return s.modelPrice(ctx, comp, pctx)
}

// realTimePrice queries the provider inside its own deadline so a slow
// provider cannot blow the generation budget.
func (s *ServiceImpl) realTimePrice(ctx context.Context, comp models.Component, pctx PriceContext) (models.Money, string, bool) {
	if s.provider == nil || !s.health.available() {
		return models.Money{}, "", false
	}

	metrics.Get().ProviderLookupsTotal.Add(ctx, 1)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	result, err := s.provider.GetRealTimeData(callCtx, RealTimeQuery{
		Type:     string(comp.Type()),
		Location: componentLocation(comp),
		Dates:    &models.DateRange{Start: pctx.TravelDate, End: pctx.TravelDate},
		Parameters: map[string]any{
			"component_id": comp.Base().ID,
			"travelers":    pctx.Travelers,
		},
	})
	if err != nil || result == nil || !result.Success {
		s.health.recordFailure()
		s.logger.Debug("Real-time pricing miss", zap.String("component", comp.Base().ID), zap.Error(err))
		return models.Money{}, "", false
	}
	s.health.recordSuccess()

	price, okPrice := result.Data["price"].(float64)
	currency, okCurrency := result.Data["currency"].(string)
	if !okPrice || !okCurrency || price < 0 {
		return models.Money{}, "", false
	}

	money := models.Money{Amount: price, Currency: currency}
	if comp.Type() == models.ComponentTypeActivity {
		money = money.MulFloat(float64(pctx.Travelers))
	}
	return money, result.Source, true
}

// modelPrice computes the fallback estimate:
// base x variable factors x group discount x advance discount,
// x travelers for per-person items, then seasonal and regional scaling.
func (s *ServiceImpl) modelPrice(ctx context.Context, comp models.Component, pctx PriceContext) (Estimate, error) {
	base := basePrice(comp)

	price := base.Amount
	for _, f := range variableFactors(comp) {
		price *= f
	}

	if pctx.Travelers >= s.cfg.GroupSizeMin {
		price *= 1 - s.cfg.GroupDiscount
	}

	if !pctx.BookingDate.IsZero() && pctx.TravelDate.After(pctx.BookingDate) {
		days := int(pctx.TravelDate.Sub(pctx.BookingDate).Hours() / 24)
		if days > s.cfg.AdvanceCapDays {
			days = s.cfg.AdvanceCapDays
		}
		price *= 1 - float64(days)*0.0025
	}

	if comp.Type() == models.ComponentTypeActivity {
		price *= float64(pctx.Travelers)
	}

	price *= seasonalMultiplier(pctx.TravelDate.Month())
	price *= regionalMultiplier(pctx.CountryCode)

	converted, err := s.rates.Convert(ctx, models.Money{Amount: price, Currency: base.Currency}, pctx.Currency)
	if err != nil {
		return Estimate{}, fmt.Errorf("error pricing component %s: %w", comp.Base().ID, err)
	}
	converted.Amount = roundTo2(converted.Amount)
	return Estimate{Cost: converted, RealTime: false, Source: "model"}, nil
}

// basePrice is the component's stated cost, or a modeled default.
func basePrice(comp models.Component) models.Money {
	if cost := comp.Base().EstimatedCost; cost != nil && cost.Amount > 0 {
		return *cost
	}
	switch v := comp.(type) {
	case models.Activity:
		return models.Money{Amount: 35, Currency: "USD"}
	case models.Accommodation:
		if room := v.CheapestRoom(); room != nil && room.PricePerNight.Amount > 0 {
			return room.PricePerNight
		}
		return models.Money{Amount: 90, Currency: "USD"}
	case models.Transportation:
		perMinute := map[models.TransportMode]float64{
			models.TransportFlight: 1.50,
			models.TransportTrain:  0.45,
			models.TransportBus:    0.18,
			models.TransportCar:    0.40,
			models.TransportFerry:  0.35,
		}
		rate, ok := perMinute[v.Mode]
		if !ok {
			rate = 0.40
		}
		return models.Money{Amount: float64(v.DurationMinutes) * rate, Currency: "USD"}
	default:
		return models.Money{Amount: 25, Currency: "USD"}
	}
}

// variableFactors are per-type multipliers applied to the base price.
func variableFactors(comp models.Component) []float64 {
	var factors []float64
	switch v := comp.(type) {
	case models.Activity:
		if v.BookingRequired {
			factors = append(factors, 1.10)
		}
		if v.Category == models.CategoryAdventure {
			factors = append(factors, 1.20)
		}
		if v.Difficulty == models.DifficultyExtreme {
			factors = append(factors, 1.25)
		}
	case models.Accommodation:
		if v.StarRating != nil {
			factors = append(factors, 0.6+0.2*float64(*v.StarRating))
		}
	case models.Transportation:
		if v.Mode == models.TransportFlight && v.Carrier != "" {
			factors = append(factors, 1.05)
		}
	}
	return factors
}

// seasonalMultiplier maps travel month to peak/shoulder/off pricing.
func seasonalMultiplier(month time.Month) float64 {
	switch month {
	case time.June, time.July, time.August, time.December:
		return 1.25
	case time.April, time.May, time.September, time.October:
		return 1.10
	default:
		return 0.90
	}
}

func regionalMultiplier(countryCode string) float64 {
	if m, ok := regionalMultipliers[countryCode]; ok {
		return m
	}
	return 1.0
}

func componentLocation(comp models.Component) string {
	switch v := comp.(type) {
	case models.Activity:
		return v.Location
	case models.Accommodation:
		return v.Location
	case models.Transportation:
		return v.FromLocation
	default:
		return ""
	}
}

// CalculateItineraryCost aggregates per-day and per-category totals,
// adds the contingency buffer, and scores confidence by the share of
// real-time data in the estimate.
func (s *ServiceImpl) CalculateItineraryCost(ctx context.Context, itin *models.GeneratedItinerary, pctx PriceContext) (models.CostBreakdown, error) {
	ctx, span := otel.Tracer("PricingService").Start(ctx, "CalculateItineraryCost", trace.WithAttributes(
		attribute.Int("days.count", len(itin.Days)),
	))
	defer span.End()

	currency := pctx.Currency
	if currency == "" {
		currency = "USD"
	}

	breakdown := models.CostBreakdown{
		Total:          models.Money{Currency: currency},
		Accommodation:  models.Money{Currency: currency},
		Activities:     models.Money{Currency: currency},
		Transportation: models.Money{Currency: currency},
		Meals:          models.Money{Currency: currency},
		Misc:           models.Money{Currency: currency},
		Contingency:    models.Money{Currency: currency},
	}

	realtime, modeled := 0, 0

	for _, day := range itin.Days {
		dayTotal := 0.0

		for _, scheduled := range day.Activities {
			est, err := s.EstimateComponentCost(ctx, scheduled.Activity, pctx)
			if err != nil {
				s.logger.Warn("Activity pricing failed, using zero", zap.String("id", scheduled.Activity.ID), zap.Error(err))
				modeled++
				continue
			}
			countEstimate(est, &realtime, &modeled)
			breakdown.Activities.Amount += est.Cost.Amount
			dayTotal += est.Cost.Amount
		}

		if day.Accommodation != nil {
			est, err := s.EstimateComponentCost(ctx, *day.Accommodation, pctx)
			if err == nil {
				countEstimate(est, &realtime, &modeled)
				breakdown.Accommodation.Amount += est.Cost.Amount
				dayTotal += est.Cost.Amount
			}
		}

		for _, leg := range day.Transportation {
			cost, err := s.rates.Convert(ctx, leg.Cost, currency)
			if err != nil {
				continue
			}
			modeled++
			breakdown.Transportation.Amount += cost.Amount
			dayTotal += cost.Amount
		}

		for _, meal := range day.Meals {
			cost, err := s.rates.Convert(ctx, meal.Budget.MulFloat(float64(pctx.Travelers)), currency)
			if err != nil {
				continue
			}
			modeled++
			breakdown.Meals.Amount += cost.Amount
			dayTotal += cost.Amount
		}

		breakdown.PerDay = append(breakdown.PerDay, models.Money{Amount: roundTo2(dayTotal), Currency: currency})
	}

	// Inbound legs normally live on the arrival-day plans; fall back to
	// the sequence-level legs only when the days carry none, so a leg is
	// never counted twice.
	hasDayLegs := false
	for _, day := range itin.Days {
		if len(day.Transportation) > 0 {
			hasDayLegs = true
			break
		}
	}
	if !hasDayLegs {
		for _, sd := range itin.Destinations {
			if sd.TransportToPrevious == nil {
				continue
			}
			cost, err := s.rates.Convert(ctx, sd.TransportToPrevious.Cost, currency)
			if err != nil {
				continue
			}
			modeled++
			breakdown.Transportation.Amount += cost.Amount
		}
	}

	contingencyPct := s.cfg.ContingencyPct
	if pctx.ContingencyPct > 0 {
		contingencyPct = pctx.ContingencyPct
	}
	subtotal := breakdown.Accommodation.Amount + breakdown.Activities.Amount +
		breakdown.Transportation.Amount + breakdown.Meals.Amount + breakdown.Misc.Amount
	breakdown.Contingency.Amount = roundTo2(subtotal * contingencyPct)
	breakdown.Total.Amount = roundTo2(subtotal + breakdown.Contingency.Amount)
	breakdown.Confidence = confidence(realtime, modeled)

	roundBreakdown(&breakdown)

	span.SetAttributes(
		attribute.Float64("total", breakdown.Total.Amount),
		attribute.Float64("confidence", breakdown.Confidence),
	)
	span.SetStatus(codes.Ok, "Itinerary priced")
	return breakdown, nil
}

func countEstimate(est Estimate, realtime, modeled *int) {
	if est.RealTime {
		*realtime++
	} else {
		*modeled++
	}
}

// confidence reflects how much of the estimate came from real-time
// versus modeled data.
func confidence(realtime, modeled int) float64 {
	total := realtime + modeled
	if total == 0 {
		return 0.5
	}
	fraction := float64(realtime) / float64(total)
	return 0.5 + 0.45*fraction
}

func roundBreakdown(b *models.CostBreakdown) {
	b.Accommodation.Amount = roundTo2(b.Accommodation.Amount)
	b.Activities.Amount = roundTo2(b.Activities.Amount)
	b.Transportation.Amount = roundTo2(b.Transportation.Amount)
	b.Meals.Amount = roundTo2(b.Meals.Amount)
	b.Misc.Amount = roundTo2(b.Misc.Amount)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
