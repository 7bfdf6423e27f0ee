package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tripforge/itinera/internal/app/domain/dayplan"
	"github.com/tripforge/itinera/internal/app/domain/matching"
	"github.com/tripforge/itinera/internal/app/domain/pricing"
	"github.com/tripforge/itinera/internal/app/domain/sequencing"
	"github.com/tripforge/itinera/internal/app/models"
	"github.com/tripforge/itinera/internal/observability/metrics"
	"github.com/tripforge/itinera/internal/pkg/cache"
)

// fallbackContentCap bounds the content set on the fallback retry.
const fallbackContentCap = 1000

// parallelDayLimit is the longest trip that still fans out day planning.
const parallelDayLimit = 14

// Engine wires the services into the generation pipeline. There is no
// implicit global instance; construct one and inject its dependencies.
type Engine struct {
	logger    *zap.Logger
	opts      models.EngineOptions
	matcher   matching.Service
	sequencer sequencing.Service
	planner   dayplan.Service
	pricer    pricing.Service
	results   *cache.UnifiedCache[models.GeneratedItinerary]
}

// New creates an engine with explicit dependencies. A nil results cache
// disables caching regardless of options.
func New(opts models.EngineOptions, matcher matching.Service, sequencer sequencing.Service, planner dayplan.Service, pricer pricing.Service, results *cache.UnifiedCache[models.GeneratedItinerary], logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PerformanceTargetMs <= 0 {
		opts = models.DefaultEngineOptions()
	}
	return &Engine{
		logger:    logger,
		opts:      opts,
		matcher:   matcher,
		sequencer: sequencer,
		planner:   planner,
		pricer:    pricer,
		results:   results,
	}
}

// Generate runs the full pipeline under the wall-clock budget: validate,
// cache check, score, sequence, plan days, price, assemble. A stage
// failure triggers the fallback retry exactly once; a second failure is
// terminal and reported.
func (e *Engine) Generate(ctx context.Context, req models.GenerationRequest) *models.GenerationResult {
	started := time.Now()
	opts := e.resolveOptions(req.Options)

	ctx, span := otel.Tracer("GenerationEngine").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("destination", req.Preferences.PrimaryDestination),
		attribute.Int("content.count", len(req.AvailableContent)),
		attribute.Int("destinations.count", len(req.Destinations)),
	))
	defer span.End()

	m := metrics.Get()
	m.GenerationsTotal.Add(ctx, 1)
	defer func() {
		m.GenerationDuration.Record(ctx, time.Since(started).Seconds())
	}()

	l := e.logger.With(zap.String("method", "Generate"), zap.String("destination", req.Preferences.PrimaryDestination))

	if verr := ValidatePreferences(req.Preferences); verr != nil {
		l.Warn("Preference validation failed", zap.Error(verr))
		span.RecordError(verr)
		span.SetStatus(codes.Error, "Preference validation failed")
		return &models.GenerationResult{
			Success: false,
			Error:   models.NewGenerationError(models.GenerationValidationFailed, verr.Error(), verr),
			Metadata: models.GenerationMetadata{
				TotalDuration: time.Since(started),
			},
		}
	}

	cacheKey := e.cacheKey(req.Preferences)

	if opts.CacheEnabled && e.results != nil {
		if cached, found := e.results.Get(cacheKey); found {
			m.CacheHitsTotal.Add(ctx, 1)
			l.Debug("Generation served from cache", zap.String("key", cacheKey))
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "Served from cache")
			meta := cached.Metadata
			meta.CacheHit = true
			meta.TotalDuration = time.Since(started)
			return &models.GenerationResult{
				Itinerary: &cached,
				Success:   true,
				Metadata:  meta,
				CacheKey:  cacheKey,
			}
		}
		m.CacheMissesTotal.Add(ctx, 1)
	}

	deadline := time.Duration(opts.PerformanceTargetMs) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	itinerary, err := e.runPipelineSafe(runCtx, req, opts, false)
	if err != nil && opts.FallbackStrategies {
		l.Warn("Pipeline failed, retrying with fallback strategy", zap.Error(err))
		m.FallbacksTotal.Add(ctx, 1)

		reduced := req
		if len(reduced.AvailableContent) > fallbackContentCap {
			reduced.AvailableContent = reduced.AvailableContent[:fallbackContentCap]
		}
		fallbackOpts := opts
		fallbackOpts.EnableParallelProcessing = false

		itinerary, err = e.runPipelineSafe(runCtx, reduced, fallbackOpts, true)
	}

	if err != nil {
		l.Error("Generation failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return &models.GenerationResult{
			Success: false,
			Error:   models.NewGenerationError(models.GenerationFailed, "itinerary generation failed", err),
			Metadata: models.GenerationMetadata{
				ComponentsEvaluated: len(req.AvailableContent) + len(req.Destinations),
				TotalDuration:       time.Since(started),
			},
		}
	}

	itinerary.Metadata.TotalDuration = time.Since(started)
	m.ComponentsEvaluated.Record(ctx, int64(itinerary.Metadata.ComponentsEvaluated))

	result := &models.GenerationResult{
		Itinerary: itinerary,
		Success:   true,
		Metadata:  itinerary.Metadata,
		CacheKey:  cacheKey,
	}

	// Alternatives are optional garnish; skip them when the deadline is
	// already at risk.
	if remaining := deadline - time.Since(started); remaining > deadline/5 && !itinerary.Metadata.FallbackUsed {
		result.Alternatives = e.generateAlternatives(runCtx, itinerary)
	}

	if opts.CacheEnabled && e.results != nil {
		e.results.Set(cacheKey, *itinerary)
	}

	l.Info("Itinerary generated",
		zap.Int("days", len(itinerary.Days)),
		zap.Float64("total_cost", itinerary.TotalCost.Amount),
		zap.Duration("elapsed", time.Since(started)),
	)
	span.SetAttributes(
		attribute.Int("days.count", len(itinerary.Days)),
		attribute.Bool("fallback.used", itinerary.Metadata.FallbackUsed),
	)
	span.SetStatus(codes.Ok, "Itinerary generated")
	return result
}

// runPipelineSafe converts stage panics into errors so a buggy stage
// triggers the fallback path instead of crashing the caller.
func (e *Engine) runPipelineSafe(ctx context.Context, req models.GenerationRequest, opts models.EngineOptions, fallback bool) (itin *models.GeneratedItinerary, err error) {
	defer func() {
		if r := recover(); r != nil {
			itin = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return e.runPipeline(ctx, req, opts, fallback)
}

// runPipeline is the single pipeline entry point; the fallback retry
// re-enters it with reduced content and parallelism disabled.
func (e *Engine) runPipeline(ctx context.Context, req models.GenerationRequest, opts models.EngineOptions, fallback bool) (*models.GeneratedItinerary, error) {
	prefs := req.Preferences
	var timings []models.StageTiming
	stageStart := time.Now()
	markStage := func(name string) {
		timings = append(timings, models.StageTiming{Stage: name, Duration: time.Since(stageStart)})
		metrics.Get().StageDuration.Record(ctx, time.Since(stageStart).Seconds())
		stageStart = time.Now()
	}

	content := req.AvailableContent
	if len(content) > opts.MaxContentItems {
		content = content[:opts.MaxContentItems]
	}
	if len(content) == 0 {
		return nil, models.ErrEmptyContent
	}
	if len(req.Destinations) == 0 {
		return nil, models.ErrNoDestinations
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline aborted: %w", err)
	}

	criteria, err := e.matcher.AnalyzePreferences(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("preference analysis failed: %w", err)
	}

	// Stage 1: score the four content kinds, concurrently when enabled.
	activities, accommodations, transports := splitComponents(content)
	scored, destScores, err := e.scoreAll(ctx, opts, criteria, activities, accommodations, transports, req.Destinations)
	if err != nil {
		return nil, fmt.Errorf("content scoring failed: %w", err)
	}
	markStage("scoring")

	threshold := opts.ScoreThreshold
	keptActivities := selectActivities(activities, e.matcher.FilterByScore(scored.activities, threshold))
	keptAccommodations := selectAccommodations(accommodations, e.matcher.FilterByScore(scored.accommodations, threshold))
	keptTransports := selectTransportations(transports, e.matcher.FilterByScore(scored.transports, threshold))
	keptDestinations := selectDestinations(req.Destinations, e.matcher.FilterByScore(destScores, threshold))
	if len(keptDestinations) == 0 {
		// Nothing cleared the bar; sequence everything rather than fail.
		keptDestinations = req.Destinations
	}
	if len(keptActivities) == 0 {
		keptActivities = activities
	}
	if len(keptAccommodations) == 0 {
		keptAccommodations = accommodations
	}
	if len(keptTransports) == 0 {
		keptTransports = transports
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline aborted after scoring: %w", err)
	}

	// Stage 2: order and schedule destinations.
	sequence, err := e.sequencer.SequenceDestinations(ctx, keptDestinations, prefs)
	if err != nil {
		return nil, fmt.Errorf("destination sequencing failed: %w", err)
	}
	issues := e.sequencer.ValidateSequence(ctx, sequence, prefs)
	if sequencing.HasBlockingIssues(issues) {
		return nil, fmt.Errorf("destination sequence rejected: %v", issues)
	}
	markStage("sequencing")
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline aborted after sequencing: %w", err)
	}

	// Stage 3: fill each day.
	days, err := e.planDays(ctx, opts, sequence, keptActivities, keptAccommodations, keptTransports, prefs)
	if err != nil {
		return nil, fmt.Errorf("day planning failed: %w", err)
	}
	markStage("dayplan")
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline aborted after day planning: %w", err)
	}

	// Stage 4: price everything.
	itinerary := &models.GeneratedItinerary{
		ID:            uuid.NewString(),
		Title:         fmt.Sprintf("%d days in %s", prefs.TripDurationDays(), prefs.PrimaryDestination),
		Description:   fmt.Sprintf("Generated %s-paced trip through %d destinations", paceOrDefault(prefs.Pace), len(sequence)),
		Destinations:  sequence,
		Days:          days,
		TotalDuration: prefs.TripDurationDays(),
		Preferences:   prefs,
		GeneratedAt:   time.Now().UTC(),
		SchemaVersion: models.ItinerarySchemaVersion,
	}

	pctx := pricingContext(prefs, firstCountry(sequence))
	pctx.ContingencyPct = opts.ContingencyPct
	costs, err := e.pricer.CalculateItineraryCost(ctx, itinerary, pctx)
	if err != nil {
		return nil, fmt.Errorf("itinerary pricing failed: %w", err)
	}
	itinerary.Costs = costs
	itinerary.TotalCost = costs.Total

	var optimizations []string
	if prefs.BudgetMax != nil {
		target := models.Money{Amount: *prefs.BudgetMax * float64(prefs.Travelers), Currency: pctx.Currency}
		if itinerary.TotalCost.Amount > target.Amount {
			optimized, oerr := e.pricer.OptimizeForBudget(ctx, itinerary, target)
			if oerr == nil && optimized.CostReduction > 0 {
				itinerary = optimized.Itinerary
				for _, applied := range optimized.Applied {
					optimizations = append(optimizations, applied.Name)
				}
			}
		}
	}
	markStage("pricing")

	itinerary.Summary = buildSummary(itinerary)
	itinerary.Metadata = models.GenerationMetadata{
		ComponentsEvaluated:  len(content) + len(req.Destinations),
		StageTimings:         timings,
		OptimizationsApplied: optimizations,
		FallbackUsed:         fallback,
	}

	return itinerary, nil
}

// scoredContent groups the fan-out results by content kind.
type scoredContent struct {
	activities     []models.ContentMatchScore
	accommodations []models.ContentMatchScore
	transports     []models.ContentMatchScore
}

// scoreAll scores the four content kinds. With parallel processing the
// four calls fan out and join before the next stage begins.
func (e *Engine) scoreAll(ctx context.Context, opts models.EngineOptions, criteria *matching.Criteria,
	activities []models.Activity, accommodations []models.Accommodation, transports []models.Transportation,
	destinations []models.Destination) (scoredContent, []models.ContentMatchScore, error) {

	actComps := toComponents(activities)
	accComps := toComponentsAcc(accommodations)
	trnComps := toComponentsTrn(transports)

	var out scoredContent
	var destScores []models.ContentMatchScore

	if !opts.EnableParallelProcessing {
		out.activities = e.matcher.ScoreContent(ctx, actComps, criteria)
		out.accommodations = e.matcher.ScoreContent(ctx, accComps, criteria)
		out.transports = e.matcher.ScoreContent(ctx, trnComps, criteria)
		destScores = e.matcher.ScoreDestinations(ctx, destinations, criteria)
		return out, destScores, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.activities = e.matcher.ScoreContent(gctx, actComps, criteria)
		return nil
	})
	g.Go(func() error {
		out.accommodations = e.matcher.ScoreContent(gctx, accComps, criteria)
		return nil
	})
	g.Go(func() error {
		out.transports = e.matcher.ScoreContent(gctx, trnComps, criteria)
		return nil
	})
	g.Go(func() error {
		destScores = e.matcher.ScoreDestinations(gctx, destinations, criteria)
		return nil
	})
	if err := g.Wait(); err != nil {
		return scoredContent{}, nil, err
	}
	return out, destScores, nil
}

// planDays fills every trip day, fanning out one task per day for trips
// within the parallel limit. Longer trips run sequentially to bound
// peak resource usage.
func (e *Engine) planDays(ctx context.Context, opts models.EngineOptions, sequence []models.SequencedDestination,
	activities []models.Activity, accommodations []models.Accommodation, transports []models.Transportation,
	prefs models.UserPreferences) ([]models.ItineraryDay, error) {

	type daySlot struct {
		dest models.SequencedDestination
		prev *models.SequencedDestination
		date time.Time
	}

	var slots []daySlot
	for k, sd := range sequence {
		var prev *models.SequencedDestination
		if k > 0 {
			prev = &sequence[k-1]
		}
		for d := 0; d < sd.DaysAllocated; d++ {
			slots = append(slots, daySlot{dest: sd, prev: prev, date: sd.ArrivalDate.AddDate(0, 0, d)})
		}
	}

	days := make([]models.ItineraryDay, len(slots))

	plan := func(i int) error {
		slot := slots[i]
		candidates := rotateActivities(activities, i)
		day, err := e.planner.PlanDay(ctx, slot.dest, slot.date, candidates, prefs)
		if err != nil {
			return err
		}
		if len(accommodations) > 0 {
			best := accommodations[0]
			day.Accommodation = &best
		}
		// Attach the inbound leg on each destination's arrival day. A
		// scored transportation component serving the route overrides
		// the distance-based estimate.
		if slot.dest.TransportToPrevious != nil && slot.date.Equal(slot.dest.ArrivalDate) {
			leg := *slot.dest.TransportToPrevious
			if slot.prev != nil {
				if m := matchTransportLeg(transports, slot.prev.Destination, slot.dest.Destination); m != nil {
					leg = *m
				}
			}
			day.Transportation = append(day.Transportation, leg)
		}
		days[i] = *day
		return nil
	}

	parallel := opts.EnableParallelProcessing && len(slots) <= parallelDayLimit
	if parallel {
		g, _ := errgroup.WithContext(ctx)
		for i := range slots {
			g.Go(func() error { return plan(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range slots {
			if err := plan(i); err != nil {
				return nil, err
			}
		}
	}

	return days, nil
}

// resolveOptions merges request options over the engine defaults.
func (e *Engine) resolveOptions(reqOpts *models.EngineOptions) models.EngineOptions {
	if reqOpts == nil {
		return e.opts
	}
	opts := *reqOpts
	if opts.PerformanceTargetMs <= 0 {
		opts.PerformanceTargetMs = e.opts.PerformanceTargetMs
	}
	if opts.MaxContentItems <= 0 {
		opts.MaxContentItems = e.opts.MaxContentItems
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = e.opts.ScoreThreshold
	}
	if opts.ContingencyPct <= 0 {
		opts.ContingencyPct = e.opts.ContingencyPct
	}
	// RandSeed, ClusterRadiusKm, and MutationRate configure the
	// sequencer at construction and are not honored per request.
	opts.RandSeed = e.opts.RandSeed
	opts.ClusterRadiusKm = e.opts.ClusterRadiusKm
	opts.MutationRate = e.opts.MutationRate
	return opts
}

// cacheKey derives the deterministic key for a preference set.
func (e *Engine) cacheKey(prefs models.UserPreferences) string {
	return cache.NewCacheKeyBuilder(e.logger).
		AddDestination(prefs.PrimaryDestination).
		AddDateRange(prefs.StartDate, prefs.EndDate).
		AddTravelers(prefs.Travelers).
		AddBudget(prefs.BudgetMin, prefs.BudgetMax).
		AddInterests(prefs.Interests).
		AddAccommodation(prefs.AccommodationType).
		AddTransport(string(prefs.TransportPref)).
		BuildOrDefault()
}

func paceOrDefault(p models.PacePreference) models.PacePreference {
	if p == "" {
		return models.PaceModerate
	}
	return p
}

// pricingContext assembles the pricing inputs for a preference set.
func pricingContext(prefs models.UserPreferences, countryCode string) pricing.PriceContext {
	return pricing.PriceContext{
		Travelers:   prefs.Travelers,
		TravelDate:  prefs.StartDate,
		BookingDate: time.Now().UTC(),
		CountryCode: countryCode,
		Currency:    currencyOrDefault(prefs.BudgetCurrency),
	}
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func firstCountry(sequence []models.SequencedDestination) string {
	if len(sequence) == 0 {
		return ""
	}
	return sequence[0].CountryCode
}
