package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the engine's metric instruments.
type EngineMetrics struct {
	GenerationsTotal     metric.Int64Counter
	GenerationDuration   metric.Float64Histogram
	StageDuration        metric.Float64Histogram
	FallbacksTotal       metric.Int64Counter
	CacheHitsTotal       metric.Int64Counter
	CacheMissesTotal     metric.Int64Counter
	ComponentsEvaluated  metric.Int64Histogram
	ProviderLookupsTotal metric.Int64Counter
}

var (
	engineMetrics *EngineMetrics
	once          sync.Once
)

// Init initializes the metric instruments once, from the globally
// configured MeterProvider.
func Init() *EngineMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("itinera-engine")
		var err error
		m := &EngineMetrics{}

		m.GenerationsTotal, err = meter.Int64Counter(
			"itinerary_generations_total",
			metric.WithDescription("Total number of itinerary generation runs"),
			metric.WithUnit("{generation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_generations_total: %v", err)
		}

		m.GenerationDuration, err = meter.Float64Histogram(
			"itinerary_generation_duration_seconds",
			metric.WithDescription("End-to-end generation duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_generation_duration_seconds: %v", err)
		}

		m.StageDuration, err = meter.Float64Histogram(
			"itinerary_stage_duration_seconds",
			metric.WithDescription("Per-stage pipeline duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_stage_duration_seconds: %v", err)
		}

		m.FallbacksTotal, err = meter.Int64Counter(
			"itinerary_fallback_generations_total",
			metric.WithDescription("Generations that completed via the fallback path"),
			metric.WithUnit("{generation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_fallback_generations_total: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"itinerary_cache_hits_total",
			metric.WithDescription("Result cache hits"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_cache_hits_total: %v", err)
		}

		m.CacheMissesTotal, err = meter.Int64Counter(
			"itinerary_cache_misses_total",
			metric.WithDescription("Result cache misses"),
			metric.WithUnit("{miss}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_cache_misses_total: %v", err)
		}

		m.ComponentsEvaluated, err = meter.Int64Histogram(
			"itinerary_components_evaluated",
			metric.WithDescription("Content items evaluated per generation"),
			metric.WithUnit("{component}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_components_evaluated: %v", err)
		}

		m.ProviderLookupsTotal, err = meter.Int64Counter(
			"pricing_provider_lookups_total",
			metric.WithDescription("Real-time pricing provider lookups"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create pricing_provider_lookups_total: %v", err)
		}

		engineMetrics = m
	})
	return engineMetrics
}

// Get returns the initialized instruments, initializing on first use.
func Get() *EngineMetrics {
	return Init()
}
