package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/tripforge/itinera/internal/app/domain/pricing"
	"github.com/tripforge/itinera/internal/app/domain/sequencing"
	"github.com/tripforge/itinera/internal/app/models"
)

// Config carries engine options plus service tunables loaded from the
// environment.
type Config struct {
	Engine          models.EngineOptions
	Pricing         PricingConfig
	DefaultCurrency string
}

// PricingConfig tunes the pricing service caches and rate refresh.
type PricingConfig struct {
	CacheTTL        time.Duration
	RateRefresh     time.Duration
	ContingencyPct  float64
	GroupSizeMin    int
	GroupDiscount   float64
	AdvanceCapDays  int
	ProviderTimeout time.Duration
}

// Load reads configuration from the environment, optionally seeded from
// a .env file when one is present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	opts := models.DefaultEngineOptions()
	opts.PerformanceTargetMs = getEnvInt("ENGINE_PERFORMANCE_TARGET_MS", opts.PerformanceTargetMs)
	opts.EnableParallelProcessing = getEnvBool("ENGINE_PARALLEL", opts.EnableParallelProcessing)
	opts.CacheEnabled = getEnvBool("ENGINE_CACHE_ENABLED", opts.CacheEnabled)
	opts.MaxContentItems = getEnvInt("ENGINE_MAX_CONTENT_ITEMS", opts.MaxContentItems)
	opts.FallbackStrategies = getEnvBool("ENGINE_FALLBACK", opts.FallbackStrategies)
	opts.DebugMode = getEnvBool("ENGINE_DEBUG", opts.DebugMode)
	opts.ClusterRadiusKm = getEnvFloat("ENGINE_CLUSTER_RADIUS_KM", opts.ClusterRadiusKm)
	opts.MutationRate = getEnvFloat("ENGINE_GA_MUTATION_RATE", opts.MutationRate)
	opts.ScoreThreshold = getEnvFloat("ENGINE_SCORE_THRESHOLD", opts.ScoreThreshold)
	opts.ContingencyPct = getEnvFloat("ENGINE_CONTINGENCY_PCT", opts.ContingencyPct)
	if seed := getEnvInt("ENGINE_RAND_SEED", 0); seed != 0 {
		opts.RandSeed = int64(seed)
	}

	cfg := &Config{
		Engine: opts,
		Pricing: PricingConfig{
			CacheTTL:        time.Duration(getEnvInt("PRICING_CACHE_TTL_MIN", 30)) * time.Minute,
			RateRefresh:     time.Duration(getEnvInt("PRICING_RATE_REFRESH_MIN", 60)) * time.Minute,
			ContingencyPct:  getEnvFloat("PRICING_CONTINGENCY_PCT", 0.15),
			GroupSizeMin:    getEnvInt("PRICING_GROUP_SIZE_MIN", 4),
			GroupDiscount:   getEnvFloat("PRICING_GROUP_DISCOUNT", 0.10),
			AdvanceCapDays:  getEnvInt("PRICING_ADVANCE_CAP_DAYS", 60),
			ProviderTimeout: time.Duration(getEnvInt("PRICING_PROVIDER_TIMEOUT_SEC", 5)) * time.Second,
		},
		DefaultCurrency: getEnvOrDefault("ENGINE_DEFAULT_CURRENCY", "USD"),
	}

	return cfg, nil
}

// SequencingConfig maps the loaded engine knobs onto the sequencing
// service configuration.
func (c *Config) SequencingConfig() sequencing.Config {
	return sequencing.Config{
		Seed:            c.Engine.RandSeed,
		ClusterRadiusKm: c.Engine.ClusterRadiusKm,
		MutationRate:    c.Engine.MutationRate,
	}
}

// PricingServiceConfig maps the loaded pricing tunables onto the pricing
// service configuration.
func (c *Config) PricingServiceConfig() pricing.Config {
	return pricing.Config{
		CacheTTL:        c.Pricing.CacheTTL,
		ContingencyPct:  c.Pricing.ContingencyPct,
		GroupSizeMin:    c.Pricing.GroupSizeMin,
		GroupDiscount:   c.Pricing.GroupDiscount,
		AdvanceCapDays:  c.Pricing.AdvanceCapDays,
		ProviderTimeout: c.Pricing.ProviderTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
