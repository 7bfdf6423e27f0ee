package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Engine.PerformanceTargetMs)
	assert.True(t, cfg.Engine.CacheEnabled)
	assert.True(t, cfg.Engine.EnableParallelProcessing)
	assert.Equal(t, 30*time.Minute, cfg.Pricing.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Pricing.ProviderTimeout)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("ENGINE_PERFORMANCE_TARGET_MS", "1500")
	t.Setenv("ENGINE_PARALLEL", "false")
	t.Setenv("ENGINE_CLUSTER_RADIUS_KM", "250")
	t.Setenv("PRICING_GROUP_SIZE_MIN", "6")
	t.Setenv("ENGINE_DEFAULT_CURRENCY", "EUR")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.Engine.PerformanceTargetMs)
	assert.False(t, cfg.Engine.EnableParallelProcessing)
	assert.Equal(t, 250.0, cfg.Engine.ClusterRadiusKm)
	assert.Equal(t, 6, cfg.Pricing.GroupSizeMin)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
}

func TestServiceConfigMapping(t *testing.T) {
	t.Setenv("ENGINE_RAND_SEED", "7")
	t.Setenv("ENGINE_GA_MUTATION_RATE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	seq := cfg.SequencingConfig()
	assert.Equal(t, int64(7), seq.Seed)
	assert.Equal(t, 0.25, seq.MutationRate)

	pc := cfg.PricingServiceConfig()
	assert.Equal(t, cfg.Pricing.CacheTTL, pc.CacheTTL)
	assert.Equal(t, cfg.Pricing.GroupSizeMin, pc.GroupSizeMin)
	assert.Equal(t, cfg.Pricing.ProviderTimeout, pc.ProviderTimeout)
}
