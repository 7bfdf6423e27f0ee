package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/tripforge/itinera/internal/app/models"
)

// RealTimeQuery asks an external provider for live pricing data.
type RealTimeQuery struct {
	Type       string            `json:"type"`
	Location   string            `json:"location,omitempty"`
	Dates      *models.DateRange `json:"dates,omitempty"`
	Parameters map[string]any    `json:"parameters,omitempty"`
}

// RateLimit reports the provider's remaining quota.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RealTimeData is a provider response.
type RealTimeData struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	RateLimit *RateLimit     `json:"rate_limit,omitempty"`
}

// ExternalDataProvider is consumed, never implemented here. The engine
// tolerates provider absence or failure by falling back to modeled
// pricing.
type ExternalDataProvider interface {
	GetRealTimeData(ctx context.Context, q RealTimeQuery) (*RealTimeData, error)
	HealthCheck(ctx context.Context) error
	GetUsageStats(ctx context.Context) (map[string]int64, error)
}

// providerHealth skips a flaky provider for a cooldown window after
// repeated consecutive failures.
type providerHealth struct {
	mu          sync.Mutex
	failures    int
	skipUntil   time.Time
	maxFailures int
	cooldown    time.Duration
}

func newProviderHealth() *providerHealth {
	return &providerHealth{
		maxFailures: 3,
		cooldown:    5 * time.Minute,
	}
}

// available reports whether the provider should be tried at all.
func (h *providerHealth) available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Now().After(h.skipUntil)
}

func (h *providerHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
}

func (h *providerHealth) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	if h.failures >= h.maxFailures {
		h.skipUntil = time.Now().Add(h.cooldown)
		h.failures = 0
	}
}
