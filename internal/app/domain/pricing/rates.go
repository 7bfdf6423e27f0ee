package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
)

// RateSource fetches fresh exchange rates, expressed as units of each
// currency per USD.
type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// defaultRates seed the table so conversion works before the first
// refresh and after refresh failures.
var defaultRates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"CHF": 0.88,
	"JPY": 155.0,
	"AUD": 1.52,
	"CAD": 1.36,
	"SEK": 10.5,
	"NOK": 10.7,
	"THB": 36.0,
	"MXN": 17.1,
	"BRL": 5.1,
}

// ExchangeRates is a refreshable currency table. Reads are lock-shared;
// refresh runs under a time-gated single-writer check, and stale reads
// are tolerated. Last-known-good rates survive refresh failures.
type ExchangeRates struct {
	mu          sync.RWMutex
	rates       map[string]float64
	lastRefresh time.Time
	interval    time.Duration
	source      RateSource
	refreshing  bool
	logger      *zap.Logger
}

// NewExchangeRates creates a rate table seeded with static defaults.
// source may be nil, in which case the defaults are permanent.
func NewExchangeRates(source RateSource, interval time.Duration, logger *zap.Logger) *ExchangeRates {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	seeded := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		seeded[k] = v
	}
	return &ExchangeRates{
		rates:       seeded,
		lastRefresh: time.Now(),
		interval:    interval,
		source:      source,
		logger:      logger,
	}
}

// Convert exchanges an amount into the target currency, refreshing the
// table first when it has gone stale.
func (e *ExchangeRates) Convert(ctx context.Context, m models.Money, to string) (models.Money, error) {
	if m.Currency == to {
		return m, nil
	}
	e.maybeRefresh(ctx)

	e.mu.RLock()
	fromRate, okFrom := e.rates[m.Currency]
	toRate, okTo := e.rates[to]
	e.mu.RUnlock()

	if !okFrom || !okTo {
		return models.Money{}, fmt.Errorf("%w: %s->%s", models.ErrRatesUnavailable, m.Currency, to)
	}

	return m.ConvertTo(to, toRate/fromRate)
}

// maybeRefresh refreshes at most once per interval, from at most one
// goroutine at a time. Failures keep the last-known-good table.
func (e *ExchangeRates) maybeRefresh(ctx context.Context) {
	if e.source == nil {
		return
	}

	e.mu.Lock()
	if e.refreshing || time.Since(e.lastRefresh) < e.interval {
		e.mu.Unlock()
		return
	}
	e.refreshing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.refreshing = false
		e.mu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	fresh, err := e.source.FetchRates(fetchCtx)
	if err != nil || len(fresh) == 0 {
		e.logger.Warn("Exchange rate refresh failed, keeping last-known-good rates", zap.Error(err))
		e.mu.Lock()
		e.lastRefresh = time.Now() // back off until the next interval
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	e.rates = fresh
	e.lastRefresh = time.Now()
	e.mu.Unlock()

	e.logger.Debug("Exchange rates refreshed", zap.Int("currencies", len(fresh)))
}

// Known reports whether a currency is present in the table.
func (e *ExchangeRates) Known(code string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.rates[code]
	return ok
}
