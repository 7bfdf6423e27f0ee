package models

import "time"

// UserPreferences is the traveler's input to a generation run.
type UserPreferences struct {
	StartDate          time.Time      `json:"start_date"`
	EndDate            time.Time      `json:"end_date"`
	PrimaryDestination string         `json:"primary_destination"`
	StartLocation      *Coordinates   `json:"start_location,omitempty"`
	Travelers          int            `json:"travelers"`
	BudgetMin          *float64       `json:"budget_min,omitempty"`
	BudgetMax          *float64       `json:"budget_max,omitempty"`
	BudgetCurrency     string         `json:"budget_currency,omitempty"`
	Interests          []string       `json:"interests,omitempty"`
	AccommodationType  string         `json:"accommodation_type,omitempty"`
	TransportPref      TransportMode  `json:"transportation_preference,omitempty"`
	Pace               PacePreference `json:"pace_preference,omitempty"`
	MealStyle          string         `json:"meal_style,omitempty"`
	DayStart           string         `json:"day_start,omitempty"` // HH:MM, default 09:00
	DayEnd             string         `json:"day_end,omitempty"`   // HH:MM, default 21:00
	RequiresAccessible bool           `json:"requires_accessible,omitempty"`
	// MustVisitOrder lists (before, after) destination id pairs the
	// sequence should try to keep adjacent, in order.
	MustVisitOrder [][2]string `json:"must_visit_order,omitempty"`
	// MaxTravelTimePerDay caps acceptable inter-destination travel.
	MaxTravelTimePerDay time.Duration `json:"max_travel_time_per_day,omitempty"`
}

// TripDurationDays returns the trip length in days, endpoints inclusive.
func (p UserPreferences) TripDurationDays() int {
	return DateRange{Start: p.StartDate, End: p.EndDate}.Days()
}

// TravelWindow returns the preference dates as a range.
func (p UserPreferences) TravelWindow() DateRange {
	return DateRange{Start: p.StartDate, End: p.EndDate}
}

// EngineOptions tunes a generation run.
type EngineOptions struct {
	PerformanceTargetMs      int     `json:"performance_target_ms"`
	EnableParallelProcessing bool    `json:"enable_parallel_processing"`
	CacheEnabled             bool    `json:"cache_enabled"`
	MaxContentItems          int     `json:"max_content_items"`
	FallbackStrategies       bool    `json:"fallback_strategies"`
	DebugMode                bool    `json:"debug_mode"`
	// RandSeed, ClusterRadiusKm, and MutationRate take effect when the
	// sequencing service is constructed (see pkg/config); request-level
	// values are ignored.
	RandSeed        int64   `json:"rand_seed,omitempty"`
	ClusterRadiusKm float64 `json:"cluster_radius_km,omitempty"`
	MutationRate    float64 `json:"mutation_rate,omitempty"`
	ScoreThreshold  float64 `json:"score_threshold,omitempty"`
	ContingencyPct  float64 `json:"contingency_pct,omitempty"`
}

// DefaultEngineOptions returns the documented option defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		PerformanceTargetMs:      3000,
		EnableParallelProcessing: true,
		CacheEnabled:             true,
		MaxContentItems:          10000,
		FallbackStrategies:       true,
		DebugMode:                false,
		ClusterRadiusKm:          100,
		MutationRate:             0.10,
		ScoreThreshold:           0.5,
		ContingencyPct:           0.15,
	}
}

// GenerationRequest is the engine's input.
type GenerationRequest struct {
	Preferences      UserPreferences `json:"preferences"`
	AvailableContent []Component     `json:"available_content"`
	Destinations     []Destination   `json:"destinations"`
	Options          *EngineOptions  `json:"options,omitempty"`
}

// GenerationResult is the engine's output.
type GenerationResult struct {
	Itinerary    *GeneratedItinerary  `json:"itinerary"`
	Success      bool                 `json:"success"`
	Error        *GenerationError     `json:"error,omitempty"`
	Metadata     GenerationMetadata   `json:"metadata"`
	Alternatives []GeneratedItinerary `json:"alternatives,omitempty"`
	CacheKey     string               `json:"cache_key,omitempty"`
}
