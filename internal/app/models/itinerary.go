package models

import "time"

// ScheduledActivity is an activity pinned to a start/end time in a day.
type ScheduledActivity struct {
	Activity  Activity  `json:"activity"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// MealType names one of the three daily meal slots.
type MealType string

// Meal slots.
const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealSlot is a reserved meal window in a day plan.
type MealSlot struct {
	Type      MealType  `json:"type"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Style     string    `json:"style,omitempty"`
	Budget    Money     `json:"budget"`
}

// PacePreference is the traveler's desired activity density.
type PacePreference string

// Pace preferences.
const (
	PaceRelaxed  PacePreference = "relaxed"
	PaceModerate PacePreference = "moderate"
	PacePacked   PacePreference = "packed"
)

// ItineraryDay is one fully scheduled day of the trip.
type ItineraryDay struct {
	Date           time.Time           `json:"date"`
	DestinationID  string              `json:"destination_id"`
	Accommodation  *Accommodation      `json:"accommodation,omitempty"`
	Activities     []ScheduledActivity `json:"activities"`
	Transportation []TransportLeg      `json:"transportation,omitempty"`
	Meals          []MealSlot          `json:"meals"`
	EstimatedCost  Money               `json:"estimated_cost"`
	Pacing         PacePreference      `json:"pacing"`
}

// ContentMatchScore is the scored relevance of one content item against
// the traveler's criteria. Produced fresh per generation request.
type ContentMatchScore struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// CostBreakdown aggregates the priced itinerary.
type CostBreakdown struct {
	Total          Money            `json:"total"`
	Accommodation  Money            `json:"accommodation"`
	Activities     Money            `json:"activities"`
	Transportation Money            `json:"transportation"`
	Meals          Money            `json:"meals"`
	Misc           Money            `json:"misc"`
	PerDay         []Money          `json:"per_day"`
	Contingency    Money            `json:"contingency"`
	Confidence     float64          `json:"confidence"`
}

// ItinerarySummary is the at-a-glance description of a generated trip.
type ItinerarySummary struct {
	Highlights        []string `json:"highlights"`
	DestinationCount  int      `json:"destination_count"`
	ActivityCount     int      `json:"activity_count"`
	PhysicalDemand    string   `json:"physical_demand"`
	CulturalImmersion string   `json:"cultural_immersion"`
}

// StageTiming records wall-clock spent in one pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// GenerationMetadata annotates a result with timing and usage data.
type GenerationMetadata struct {
	ComponentsEvaluated  int           `json:"components_evaluated"`
	StageTimings         []StageTiming `json:"stage_timings"`
	OptimizationsApplied []string      `json:"optimizations_applied,omitempty"`
	FallbackUsed         bool          `json:"fallback_used"`
	CacheHit             bool          `json:"cache_hit"`
	TotalDuration        time.Duration `json:"total_duration"`
}

// ItinerarySchemaVersion is bumped when GeneratedItinerary changes shape.
const ItinerarySchemaVersion = "1.0"

// GeneratedItinerary is the engine's final product.
type GeneratedItinerary struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Destinations  []SequencedDestination `json:"destinations"`
	Days          []ItineraryDay         `json:"days"`
	TotalDuration int                    `json:"total_duration_days"`
	TotalCost     Money                  `json:"total_estimated_cost"`
	Costs         CostBreakdown          `json:"costs"`
	Summary       ItinerarySummary       `json:"summary"`
	Metadata      GenerationMetadata     `json:"metadata"`
	Preferences   UserPreferences        `json:"preferences"`
	GeneratedAt   time.Time              `json:"generated_at"`
	SchemaVersion string                 `json:"schema_version"`
}
