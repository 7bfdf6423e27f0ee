package models

import (
	"fmt"
	"time"
)

// ActivityCategory classifies an activity for matching and pacing.
type ActivityCategory string

// Activity categories.
const (
	CategorySightseeing   ActivityCategory = "sightseeing"
	CategoryAdventure     ActivityCategory = "adventure"
	CategoryCultural      ActivityCategory = "cultural"
	CategoryCulinary      ActivityCategory = "culinary"
	CategoryNature        ActivityCategory = "nature"
	CategoryNightlife     ActivityCategory = "nightlife"
	CategoryShopping      ActivityCategory = "shopping"
	CategoryRelaxation    ActivityCategory = "relaxation"
	CategoryEntertainment ActivityCategory = "entertainment"
)

// DifficultyLevel grades the physical demand of an activity.
type DifficultyLevel string

// Difficulty levels.
const (
	DifficultyEasy        DifficultyLevel = "easy"
	DifficultyModerate    DifficultyLevel = "moderate"
	DifficultyChallenging DifficultyLevel = "challenging"
	DifficultyExtreme     DifficultyLevel = "extreme"
)

// Season bounds when an activity is offered.
type Season string

// Seasons.
const (
	SeasonSpring    Season = "spring"
	SeasonSummer    Season = "summer"
	SeasonAutumn    Season = "autumn"
	SeasonWinter    Season = "winter"
	SeasonYearRound Season = "year-round"
)

var knownSeasons = map[Season]bool{
	SeasonSpring:    true,
	SeasonSummer:    true,
	SeasonAutumn:    true,
	SeasonWinter:    true,
	SeasonYearRound: true,
}

// SeasonOf maps a month to its season (northern hemisphere convention).
func SeasonOf(month time.Month) Season {
	switch month {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// TimeSlot is the daily window an activity occupies, local time HH:MM.
type TimeSlot struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Activity is a bookable or free thing to do at a destination.
type Activity struct {
	BaseComponent
	Category             ActivityCategory `json:"category"`
	Location             string           `json:"location"`
	Coordinates          Coordinates      `json:"coordinates"`
	TimeSlot             TimeSlot         `json:"time_slot"`
	Difficulty           DifficultyLevel  `json:"difficulty"`
	MinAge               *int             `json:"min_age,omitempty"`
	MaxGroupSize         *int             `json:"max_group_size,omitempty"`
	Indoor               bool             `json:"indoor"`
	WheelchairAccessible bool             `json:"wheelchair_accessible"`
	Seasonality          []Season         `json:"seasonality,omitempty"`
	BookingRequired      bool             `json:"booking_required"`
}

// Validate checks activity invariants on top of the base contract.
func (a Activity) Validate() error {
	if err := a.BaseComponent.Validate(); err != nil {
		return err
	}
	if a.Category == "" {
		return &FieldError{Field: "category", Code: CodeRequired, Message: "activity category is required"}
	}
	if !a.Coordinates.Valid() {
		return &FieldError{Field: "coordinates", Code: CodeInvalidCoords, Message: "activity coordinates out of range"}
	}
	start, err := parseClock(a.TimeSlot.StartTime)
	if err != nil {
		return &FieldError{Field: "time_slot.start_time", Code: CodeInvalidTime, Message: err.Error()}
	}
	end, err := parseClock(a.TimeSlot.EndTime)
	if err != nil {
		return &FieldError{Field: "time_slot.end_time", Code: CodeInvalidTime, Message: err.Error()}
	}
	if !start.Before(end) {
		return &FieldError{Field: "time_slot", Code: CodeInvalidRange, Message: "time slot start must be before end"}
	}
	if a.TimeSlot.DurationMinutes <= 0 {
		return &FieldError{Field: "time_slot.duration_minutes", Code: CodeInvalidRange, Message: "activity duration must be positive"}
	}
	for _, s := range a.Seasonality {
		if !knownSeasons[s] {
			return &FieldError{Field: "seasonality", Code: CodeInvalidRange, Message: fmt.Sprintf("unknown season %q", s)}
		}
	}
	if a.MinAge != nil && *a.MinAge < 0 {
		return &FieldError{Field: "min_age", Code: CodeInvalidRange, Message: "minimum age cannot be negative"}
	}
	if a.MaxGroupSize != nil && *a.MaxGroupSize <= 0 {
		return &FieldError{Field: "max_group_size", Code: CodeInvalidRange, Message: "max group size must be positive"}
	}
	return nil
}

// Type implements Component.
func (a Activity) Type() ComponentType { return ComponentTypeActivity }

// EstimatedDuration implements Component.
func (a Activity) EstimatedDuration() time.Duration {
	return time.Duration(a.TimeSlot.DurationMinutes) * time.Minute
}

// IsAvailable reports whether the activity runs during any season the
// date range touches. Year-round and unspecified seasonality always match.
func (a Activity) IsAvailable(r DateRange) bool {
	if len(a.Seasonality) == 0 {
		return true
	}
	offered := make(map[Season]bool, len(a.Seasonality))
	for _, s := range a.Seasonality {
		if s == SeasonYearRound {
			return true
		}
		offered[s] = true
	}
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if offered[SeasonOf(d.Month())] {
			return true
		}
	}
	return false
}

// Priority is a tie-breaking signal only, never the primary ranking.
func (a Activity) Priority() int {
	p := 1
	switch a.Category {
	case CategorySightseeing, CategoryCultural:
		p += 2
	case CategoryAdventure, CategoryCulinary:
		p++
	}
	if a.BookingRequired {
		p++
	}
	return p
}

// Base implements Component.
func (a Activity) Base() BaseComponent { return a.BaseComponent }

// Clone returns a validated copy with a derived id and fresh timestamps.
// mutate, when non-nil, adjusts the copy before validation.
func (a Activity) Clone(mutate func(*Activity)) (Activity, error) {
	dup := a
	dup.Images = append([]string(nil), a.Images...)
	dup.Tags = append([]string(nil), a.Tags...)
	dup.Seasonality = append([]Season(nil), a.Seasonality...)
	dup.cloneIdentity()
	if mutate != nil {
		mutate(&dup)
		dup.touch()
	}
	if err := dup.Validate(); err != nil {
		return Activity{}, fmt.Errorf("cloned activity invalid: %w", err)
	}
	return dup, nil
}

// parseClock parses a local HH:MM clock value.
func parseClock(v string) (time.Time, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid HH:MM value %q", v)
	}
	return t, nil
}
