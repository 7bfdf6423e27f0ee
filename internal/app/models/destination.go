package models

import (
	"strings"
	"time"
)

// Destination is a place the itinerary can route through. CountryCode
// and LocalCurrency drive regional pricing.
type Destination struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Location      string      `json:"location"`
	Coordinates   Coordinates `json:"coordinates"`
	CountryCode   string      `json:"country_code"`
	LocalCurrency string      `json:"local_currency"`
}

// Validate checks destination invariants.
func (d Destination) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return &FieldError{Field: "id", Code: CodeRequired, Message: "destination id cannot be empty"}
	}
	if strings.TrimSpace(d.Title) == "" {
		return &FieldError{Field: "title", Code: CodeRequired, Message: "destination title cannot be empty"}
	}
	if !d.Coordinates.Valid() {
		return &FieldError{Field: "coordinates", Code: CodeInvalidCoords, Message: "destination coordinates out of range"}
	}
	if d.LocalCurrency != "" && !ValidCurrencyCode(d.LocalCurrency) {
		return &FieldError{Field: "local_currency", Code: CodeInvalidCurrency, Message: "unknown local currency"}
	}
	return nil
}

// TransportLeg is an estimated connection between consecutive
// destinations or within a day plan.
type TransportLeg struct {
	Mode       TransportMode `json:"mode"`
	DistanceKm float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration"`
	Cost       Money         `json:"cost"`
}

// SequencedDestination is a destination placed in the trip order with
// its allocated dates.
type SequencedDestination struct {
	Destination
	SequenceOrder          int           `json:"sequence_order"`
	ArrivalDate            time.Time     `json:"arrival_date"`
	DepartureDate          time.Time     `json:"departure_date"`
	DaysAllocated          int           `json:"days_allocated"`
	TravelTimeFromPrevious time.Duration `json:"travel_time_from_previous"`
	TransportToPrevious    *TransportLeg `json:"transport_to_previous,omitempty"`
}
