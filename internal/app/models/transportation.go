package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TransportMode is the means of travel for a leg.
type TransportMode string

// Transport modes with modeled average speeds.
const (
	TransportWalking TransportMode = "walking"
	TransportCycling TransportMode = "cycling"
	TransportCar     TransportMode = "car"
	TransportBus     TransportMode = "bus"
	TransportTrain   TransportMode = "train"
	TransportFlight  TransportMode = "flight"
	TransportFerry   TransportMode = "ferry"
)

// SpeedKmh returns the modeled average speed for a mode. Unknown modes
// fall back to car speed.
func (m TransportMode) SpeedKmh() float64 {
	switch m {
	case TransportWalking:
		return 5
	case TransportCycling:
		return 15
	case TransportCar:
		return 60
	case TransportBus:
		return 45
	case TransportTrain:
		return 80
	case TransportFlight:
		return 500
	case TransportFerry:
		return 35
	default:
		return 60
	}
}

// Transportation is a scheduled leg between two locations.
type Transportation struct {
	BaseComponent
	Mode             TransportMode `json:"type"`
	FromLocation     string        `json:"from_location"`
	ToLocation       string        `json:"to_location"`
	FromCoordinates  Coordinates   `json:"from_coordinates"`
	ToCoordinates    Coordinates   `json:"to_coordinates"`
	DepartureTime    time.Time     `json:"departure_time"`
	ArrivalTime      time.Time     `json:"arrival_time"`
	DurationMinutes  int           `json:"duration_minutes"`
	Carrier          string        `json:"carrier,omitempty"`
	VehicleInfo      string        `json:"vehicle_info,omitempty"`
	BookingReference string        `json:"booking_reference,omitempty"`
}

// Plausible human-powered leg bounds, in minutes.
const (
	maxWalkingMinutes = 8 * 60
	maxCyclingMinutes = 12 * 60
)

// Validate checks transportation invariants on top of the base contract.
func (t Transportation) Validate() error {
	if err := t.BaseComponent.Validate(); err != nil {
		return err
	}
	if t.Mode == "" {
		return &FieldError{Field: "type", Code: CodeRequired, Message: "transport mode is required"}
	}
	if strings.TrimSpace(t.FromLocation) == "" || strings.TrimSpace(t.ToLocation) == "" {
		return &FieldError{Field: "from/to", Code: CodeRequired, Message: "both endpoints are required"}
	}
	if !t.FromCoordinates.Valid() || !t.ToCoordinates.Valid() {
		return &FieldError{Field: "coordinates", Code: CodeInvalidCoords, Message: "leg coordinates out of range"}
	}
	if t.DepartureTime.IsZero() || t.ArrivalTime.IsZero() {
		return &FieldError{Field: "departure_time/arrival_time", Code: CodeRequired, Message: "departure and arrival timestamps are required"}
	}
	if !t.DepartureTime.Before(t.ArrivalTime) {
		return &FieldError{Field: "departure_time", Code: CodeInvalidDateRange, Message: "departure must be before arrival"}
	}
	if t.DurationMinutes <= 0 {
		return &FieldError{Field: "duration_minutes", Code: CodeInvalidRange, Message: "duration must be positive"}
	}
	// Stated duration must agree with the timestamps within 5 minutes.
	elapsed := t.ArrivalTime.Sub(t.DepartureTime).Minutes()
	if math.Abs(elapsed-float64(t.DurationMinutes)) > 5 {
		return &FieldError{Field: "duration_minutes", Code: CodeInvalidRange,
			Message: fmt.Sprintf("duration %dm inconsistent with timestamps (%.0fm elapsed)", t.DurationMinutes, elapsed)}
	}
	if t.Mode == TransportFlight && strings.TrimSpace(t.Carrier) == "" {
		return &FieldError{Field: "carrier", Code: CodeMissingCarrier, Message: "flights require a carrier"}
	}
	if t.Mode == TransportWalking && t.DurationMinutes > maxWalkingMinutes {
		return &FieldError{Field: "duration_minutes", Code: CodeImplausible, Message: "walking leg exceeds a plausible human range"}
	}
	if t.Mode == TransportCycling && t.DurationMinutes > maxCyclingMinutes {
		return &FieldError{Field: "duration_minutes", Code: CodeImplausible, Message: "cycling leg exceeds a plausible human range"}
	}
	return nil
}

// Type implements Component.
func (t Transportation) Type() ComponentType { return ComponentTypeTransportation }

// EstimatedDuration implements Component.
func (t Transportation) EstimatedDuration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// IsAvailable reports whether the departure falls inside the range.
func (t Transportation) IsAvailable(r DateRange) bool {
	if r.Start.IsZero() && r.End.IsZero() {
		return true
	}
	d := t.DepartureTime
	return !d.Before(r.Start) && !d.After(r.End.Add(24*time.Hour))
}

// Priority is a tie-breaking signal only.
func (t Transportation) Priority() int {
	p := 1
	if t.Mode == TransportTrain || t.Mode == TransportFlight {
		p++
	}
	if t.BookingReference != "" {
		p++
	}
	return p
}

// Base implements Component.
func (t Transportation) Base() BaseComponent { return t.BaseComponent }

// Clone returns a validated copy with a derived id and fresh timestamps.
func (t Transportation) Clone(mutate func(*Transportation)) (Transportation, error) {
	dup := t
	dup.Images = append([]string(nil), t.Images...)
	dup.Tags = append([]string(nil), t.Tags...)
	dup.cloneIdentity()
	if mutate != nil {
		mutate(&dup)
		dup.touch()
	}
	if err := dup.Validate(); err != nil {
		return Transportation{}, fmt.Errorf("cloned transportation invalid: %w", err)
	}
	return dup, nil
}
