package models

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// AccommodationType classifies lodging.
type AccommodationType string

// Accommodation types.
const (
	AccommodationHotel      AccommodationType = "hotel"
	AccommodationHostel     AccommodationType = "hostel"
	AccommodationApartment  AccommodationType = "apartment"
	AccommodationGuesthouse AccommodationType = "guesthouse"
	AccommodationResort     AccommodationType = "resort"
	AccommodationCamping    AccommodationType = "camping"
)

// RoomType is one bookable room category at an accommodation.
type RoomType struct {
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
	PricePerNight Money  `json:"price_per_night"`
}

// ContactInfo carries contact details for an accommodation. Address is
// required; email and website are validated when present.
type ContactInfo struct {
	Address string `json:"address"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Accommodation is a place to stay at a destination.
type Accommodation struct {
	BaseComponent
	Kind               AccommodationType `json:"type"`
	Location           string            `json:"location"`
	Coordinates        Coordinates       `json:"coordinates"`
	StarRating         *int              `json:"star_rating,omitempty"`
	Amenities          []string          `json:"amenities,omitempty"`
	RoomTypes          []RoomType        `json:"room_types"`
	CheckInTime        string            `json:"check_in_time"`
	CheckOutTime       string            `json:"check_out_time"`
	CancellationPolicy string            `json:"cancellation_policy,omitempty"`
	Contact            ContactInfo       `json:"contact"`
}

// Validate checks accommodation invariants on top of the base contract.
func (a Accommodation) Validate() error {
	if err := a.BaseComponent.Validate(); err != nil {
		return err
	}
	if a.Kind == "" {
		return &FieldError{Field: "type", Code: CodeRequired, Message: "accommodation type is required"}
	}
	if !a.Coordinates.Valid() {
		return &FieldError{Field: "coordinates", Code: CodeInvalidCoords, Message: "accommodation coordinates out of range"}
	}
	if a.StarRating != nil && (*a.StarRating < 1 || *a.StarRating > 5) {
		return &FieldError{Field: "star_rating", Code: CodeInvalidRange, Message: "star rating must be between 1 and 5"}
	}
	if len(a.RoomTypes) == 0 {
		return &FieldError{Field: "room_types", Code: CodeRequired, Message: "at least one room type is required"}
	}
	for i, rt := range a.RoomTypes {
		if strings.TrimSpace(rt.Name) == "" {
			return &FieldError{Field: fmt.Sprintf("room_types[%d].name", i), Code: CodeRequired, Message: "room type name cannot be empty"}
		}
		if rt.Capacity <= 0 {
			return &FieldError{Field: fmt.Sprintf("room_types[%d].capacity", i), Code: CodeInvalidRange, Message: "room capacity must be positive"}
		}
		if rt.PricePerNight.Amount < 0 {
			return &FieldError{Field: fmt.Sprintf("room_types[%d].price_per_night", i), Code: CodeNegativeAmount, Message: "room price cannot be negative"}
		}
		if !ValidCurrencyCode(rt.PricePerNight.Currency) {
			return &FieldError{Field: fmt.Sprintf("room_types[%d].price_per_night", i), Code: CodeInvalidCurrency, Message: fmt.Sprintf("unknown currency %q", rt.PricePerNight.Currency)}
		}
	}
	if _, err := parseClock(a.CheckInTime); err != nil {
		return &FieldError{Field: "check_in_time", Code: CodeInvalidTime, Message: err.Error()}
	}
	if _, err := parseClock(a.CheckOutTime); err != nil {
		return &FieldError{Field: "check_out_time", Code: CodeInvalidTime, Message: err.Error()}
	}
	if strings.TrimSpace(a.Contact.Address) == "" {
		return &FieldError{Field: "contact.address", Code: CodeRequired, Message: "contact address is required"}
	}
	if a.Contact.Email != "" {
		if _, err := mail.ParseAddress(a.Contact.Email); err != nil {
			return &FieldError{Field: "contact.email", Code: CodeInvalidRange, Message: fmt.Sprintf("invalid email %q", a.Contact.Email)}
		}
	}
	if a.Contact.Website != "" {
		if u, err := url.Parse(a.Contact.Website); err != nil || u.Scheme == "" || u.Host == "" {
			return &FieldError{Field: "contact.website", Code: CodeInvalidURL, Message: fmt.Sprintf("invalid website %q", a.Contact.Website)}
		}
	}
	return nil
}

// Type implements Component.
func (a Accommodation) Type() ComponentType { return ComponentTypeAccommodation }

// EstimatedDuration is one night for lodging.
func (a Accommodation) EstimatedDuration() time.Duration { return 24 * time.Hour }

// IsAvailable always holds for lodging; seasonal closure is not modeled.
func (a Accommodation) IsAvailable(DateRange) bool { return true }

// Priority is a tie-breaking signal only.
func (a Accommodation) Priority() int {
	p := 1
	if a.StarRating != nil {
		p += *a.StarRating / 2
	}
	return p
}

// Base implements Component.
func (a Accommodation) Base() BaseComponent { return a.BaseComponent }

// CheapestRoom returns the lowest nightly rate on offer.
func (a Accommodation) CheapestRoom() *RoomType {
	if len(a.RoomTypes) == 0 {
		return nil
	}
	best := &a.RoomTypes[0]
	for i := range a.RoomTypes[1:] {
		rt := &a.RoomTypes[i+1]
		if rt.PricePerNight.Amount < best.PricePerNight.Amount {
			best = rt
		}
	}
	return best
}

// Clone returns a validated copy with a derived id and fresh timestamps.
func (a Accommodation) Clone(mutate func(*Accommodation)) (Accommodation, error) {
	dup := a
	dup.Images = append([]string(nil), a.Images...)
	dup.Tags = append([]string(nil), a.Tags...)
	dup.Amenities = append([]string(nil), a.Amenities...)
	dup.RoomTypes = append([]RoomType(nil), a.RoomTypes...)
	dup.cloneIdentity()
	if mutate != nil {
		mutate(&dup)
		dup.touch()
	}
	if err := dup.Validate(); err != nil {
		return Accommodation{}, fmt.Errorf("cloned accommodation invalid: %w", err)
	}
	return dup, nil
}
