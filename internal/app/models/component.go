package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ComponentType tags the concrete kind of a content component.
type ComponentType string

// Component types recognized by the factory and the scoring pipeline.
const (
	ComponentTypeActivity       ComponentType = "activity"
	ComponentTypeAccommodation  ComponentType = "accommodation"
	ComponentTypeTransportation ComponentType = "transportation"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is inside the WGS84 envelope.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// IsZero reports whether both fields are unset. A zero pair almost always
// means missing data rather than a point in the Gulf of Guinea.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// DateRange is an inclusive travel window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of trip days covered by the range, counting
// both endpoints.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Component is the contract shared by all itinerary content types.
// Implementations are value types: mutation happens through Clone, which
// returns a new, independently validated instance.
type Component interface {
	Validate() error
	Type() ComponentType
	EstimatedDuration() time.Duration
	IsAvailable(r DateRange) bool
	Priority() int
	Base() BaseComponent
}

// BaseComponent carries the fields common to every content type.
type BaseComponent struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Images        []string   `json:"images,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	EstimatedCost *Money     `json:"estimated_cost,omitempty"`
	BookingURL    string     `json:"booking_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate checks the invariants shared by all component kinds.
func (b BaseComponent) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return &FieldError{Field: "id", Code: CodeRequired, Message: "component id cannot be empty"}
	}
	if strings.TrimSpace(b.Title) == "" {
		return &FieldError{Field: "title", Code: CodeRequired, Message: "component title cannot be empty"}
	}
	if strings.TrimSpace(b.Description) == "" {
		return &FieldError{Field: "description", Code: CodeRequired, Message: "component description cannot be empty"}
	}
	for _, img := range b.Images {
		if !validImageRef(img) {
			return &FieldError{Field: "images", Code: CodeInvalidURL, Message: fmt.Sprintf("invalid image reference %q", img)}
		}
	}
	if b.EstimatedCost != nil {
		if b.EstimatedCost.Amount < 0 {
			return &FieldError{Field: "estimated_cost", Code: CodeNegativeAmount, Message: "estimated cost cannot be negative"}
		}
		if !ValidCurrencyCode(b.EstimatedCost.Currency) {
			return &FieldError{Field: "estimated_cost", Code: CodeInvalidCurrency, Message: fmt.Sprintf("unknown currency %q", b.EstimatedCost.Currency)}
		}
	}
	if b.BookingURL != "" {
		if u, err := url.Parse(b.BookingURL); err != nil || u.Scheme == "" || u.Host == "" {
			return &FieldError{Field: "booking_url", Code: CodeInvalidURL, Message: fmt.Sprintf("invalid booking url %q", b.BookingURL)}
		}
	}
	return nil
}

// touch stamps a fresh UpdatedAt on a mutated copy.
func (b *BaseComponent) touch() {
	b.UpdatedAt = time.Now().UTC()
}

// cloneIdentity gives a copied component a derived id and fresh timestamps.
func (b *BaseComponent) cloneIdentity() {
	b.ID = fmt.Sprintf("%s-%s", b.ID, uuid.NewString()[:8])
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// validImageRef accepts absolute URLs and root-relative paths.
func validImageRef(ref string) bool {
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "/") {
		return true
	}
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != ""
}
