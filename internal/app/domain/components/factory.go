package components

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tripforge/itinera/internal/app/models"
)

// Factory builds typed, validated components from loosely-typed content
// maps, discriminating on shape:
//
//	category + time_slot                Activity
//	room_types + check_in_time          Accommodation
//	from + to + departure_time          Transportation
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a component factory.
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{logger: logger}
}

// FromContent inspects the discriminating fields of content and builds
// the matching component. Validation runs synchronously; the first
// violated invariant aborts construction with a typed error.
func (f *Factory) FromContent(content map[string]any) (models.Component, error) {
	switch {
	case hasKey(content, "category") && hasKey(content, "time_slot"):
		return f.buildActivity(content)
	case hasKey(content, "room_types") && hasKey(content, "check_in_time"):
		return f.buildAccommodation(content)
	case hasKey(content, "from_location") && hasKey(content, "to_location") && hasKey(content, "departure_time"):
		return f.buildTransportation(content)
	default:
		f.logger.Warn("Unrecognized content shape", zap.Any("keys", keysOf(content)))
		return nil, fmt.Errorf("%w: keys %v", models.ErrUnknownShape, keysOf(content))
	}
}

func (f *Factory) buildActivity(content map[string]any) (models.Component, error) {
	a := models.Activity{
		BaseComponent:        baseFrom(content),
		Category:             models.ActivityCategory(stringField(content, "category")),
		Location:             stringField(content, "location"),
		Coordinates:          coordsFrom(content, "coordinates"),
		Difficulty:           models.DifficultyLevel(stringField(content, "difficulty")),
		Indoor:               boolField(content, "indoor"),
		WheelchairAccessible: boolField(content, "wheelchair_accessible"),
		BookingRequired:      boolField(content, "booking_required"),
	}
	if slot, ok := content["time_slot"].(map[string]any); ok {
		a.TimeSlot = models.TimeSlot{
			StartTime:       stringField(slot, "start_time"),
			EndTime:         stringField(slot, "end_time"),
			DurationMinutes: intField(slot, "duration_minutes"),
		}
	}
	if v, ok := content["min_age"]; ok {
		age := toInt(v)
		a.MinAge = &age
	}
	if v, ok := content["max_group_size"]; ok {
		size := toInt(v)
		a.MaxGroupSize = &size
	}
	for _, s := range stringSlice(content, "seasonality") {
		a.Seasonality = append(a.Seasonality, models.Season(s))
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("activity construction failed: %w", err)
	}
	return a, nil
}

func (f *Factory) buildAccommodation(content map[string]any) (models.Component, error) {
	acc := models.Accommodation{
		BaseComponent:      baseFrom(content),
		Kind:               models.AccommodationType(stringField(content, "type")),
		Location:           stringField(content, "location"),
		Coordinates:        coordsFrom(content, "coordinates"),
		Amenities:          stringSlice(content, "amenities"),
		CheckInTime:        stringField(content, "check_in_time"),
		CheckOutTime:       stringField(content, "check_out_time"),
		CancellationPolicy: stringField(content, "cancellation_policy"),
	}
	if v, ok := content["star_rating"]; ok {
		rating := toInt(v)
		acc.StarRating = &rating
	}
	if contact, ok := content["contact"].(map[string]any); ok {
		acc.Contact = models.ContactInfo{
			Address: stringField(contact, "address"),
			Email:   stringField(contact, "email"),
			Website: stringField(contact, "website"),
		}
	}
	if rooms, ok := content["room_types"].([]any); ok {
		for _, r := range rooms {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			acc.RoomTypes = append(acc.RoomTypes, models.RoomType{
				Name:     stringField(rm, "name"),
				Capacity: intField(rm, "capacity"),
				PricePerNight: models.Money{
					Amount:   floatField(rm, "price_per_night"),
					Currency: stringField(rm, "currency"),
				},
			})
		}
	}
	if err := acc.Validate(); err != nil {
		return nil, fmt.Errorf("accommodation construction failed: %w", err)
	}
	return acc, nil
}

func (f *Factory) buildTransportation(content map[string]any) (models.Component, error) {
	t := models.Transportation{
		BaseComponent:    baseFrom(content),
		Mode:             models.TransportMode(stringField(content, "type")),
		FromLocation:     stringField(content, "from_location"),
		ToLocation:       stringField(content, "to_location"),
		FromCoordinates:  coordsFrom(content, "from_coordinates"),
		ToCoordinates:    coordsFrom(content, "to_coordinates"),
		DurationMinutes:  intField(content, "duration_minutes"),
		Carrier:          stringField(content, "carrier"),
		VehicleInfo:      stringField(content, "vehicle_info"),
		BookingReference: stringField(content, "booking_reference"),
	}
	var err error
	if t.DepartureTime, err = timeField(content, "departure_time"); err != nil {
		return nil, fmt.Errorf("transportation construction failed: %w", err)
	}
	if t.ArrivalTime, err = timeField(content, "arrival_time"); err != nil {
		return nil, fmt.Errorf("transportation construction failed: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("transportation construction failed: %w", err)
	}
	return t, nil
}

// baseFrom extracts the shared component fields.
func baseFrom(content map[string]any) models.BaseComponent {
	now := time.Now().UTC()
	b := models.BaseComponent{
		ID:          stringField(content, "id"),
		Title:       stringField(content, "title"),
		Description: stringField(content, "description"),
		Images:      stringSlice(content, "images"),
		Tags:        stringSlice(content, "tags"),
		BookingURL:  stringField(content, "booking_url"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cost, ok := content["estimated_cost"].(map[string]any); ok {
		b.EstimatedCost = &models.Money{
			Amount:   floatField(cost, "amount"),
			Currency: stringField(cost, "currency"),
		}
	}
	if v, err := timeField(content, "created_at"); err == nil {
		b.CreatedAt = v
	}
	if v, err := timeField(content, "updated_at"); err == nil {
		b.UpdatedAt = v
	}
	return b
}

func hasKey(content map[string]any, key string) bool {
	_, ok := content[key]
	return ok
}

func keysOf(content map[string]any) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	return keys
}

func stringField(content map[string]any, key string) string {
	if v, ok := content[key].(string); ok {
		return v
	}
	return ""
}

func boolField(content map[string]any, key string) bool {
	if v, ok := content[key].(bool); ok {
		return v
	}
	return false
}

func floatField(content map[string]any, key string) float64 {
	switch v := content[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intField(content map[string]any, key string) int {
	return toInt(content[key])
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func stringSlice(content map[string]any, key string) []string {
	switch v := content[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func coordsFrom(content map[string]any, key string) models.Coordinates {
	if c, ok := content[key].(map[string]any); ok {
		return models.Coordinates{
			Latitude:  floatField(c, "latitude"),
			Longitude: floatField(c, "longitude"),
		}
	}
	return models.Coordinates{}
}

func timeField(content map[string]any, key string) (time.Time, error) {
	switch v := content[key].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q for %s", v, key)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("missing timestamp field %s", key)
}
