package engine

import (
	"strings"

	"github.com/tripforge/itinera/internal/app/models"
)

// Trip length bounds accepted by the engine.
const (
	minTripDays = 1
	maxTripDays = 30
)

// ValidatePreferences checks the structural validity of traveler
// preferences. A non-nil result means the pipeline must not run.
func ValidatePreferences(prefs models.UserPreferences) *models.ValidationError {
	var errs []models.FieldError

	if prefs.StartDate.IsZero() {
		errs = append(errs, models.FieldError{Field: "start_date", Code: models.CodeRequired, Message: "start date is required"})
	}
	if prefs.EndDate.IsZero() {
		errs = append(errs, models.FieldError{Field: "end_date", Code: models.CodeRequired, Message: "end date is required"})
	}
	if !prefs.StartDate.IsZero() && !prefs.EndDate.IsZero() {
		if prefs.StartDate.After(prefs.EndDate) {
			errs = append(errs, models.FieldError{Field: "start_date", Code: models.CodeInvalidDateRange, Message: "start date is after end date"})
		} else {
			days := prefs.TripDurationDays()
			if days < minTripDays {
				errs = append(errs, models.FieldError{Field: "end_date", Code: models.CodeInvalidDateRange, Message: "trip must span at least one day"})
			}
			if days > maxTripDays {
				errs = append(errs, models.FieldError{Field: "end_date", Code: models.CodeTripTooLong, Message: "trip cannot exceed 30 days"})
			}
		}
	}

	if strings.TrimSpace(prefs.PrimaryDestination) == "" {
		errs = append(errs, models.FieldError{Field: "primary_destination", Code: models.CodeRequired, Message: "primary destination is required"})
	}

	if prefs.Travelers < 1 {
		errs = append(errs, models.FieldError{Field: "travelers", Code: models.CodeNoTravelers, Message: "at least one traveler is required"})
	}

	if prefs.BudgetMin != nil && prefs.BudgetMax != nil && *prefs.BudgetMin > *prefs.BudgetMax {
		errs = append(errs, models.FieldError{Field: "budget_min", Code: models.CodeInvalidBudget, Message: "budget minimum exceeds maximum"})
	}
	if prefs.BudgetCurrency != "" && !models.ValidCurrencyCode(prefs.BudgetCurrency) {
		errs = append(errs, models.FieldError{Field: "budget_currency", Code: models.CodeInvalidCurrency, Message: "unknown budget currency"})
	}

	if len(errs) == 0 {
		return nil
	}
	return &models.ValidationError{Errors: errs}
}
