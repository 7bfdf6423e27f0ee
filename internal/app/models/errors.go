package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain specific errors for content construction and generation.
var (
	ErrUnknownShape     = errors.New("content shape not recognized by any component type")
	ErrEmptyContent     = errors.New("content pool is empty")
	ErrNoDestinations   = errors.New("no destinations to sequence")
	ErrProviderMiss     = errors.New("no real-time price available")
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
)

// Validation error codes surfaced to callers.
const (
	CodeRequired         = "REQUIRED"
	CodeInvalidDateRange = "INVALID_DATE_RANGE"
	CodeTripTooLong      = "TRIP_TOO_LONG"
	CodeNoTravelers      = "NO_TRAVELERS"
	CodeInvalidBudget    = "INVALID_BUDGET"
	CodeInvalidURL       = "INVALID_URL"
	CodeInvalidCurrency  = "INVALID_CURRENCY"
	CodeNegativeAmount   = "NEGATIVE_AMOUNT"
	CodeInvalidRange     = "INVALID_RANGE"
	CodeInvalidTime      = "INVALID_TIME"
	CodeInvalidCoords    = "INVALID_COORDINATES"
	CodeMissingCarrier   = "MISSING_CARRIER"
	CodeImplausible      = "IMPLAUSIBLE_DURATION"
)

// FieldError describes a single violated invariant on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// ValidationError aggregates field errors from preference or component
// validation. It is non-retryable and short-circuits the pipeline.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasCode reports whether any field error carries the given code.
func (e *ValidationError) HasCode(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// IssueSeverity classifies sequence validation findings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// SequenceIssue is a finding from destination sequence validation.
// Error severity blocks acceptance of the sequence; warnings are
// informational.
type SequenceIssue struct {
	Severity       IssueSeverity `json:"severity"`
	Code           string        `json:"code"`
	Message        string        `json:"message"`
	DestinationIDs []string      `json:"destination_ids,omitempty"`
}

// Sequence issue codes.
const (
	IssueArrivalAfterDeparture = "ARRIVAL_AFTER_DEPARTURE"
	IssueNoDaysAllocated       = "NO_DAYS_ALLOCATED"
	IssueInsufficientTransit   = "INSUFFICIENT_TRANSIT"
	IssueExcessiveTravelTime   = "EXCESSIVE_TRAVEL_TIME"
	IssueTripTooLong           = "TRIP_TOO_LONG"
)

// Generation error codes.
const (
	GenerationValidationFailed = "VALIDATION_FAILED"
	GenerationFailed           = "GENERATION_FAILED"
)

// GenerationError is a pipeline-level failure reported to the caller.
type GenerationError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// NewGenerationError builds a timestamped pipeline error.
func NewGenerationError(code, message string, cause error) *GenerationError {
	return &GenerationError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now().UTC(),
	}
}
