package sequencing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tripforge/itinera/internal/app/models"
)

// maxTripDays is the trip length beyond which a warning is raised.
const maxTripDays = 30

// ValidateSequence checks an ordered, dated destination sequence.
// Error-severity issues block acceptance; warnings are informational.
func (s *ServiceImpl) ValidateSequence(ctx context.Context, seq []models.SequencedDestination, prefs models.UserPreferences) []models.SequenceIssue {
	_, span := otel.Tracer("SequencingService").Start(ctx, "ValidateSequence")
	defer span.End()

	maxTravel := prefs.MaxTravelTimePerDay
	if maxTravel <= 0 {
		maxTravel = defaultMaxTravelPerDay
	}

	var issues []models.SequenceIssue
	totalDays := 0

	for i, sd := range seq {
		totalDays += sd.DaysAllocated

		if sd.ArrivalDate.After(sd.DepartureDate) {
			issues = append(issues, models.SequenceIssue{
				Severity:       models.SeverityError,
				Code:           models.IssueArrivalAfterDeparture,
				Message:        fmt.Sprintf("%s: arrival %s is after departure %s", sd.Title, sd.ArrivalDate.Format("2006-01-02"), sd.DepartureDate.Format("2006-01-02")),
				DestinationIDs: []string{sd.ID},
			})
		}

		if sd.DaysAllocated < 1 {
			issues = append(issues, models.SequenceIssue{
				Severity:       models.SeverityError,
				Code:           models.IssueNoDaysAllocated,
				Message:        fmt.Sprintf("%s has no days allocated", sd.Title),
				DestinationIDs: []string{sd.ID},
			})
		}

		if i == 0 {
			continue
		}
		prev := seq[i-1]

		// The gap between leaving the previous stop and arriving here
		// must cover the estimated travel time.
		gap := sd.ArrivalDate.Sub(prev.DepartureDate)
		if gap < 0 {
			gap = 0
		}
		transit := gap + 24*time.Hour // arrival day itself is usable
		if sd.TravelTimeFromPrevious > transit {
			issues = append(issues, models.SequenceIssue{
				Severity:       models.SeverityError,
				Code:           models.IssueInsufficientTransit,
				Message:        fmt.Sprintf("travel from %s to %s takes %s, longer than the scheduled gap", prev.Title, sd.Title, sd.TravelTimeFromPrevious.Round(time.Minute)),
				DestinationIDs: []string{prev.ID, sd.ID},
			})
		}

		if sd.TravelTimeFromPrevious > maxTravel {
			issues = append(issues, models.SequenceIssue{
				Severity:       models.SeverityWarning,
				Code:           models.IssueExcessiveTravelTime,
				Message:        fmt.Sprintf("travel from %s to %s takes %s, over the %s daily cap", prev.Title, sd.Title, sd.TravelTimeFromPrevious.Round(time.Minute), maxTravel),
				DestinationIDs: []string{prev.ID, sd.ID},
			})
		}
	}

	if totalDays > maxTripDays {
		ids := make([]string, len(seq))
		for i, sd := range seq {
			ids[i] = sd.ID
		}
		issues = append(issues, models.SequenceIssue{
			Severity:       models.SeverityWarning,
			Code:           models.IssueTripTooLong,
			Message:        fmt.Sprintf("trip spans %d days, beyond the recommended %d", totalDays, maxTripDays),
			DestinationIDs: ids,
		})
	}

	span.SetAttributes(attribute.Int("issues.count", len(issues)))
	span.SetStatus(codes.Ok, "Sequence validated")
	return issues
}

// HasBlockingIssues reports whether any issue carries error severity.
func HasBlockingIssues(issues []models.SequenceIssue) bool {
	for _, issue := range issues {
		if issue.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
