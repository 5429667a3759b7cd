package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// Consequence warning texts shared between preview and creation.
const (
	warnSchoolWeek = "This change affects school week custody - pickup/dropoff responsibilities will change"
	warnBigChange  = "This is a significant schedule change - consider the impact on your child's routine"
	warnBalance    = "This may affect the overall custody balance for the month"
)

// ComputeConsequences derives the ordered, human-readable effect list
// for a proposed change. It is pure: identical inputs always produce
// identical, identically ordered output, and no input is mutated. The
// engine calls it twice per request lifecycle - once for the live
// preview and once at creation, where the result is frozen into the
// request - and never recomputes it afterwards.
func ComputeConsequences(kind models.ChangeKind, target models.CalendarEvent, events []models.CalendarEvent, newDate *time.Time, swapTarget *models.CalendarEvent) models.Consequences {
	consequences := models.Consequences{}

	switch kind {
	case models.ChangeKindSwap:
		if swapTarget == nil {
			return consequences
		}
		consequences = append(consequences,
			fmt.Sprintf("%s moves from %d to %d", target.Title, target.Day(), swapTarget.Day()),
			fmt.Sprintf("%s moves from %d to %d", swapTarget.Title, swapTarget.Day(), target.Day()),
		)
		if isSchoolDay(swapTarget.Date) && target.Type == models.EventTypeCustody {
			consequences = append(consequences, warnSchoolWeek)
		}
		if daysApart(target.Date, swapTarget.Date) > 7 {
			consequences = append(consequences, warnBigChange)
		}

	case models.ChangeKindModify:
		if newDate == nil {
			return consequences
		}
		consequences = append(consequences,
			fmt.Sprintf("%s moves from %d to %d", target.Title, target.Day(), newDate.Day()))
		if conflicts := eventsOnDay(events, *newDate); len(conflicts) > 0 {
			titles := make([]string, len(conflicts))
			for i, event := range conflicts {
				titles[i] = event.Title
			}
			consequences = append(consequences,
				fmt.Sprintf("Conflict: %s already scheduled for %d", strings.Join(titles, ", "), newDate.Day()))
		}

	case models.ChangeKindCancel:
		consequences = append(consequences,
			fmt.Sprintf("%s on %d will be cancelled", target.Title, target.Day()),
			warnBalance,
		)
	}

	return consequences
}

// isSchoolDay reports whether the date falls Monday through Friday.
// Deliberately day-of-week only, with no holiday awareness.
func isSchoolDay(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

func daysApart(a, b time.Time) int {
	diff := int(b.Sub(a).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func eventsOnDay(events []models.CalendarEvent, date time.Time) []models.CalendarEvent {
	matched := make([]models.CalendarEvent, 0, 2)
	for _, event := range events {
		if event.SameDay(date) {
			matched = append(matched, event)
		}
	}
	return matched
}
