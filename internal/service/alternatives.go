package service

import (
	"fmt"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// GenerateAlternatives produces the ranked counter-proposals offered
// after a request is rejected. It is a pure function of the rejected
// request's kind, target snapshot, and id: alternatives are descriptive
// only, never persisted, and accepting one requires a fresh submission.
func GenerateAlternatives(request models.ChangeRequest) []models.Alternative {
	alternatives := make([]models.Alternative, 0, 3)
	target := request.Target

	switch request.Kind {
	case models.ChangeKindSwap:
		nextWeek := target.Date.AddDate(0, 0, 7)
		alternatives = append(alternatives,
			models.Alternative{
				ID:    altID(request.ID, 1),
				Kind:  models.AlternativePartialSwap,
				Title: "Partial Weekend Swap",
				Description: fmt.Sprintf("Instead of swapping entire weekends, your co-parent could take just Saturday the %d while you keep Sunday. This maintains most of your original schedule.",
					target.Day()),
				Suggestion:           "This keeps the custody balance almost identical and reduces disruption to the routine.",
				Impact:               models.ImpactMinimal,
				OriginatingRequestID: request.ID,
			},
			models.Alternative{
				ID:    altID(request.ID, 2),
				Kind:  models.AlternativeDifferentDate,
				Title: "Different Weekend Option",
				Description: fmt.Sprintf("What about %s instead? This avoids conflicts with the current schedule and maintains the custody agreement balance.",
					nextWeek.Format("January 2")),
				Suggestion:           "This option keeps all existing arrangements intact while still helping with the schedule challenge.",
				Impact:               models.ImpactLow,
				OriginatingRequestID: request.ID,
			},
			models.Alternative{
				ID:                   altID(request.ID, 3),
				Kind:                 models.AlternativeMakeupTime,
				Title:                "Makeup Time Solution",
				Description:          "Your co-parent could take an extra day during the week, such as Wednesday evening, to make up for missing the weekend. This maintains custody balance.",
				Suggestion:           "This approach preserves weekend plans while ensuring fair custody time distribution.",
				Impact:               models.ImpactLow,
				OriginatingRequestID: request.ID,
			},
		)

	case models.ChangeKindModify:
		dayBefore := target.Date.AddDate(0, 0, -1)
		alternatives = append(alternatives,
			models.Alternative{
				ID:                   altID(request.ID, 1),
				Kind:                 models.AlternativeSplitEvent,
				Title:                "Coordinate During Transition",
				Description:          fmt.Sprintf("Since %s falls during the other parent's custody time, what if you both attend together? This shows co-parenting cooperation.", target.Title),
				Suggestion:           "Joint attendance at appointments demonstrates unified parenting and is often appreciated by providers.",
				Impact:               models.ImpactMinimal,
				OriginatingRequestID: request.ID,
			},
			models.Alternative{
				ID:    altID(request.ID, 2),
				Kind:  models.AlternativeDifferentDate,
				Title: "Better Timing Option",
				Description: fmt.Sprintf("What about %s instead? This would sit inside your custody time and avoid holiday conflicts.",
					dayBefore.Format("January 2")),
				Suggestion:           "This timing works better with your custody schedule and avoids holiday conflicts.",
				Impact:               models.ImpactMinimal,
				OriginatingRequestID: request.ID,
			},
			models.Alternative{
				ID:                   altID(request.ID, 3),
				Kind:                 models.AlternativeCommunicationHelp,
				Title:                "Improved Communication",
				Description:          "A well-worded message explaining the situation and asking for cooperation can often resolve the conflict without a schedule change.",
				Suggestion:           "Clear, respectful communication often resolves scheduling conflicts without changing custody arrangements.",
				Impact:               models.ImpactMinimal,
				OriginatingRequestID: request.ID,
			},
		)

	case models.ChangeKindCancel:
		alternatives = append(alternatives,
			models.Alternative{
				ID:                   altID(request.ID, 1),
				Kind:                 models.AlternativeDifferentDate,
				Title:                "Reschedule Instead",
				Description:          fmt.Sprintf("Instead of cancelling, what if %s moved to a date that works better for everyone?", target.Title),
				Suggestion:           "Rescheduling maintains the custody balance and ensures your child doesn't miss important activities.",
				Impact:               models.ImpactLow,
				OriginatingRequestID: request.ID,
			},
			models.Alternative{
				ID:                   altID(request.ID, 2),
				Kind:                 models.AlternativeMakeupTime,
				Title:                "Schedule Makeup Time",
				Description:          "If this event must be cancelled, makeup time keeps the custody agreement balance intact.",
				Suggestion:           "Makeup time preserves the legal custody arrangement and shows good faith co-parenting.",
				Impact:               models.ImpactLow,
				OriginatingRequestID: request.ID,
			},
		)
	}

	return alternatives
}

func altID(requestID string, n int) string {
	return fmt.Sprintf("%s-%d", requestID, n)
}
