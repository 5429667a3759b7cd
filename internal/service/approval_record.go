package service

import (
	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

// Contract impact summaries included in the documentation record.
const (
	impactSwap = "This change maintains the overall custody balance as outlined in the custody agreement. " +
		"The total number of custody days for each parent remains unchanged, only the specific dates have been exchanged."
	impactModify = "This change may affect the custody balance outlined in the custody agreement. " +
		"Review the monthly custody distribution to ensure compliance with the legal arrangement."
	impactCancel = "This cancellation may affect the custody balance outlined in the custody agreement. " +
		"A makeup day may be required to maintain the agreed custody distribution."
)

// BuildApprovalRecord derives the immutable documentation record from
// an approved request. Before and after state come exclusively from the
// request's frozen snapshots and resolution outcome - the live calendar
// is never consulted, so the record stays accurate as of the moment of
// approval.
func BuildApprovalRecord(request models.ChangeRequest) (*models.ApprovalRecord, error) {
	if request.Status != models.RequestStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approval record requires an approved request")
	}
	if request.ResolvedBy == nil || request.ResolvedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approved request is missing resolution details")
	}

	target := request.Target
	record := &models.ApprovalRecord{
		RequestID:    request.ID,
		FamilyID:     request.FamilyID,
		Kind:         request.Kind,
		RequestedBy:  request.RequestedBy,
		ApprovedBy:   *request.ResolvedBy,
		RequestedAt:  request.CreatedAt,
		ApprovedAt:   *request.ResolvedAt,
		Reason:       request.Reason,
		Consequences: append([]string(nil), request.Consequences...),
	}

	switch request.Kind {
	case models.ChangeKindSwap:
		if request.SwapTarget == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "swap request is missing its swap snapshot")
		}
		swap := *request.SwapTarget
		record.BeforeState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: target.Date},
			{EventID: swap.EventID, Title: swap.Title, Date: swap.Date},
		}
		record.AfterState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: swap.Date},
			{EventID: swap.EventID, Title: swap.Title, Date: target.Date},
		}
		record.ContractImpact = impactSwap

	case models.ChangeKindModify:
		if request.NewDate == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "modify request is missing its new date")
		}
		record.BeforeState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: target.Date},
		}
		record.AfterState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: *request.NewDate},
		}
		record.ContractImpact = impactModify

	case models.ChangeKindCancel:
		record.BeforeState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: target.Date},
		}
		record.AfterState = []models.StateEntry{
			{EventID: target.EventID, Title: target.Title, Date: target.Date, Cancelled: true},
		}
		record.ContractImpact = impactCancel

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported change kind")
	}

	return record, nil
}
