package dto

import (
	"time"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// SubmitChangeRequest is the payload for proposing a schedule change.
type SubmitChangeRequest struct {
	Kind        models.ChangeKind `json:"kind" validate:"required,changekind"`
	EventID     string            `json:"eventId" validate:"required"`
	Reason      string            `json:"reason" validate:"required"`
	NewDate     *time.Time        `json:"newDate,omitempty"`
	SwapEventID string            `json:"swapEventId,omitempty"`
}

// PreviewConsequencesRequest asks for the effect list of a change
// without creating a request.
type PreviewConsequencesRequest struct {
	Kind        models.ChangeKind `json:"kind" validate:"required,changekind"`
	EventID     string            `json:"eventId" validate:"required"`
	NewDate     *time.Time        `json:"newDate,omitempty"`
	SwapEventID string            `json:"swapEventId,omitempty"`
}

// PreviewConsequencesResponse carries the computed effect list.
type PreviewConsequencesResponse struct {
	Consequences []string `json:"consequences"`
}

// ResolveChangeRequest captures the counter-party's decision.
type ResolveChangeRequest struct {
	Decision models.RequestStatus `json:"decision" validate:"required,decision"`
}

// ResolvedChangeRequest is the outcome of a resolution: the terminal
// request, plus the approval record on approval or the alternative
// proposals on rejection.
type ResolvedChangeRequest struct {
	Request      *models.ChangeRequest  `json:"request"`
	Record       *models.ApprovalRecord `json:"record,omitempty"`
	Alternatives []models.Alternative   `json:"alternatives,omitempty"`
}

// ChangeRequestQuery mirrors supported listing filters.
type ChangeRequestQuery struct {
	Status  []models.RequestStatus
	EventID string
}
