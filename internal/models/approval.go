package models

import "time"

// StateEntry describes one event's placement in a before/after view.
type StateEntry struct {
	EventID   string    `json:"eventId"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Cancelled bool      `json:"cancelled,omitempty"`
}

// ApprovalRecord is the immutable audit artifact produced when a change
// request is approved. It is derived entirely from the request's frozen
// snapshots, never from the live calendar, so it stays historically
// accurate even after the schedule moves on.
type ApprovalRecord struct {
	RequestID      string       `json:"requestId"`
	FamilyID       string       `json:"familyId"`
	Kind           ChangeKind   `json:"kind"`
	RequestedBy    string       `json:"requestedBy"`
	ApprovedBy     string       `json:"approvedBy"`
	RequestedAt    time.Time    `json:"requestedAt"`
	ApprovedAt     time.Time    `json:"approvedAt"`
	Reason         string       `json:"reason"`
	BeforeState    []StateEntry `json:"beforeState"`
	AfterState     []StateEntry `json:"afterState"`
	Consequences   []string     `json:"consequences"`
	ContractImpact string       `json:"contractImpact"`
}
