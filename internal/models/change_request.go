package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind enumerates supported schedule change categories.
type ChangeKind string

const (
	ChangeKindSwap   ChangeKind = "SWAP"
	ChangeKindModify ChangeKind = "MODIFY"
	ChangeKindCancel ChangeKind = "CANCEL"
)

// Valid reports whether the kind is a known value.
func (k ChangeKind) Valid() bool {
	switch k {
	case ChangeKindSwap, ChangeKindModify, ChangeKindCancel:
		return true
	}
	return false
}

// RequestStatus captures the workflow state of a change request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transition.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CanTransition encodes the one-way state machine: PENDING may move to
// either terminal state, terminal states never move again.
func CanTransition(from, to RequestStatus) bool {
	return from == RequestStatusPending && to.Terminal()
}

// EventSnapshot is a frozen, value-type copy of a calendar event taken
// at request creation. Later calendar mutations never alter it.
type EventSnapshot struct {
	EventID string      `json:"eventId"`
	Title   string      `json:"title"`
	Date    time.Time   `json:"date"`
	Type    EventType   `json:"type"`
	Owner   *ParentRole `json:"owner,omitempty"`
	Version int         `json:"version"`
}

// SnapshotOf copies the fields of a live event into a snapshot.
func SnapshotOf(event CalendarEvent) EventSnapshot {
	var owner *ParentRole
	if event.Owner != nil {
		o := *event.Owner
		owner = &o
	}
	return EventSnapshot{
		EventID: event.ID,
		Title:   event.Title,
		Date:    event.Date,
		Type:    event.Type,
		Owner:   owner,
		Version: event.Version,
	}
}

// Day returns the day-of-month the snapshot's date falls on.
func (s EventSnapshot) Day() int {
	return s.Date.Day()
}

// Value implements driver.Valuer so snapshots persist as JSON columns.
func (s EventSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *EventSnapshot) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported snapshot column type %T", src)
}

// Consequences is the ordered effect list computed once at creation.
type Consequences []string

// Value implements driver.Valuer.
func (c Consequences) Value() (driver.Value, error) {
	if c == nil {
		c = Consequences{}
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Consequences) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return fmt.Errorf("unsupported consequences column type %T", src)
}

// ChangeRequest is a proposed schedule change awaiting the co-parent's
// decision. Target and SwapTarget are immutable snapshots; Consequences
// are computed once at creation and never recomputed.
type ChangeRequest struct {
	ID           string         `db:"id" json:"id"`
	FamilyID     string         `db:"family_id" json:"familyId"`
	Kind         ChangeKind     `db:"kind" json:"kind"`
	EventID      string         `db:"event_id" json:"eventId"`
	Target       EventSnapshot  `db:"target_snapshot" json:"target"`
	SwapTarget   *EventSnapshot `db:"swap_snapshot" json:"swapTarget,omitempty"`
	NewDate      *time.Time     `db:"new_date" json:"newDate,omitempty"`
	Reason       string         `db:"reason" json:"reason"`
	Status       RequestStatus  `db:"status" json:"status"`
	Consequences Consequences   `db:"consequences" json:"consequences"`
	RequestedBy  string         `db:"requested_by" json:"requestedBy"`
	ResolvedBy   *string        `db:"resolved_by" json:"resolvedBy,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	ResolvedAt   *time.Time     `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	FamilyID    string
	EventID     string
	Status      []RequestStatus
	RequestedBy string
	Limit       int
	Offset      int
}
