package models

import "time"

// EventType enumerates the kinds of entries a family calendar holds.
type EventType string

const (
	EventTypeCustody  EventType = "CUSTODY"
	EventTypeHoliday  EventType = "HOLIDAY"
	EventTypeSchool   EventType = "SCHOOL"
	EventTypeMedical  EventType = "MEDICAL"
	EventTypeActivity EventType = "ACTIVITY"
)

// Valid reports whether the event type is a known value.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeCustody, EventTypeHoliday, EventTypeSchool, EventTypeMedical, EventTypeActivity:
		return true
	}
	return false
}

// ParentRole identifies which side of the custody arrangement a value refers to.
type ParentRole string

const (
	ParentRoleA    ParentRole = "PARENT_A"
	ParentRoleB    ParentRole = "PARENT_B"
	ParentRoleBoth ParentRole = "BOTH"
)

// CalendarEvent is a scheduled entry on the shared custody calendar.
// Version is bumped on every date mutation and backs the optimistic
// staleness check during request resolution.
type CalendarEvent struct {
	ID        string      `db:"id" json:"id"`
	FamilyID  string      `db:"family_id" json:"familyId"`
	Title     string      `db:"title" json:"title"`
	Date      time.Time   `db:"date" json:"date"`
	Type      EventType   `db:"type" json:"type"`
	Owner     *ParentRole `db:"owner" json:"owner,omitempty"`
	Swappable bool        `db:"swappable" json:"swappable"`
	Version   int         `db:"version" json:"version"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Day returns the day-of-month the event falls on.
func (e CalendarEvent) Day() int {
	return e.Date.Day()
}

// SameDay reports whether the event occurs on the given calendar day.
func (e CalendarEvent) SameDay(date time.Time) bool {
	ey, em, ed := e.Date.Date()
	y, m, d := date.Date()
	return ey == y && em == m && ed == d
}

// EventFilter narrows calendar listings.
type EventFilter struct {
	FamilyID string
	Year     int
	Month    time.Month
}
