package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(RequestStatusPending, RequestStatusApproved))
	require.True(t, CanTransition(RequestStatusPending, RequestStatusRejected))
	require.False(t, CanTransition(RequestStatusPending, RequestStatusPending))
	require.False(t, CanTransition(RequestStatusApproved, RequestStatusRejected))
	require.False(t, CanTransition(RequestStatusRejected, RequestStatusApproved))
}

func TestSnapshotOfIsDetached(t *testing.T) {
	owner := ParentRoleA
	event := CalendarEvent{
		ID:      "e1",
		Title:   "Weekend with Dad",
		Date:    time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC),
		Type:    EventTypeCustody,
		Owner:   &owner,
		Version: 3,
	}

	snapshot := SnapshotOf(event)

	event.Title = "Renamed"
	event.Date = event.Date.AddDate(0, 0, 7)
	owner = ParentRoleB

	require.Equal(t, "Weekend with Dad", snapshot.Title)
	require.Equal(t, 14, snapshot.Day())
	require.Equal(t, ParentRoleA, *snapshot.Owner)
	require.Equal(t, 3, snapshot.Version)
}
