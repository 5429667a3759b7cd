package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "family_id", "title", "date", "type", "owner", "swappable", "version", "created_at", "updated_at"})
}

func TestEventRepositoryListMonthWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	rows := eventRows().
		AddRow("e1", "fam-1", "Weekend with Dad", time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC), "CUSTODY", nil, true, 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, family_id, title, date")).
		WithArgs("fam-1", start, end).
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), models.EventFilter{
		FamilyID: "fam-1",
		Year:     2024,
		Month:    time.September,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Weekend with Dad", events[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListWholeFamily(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, family_id, title, date")).
		WithArgs("fam-1").
		WillReturnRows(eventRows())

	events, err := repo.List(context.Background(), models.EventFilter{FamilyID: "fam-1"})
	require.NoError(t, err)
	require.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calendar_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.CalendarEvent{
		FamilyID: "fam-1",
		Title:    "Soccer Practice",
		Date:     time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC),
		Type:     models.EventTypeActivity,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.Equal(t, 1, event.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryMoveEventVersionGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	newDate := time.Date(2024, 9, 16, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MoveEvent(context.Background(), "e1", newDate, 1))

	// Stale version touches no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MoveEvent(context.Background(), "e1", newDate, 1)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySwapEventsCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	a := models.EventSnapshot{EventID: "e1", Date: time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC), Version: 1}
	b := models.EventSnapshot{EventID: "e2", Date: time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC), Version: 1}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SwapEvents(context.Background(), a, b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySwapEventsRollsBackOnStaleSecond(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	a := models.EventSnapshot{EventID: "e1", Date: time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC), Version: 1}
	b := models.EventSnapshot{EventID: "e2", Date: time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC), Version: 1}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET date")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SwapEvents(context.Background(), a, b)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryRemoveEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_events")).
		WithArgs("e1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveEvent(context.Background(), "e1", 1))
	require.NoError(t, mock.ExpectationsWereMet())
}
