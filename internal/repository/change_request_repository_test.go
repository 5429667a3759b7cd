package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func pendingRequest() *models.ChangeRequest {
	return &models.ChangeRequest{
		FamilyID: "fam-1",
		Kind:     models.ChangeKindSwap,
		EventID:  "e1",
		Target: models.EventSnapshot{
			EventID: "e1",
			Title:   "Weekend with Dad",
			Date:    time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC),
			Type:    models.EventTypeCustody,
			Version: 1,
		},
		Reason:       "work trip",
		Consequences: models.Consequences{"Weekend with Dad moves from 14 to 21"},
		RequestedBy:  "parent-a",
	}
}

func TestChangeRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := pendingRequest()
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RequestStatusPending, request.Status)
	require.False(t, request.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryCreatePendingConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "change_requests_pending_event_idx"})

	err := repo.Create(context.Background(), pendingRequest())
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	createdAt := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "family_id", "kind", "event_id", "target_snapshot", "swap_snapshot", "new_date", "reason", "status", "consequences", "requested_by", "resolved_by", "created_at", "resolved_at"}).
		AddRow("req-1", "fam-1", "SWAP", "e1",
			[]byte(`{"eventId":"e1","title":"Weekend with Dad","date":"2024-09-14T00:00:00Z","type":"CUSTODY","version":1}`),
			nil, nil, "work trip", "PENDING",
			[]byte(`["Weekend with Dad moves from 14 to 21"]`),
			"parent-a", nil, createdAt, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, family_id, kind, event_id")).
		WithArgs("req-1").
		WillReturnRows(rows)

	request, err := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, "req-1", request.ID)
	require.Equal(t, models.ChangeKindSwap, request.Kind)
	require.Equal(t, "Weekend with Dad", request.Target.Title)
	require.Equal(t, models.Consequences{"Weekend with Dad moves from 14 to 21"}, request.Consequences)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("e1", models.RequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := repo.HasPending(context.Background(), "e1")
	require.NoError(t, err)
	require.True(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	rows := sqlmock.NewRows([]string{"id", "family_id", "kind", "event_id", "target_snapshot", "swap_snapshot", "new_date", "reason", "status", "consequences", "requested_by", "resolved_by", "created_at", "resolved_at"}).
		AddRow("req-1", "fam-1", "CANCEL", "e1",
			[]byte(`{"eventId":"e1","title":"Dentist","date":"2024-09-10T00:00:00Z","type":"MEDICAL","version":1}`),
			nil, nil, "sick", "PENDING",
			[]byte(`[]`), "parent-a", nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, family_id, kind, event_id")).
		WithArgs("fam-1", "PENDING").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ChangeRequestFilter{
		FamilyID: "fam-1",
		Status:   []models.RequestStatus{models.RequestStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "req-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).
		WithArgs("APPROVED", "parent-b", now, "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), ResolveRequestParams{
		ID:         "req-1",
		Status:     models.RequestStatusApproved,
		ResolvedBy: "parent-b",
		ResolvedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryUpdateStatusAlreadyTerminal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), ResolveRequestParams{
		ID:         "req-1",
		Status:     models.RequestStatusRejected,
		ResolvedBy: "parent-b",
		ResolvedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
