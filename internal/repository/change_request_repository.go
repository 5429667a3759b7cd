package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

// ChangeRequestRepository persists change request workflow data. The
// one-pending-request-per-event invariant is backed by a partial unique
// index on (event_id) WHERE status = 'PENDING'.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const requestColumns = `id, family_id, kind, event_id, target_snapshot, swap_snapshot, new_date, reason, status,
       consequences, requested_by, resolved_by, created_at, resolved_at`

// Create inserts a new pending request. A unique violation on the
// pending-per-event index is translated to the conflict error.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO change_requests
	(id, family_id, kind, event_id, target_snapshot, swap_snapshot, new_date, reason, status, consequences, requested_by, resolved_by, created_at, resolved_at)
	VALUES (:id, :family_id, :kind, :event_id, :target_snapshot, :swap_snapshot, :new_date, :reason, :status, :consequences, :requested_by, :resolved_by, :created_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.ErrConflict
		}
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM change_requests WHERE id = $1`, requestColumns)
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// HasPending reports whether a pending request already targets the event.
func (r *ChangeRequestRepository) HasPending(ctx context.Context, eventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM change_requests WHERE event_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, eventID, models.RequestStatusPending); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// List returns requests matching the filter (latest first).
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM change_requests`, requestColumns))

	conditions := make([]string, 0, 4)
	if filter.FamilyID != "" {
		args = append(args, filter.FamilyID)
		conditions = append(conditions, fmt.Sprintf("family_id = $%d", len(args)))
	}
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// ResolveRequestParams groups the columns written by a resolution.
type ResolveRequestParams struct {
	ID         string
	Status     models.RequestStatus
	ResolvedBy string
	ResolvedAt time.Time
}

// UpdateStatus persists the terminal transition. The PENDING guard in
// the WHERE clause makes the transition one-way; zero affected rows
// surfaces sql.ErrNoRows for the service to map.
func (r *ChangeRequestRepository) UpdateStatus(ctx context.Context, params ResolveRequestParams) error {
	query := fmt.Sprintf(`UPDATE change_requests SET status = $1, resolved_by = $2, resolved_at = $3
WHERE id = $4 AND status = '%s'`, models.RequestStatusPending)
	result, err := r.db.ExecContext(ctx, query, params.Status, params.ResolvedBy, params.ResolvedAt, params.ID)
	if err != nil {
		return fmt.Errorf("update change request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
