package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// EventRepository persists calendar events. Date mutations carry an
// expected version; a zero-row update means the event changed (or
// disappeared) since that version was read and surfaces sql.ErrNoRows.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, family_id, title, date, type, owner, swappable, version, created_at, updated_at`

// List returns a family's events, optionally scoped to a month.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE family_id = $1`, eventColumns)
	args := []interface{}{filter.FamilyID}
	if filter.Year > 0 && filter.Month > 0 {
		start := time.Date(filter.Year, filter.Month, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		query += fmt.Sprintf(" AND date >= $%d AND date < $%d", len(args)+1, len(args)+2)
		args = append(args, start, end)
	}
	query += " ORDER BY date ASC, title ASC"

	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// GetByID fetches a single event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE id = $1`, eventColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a calendar event.
func (r *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Version == 0 {
		event.Version = 1
	}
	const query = `INSERT INTO calendar_events (id, family_id, title, date, type, owner, swappable, version, created_at, updated_at)
VALUES (:id, :family_id, :title, :date, :type, :owner, :swappable, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// MoveEvent sets a new date on the event, guarded by the expected version.
func (r *EventRepository) MoveEvent(ctx context.Context, id string, newDate time.Time, expectedVersion int) error {
	const query = `UPDATE calendar_events SET date = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`
	result, err := r.db.ExecContext(ctx, query, newDate, time.Now().UTC(), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("move calendar event: %w", err)
	}
	return requireRow(result)
}

// SwapEvents exchanges the dates of two events atomically. Both version
// guards must hold or the whole exchange rolls back.
func (r *EventRepository) SwapEvents(ctx context.Context, a, b models.EventSnapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE calendar_events SET date = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4`
	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx, query, b.Date, now, a.EventID, a.Version)
	if err != nil {
		return fmt.Errorf("swap calendar event %s: %w", a.EventID, err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	result, err = tx.ExecContext(ctx, query, a.Date, now, b.EventID, b.Version)
	if err != nil {
		return fmt.Errorf("swap calendar event %s: %w", b.EventID, err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap tx: %w", err)
	}
	return nil
}

// RemoveEvent deletes the event, guarded by the expected version.
func (r *EventRepository) RemoveEvent(ctx context.Context, id string, expectedVersion int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("remove calendar event: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
