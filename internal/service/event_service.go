package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

type eventCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EventService exposes the family calendar: month-scoped listings with
// a short-lived cache, plus creation and lookup.
type EventService struct {
	events    eventStore
	creator   eventCreator
	cache     eventCache
	cacheTTL  time.Duration
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

type eventCreator interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
}

// NewEventService constructs the calendar service. A nil cache disables
// caching entirely.
func NewEventService(events eventStore, creator eventCreator, validate *validator.Validate, cache eventCache, cacheTTL time.Duration, audit auditLogger, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	registerWorkflowValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &EventService{
		events:    events,
		creator:   creator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns the family's events for the given month, serving from
// cache when possible.
func (s *EventService) List(ctx context.Context, query dto.EventQuery, actor *models.JWTClaims) ([]models.CalendarEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	key := eventCacheKey(actor.FamilyID, query.Year, query.Month)
	if s.cache != nil {
		var cached []models.CalendarEvent
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("calendar cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	events, err := s.events.List(ctx, models.EventFilter{
		FamilyID: actor.FamilyID,
		Year:     query.Year,
		Month:    query.Month,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, events, s.cacheTTL); err != nil {
			s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return events, nil
}

// Create adds a new entry to the family calendar.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest, actor *models.JWTClaims) (*models.CalendarEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	event := &models.CalendarEvent{
		FamilyID:  actor.FamilyID,
		Title:     strings.TrimSpace(req.Title),
		Date:      req.Date.UTC(),
		Type:      req.Type,
		Owner:     req.Owner,
		Swappable: req.Swappable,
	}
	if err := s.creator.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.invalidate(ctx, actor.FamilyID)
	s.emitAudit(ctx, actor.UserID, event)
	return event, nil
}

// Get returns a single event enforcing family scope.
func (s *EventService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CalendarEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.FamilyID != actor.FamilyID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}

func (s *EventService) invalidate(ctx context.Context, familyID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("events:%s:*", familyID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate calendar cache", zap.String("family_id", familyID), zap.Error(err))
	}
}

func (s *EventService) emitAudit(ctx context.Context, userID string, event *models.CalendarEvent) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionEventCreate,
		Resource:   "calendar_event",
		ResourceID: &event.ID,
	}
	if raw, err := json.Marshal(event); err == nil {
		log.NewValues = raw
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func eventCacheKey(familyID string, year int, month time.Month) string {
	return fmt.Sprintf("events:%s:%04d-%02d", familyID, year, int(month))
}
