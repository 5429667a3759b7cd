package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	"github.com/bridgekit/custody-schedule-api/internal/repository"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

type eventStore interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.CalendarEvent, error)
	GetByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	MoveEvent(ctx context.Context, id string, newDate time.Time, expectedVersion int) error
	SwapEvents(ctx context.Context, a, b models.EventSnapshot) error
	RemoveEvent(ctx context.Context, id string, expectedVersion int) error
}

type changeRequestStore interface {
	Create(ctx context.Context, request *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	HasPending(ctx context.Context, eventID string) (bool, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	UpdateStatus(ctx context.Context, params repository.ResolveRequestParams) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ApprovalSink receives the documentation record produced when a
// request is approved.
type ApprovalSink interface {
	OnApproved(ctx context.Context, record models.ApprovalRecord) error
}

// ApprovalSinkFunc allows using plain functions as sinks.
type ApprovalSinkFunc func(ctx context.Context, record models.ApprovalRecord) error

// OnApproved implements ApprovalSink.
func (f ApprovalSinkFunc) OnApproved(ctx context.Context, record models.ApprovalRecord) error {
	return f(ctx, record)
}

type workflowMetrics interface {
	RecordRequestSubmitted(kind models.ChangeKind)
	RecordRequestResolved(kind models.ChangeKind, status models.RequestStatus)
}

// eventLocks serializes submit/resolve per target event id, upholding
// the one-pending-request-per-event invariant in-process. The partial
// unique index is the durable backstop.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *eventLocks) lock(eventID string) func() {
	l.mu.Lock()
	m, ok := l.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[eventID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ChangeRequestService orchestrates the schedule change workflow:
// validation, snapshotting, consequence capture, and the one-way
// terminal transition with its calendar side effects.
type ChangeRequestService struct {
	events    eventStore
	requests  changeRequestStore
	audit     auditLogger
	cache     cacheInvalidator
	sinks     []ApprovalSink
	metrics   workflowMetrics
	validator *validator.Validate
	logger    *zap.Logger
	locks     *eventLocks
	now       func() time.Time
}

// ChangeRequestServiceOption configures the service.
type ChangeRequestServiceOption func(*ChangeRequestService)

// WithApprovalSinks registers receivers for approval records.
func WithApprovalSinks(sinks ...ApprovalSink) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

// WithCacheInvalidator wires calendar cache invalidation on approval.
func WithCacheInvalidator(cache cacheInvalidator) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithWorkflowMetrics wires workflow counters.
func WithWorkflowMetrics(metrics workflowMetrics) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewChangeRequestService constructs the service with defaults.
func NewChangeRequestService(events eventStore, requests changeRequestStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...ChangeRequestServiceOption) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	registerWorkflowValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ChangeRequestService{
		events:    events,
		requests:  requests,
		audit:     audit,
		validator: validate,
		logger:    logger,
		locks:     newEventLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// registerWorkflowValidations installs the enum validators the workflow
// payloads rely on. Registration is idempotent.
func registerWorkflowValidations(validate *validator.Validate) {
	validate.RegisterValidation("changekind", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return models.ChangeKind(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("decision", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return models.RequestStatus(fl.Field().String()).Terminal()
	})
	validate.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return models.EventType(fl.Field().String()).Valid()
	})
}

// Preview computes the effect list of a proposed change against the
// current calendar without creating a request.
func (s *ChangeRequestService) Preview(ctx context.Context, req dto.PreviewConsequencesRequest, actor *models.JWTClaims) ([]string, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	target, swapTarget, err := s.resolveTargets(ctx, req.Kind, req.EventID, req.SwapEventID, req.NewDate, actor)
	if err != nil {
		return nil, err
	}
	calendar, err := s.events.List(ctx, models.EventFilter{FamilyID: actor.FamilyID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	return ComputeConsequences(req.Kind, *target, calendar, req.NewDate, swapTarget), nil
}

// Submit validates and stores a new pending change request, freezing
// the target snapshots and the consequence list at creation time.
func (s *ChangeRequestService) Submit(ctx context.Context, req dto.SubmitChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	target, swapTarget, err := s.resolveTargets(ctx, req.Kind, req.EventID, req.SwapEventID, req.NewDate, actor)
	if err != nil {
		return nil, err
	}
	if !target.Swappable {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is not open to schedule changes")
	}

	unlock := s.locks.lock(target.ID)
	defer unlock()

	pending, err := s.requests.HasPending(ctx, target.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.ErrConflict
	}

	calendar, err := s.events.List(ctx, models.EventFilter{FamilyID: actor.FamilyID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}

	request := &models.ChangeRequest{
		FamilyID:     actor.FamilyID,
		Kind:         req.Kind,
		EventID:      target.ID,
		Target:       models.SnapshotOf(*target),
		Reason:       strings.TrimSpace(req.Reason),
		Status:       models.RequestStatusPending,
		Consequences: ComputeConsequences(req.Kind, *target, calendar, req.NewDate, swapTarget),
		RequestedBy:  actor.UserID,
		CreatedAt:    s.now(),
	}
	if swapTarget != nil {
		snapshot := models.SnapshotOf(*swapTarget)
		request.SwapTarget = &snapshot
	}
	if req.NewDate != nil {
		date := req.NewDate.UTC()
		request.NewDate = &date
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			return nil, appErrors.ErrConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}

	if s.metrics != nil {
		s.metrics.RecordRequestSubmitted(request.Kind)
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestSubmit, request.ID, nil, request)
	return request, nil
}

// Resolve executes the terminal transition for a pending request. On
// approval it applies the calendar mutation and then builds the
// documentation record from the request's frozen snapshots; on
// rejection it performs no calendar side effects.
func (s *ChangeRequestService) Resolve(ctx context.Context, id string, req dto.ResolveChangeRequest, actor *models.JWTClaims) (*dto.ResolvedChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decision must be APPROVED or REJECTED")
	}
	if !models.CanTransition(models.RequestStatusPending, req.Decision) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if request.FamilyID != actor.FamilyID {
		return nil, appErrors.ErrForbidden
	}
	if request.Status.Terminal() {
		return nil, appErrors.ErrAlreadyResolved
	}
	if request.RequestedBy == actor.UserID {
		return nil, appErrors.ErrSelfApproval
	}

	unlock := s.locks.lock(request.EventID)
	defer unlock()

	if req.Decision == models.RequestStatusApproved {
		if err := s.applyMutation(ctx, request); err != nil {
			return nil, err
		}
	}

	resolvedAt := s.now()
	err = s.requests.UpdateStatus(ctx, repository.ResolveRequestParams{
		ID:         request.ID,
		Status:     req.Decision,
		ResolvedBy: actor.UserID,
		ResolvedAt: resolvedAt,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyResolved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update change request")
	}

	request.Status = req.Decision
	request.ResolvedBy = &actor.UserID
	request.ResolvedAt = &resolvedAt

	result := &dto.ResolvedChangeRequest{Request: request}
	if req.Decision == models.RequestStatusApproved {
		record, err := BuildApprovalRecord(*request)
		if err != nil {
			return nil, err
		}
		result.Record = record
		s.invalidateCalendarCache(ctx, request.FamilyID)
		s.notifySinks(ctx, *record)
	}

	if s.metrics != nil {
		s.metrics.RecordRequestResolved(request.Kind, request.Status)
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestResolve, request.ID, request.Target, request)
	return result, nil
}

// Get returns a request enforcing family scope.
func (s *ChangeRequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if request.FamilyID != actor.FamilyID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// List returns the family's requests matching the query.
func (s *ChangeRequestService) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	requests, err := s.requests.List(ctx, models.ChangeRequestFilter{
		FamilyID: actor.FamilyID,
		EventID:  query.EventID,
		Status:   query.Status,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return requests, nil
}

// Alternatives recomputes counter-proposals for a rejected request.
func (s *ChangeRequestService) Alternatives(ctx context.Context, id string, actor *models.JWTClaims) ([]models.Alternative, error) {
	request, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alternatives are only offered for rejected requests")
	}
	return GenerateAlternatives(*request), nil
}

// applyMutation replays the requested change onto the calendar store,
// guarded by the versions captured in the request's snapshots. A stale
// or missing event fails the resolution; the request must be
// re-submitted against current state.
func (s *ChangeRequestService) applyMutation(ctx context.Context, request *models.ChangeRequest) error {
	switch request.Kind {
	case models.ChangeKindSwap:
		if request.SwapTarget == nil {
			return appErrors.Clone(appErrors.ErrValidation, "swap request is missing its swap snapshot")
		}
		if err := s.events.SwapEvents(ctx, request.Target, *request.SwapTarget); err != nil {
			return mapMutationErr(err)
		}
	case models.ChangeKindModify:
		if request.NewDate == nil {
			return appErrors.Clone(appErrors.ErrValidation, "modify request is missing its new date")
		}
		if err := s.events.MoveEvent(ctx, request.EventID, *request.NewDate, request.Target.Version); err != nil {
			return mapMutationErr(err)
		}
	case models.ChangeKindCancel:
		if err := s.events.RemoveEvent(ctx, request.EventID, request.Target.Version); err != nil {
			return mapMutationErr(err)
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported change kind")
	}
	return nil
}

func mapMutationErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrStaleState
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply calendar change")
}

// resolveTargets loads and validates the target event and, for swaps,
// the swap counterpart. Shared by Preview and Submit.
func (s *ChangeRequestService) resolveTargets(ctx context.Context, kind models.ChangeKind, eventID, swapEventID string, newDate *time.Time, actor *models.JWTClaims) (*models.CalendarEvent, *models.CalendarEvent, error) {
	if !kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unsupported change kind")
	}
	target, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if target.FamilyID != actor.FamilyID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	var swapTarget *models.CalendarEvent
	switch kind {
	case models.ChangeKindSwap:
		if swapEventID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "swapEventId is required for a swap")
		}
		if swapEventID == eventID {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "cannot swap an event with itself")
		}
		swapTarget, err = s.events.GetByID(ctx, swapEventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "swap event not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap event")
		}
		if swapTarget.FamilyID != actor.FamilyID {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "swap event not found")
		}
		if swapTarget.Type != target.Type {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "swap requires two events of the same type")
		}
	case models.ChangeKindModify:
		if newDate == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "newDate is required for a modification")
		}
		if target.SameDay(*newDate) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "newDate must differ from the current date")
		}
	}

	return target, swapTarget, nil
}

func (s *ChangeRequestService) invalidateCalendarCache(ctx context.Context, familyID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("events:%s:*", familyID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate calendar cache", zap.String("family_id", familyID), zap.Error(err))
	}
}

func (s *ChangeRequestService) notifySinks(ctx context.Context, record models.ApprovalRecord) {
	for _, sink := range s.sinks {
		if err := sink.OnApproved(ctx, record); err != nil {
			s.logger.Warn("approval sink failed", zap.String("request_id", record.RequestID), zap.Error(err))
		}
	}
}

func (s *ChangeRequestService) emitAudit(ctx context.Context, userID, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "change_request",
		ResourceID: &resourceID,
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			log.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
