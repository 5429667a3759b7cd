package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
	"github.com/bridgekit/custody-schedule-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, query dto.EventQuery, actor *models.JWTClaims) ([]models.CalendarEvent, error)
	Create(ctx context.Context, req dto.CreateEventRequest, actor *models.JWTClaims) (*models.CalendarEvent, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CalendarEvent, error)
}

// EventHandler exposes REST endpoints for the family calendar.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(service eventService) *EventHandler {
	return &EventHandler{service: service}
}

// List returns the month's events. Defaults to the current month when
// year/month are omitted.
func (h *EventHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "event service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	now := time.Now().UTC()
	query := dto.EventQuery{Year: now.Year(), Month: now.Month()}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
			return
		}
		query.Year = year
	}
	if raw := c.Query("month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid month"))
			return
		}
		query.Month = time.Month(month)
	}

	events, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create adds a calendar entry.
func (h *EventHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "event service not configured"))
		return
	}
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid event payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	event, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Get returns one event.
func (h *EventHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "event service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	event, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}
