package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	"github.com/bridgekit/custody-schedule-api/internal/service"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
	"github.com/bridgekit/custody-schedule-api/pkg/response"
)

type changeRequestService interface {
	Submit(ctx context.Context, req dto.SubmitChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Preview(ctx context.Context, req dto.PreviewConsequencesRequest, actor *models.JWTClaims) ([]string, error)
	Resolve(ctx context.Context, id string, req dto.ResolveChangeRequest, actor *models.JWTClaims) (*dto.ResolvedChangeRequest, error)
	List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Alternatives(ctx context.Context, id string, actor *models.JWTClaims) ([]models.Alternative, error)
}

type alternativeGenerator func(models.ChangeRequest) []models.Alternative

// ChangeRequestHandler exposes REST endpoints for the change workflow.
type ChangeRequestHandler struct {
	service      changeRequestService
	alternatives alternativeGenerator
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(svc changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{
		service:      svc,
		alternatives: service.GenerateAlternatives,
	}
}

// Create submits a new change request.
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	var req dto.SubmitChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Preview computes consequences without creating a request.
func (h *ChangeRequestHandler) Preview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	var req dto.PreviewConsequencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid preview payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	consequences, err := h.service.Preview(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PreviewConsequencesResponse{Consequences: consequences}, nil)
}

// List returns the family's change requests.
func (h *ChangeRequestHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ChangeRequestQuery{
		EventID: strings.TrimSpace(c.Query("eventId")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.RequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.RequestStatus(part))
		}
		query.Status = statuses
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get returns one change request.
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Resolve approves or rejects a pending request. Rejections include
// alternative proposals in the response.
func (h *ChangeRequestHandler) Resolve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	var req dto.ResolveChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolution payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Request != nil && result.Request.Status == models.RequestStatusRejected && h.alternatives != nil {
		result.Alternatives = h.alternatives(*result.Request)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Alternatives returns counter-proposals for a rejected request.
func (h *ChangeRequestHandler) Alternatives(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change request service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alternatives, err := h.service.Alternatives(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alternatives, nil)
}
