package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/custody-schedule-api/internal/dto"
	"github.com/bridgekit/custody-schedule-api/internal/middleware"
	"github.com/bridgekit/custody-schedule-api/internal/models"
	appErrors "github.com/bridgekit/custody-schedule-api/pkg/errors"
)

type changeRequestServiceMock struct {
	submitResp    *models.ChangeRequest
	submitErr     error
	previewResp   []string
	previewErr    error
	resolveResp   *dto.ResolvedChangeRequest
	resolveErr    error
	listResp      []models.ChangeRequest
	listErr       error
	getResp       *models.ChangeRequest
	getErr        error
	altResp       []models.Alternative
	altErr        error
	lastQuery     dto.ChangeRequestQuery
	submitCalled  bool
	resolveCalled bool
}

func (m *changeRequestServiceMock) Submit(ctx context.Context, req dto.SubmitChangeRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	m.submitCalled = true
	return m.submitResp, m.submitErr
}

func (m *changeRequestServiceMock) Preview(ctx context.Context, req dto.PreviewConsequencesRequest, actor *models.JWTClaims) ([]string, error) {
	return m.previewResp, m.previewErr
}

func (m *changeRequestServiceMock) Resolve(ctx context.Context, id string, req dto.ResolveChangeRequest, actor *models.JWTClaims) (*dto.ResolvedChangeRequest, error) {
	m.resolveCalled = true
	return m.resolveResp, m.resolveErr
}

func (m *changeRequestServiceMock) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error) {
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *changeRequestServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	return m.getResp, m.getErr
}

func (m *changeRequestServiceMock) Alternatives(ctx context.Context, id string, actor *models.JWTClaims) ([]models.Alternative, error) {
	return m.altResp, m.altErr
}

func testClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "parent-a", FamilyID: "fam-1", Role: models.ParentRoleA}
}

func testContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())
	return c, w
}

func TestChangeRequestHandlerCreate(t *testing.T) {
	mockSvc := &changeRequestServiceMock{
		submitResp: &models.ChangeRequest{ID: "req-1", Status: models.RequestStatusPending},
	}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests",
		`{"kind":"SWAP","eventId":"e1","swapEventId":"e2","reason":"work trip"}`)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.submitCalled)
}

func TestChangeRequestHandlerCreateInvalidBody(t *testing.T) {
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests", `{"kind":"SWAP"`)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRequestHandlerCreateConflict(t *testing.T) {
	mockSvc := &changeRequestServiceMock{submitErr: appErrors.ErrConflict}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests",
		`{"kind":"SWAP","eventId":"e1","swapEventId":"e2","reason":"work trip"}`)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestChangeRequestHandlerPreview(t *testing.T) {
	mockSvc := &changeRequestServiceMock{
		previewResp: []string{"Weekend with Dad moves from 14 to 21"},
	}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests/preview",
		`{"kind":"SWAP","eventId":"e1","swapEventId":"e2"}`)

	handler.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.PreviewConsequencesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, []string{"Weekend with Dad moves from 14 to 21"}, envelope.Data.Consequences)
}

func TestChangeRequestHandlerListParsesStatus(t *testing.T) {
	mockSvc := &changeRequestServiceMock{}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/calendar/change-requests?status=pending,approved&eventId=e1", "")

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusApproved}, mockSvc.lastQuery.Status)
	assert.Equal(t, "e1", mockSvc.lastQuery.EventID)
}

func TestChangeRequestHandlerResolveRejectedIncludesAlternatives(t *testing.T) {
	rejected := &models.ChangeRequest{
		ID:     "req-1",
		Kind:   models.ChangeKindSwap,
		Status: models.RequestStatusRejected,
		Target: models.EventSnapshot{
			EventID: "e1",
			Title:   "Weekend with Dad",
			Date:    time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC),
		},
	}
	mockSvc := &changeRequestServiceMock{
		resolveResp: &dto.ResolvedChangeRequest{Request: rejected},
	}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests/req-1/resolve",
		`{"decision":"REJECTED"}`)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.resolveCalled)

	var envelope struct {
		Data dto.ResolvedChangeRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Alternatives, 3)
}

func TestChangeRequestHandlerResolveSelfApproval(t *testing.T) {
	mockSvc := &changeRequestServiceMock{resolveErr: appErrors.ErrSelfApproval}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/calendar/change-requests/req-1/resolve",
		`{"decision":"APPROVED"}`)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Resolve(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestChangeRequestHandlerMissingClaims(t *testing.T) {
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/calendar/change-requests", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
