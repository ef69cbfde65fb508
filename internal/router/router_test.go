package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/handler"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/service"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/nonce"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type approvals struct {
	calls int
}

func (a *approvals) List(context.Context, models.EnrollmentFilter) ([]models.EnrollmentRow, *response.Pagination, error) {
	return []models.EnrollmentRow{}, &response.Pagination{Page: 1, PageSize: 20}, nil
}

func (a *approvals) CourseNames(context.Context) ([]string, error) { return nil, nil }

func (a *approvals) Approve(_ context.Context, req dto.ApproveRequest, _ string) (*models.EnrollmentRow, error) {
	a.calls++
	return &models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: req.StudentID, Status: models.EnrollmentStatusMatriculated}}, nil
}

func (a *approvals) ApproveBatch(context.Context, dto.ApproveBatchRequest, string) (*dto.BatchApprovalResult, error) {
	return &dto.BatchApprovalResult{}, nil
}

func (a *approvals) UpdateCallStatus(context.Context, dto.CallStatusRequest, string) (*models.EnrollmentRow, error) {
	return &models.EnrollmentRow{}, nil
}

func newEngine(t *testing.T) (*gin.Engine, *nonce.Manager, *approvals) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	nonces := nonce.NewManager("router-secret", time.Hour)
	svc := &approvals{}
	tokens := tokenTable{
		"registrar": {UserID: "u-registrar", Role: models.RoleRegistrar},
		"cashier":   {UserID: "u-cashier", Role: models.RoleCashier},
	}
	engine := New(Deps{
		Metrics:      service.NewMetricsService(),
		Tokens:       tokens,
		Nonces:       nonces,
		Capabilities: schema.Default(),
		Enrollments:  handler.NewEnrollmentHandler(svc, nil, nil, nil),
		Observe:      handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return engine, nonces, svc
}

func approveRequest(token, requestNonce string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments/approve", strings.NewReader(`{"student_id":"s-1","index":0}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestNonce != "" {
		req.Header.Set(middleware.NonceHeader, requestNonce)
	}
	return req
}

func TestApproveRouteRequiresSessionCapabilityAndNonce(t *testing.T) {
	engine, nonces, svc := newEngine(t)
	registrarNonce, _ := nonces.Issue("u-registrar", middleware.ActionApproveEnrollment)
	cashierNonce, _ := nonces.Issue("u-cashier", middleware.ActionApproveEnrollment)
	wrongAction, _ := nonces.Issue("u-registrar", middleware.ActionSendBulkEmail)

	cases := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"anonymous", approveRequest("", registrarNonce), http.StatusUnauthorized},
		{"missing capability", approveRequest("cashier", cashierNonce), http.StatusForbidden},
		{"missing nonce", approveRequest("registrar", ""), http.StatusForbidden},
		{"nonce for another action", approveRequest("registrar", wrongAction), http.StatusForbidden},
		{"nonce for another user", approveRequest("registrar", cashierNonce), http.StatusForbidden},
		{"accepted", approveRequest("registrar", registrarNonce), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, tc.req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, 1, svc.calls)
}

func TestPanelRedirectsToLogin(t *testing.T) {
	engine, _, _ := newEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panel?tab=courses", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/panel/login?next=%2Fpanel%3Ftab%3Dcourses", rec.Header().Get("Location"))
}

func TestOperationalRoutes(t *testing.T) {
	engine, _, _ := newEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
