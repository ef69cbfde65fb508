package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/view"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/nonce"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type authServiceMock struct {
	login   *models.LoginResponse
	err     error
	lastReq models.LoginRequest
	created *models.User
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastReq = req
	return m.login, m.err
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return m.err
}

func (m *authServiceMock) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	return m.created, m.err
}

type courseListStub struct{}

func (courseListStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *response.Pagination, error) {
	return []models.Course{{Title: "Excel avanzado", Currency: "USD", Active: true}}, &response.Pagination{Page: 1, PageSize: 100, TotalCount: 1}, nil
}

type paymentListStub struct{}

func (paymentListStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *response.Pagination, error) {
	return nil, &response.Pagination{Page: 1, PageSize: 20}, nil
}

func (paymentListStub) Concepts(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error) {
	return nil, nil
}

type activityListStub struct{}

func (activityListStub) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, *response.Pagination, error) {
	return nil, &response.Pagination{Page: 1, PageSize: 20}, nil
}

func newPanelHandler(t *testing.T, auth *authServiceMock, enrollments *enrollmentServiceMock) (*PanelHandler, *nonce.Manager) {
	t.Helper()
	renderer, err := view.New("Instituto Andino")
	require.NoError(t, err)
	nonces := nonce.NewManager("panel-test-secret", time.Hour)
	return NewPanelHandler(PanelDeps{
		Renderer:     renderer,
		Auth:         NewAuthHandler(auth, nonces, SessionConfig{}),
		Nonces:       nonces,
		Capabilities: schema.Default(),
		Enrollments:  enrollments,
		Courses:      courseListStub{},
		Payments:     paymentListStub{},
		Activity:     activityListStub{},
	}), nonces
}

func TestPanelShellIssuesVerifiableNonces(t *testing.T) {
	h, nonces := newPanelHandler(t, &authServiceMock{}, &enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/panel", nil)
	asUser(c, "u-agent", models.RoleAgent)
	h.Shell(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-tab="pending" class="active"`)
	assert.Contains(t, body, `data-tab="courses"`)
	assert.NotContains(t, body, `data-tab="payments"`)
	assert.NotContains(t, body, `data-tab="email"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	marker := `"update_call_status":"`
	start := strings.Index(body, marker)
	require.NotEqual(t, -1, start)
	rest := body[start+len(marker):]
	token := rest[:strings.Index(rest, `"`)]
	assert.NoError(t, nonces.Verify(token, "u-agent", middleware.ActionUpdateCallStatus))
	assert.Error(t, nonces.Verify(token, "u-other", middleware.ActionUpdateCallStatus))
}

func TestPanelFragmentRendersPendingTable(t *testing.T) {
	pending := matriculatedRow()
	pending.Status = models.EnrollmentStatusPending
	pending.EnrollmentNumber = nil
	svc := &enrollmentServiceMock{rows: []models.EnrollmentRow{*pending}}
	h, _ := newPanelHandler(t, &authServiceMock{}, svc)

	c, w := newGinContext(http.MethodGet, "/panel/fragments/pending?course=Excel&search=luis", nil)
	c.Params = append(c.Params, ginParam("tab", "pending"))
	asUser(c, "u-registrar", models.RoleRegistrar)
	h.Fragment(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Luis Vera")
	assert.Equal(t, models.EnrollmentStatusPending, svc.filter.Status)
	assert.Equal(t, "Excel", svc.filter.CourseName)
	assert.Equal(t, "luis", svc.filter.Search)
}

func TestPanelFragmentHidesApprovalForAgent(t *testing.T) {
	pending := matriculatedRow()
	pending.Status = models.EnrollmentStatusPending
	pending.EnrollmentNumber = nil
	h, _ := newPanelHandler(t, &authServiceMock{}, &enrollmentServiceMock{rows: []models.EnrollmentRow{*pending}})

	c, w := newGinContext(http.MethodGet, "/panel/fragments/pending", nil)
	c.Params = append(c.Params, ginParam("tab", "pending"))
	asUser(c, "u-agent", models.RoleAgent)
	h.Fragment(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "data-call-status")
	assert.NotContains(t, w.Body.String(), "data-approve")
}

func TestPanelFragmentChecksCapability(t *testing.T) {
	h, _ := newPanelHandler(t, &authServiceMock{}, &enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/panel/fragments/email", nil)
	c.Params = append(c.Params, ginParam("tab", "email"))
	asUser(c, "u-cashier", models.RoleCashier)
	h.Fragment(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "missing capability send_bulk_email")

	c, w = newGinContext(http.MethodGet, "/panel/fragments/grades", nil)
	c.Params = append(c.Params, ginParam("tab", "grades"))
	asUser(c, "u-cashier", models.RoleCashier)
	h.Fragment(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanelFragmentEscapesServiceErrors(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "invalid <status>")}
	h, _ := newPanelHandler(t, &authServiceMock{}, svc)

	c, w := newGinContext(http.MethodGet, "/panel/fragments/matriculated", nil)
	c.Params = append(c.Params, ginParam("tab", "matriculated"))
	asUser(c, "u-admin", models.RoleAdmin)
	h.Fragment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid &lt;status&gt;")
}

func TestPanelLoginSubmitSetsCookieAndRedirects(t *testing.T) {
	auth := &authServiceMock{login: &models.LoginResponse{AccessToken: "jwt-token", ExpiresIn: 3600}}
	h, _ := newPanelHandler(t, auth, &enrollmentServiceMock{})

	form := url.Values{"email": {"ana@example.com"}, "password": {"secreto123"}}
	c, w := newGinContext(http.MethodPost, "/panel/login?next=%2Fpanel%3Ftab%3Dpayments", []byte(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request.Header.Set("User-Agent", "panel-test")
	h.LoginSubmit(c)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/panel?tab=payments", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=jwt-token")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")
	assert.Equal(t, "ana@example.com", auth.lastReq.Email)
	assert.Equal(t, "panel-test", auth.lastReq.UserAgent)
}

func TestPanelLoginSubmitRerendersOnFailure(t *testing.T) {
	auth := &authServiceMock{err: appErrors.ErrInvalidCredentials}
	h, _ := newPanelHandler(t, auth, &enrollmentServiceMock{})

	form := url.Values{"email": {"ana@example.com"}, "password": {"mal"}}
	c, w := newGinContext(http.MethodPost, "/panel/login?next=//evil.example.com", []byte(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.LoginSubmit(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Correo o contraseña incorrectos.")
	assert.Contains(t, body, `value="ana@example.com"`)
	assert.NotContains(t, body, "evil.example.com")
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestPanelLogoutClearsCookie(t *testing.T) {
	h, _ := newPanelHandler(t, &authServiceMock{}, &enrollmentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/panel/logout", nil)
	h.Logout(c)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, loginPath, w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                    "/panel",
		"/panel?tab=courses":  "/panel?tab=courses",
		"https://example.com": "/panel",
		"//example.com":       "/panel",
		`/\example.com`:       "/panel",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), in)
	}
}
