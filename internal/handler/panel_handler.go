package handler

import (
	"context"
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/view"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/logger"
	"github.com/noah-isme/academic-panel/pkg/response"
)

const (
	panelHome = "/panel"
	loginPath = "/panel/login"
)

type panelRenderer interface {
	Shell(data view.ShellData) ([]byte, error)
	Login(data view.LoginData) ([]byte, error)
	Fragment(tab string, data interface{}) ([]byte, error)
}

type panelEnrollments interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, *response.Pagination, error)
	CourseNames(ctx context.Context) ([]string, error)
}

type panelCourses interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *response.Pagination, error)
}

type panelPayments interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *response.Pagination, error)
	Concepts(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error)
}

type capabilityChecker interface {
	Can(role models.UserRole, capability schema.Capability) bool
}

// tabCapabilities guards each fragment.
var tabCapabilities = map[string]schema.Capability{
	view.TabPending:      schema.CapReadStudents,
	view.TabMatriculated: schema.CapReadStudents,
	view.TabCourses:      schema.CapReadCourses,
	view.TabPayments:     schema.CapReadPayments,
	view.TabActivity:     schema.CapReadActivityLog,
	view.TabEmail:        schema.CapSendBulkEmail,
}

// PanelDeps groups the collaborators of PanelHandler.
type PanelDeps struct {
	Renderer     panelRenderer
	Auth         *AuthHandler
	Nonces       nonceIssuer
	Capabilities capabilityChecker
	Enrollments  panelEnrollments
	Courses      panelCourses
	Payments     panelPayments
	Activity     activityService
	APIPrefix    string
	Logger       *zap.Logger
}

// PanelHandler serves the server-rendered panel: login, shell and tab fragments.
type PanelHandler struct {
	deps PanelDeps
}

// NewPanelHandler constructs the handler.
func NewPanelHandler(deps PanelDeps) *PanelHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.APIPrefix == "" {
		deps.APIPrefix = "/api/v1"
	}
	return &PanelHandler{deps: deps}
}

// Shell renders the panel page with the tabs the user may open and one nonce per action.
func (h *PanelHandler) Shell(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, loginPath)
		return
	}

	tabs := h.visibleTabs(user.Role)
	if len(tabs) == 0 {
		h.fragmentError(c, appErrors.Clone(appErrors.ErrForbidden, "no panel sections available for this role"))
		return
	}
	active := c.Query("tab")
	if !containsTab(tabs, active) {
		active = tabs[0].Key
	}

	nonces := make(map[string]string, len(middleware.PanelActions))
	for _, action := range middleware.PanelActions {
		token, _ := h.deps.Nonces.Issue(user.UserID, action)
		nonces[action] = token
	}

	page, err := h.deps.Renderer.Shell(view.ShellData{
		User:   models.UserInfo{ID: user.UserID, Email: user.Email, FullName: user.FullName, Role: user.Role},
		Tabs:   tabs,
		Active: active,
		Config: view.PanelConfig{APIPrefix: h.deps.APIPrefix, Nonces: nonces},
	})
	if err != nil {
		logger.ForRequest(h.deps.Logger, c).Error("render panel shell", zap.Error(err))
		h.fragmentError(c, appErrors.Internal(err, "failed to render panel"))
		return
	}
	response.HTML(c, http.StatusOK, page)
}

// Fragment renders the markup of one tab.
func (h *PanelHandler) Fragment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		h.fragmentError(c, appErrors.ErrUnauthorized)
		return
	}
	tab := c.Param("tab")
	capability, known := tabCapabilities[tab]
	if !known {
		h.fragmentError(c, appErrors.Clone(appErrors.ErrNotFound, "unknown panel tab"))
		return
	}
	if !h.can(user.Role, capability) {
		h.fragmentError(c, appErrors.Clone(appErrors.ErrForbidden, "missing capability "+string(capability)))
		return
	}

	data, err := h.fragmentData(c, tab, user.Role)
	if err != nil {
		h.fragmentError(c, err)
		return
	}
	markup, err := h.deps.Renderer.Fragment(tab, data)
	if err != nil {
		if errors.Is(err, view.ErrUnknownTab) {
			h.fragmentError(c, appErrors.Clone(appErrors.ErrNotFound, "unknown panel tab"))
			return
		}
		logger.ForRequest(h.deps.Logger, c).Error("render panel fragment", zap.String("tab", tab), zap.Error(err))
		h.fragmentError(c, appErrors.Internal(err, "failed to render section"))
		return
	}
	response.HTML(c, http.StatusOK, markup)
}

func (h *PanelHandler) fragmentData(c *gin.Context, tab string, role models.UserRole) (interface{}, error) {
	ctx := c.Request.Context()
	page, size := pageParams(c)

	switch tab {
	case view.TabPending, view.TabMatriculated:
		status := models.EnrollmentStatusPending
		if tab == view.TabMatriculated {
			status = models.EnrollmentStatusMatriculated
		}
		filter := models.EnrollmentFilter{
			Status:     status,
			CourseName: strings.TrimSpace(c.Query("course")),
			Search:     strings.TrimSpace(c.Query("search")),
			Page:       page,
			PageSize:   size,
		}
		rows, pagination, err := h.deps.Enrollments.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		courses, err := h.deps.Enrollments.CourseNames(ctx)
		if err != nil {
			return nil, err
		}
		return view.EnrollmentTable{
			Rows:       rows,
			Courses:    courses,
			Filter:     filter,
			Pagination: derefPagination(pagination),
			CanApprove: h.can(role, schema.CapApproveEnrollments),
			CanExport:  h.can(role, schema.CapExportReports),
			CanCall:    h.can(role, schema.CapTrackCalls),
		}, nil
	case view.TabCourses:
		courses, _, err := h.deps.Courses.List(ctx, models.CourseFilter{Page: 1, PageSize: 100})
		if err != nil {
			return nil, err
		}
		return view.CoursesTab{Courses: courses, CanManage: h.can(role, schema.CapManageCourses)}, nil
	case view.TabPayments:
		payments, pagination, err := h.deps.Payments.List(ctx, models.PaymentFilter{
			Search:   strings.TrimSpace(c.Query("search")),
			Page:     page,
			PageSize: size,
		})
		if err != nil {
			return nil, err
		}
		concepts, err := h.deps.Payments.Concepts(ctx, true)
		if err != nil {
			return nil, err
		}
		return view.PaymentsTab{
			Payments:   payments,
			Concepts:   concepts,
			Pagination: derefPagination(pagination),
			CanManage:  h.can(role, schema.CapManagePayments),
		}, nil
	case view.TabActivity:
		entries, pagination, err := h.deps.Activity.List(ctx, models.ActivityFilter{Page: page, PageSize: size})
		if err != nil {
			return nil, err
		}
		return view.ActivityTab{Entries: entries, Pagination: derefPagination(pagination)}, nil
	case view.TabEmail:
		courses, err := h.deps.Enrollments.CourseNames(ctx)
		if err != nil {
			return nil, err
		}
		return view.EmailTab{
			Courses:  courses,
			Statuses: []models.EnrollmentStatus{models.EnrollmentStatusPending, models.EnrollmentStatusMatriculated},
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown panel tab")
}

// LoginPage renders the sign-in form.
func (h *PanelHandler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, view.LoginData{Action: loginAction(c.Query("next"))})
}

// LoginSubmit authenticates a form post, stores the session cookie and redirects to the requested page.
func (h *PanelHandler) LoginSubmit(c *gin.Context) {
	next := safeNext(c.Query("next"))
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderLogin(c, http.StatusBadRequest, view.LoginData{
			Email:  req.Email,
			Error:  "Ingrese correo y contraseña.",
			Action: loginAction(next),
		})
		return
	}
	if _, err := h.deps.Auth.authenticate(c, req); err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status >= http.StatusInternalServerError {
			logger.ForRequest(h.deps.Logger, c).Error("panel login failed", zap.Error(err))
		}
		h.renderLogin(c, appErr.Status, view.LoginData{
			Email:  req.Email,
			Error:  loginMessage(err),
			Action: loginAction(next),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout clears the session and returns to the sign-in page.
func (h *PanelHandler) Logout(c *gin.Context) {
	h.deps.Auth.clearSession(c)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *PanelHandler) renderLogin(c *gin.Context, status int, data view.LoginData) {
	page, err := h.deps.Renderer.Login(data)
	if err != nil {
		logger.ForRequest(h.deps.Logger, c).Error("render login page", zap.Error(err))
		h.fragmentError(c, appErrors.Internal(err, "failed to render login"))
		return
	}
	response.HTML(c, status, page)
}

func (h *PanelHandler) visibleTabs(role models.UserRole) []view.Tab {
	var tabs []view.Tab
	for _, tab := range view.Tabs() {
		if h.can(role, tabCapabilities[tab.Key]) {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

func (h *PanelHandler) can(role models.UserRole, capability schema.Capability) bool {
	return h.deps.Capabilities != nil && h.deps.Capabilities.Can(role, capability)
}

// fragmentError writes an error as markup since fragments are injected into the page as is.
func (h *PanelHandler) fragmentError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.HTML(c, appErr.Status, []byte(`<p class="error">`+html.EscapeString(appErr.Message)+`</p>`))
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrInvalidCredentials):
		return "Correo o contraseña incorrectos."
	case errors.Is(err, appErrors.ErrInactiveAccount):
		return "La cuenta está desactivada."
	case errors.Is(err, appErrors.ErrValidation):
		return "Ingrese correo y contraseña."
	default:
		return "No fue posible iniciar sesión. Intente nuevamente."
	}
}

// safeNext only follows local absolute paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return panelHome
	}
	return next
}

func loginAction(next string) string {
	next = safeNext(next)
	if next == panelHome {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

func containsTab(tabs []view.Tab, key string) bool {
	for _, tab := range tabs {
		if tab.Key == key {
			return true
		}
	}
	return false
}

func derefPagination(p *response.Pagination) response.Pagination {
	if p == nil {
		return response.Pagination{}
	}
	return *p
}
