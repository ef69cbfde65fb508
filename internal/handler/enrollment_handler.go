package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/view"
	"github.com/noah-isme/academic-panel/pkg/logger"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, *response.Pagination, error)
	CourseNames(ctx context.Context) ([]string, error)
	Approve(ctx context.Context, req dto.ApproveRequest, actorID string) (*models.EnrollmentRow, error)
	ApproveBatch(ctx context.Context, req dto.ApproveBatchRequest, actorID string) (*dto.BatchApprovalResult, error)
	UpdateCallStatus(ctx context.Context, req dto.CallStatusRequest, actorID string) (*models.EnrollmentRow, error)
}

type rowRenderer interface {
	Row(row models.EnrollmentRow, actions view.RowActions) (string, error)
}

// EnrollmentHandler exposes enrollment listing, approval and call tracking.
type EnrollmentHandler struct {
	service  enrollmentService
	renderer rowRenderer
	caps     capabilityChecker
	logger   *zap.Logger
}

// NewEnrollmentHandler constructs the handler. caps decides which controls re-rendered rows carry.
func NewEnrollmentHandler(svc enrollmentService, renderer rowRenderer, caps capabilityChecker, log *zap.Logger) *EnrollmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrollmentHandler{service: svc, renderer: renderer, caps: caps, logger: log}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param status query string false "Inscrito or Matriculado"
// @Param course query string false "Course name"
// @Param search query string false "Name, national id or email"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter, err := enrollmentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Courses godoc
// @Summary Distinct course names
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/courses [get]
func (h *EnrollmentHandler) Courses(c *gin.Context) {
	names, err := h.service.CourseNames(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, names, nil)
}

// Approve godoc
// @Summary Approve enrollment
// @Description Assigns the next enrollment number and returns the re-rendered row
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.ApproveRequest true "Enrollment reference"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.service.Approve(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.approval(c, row), nil)
}

// ApproveBatch godoc
// @Summary Approve several enrollments
// @Description Each item is approved on its own; failures are reported per item
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.ApproveBatchRequest true "Enrollment references"
// @Success 200 {object} response.Envelope
// @Router /enrollments/approve-batch [post]
func (h *EnrollmentHandler) ApproveBatch(c *gin.Context) {
	var req dto.ApproveBatchRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ApproveBatch(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CallStatus godoc
// @Summary Update call status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.CallStatusRequest true "Call status"
// @Success 200 {object} response.Envelope
// @Router /enrollments/call-status [post]
func (h *EnrollmentHandler) CallStatus(c *gin.Context) {
	var req dto.CallStatusRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.service.UpdateCallStatus(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.approval(c, row), nil)
}

// approval pairs the row with its markup. A render failure still returns the row.
func (h *EnrollmentHandler) approval(c *gin.Context, row *models.EnrollmentRow) dto.ApprovalResponse {
	res := dto.ApprovalResponse{Row: *row}
	if h.renderer == nil {
		return res
	}
	html, err := h.renderer.Row(*row, h.rowActions(c))
	if err != nil {
		logger.ForRequest(h.logger, c).Warn("render enrollment row", zap.String("enrollment_id", row.ID), zap.Error(err))
		return res
	}
	res.HTML = html
	return res
}

func (h *EnrollmentHandler) rowActions(c *gin.Context) view.RowActions {
	user := middleware.CurrentUser(c)
	if h.caps == nil || user == nil {
		return view.RowActions{}
	}
	return view.RowActions{
		Approve: h.caps.Can(user.Role, schema.CapApproveEnrollments),
		Call:    h.caps.Can(user.Role, schema.CapTrackCalls),
	}
}

func enrollmentFilter(c *gin.Context) (models.EnrollmentFilter, error) {
	page, size := pageParams(c)
	filter := models.EnrollmentFilter{
		Status:     models.EnrollmentStatus(strings.TrimSpace(c.Query("status"))),
		CourseName: strings.TrimSpace(c.Query("course")),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   size,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	var err error
	if filter.From, err = dateParam(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateParam(c, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}
