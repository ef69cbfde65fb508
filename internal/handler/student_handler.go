package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, *response.Pagination, error)
	Profile(ctx context.Context, id string) (*models.StudentProfile, error)
	Create(ctx context.Context, req dto.StudentRequest, actorID string) (*models.Student, error)
	UpdateProfile(ctx context.Context, id string, req dto.StudentRequest, actorID string) (*models.StudentProfile, error)
	AddEnrollment(ctx context.Context, studentID string, req dto.CreateEnrollmentRequest, actorID string) (*models.Enrollment, error)
}

type profileRenderer interface {
	Profile(profile *models.StudentProfile) (string, error)
}

// StudentHandler manages student records and profiles.
type StudentHandler struct {
	service  studentService
	renderer profileRenderer
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(svc studentService, renderer profileRenderer) *StudentHandler {
	return &StudentHandler{service: svc, renderer: renderer}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Name, national id or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      page,
		PageSize:  size,
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.StudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.StudentRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Profile godoc
// @Summary Student profile
// @Description Returns the profile with its enrollments and the rendered profile fragment
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/profile [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	id, err := idParam(c, "student")
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.Profile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProfile(c, profile)
}

// UpdateProfile godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.StudentRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/profile [post]
func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	id, err := idParam(c, "student")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.StudentRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.UpdateProfile(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProfile(c, profile)
}

// AddEnrollment godoc
// @Summary Register student in a course
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.CreateEnrollmentRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *StudentHandler) AddEnrollment(c *gin.Context) {
	id, err := idParam(c, "student")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateEnrollmentRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.service.AddEnrollment(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

func (h *StudentHandler) respondProfile(c *gin.Context, profile *models.StudentProfile) {
	res := dto.ProfileResponse{Student: profile}
	if h.renderer != nil {
		html, err := h.renderer.Profile(profile)
		if err != nil {
			response.Error(c, appErrors.Internal(err, "failed to render profile"))
			return
		}
		res.HTML = html
	}
	response.JSON(c, http.StatusOK, res, nil)
}
