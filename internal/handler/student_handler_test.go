package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/view"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

const studentUUID = "7d7f8a5e-3c1b-4a43-9a57-0d8a3e2c1f10"

type studentServiceMock struct {
	profile *models.StudentProfile
	updated dto.StudentRequest
	lookups int
	err     error
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, *response.Pagination, error) {
	return nil, &response.Pagination{Page: 1}, m.err
}

func (m *studentServiceMock) Profile(ctx context.Context, id string) (*models.StudentProfile, error) {
	m.lookups++
	return m.profile, m.err
}

func (m *studentServiceMock) Create(ctx context.Context, req dto.StudentRequest, actorID string) (*models.Student, error) {
	return &models.Student{ID: "s-1", FullName: req.FullName}, m.err
}

func (m *studentServiceMock) UpdateProfile(ctx context.Context, id string, req dto.StudentRequest, actorID string) (*models.StudentProfile, error) {
	m.updated = req
	if m.err != nil {
		return nil, m.err
	}
	m.profile.FullName = req.FullName
	return m.profile, nil
}

func (m *studentServiceMock) AddEnrollment(ctx context.Context, studentID string, req dto.CreateEnrollmentRequest, actorID string) (*models.Enrollment, error) {
	return &models.Enrollment{StudentID: studentID, CourseName: req.CourseName, Position: 1}, m.err
}

type failingProfileRenderer struct{}

func (failingProfileRenderer) Profile(*models.StudentProfile) (string, error) {
	return "", errors.New("boom")
}

func sampleProfile() *models.StudentProfile {
	return &models.StudentProfile{Student: models.Student{ID: studentUUID, FullName: "Ana Pérez", NationalID: "0912345678"}}
}

func TestStudentHandlerUpdateProfileReturnsMarkup(t *testing.T) {
	renderer, err := view.New("Instituto Andino")
	require.NoError(t, err)
	svc := &studentServiceMock{profile: sampleProfile()}
	h := NewStudentHandler(svc, renderer)

	c, w := newGinContext(http.MethodPost, "/api/v1/students/"+studentUUID+"/profile", []byte(`{"full_name":"Ana María Pérez","national_id":"0912345678"}`))
	c.Params = append(c.Params, ginParam("id", studentUUID))
	h.UpdateProfile(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res dto.ProfileResponse
	decodeEnvelope(t, w, &res)
	assert.Equal(t, "Ana María Pérez", svc.updated.FullName)
	assert.Contains(t, res.HTML, "Ana María Pérez")
	require.NotNil(t, res.Student)
	assert.Equal(t, studentUUID, res.Student.ID)
}

func TestStudentHandlerProfileNotFound(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}, nil)

	c, w := newGinContext(http.MethodGet, "/api/v1/students/"+studentUUID+"/profile", nil)
	c.Params = append(c.Params, ginParam("id", studentUUID))
	h.Profile(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerProfileMalformedIDSkipsLookup(t *testing.T) {
	svc := &studentServiceMock{profile: sampleProfile()}
	h := NewStudentHandler(svc, nil)

	c, w := newGinContext(http.MethodGet, "/api/v1/students/abc/profile", nil)
	c.Params = append(c.Params, ginParam("id", "abc"))
	h.Profile(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Zero(t, svc.lookups)
}

func TestStudentHandlerProfileRenderFailure(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{profile: sampleProfile()}, failingProfileRenderer{})

	c, w := newGinContext(http.MethodGet, "/api/v1/students/"+studentUUID+"/profile", nil)
	c.Params = append(c.Params, ginParam("id", studentUUID))
	h.Profile(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStudentHandlerAddEnrollment(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/api/v1/students/"+studentUUID+"/enrollments", []byte(`{"course_name":"Excel","schedule":"Sábados"}`))
	c.Params = append(c.Params, ginParam("id", studentUUID))
	h.AddEnrollment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var enrollment models.Enrollment
	decodeEnvelope(t, w, &enrollment)
	assert.Equal(t, "Excel", enrollment.CourseName)
	assert.Equal(t, 1, enrollment.Position)
}
