package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type stubCourseLookup map[string]*models.Course

func (s stubCourseLookup) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newStudentFixture() (*StudentService, *mockStudentRepo, *mockEnrollmentRepo, *mockActivityRepo) {
	students := newMockStudentRepo(
		&models.Student{ID: studentAna, FullName: "Ana Pérez", NationalID: "0912", Email: "ana@example.com"},
		&models.Student{ID: studentLuis, FullName: "Luis Mora", NationalID: "0801"},
	)
	enrollments := newMockEnrollmentRepo()
	enrollments.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: studentAna, CourseName: "Excel"}})
	courses := stubCourseLookup{
		"b1d2c3e4-5f60-4a1b-9c2d-3e4f5a6b7c8d": {ID: "b1d2c3e4-5f60-4a1b-9c2d-3e4f5a6b7c8d", Title: "Python Básico"},
	}
	activity := &mockActivityRepo{}
	svc := NewStudentService(students, enrollments, courses, NewActivityService(activity, nil), nil, nil)
	return svc, students, enrollments, activity
}

func TestStudentProfileIncludesOrderedEnrollments(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	profile, err := svc.Profile(context.Background(), studentAna)
	require.NoError(t, err)
	require.Len(t, profile.Enrollments, 1)
	assert.Equal(t, "Excel", profile.Enrollments[0].CourseName)

	empty, err := svc.Profile(context.Background(), studentLuis)
	require.NoError(t, err)
	assert.NotNil(t, empty.Enrollments)

	_, err = svc.Profile(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentCreateNormalisesAndRejectsDuplicates(t *testing.T) {
	svc, repo, _, activity := newStudentFixture()

	student, err := svc.Create(context.Background(), dto.StudentRequest{FullName: "  Eva   Ruiz ", NationalID: " 0555 ", Email: " Eva@Example.com"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Eva Ruiz", student.FullName)
	assert.Equal(t, "0555", student.NationalID)
	assert.Equal(t, "eva@example.com", student.Email)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, []string{models.ActivityStudentCreated}, activity.actions())

	_, err = svc.Create(context.Background(), dto.StudentRequest{FullName: "Otra", NationalID: "0912"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(context.Background(), dto.StudentRequest{FullName: "Sin cédula"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentUpdateProfile(t *testing.T) {
	svc, _, _, activity := newStudentFixture()

	profile, err := svc.UpdateProfile(context.Background(), studentAna, dto.StudentRequest{
		FullName:   "Ana María Pérez",
		NationalID: "0912",
		Phone:      " 0999 ",
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana María Pérez", profile.FullName)
	assert.Equal(t, "0999", profile.Phone)
	assert.Len(t, profile.Enrollments, 1)
	assert.Equal(t, []string{models.ActivityProfileUpdated}, activity.actions())

	_, err = svc.UpdateProfile(context.Background(), studentAna, dto.StudentRequest{FullName: "Ana", NationalID: "0801"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.UpdateProfile(context.Background(), "missing", dto.StudentRequest{FullName: "X", NationalID: "1"}, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentAddEnrollmentAppendsAtNextIndex(t *testing.T) {
	svc, _, _, _ := newStudentFixture()
	courseID := "b1d2c3e4-5f60-4a1b-9c2d-3e4f5a6b7c8d"

	enrollment, err := svc.AddEnrollment(context.Background(), studentAna, dto.CreateEnrollmentRequest{CourseID: &courseID, Schedule: "Sábados 08:00"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.Position)
	assert.Equal(t, "Python Básico", enrollment.CourseName)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)

	unknown := "c0c0c0c0-1111-4222-8333-444455556666"
	_, err = svc.AddEnrollment(context.Background(), studentAna, dto.CreateEnrollmentRequest{CourseID: &unknown}, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.AddEnrollment(context.Background(), studentAna, dto.CreateEnrollmentRequest{}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
