package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/mailer"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByNationalID(ctx context.Context, nationalID, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type studentEnrollmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// StudentService manages student records and their enrollments.
type StudentService struct {
	repo        studentRepository
	enrollments studentEnrollmentRepository
	courses     courseLookup
	activity    *ActivityService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, enrollments studentEnrollmentRepository, courses courseLookup, activity *ActivityService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, enrollments: enrollments, courses: courses, activity: activity, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, *response.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, pagination(filter.Page, filter.PageSize, total), nil
}

// Profile returns a student with its ordered enrollments.
func (s *StudentService) Profile(ctx context.Context, id string) (*models.StudentProfile, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return &models.StudentProfile{Student: *student, Enrollments: enrollments}, nil
}

// Create registers a student.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest, actorID string) (*models.Student, error) {
	req = normalizeStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUniqueNationalID(ctx, req.NationalID, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		FullName:   req.FullName,
		NationalID: req.NationalID,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.activity.Record(ctx, models.ActivityStudentCreated, fmt.Sprintf("%s (%s)", student.FullName, student.NationalID), actorID)
	return student, nil
}

// UpdateProfile replaces the editable profile fields and returns the refreshed profile.
func (s *StudentService) UpdateProfile(ctx context.Context, id string, req dto.StudentRequest, actorID string) (*models.StudentProfile, error) {
	req = normalizeStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueNationalID(ctx, req.NationalID, id); err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.NationalID = req.NationalID
	student.Email = req.Email
	student.Phone = req.Phone
	student.Address = req.Address
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.activity.Record(ctx, models.ActivityProfileUpdated, fmt.Sprintf("%s (%s)", student.FullName, student.NationalID), actorID)
	return s.Profile(ctx, id)
}

// AddEnrollment appends a pending enrollment at the next index of the student.
func (s *StudentService) AddEnrollment(ctx context.Context, studentID string, req dto.CreateEnrollmentRequest, actorID string) (*models.Enrollment, error) {
	req.CourseName = strings.TrimSpace(req.CourseName)
	req.Schedule = strings.TrimSpace(req.Schedule)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.find(ctx, studentID)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{StudentID: student.ID, CourseName: req.CourseName, Schedule: req.Schedule}
	if req.CourseID != nil {
		course, err := s.courses.FindByID(ctx, *req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		enrollment.CourseID = &course.ID
		if enrollment.CourseName == "" {
			enrollment.CourseName = course.Title
		}
	}

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.activity.Record(ctx, models.ActivityEnrollmentCreated,
		fmt.Sprintf("%s: %s #%d", student.FullName, enrollment.CourseName, enrollment.Position), actorID)
	return enrollment, nil
}

func (s *StudentService) find(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) ensureUniqueNationalID(ctx context.Context, nationalID, excludeID string) error {
	exists, err := s.repo.ExistsByNationalID(ctx, nationalID, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "national id already registered")
	}
	return nil
}

func normalizeStudentRequest(req dto.StudentRequest) dto.StudentRequest {
	req.FullName = strings.Join(strings.Fields(req.FullName), " ")
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.Email = mailer.NormalizeAddress(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	return req
}
