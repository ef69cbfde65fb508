package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

const defaultCurrency = "USD"

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	activity  *ActivityService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, activity *ActivityService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// List returns courses with schedules.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *response.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest, actorID string) (*models.Course, error) {
	course := &models.Course{Active: true}
	if err := s.apply(course, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.activity.Record(ctx, models.ActivityCourseSaved, course.Title, actorID)
	return course, nil
}

// Update replaces a course and its schedules.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest, actorID string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(course, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.activity.Record(ctx, models.ActivityCourseSaved, course.Title, actorID)
	return course, nil
}

func (s *CourseService) apply(course *models.Course, req dto.CourseRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.Price.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}
	if req.DiscountPrice.Valid && (req.DiscountPrice.Decimal.IsNegative() || req.DiscountPrice.Decimal.GreaterThan(req.Price)) {
		return appErrors.Clone(appErrors.ErrValidation, "discount price must be between zero and the price")
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}

	course.Title = req.Title
	course.Category = strings.TrimSpace(req.Category)
	course.Price = req.Price
	course.DiscountPrice = req.DiscountPrice
	course.Currency = req.Currency
	if req.Active != nil {
		course.Active = *req.Active
	}
	course.Schedules = make([]models.CourseSchedule, 0, len(req.Schedules))
	for _, in := range req.Schedules {
		course.Schedules = append(course.Schedules, models.CourseSchedule{
			Label:    strings.TrimSpace(in.Label),
			Modality: in.Modality,
			Capacity: in.Capacity,
		})
	}
	return nil
}
