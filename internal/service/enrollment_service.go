package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/repository"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/events"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, int, error)
	FindRow(ctx context.Context, studentID string, position int) (*models.EnrollmentRow, error)
	Approve(ctx context.Context, studentID string, position int, approvedBy *string, at time.Time) (*models.EnrollmentRow, error)
	UpdateCallStatus(ctx context.Context, studentID string, position int, status models.CallStatus, agentID *string) error
	CourseNames(ctx context.Context) ([]string, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type approvalNotifier interface {
	NotifyApproval(ctx context.Context, row models.EnrollmentRow) error
}

// EnrollmentApprovedEvent is published after a successful approval.
type EnrollmentApprovedEvent struct {
	StudentID        string    `json:"student_id"`
	Index            int       `json:"index"`
	CourseName       string    `json:"course_name"`
	EnrollmentNumber string    `json:"enrollment_number"`
	ApprovedBy       string    `json:"approved_by,omitempty"`
	ApprovedAt       time.Time `json:"approved_at"`
}

// EnrollmentService runs the approval workflow and call tracking.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentLookup
	notifier  approvalNotifier
	activity  *ActivityService
	publisher events.Publisher
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// EnrollmentServiceDeps groups the collaborators of EnrollmentService.
type EnrollmentServiceDeps struct {
	Repo      enrollmentRepository
	Students  studentLookup
	Notifier  approvalNotifier
	Activity  *ActivityService
	Publisher events.Publisher
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(deps EnrollmentServiceDeps) *EnrollmentService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &EnrollmentService{
		repo:      deps.Repo,
		students:  deps.Students,
		notifier:  deps.Notifier,
		activity:  deps.Activity,
		publisher: deps.Publisher,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// List returns enrollment rows for the panel tables.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, *response.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, pagination(filter.Page, filter.PageSize, total), nil
}

// CourseNames lists distinct course names for filter dropdowns.
func (s *EnrollmentService) CourseNames(ctx context.Context) ([]string, error) {
	names, err := s.repo.CourseNames(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course names")
	}
	return names, nil
}

// Approve matriculates one pending enrollment, notifies the student and logs the action.
func (s *EnrollmentService) Approve(ctx context.Context, req dto.ApproveRequest, actorID string) (*models.EnrollmentRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	row, err := s.approve(ctx, req.StudentID, *req.Index, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateReports(ctx)
	return row, nil
}

// ApproveBatch approves each item independently and reports per-item failures.
func (s *EnrollmentService) ApproveBatch(ctx context.Context, req dto.ApproveBatchRequest, actorID string) (*dto.BatchApprovalResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	result := &dto.BatchApprovalResult{Approved: []models.EnrollmentRow{}, Failed: []dto.BatchFailure{}}
	for _, item := range req.Items {
		row, err := s.approve(ctx, item.StudentID, *item.Index, actorID)
		if err != nil {
			result.Failed = append(result.Failed, dto.BatchFailure{
				StudentID: item.StudentID,
				Index:     *item.Index,
				Message:   appErrors.FromError(err).Message,
			})
			continue
		}
		result.Approved = append(result.Approved, *row)
	}

	if len(result.Approved) > 0 {
		s.cache.InvalidateReports(ctx)
	}
	s.activity.Record(ctx, models.ActivityBatchApproved,
		fmt.Sprintf("%d aprobadas, %d con error", len(result.Approved), len(result.Failed)), actorID)
	return result, nil
}

// UpdateCallStatus records the outcome of a follow-up call. The agent defaults to the acting user.
func (s *EnrollmentService) UpdateCallStatus(ctx context.Context, req dto.CallStatusRequest, actorID string) (*models.EnrollmentRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call status payload")
	}
	agentID := req.AgentID
	if agentID == nil {
		agentID = actorRef(actorID)
	}

	if err := s.repo.UpdateCallStatus(ctx, req.StudentID, *req.Index, req.CallStatus, agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update call status")
	}

	row, err := s.repo.FindRow(ctx, req.StudentID, *req.Index)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	s.activity.Record(ctx, models.ActivityCallStatusUpdated,
		fmt.Sprintf("%s: %s #%d -> %s", row.StudentName, row.CourseName, row.Position, row.CallStatus), actorID)
	return row, nil
}

func (s *EnrollmentService) approve(ctx context.Context, studentID string, index int, actorID string) (*models.EnrollmentRow, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordApproval(OutcomeNotFound)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	row, err := s.repo.Approve(ctx, studentID, index, actorRef(actorID), s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			s.metrics.RecordApproval(OutcomeNotFound)
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("enrollment %d not found", index))
		case errors.Is(err, repository.ErrAlreadyMatriculated):
			s.metrics.RecordApproval(OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrAlreadyMatriculated, fmt.Sprintf("enrollment %d already matriculated", index))
		default:
			s.metrics.RecordApproval(OutcomeFailure)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment")
		}
	}
	s.metrics.RecordApproval(OutcomeSuccess)

	number := ""
	if row.EnrollmentNumber != nil {
		number = *row.EnrollmentNumber
	}
	logger := s.logger.With(zap.String("student_id", studentID), zap.Int("index", index), zap.String("enrollment_number", number))

	if s.notifier != nil {
		if err := s.notifier.NotifyApproval(ctx, *row); err != nil {
			logger.Warn("approval notification not sent", zap.Error(err))
		}
	}
	s.activity.Record(ctx, models.ActivityEnrollmentApproved,
		fmt.Sprintf("%s: %s (%s)", row.StudentName, row.CourseName, number), actorID)

	event := EnrollmentApprovedEvent{
		StudentID:        row.StudentID,
		Index:            row.Position,
		CourseName:       row.CourseName,
		EnrollmentNumber: number,
		ApprovedBy:       actorID,
		ApprovedAt:       s.now().UTC(),
	}
	if row.ApprovedAt != nil {
		event.ApprovedAt = *row.ApprovedAt
	}
	if err := s.publisher.Publish(ctx, events.EnrollmentApproved, event); err != nil {
		logger.Warn("failed to publish approval event", zap.Error(err))
	}
	logger.Info("enrollment approved")
	return row, nil
}
