package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type activityRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error)
}

// ActivityService appends audit entries. Recording never fails the caller.
type ActivityService struct {
	repo   activityRepository
	logger *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record appends an entry. An empty or "0" userID records the system as actor.
func (s *ActivityService) Record(ctx context.Context, action, detail, userID string) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.ActivityLog{Action: action, Detail: detail, UserID: actorRef(userID)}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record activity",
			zap.String("action", action),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// List returns entries newest first.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, *response.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return entries, pagination(filter.Page, filter.PageSize, total), nil
}

// actorRef returns nil for the system actor ("" or "0").
func actorRef(id string) *string {
	if id == "" || id == "0" {
		return nil
	}
	return &id
}
