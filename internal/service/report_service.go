package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/repository"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type reportRepository interface {
	CountStudents(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountByCourse(ctx context.Context) ([]models.CourseCount, error)
	PaymentTotals(ctx context.Context) ([]models.CurrencyTotal, error)
}

// ReportService serves dashboard aggregates through the report cache.
type ReportService struct {
	repo   reportRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Summary returns the aggregates and whether they came from cache.
func (s *ReportService) Summary(ctx context.Context) (*models.ReportSummary, bool, error) {
	var cached models.ReportSummary
	if s.cache.Get(ctx, repository.ReportSummary, &cached) {
		return &cached, true, nil
	}

	summary := &models.ReportSummary{GeneratedAt: s.now().UTC()}
	var err error
	if summary.Students, err = s.repo.CountStudents(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if summary.ByStatus, err = s.repo.CountByStatus(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if summary.ByCourse, err = s.repo.CountByCourse(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	if summary.PaymentTotals, err = s.repo.PaymentTotals(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}
	if summary.ByStatus == nil {
		summary.ByStatus = []models.StatusCount{}
	}
	if summary.ByCourse == nil {
		summary.ByCourse = []models.CourseCount{}
	}
	if summary.PaymentTotals == nil {
		summary.PaymentTotals = []models.CurrencyTotal{}
	}

	s.cache.Set(ctx, repository.ReportSummary, summary, s.ttl)
	return summary, false, nil
}
