package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/repository"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := len(m.items)
	m.items = make(map[string][]byte)
	return removed, nil
}

type stubReportRepo struct {
	calls int
	err   error
}

func (s *stubReportRepo) CountStudents(ctx context.Context) (int, error) {
	s.calls++
	return 12, s.err
}

func (s *stubReportRepo) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: models.EnrollmentStatusPending, Total: 7}, {Status: models.EnrollmentStatusMatriculated, Total: 5}}, nil
}

func (s *stubReportRepo) CountByCourse(ctx context.Context) ([]models.CourseCount, error) {
	return nil, nil
}

func (s *stubReportRepo) PaymentTotals(ctx context.Context) ([]models.CurrencyTotal, error) {
	return []models.CurrencyTotal{{Currency: "USD", Count: 2, Total: decimal.RequireFromString("300.50")}}, nil
}

func TestReportSummaryCachesUntilInvalidated(t *testing.T) {
	repo := &stubReportRepo{}
	metrics := NewMetricsService()
	store := newMemoryCache()
	cache := NewCacheService(store, metrics, time.Minute, nil, true)
	svc := NewReportService(repo, cache, 0, nil)
	ctx := context.Background()

	first, hit, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, first.Students)
	assert.Empty(t, first.ByCourse)
	assert.NotNil(t, first.ByCourse)
	assert.Contains(t, store.items, repository.ReportSummary)

	second, hit, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, second.PaymentTotals[0].Total.Equal(decimal.RequireFromString("300.5")))
	assert.Equal(t, 1, repo.calls)

	cache.InvalidateReports(ctx)
	assert.Empty(t, store.items)
	_, hit, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
}

func TestReportSummaryWithoutCache(t *testing.T) {
	repo := &stubReportRepo{}
	svc := NewReportService(repo, nil, 0, nil)

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	repo.err = errors.New("db down")
	_, _, err = svc.Summary(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
