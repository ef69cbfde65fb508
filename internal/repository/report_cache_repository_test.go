package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

func TestReportKeysShareNamespace(t *testing.T) {
	assert.Equal(t, "panel:report:summary", ReportKey(ReportSummary))
}

func TestReportCacheWithoutRedisIsEmpty(t *testing.T) {
	cache := NewReportCacheRepository(nil, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, ReportSummary, models.ReportSummary{Students: 3}, time.Minute))

	var summary models.ReportSummary
	assert.ErrorIs(t, cache.Get(ctx, ReportSummary, &summary), appErrors.ErrCacheMiss)
	assert.Zero(t, summary.Students)

	removed, err := cache.Invalidate(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
