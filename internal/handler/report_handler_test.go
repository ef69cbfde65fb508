package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type reportServiceMock struct {
	summary *models.ReportSummary
	hit     bool
	err     error
}

func (m *reportServiceMock) Summary(ctx context.Context) (*models.ReportSummary, bool, error) {
	return m.summary, m.hit, m.err
}

func TestReportHandlerSummaryReportsCacheHit(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{summary: &models.ReportSummary{Students: 12}, hit: true})

	c, w := newGinContext(http.MethodGet, "/api/v1/reports/summary", nil)
	h.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var summary models.ReportSummary
	env := decodeEnvelope(t, w, &summary)
	assert.Equal(t, 12, summary.Students)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestReportHandlerSummaryError(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{err: appErrors.Internal(nil, "failed to build summary")})

	c, w := newGinContext(http.MethodGet, "/api/v1/reports/summary", nil)
	h.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
