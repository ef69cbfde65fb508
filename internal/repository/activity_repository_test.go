package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/models"
)

func TestActivityRepositoryCreateSystemEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs (id, action, detail, user_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), models.ActivityBulkEmailSent, "12 enviados", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ActivityLog{Action: models.ActivityBulkEmailSent, Detail: "12 enviados"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.SystemActor, entry.Actor())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListJoinsUserName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users u ON u.id = a.user_id WHERE a.action = $1")).
		WithArgs(models.ActivityEnrollmentApproved).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "detail", "user_id", "user_name", "created_at"}).
			AddRow("a1", models.ActivityEnrollmentApproved, "MAT-2026-00001", "u1", "María", now).
			AddRow("a2", models.ActivityEnrollmentApproved, "MAT-2026-00002", nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activity_logs a WHERE a.action = $1")).
		WithArgs(models.ActivityEnrollmentApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	entries, total, err := repo.List(context.Background(), models.ActivityFilter{Action: models.ActivityEnrollmentApproved})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "María", entries[0].Actor())
	assert.Equal(t, models.SystemActor, entries[1].Actor())
	assert.NoError(t, mock.ExpectationsWereMet())
}
