package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/internal/models"
)

var courseCols = []string{"id", "title", "category", "price", "discount_price", "currency", "active", "created_at", "updated_at"}

var scheduleCols = []string{"id", "course_id", "position", "label", "modality", "capacity"}

func TestCourseRepositoryListAttachesSchedules(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	active := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE active = $1 ORDER BY title ASC LIMIT 20 OFFSET 0")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(courseCols).
			AddRow("c1", "Excel", "Ofimática", "80.00", "60.00", "USD", true, now, now).
			AddRow("c2", "Python", "Programación", "120.00", nil, "USD", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE active = $1")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_schedules")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(scheduleCols).
			AddRow("s1", "c1", 0, "Lunes 18:00", "Presencial", 20).
			AddRow("s2", "c1", 1, "Sábados 09:00", "Virtual", 30))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, 2, total)
	assert.Len(t, courses[0].Schedules, 2)
	assert.Empty(t, courses[1].Schedules)
	assert.True(t, courses[0].EffectivePrice().Equal(decimal.NewFromInt(60)))
	assert.True(t, courses[1].EffectivePrice().Equal(decimal.NewFromInt(120)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourseRepositoryCreateWritesSchedules(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_schedules")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_schedules")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	course := &models.Course{
		Title:    "Excel",
		Price:    decimal.NewFromInt(80),
		Currency: "USD",
		Schedules: []models.CourseSchedule{
			{Label: "Lunes", Modality: "Presencial", Capacity: 20},
			{Label: "Sábados", Modality: "Virtual", Capacity: 30},
		},
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, course.ID, course.Schedules[1].CourseID)
	assert.Equal(t, 1, course.Schedules[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Course{ID: "missing", Title: "Excel"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
