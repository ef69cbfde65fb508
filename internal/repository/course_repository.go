package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/database"
)

const courseColumns = `id, title, category, price, discount_price, currency, active, created_at, updated_at`

// CourseRepository persists the course catalog and its schedules.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses with their schedules.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conds conditions
	if filter.Search != "" {
		conds.add("LOWER(title) LIKE ?", likePattern(filter.Search))
	}
	if filter.Category != "" {
		conds.add("category = ?", filter.Category)
	}
	if filter.Active != nil {
		conds.add("active = ?", *filter.Active)
	}
	where := conds.where()
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY title ASC LIMIT %d OFFSET %d", courseColumns, where, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+where, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	if err := r.attachSchedules(ctx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// FindByID returns a course with its schedules.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	courses := []models.Course{course}
	if err := r.attachSchedules(ctx, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

// Create inserts a course and its schedules atomically.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO courses (id, title, category, price, discount_price, currency, active, created_at, updated_at)
        VALUES (:id, :title, :category, :price, :discount_price, :currency, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, course); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		return insertSchedules(ctx, tx, course)
	})
}

// Update replaces a course's fields and schedules atomically.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE courses SET title = :title, category = :category, price = :price, discount_price = :discount_price,
        currency = :currency, active = :active, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, course)
		if err != nil {
			return fmt.Errorf("update course: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM course_schedules WHERE course_id = $1", course.ID); err != nil {
			return fmt.Errorf("clear course schedules: %w", err)
		}
		return insertSchedules(ctx, tx, course)
	})
}

func insertSchedules(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	const query = `INSERT INTO course_schedules (id, course_id, position, label, modality, capacity)
        VALUES (:id, :course_id, :position, :label, :modality, :capacity)`
	for i := range course.Schedules {
		s := &course.Schedules[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CourseID = course.ID
		s.Position = i
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("create course schedule: %w", err)
		}
	}
	return nil
}

func (r *CourseRepository) attachSchedules(ctx context.Context, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]string, len(courses))
	index := make(map[string]int, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
		index[c.ID] = i
		courses[i].Schedules = []models.CourseSchedule{}
	}
	const query = `SELECT id, course_id, position, label, modality, capacity FROM course_schedules
        WHERE course_id = ANY($1) ORDER BY course_id, position`
	var schedules []models.CourseSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list course schedules: %w", err)
	}
	for _, s := range schedules {
		if i, ok := index[s.CourseID]; ok {
			courses[i].Schedules = append(courses[i].Schedules, s)
		}
	}
	return nil
}
