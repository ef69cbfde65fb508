package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/database"
)

// ErrAlreadyMatriculated is returned when approving an enrollment that is no longer pending.
var ErrAlreadyMatriculated = errors.New("enrollment already matriculated")

const enrollmentColumns = `e.id, e.student_id, e.position, e.course_id, e.course_name, e.schedule, e.status, e.enrollment_number, e.call_status, e.agent_id, e.approved_at, e.approved_by, e.created_at`

const enrollmentRowSelect = `SELECT ` + enrollmentColumns + `,
        s.full_name AS student_name, s.national_id, s.email AS student_email, s.phone AS student_phone, u.full_name AS agent_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN users u ON u.id = e.agent_id`

// Recipient is a student address selected for bulk email.
type Recipient struct {
	StudentID string `db:"id"`
	FullName  string `db:"full_name"`
	Email     string `db:"email"`
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func enrollmentConditions(filter models.EnrollmentFilter) conditions {
	var conds conditions
	if filter.Status != "" {
		conds.add("e.status = ?", string(filter.Status))
	}
	if filter.CourseName != "" {
		conds.add("LOWER(e.course_name) = ?", strings.ToLower(strings.TrimSpace(filter.CourseName)))
	}
	if filter.Search != "" {
		conds.add("(LOWER(s.full_name) LIKE ? OR LOWER(s.national_id) LIKE ? OR LOWER(s.email) LIKE ?)",
			likePattern(filter.Search), likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.From != nil {
		conds.add("e.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		conds.add("e.created_at < ?", *filter.To)
	}
	return conds
}

var enrollmentSorts = map[string]string{
	"created_at":   "e.created_at",
	"student_name": "s.full_name",
	"course_name":  "e.course_name",
	"approved_at":  "e.approved_at",
}

// List returns a page of enrollment rows filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, int, error) {
	conds := enrollmentConditions(filter)
	where := conds.where()
	order := orderBy(filter.SortBy, filter.SortOrder, enrollmentSorts, "e.created_at")
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s, e.position ASC LIMIT %d OFFSET %d", enrollmentRowSelect, where, order, size, offset)
	var rows []models.EnrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments e JOIN students s ON s.id = e.student_id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every row matching filter ordered by student name, for exports.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error) {
	conds := enrollmentConditions(filter)
	query := enrollmentRowSelect + conds.where() + " ORDER BY s.full_name ASC, e.position ASC"
	var rows []models.EnrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, conds.args...); err != nil {
		return nil, fmt.Errorf("list enrollments for export: %w", err)
	}
	return rows, nil
}

// ListByStudent returns a student's enrollments in position order.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments e WHERE e.student_id = $1 ORDER BY e.position ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// FindRow returns the enrollment at position for studentID joined with its student.
func (r *EnrollmentRepository) FindRow(ctx context.Context, studentID string, position int) (*models.EnrollmentRow, error) {
	query := enrollmentRowSelect + ` WHERE e.student_id = $1 AND e.position = $2`
	var row models.EnrollmentRow
	if err := r.db.GetContext(ctx, &row, query, studentID, position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &row, nil
}

// Create appends an enrollment at the end of the student's sequence.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusPending
	if enrollment.CallStatus == "" {
		enrollment.CallStatus = models.CallStatusPending
	}
	const query = `INSERT INTO enrollments (id, student_id, position, course_id, course_name, schedule, status, call_status, created_at)
        SELECT $1, $2, COALESCE(MAX(position) + 1, 0), $3, $4, $5, $6, $7, $8 FROM enrollments WHERE student_id = $2
        RETURNING position`
	if err := r.db.GetContext(ctx, &enrollment.Position, query,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.CourseName, enrollment.Schedule,
		enrollment.Status, enrollment.CallStatus, enrollment.CreatedAt,
	); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Approve moves a pending enrollment to Matriculado and assigns the next number of the year.
// The row lock and the conditional update make concurrent approvals of the same row yield one winner.
func (r *EnrollmentRepository) Approve(ctx context.Context, studentID string, position int, approvedBy *string, at time.Time) (*models.EnrollmentRow, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current models.Enrollment
		lockQuery := `SELECT ` + enrollmentColumns + ` FROM enrollments e WHERE e.student_id = $1 AND e.position = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, lockQuery, studentID, position); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock enrollment: %w", err)
		}
		if current.Status != models.EnrollmentStatusPending {
			return ErrAlreadyMatriculated
		}

		var seq int
		const counterQuery = `INSERT INTO enrollment_counters (year, last_value) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET last_value = enrollment_counters.last_value + 1
        RETURNING last_value`
		if err := tx.GetContext(ctx, &seq, counterQuery, at.Year()); err != nil {
			return fmt.Errorf("next enrollment number: %w", err)
		}

		const updateQuery = `UPDATE enrollments SET status = $1, enrollment_number = $2, approved_at = $3, approved_by = $4
        WHERE id = $5 AND status = $6`
		res, err := tx.ExecContext(ctx, updateQuery,
			string(models.EnrollmentStatusMatriculated), models.FormatEnrollmentNumber(at.Year(), seq), at, approvedBy,
			current.ID, string(models.EnrollmentStatusPending),
		)
		if err != nil {
			return fmt.Errorf("approve enrollment: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return ErrAlreadyMatriculated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindRow(ctx, studentID, position)
}

// UpdateCallStatus sets call tracking fields for one enrollment.
func (r *EnrollmentRepository) UpdateCallStatus(ctx context.Context, studentID string, position int, status models.CallStatus, agentID *string) error {
	const query = `UPDATE enrollments SET call_status = $3, agent_id = $4 WHERE student_id = $1 AND position = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, position, string(status), agentID)
	if err != nil {
		return fmt.Errorf("update call status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRecipients returns students with an email enrolled in courseName and/or with status.
func (r *EnrollmentRepository) ListRecipients(ctx context.Context, courseName string, status models.EnrollmentStatus) ([]Recipient, error) {
	var conds conditions
	conds.add("TRIM(s.email) <> ''")
	if courseName != "" {
		conds.add("LOWER(e.course_name) = ?", strings.ToLower(strings.TrimSpace(courseName)))
	}
	if status != "" {
		conds.add("e.status = ?", string(status))
	}
	query := `SELECT DISTINCT s.id, s.full_name, s.email FROM students s JOIN enrollments e ON e.student_id = s.id` +
		conds.where() + ` ORDER BY s.full_name ASC`
	var recipients []Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, conds.args...); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return recipients, nil
}

// CourseNames returns the distinct course names present in enrollments.
func (r *EnrollmentRepository) CourseNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, `SELECT DISTINCT course_name FROM enrollments ORDER BY course_name ASC`); err != nil {
		return nil, fmt.Errorf("list course names: %w", err)
	}
	return names, nil
}
