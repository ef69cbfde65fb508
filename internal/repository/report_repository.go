package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-panel/internal/models"
)

// ReportRepository runs the aggregation queries behind the summary report.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// CountStudents returns the number of students.
func (r *ReportRepository) CountStudents(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountByStatus groups enrollments by status.
func (r *ReportRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, "SELECT status, COUNT(*) AS total FROM enrollments GROUP BY status ORDER BY status"); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	return counts, nil
}

// CountByCourse breaks enrollments down per course name.
func (r *ReportRepository) CountByCourse(ctx context.Context) ([]models.CourseCount, error) {
	const query = `SELECT course_name,
        COUNT(*) FILTER (WHERE status = 'Inscrito') AS pending,
        COUNT(*) FILTER (WHERE status = 'Matriculado') AS matriculated
        FROM enrollments GROUP BY course_name ORDER BY course_name`
	var counts []models.CourseCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count enrollments by course: %w", err)
	}
	return counts, nil
}

// PaymentTotals sums payments per currency.
func (r *ReportRepository) PaymentTotals(ctx context.Context) ([]models.CurrencyTotal, error) {
	var totals []models.CurrencyTotal
	if err := r.db.SelectContext(ctx, &totals, "SELECT currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total FROM payments GROUP BY currency ORDER BY currency"); err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	return totals, nil
}
