package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-panel/internal/models"
)

// ActivityRepository appends and lists activity log entries.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an entry.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, action, detail, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.Action, entry.Detail, entry.UserID, entry.CreatedAt); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// List returns entries newest first with the acting user's name.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	var conds conditions
	if filter.Action != "" {
		conds.add("a.action = ?", filter.Action)
	}
	if filter.UserID != "" {
		conds.add("a.user_id = ?", filter.UserID)
	}
	where := conds.where()
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT a.id, a.action, a.detail, a.user_id, u.full_name AS user_name, a.created_at
        FROM activity_logs a LEFT JOIN users u ON u.id = a.user_id%s
        ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, where, size, offset)
	var entries []models.ActivityLog
	if err := r.db.SelectContext(ctx, &entries, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM activity_logs a"+where, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return entries, total, nil
}
