package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-panel/internal/models"
)

const paymentSelect = `SELECT p.id, p.amount, p.currency, p.description, p.transaction_id, p.student_id, p.student_name, p.student_email,
        p.concept_id, pc.name AS concept_name, p.created_by, p.created_at
        FROM payments p LEFT JOIN payment_concepts pc ON pc.id = p.concept_id`

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var conds conditions
	if filter.Search != "" {
		conds.add("(LOWER(p.student_name) LIKE ? OR LOWER(p.description) LIKE ? OR LOWER(p.transaction_id) LIKE ?)",
			likePattern(filter.Search), likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.StudentID != "" {
		conds.add("p.student_id = ?", filter.StudentID)
	}
	if filter.Currency != "" {
		conds.add("p.currency = ?", filter.Currency)
	}
	if filter.From != nil {
		conds.add("p.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		conds.add("p.created_at < ?", *filter.To)
	}
	where := conds.where()
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY p.created_at DESC LIMIT %d OFFSET %d", paymentSelect, where, size, offset)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments p"+where, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByID returns one payment.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, paymentSelect+" WHERE p.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, amount, currency, description, transaction_id, student_id, student_name, student_email, concept_id, created_by, created_at)
        VALUES (:id, :amount, :currency, :description, :transaction_id, :student_id, :student_name, :student_email, :concept_id, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// PaymentConceptRepository persists payment concepts.
type PaymentConceptRepository struct {
	db *sqlx.DB
}

// NewPaymentConceptRepository constructs a PaymentConceptRepository.
func NewPaymentConceptRepository(db *sqlx.DB) *PaymentConceptRepository {
	return &PaymentConceptRepository{db: db}
}

// List returns concepts ordered by name.
func (r *PaymentConceptRepository) List(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error) {
	query := "SELECT id, name, amount, currency, active, created_at FROM payment_concepts"
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	var concepts []models.PaymentConcept
	if err := r.db.SelectContext(ctx, &concepts, query+" ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list payment concepts: %w", err)
	}
	return concepts, nil
}

// FindByID returns one concept.
func (r *PaymentConceptRepository) FindByID(ctx context.Context, id string) (*models.PaymentConcept, error) {
	var concept models.PaymentConcept
	if err := r.db.GetContext(ctx, &concept, "SELECT id, name, amount, currency, active, created_at FROM payment_concepts WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment concept: %w", err)
	}
	return &concept, nil
}

// Create inserts a concept.
func (r *PaymentConceptRepository) Create(ctx context.Context, concept *models.PaymentConcept) error {
	if concept.ID == "" {
		concept.ID = uuid.NewString()
	}
	if concept.CreatedAt.IsZero() {
		concept.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_concepts (id, name, amount, currency, active, created_at) VALUES (:id, :name, :amount, :currency, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, concept); err != nil {
		return fmt.Errorf("create payment concept: %w", err)
	}
	return nil
}
