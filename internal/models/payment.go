package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records money received. StudentName and StudentEmail are snapshots taken at creation.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Description   string          `db:"description" json:"description"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	StudentID     *string         `db:"student_id" json:"student_id,omitempty"`
	StudentName   string          `db:"student_name" json:"student_name"`
	StudentEmail  string          `db:"student_email" json:"student_email"`
	ConceptID     *string         `db:"concept_id" json:"concept_id,omitempty"`
	ConceptName   *string         `db:"concept_name" json:"concept_name,omitempty"`
	CreatedBy     *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// PaymentConcept is a reusable charge (tuition, certificate fee...).
type PaymentConcept struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Currency  string          `db:"currency" json:"currency"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PaymentFilter captures list filters.
type PaymentFilter struct {
	Search    string
	StudentID string
	Currency  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
