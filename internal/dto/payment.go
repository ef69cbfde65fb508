package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-panel/internal/models"
)

// CreatePaymentRequest records a payment. Amount and currency default from the concept when omitted.
type CreatePaymentRequest struct {
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency" validate:"omitempty,len=3"`
	Description   string              `json:"description" validate:"max=500"`
	TransactionID string              `json:"transaction_id" validate:"max=120"`
	StudentID     *string             `json:"student_id,omitempty" validate:"omitempty,uuid"`
	StudentName   string              `json:"student_name" validate:"max=200"`
	StudentEmail  string              `json:"student_email" validate:"omitempty,email"`
	ConceptID     *string             `json:"concept_id,omitempty" validate:"omitempty,uuid"`
	SendInvoice   bool                `json:"send_invoice"`
}

// CreatePaymentConceptRequest registers a payment concept.
type CreatePaymentConceptRequest struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3"`
}

// PaymentResponse returns a payment with its public invoice link.
type PaymentResponse struct {
	Payment    *models.Payment `json:"payment"`
	InvoiceURL string          `json:"invoice_url,omitempty"`
}
