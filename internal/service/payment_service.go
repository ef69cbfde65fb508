package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/events"
	"github.com/noah-isme/academic-panel/pkg/export"
	"github.com/noah-isme/academic-panel/pkg/response"
	"github.com/noah-isme/academic-panel/pkg/storage"
)

const invoiceTokenKind = "invoice"

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
}

type paymentConceptRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error)
	FindByID(ctx context.Context, id string) (*models.PaymentConcept, error)
	Create(ctx context.Context, concept *models.PaymentConcept) error
}

type invoiceRenderer interface {
	Render(inv export.Invoice) ([]byte, error)
}

type invoiceNotifier interface {
	SendInvoice(ctx context.Context, payment *models.Payment, link string, pdf []byte) error
}

type linkSigner interface {
	Generate(kind, ref string) (string, time.Time, error)
	Parse(token, kind string) (string, time.Time, error)
}

// PaymentRecordedEvent is published after a payment is stored.
type PaymentRecordedEvent struct {
	PaymentID     string          `json:"payment_id"`
	StudentID     *string         `json:"student_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id,omitempty"`
	RecordedBy    string          `json:"recorded_by,omitempty"`
}

// PaymentServiceDeps groups the collaborators of PaymentService.
type PaymentServiceDeps struct {
	Payments  paymentRepository
	Concepts  paymentConceptRepository
	Students  studentLookup
	Invoices  invoiceRenderer
	Signer    linkSigner
	Notifier  invoiceNotifier
	Activity  *ActivityService
	Publisher events.Publisher
	Cache     *CacheService
	Validator *validator.Validate
	Logger    *zap.Logger
	// BaseURL prefixes public invoice links, e.g. https://panel.example.com.
	BaseURL string
}

// PaymentService records payments and issues their invoices.
type PaymentService struct {
	payments  paymentRepository
	concepts  paymentConceptRepository
	students  studentLookup
	invoices  invoiceRenderer
	signer    linkSigner
	notifier  invoiceNotifier
	activity  *ActivityService
	publisher events.Publisher
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	baseURL   string
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &PaymentService{
		payments:  deps.Payments,
		concepts:  deps.Concepts,
		students:  deps.Students,
		invoices:  deps.Invoices,
		signer:    deps.Signer,
		notifier:  deps.Notifier,
		activity:  deps.Activity,
		publisher: deps.Publisher,
		cache:     deps.Cache,
		validator: deps.Validator,
		logger:    deps.Logger,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
	}
}

// List returns payments newest first.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *response.Pagination, error) {
	filter.Currency = strings.ToUpper(strings.TrimSpace(filter.Currency))
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// Create records a payment, snapshotting the student's name and email at this moment.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest, actorID string) (*dto.PaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	payment := &models.Payment{
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Description:   strings.TrimSpace(req.Description),
		TransactionID: strings.TrimSpace(req.TransactionID),
		StudentName:   strings.TrimSpace(req.StudentName),
		StudentEmail:  strings.ToLower(strings.TrimSpace(req.StudentEmail)),
		CreatedBy:     actorRef(actorID),
	}
	if req.Amount.Valid {
		payment.Amount = req.Amount.Decimal
	}

	if req.ConceptID != nil {
		concept, err := s.concepts.FindByID(ctx, *req.ConceptID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "payment concept not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment concept")
		}
		if !concept.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment concept is inactive")
		}
		payment.ConceptID = &concept.ID
		payment.ConceptName = &concept.Name
		if !req.Amount.Valid {
			payment.Amount = concept.Amount
		}
		if payment.Currency == "" {
			payment.Currency = concept.Currency
		}
		if payment.Description == "" {
			payment.Description = concept.Name
		}
	}
	if payment.Currency == "" {
		payment.Currency = defaultCurrency
	}
	if !payment.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	if req.StudentID != nil {
		student, err := s.students.FindByID(ctx, *req.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		payment.StudentID = &student.ID
		if payment.StudentName == "" {
			payment.StudentName = student.FullName
		}
		if payment.StudentEmail == "" {
			payment.StudentEmail = strings.ToLower(strings.TrimSpace(student.Email))
		}
	}
	if payment.StudentName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	logger := s.logger.With(zap.String("payment_id", payment.ID))

	s.activity.Record(ctx, models.ActivityPaymentRecorded,
		fmt.Sprintf("%s: %s", payment.StudentName, export.FormatMoney(payment.Amount, payment.Currency)), actorID)
	event := PaymentRecordedEvent{
		PaymentID:     payment.ID,
		StudentID:     payment.StudentID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		TransactionID: payment.TransactionID,
		RecordedBy:    actorID,
	}
	if err := s.publisher.Publish(ctx, events.PaymentRecorded, event); err != nil {
		logger.Warn("failed to publish payment event", zap.Error(err))
	}
	s.cache.InvalidateReports(ctx)

	result := &dto.PaymentResponse{Payment: payment}
	link, err := s.InvoiceLink(payment.ID)
	if err != nil {
		logger.Warn("invoice link unavailable", zap.Error(err))
	}
	result.InvoiceURL = link

	if req.SendInvoice {
		s.emailInvoice(ctx, payment, link, logger)
	}
	logger.Info("payment recorded")
	return result, nil
}

func (s *PaymentService) emailInvoice(ctx context.Context, payment *models.Payment, link string, logger *zap.Logger) {
	if s.notifier == nil {
		return
	}
	pdf, err := s.renderInvoice(ctx, payment, link)
	if err != nil {
		logger.Warn("invoice render failed", zap.Error(err))
		return
	}
	if err := s.notifier.SendInvoice(ctx, payment, link, pdf); err != nil {
		logger.Warn("invoice email not sent", zap.Error(err))
	}
}

// InvoiceLink returns the public, signed URL of a payment's invoice.
func (s *PaymentService) InvoiceLink(paymentID string) (string, error) {
	if s.signer == nil {
		return "", errors.New("invoice signer not configured")
	}
	token, _, err := s.signer.Generate(invoiceTokenKind, paymentID)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/invoice/" + token, nil
}

// Invoice renders the PDF of a payment.
func (s *PaymentService) Invoice(ctx context.Context, id string) (*dto.ExportFile, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	link, err := s.InvoiceLink(payment.ID)
	if err != nil {
		s.logger.Debug("invoice rendered without verify link", zap.Error(err))
	}
	pdf, err := s.renderInvoice(ctx, payment, link)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice")
	}
	return &dto.ExportFile{
		Filename:    invoiceNumber(payment) + ".pdf",
		ContentType: export.ContentTypePDF,
		Content:     pdf,
		Rows:        1,
	}, nil
}

// InvoiceByToken resolves a signed invoice link. Tampered and expired tokens are rejected as forbidden.
func (s *PaymentService) InvoiceByToken(ctx context.Context, token string) (*dto.ExportFile, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice link invalid")
	}
	id, _, err := s.signer.Parse(token, invoiceTokenKind)
	if err != nil {
		if errors.Is(err, storage.ErrExpiredToken) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice link invalid")
	}
	return s.Invoice(ctx, id)
}

// Concepts lists payment concepts.
func (s *PaymentService) Concepts(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error) {
	concepts, err := s.concepts.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payment concepts")
	}
	return concepts, nil
}

// CreateConcept registers a reusable charge.
func (s *PaymentService) CreateConcept(ctx context.Context, req dto.CreatePaymentConceptRequest, actorID string) (*models.PaymentConcept, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment concept payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	concept := &models.PaymentConcept{
		Name:     req.Name,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Active:   true,
	}
	if err := s.concepts.Create(ctx, concept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save payment concept")
	}
	s.activity.Record(ctx, models.ActivityConceptSaved,
		fmt.Sprintf("%s (%s)", concept.Name, export.FormatMoney(concept.Amount, concept.Currency)), actorID)
	return concept, nil
}

func (s *PaymentService) renderInvoice(ctx context.Context, payment *models.Payment, link string) ([]byte, error) {
	if s.invoices == nil {
		return nil, errors.New("invoice renderer not configured")
	}
	inv := export.Invoice{
		Number:        invoiceNumber(payment),
		IssuedAt:      payment.CreatedAt,
		Currency:      payment.Currency,
		StudentName:   payment.StudentName,
		StudentEmail:  payment.StudentEmail,
		TransactionID: payment.TransactionID,
		Lines:         []export.InvoiceLine{{Description: invoiceDescription(payment), Amount: payment.Amount}},
		VerifyURL:     link,
	}
	if payment.StudentID != nil && s.students != nil {
		if student, err := s.students.FindByID(ctx, *payment.StudentID); err == nil {
			inv.StudentID = student.NationalID
		}
	}
	return s.invoices.Render(inv)
}

// invoiceNumber derives a stable receipt number: REC-<yyyymmdd>-<first 8 id chars>.
func invoiceNumber(p *models.Payment) string {
	short := strings.ReplaceAll(p.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("REC-%s-%s", p.CreatedAt.UTC().Format("20060102"), strings.ToUpper(short))
}

func invoiceDescription(p *models.Payment) string {
	switch {
	case p.Description != "":
		return p.Description
	case p.ConceptName != nil && *p.ConceptName != "":
		return *p.ConceptName
	default:
		return "Pago"
	}
}
