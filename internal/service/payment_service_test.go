package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/view"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/events"
	"github.com/noah-isme/academic-panel/pkg/export"
	"github.com/noah-isme/academic-panel/pkg/storage"
)

const tuitionConcept = "3f1e7a52-2c4b-4d8e-9a0f-5b6c7d8e9f01"

type mockPaymentRepo struct {
	payments map[string]*models.Payment
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if filter.Currency != "" && p.Currency != filter.Currency {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = "9a8b7c6d-1111-4222-8333-444455556666"
	payment.CreatedAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	copied := *payment
	m.payments[payment.ID] = &copied
	return nil
}

type mockConceptRepo struct {
	concepts map[string]*models.PaymentConcept
}

func (m *mockConceptRepo) List(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error) {
	out := make([]models.PaymentConcept, 0)
	for _, c := range m.concepts {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockConceptRepo) FindByID(ctx context.Context, id string) (*models.PaymentConcept, error) {
	c, ok := m.concepts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockConceptRepo) Create(ctx context.Context, concept *models.PaymentConcept) error {
	concept.ID = "concept-new"
	m.concepts[concept.ID] = concept
	return nil
}

type expiredSigner struct{}

func (expiredSigner) Generate(kind, ref string) (string, time.Time, error) {
	return "token", time.Now(), nil
}

func (expiredSigner) Parse(token, kind string) (string, time.Time, error) {
	return "", time.Now(), storage.ErrExpiredToken
}

type paymentFixture struct {
	svc       *PaymentService
	payments  *mockPaymentRepo
	transport *failingTransport
	activity  *mockActivityRepo
	publisher *events.RecordingPublisher
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	renderer, err := view.New("Instituto Central")
	require.NoError(t, err)
	f := &paymentFixture{
		payments:  &mockPaymentRepo{payments: map[string]*models.Payment{}},
		transport: &failingTransport{},
		activity:  &mockActivityRepo{},
		publisher: &events.RecordingPublisher{},
	}
	concepts := &mockConceptRepo{concepts: map[string]*models.PaymentConcept{
		tuitionConcept: {ID: tuitionConcept, Name: "Matrícula", Amount: decimal.RequireFromString("150"), Currency: "USD", Active: true},
	}}
	students := newMockStudentRepo(&models.Student{ID: studentAna, FullName: "Ana Pérez", NationalID: "0912", Email: "Ana@Example.com"})
	f.svc = NewPaymentService(PaymentServiceDeps{
		Payments:  f.payments,
		Concepts:  concepts,
		Students:  students,
		Invoices:  export.NewInvoiceRenderer(export.Issuer{Name: "Instituto Central"}),
		Signer:    storage.NewSignedURLSigner("invoice-secret", time.Hour),
		Notifier:  NewNotificationService(f.transport, renderer, nil, zap.NewNop()),
		Activity:  NewActivityService(f.activity, nil),
		Publisher: f.publisher,
		BaseURL:   "https://panel.example.com/",
	})
	return f
}

func TestCreatePaymentSnapshotsStudentAndConcept(t *testing.T) {
	f := newPaymentFixture(t)
	studentID := studentAna
	conceptID := tuitionConcept

	res, err := f.svc.Create(context.Background(), dto.CreatePaymentRequest{
		StudentID:     &studentID,
		ConceptID:     &conceptID,
		TransactionID: " TX-1 ",
		SendInvoice:   true,
	}, "u1")
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, "Ana Pérez", p.StudentName)
	assert.Equal(t, "ana@example.com", p.StudentEmail)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "Matrícula", p.Description)
	assert.Equal(t, "TX-1", p.TransactionID)
	assert.True(t, strings.HasPrefix(res.InvoiceURL, "https://panel.example.com/invoice/"))

	sent := f.transport.messages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "comprobante.pdf", sent[0].Attachments[0].Filename)
	assert.Equal(t, []string{models.ActivityPaymentRecorded}, f.activity.actions())
	require.Len(t, f.publisher.Events(), 1)
	assert.Equal(t, events.PaymentRecorded, f.publisher.Events()[0].Type)
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newPaymentFixture(t)
	missing := "5d2c1b0a-9e8f-4a7b-8c6d-5e4f3a2b1c0d"

	_, err := f.svc.Create(context.Background(), dto.CreatePaymentRequest{StudentName: "Ana"}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Create(context.Background(), dto.CreatePaymentRequest{Amount: decimal.NewNullDecimal(decimal.NewFromInt(10))}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Create(context.Background(), dto.CreatePaymentRequest{Amount: decimal.NewNullDecimal(decimal.NewFromInt(10)), StudentID: &missing}, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Create(context.Background(), dto.CreatePaymentRequest{Amount: decimal.NewNullDecimal(decimal.NewFromInt(10)), StudentName: "Ana", ConceptID: &missing}, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.payments.payments)
}

func TestCreatePaymentWithoutInvoiceSendsNothing(t *testing.T) {
	f := newPaymentFixture(t)

	res, err := f.svc.Create(context.Background(), dto.CreatePaymentRequest{
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString("20.5")),
		Currency:    "eur",
		StudentName: "Visitante",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Payment.Currency)
	assert.Nil(t, res.Payment.CreatedBy)
	assert.Empty(t, f.transport.messages())
}

func TestInvoiceByTokenRoundTrip(t *testing.T) {
	f := newPaymentFixture(t)
	res, err := f.svc.Create(context.Background(), dto.CreatePaymentRequest{
		Amount:      decimal.NewNullDecimal(decimal.NewFromInt(75)),
		StudentName: "Luis",
	}, "")
	require.NoError(t, err)

	token := strings.TrimPrefix(res.InvoiceURL, "https://panel.example.com/invoice/")
	file, err := f.svc.InvoiceByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "REC-20260302-9A8B7C6D.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))

	_, err = f.svc.InvoiceByToken(context.Background(), token+"x")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestInvoiceByTokenExpired(t *testing.T) {
	svc := NewPaymentService(PaymentServiceDeps{Signer: expiredSigner{}})
	_, err := svc.InvoiceByToken(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, "invoice link expired", appErrors.FromError(err).Message)
}

func TestInvoiceUnknownPayment(t *testing.T) {
	f := newPaymentFixture(t)
	_, err := f.svc.Invoice(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCreateConcept(t *testing.T) {
	f := newPaymentFixture(t)

	concept, err := f.svc.CreateConcept(context.Background(), dto.CreatePaymentConceptRequest{Name: " Certificado ", Amount: decimal.NewFromInt(25), Currency: "usd"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Certificado", concept.Name)
	assert.Equal(t, "USD", concept.Currency)
	assert.True(t, concept.Active)

	_, err = f.svc.CreateConcept(context.Background(), dto.CreatePaymentConceptRequest{Name: "Multa", Amount: decimal.NewFromInt(-1), Currency: "USD"}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	concepts, err := f.svc.Concepts(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, concepts, 2)
}
