package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type paymentService interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *response.Pagination, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, req dto.CreatePaymentRequest, actorID string) (*dto.PaymentResponse, error)
	InvoiceLink(paymentID string) (string, error)
	Invoice(ctx context.Context, id string) (*dto.ExportFile, error)
	InvoiceByToken(ctx context.Context, token string) (*dto.ExportFile, error)
	Concepts(ctx context.Context, activeOnly bool) ([]models.PaymentConcept, error)
	CreateConcept(ctx context.Context, req dto.CreatePaymentConceptRequest, actorID string) (*models.PaymentConcept, error)
}

// PaymentHandler records payments and serves invoices.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param search query string false "Student name, email or transaction"
// @Param student_id query string false "Student ID"
// @Param currency query string false "ISO currency"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter, err := paymentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := idParam(c, "payment")
	if err != nil {
		response.Error(c, err)
		return
	}
	payment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.service.InvoiceLink(payment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PaymentResponse{Payment: payment, InvoiceURL: link}, nil)
}

// Create godoc
// @Summary Record payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.CreatePaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.service.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Invoice godoc
// @Summary Printable invoice
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} file
// @Router /payments/{id}/invoice [get]
func (h *PaymentHandler) Invoice(c *gin.Context) {
	id, err := idParam(c, "payment")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Invoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Inline(c, file.Filename, file.ContentType, file.Content)
}

// PublicInvoice godoc
// @Summary Invoice by signed link
// @Description Serves the invoice addressed by a signed, expiring link. No session required.
// @Tags Payments
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /invoice/{token} [get]
func (h *PaymentHandler) PublicInvoice(c *gin.Context) {
	file, err := h.service.InvoiceByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Inline(c, file.Filename, file.ContentType, file.Content)
}

// Concepts godoc
// @Summary List payment concepts
// @Tags Payments
// @Produce json
// @Param active query bool false "Only active concepts"
// @Success 200 {object} response.Envelope
// @Router /payment-concepts [get]
func (h *PaymentHandler) Concepts(c *gin.Context) {
	activeOnly := false
	if v := boolParam(c, "active"); v != nil {
		activeOnly = *v
	}
	concepts, err := h.service.Concepts(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concepts, nil)
}

// CreateConcept godoc
// @Summary Create payment concept
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.CreatePaymentConceptRequest true "Concept"
// @Success 201 {object} response.Envelope
// @Router /payment-concepts [post]
func (h *PaymentHandler) CreateConcept(c *gin.Context) {
	var req dto.CreatePaymentConceptRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	concept, err := h.service.CreateConcept(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, concept)
}

func paymentFilter(c *gin.Context) (models.PaymentFilter, error) {
	page, size := pageParams(c)
	filter := models.PaymentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		StudentID: strings.TrimSpace(c.Query("student_id")),
		Currency:  strings.ToUpper(strings.TrimSpace(c.Query("currency"))),
		Page:      page,
		PageSize:  size,
	}
	var err error
	if filter.From, err = dateParam(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateParam(c, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}
