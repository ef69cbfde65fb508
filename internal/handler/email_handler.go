package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type bulkEmailService interface {
	Send(ctx context.Context, req dto.BulkEmailRequest, actorID string) (*dto.BulkEmailResult, error)
}

// EmailHandler sends bulk emails to students.
type EmailHandler struct {
	service bulkEmailService
}

// NewEmailHandler constructs the handler.
func NewEmailHandler(svc bulkEmailService) *EmailHandler {
	return &EmailHandler{service: svc}
}

// Bulk godoc
// @Summary Send bulk email
// @Description Sends one message to every student matching the filter plus explicit recipients
// @Tags Emails
// @Accept json
// @Produce json
// @Param X-Panel-Nonce header string true "Request token"
// @Param payload body dto.BulkEmailRequest true "Message and recipients"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /emails/bulk [post]
func (h *EmailHandler) Bulk(c *gin.Context) {
	var req dto.BulkEmailRequest
	if err := bindPayload(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Send(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
