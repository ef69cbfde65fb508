package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type activityService interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, *response.Pagination, error)
}

// ActivityHandler exposes the activity log.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(svc activityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary Activity log
// @Tags Activity
// @Produce json
// @Param action query string false "Action"
// @Param user_id query string false "Actor"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	entries, pagination, err := h.service.List(c.Request.Context(), models.ActivityFilter{
		Action:   strings.TrimSpace(c.Query("action")),
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
