package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/middleware"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type exportService interface {
	XLSX(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error)
	PDF(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error)
	LMSCSV(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error)
}

type exportFunc func(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error)

// ExportHandler streams enrollment reports as downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// XLSX godoc
// @Summary Export enrollments as spreadsheet
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param course query string false "Course name"
// @Param status query string false "Inscrito or Matriculado"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param _nonce query string true "Request token"
// @Success 200 {file} file
// @Router /exports/enrollments.xlsx [get]
func (h *ExportHandler) XLSX(c *gin.Context) {
	h.stream(c, h.service.XLSX)
}

// PDF godoc
// @Summary Export enrollments as PDF
// @Tags Exports
// @Produce application/pdf
// @Param course query string false "Course name"
// @Param status query string false "Inscrito or Matriculado"
// @Param _nonce query string true "Request token"
// @Success 200 {file} file
// @Router /exports/enrollments.pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	h.stream(c, h.service.PDF)
}

// LMS godoc
// @Summary Export matriculated students for LMS import
// @Tags Exports
// @Produce text/csv
// @Param course query string false "Course name"
// @Param _nonce query string true "Request token"
// @Success 200 {file} file
// @Router /exports/lms.csv [get]
func (h *ExportHandler) LMS(c *gin.Context) {
	h.stream(c, h.service.LMSCSV)
}

func (h *ExportHandler) stream(c *gin.Context, run exportFunc) {
	var filter dto.ExportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export filter"))
		return
	}
	file, err := run(c.Request.Context(), filter, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
