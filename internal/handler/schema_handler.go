package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/schema"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

// SchemaHandler publishes record types and the caller's capabilities.
type SchemaHandler struct {
	registry *schema.Registry
}

// NewSchemaHandler constructs the handler.
func NewSchemaHandler(registry *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: registry}
}

type schemaResponse struct {
	Types        []schema.RecordType `json:"types"`
	Capabilities []schema.Capability `json:"capabilities"`
}

// Describe godoc
// @Summary Record types and capabilities
// @Tags Schema
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schema [get]
func (h *SchemaHandler) Describe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, schemaResponse{
		Types:        h.registry.Types(),
		Capabilities: h.registry.Capabilities(user.Role),
	}, nil)
}
