package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

const dateLayout = "2006-01-02"

// pageParams reads page and limit; the service layer clamps them.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

// dateParam parses an optional YYYY-MM-DD query value.
func dateParam(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid date for "+key+", expected YYYY-MM-DD")
	}
	return &t, nil
}

// idParam returns the :id path segment. Records are keyed by UUID, so anything else cannot exist.
func idParam(c *gin.Context, resource string) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return id, nil
}

// bindPayload binds JSON or form bodies according to Content-Type.
func bindPayload(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBind(dest); err != nil {
		return invalidPayload(err)
	}
	return nil
}

func boolParam(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
