package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrNotFound, "student not found")
	wrapped := fmt.Errorf("load: %w", typed)

	got := FromError(wrapped)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student not found", got.Message)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.True(t, errors.Is(got, sql.ErrConnDone))
}

func TestClonesMatchTemplateByCode(t *testing.T) {
	clone := Clone(ErrAlreadyMatriculated, "enrollment 2 already matriculated")
	assert.True(t, errors.Is(clone, ErrAlreadyMatriculated))
	assert.False(t, errors.Is(clone, ErrConflict))
	assert.Nil(t, FromError(nil))
}
