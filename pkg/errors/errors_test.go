package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrHasDependents, "course has enrollments"))
	appErr := FromError(wrapped)
	assert.Equal(t, "HAS_DEPENDENTS", appErr.Code)
	assert.Equal(t, "course has enrollments", appErr.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Clone(ErrAlreadyEnrolled, "custom")
	assert.True(t, errors.Is(err, ErrAlreadyEnrolled))
	assert.False(t, errors.Is(err, ErrCourseInactive))
}

func TestValidationCode(t *testing.T) {
	dup := Validation(map[string]string{"title": "exists"}, true)
	assert.Equal(t, "DUPLICATE", dup.Code)
	assert.Equal(t, http.StatusBadRequest, dup.Status)

	mixed := Validation(map[string]string{"title": "exists", "price": "negative"}, false)
	assert.Equal(t, "VALIDATION_ERROR", mixed.Code)
	assert.Len(t, mixed.Fields, 2)
	assert.Nil(t, ErrValidation.Fields)
}
