package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	err := errors.NotFound("medication")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "medication not found", err.Message)
}

func TestInsufficientStock(t *testing.T) {
	err := errors.InsufficientStock(5, 10)

	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.Equal(t, "INSUFFICIENT_STOCK", err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, "5", err.Details["available"])
	assert.Equal(t, "10", err.Details["requested"])
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("driver: bad connection")
	err := errors.Wrap(cause, "INTERNAL_ERROR", "failed to consume stock", http.StatusInternalServerError)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed to consume stock")
	assert.Contains(t, err.Error(), "bad connection")
}

func TestValidation_Details(t *testing.T) {
	err := errors.Validation(map[string]string{"quantity_received": "must be a positive integer"})

	var appErr *errors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "must be a positive integer", appErr.Details["quantity_received"])
}
