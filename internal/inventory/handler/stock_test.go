package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/inventory/handler"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func postUpdateStock(t *testing.T, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	h := handler.NewStockHandler(nil, logger.New("test", "test"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/update-stock", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.UpdateStock(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestUpdateStockValidation(t *testing.T) {
	t.Run("rejects unknown item type", func(t *testing.T) {
		rec, env := postUpdateStock(t, `{"type":"equipment","id":"x","quantity":5,"operation":"add"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "Type")
	})

	t.Run("rejects unknown operation", func(t *testing.T) {
		rec, env := postUpdateStock(t, `{"type":"medication","id":"x","quantity":5,"operation":"set"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "Operation")
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		rec, env := postUpdateStock(t, `{"type":"vaccine","id":"x","quantity":-2,"operation":"subtract"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "Quantity")
	})

	t.Run("rejects missing item id", func(t *testing.T) {
		rec, env := postUpdateStock(t, `{"type":"medication","quantity":5,"operation":"add"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "ItemID")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec, env := postUpdateStock(t, `{"type":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.Success)
	})
}
