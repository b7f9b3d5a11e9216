package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/inventory/handler"
	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/testutil"
)

func newBatchTestService(t *testing.T) (*service.InventoryService, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	svc := service.NewInventoryService(
		mockDB.DB,
		repository.NewItemRepository(mockDB.DB),
		repository.NewBatchRepository(mockDB.DB),
		repository.NewMovementRepository(mockDB.DB),
		repository.NewAlertRepository(mockDB.DB),
		nil,
		service.Policy{},
		logger.New("test", "test"),
	)
	return svc, mockDB
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateBatchValidation(t *testing.T) {
	h := handler.NewBatchHandler(repository.Medications, nil, logger.New("test", "test"))

	t.Run("rejects missing batch number", func(t *testing.T) {
		body := `{"quantity_received":10,"expiry_date":"2030-01-01T00:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/medications/item-1/batches", strings.NewReader(body))
		req = withURLParam(req, "id", "item-1")
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "BatchNumber")
	})

	t.Run("rejects non positive quantity received", func(t *testing.T) {
		body := `{"batch_number":"MED-001","quantity_received":-5,"expiry_date":"2030-01-01T00:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/medications/item-1/batches", strings.NewReader(body))
		req = withURLParam(req, "id", "item-1")
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "QuantityReceived")
	})
}

// The batch update body cannot rebind the batch to a different item; the
// stored item id wins and reconciliation runs against it.
func TestUpdateBatchKeepsItemBinding(t *testing.T) {
	svc, mockDB := newBatchTestService(t)
	defer mockDB.Close()

	h := handler.NewBatchHandler(repository.Medications, svc, logger.New("test", "test"))

	now := time.Now().UTC()
	future := now.AddDate(0, 6, 0)

	batchRow := func(remaining int) *sqlmock.Rows {
		return testutil.MockRows(
			"id", "item_id", "batch_number", "quantity_received", "quantity_remaining",
			"expiry_date", "received_date", "unit_cost", "supplier", "status", "notes",
			"created_at", "updated_at",
		).AddRow("batch-1", "item-1", "MED-001", 100, remaining, future, now, "2.00", nil, "active", nil, now, now)
	}

	mockDB.Mock.ExpectQuery(`FROM medication_batches WHERE id = \$1`).
		WithArgs("batch-1").
		WillReturnRows(batchRow(80))
	mockDB.Mock.ExpectExec(`UPDATE medication_batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
		WithArgs("item-1").
		WillReturnRows(testutil.MockRows(
			"id", "name", "category", "dosage_form", "strength", "manufacturer",
			"unit_cost", "minimum_stock", "status", "legacy_batch_number",
			"legacy_expiry_date", "legacy_quantity", "is_active", "created_at", "updated_at",
		).AddRow("item-1", "Paracetamol 500mg", "Analgesic", nil, nil, nil, "2.00", 10, "Available", nil, nil, 0, true, now, now))
	mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
		WithArgs("item-1").
		WillReturnRows(batchRow(60))

	body := `{"item_id":"some-other-item","quantity_remaining":60}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory/medications/batches/batch-1", strings.NewReader(body))
	req = withURLParam(req, "id", "batch-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ItemID            string `json:"item_id"`
			QuantityRemaining int    `json:"quantity_remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "item-1", resp.Data.ItemID)
	assert.Equal(t, 60, resp.Data.QuantityRemaining)

	mockDB.ExpectationsWereMet(t)
}
