package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/testutil"
)

func newMockService(t *testing.T, policy service.Policy) (*service.InventoryService, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	svc := service.NewInventoryService(
		mockDB.DB,
		repository.NewItemRepository(mockDB.DB),
		repository.NewBatchRepository(mockDB.DB),
		repository.NewMovementRepository(mockDB.DB),
		repository.NewAlertRepository(mockDB.DB),
		nil,
		policy,
		logger.New("test", "test"),
	)
	return svc, mockDB
}

func itemMockRows() *sqlmock.Rows {
	return testutil.MockRows(
		"id", "name", "category", "dosage_form", "strength", "manufacturer",
		"unit_cost", "minimum_stock", "status", "legacy_batch_number",
		"legacy_expiry_date", "legacy_quantity", "is_active", "created_at", "updated_at",
	)
}

func batchMockRows() *sqlmock.Rows {
	return testutil.MockRows(
		"id", "item_id", "batch_number", "quantity_received", "quantity_remaining",
		"expiry_date", "received_date", "unit_cost", "supplier", "status", "notes",
		"created_at", "updated_at",
	)
}

// An item whose stock still lives in the legacy flat columns gets that
// stock realized as a batch before the first subtraction, so the
// consumption succeeds instead of reporting zero available.
func TestConsumeFromItemRealizesLegacyStock(t *testing.T) {
	ctx := context.Background()
	svc, mockDB := newMockService(t, service.Policy{})
	defer mockDB.Close()

	now := time.Now().UTC()
	future := now.AddDate(0, 6, 0)

	mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
		WithArgs("item-1").
		WillReturnRows(itemMockRows().
			AddRow("item-1", "Paracetamol 500mg", "Analgesic", nil, nil, nil, "2.00", 10, "Available", nil, nil, 100, true, now, now))

	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM medication_batches`).
		WithArgs("item-1").
		WillReturnRows(testutil.MockRows("count").AddRow(0))
	mockDB.Mock.ExpectExec(`INSERT INTO medication_batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery(`expiry_date >= \$2`).
		WithArgs("item-1", sqlmock.AnyArg()).
		WillReturnRows(batchMockRows().
			AddRow("legacy-1", "item-1", "MED-item-1-1", 100, 100, future, now, "2.00", nil, "active", nil, now, now))
	mockDB.Mock.ExpectExec(`UPDATE medication_batches SET`).
		WithArgs("legacy-1", 40, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectCommit()

	mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
		WithArgs("item-1").
		WillReturnRows(itemMockRows().
			AddRow("item-1", "Paracetamol 500mg", "Analgesic", nil, nil, nil, "2.00", 10, "Available", nil, nil, 100, true, now, now))
	mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
		WithArgs("item-1").
		WillReturnRows(batchMockRows().
			AddRow("legacy-1", "item-1", "MED-item-1-1", 100, 60, future, now, "2.00", nil, "active", nil, now, now))
	mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
		WithArgs("item-1").
		WillReturnRows(batchMockRows().
			AddRow("legacy-1", "item-1", "MED-item-1-1", 100, 60, future, now, "2.00", nil, "active", nil, now, now))

	summary, err := svc.ConsumeFromItem(ctx, repository.Medications, "item-1", 40, "opd dispensing")
	require.NoError(t, err)
	assert.Equal(t, 60, summary.TotalStock)
	assert.Equal(t, "Available", summary.Status)
	assert.Equal(t, "medication", summary.Family)

	mockDB.ExpectationsWereMet(t)
}

// An untargeted addition on a batchless item realizes the legacy stock
// first, so the reported total is legacy plus delta rather than the delta
// alone.
func TestAddStockRealizesLegacyStock(t *testing.T) {
	ctx := context.Background()
	svc, mockDB := newMockService(t, service.Policy{})
	defer mockDB.Close()

	now := time.Now().UTC()
	future := now.AddDate(0, 6, 0)

	mockDB.Mock.ExpectQuery(`FROM vaccines WHERE id = \$1`).
		WithArgs("item-2").
		WillReturnRows(itemMockRows().
			AddRow("item-2", "BCG Vaccine", "Immunization", nil, nil, nil, "5.00", 10, "Available", nil, nil, 100, true, now, now))

	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vaccine_batches`).
		WithArgs("item-2").
		WillReturnRows(testutil.MockRows("count").AddRow(0))
	mockDB.Mock.ExpectExec(`INSERT INTO vaccine_batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery(`ORDER BY received_date DESC`).
		WithArgs("item-2").
		WillReturnRows(batchMockRows().
			AddRow("legacy-2", "item-2", "VAX-item-2-1", 100, 100, future, now, "5.00", nil, "active", nil, now, now))
	mockDB.Mock.ExpectExec(`UPDATE vaccine_batches SET`).
		WithArgs("legacy-2", 40, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO stock_movements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectCommit()

	mockDB.Mock.ExpectQuery(`FROM vaccines WHERE id = \$1`).
		WithArgs("item-2").
		WillReturnRows(itemMockRows().
			AddRow("item-2", "BCG Vaccine", "Immunization", nil, nil, nil, "5.00", 10, "Available", nil, nil, 100, true, now, now))
	mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
		WithArgs("item-2").
		WillReturnRows(batchMockRows().
			AddRow("legacy-2", "item-2", "VAX-item-2-1", 140, 140, future, now, "5.00", nil, "active", nil, now, now))
	mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
		WithArgs("item-2").
		WillReturnRows(batchMockRows().
			AddRow("legacy-2", "item-2", "VAX-item-2-1", 140, 140, future, now, "5.00", nil, "active", nil, now, now))

	summary, err := svc.AddStock(ctx, repository.Vaccines, "item-2", 40, "delivery correction")
	require.NoError(t, err)
	assert.Equal(t, 140, summary.TotalStock)
	assert.Equal(t, "vaccine", summary.Family)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateItemAppliesConfiguredMinimumStock(t *testing.T) {
	ctx := context.Background()
	svc, mockDB := newMockService(t, service.Policy{DefaultMinimumStock: 25})
	defer mockDB.Close()

	mockDB.Mock.ExpectExec(`INSERT INTO medications`).
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 25,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item := &repository.Item{Name: "Amoxicillin 250mg", Category: "Antibiotic"}
	require.NoError(t, svc.CreateItem(ctx, repository.Medications, item))
	assert.Equal(t, 25, item.MinimumStock)

	mockDB.ExpectationsWereMet(t)
}

func TestReconcileRaisesExpiringAlert(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("batch inside the window raises an expiring alert", func(t *testing.T) {
		svc, mockDB := newMockService(t, service.Policy{})
		defer mockDB.Close()

		mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
			WithArgs("item-3").
			WillReturnRows(itemMockRows().
				AddRow("item-3", "Cefalexin 500mg", "Antibiotic", nil, nil, nil, "3.00", 10, "Available", nil, nil, 0, true, now, now))
		mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
			WithArgs("item-3").
			WillReturnRows(batchMockRows().
				AddRow("b1", "item-3", "MED-010", 100, 100, now.AddDate(0, 0, 10), now, "3.00", nil, "active", nil, now, now))
		mockDB.Mock.ExpectQuery(`FROM inventory_alerts`).
			WithArgs("medication", "item-3", "expiring").
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.Mock.ExpectExec(`INSERT INTO inventory_alerts`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		status, err := svc.Reconcile(ctx, repository.Medications, "item-3")
		require.NoError(t, err)
		assert.Equal(t, service.StatusAvailable, status)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("shorter configured window skips the alert", func(t *testing.T) {
		svc, mockDB := newMockService(t, service.Policy{ExpiryWarningDays: 7})
		defer mockDB.Close()

		mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
			WithArgs("item-3").
			WillReturnRows(itemMockRows().
				AddRow("item-3", "Cefalexin 500mg", "Antibiotic", nil, nil, nil, "3.00", 10, "Available", nil, nil, 0, true, now, now))
		mockDB.Mock.ExpectQuery(`ORDER BY expiry_date ASC`).
			WithArgs("item-3").
			WillReturnRows(batchMockRows().
				AddRow("b1", "item-3", "MED-010", 100, 100, now.AddDate(0, 0, 10), now, "3.00", nil, "active", nil, now, now))

		status, err := svc.Reconcile(ctx, repository.Medications, "item-3")
		require.NoError(t, err)
		assert.Equal(t, service.StatusAvailable, status)

		mockDB.ExpectationsWereMet(t)
	})
}
