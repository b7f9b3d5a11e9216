package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/brgycare/brgycare-backend/pkg/testutil"
)

func itemRows() *sqlmock.Rows {
	return testutil.MockRows(
		"id", "name", "category", "dosage_form", "strength", "manufacturer",
		"unit_cost", "minimum_stock", "status", "legacy_batch_number",
		"legacy_expiry_date", "legacy_quantity", "is_active", "created_at", "updated_at",
	)
}

func TestItemRepositoryGetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("selects the family's legacy stock column", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := repository.NewItemRepository(mockDB.DB)

		rows := itemRows().
			AddRow("item-1", "Paracetamol 500mg", "Analgesic", nil, nil, nil,
				"1.50", 50, "Available", nil, nil, 120, true, now, now)

		mockDB.Mock.ExpectQuery(`units_in_stock AS legacy_quantity.*FROM medications WHERE id = \$1`).
			WithArgs("item-1").
			WillReturnRows(rows)

		item, err := repo.GetByID(ctx, repository.Medications, "item-1")
		require.NoError(t, err)
		assert.Equal(t, "Paracetamol 500mg", item.Name)
		assert.Equal(t, 120, item.LegacyQuantity)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("vaccines read doses_in_stock", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := repository.NewItemRepository(mockDB.DB)

		rows := itemRows().
			AddRow("item-2", "BCG Vaccine", "Immunization", nil, nil, nil,
				"0", 20, "Low Stock", nil, nil, 15, true, now, now)

		mockDB.Mock.ExpectQuery(`doses_in_stock AS legacy_quantity.*FROM vaccines WHERE id = \$1`).
			WithArgs("item-2").
			WillReturnRows(rows)

		item, err := repo.GetByID(ctx, repository.Vaccines, "item-2")
		require.NoError(t, err)
		assert.Equal(t, 15, item.LegacyQuantity)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := repository.NewItemRepository(mockDB.DB)

		mockDB.Mock.ExpectQuery(`FROM medications WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(itemRows())

		_, err := repo.GetByID(ctx, repository.Medications, "missing")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestItemRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("writes only when the status actually changes", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := repository.NewItemRepository(mockDB.DB)

		mockDB.Mock.ExpectExec(`UPDATE medications SET status = \$2.*status <> \$2`).
			WithArgs("item-1", "Low Stock", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, repository.Medications, "item-1", "Low Stock")
		assert.NoError(t, err)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("unchanged status is not an error", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		repo := repository.NewItemRepository(mockDB.DB)

		mockDB.Mock.ExpectExec(`UPDATE medications SET status = \$2`).
			WithArgs("item-1", "Available", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, repository.Medications, "item-1", "Available")
		assert.NoError(t, err)
	})
}

func TestItemRepositoryListWithLegacyStock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewItemRepository(mockDB.DB)

	rows := itemRows().
		AddRow("item-1", "Amoxicillin 250mg", "Antibiotic", nil, nil, nil,
			"3.25", 50, "Available", nil, nil, 40, true, now, now)

	mockDB.Mock.ExpectQuery(`units_in_stock > 0 ORDER BY name`).
		WillReturnRows(rows)

	items, err := repo.ListWithLegacyStock(ctx, repository.Medications)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 40, items[0].LegacyQuantity)

	mockDB.ExpectationsWereMet(t)
}
