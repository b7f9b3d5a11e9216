package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

func usableBatch(id string, remaining int, expiry time.Time) *repository.Batch {
	return &repository.Batch{
		ID:                id,
		QuantityReceived:  remaining,
		QuantityRemaining: remaining,
		ExpiryDate:        expiry,
		Status:            repository.BatchStatusActive,
	}
}

func TestPlanConsumption(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	soonest := usableBatch("a", 10, now.AddDate(0, 3, 0))
	later := usableBatch("b", 10, now.AddDate(1, 0, 0))

	t.Run("spans batches soonest expiring first", func(t *testing.T) {
		steps, err := service.PlanConsumption([]*repository.Batch{soonest, later}, 15)
		require.NoError(t, err)
		require.Len(t, steps, 2)

		assert.Equal(t, "a", steps[0].Batch.ID)
		assert.Equal(t, 10, steps[0].Take)
		assert.Equal(t, "b", steps[1].Batch.ID)
		assert.Equal(t, 5, steps[1].Take)
	})

	t.Run("single batch covers the request", func(t *testing.T) {
		steps, err := service.PlanConsumption([]*repository.Batch{soonest, later}, 7)
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, "a", steps[0].Batch.ID)
		assert.Equal(t, 7, steps[0].Take)
	})

	t.Run("exact drain", func(t *testing.T) {
		steps, err := service.PlanConsumption([]*repository.Batch{soonest, later}, 20)
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, 10, steps[0].Take)
		assert.Equal(t, 10, steps[1].Take)
	})

	t.Run("insufficient stock returns no steps", func(t *testing.T) {
		steps, err := service.PlanConsumption([]*repository.Batch{usableBatch("a", 5, now)}, 10)
		assert.Nil(t, steps)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "5", appErr.Details["available"])
		assert.Equal(t, "10", appErr.Details["requested"])
	})

	t.Run("no usable batches", func(t *testing.T) {
		_, err := service.PlanConsumption(nil, 1)
		assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		_, err := service.PlanConsumption([]*repository.Batch{soonest}, 0)
		assert.True(t, errors.Is(err, errors.ErrValidation))

		_, err = service.PlanConsumption([]*repository.Batch{soonest}, -3)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("skips drained batches in the span", func(t *testing.T) {
		drained := usableBatch("empty", 0, now.AddDate(0, 1, 0))
		steps, err := service.PlanConsumption([]*repository.Batch{drained, later}, 4)
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, "b", steps[0].Batch.ID)
	})
}
