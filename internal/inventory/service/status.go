package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
)

// Item lifecycle statuses
const (
	StatusAvailable  = "Available"
	StatusLowStock   = "Low Stock"
	StatusOutOfStock = "Out of Stock"
	StatusExpired    = "Expired"
)

// ExpiryWarningDays is the default window counted as "expiring soon";
// deployments override it through the inventory policy configuration.
const ExpiryWarningDays = 30

// DeriveStatus computes an item's lifecycle status from its stock totals.
// The rules are evaluated in fixed priority order and the first match wins:
// a zero-stock item is out of stock even if its last known expiry has
// passed, and an item holding stock past expiry is flagged expired rather
// than reported available. A nil nextExpiry means no expiry is known.
func DeriveStatus(totalStock, minimumStock int, nextExpiry *time.Time, now time.Time) string {
	switch {
	case totalStock == 0:
		return StatusOutOfStock
	case totalStock <= minimumStock:
		return StatusLowStock
	case nextExpiry != nil && nextExpiry.Before(now):
		return StatusExpired
	default:
		return StatusAvailable
	}
}

// Totals holds the virtual fields derived from an item's batch collection
type Totals struct {
	TotalStock           int
	NextExpiryDate       *time.Time
	BatchCount           int
	ExpiringBatchesCount int
	AverageUnitCost      decimal.Decimal
	hasQualifyingBatches bool
}

// ComputeTotals derives the virtual stock fields from the loaded batch
// collection. Only batches whose stored status is active contribute;
// depleted and expired batches never count toward stock. An active batch
// whose expiry has passed still contributes, which is what lets DeriveStatus
// surface the Expired state until the batch is re-statused. warningDays
// sizes the "expiring soon" window; a non-positive value falls back to
// ExpiryWarningDays.
func ComputeTotals(batches []*repository.Batch, now time.Time, warningDays int) Totals {
	var t Totals

	if warningDays <= 0 {
		warningDays = ExpiryWarningDays
	}
	warningCutoff := now.AddDate(0, 0, warningDays)
	weightedCost := decimal.Zero

	for _, b := range batches {
		if b.Status == repository.BatchStatusActive {
			t.BatchCount++
		}
		if !b.HasStock() {
			continue
		}

		t.TotalStock += b.QuantityRemaining

		expiry := b.ExpiryDate
		if t.NextExpiryDate == nil || expiry.Before(*t.NextExpiryDate) {
			e := expiry
			t.NextExpiryDate = &e
		}
		if !expiry.Before(now) && !expiry.After(warningCutoff) {
			t.ExpiringBatchesCount++
		}

		weightedCost = weightedCost.Add(b.UnitCost.Mul(decimal.NewFromInt(int64(b.QuantityRemaining))))
		t.hasQualifyingBatches = true
	}

	if t.hasQualifyingBatches && t.TotalStock > 0 {
		t.AverageUnitCost = weightedCost.Div(decimal.NewFromInt(int64(t.TotalStock)))
	}

	return t
}

// AverageUnitCostOrDefault returns the quantity-weighted average unit cost,
// falling back to the item's own default when no qualifying batches exist.
func (t Totals) AverageUnitCostOrDefault(itemCost decimal.Decimal) decimal.Decimal {
	if !t.hasQualifyingBatches || t.TotalStock == 0 {
		return itemCost
	}
	return t.AverageUnitCost
}
