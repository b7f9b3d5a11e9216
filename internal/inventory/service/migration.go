package service

import (
	"context"
	"fmt"
	"time"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// Migration result statuses
const (
	MigrationMigrated = "migrated"
	MigrationSkipped  = "skipped"
	MigrationFailed   = "failed"
)

type migrationItems interface {
	ListWithLegacyStock(ctx context.Context, f repository.Family) ([]*repository.Item, error)
}

type migrationBatches interface {
	CountByItem(ctx context.Context, f repository.Family, itemID string) (int, error)
	Create(ctx context.Context, f repository.Family, batch *repository.Batch) error
}

type migrationMovements interface {
	Create(ctx context.Context, m *repository.StockMovement) error
}

// Migrator converts legacy flat stock fields into batch records. The
// run is idempotent: items that already have at least one batch are
// skipped, so re-running after a partial failure only picks up the
// remainder.
type Migrator struct {
	items     migrationItems
	batches   migrationBatches
	movements migrationMovements
	logger    *logger.Logger
	now       func() time.Time
}

// NewMigrator creates a migrator over the given repositories. A nil
// movements recorder skips the audit rows.
func NewMigrator(items migrationItems, batches migrationBatches, movements migrationMovements, log *logger.Logger) *Migrator {
	return &Migrator{
		items:     items,
		batches:   batches,
		movements: movements,
		logger:    log,
		now:       time.Now,
	}
}

// MigrationResult records the outcome for one item
type MigrationResult struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Quantity    int    `json:"quantity,omitempty"`
	BatchNumber string `json:"batch_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

// MigrationReport summarizes a migration run
type MigrationReport struct {
	Family   string            `json:"family"`
	DryRun   bool              `json:"dry_run"`
	Migrated int               `json:"migrated"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Results  []MigrationResult `json:"results"`
}

// Migrate synthesizes one batch per item carrying legacy stock. Unless
// execute is set the run only reports what it would do. Failures on
// individual items are collected in the report rather than aborting
// the run.
func (m *Migrator) Migrate(ctx context.Context, f repository.Family, execute bool) (*MigrationReport, error) {
	items, err := m.items.ListWithLegacyStock(ctx, f)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{
		Family: f.Kind,
		DryRun: !execute,
	}

	now := m.now().UTC()
	for _, item := range items {
		result := MigrationResult{ItemID: item.ID, Name: item.Name}

		count, err := m.batches.CountByItem(ctx, f, item.ID)
		if err != nil {
			result.Status = MigrationFailed
			result.Error = err.Error()
			report.Failed++
			report.Results = append(report.Results, result)
			continue
		}
		if count > 0 {
			result.Status = MigrationSkipped
			report.Skipped++
			report.Results = append(report.Results, result)
			continue
		}

		batch := synthesizeLegacyBatch(f, item, now)
		result.Quantity = batch.QuantityReceived
		result.BatchNumber = batch.BatchNumber

		if execute {
			if err := m.batches.Create(ctx, f, batch); err != nil {
				result.Status = MigrationFailed
				result.Error = err.Error()
				report.Failed++
				report.Results = append(report.Results, result)
				continue
			}

			if m.movements != nil {
				movement := &repository.StockMovement{
					Family:       f.Kind,
					ItemID:       item.ID,
					BatchID:      &batch.ID,
					MovementType: repository.MovementMigration,
					Quantity:     batch.QuantityReceived,
					NewRemaining: batch.QuantityRemaining,
					PerformedBy:  "migration",
				}
				if err := m.movements.Create(ctx, movement); err != nil {
					m.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to record migration movement")
				}
			}
		}

		result.Status = MigrationMigrated
		report.Migrated++
		report.Results = append(report.Results, result)

		m.logger.Info().
			Str("family", f.Kind).
			Str("item_id", item.ID).
			Str("batch_number", batch.BatchNumber).
			Int("quantity", batch.QuantityReceived).
			Bool("dry_run", !execute).
			Msg("legacy stock migrated to batch")
	}

	return report, nil
}

// synthesizeLegacyBatch builds the batch record for an item's legacy
// stock. The legacy batch number and expiry date are carried over when
// present; otherwise a generated number and a far-future placeholder
// expiry are used so the synthesized stock never trips expiry handling.
// Shared between the migration run and the mutation paths that realize
// legacy stock on first touch.
func synthesizeLegacyBatch(f repository.Family, item *repository.Item, now time.Time) *repository.Batch {
	batchNumber := fmt.Sprintf("%s-%s-%d", f.BatchPrefix, item.ID, now.Unix())
	if item.LegacyBatchNumber != nil && *item.LegacyBatchNumber != "" {
		batchNumber = *item.LegacyBatchNumber
	}

	expiry := farFutureExpiry
	if item.LegacyExpiryDate != nil && !item.LegacyExpiryDate.IsZero() {
		expiry = *item.LegacyExpiryDate
	}

	status := repository.BatchStatusActive
	if expiry.Before(now) {
		status = repository.BatchStatusExpired
	}

	notes := fmt.Sprintf("Synthesized from legacy stock fields on %s", now.Format("2006-01-02"))

	return &repository.Batch{
		ItemID:            item.ID,
		BatchNumber:       batchNumber,
		QuantityReceived:  item.LegacyQuantity,
		QuantityRemaining: item.LegacyQuantity,
		ExpiryDate:        expiry,
		ReceivedDate:      now,
		UnitCost:          item.UnitCost,
		Status:            status,
		Notes:             &notes,
	}
}
