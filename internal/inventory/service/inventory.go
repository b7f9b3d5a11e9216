package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/brgycare/brgycare-backend/internal/inventory/events"
	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// Policy carries the tunable inventory thresholds. Zero values fall back
// to the package defaults.
type Policy struct {
	// ExpiryWarningDays sizes the "expiring soon" window
	ExpiryWarningDays int
	// DefaultMinimumStock is the low-stock threshold applied to new items
	// created without one
	DefaultMinimumStock int
}

// InventoryService handles inventory business logic for both item families
type InventoryService struct {
	db           *database.DB
	itemRepo     *repository.ItemRepository
	batchRepo    *repository.BatchRepository
	movementRepo *repository.MovementRepository
	alertRepo    *repository.AlertRepository
	publisher    *events.Publisher
	policy       Policy
	logger       *logger.Logger
	now          func() time.Time
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	batchRepo *repository.BatchRepository,
	movementRepo *repository.MovementRepository,
	alertRepo *repository.AlertRepository,
	publisher *events.Publisher,
	policy Policy,
	log *logger.Logger,
) *InventoryService {
	if policy.ExpiryWarningDays <= 0 {
		policy.ExpiryWarningDays = ExpiryWarningDays
	}
	if policy.DefaultMinimumStock <= 0 {
		policy.DefaultMinimumStock = repository.DefaultMinimumStock
	}

	return &InventoryService{
		db:           db,
		itemRepo:     itemRepo,
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		alertRepo:    alertRepo,
		publisher:    publisher,
		policy:       policy,
		logger:       log,
		now:          time.Now,
	}
}

// ItemView is an item with its virtual stock fields populated. The legacy
// stock aliases (units_in_stock, doses_in_stock, quantity_in_stock) all
// resolve to the same derived total for older client code paths.
type ItemView struct {
	*repository.Item
	Batches              []*repository.Batch `json:"batches,omitempty"`
	TotalStock           int                 `json:"total_stock"`
	NextExpiryDate       *time.Time          `json:"next_expiry_date,omitempty"`
	BatchCount           int                 `json:"batch_count"`
	ExpiringBatchesCount int                 `json:"expiring_batches_count"`
	AverageUnitCost      decimal.Decimal     `json:"average_unit_cost"`
	Status               string              `json:"status"`
	QuantityInStock      int                 `json:"quantity_in_stock"`
	UnitsInStock         *int                `json:"units_in_stock,omitempty"`
	DosesInStock         *int                `json:"doses_in_stock,omitempty"`
}

// StockSummary is returned by stock mutations
type StockSummary struct {
	Family          string     `json:"type"`
	ItemID          string     `json:"item_id"`
	TotalStock      int        `json:"total_stock"`
	QuantityInStock int        `json:"quantity_in_stock"`
	Status          string     `json:"status"`
	NextExpiryDate  *time.Time `json:"next_expiry_date,omitempty"`
}

// Item operations

// CreateItem creates a new catalog item
func (s *InventoryService) CreateItem(ctx context.Context, f repository.Family, item *repository.Item) error {
	if item.Name == "" {
		return errors.Validation(map[string]string{"name": "this field is required"})
	}
	if item.MinimumStock == 0 {
		item.MinimumStock = s.policy.DefaultMinimumStock
	}
	item.IsActive = true
	return s.itemRepo.Create(ctx, f, item)
}

// GetItem gets an item with its batches and virtual fields
func (s *InventoryService) GetItem(ctx context.Context, f repository.Family, id string) (*ItemView, error) {
	item, err := s.itemRepo.GetByID(ctx, f, id)
	if err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.ListByItem(ctx, f, id, true)
	if err != nil {
		return nil, err
	}

	view := s.buildView(f, item, batches)
	view.Batches = batches
	return view, nil
}

// ListItems lists items with virtual fields populated
func (s *InventoryService) ListItems(ctx context.Context, f repository.Family, page, perPage int, category string) ([]*ItemView, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	items, total, err := s.itemRepo.List(ctx, f, page, perPage, category)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ItemView, len(items))
	for i, item := range items {
		batches, err := s.batchRepo.ListByItem(ctx, f, item.ID, true)
		if err != nil {
			return nil, 0, err
		}
		views[i] = s.buildView(f, item, batches)
	}

	return views, total, nil
}

// UpdateItem updates an item's descriptive attributes
func (s *InventoryService) UpdateItem(ctx context.Context, f repository.Family, item *repository.Item) error {
	return s.itemRepo.Update(ctx, f, item)
}

// DeleteItem soft deletes an item
func (s *InventoryService) DeleteItem(ctx context.Context, f repository.Family, id string) error {
	return s.itemRepo.SoftDelete(ctx, f, id)
}

// Batch operations

// CreateBatchInput carries the fields accepted when receiving new stock
type CreateBatchInput struct {
	BatchNumber      string          `json:"batch_number" validate:"required"`
	QuantityReceived int             `json:"quantity_received" validate:"required,gt=0"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	ReceivedDate     time.Time       `json:"received_date"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Supplier         *string         `json:"supplier,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
}

// CreateBatch records newly received stock as a batch. Quantity remaining
// starts equal to quantity received.
func (s *InventoryService) CreateBatch(ctx context.Context, f repository.Family, itemID string, in *CreateBatchInput) (*repository.Batch, error) {
	details := map[string]string{}
	if in.QuantityReceived <= 0 {
		details["quantity_received"] = "must be a positive integer"
	}
	if in.ExpiryDate.IsZero() {
		details["expiry_date"] = "this field is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	item, err := s.itemRepo.GetByID(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	received := in.ReceivedDate
	if received.IsZero() {
		received = now
	}

	status := repository.BatchStatusActive
	if in.ExpiryDate.Before(now) {
		status = repository.BatchStatusExpired
	}

	batch := &repository.Batch{
		ItemID:            item.ID,
		BatchNumber:       in.BatchNumber,
		QuantityReceived:  in.QuantityReceived,
		QuantityRemaining: in.QuantityReceived,
		ExpiryDate:        in.ExpiryDate,
		ReceivedDate:      received,
		UnitCost:          in.UnitCost,
		Supplier:          in.Supplier,
		Status:            status,
		Notes:             in.Notes,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.batchRepo.CreateTx(ctx, tx, f, batch); err != nil {
			return err
		}
		return s.movementRepo.CreateTx(ctx, tx, &repository.StockMovement{
			Family:            f.Kind,
			ItemID:            item.ID,
			BatchID:           &batch.ID,
			MovementType:      repository.MovementReceive,
			Quantity:          batch.QuantityReceived,
			PreviousRemaining: 0,
			NewRemaining:      batch.QuantityRemaining,
			PerformedBy:       actorOrSystem(ctx),
		})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.Reconcile(ctx, f, item.ID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("status reconciliation after batch create failed")
	}

	s.publisher.PublishBatchCreated(ctx, f, batch)

	return batch, nil
}

// GetBatch gets a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, f repository.Family, id string) (*repository.Batch, error) {
	return s.batchRepo.GetByID(ctx, f, id)
}

// ListBatches lists an item's batches ordered by ascending expiry date
func (s *InventoryService) ListBatches(ctx context.Context, f repository.Family, itemID string, includeDepleted bool) ([]*repository.Batch, error) {
	if _, err := s.itemRepo.GetByID(ctx, f, itemID); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByItem(ctx, f, itemID, includeDepleted)
}

// UpdateBatch applies a correction edit to a batch
func (s *InventoryService) UpdateBatch(ctx context.Context, f repository.Family, batch *repository.Batch) error {
	if batch.QuantityRemaining < 0 || batch.QuantityRemaining > batch.QuantityReceived {
		return errors.Validation(map[string]string{
			"quantity_remaining": "must be between 0 and quantity received",
		})
	}

	if err := s.batchRepo.Update(ctx, f, batch); err != nil {
		return err
	}

	if _, err := s.Reconcile(ctx, f, batch.ItemID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", batch.ItemID).Msg("status reconciliation after batch update failed")
	}
	return nil
}

// DeleteBatch deletes a batch
func (s *InventoryService) DeleteBatch(ctx context.Context, f repository.Family, id string) error {
	batch, err := s.batchRepo.GetByID(ctx, f, id)
	if err != nil {
		return err
	}

	if err := s.batchRepo.Delete(ctx, f, id); err != nil {
		return err
	}

	if _, err := s.Reconcile(ctx, f, batch.ItemID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", batch.ItemID).Msg("status reconciliation after batch delete failed")
	}
	return nil
}

// Consumption

// ConsumptionStep is one batch decrement in a planned consumption
type ConsumptionStep struct {
	Batch *repository.Batch
	Take  int
}

// PlanConsumption splits a requested quantity across batches in the order
// given (callers pass batches sorted by ascending expiry, so the
// soonest-expiring stock is used first). If the batches cannot cover the
// request, no steps are returned and an insufficient-stock error reports
// what was available.
func PlanConsumption(batches []*repository.Batch, qty int) ([]ConsumptionStep, error) {
	if qty <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be a positive integer"})
	}

	available := 0
	for _, b := range batches {
		available += b.QuantityRemaining
	}
	if available < qty {
		return nil, errors.InsufficientStock(available, qty)
	}

	var steps []ConsumptionStep
	remaining := qty
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := b.QuantityRemaining
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}
		steps = append(steps, ConsumptionStep{Batch: b, Take: take})
		remaining -= take
	}

	return steps, nil
}

// ConsumeFromItem consumes stock from an item using soonest-expiring
// batches first. The whole consumption commits or rolls back as one
// transaction; an insufficient supply leaves every batch unchanged.
func (s *InventoryService) ConsumeFromItem(ctx context.Context, f repository.Family, itemID string, qty int, reason string) (*StockSummary, error) {
	item, err := s.itemRepo.GetByID(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	performedBy := actorOrSystem(ctx)

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.materializeLegacyStockTx(ctx, tx, f, item); err != nil {
			return err
		}

		batches, err := s.batchRepo.ListUsableByItemTx(ctx, tx, f, itemID, now)
		if err != nil {
			return err
		}

		steps, err := PlanConsumption(batches, qty)
		if err != nil {
			return err
		}

		for _, step := range steps {
			if err := s.batchRepo.DecrementTx(ctx, tx, f, step.Batch.ID, step.Take); err != nil {
				if errors.Is(err, errors.ErrInsufficientStock) {
					// A concurrent request drained this batch between the
					// read and the guarded update.
					return errors.InsufficientStock(step.Batch.QuantityRemaining, step.Take)
				}
				return err
			}

			movement := &repository.StockMovement{
				Family:            f.Kind,
				ItemID:            itemID,
				BatchID:           &step.Batch.ID,
				MovementType:      repository.MovementConsume,
				Quantity:          step.Take,
				PreviousRemaining: step.Batch.QuantityRemaining,
				NewRemaining:      step.Batch.QuantityRemaining - step.Take,
				PerformedBy:       performedBy,
			}
			if reason != "" {
				movement.Reason = &reason
			}
			if err := s.movementRepo.CreateTx(ctx, tx, movement); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockAdjusted(ctx, f, itemID, "", -qty, summary.TotalStock, summary.Status, performedBy, reason)

	return summary, nil
}

// ConsumeFromBatch decrements an explicitly named batch
func (s *InventoryService) ConsumeFromBatch(ctx context.Context, f repository.Family, batchID string, qty int, reason string) (*StockSummary, error) {
	if qty <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be a positive integer"})
	}

	batch, err := s.batchRepo.GetByID(ctx, f, batchID)
	if err != nil {
		return nil, err
	}

	performedBy := actorOrSystem(ctx)

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.batchRepo.DecrementTx(ctx, tx, f, batchID, qty); err != nil {
			if errors.Is(err, errors.ErrInsufficientStock) {
				return errors.InsufficientStock(batch.QuantityRemaining, qty)
			}
			return err
		}

		movement := &repository.StockMovement{
			Family:            f.Kind,
			ItemID:            batch.ItemID,
			BatchID:           &batch.ID,
			MovementType:      repository.MovementConsume,
			Quantity:          qty,
			PreviousRemaining: batch.QuantityRemaining,
			NewRemaining:      batch.QuantityRemaining - qty,
			PerformedBy:       performedBy,
		}
		if reason != "" {
			movement.Reason = &reason
		}
		return s.movementRepo.CreateTx(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, f, batch.ItemID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockAdjusted(ctx, f, batch.ItemID, batchID, -qty, summary.TotalStock, summary.Status, performedBy, reason)

	return summary, nil
}

// AddStock applies an untargeted stock addition. The delta lands on the
// most recently received active batch; when the item has none, an
// adjustment batch is synthesized so the quantity is not lost.
func (s *InventoryService) AddStock(ctx context.Context, f repository.Family, itemID string, qty int, reason string) (*StockSummary, error) {
	if qty <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be a positive integer"})
	}

	item, err := s.itemRepo.GetByID(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	performedBy := actorOrSystem(ctx)
	var batchID string

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.materializeLegacyStockTx(ctx, tx, f, item); err != nil {
			return err
		}

		target, err := s.batchRepo.MostRecentActiveTx(ctx, tx, f, itemID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return err
		}

		if target != nil {
			if err := s.batchRepo.IncrementTx(ctx, tx, f, target.ID, qty); err != nil {
				return err
			}
			batchID = target.ID

			movement := &repository.StockMovement{
				Family:            f.Kind,
				ItemID:            itemID,
				BatchID:           &target.ID,
				MovementType:      repository.MovementAdjust,
				Quantity:          qty,
				PreviousRemaining: target.QuantityRemaining,
				NewRemaining:      target.QuantityRemaining + qty,
				PerformedBy:       performedBy,
			}
			if reason != "" {
				movement.Reason = &reason
			}
			return s.movementRepo.CreateTx(ctx, tx, movement)
		}

		// No batch to land on: synthesize an adjustment batch
		notes := fmt.Sprintf("Ad hoc stock addition on %s", now.Format("2006-01-02"))
		batch := &repository.Batch{
			ItemID:            item.ID,
			BatchNumber:       fmt.Sprintf("ADJ-%s-%d", item.ID, now.Unix()),
			QuantityReceived:  qty,
			QuantityRemaining: qty,
			ExpiryDate:        farFutureExpiry,
			ReceivedDate:      now,
			UnitCost:          item.UnitCost,
			Status:            repository.BatchStatusActive,
			Notes:             &notes,
		}
		if err := s.batchRepo.CreateTx(ctx, tx, f, batch); err != nil {
			return err
		}
		batchID = batch.ID

		movement := &repository.StockMovement{
			Family:            f.Kind,
			ItemID:            itemID,
			BatchID:           &batch.ID,
			MovementType:      repository.MovementAdjust,
			Quantity:          qty,
			PreviousRemaining: 0,
			NewRemaining:      qty,
			PerformedBy:       performedBy,
		}
		if reason != "" {
			movement.Reason = &reason
		}
		return s.movementRepo.CreateTx(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockAdjusted(ctx, f, itemID, batchID, qty, summary.TotalStock, summary.Status, performedBy, reason)

	return summary, nil
}

// UpdateStock is the generic add/subtract entry point used by the
// update-stock endpoint.
func (s *InventoryService) UpdateStock(ctx context.Context, kind, itemID string, qty int, operation string) (*StockSummary, error) {
	f, err := repository.FamilyFor(kind)
	if err != nil {
		return nil, err
	}

	switch operation {
	case "add":
		return s.AddStock(ctx, f, itemID, qty, "")
	case "subtract":
		return s.ConsumeFromItem(ctx, f, itemID, qty, "")
	default:
		return nil, errors.Validation(map[string]string{"operation": "must be one of: add subtract"})
	}
}

// ListMovements lists the stock movement audit trail for an item
func (s *InventoryService) ListMovements(ctx context.Context, f repository.Family, itemID string, limit int) ([]*repository.StockMovement, error) {
	if _, err := s.itemRepo.GetByID(ctx, f, itemID); err != nil {
		return nil, err
	}
	return s.movementRepo.ListByItem(ctx, f, itemID, limit)
}

// Helpers

// materializeLegacyStockTx converts an item's legacy flat stock into a
// batch inside the caller's transaction. The flat fields are authoritative
// only until the first batch exists, so a mutation landing on a batchless
// item has to realize them first rather than silently discarding the
// quantity.
func (s *InventoryService) materializeLegacyStockTx(ctx context.Context, tx *sqlx.Tx, f repository.Family, item *repository.Item) error {
	if item.LegacyQuantity <= 0 {
		return nil
	}

	count, err := s.batchRepo.CountByItemTx(ctx, tx, f, item.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	batch := synthesizeLegacyBatch(f, item, s.now().UTC())
	if err := s.batchRepo.CreateTx(ctx, tx, f, batch); err != nil {
		return err
	}

	s.logger.Info().
		Str("family", f.Kind).
		Str("item_id", item.ID).
		Str("batch_number", batch.BatchNumber).
		Int("quantity", batch.QuantityReceived).
		Msg("legacy stock realized as batch before mutation")

	return s.movementRepo.CreateTx(ctx, tx, &repository.StockMovement{
		Family:       f.Kind,
		ItemID:       item.ID,
		BatchID:      &batch.ID,
		MovementType: repository.MovementMigration,
		Quantity:     batch.QuantityReceived,
		NewRemaining: batch.QuantityRemaining,
		PerformedBy:  actorOrSystem(ctx),
	})
}

func (s *InventoryService) buildView(f repository.Family, item *repository.Item, batches []*repository.Batch) *ItemView {
	now := s.now().UTC()
	t := ComputeTotals(batches, now, s.policy.ExpiryWarningDays)

	totalStock := t.TotalStock
	nextExpiry := t.NextExpiryDate
	if len(batches) == 0 {
		// Legacy flat fields stay authoritative until the first batch exists
		totalStock = item.LegacyQuantity
		nextExpiry = item.LegacyExpiryDate
	}

	view := &ItemView{
		Item:                 item,
		TotalStock:           totalStock,
		NextExpiryDate:       nextExpiry,
		BatchCount:           t.BatchCount,
		ExpiringBatchesCount: t.ExpiringBatchesCount,
		AverageUnitCost:      t.AverageUnitCostOrDefault(item.UnitCost),
		Status:               DeriveStatus(totalStock, item.MinimumStock, nextExpiry, now),
		QuantityInStock:      totalStock,
	}

	switch f.Kind {
	case repository.Medications.Kind:
		view.UnitsInStock = &view.TotalStock
	case repository.Vaccines.Kind:
		view.DosesInStock = &view.TotalStock
	}

	return view
}

func (s *InventoryService) summarize(ctx context.Context, f repository.Family, itemID string) (*StockSummary, error) {
	status, err := s.Reconcile(ctx, f, itemID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.ListByItem(ctx, f, itemID, true)
	if err != nil {
		return nil, err
	}

	t := ComputeTotals(batches, s.now().UTC(), s.policy.ExpiryWarningDays)
	return &StockSummary{
		Family:          f.Kind,
		ItemID:          itemID,
		TotalStock:      t.TotalStock,
		QuantityInStock: t.TotalStock,
		Status:          status,
		NextExpiryDate:  t.NextExpiryDate,
	}, nil
}

var farFutureExpiry = time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)
