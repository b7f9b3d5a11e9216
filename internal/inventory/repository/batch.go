package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Batch statuses
const (
	BatchStatusActive   = "active"
	BatchStatusExpired  = "expired"
	BatchStatusDepleted = "depleted"
)

// Batch represents a single received lot of a medication or vaccine
type Batch struct {
	ID                string          `db:"id" json:"id"`
	ItemID            string          `db:"item_id" json:"item_id"`
	BatchNumber       string          `db:"batch_number" json:"batch_number"`
	QuantityReceived  int             `db:"quantity_received" json:"quantity_received"`
	QuantityRemaining int             `db:"quantity_remaining" json:"quantity_remaining"`
	ExpiryDate        time.Time       `db:"expiry_date" json:"expiry_date"`
	ReceivedDate      time.Time       `db:"received_date" json:"received_date"`
	UnitCost          decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Supplier          *string         `db:"supplier" json:"supplier,omitempty"`
	Status            string          `db:"status" json:"status"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the batch's expiry date has passed
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(now)
}

// HasStock reports whether the batch still holds stock
func (b *Batch) HasStock() bool {
	return b.Status == BatchStatusActive && b.QuantityRemaining > 0
}

// Usable reports whether the batch may be dispensed from
func (b *Batch) Usable(now time.Time) bool {
	return b.HasStock() && !b.IsExpired(now)
}

const batchColumns = `id, item_id, batch_number, quantity_received, quantity_remaining,
	expiry_date, received_date, unit_cost, supplier, status, notes, created_at, updated_at`

// BatchRepository handles batch persistence for both families
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, f Family, batch *Batch) error {
	return r.create(ctx, r.db, f, batch)
}

// CreateTx creates a new batch inside an existing transaction
func (r *BatchRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, f Family, batch *Batch) error {
	return r.create(ctx, tx, f, batch)
}

func (r *BatchRepository) create(ctx context.Context, q sqlx.ExtContext, f Family, batch *Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Status == "" {
		batch.Status = BatchStatusActive
	}

	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, item_id, batch_number, quantity_received, quantity_remaining,
			expiry_date, received_date, unit_cost, supplier, status, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, f.BatchTable)

	_, err := q.ExecContext(ctx, query,
		batch.ID, batch.ItemID, batch.BatchNumber, batch.QuantityReceived,
		batch.QuantityRemaining, batch.ExpiryDate, batch.ReceivedDate,
		batch.UnitCost, batch.Supplier, batch.Status, batch.Notes,
		batch.CreatedAt, batch.UpdatedAt,
	)
	return err
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, f Family, id string) (*Batch, error) {
	var batch Batch
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, batchColumns, f.BatchTable)
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByItem lists batches for an item ordered by ascending expiry date
// (soonest-expiring stock first). Depleted batches are excluded unless
// includeDepleted is set.
func (r *BatchRepository) ListByItem(ctx context.Context, f Family, itemID string, includeDepleted bool) ([]*Batch, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE item_id = $1`, batchColumns, f.BatchTable)
	if !includeDepleted {
		query += ` AND status <> '` + BatchStatusDepleted + `'`
	}
	query += ` ORDER BY expiry_date ASC, received_date ASC`

	var batches []*Batch
	if err := r.db.SelectContext(ctx, &batches, query, itemID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListUsableByItemTx lists batches eligible for consumption, ordered by
// ascending expiry date, inside a transaction. Expired stock is never
// dispensed.
func (r *BatchRepository) ListUsableByItemTx(ctx context.Context, tx *sqlx.Tx, f Family, itemID string, now time.Time) ([]*Batch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE item_id = $1 AND status = '%s' AND quantity_remaining > 0 AND expiry_date >= $2
		ORDER BY expiry_date ASC, received_date ASC
	`, batchColumns, f.BatchTable, BatchStatusActive)

	var batches []*Batch
	if err := tx.SelectContext(ctx, &batches, query, itemID, now); err != nil {
		return nil, err
	}
	return batches, nil
}

// CountByItem counts all batches belonging to an item, regardless of status
func (r *BatchRepository) CountByItem(ctx context.Context, f Family, itemID string) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE item_id = $1`, f.BatchTable)
	if err := r.db.GetContext(ctx, &count, query, itemID); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByItemTx counts an item's batches inside a transaction
func (r *BatchRepository) CountByItemTx(ctx context.Context, tx *sqlx.Tx, f Family, itemID string) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE item_id = $1`, f.BatchTable)
	if err := tx.GetContext(ctx, &count, query, itemID); err != nil {
		return 0, err
	}
	return count, nil
}

// Update applies a correction edit to a batch. The quantity invariant
// (0 <= remaining <= received) is validated by the caller before the write.
func (r *BatchRepository) Update(ctx context.Context, f Family, batch *Batch) error {
	batch.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s SET
			batch_number = $2, quantity_received = $3, quantity_remaining = $4,
			expiry_date = $5, received_date = $6, unit_cost = $7, supplier = $8,
			status = $9, notes = $10, updated_at = $11
		WHERE id = $1
	`, f.BatchTable)

	result, err := r.db.ExecContext(ctx, query,
		batch.ID, batch.BatchNumber, batch.QuantityReceived, batch.QuantityRemaining,
		batch.ExpiryDate, batch.ReceivedDate, batch.UnitCost, batch.Supplier,
		batch.Status, batch.Notes, batch.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// Delete deletes a batch. The batch table carries ON DELETE RESTRICT
// references from stock movements, so batches with consumption history
// cannot be removed; that surfaces as a conflict.
func (r *BatchRepository) Delete(ctx context.Context, f Family, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, f.BatchTable)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errors.Conflict("batch has recorded stock movements and cannot be deleted")
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// DecrementTx atomically decrements a batch's remaining quantity inside a
// transaction. The conditional guard is the concurrency control: two
// requests racing for the same stock cannot both succeed, and a zero-rows
// result means the batch no longer holds the requested quantity.
func (r *BatchRepository) DecrementTx(ctx context.Context, tx *sqlx.Tx, f Family, batchID string, qty int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			quantity_remaining = quantity_remaining - $2,
			status = CASE WHEN quantity_remaining - $2 <= 0 THEN '%s' ELSE status END,
			updated_at = $3
		WHERE id = $1 AND status = '%s' AND quantity_remaining >= $2
	`, f.BatchTable, BatchStatusDepleted, BatchStatusActive)

	result, err := tx.ExecContext(ctx, query, batchID, qty, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.ErrInsufficientStock
	}

	return nil
}

// IncrementTx adds quantity back to a batch (receipt corrections and
// untargeted stock additions). A depleted batch becomes active again.
func (r *BatchRepository) IncrementTx(ctx context.Context, tx *sqlx.Tx, f Family, batchID string, qty int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			quantity_received = quantity_received + $2,
			quantity_remaining = quantity_remaining + $2,
			status = CASE WHEN status = '%s' THEN '%s' ELSE status END,
			updated_at = $3
		WHERE id = $1
	`, f.BatchTable, BatchStatusDepleted, BatchStatusActive)

	result, err := tx.ExecContext(ctx, query, batchID, qty, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// MostRecentActiveTx returns the most recently received active batch for an
// item, used when an untargeted stock addition needs a batch to land on.
func (r *BatchRepository) MostRecentActiveTx(ctx context.Context, tx *sqlx.Tx, f Family, itemID string) (*Batch, error) {
	var batch Batch
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE item_id = $1 AND status = '%s'
		ORDER BY received_date DESC, created_at DESC
		LIMIT 1
	`, batchColumns, f.BatchTable, BatchStatusActive)

	if err := tx.GetContext(ctx, &batch, query, itemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "violates foreign key constraint")
}
