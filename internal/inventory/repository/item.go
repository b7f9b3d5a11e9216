package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Item represents a catalog entry for a medication or vaccine. Stock is
// derived from the item's batches; the legacy_* columns predate the batch
// model and stay authoritative only until the item's first batch exists.
type Item struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Category     string          `db:"category" json:"category"`
	DosageForm   *string         `db:"dosage_form" json:"dosage_form,omitempty"`
	Strength     *string         `db:"strength" json:"strength,omitempty"`
	Manufacturer *string         `db:"manufacturer" json:"manufacturer,omitempty"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	MinimumStock int             `db:"minimum_stock" json:"minimum_stock"`
	Status       string          `db:"status" json:"status"`

	// Legacy flat fields, read by older client code paths
	LegacyBatchNumber *string    `db:"legacy_batch_number" json:"legacy_batch_number,omitempty"`
	LegacyExpiryDate  *time.Time `db:"legacy_expiry_date" json:"legacy_expiry_date,omitempty"`
	LegacyQuantity    int        `db:"legacy_quantity" json:"-"`

	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// DefaultMinimumStock is the low-stock threshold applied when an item is
// created without one.
const DefaultMinimumStock = 50

// ItemRepository handles item persistence for both families
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func itemSelectColumns(f Family) string {
	return fmt.Sprintf(`id, name, category, dosage_form, strength, manufacturer,
		unit_cost, minimum_stock, status, legacy_batch_number, legacy_expiry_date,
		%s AS legacy_quantity, is_active, created_at, updated_at`, f.LegacyStockColumn)
}

// Create creates a new catalog item
func (r *ItemRepository) Create(ctx context.Context, f Family, item *Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.MinimumStock == 0 {
		item.MinimumStock = DefaultMinimumStock
	}
	if item.Status == "" {
		item.Status = "Out of Stock"
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, name, category, dosage_form, strength, manufacturer, unit_cost,
			minimum_stock, status, legacy_batch_number, legacy_expiry_date, %s,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, f.ItemTable, f.LegacyStockColumn)

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.DosageForm, item.Strength,
		item.Manufacturer, item.UnitCost, item.MinimumStock, item.Status,
		item.LegacyBatchNumber, item.LegacyExpiryDate, item.LegacyQuantity,
		item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, f Family, id string) (*Item, error) {
	var item Item
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL`,
		itemSelectColumns(f), f.ItemTable)

	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(f.Label)
		}
		return nil, err
	}
	return &item, nil
}

// List lists items with pagination and an optional category filter
func (r *ItemRepository) List(ctx context.Context, f Family, page, perPage int, category string) ([]*Item, int64, error) {
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL`, f.ItemTable)
	args := []interface{}{}

	if category != "" {
		countQuery += ` AND category = $1`
		args = append(args, category)
	}

	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NULL`,
		itemSelectColumns(f), f.ItemTable)

	if category != "" {
		query += ` AND category = $1 ORDER BY name LIMIT $2 OFFSET $3`
		args = append(args, perPage, offset)
	} else {
		query += ` ORDER BY name LIMIT $1 OFFSET $2`
		args = append(args, perPage, offset)
	}

	var items []*Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// GetAllActive gets all active items in a family
func (r *ItemRepository) GetAllActive(ctx context.Context, f Family) ([]*Item, error) {
	var items []*Item
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NULL AND is_active = true ORDER BY name`,
		itemSelectColumns(f), f.ItemTable)

	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

// ListWithLegacyStock lists items carrying a positive legacy flat stock
// value. Used by the legacy batch migration.
func (r *ItemRepository) ListWithLegacyStock(ctx context.Context, f Family) ([]*Item, error) {
	var items []*Item
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NULL AND %s > 0 ORDER BY name`,
		itemSelectColumns(f), f.ItemTable, f.LegacyStockColumn)

	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

// Update updates an item's descriptive attributes
func (r *ItemRepository) Update(ctx context.Context, f Family, item *Item) error {
	item.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s SET
			name = $2, category = $3, dosage_form = $4, strength = $5,
			manufacturer = $6, unit_cost = $7, minimum_stock = $8,
			is_active = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`, f.ItemTable)

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.DosageForm, item.Strength,
		item.Manufacturer, item.UnitCost, item.MinimumStock, item.IsActive,
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(f.Label)
	}

	return nil
}

// UpdateStatus persists a newly derived lifecycle status. The guard on the
// current value keeps re-derivation from unchanged inputs write-free.
func (r *ItemRepository) UpdateStatus(ctx context.Context, f Family, id, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2 AND deleted_at IS NULL`,
		f.ItemTable)

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	return err
}

// SoftDelete soft deletes an item
func (r *ItemRepository) SoftDelete(ctx context.Context, f Family, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, f.ItemTable)

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(f.Label)
	}

	return nil
}
