package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Alert types
const (
	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"
	AlertExpiring   = "expiring"
	AlertExpired    = "expired"
)

// InventoryAlert represents an inventory alert
type InventoryAlert struct {
	ID              string     `db:"id" json:"id"`
	AlertType       string     `db:"alert_type" json:"alert_type"`
	Family          string     `db:"family" json:"family"`
	ItemID          string     `db:"item_id" json:"item_id"`
	ItemName        string     `db:"item_name" json:"item_name"`
	BatchID         *string    `db:"batch_id" json:"batch_id,omitempty"`
	BatchNumber     *string    `db:"batch_number" json:"batch_number,omitempty"`
	Severity        string     `db:"severity" json:"severity"`
	Message         string     `db:"message" json:"message"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CurrentStock    *int       `db:"current_stock" json:"current_stock,omitempty"`
	MinimumStock    *int       `db:"minimum_stock" json:"minimum_stock,omitempty"`
	IsAcknowledged  bool       `db:"is_acknowledged" json:"is_acknowledged"`
	AcknowledgedBy  *string    `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *InventoryAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO inventory_alerts (
			id, alert_type, family, item_id, item_name, batch_id, batch_number,
			severity, message, expiry_date, current_stock, minimum_stock,
			is_acknowledged, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.AlertType, alert.Family, alert.ItemID, alert.ItemName,
		alert.BatchID, alert.BatchNumber, alert.Severity, alert.Message,
		alert.ExpiryDate, alert.CurrentStock, alert.MinimumStock,
		alert.IsAcknowledged, alert.CreatedAt,
	)
	return err
}

// HasOpenAlert reports whether an unacknowledged alert of the given type
// already exists for an item. Keeps reconciliation from flooding duplicates.
func (r *AlertRepository) HasOpenAlert(ctx context.Context, family Family, itemID, alertType string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM inventory_alerts
		WHERE family = $1 AND item_id = $2 AND alert_type = $3 AND is_acknowledged = false
	`
	if err := r.db.GetContext(ctx, &count, query, family.Kind, itemID, alertType); err != nil {
		return false, err
	}
	return count > 0, nil
}

// List lists alerts with optional acknowledged filtering, newest first
func (r *AlertRepository) List(ctx context.Context, acknowledged *bool, page, perPage int) ([]*InventoryAlert, int64, error) {
	countQuery := `SELECT COUNT(*) FROM inventory_alerts`
	query := `
		SELECT id, alert_type, family, item_id, item_name, batch_id, batch_number,
		       severity, message, expiry_date, current_stock, minimum_stock,
		       is_acknowledged, acknowledged_by, acknowledged_at, created_at
		FROM inventory_alerts
	`
	args := []interface{}{}

	if acknowledged != nil {
		countQuery += ` WHERE is_acknowledged = $1`
		query += ` WHERE is_acknowledged = $1`
		args = append(args, *acknowledged)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	if acknowledged != nil {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	}
	args = append(args, perPage, offset)

	var alerts []*InventoryAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// Acknowledge marks an alert as acknowledged
func (r *AlertRepository) Acknowledge(ctx context.Context, id, acknowledgedBy string) error {
	query := `
		UPDATE inventory_alerts
		SET is_acknowledged = true, acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1 AND is_acknowledged = false
	`

	result, err := r.db.ExecContext(ctx, query, id, acknowledgedBy, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("alert")
	}

	return nil
}

// GetUnacknowledgedCount counts open alerts
func (r *AlertRepository) GetUnacknowledgedCount(ctx context.Context) (int64, error) {
	var count sql.NullInt64
	query := `SELECT COUNT(*) FROM inventory_alerts WHERE is_acknowledged = false`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count.Int64, nil
}
