package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brgycare/brgycare-backend/pkg/database"
)

// Movement types
const (
	MovementReceive   = "receive"
	MovementConsume   = "consume"
	MovementAdjust    = "adjust"
	MovementMigration = "migration"
)

// StockMovement is the audit record written for every stock mutation
type StockMovement struct {
	ID                string    `db:"id" json:"id"`
	Family            string    `db:"family" json:"family"`
	ItemID            string    `db:"item_id" json:"item_id"`
	BatchID           *string   `db:"batch_id" json:"batch_id,omitempty"`
	MovementType      string    `db:"movement_type" json:"movement_type"`
	Quantity          int       `db:"quantity" json:"quantity"`
	PreviousRemaining int       `db:"previous_remaining" json:"previous_remaining"`
	NewRemaining      int       `db:"new_remaining" json:"new_remaining"`
	Reason            *string   `db:"reason" json:"reason,omitempty"`
	PerformedBy       string    `db:"performed_by" json:"performed_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// MovementRepository handles stock movement persistence
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

const movementInsert = `
	INSERT INTO stock_movements (
		id, family, item_id, batch_id, movement_type, quantity,
		previous_remaining, new_remaining, reason, performed_by, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Create records a stock movement
func (r *MovementRepository) Create(ctx context.Context, m *StockMovement) error {
	prepareMovement(m)
	_, err := r.db.ExecContext(ctx, movementInsert,
		m.ID, m.Family, m.ItemID, m.BatchID, m.MovementType, m.Quantity,
		m.PreviousRemaining, m.NewRemaining, m.Reason, m.PerformedBy, m.CreatedAt,
	)
	return err
}

// CreateTx records a stock movement inside an existing transaction, so the
// audit row commits or rolls back together with the mutation it describes.
func (r *MovementRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, m *StockMovement) error {
	prepareMovement(m)
	_, err := tx.ExecContext(ctx, movementInsert,
		m.ID, m.Family, m.ItemID, m.BatchID, m.MovementType, m.Quantity,
		m.PreviousRemaining, m.NewRemaining, m.Reason, m.PerformedBy, m.CreatedAt,
	)
	return err
}

func prepareMovement(m *StockMovement) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}

// ListByItem lists movements for an item, most recent first
func (r *MovementRepository) ListByItem(ctx context.Context, f Family, itemID string, limit int) ([]*StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}

	var movements []*StockMovement
	query := `
		SELECT id, family, item_id, batch_id, movement_type, quantity,
		       previous_remaining, new_remaining, reason, performed_by, created_at
		FROM stock_movements
		WHERE family = $1 AND item_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &movements, query, f.Kind, itemID, limit); err != nil {
		return nil, err
	}
	return movements, nil
}
