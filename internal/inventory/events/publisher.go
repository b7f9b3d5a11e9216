package events

import (
	"context"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/messaging"
)

// Publisher publishes inventory-related events. A nil Publisher is a
// no-op so the service runs without a broker in local setups.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new inventory event publisher
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *Publisher) PublishStockAdjusted(ctx context.Context, f repository.Family, itemID, batchID string, delta, totalStock int, status, performedBy, reason string) {
	if p == nil {
		return
	}

	data := messaging.StockAdjustedEvent{
		Family:      f.Kind,
		ItemID:      itemID,
		BatchID:     batchID,
		Delta:       delta,
		TotalStock:  totalStock,
		Status:      status,
		PerformedBy: performedBy,
		Reason:      reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", itemID).Msg("failed to publish stock adjusted event")
	}
}

// PublishBatchCreated publishes a batch created event
func (p *Publisher) PublishBatchCreated(ctx context.Context, f repository.Family, batch *repository.Batch) {
	if p == nil {
		return
	}

	data := messaging.BatchCreatedEvent{
		Family:           f.Kind,
		ItemID:           batch.ItemID,
		BatchID:          batch.ID,
		BatchNumber:      batch.BatchNumber,
		QuantityReceived: batch.QuantityReceived,
		ExpiryDate:       batch.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchCreated, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch created event")
	}
}

// PublishAlertGenerated publishes an alert generated event
func (p *Publisher) PublishAlertGenerated(ctx context.Context, alert *repository.InventoryAlert) {
	if p == nil {
		return
	}

	data := messaging.AlertGeneratedEvent{
		AlertID:   alert.ID,
		AlertType: alert.AlertType,
		Severity:  alert.Severity,
		Family:    alert.Family,
		ItemID:    alert.ItemID,
		Message:   alert.Message,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert generated event")
	}
}
