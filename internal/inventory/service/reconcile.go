package service

import (
	"context"
	"fmt"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/httputil"
)

// Reconcile recomputes an item's derived status from its batches and
// persists it when it changed. It also raises stock alerts for states
// that need attention. Mutation paths call this explicitly after they
// commit; reads never trigger writes.
func (s *InventoryService) Reconcile(ctx context.Context, f repository.Family, itemID string) (string, error) {
	item, err := s.itemRepo.GetByID(ctx, f, itemID)
	if err != nil {
		return "", err
	}

	batches, err := s.batchRepo.ListByItem(ctx, f, itemID, true)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	t := ComputeTotals(batches, now, s.policy.ExpiryWarningDays)
	totalStock := t.TotalStock
	nextExpiry := t.NextExpiryDate
	if len(batches) == 0 {
		totalStock = item.LegacyQuantity
		nextExpiry = item.LegacyExpiryDate
	}

	status := DeriveStatus(totalStock, item.MinimumStock, nextExpiry, now)
	if status != item.Status {
		if err := s.itemRepo.UpdateStatus(ctx, f, itemID, status); err != nil {
			return "", err
		}
		s.logger.Info().
			Str("family", f.Kind).
			Str("item_id", itemID).
			Str("from", item.Status).
			Str("to", status).
			Msg("item status reconciled")
	}

	s.raiseAlerts(ctx, f, item, status, totalStock, t.ExpiringBatchesCount)

	return status, nil
}

// ReconcileAll recomputes every active item of a family. Used by the
// migration tool and on-demand maintenance.
func (s *InventoryService) ReconcileAll(ctx context.Context, f repository.Family) (int, error) {
	items, err := s.itemRepo.GetAllActive(ctx, f)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, item := range items {
		if _, err := s.Reconcile(ctx, f, item.ID); err != nil {
			s.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to reconcile item")
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func (s *InventoryService) raiseAlerts(ctx context.Context, f repository.Family, item *repository.Item, status string, totalStock, expiringBatches int) {
	if expiringBatches > 0 {
		message := fmt.Sprintf("%s has %d batch(es) expiring within %d days", item.Name, expiringBatches, s.policy.ExpiryWarningDays)
		s.raiseAlert(ctx, f, item, repository.AlertExpiring, "warning", message, totalStock)
	}

	switch status {
	case StatusOutOfStock:
		s.raiseAlert(ctx, f, item, repository.AlertOutOfStock, "critical",
			fmt.Sprintf("%s is out of stock", item.Name), totalStock)
	case StatusLowStock:
		s.raiseAlert(ctx, f, item, repository.AlertLowStock, "warning",
			fmt.Sprintf("%s is low on stock (%d remaining, minimum %d)", item.Name, totalStock, item.MinimumStock), totalStock)
	case StatusExpired:
		s.raiseAlert(ctx, f, item, repository.AlertExpired, "critical",
			fmt.Sprintf("%s has expired stock on hand", item.Name), totalStock)
	}
}

func (s *InventoryService) raiseAlert(ctx context.Context, f repository.Family, item *repository.Item, alertType, severity, message string, totalStock int) {
	open, err := s.alertRepo.HasOpenAlert(ctx, f, item.ID, alertType)
	if err != nil {
		s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to check open alerts")
		return
	}
	if open {
		return
	}

	alert := &repository.InventoryAlert{
		Family:       f.Kind,
		ItemID:       item.ID,
		ItemName:     item.Name,
		AlertType:    alertType,
		Severity:     severity,
		Message:      message,
		CurrentStock: &totalStock,
		MinimumStock: &item.MinimumStock,
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to create inventory alert")
		return
	}

	s.publisher.PublishAlertGenerated(ctx, alert)
}

// ListAlerts lists inventory alerts
func (s *InventoryService) ListAlerts(ctx context.Context, acknowledged *bool, page, perPage int) ([]*repository.InventoryAlert, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.alertRepo.List(ctx, acknowledged, page, perPage)
}

// AcknowledgeAlert marks an alert as handled
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, id string) error {
	return s.alertRepo.Acknowledge(ctx, id, actorOrSystem(ctx))
}

// DashboardStats summarizes inventory health across both families
type DashboardStats struct {
	Families             map[string]FamilyStats `json:"families"`
	UnacknowledgedAlerts int64                  `json:"unacknowledged_alerts"`
}

// FamilyStats is the per-family slice of the dashboard
type FamilyStats struct {
	TotalItems      int `json:"total_items"`
	Available       int `json:"available"`
	LowStock        int `json:"low_stock"`
	OutOfStock      int `json:"out_of_stock"`
	Expired         int `json:"expired"`
	ExpiringBatches int `json:"expiring_batches"`
}

// GetDashboardStats aggregates status counts across both item families
func (s *InventoryService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{Families: make(map[string]FamilyStats, len(repository.Families))}

	for _, f := range repository.Families {
		items, err := s.itemRepo.GetAllActive(ctx, f)
		if err != nil {
			return nil, err
		}

		fs := FamilyStats{TotalItems: len(items)}
		for _, item := range items {
			batches, err := s.batchRepo.ListByItem(ctx, f, item.ID, true)
			if err != nil {
				return nil, err
			}
			view := s.buildView(f, item, batches)
			switch view.Status {
			case StatusAvailable:
				fs.Available++
			case StatusLowStock:
				fs.LowStock++
			case StatusOutOfStock:
				fs.OutOfStock++
			case StatusExpired:
				fs.Expired++
			}
			fs.ExpiringBatches += view.ExpiringBatchesCount
		}
		stats.Families[f.Kind] = fs
	}

	count, err := s.alertRepo.GetUnacknowledgedCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.UnacknowledgedAlerts = count

	return stats, nil
}

func actorOrSystem(ctx context.Context) string {
	if actor := httputil.GetActor(ctx); actor != "" {
		return actor
	}
	return "system"
}
