package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Snapshot is a point-in-time JSON export of the whole inventory,
// kept for offline record keeping at the health center.
type Snapshot struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Families    map[string][]*ItemView `json:"families"`
}

// BuildSnapshot assembles the snapshot for every family
func (s *InventoryService) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		GeneratedAt: s.now().UTC(),
		Families:    make(map[string][]*ItemView, len(repository.Families)),
	}

	for _, f := range repository.Families {
		items, err := s.itemRepo.GetAllActive(ctx, f)
		if err != nil {
			return nil, err
		}

		views := make([]*ItemView, 0, len(items))
		for _, item := range items {
			batches, err := s.batchRepo.ListByItem(ctx, f, item.ID, true)
			if err != nil {
				return nil, err
			}
			view := s.buildView(f, item, batches)
			view.Batches = batches
			views = append(views, view)
		}
		snap.Families[f.Kind] = views
	}

	return snap, nil
}

// WriteSnapshot writes the snapshot as a dated JSON file under dir and
// returns the file path.
func (s *InventoryService) WriteSnapshot(ctx context.Context, dir string) (string, error) {
	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "SNAPSHOT_ERROR", "failed to create snapshot directory", http.StatusInternalServerError)
	}

	name := fmt.Sprintf("inventory-snapshot-%s.json", snap.GeneratedAt.Format("2006-01-02T150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "SNAPSHOT_ERROR", "failed to encode snapshot", http.StatusInternalServerError)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "SNAPSHOT_ERROR", "failed to write snapshot file", http.StatusInternalServerError)
	}

	return path, nil
}
