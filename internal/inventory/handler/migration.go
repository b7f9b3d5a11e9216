package handler

import (
	"net/http"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/httputil"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// MigrationHandler exposes the legacy stock migration over HTTP so it can
// be run from an admin console as well as the CLI.
type MigrationHandler struct {
	family   repository.Family
	migrator *service.Migrator
	service  *service.InventoryService
	logger   *logger.Logger
}

// NewMigrationHandler creates a migration handler bound to a family
func NewMigrationHandler(f repository.Family, m *service.Migrator, svc *service.InventoryService, log *logger.Logger) *MigrationHandler {
	return &MigrationHandler{
		family:   f,
		migrator: m,
		service:  svc,
		logger:   log,
	}
}

// Migrate runs the legacy stock migration. Dry run unless execute=true.
func (h *MigrationHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	execute := r.URL.Query().Get("execute") == "true"

	report, err := h.migrator.Migrate(r.Context(), h.family, execute)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if execute && report.Migrated > 0 {
		if _, err := h.service.ReconcileAll(r.Context(), h.family); err != nil {
			h.logger.Warn().Err(err).Str("family", h.family.Kind).Msg("post-migration reconciliation failed")
		}
	}

	httputil.JSON(w, http.StatusOK, report)
}
