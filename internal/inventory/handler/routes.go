package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// Routes builds the inventory route tree. The medications and vaccines
// subtrees are identical in shape; each is served by handlers bound to
// its family.
func Routes(svc *service.InventoryService, migrator *service.Migrator, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	stockHandler := NewStockHandler(svc, log)
	alertHandler := NewAlertHandler(svc, log)
	dashboardHandler := NewDashboardHandler(svc, log)

	mount := func(path string, f repository.Family) {
		itemHandler := NewItemHandler(f, svc, log)
		batchHandler := NewBatchHandler(f, svc, log)
		migrationHandler := NewMigrationHandler(f, migrator, svc, log)

		r.Route(path, func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Get("/{id}", itemHandler.Get)
			r.Put("/{id}", itemHandler.Update)
			r.Delete("/{id}", itemHandler.Delete)

			r.Get("/{id}/batches", batchHandler.ListByItem)
			r.Post("/{id}/batches", batchHandler.Create)
			r.Post("/{id}/consume", batchHandler.ConsumeFromItem)
			r.Get("/{id}/movements", itemHandler.Movements)

			r.Route("/batches", func(r chi.Router) {
				r.Get("/{id}", batchHandler.Get)
				r.Put("/{id}", batchHandler.Update)
				r.Delete("/{id}", batchHandler.Delete)
				r.Post("/{id}/consume", batchHandler.Consume)
			})

			r.Post("/migrate-batches", migrationHandler.Migrate)
		})
	}

	mount("/medications", repository.Medications)
	mount("/vaccines", repository.Vaccines)

	r.Post("/update-stock", stockHandler.UpdateStock)

	r.Get("/alerts", alertHandler.List)
	r.Put("/alerts/{id}/acknowledge", alertHandler.Acknowledge)

	r.Get("/dashboard/stats", dashboardHandler.GetStats)

	return r
}
