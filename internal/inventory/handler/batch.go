package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brgycare/brgycare-backend/internal/inventory/repository"
	"github.com/brgycare/brgycare-backend/internal/inventory/service"
	"github.com/brgycare/brgycare-backend/pkg/httputil"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// BatchHandler handles batch endpoints for one family
type BatchHandler struct {
	family  repository.Family
	service *service.InventoryService
	logger  *logger.Logger
}

// NewBatchHandler creates a batch handler bound to a family
func NewBatchHandler(f repository.Family, svc *service.InventoryService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		family:  f,
		service: svc,
		logger:  log,
	}
}

// ListByItem lists an item's batches, soonest expiry first
func (h *BatchHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	includeDepleted := r.URL.Query().Get("include_depleted") == "true"

	batches, err := h.service.ListBatches(r.Context(), h.family, itemID, includeDepleted)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Create records newly received stock as a batch under an item
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var in service.CreateBatchInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.CreateBatch(r.Context(), h.family, itemID, &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.GetBatch(r.Context(), h.family, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Update applies a correction edit to a batch
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.GetBatch(r.Context(), h.family, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	// Identity fields are server-owned; the body cannot rebind the batch
	itemID := batch.ItemID
	if err := httputil.DecodeJSON(r, batch); err != nil {
		httputil.Error(w, err)
		return
	}
	batch.ID = id
	batch.ItemID = itemID

	if err := h.service.UpdateBatch(r.Context(), h.family, batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete deletes a batch
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteBatch(r.Context(), h.family, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

type consumeRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason,omitempty"`
}

// Consume dispenses stock from a specific batch
func (h *BatchHandler) Consume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req consumeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.ConsumeFromBatch(r.Context(), h.family, id, req.Quantity, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// ConsumeFromItem dispenses stock from an item, soonest-expiring batches
// first.
func (h *BatchHandler) ConsumeFromItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req consumeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.ConsumeFromItem(r.Context(), h.family, itemID, req.Quantity, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}
