package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brgycare/brgycare-backend/internal/appointment/service"
	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/brgycare/brgycare-backend/pkg/httputil"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	service *service.AppointmentService
	logger  *logger.Logger
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(svc *service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: svc,
		logger:  log,
	}
}

// Routes builds the appointment route tree
func (h *AppointmentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListForDay)
	r.Post("/", h.Schedule)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Reschedule)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Get("/patient/{patientID}", h.ListByPatient)

	return r
}

// Schedule schedules a new appointment
func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req service.ScheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appt, err := h.service.Schedule(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, appt)
}

// Get gets an appointment by ID
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appt)
}

// ListForDay lists the appointments of one calendar day (today unless a
// date query parameter is supplied).
func (h *AppointmentHandler) ListForDay(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.Error(w, errors.BadRequest("date must be formatted as YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	appts, err := h.service.ListForDay(r.Context(), day)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appts)
}

// ListByPatient lists a patient's appointments
func (h *AppointmentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	appts, err := h.service.ListByPatient(r.Context(), patientID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appts)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Purpose     string    `json:"purpose"`
	Notes       *string   `json:"notes"`
}

// Reschedule changes an appointment's time
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rescheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), id, req.ScheduledAt, req.Purpose, req.Notes)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appt)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed cancelled no-show"`
}

// UpdateStatus moves an appointment to a new status
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appt)
}
