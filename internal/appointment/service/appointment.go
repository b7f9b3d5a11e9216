package service

import (
	"context"
	"fmt"
	"time"

	"github.com/brgycare/brgycare-backend/internal/appointment/events"
	"github.com/brgycare/brgycare-backend/internal/appointment/repository"
	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// validTransitions maps each appointment status to the statuses it may
// move to. Completed, cancelled and no-show are terminal.
var validTransitions = map[string][]string{
	repository.StatusScheduled: {
		repository.StatusCompleted,
		repository.StatusCancelled,
		repository.StatusNoShow,
	},
}

// AppointmentService handles appointment business logic
type AppointmentService struct {
	repo      *repository.AppointmentRepository
	publisher *events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(repo *repository.AppointmentRepository, publisher *events.Publisher, log *logger.Logger) *AppointmentService {
	return &AppointmentService{
		repo:      repo,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// ScheduleRequest represents an appointment scheduling request
type ScheduleRequest struct {
	PatientID   string    `json:"patient_id" validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Purpose     string    `json:"purpose" validate:"required"`
	Notes       *string   `json:"notes"`
}

// Schedule creates a new appointment
func (s *AppointmentService) Schedule(ctx context.Context, req *ScheduleRequest) (*repository.Appointment, error) {
	if req.ScheduledAt.Before(s.now().UTC()) {
		return nil, errors.Validation(map[string]string{"scheduled_at": "must be in the future"})
	}

	appt := &repository.Appointment{
		PatientID:   req.PatientID,
		ScheduledAt: req.ScheduledAt,
		Purpose:     req.Purpose,
		Notes:       req.Notes,
		Status:      repository.StatusScheduled,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.publisher.PublishScheduled(ctx, appt)

	return appt, nil
}

// Get gets an appointment by ID
func (s *AppointmentService) Get(ctx context.Context, id string) (*repository.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient lists a patient's appointments
func (s *AppointmentService) ListByPatient(ctx context.Context, patientID string) ([]*repository.Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListForDay lists the appointments of one calendar day
func (s *AppointmentService) ListForDay(ctx context.Context, day time.Time) ([]*repository.Appointment, error) {
	return s.repo.ListForDay(ctx, day)
}

// CanTransition reports whether an appointment status change is allowed
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an appointment to a new status
func (s *AppointmentService) UpdateStatus(ctx context.Context, id, status string) (*repository.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, status) {
		return nil, errors.Conflict(fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, status))
	}

	appt.Status = status
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.publisher.PublishUpdated(ctx, appt)

	return appt, nil
}

// Reschedule changes an appointment's time and purpose
func (s *AppointmentService) Reschedule(ctx context.Context, id string, scheduledAt time.Time, purpose string, notes *string) (*repository.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status != repository.StatusScheduled {
		return nil, errors.Conflict("only scheduled appointments can be rescheduled")
	}
	if scheduledAt.Before(s.now().UTC()) {
		return nil, errors.Validation(map[string]string{"scheduled_at": "must be in the future"})
	}

	appt.ScheduledAt = scheduledAt
	if purpose != "" {
		appt.Purpose = purpose
	}
	if notes != nil {
		appt.Notes = notes
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.publisher.PublishUpdated(ctx, appt)

	return appt, nil
}
