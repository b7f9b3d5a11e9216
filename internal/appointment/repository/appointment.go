package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Appointment statuses
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Appointment represents a scheduled health center visit
type Appointment struct {
	ID          string    `db:"id" json:"id"`
	PatientID   string    `db:"patient_id" json:"patient_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Purpose     string    `db:"purpose" json:"purpose"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const appointmentColumns = `id, patient_id, scheduled_at, purpose, notes, status, created_at, updated_at`

// AppointmentRepository handles appointment persistence
type AppointmentRepository struct {
	db *database.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create creates a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.Status == "" {
		appt.Status = StatusScheduled
	}

	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	query := `
		INSERT INTO appointments (id, patient_id, scheduled_at, purpose, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		appt.ID, appt.PatientID, appt.ScheduledAt, appt.Purpose, appt.Notes,
		appt.Status, appt.CreatedAt, appt.UpdatedAt,
	)
	return err
}

// GetByID gets an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("appointment")
		}
		return nil, err
	}
	return &appt, nil
}

// ListByPatient lists a patient's appointments, most recent first
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE patient_id = $1 ORDER BY scheduled_at DESC`,
		appointmentColumns)

	var appts []*Appointment
	if err := r.db.SelectContext(ctx, &appts, query, patientID); err != nil {
		return nil, err
	}
	return appts, nil
}

// ListForDay lists appointments scheduled within a calendar day
func (r *AppointmentRepository) ListForDay(ctx context.Context, day time.Time) ([]*Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := fmt.Sprintf(`SELECT %s FROM appointments
		WHERE scheduled_at >= $1 AND scheduled_at < $2 ORDER BY scheduled_at`,
		appointmentColumns)

	var appts []*Appointment
	if err := r.db.SelectContext(ctx, &appts, query, start, end); err != nil {
		return nil, err
	}
	return appts, nil
}

// Update updates an appointment's schedule, purpose, notes and status
func (r *AppointmentRepository) Update(ctx context.Context, appt *Appointment) error {
	appt.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE appointments SET
			scheduled_at = $2, purpose = $3, notes = $4, status = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		appt.ID, appt.ScheduledAt, appt.Purpose, appt.Notes, appt.Status, appt.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("appointment")
	}

	return nil
}
