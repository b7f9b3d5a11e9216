package events

import (
	"context"

	"github.com/brgycare/brgycare-backend/internal/appointment/repository"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/messaging"
)

// Publisher publishes appointment-related events. A nil Publisher is a
// no-op.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new appointment event publisher
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePatientEvents, "appointment-service", log)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishScheduled publishes an appointment scheduled event
func (p *Publisher) PublishScheduled(ctx context.Context, appt *repository.Appointment) {
	if p == nil {
		return
	}

	data := messaging.AppointmentScheduledEvent{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		ScheduledAt:   appt.ScheduledAt,
		Purpose:       appt.Purpose,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAppointmentScheduled, data); err != nil {
		p.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("failed to publish appointment scheduled event")
	}
}

// PublishUpdated publishes an appointment updated event
func (p *Publisher) PublishUpdated(ctx context.Context, appt *repository.Appointment) {
	if p == nil {
		return
	}

	data := messaging.AppointmentScheduledEvent{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		ScheduledAt:   appt.ScheduledAt,
		Purpose:       appt.Purpose,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAppointmentUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("failed to publish appointment updated event")
	}
}
