package events

import (
	"context"

	"github.com/brgycare/brgycare-backend/internal/patient/repository"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/messaging"
)

// Publisher publishes patient-related events. A nil Publisher is a no-op.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new patient event publisher
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePatientEvents, "patient-service", log)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishPatientRegistered publishes a patient registered event
func (p *Publisher) PublishPatientRegistered(ctx context.Context, patient *repository.Patient) {
	if p == nil {
		return
	}

	userID := ""
	if patient.UserID != nil {
		userID = *patient.UserID
	}

	data := messaging.PatientRegisteredEvent{
		PatientID: patient.ID,
		UserID:    userID,
		FullName:  patient.FullName(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientRegistered, data); err != nil {
		p.logger.Error().Err(err).Str("patient_id", patient.ID).Msg("failed to publish patient registered event")
	}
}
