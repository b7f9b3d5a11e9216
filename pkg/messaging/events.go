package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory events
	EventStockAdjusted  = "inventory.stock.adjusted"
	EventBatchCreated   = "inventory.batch.created"
	EventAlertGenerated = "inventory.alert.generated"

	// Patient events
	EventPatientRegistered = "patient.registered"

	// Appointment events
	EventAppointmentScheduled = "appointment.scheduled"
	EventAppointmentUpdated   = "appointment.updated"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangePatientEvents   = "patient.events"
)

// Event is the base event structure
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockAdjustedEvent is published when stock is consumed or received
type StockAdjustedEvent struct {
	Family      string `json:"family"`
	ItemID      string `json:"item_id"`
	BatchID     string `json:"batch_id,omitempty"`
	Delta       int    `json:"delta"`
	TotalStock  int    `json:"total_stock"`
	Status      string `json:"status"`
	PerformedBy string `json:"performed_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// BatchCreatedEvent is published when a new batch is received
type BatchCreatedEvent struct {
	Family           string    `json:"family"`
	ItemID           string    `json:"item_id"`
	BatchID          string    `json:"batch_id"`
	BatchNumber      string    `json:"batch_number"`
	QuantityReceived int       `json:"quantity_received"`
	ExpiryDate       time.Time `json:"expiry_date"`
}

// AlertGeneratedEvent is published when an inventory alert is generated
type AlertGeneratedEvent struct {
	AlertID   string `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Family    string `json:"family,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
}

// PatientRegisteredEvent is published when a patient record is created
type PatientRegisteredEvent struct {
	PatientID string `json:"patient_id"`
	UserID    string `json:"user_id,omitempty"`
	FullName  string `json:"full_name"`
}

// AppointmentScheduledEvent is published when an appointment is scheduled
type AppointmentScheduledEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Purpose       string    `json:"purpose"`
}
