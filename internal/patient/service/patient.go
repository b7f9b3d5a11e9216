package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/brgycare/brgycare-backend/internal/patient/events"
	"github.com/brgycare/brgycare-backend/internal/patient/repository"
	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
	"github.com/brgycare/brgycare-backend/pkg/logger"
)

// PatientService handles patient business logic
type PatientService struct {
	db          *database.DB
	patientRepo *repository.PatientRepository
	userRepo    *repository.UserRepository
	publisher   *events.Publisher
	logger      *logger.Logger
	now         func() time.Time
}

// NewPatientService creates a new patient service
func NewPatientService(
	db *database.DB,
	patientRepo *repository.PatientRepository,
	userRepo *repository.UserRepository,
	publisher *events.Publisher,
	log *logger.Logger,
) *PatientService {
	return &PatientService{
		db:          db,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		logger:      log,
		now:         time.Now,
	}
}

// RegisterPatientRequest represents a patient registration request. Email
// and password are optional; when present a login account is created
// alongside the patient record.
type RegisterPatientRequest struct {
	FirstName        string    `json:"first_name" validate:"required"`
	MiddleName       *string   `json:"middle_name"`
	LastName         string    `json:"last_name" validate:"required"`
	Suffix           *string   `json:"suffix"`
	DateOfBirth      time.Time `json:"date_of_birth" validate:"required"`
	Gender           string    `json:"gender" validate:"required,oneof=male female"`
	CivilStatus      *string   `json:"civil_status"`
	ContactNumber    *string   `json:"contact_number"`
	Street           *string   `json:"street"`
	Purok            *string   `json:"purok"`
	PhilHealthNumber *string   `json:"philhealth_number"`
	BloodType        *string   `json:"blood_type"`
	EmergencyContact *string   `json:"emergency_contact"`
	EmergencyPhone   *string   `json:"emergency_phone"`

	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// Register creates a patient record, and when credentials are supplied, a
// login account, in a single transaction.
func (s *PatientService) Register(ctx context.Context, req *RegisterPatientRequest) (*repository.Patient, error) {
	if req.Email != "" && req.Password == "" {
		return nil, errors.Validation(map[string]string{"password": "this field is required"})
	}

	if req.Email != "" {
		existing, _ := s.userRepo.GetByEmail(ctx, req.Email)
		if existing != nil {
			return nil, errors.Conflict("email already in use")
		}
	}

	number, err := s.nextPatientNumber(ctx)
	if err != nil {
		return nil, err
	}

	patient := &repository.Patient{
		PatientNumber:    number,
		FirstName:        req.FirstName,
		MiddleName:       req.MiddleName,
		LastName:         req.LastName,
		Suffix:           req.Suffix,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		CivilStatus:      req.CivilStatus,
		ContactNumber:    req.ContactNumber,
		Street:           req.Street,
		Purok:            req.Purok,
		PhilHealthNumber: req.PhilHealthNumber,
		BloodType:        req.BloodType,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if req.Email != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return errors.Internal("failed to hash password")
			}

			user := &repository.User{
				Email:        req.Email,
				PasswordHash: string(hashed),
				Role:         "patient",
				IsActive:     true,
			}
			if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
				return err
			}
			patient.UserID = &user.ID
		}

		return s.patientRepo.CreateTx(ctx, tx, patient)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", patient.ID).
		Str("patient_number", patient.PatientNumber).
		Msg("patient registered")

	s.publisher.PublishPatientRegistered(ctx, patient)

	return patient, nil
}

// nextPatientNumber generates a sequential number like PT-2026-0042
func (s *PatientService) nextPatientNumber(ctx context.Context) (string, error) {
	year := s.now().UTC().Year()
	count, err := s.patientRepo.CountForYear(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PT-%d-%04d", year, count+1), nil
}

// Get gets a patient by ID
func (s *PatientService) Get(ctx context.Context, id string) (*repository.Patient, error) {
	return s.patientRepo.GetByID(ctx, id)
}

// List lists patients with pagination and optional search
func (s *PatientService) List(ctx context.Context, page, perPage int, search string) ([]*repository.Patient, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.patientRepo.List(ctx, page, perPage, search)
}

// Update updates a patient's demographic fields
func (s *PatientService) Update(ctx context.Context, patient *repository.Patient) error {
	return s.patientRepo.Update(ctx, patient)
}

// Delete soft deletes a patient
func (s *PatientService) Delete(ctx context.Context, id string) error {
	return s.patientRepo.SoftDelete(ctx, id)
}
