package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Patient represents a registered resident of the barangay
type Patient struct {
	ID               string     `db:"id" json:"id"`
	UserID           *string    `db:"user_id" json:"user_id,omitempty"`
	PatientNumber    string     `db:"patient_number" json:"patient_number"`
	FirstName        string     `db:"first_name" json:"first_name"`
	MiddleName       *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName         string     `db:"last_name" json:"last_name"`
	Suffix           *string    `db:"suffix" json:"suffix,omitempty"`
	DateOfBirth      time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender           string     `db:"gender" json:"gender"`
	CivilStatus      *string    `db:"civil_status" json:"civil_status,omitempty"`
	ContactNumber    *string    `db:"contact_number" json:"contact_number,omitempty"`
	Street           *string    `db:"street" json:"street,omitempty"`
	Purok            *string    `db:"purok" json:"purok,omitempty"`
	PhilHealthNumber *string    `db:"philhealth_number" json:"philhealth_number,omitempty"`
	BloodType        *string    `db:"blood_type" json:"blood_type,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   *string    `db:"emergency_phone" json:"emergency_phone,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"-"`
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	name := p.FirstName + " " + p.LastName
	if p.Suffix != nil && *p.Suffix != "" {
		name += " " + *p.Suffix
	}
	return name
}

const patientColumns = `id, user_id, patient_number, first_name, middle_name, last_name, suffix,
	date_of_birth, gender, civil_status, contact_number, street, purok,
	philhealth_number, blood_type, emergency_contact, emergency_phone,
	created_at, updated_at`

// PatientRepository handles patient persistence
type PatientRepository struct {
	db *database.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *database.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// CreateTx creates a patient inside an existing transaction
func (r *PatientRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, patient *Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	query := `
		INSERT INTO patients (
			id, user_id, patient_number, first_name, middle_name, last_name, suffix,
			date_of_birth, gender, civil_status, contact_number, street, purok,
			philhealth_number, blood_type, emergency_contact, emergency_phone,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := tx.ExecContext(ctx, query,
		patient.ID, patient.UserID, patient.PatientNumber, patient.FirstName,
		patient.MiddleName, patient.LastName, patient.Suffix, patient.DateOfBirth,
		patient.Gender, patient.CivilStatus, patient.ContactNumber, patient.Street,
		patient.Purok, patient.PhilHealthNumber, patient.BloodType,
		patient.EmergencyContact, patient.EmergencyPhone,
		patient.CreatedAt, patient.UpdatedAt,
	)
	return err
}

// GetByID gets a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	var patient Patient
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1 AND deleted_at IS NULL`, patientColumns)
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("patient")
		}
		return nil, err
	}
	return &patient, nil
}

// GetByPatientNumber gets a patient by their assigned number
func (r *PatientRepository) GetByPatientNumber(ctx context.Context, number string) (*Patient, error) {
	var patient Patient
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE patient_number = $1 AND deleted_at IS NULL`, patientColumns)
	if err := r.db.GetContext(ctx, &patient, query, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("patient")
		}
		return nil, err
	}
	return &patient, nil
}

// List lists patients with pagination and optional name search
func (r *PatientRepository) List(ctx context.Context, page, perPage int, search string) ([]*Patient, int64, error) {
	countQuery := `SELECT COUNT(*) FROM patients WHERE deleted_at IS NULL`
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE deleted_at IS NULL`, patientColumns)

	args := []interface{}{}
	if search != "" {
		filter := ` AND (first_name LIKE $1 OR last_name LIKE $1 OR patient_number LIKE $1)`
		countQuery += filter
		query += filter
		args = append(args, "%"+search+"%")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT %d OFFSET %d`, perPage, (page-1)*perPage)

	var patients []*Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

// CountForYear counts patients registered in a given year, used when
// generating sequential patient numbers.
func (r *PatientRepository) CountForYear(ctx context.Context, year int) (int, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int
	query := `SELECT COUNT(*) FROM patients WHERE created_at >= $1 AND created_at < $2`
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, err
	}
	return count, nil
}

// Update updates a patient's demographic fields
func (r *PatientRepository) Update(ctx context.Context, patient *Patient) error {
	patient.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE patients SET
			first_name = $2, middle_name = $3, last_name = $4, suffix = $5,
			date_of_birth = $6, gender = $7, civil_status = $8, contact_number = $9,
			street = $10, purok = $11, philhealth_number = $12, blood_type = $13,
			emergency_contact = $14, emergency_phone = $15, updated_at = $16
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		patient.ID, patient.FirstName, patient.MiddleName, patient.LastName,
		patient.Suffix, patient.DateOfBirth, patient.Gender, patient.CivilStatus,
		patient.ContactNumber, patient.Street, patient.Purok, patient.PhilHealthNumber,
		patient.BloodType, patient.EmergencyContact, patient.EmergencyPhone,
		patient.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("patient")
	}

	return nil
}

// SoftDelete soft deletes a patient
func (r *PatientRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE patients SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("patient")
	}

	return nil
}
