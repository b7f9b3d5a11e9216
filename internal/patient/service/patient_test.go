package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brgycare/brgycare-backend/internal/patient/repository"
	"github.com/brgycare/brgycare-backend/internal/patient/service"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/testutil"
)

func newPatientService(mockDB *testutil.MockDB) *service.PatientService {
	log := logger.New("test", "test")
	return service.NewPatientService(
		mockDB.DB,
		repository.NewPatientRepository(mockDB.DB),
		repository.NewUserRepository(mockDB.DB),
		nil,
		log,
	)
}

func registerRequest() *service.RegisterPatientRequest {
	return &service.RegisterPatientRequest{
		FirstName:   "Maria",
		LastName:    "Santos",
		DateOfBirth: time.Date(1990, 5, 14, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
	}
}

func TestPatientRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("without credentials creates only the patient row", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		svc := newPatientService(mockDB)

		mockDB.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM patients WHERE created_at`).
			WillReturnRows(testutil.MockRows("count").AddRow(4))
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(`INSERT INTO patients`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectCommit()

		patient, err := svc.Register(ctx, registerRequest())
		require.NoError(t, err)

		assert.NotEmpty(t, patient.ID)
		assert.Regexp(t, `^PT-\d{4}-0005$`, patient.PatientNumber)
		assert.Nil(t, patient.UserID)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("with credentials creates the account in the same transaction", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		svc := newPatientService(mockDB)

		req := registerRequest()
		req.Email = "maria@example.com"
		req.Password = "s3cret!"

		mockDB.Mock.ExpectQuery(`SELECT id, email, password_hash`).
			WithArgs("maria@example.com").
			WillReturnRows(testutil.MockRows("id"))
		mockDB.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM patients WHERE created_at`).
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(`INSERT INTO users`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectExec(`INSERT INTO patients`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectCommit()

		patient, err := svc.Register(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, patient.UserID)
		assert.NotEmpty(t, *patient.UserID)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("patient insert failure rolls back the account", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		svc := newPatientService(mockDB)

		req := registerRequest()
		req.Email = "maria@example.com"
		req.Password = "s3cret!"

		mockDB.Mock.ExpectQuery(`SELECT id, email, password_hash`).
			WillReturnRows(testutil.MockRows("id"))
		mockDB.Mock.ExpectQuery(`SELECT COUNT\(\*\) FROM patients WHERE created_at`).
			WillReturnRows(testutil.MockRows("count").AddRow(0))
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(`INSERT INTO users`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectExec(`INSERT INTO patients`).
			WillReturnError(fmt.Errorf("insert failed"))
		mockDB.Mock.ExpectRollback()

		_, err := svc.Register(ctx, req)
		require.Error(t, err)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("email without password is rejected", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()
		svc := newPatientService(mockDB)

		req := registerRequest()
		req.Email = "maria@example.com"

		_, err := svc.Register(ctx, req)
		require.Error(t, err)

		mockDB.ExpectationsWereMet(t)
	})
}
