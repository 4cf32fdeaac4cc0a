package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/orms-api/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	// PatientRepository handles patient rows and their latest-visit projection
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id string) (*model.Patient, error)
		// GetForUpdate reads the patient and locks its row until the
		// surrounding transaction ends.
		GetForUpdate(ctx context.Context, id string) (*model.Patient, error)
		GetRecord(ctx context.Context, id string) (*model.PatientRecord, error)
		List(ctx context.Context, filters model.PatientFilters) ([]model.PatientRecord, error)
		Queue(ctx context.Context) ([]model.PatientRecord, error)
		Stats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error)
		Update(ctx context.Context, id string, changes PatientChanges) error
		Delete(ctx context.Context, id string) error
	}

	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit) error
		// Latest returns the visit with the greatest visit_datetime.
		Latest(ctx context.Context, patientID string) (*model.Visit, error)
		ListByPatient(ctx context.Context, patientID string) ([]model.VisitDetail, error)
		// FollowUpOn returns a visit whose follow-up date is the calendar day
		// of day, searching all of the patient's visits.
		FollowUpOn(ctx context.Context, patientID string, day time.Time) (*model.VisitDetail, error)
		Update(ctx context.Context, id string, changes VisitChanges) error
		DeleteByPatient(ctx context.Context, patientID string) error
	}

	BillRepository interface {
		Create(ctx context.Context, bill *model.Bill) error
		Get(ctx context.Context, id string) (*model.Bill, error)
		GetRecord(ctx context.Context, id string) (*model.BillRecord, error)
		List(ctx context.Context, filters model.InvoiceFilters) ([]model.BillRecord, error)
		// FindPendingForDay returns the most recent pending bill of the
		// patient with dayStart <= billing_date < dayEnd.
		FindPendingForDay(ctx context.Context, patientID string, dayStart, dayEnd time.Time) (*model.Bill, error)
		Update(ctx context.Context, id string, changes BillChanges) error
		DeleteByPatient(ctx context.Context, patientID string) error

		Items(ctx context.Context, billID string) ([]model.BillService, error)
		ItemsForBills(ctx context.Context, billIDs []string) (map[string][]model.BillService, error)
		// FindItem matches serviceName exactly against the bill's line items.
		FindItem(ctx context.Context, billID, serviceName string) (*model.BillService, error)
		AddItem(ctx context.Context, item *model.BillService) error
		UpdateItem(ctx context.Context, item *model.BillService) error
		DeleteItemsByPatient(ctx context.Context, patientID string) error
	}

	// ClinicalRepository covers the visit children that only take part in
	// the patient delete cascade.
	ClinicalRepository interface {
		DeleteDiagnosesByPatient(ctx context.Context, patientID string) error
		DeletePrescriptionsByPatient(ctx context.Context, patientID string) error
	}

	ReferenceRepository interface {
		Departments(ctx context.Context) ([]model.Department, error)
		Doctors(ctx context.Context) ([]model.Doctor, error)
		DoctorsByDepartment(ctx context.Context, departmentID string) ([]string, error)
		FindDoctorByName(ctx context.Context, firstName, lastName string) (string, error)
		Services(ctx context.Context) ([]model.Service, error)
		GetService(ctx context.Context, id string) (*model.Service, error)
		PaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
		FindPaymentMethod(ctx context.Context, name string) (*model.PaymentMethod, error)
	}

	UserRepository interface {
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		GetByID(ctx context.Context, id int64) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
		UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending locks up to limit due events, skipping rows another
		// worker holds.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		ScheduleRetry(ctx context.Context, id uuid.UUID, retryAt time.Time, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Store is the data store handed to every service. Repositories obtained
	// inside WithTx share the transaction; returning an error from fn rolls
	// everything back.
	Store interface {
		Patients() PatientRepository
		Visits() VisitRepository
		Bills() BillRepository
		Clinical() ClinicalRepository
		Reference() ReferenceRepository
		Users() UserRepository
		Outbox() OutboxRepository

		WithTx(ctx context.Context, fn func(tx Store) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
