package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/internal/service/event"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
)

const consultationFeeName = "Consultation Fee"

type Config struct {
	TaxRate                   float64
	ConsultationFallbackPrice float64
}

// Registration is a newly registered patient with the invoice opened for
// the consultation.
type Registration struct {
	Patient *model.PatientRecord
	Invoice *model.BillRecord
}

type Service struct {
	store  repository.Store
	events event.Emitter
	cfg    Config
	now    func() time.Time
}

func NewService(store repository.Store, events event.Emitter, cfg Config) *Service {
	return &Service{
		store:  store,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func validateCreate(req model.CreatePatientRequest) error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"dateOfBirth", req.DateOfBirth},
		{"gender", req.Gender},
		{"phone", req.Phone},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return apperrors.NewBadRequest(fmt.Sprintf("%s is required", field.name), nil)
		}
	}
	return nil
}

// Create registers a patient, opens a waiting visit and bills the
// consultation fee, all in one transaction.
func (s *Service) Create(ctx context.Context, auth model.AuthContext, req model.CreatePatientRequest) (*Registration, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	dob, err := model.ParseTimestamp(req.DateOfBirth)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid dateOfBirth", err)
	}
	var followUp *time.Time
	if req.HasFollowUp && req.FollowUpDate != nil && strings.TrimSpace(*req.FollowUpDate) != "" {
		at, err := model.ParseTimestamp(*req.FollowUpDate)
		if err != nil {
			return nil, apperrors.NewBadRequest("Invalid followUpDate", err)
		}
		followUp = &at
	}

	now := s.now()
	sexID, ok := model.SexID(req.Sex)
	if !ok {
		sexID = model.DefaultSexID
	}
	genderID, ok := model.GenderIdentityID(req.Gender)
	if !ok {
		genderID = model.DefaultGenderIdentityID
	}

	patient := &model.Patient{
		ID:                           model.NewID(model.PrefixPatient),
		FirstName:                    strings.TrimSpace(req.FirstName),
		LastName:                     strings.TrimSpace(req.LastName),
		DateOfBirth:                  &dob,
		SexID:                        sexID,
		GenderIdentityID:             genderID,
		Phone:                        req.Phone,
		Email:                        req.Email,
		Address:                      req.Address,
		EmergencyContactName:         req.EmergencyContact,
		EmergencyContactRelationship: req.EmergencyContactRelationship,
		EmergencyContactPhone:        req.EmergencyPhone,
		CreatedAt:                    now,
	}

	var result Registration
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Patients().Create(ctx, patient); err != nil {
			return err
		}

		doctorID, err := findDoctor(ctx, tx, req.AssignedDoctor)
		if err != nil {
			return err
		}

		visit := &model.Visit{
			ID:            model.NewID(model.PrefixVisit),
			PatientID:     patient.ID,
			DoctorID:      doctorID,
			VisitDateTime: now,
			Status:        model.VisitStatusWaiting,
			Notes:         req.MedicalNotes,
			FollowUpDate:  followUp,
			CreatedAt:     now,
		}
		if auth.UserID != 0 {
			userID := auth.UserID
			visit.CreatedByUserID = &userID
		}
		if err := tx.Visits().Create(ctx, visit); err != nil {
			return err
		}

		price, err := s.consultationPrice(ctx, tx)
		if err != nil {
			return err
		}
		bill := &model.Bill{
			ID:          model.NewID(model.PrefixBill),
			VisitID:     visit.ID,
			PatientID:   patient.ID,
			Status:      model.BillStatusPending,
			BillingDate: now,
			CreatedAt:   now,
		}
		fee := model.BillService{
			ID:          model.NewID(model.PrefixLineItem),
			BillID:      bill.ID,
			ServiceName: consultationFeeName,
			Amount:      price,
			Quantity:    1,
		}
		bill.Subtotal, bill.Tax, bill.Total = model.Totals([]model.BillService{fee}, s.cfg.TaxRate)
		if err := tx.Bills().Create(ctx, bill); err != nil {
			return err
		}
		if err := tx.Bills().AddItem(ctx, &fee); err != nil {
			return err
		}

		if result.Patient, err = tx.Patients().GetRecord(ctx, patient.ID); err != nil {
			return err
		}
		if result.Invoice, err = tx.Bills().GetRecord(ctx, bill.ID); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx.Outbox(), model.EventPatientRegistered, event.PatientPayload{
			PatientID: patient.ID,
			VisitID:   visit.ID,
			InvoiceID: model.InvoiceID(bill.ID),
			UserID:    auth.UserID,
		})
	})
	if err != nil {
		return nil, wrap(err)
	}

	log.Info().Str("patient_id", patient.ID).Str("bill_id", result.Invoice.ID).Msg("patient registered")
	return &result, nil
}

// findDoctor resolves "First Last" to a doctor id. Names without a last part
// and unknown doctors resolve to nil.
func findDoctor(ctx context.Context, tx repository.Store, fullName string) (*string, error) {
	first, last, hasLast := model.SplitName(strings.TrimSpace(fullName))
	if first == "" || !hasLast {
		return nil, nil
	}
	id, err := tx.Reference().FindDoctorByName(ctx, first, last)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

func (s *Service) consultationPrice(ctx context.Context, tx repository.Store) (float64, error) {
	svc, err := tx.Reference().GetService(ctx, model.ConsultationServiceID)
	switch {
	case err == nil && svc.IsActive:
		return svc.Price, nil
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return s.cfg.ConsultationFallbackPrice, nil
	}
	return 0, err
}

func (s *Service) Get(ctx context.Context, id string) (*model.PatientRecord, error) {
	record, err := s.store.Patients().GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, filters model.PatientFilters) ([]model.PatientRecord, error) {
	records, err := s.store.Patients().List(ctx, filters)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return records, nil
}

// Queue lists patients whose latest visit is waiting or checked in, oldest
// first.
func (s *Service) Queue(ctx context.Context) ([]model.PatientRecord, error) {
	records, err := s.store.Patients().Queue(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return records, nil
}

func (s *Service) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	start, end := model.DayBounds(s.now())
	stats, err := s.store.Patients().Stats(ctx, start, end)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return stats, nil
}

func patientChanges(req model.UpdatePatientRequest) repository.PatientChanges {
	var changes repository.PatientChanges
	if name := trimmed(req.Name); name != "" {
		first, last, hasLast := model.SplitName(name)
		changes.Set(repository.PatientFirstName, first)
		if hasLast {
			changes.Set(repository.PatientLastName, last)
		}
	}
	text := []struct {
		field repository.PatientField
		value *string
	}{
		{repository.PatientPhone, req.Phone},
		{repository.PatientEmail, req.Email},
		{repository.PatientAddress, req.Address},
		{repository.PatientEmergencyContactName, req.EmergencyContact},
		{repository.PatientEmergencyContactRelationship, req.EmergencyContactRelationship},
		{repository.PatientEmergencyContactPhone, req.EmergencyPhone},
	}
	for _, t := range text {
		if v := trimmed(t.value); v != "" {
			changes.Set(t.field, v)
		}
	}
	if id, ok := model.SexID(trimmed(req.Sex)); ok {
		changes.Set(repository.PatientSexID, id)
	}
	if id, ok := model.GenderIdentityID(trimmed(req.Gender)); ok {
		changes.Set(repository.PatientGenderIdentityID, id)
	}
	return changes
}

func (s *Service) visitChanges(ctx context.Context, tx repository.Store, visit *model.Visit, req model.UpdatePatientRequest) (repository.VisitChanges, error) {
	var changes repository.VisitChanges

	if name := trimmed(req.AssignedDoctor); name != "" {
		doctorID, err := findDoctor(ctx, tx, name)
		if err != nil {
			return changes, err
		}
		if doctorID != nil {
			changes.Set(repository.VisitDoctorID, *doctorID)
		}
	}

	if status, err := model.ParseVisitStatus(trimmed(req.Status)); err == nil {
		changes.Set(repository.VisitStatusID, status)
		if status == model.VisitStatusCheckedIn && visit.CheckInDateTime == nil {
			changes.Set(repository.VisitCheckInDateTime, s.now())
		}
	}

	if req.HasFollowUp != nil {
		switch {
		case !*req.HasFollowUp:
			changes.Set(repository.VisitFollowUpDate, nil)
		case trimmed(req.FollowUpDate) != "":
			at, err := model.ParseTimestamp(*req.FollowUpDate)
			if err != nil {
				return changes, apperrors.NewBadRequest("Invalid followUpDate", err)
			}
			changes.Set(repository.VisitFollowUpDate, at)
		}
	}

	if req.MedicalNotes != nil {
		changes.Set(repository.VisitNotes, *req.MedicalNotes)
	}
	return changes, nil
}

// Update applies the fields present in req to the patient and to its latest
// visit. Absent fields and unknown lookup names leave values unchanged.
func (s *Service) Update(ctx context.Context, id string, req model.UpdatePatientRequest) (*model.PatientRecord, error) {
	var record *model.PatientRecord
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Patients().GetForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Patient", err)
			}
			return err
		}

		if err := tx.Patients().Update(ctx, id, patientChanges(req)); err != nil {
			return err
		}

		visit, err := tx.Visits().Latest(ctx, id)
		switch {
		case err == nil:
			changes, err := s.visitChanges(ctx, tx, visit, req)
			if err != nil {
				return err
			}
			if err := tx.Visits().Update(ctx, visit.ID, changes); err != nil {
				return err
			}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		record, err = tx.Patients().GetRecord(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrap(err)
	}
	return record, nil
}

// Delete removes the patient and everything hanging off its visits. Any
// failure leaves the patient untouched.
func (s *Service) Delete(ctx context.Context, auth model.AuthContext, id string) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Patients().GetForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Patient", err)
			}
			return err
		}

		steps := []func(context.Context, string) error{
			tx.Bills().DeleteItemsByPatient,
			tx.Bills().DeleteByPatient,
			tx.Clinical().DeleteDiagnosesByPatient,
			tx.Clinical().DeletePrescriptionsByPatient,
			tx.Visits().DeleteByPatient,
			tx.Patients().Delete,
		}
		for _, step := range steps {
			if err := step(ctx, id); err != nil {
				return err
			}
		}

		return s.events.Emit(ctx, tx.Outbox(), model.EventPatientDeleted, event.PatientPayload{
			PatientID: id,
			UserID:    auth.UserID,
		})
	})
	if err != nil {
		return wrap(err)
	}

	log.Info().Str("patient_id", id).Int64("user_id", auth.UserID).Msg("patient deleted")
	return nil
}

func wrap(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternal(err)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
