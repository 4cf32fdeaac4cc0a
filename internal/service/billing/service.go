// Package billing reconciles service requests with visits and bills: a
// request either merges into the patient's pending bill of the day or opens
// a new visit and bill.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/orms-api/internal/email"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/internal/service/event"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

type Config struct {
	TaxRate         float64
	DefaultDoctorID string
}

// Submission is the outcome of SubmitServiceRequest.
type Submission struct {
	Invoice *model.BillRecord
	Merged  bool
}

// InvoiceUpdate carries the optional fields of UpdateInvoiceStatus.
type InvoiceUpdate struct {
	Status        *string
	PaymentMethod *string
	PaidDate      *string
}

type Service struct {
	store   repository.Store
	events  event.Emitter
	mailer  email.Service
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
}

func NewService(store repository.Store, events event.Emitter, mailer email.Service, m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		store:   store,
		events:  events,
		mailer:  mailer,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock replaces the clock that decides "now" and "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func validateItems(items []model.LineItem) error {
	if len(items) == 0 {
		return apperrors.NewBadRequest("At least one service item is required", nil)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return apperrors.NewBadRequest(fmt.Sprintf("items[%d].description is required", i), nil)
		}
		if item.Quantity <= 0 {
			return apperrors.NewBadRequest(fmt.Sprintf("items[%d].quantity must be greater than 0", i), nil)
		}
		if item.UnitPrice < 0 {
			return apperrors.NewBadRequest(fmt.Sprintf("items[%d].unitPrice must not be negative", i), nil)
		}
	}
	return nil
}

// SubmitServiceRequest attaches req.Items to today's pending bill of the
// patient, or opens a new visit and bill when there is none. The patient
// row stays locked until the decision is committed.
func (s *Service) SubmitServiceRequest(ctx context.Context, auth model.AuthContext, req model.ServiceRequest) (*Submission, error) {
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, apperrors.NewBadRequest("Patient ID is required", nil)
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	now := s.now()
	var result Submission

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Patients().GetForUpdate(ctx, req.PatientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Patient", err)
			}
			return err
		}

		dayStart, dayEnd := model.DayBounds(now)
		pending, err := tx.Bills().FindPendingForDay(ctx, req.PatientID, dayStart, dayEnd)
		switch {
		case err == nil:
			result.Merged = true
			if err := s.merge(ctx, tx, pending, req.Items); err != nil {
				return err
			}
			result.Invoice, err = tx.Bills().GetRecord(ctx, pending.ID)
		case errors.Is(err, repository.ErrNotFound):
			var billID string
			billID, err = s.create(ctx, tx, auth, req, now)
			if err != nil {
				return err
			}
			result.Invoice, err = tx.Bills().GetRecord(ctx, billID)
		}
		if err != nil {
			return err
		}

		eventType := model.EventInvoiceCreated
		if result.Merged {
			eventType = model.EventInvoiceUpdated
		}
		return s.events.Emit(ctx, tx.Outbox(), eventType, event.InvoicePayload{
			InvoiceID: model.InvoiceID(result.Invoice.ID),
			PatientID: result.Invoice.PatientID,
			VisitID:   result.Invoice.VisitID,
			Total:     result.Invoice.Total,
			Status:    strings.ToLower(result.Invoice.Status),
			Merged:    result.Merged,
			UserID:    auth.UserID,
		})
	})
	if err != nil {
		return nil, wrap(err)
	}

	path := "create"
	if result.Merged {
		path = "merge"
	}
	s.metrics.InvoicesSubmitted.WithLabelValues(path).Inc()

	log.Info().
		Str("patient_id", req.PatientID).
		Str("bill_id", result.Invoice.ID).
		Bool("merged", result.Merged).
		Int("items", len(req.Items)).
		Msg("service request submitted")

	return &result, nil
}

// merge applies items to bill one by one: an exact description match adds
// the quantity and takes the new price, anything else becomes a new line.
func (s *Service) merge(ctx context.Context, tx repository.Store, bill *model.Bill, items []model.LineItem) error {
	for _, item := range items {
		existing, err := tx.Bills().FindItem(ctx, bill.ID, item.Description)
		switch {
		case err == nil:
			existing.Quantity += item.Quantity
			existing.Amount = item.UnitPrice
			if err := tx.Bills().UpdateItem(ctx, existing); err != nil {
				return err
			}
			s.metrics.LineItemsWritten.WithLabelValues("merged").Inc()
		case errors.Is(err, repository.ErrNotFound):
			if err := tx.Bills().AddItem(ctx, lineItem(bill.ID, item)); err != nil {
				return err
			}
			s.metrics.LineItemsWritten.WithLabelValues("inserted").Inc()
		default:
			return err
		}
	}

	lines, err := tx.Bills().Items(ctx, bill.ID)
	if err != nil {
		return err
	}
	subtotal, tax, total := model.Totals(lines, s.cfg.TaxRate)

	var changes repository.BillChanges
	changes.Set(repository.BillSubtotal, subtotal).
		Set(repository.BillTax, tax).
		Set(repository.BillTotal, total)
	return tx.Bills().Update(ctx, bill.ID, changes)
}

func (s *Service) create(ctx context.Context, tx repository.Store, auth model.AuthContext, req model.ServiceRequest, now time.Time) (string, error) {
	doctorID, err := s.resolveDoctor(ctx, tx, req)
	if err != nil {
		return "", err
	}

	visit := &model.Visit{
		ID:            model.NewID(model.PrefixVisit),
		PatientID:     req.PatientID,
		DoctorID:      &doctorID,
		VisitDateTime: now,
		Status:        model.VisitStatusWaiting,
		CreatedAt:     now,
	}
	if req.ChiefComplaint != nil {
		visit.ChiefComplaint = *req.ChiefComplaint
	}
	if auth.UserID != 0 {
		userID := auth.UserID
		visit.CreatedByUserID = &userID
	}
	if err := tx.Visits().Create(ctx, visit); err != nil {
		return "", err
	}

	lines := make([]model.BillService, 0, len(req.Items))
	bill := &model.Bill{
		ID:          model.NewID(model.PrefixBill),
		VisitID:     visit.ID,
		PatientID:   req.PatientID,
		Status:      model.BillStatusPending,
		BillingDate: now,
		CreatedAt:   now,
	}
	for _, item := range req.Items {
		lines = append(lines, *lineItem(bill.ID, item))
	}
	bill.Subtotal, bill.Tax, bill.Total = model.Totals(lines, s.cfg.TaxRate)

	if err := tx.Bills().Create(ctx, bill); err != nil {
		return "", err
	}
	for i := range lines {
		if err := tx.Bills().AddItem(ctx, &lines[i]); err != nil {
			return "", err
		}
	}
	s.metrics.LineItemsWritten.WithLabelValues("inserted").Add(float64(len(lines)))

	return bill.ID, nil
}

// resolveDoctor picks the requested doctor, else the doctor of the latest
// visit, else the configured default.
func (s *Service) resolveDoctor(ctx context.Context, tx repository.Store, req model.ServiceRequest) (string, error) {
	if req.DoctorID != nil && strings.TrimSpace(*req.DoctorID) != "" {
		return *req.DoctorID, nil
	}

	latest, err := tx.Visits().Latest(ctx, req.PatientID)
	switch {
	case err == nil:
		if latest.DoctorID != nil && *latest.DoctorID != "" {
			return *latest.DoctorID, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}
	return s.cfg.DefaultDoctorID, nil
}

func lineItem(billID string, item model.LineItem) *model.BillService {
	return &model.BillService{
		ID:          model.NewID(model.PrefixLineItem),
		BillID:      billID,
		ServiceName: item.Description,
		Amount:      item.UnitPrice,
		Quantity:    item.Quantity,
	}
}

// UpdateInvoiceStatus changes the status, payment method and paid date of a
// bill. Unknown payment method names are skipped; a request left with no
// change after that is rejected.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, auth model.AuthContext, invoiceID string, update InvoiceUpdate) (*model.BillRecord, error) {
	billID := model.BillID(invoiceID)
	now := s.now()

	status := trimmed(update.Status)
	method := trimmed(update.PaymentMethod)
	paidDate := trimmed(update.PaidDate)
	if status == "" && method == "" && paidDate == "" {
		return nil, apperrors.NewBadRequest("No fields to update", nil)
	}

	var (
		record     *model.BillRecord
		becamePaid bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		bill, err := tx.Bills().Get(ctx, billID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Invoice", err)
			}
			return err
		}

		var changes repository.BillChanges
		if status != "" {
			changes.Set(repository.BillStatus, canonicalStatus(status))
		}
		if method != "" {
			pm, err := tx.Reference().FindPaymentMethod(ctx, method)
			switch {
			case err == nil:
				changes.Set(repository.BillPaymentMethodID, pm.ID)
			case errors.Is(err, repository.ErrNotFound):
				log.Warn().Str("bill_id", billID).Str("payment_method", method).
					Msg("unknown payment method ignored")
			default:
				return err
			}
		}
		if paidDate != "" {
			at, err := model.ParseTimestamp(paidDate)
			if err != nil {
				return apperrors.NewBadRequest("Invalid paidDate", err)
			}
			changes.Set(repository.BillPaymentDate, at)
		} else if strings.EqualFold(status, model.BillStatusPaid) {
			changes.Set(repository.BillPaymentDate, now)
		}
		if changes.Empty() {
			return apperrors.NewBadRequest("No fields to update", nil)
		}

		if err := tx.Bills().Update(ctx, billID, changes); err != nil {
			return err
		}

		record, err = tx.Bills().GetRecord(ctx, billID)
		if err != nil {
			return err
		}

		payload := event.InvoicePayload{
			InvoiceID: model.InvoiceID(billID),
			PatientID: record.PatientID,
			VisitID:   record.VisitID,
			Total:     record.Total,
			Status:    strings.ToLower(record.Status),
			UserID:    auth.UserID,
		}
		becamePaid = !strings.EqualFold(bill.Status, model.BillStatusPaid) &&
			strings.EqualFold(record.Status, model.BillStatusPaid)
		if becamePaid {
			return s.events.Emit(ctx, tx.Outbox(), model.EventInvoicePaid, payload)
		}
		return s.events.Emit(ctx, tx.Outbox(), model.EventInvoiceUpdated, payload)
	})
	if err != nil {
		return nil, wrap(err)
	}

	if becamePaid {
		s.metrics.InvoicesPaid.Inc()
		s.sendReceipt(ctx, record)
	}
	return record, nil
}

func (s *Service) sendReceipt(ctx context.Context, record *model.BillRecord) {
	if record.Email == nil || strings.TrimSpace(*record.Email) == "" {
		return
	}

	receipt := email.Receipt{
		To:          *record.Email,
		PatientName: strings.TrimSpace(deref(record.FirstName) + " " + deref(record.LastName)),
		InvoiceID:   model.InvoiceID(record.ID),
		Subtotal:    record.Subtotal,
		Tax:         record.Tax,
		Total:       record.Total,
		PaidAt:      s.now(),
	}
	if record.PaymentDate != nil {
		receipt.PaidAt = *record.PaymentDate
	}
	if record.PaymentMethodName != nil {
		receipt.PaymentMethod = *record.PaymentMethodName
	}
	for _, item := range record.Items {
		receipt.Items = append(receipt.Items, email.ReceiptLine{
			Description: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Amount,
		})
	}

	if err := s.mailer.SendReceipt(ctx, receipt); err != nil {
		log.Error().Err(err).Str("bill_id", record.ID).Msg("failed to send receipt")
	}
}

func (s *Service) GetInvoice(ctx context.Context, invoiceID string) (*model.BillRecord, error) {
	record, err := s.store.Bills().GetRecord(ctx, model.BillID(invoiceID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Invoice", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return record, nil
}

func (s *Service) ListInvoices(ctx context.Context, filters model.InvoiceFilters) ([]model.BillRecord, error) {
	records, err := s.store.Bills().List(ctx, filters)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return records, nil
}

// UpdatePatientVisitStatus moves the patient's latest visit to status. The
// first transition to checked-in stamps the check-in time.
func (s *Service) UpdatePatientVisitStatus(ctx context.Context, auth model.AuthContext, patientID, status string) (*model.PatientRecord, error) {
	if strings.TrimSpace(status) == "" {
		return nil, apperrors.NewBadRequest("Status is required", nil)
	}
	target, err := model.ParseVisitStatus(status)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid status", err)
	}

	var record *model.PatientRecord
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Patients().Get(ctx, patientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Patient", err)
			}
			return err
		}

		visit, err := tx.Visits().Latest(ctx, patientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("Visit", err)
			}
			return err
		}

		var changes repository.VisitChanges
		changes.Set(repository.VisitStatusID, target)
		if target == model.VisitStatusCheckedIn && visit.CheckInDateTime == nil {
			changes.Set(repository.VisitCheckInDateTime, s.now())
		}
		if err := tx.Visits().Update(ctx, visit.ID, changes); err != nil {
			return err
		}

		record, err = tx.Patients().GetRecord(ctx, patientID)
		if err != nil {
			return err
		}

		return s.events.Emit(ctx, tx.Outbox(), model.EventVisitStatusChanged, event.VisitStatusPayload{
			PatientID: patientID,
			VisitID:   visit.ID,
			From:      visit.Status.String(),
			To:        target.String(),
			UserID:    auth.UserID,
		})
	})
	if err != nil {
		return nil, wrap(err)
	}
	return record, nil
}

// CheckFollowUp looks for a visit of the patient with a follow-up due today.
func (s *Service) CheckFollowUp(ctx context.Context, patientID string) (*model.FollowUp, error) {
	visit, err := s.store.Visits().FollowUpOn(ctx, patientID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.FollowUp{}, nil
		}
		return nil, apperrors.NewInternal(err)
	}
	return &model.FollowUp{HasFollowUp: true, Visit: visit}, nil
}

// ListPatientVisits returns every visit of the patient, newest first.
func (s *Service) ListPatientVisits(ctx context.Context, patientID string) ([]model.VisitDetail, error) {
	if _, err := s.store.Patients().Get(ctx, patientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Patient", err)
		}
		return nil, apperrors.NewInternal(err)
	}

	visits, err := s.store.Visits().ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return visits, nil
}

// canonicalStatus stores the known bill statuses in their usual casing.
func canonicalStatus(status string) string {
	switch {
	case strings.EqualFold(status, model.BillStatusPaid):
		return model.BillStatusPaid
	case strings.EqualFold(status, model.BillStatusPending):
		return model.BillStatusPending
	}
	return status
}

// wrap passes AppErrors through and hides everything else behind an
// internal error.
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

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
