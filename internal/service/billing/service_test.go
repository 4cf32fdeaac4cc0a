package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orms-api/internal/email"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository/memory"
	"github.com/jwalitptl/orms-api/internal/service/event"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

type recordingMailer struct {
	mu       sync.Mutex
	receipts []email.Receipt
}

func (m *recordingMailer) SendReceipt(_ context.Context, r email.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, r)
	return nil
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	mailer *recordingMailer
	now    time.Time
	auth   model.AuthContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewSeededStore(),
		mailer: &recordingMailer{},
		now:    time.Date(2026, 1, 26, 14, 30, 0, 0, time.Local),
		auth:   model.AuthContext{UserID: 7, Username: "frontdesk", Role: model.RoleReceptionist},
	}
	f.store.AddDoctor("DOC-002", "Maria", "Santos", nil)
	f.svc = NewService(f.store, event.NewEventService(), f.mailer, metrics.New("test"), Config{
		TaxRate:         0.10,
		DefaultDoctorID: "DOC-001",
	}).WithClock(func() time.Time { return f.now })

	require.NoError(t, f.store.Patients().Create(context.Background(), &model.Patient{
		ID:        "PAT-000001",
		FirstName: "Ana",
		LastName:  "Cruz",
		Phone:     "555-0101",
		Email:     "ana@example.com",
		CreatedAt: f.now.AddDate(0, -1, 0),
	}))
	return f
}

func (f *fixture) submit(t *testing.T, items ...model.LineItem) *Submission {
	t.Helper()
	sub, err := f.svc.SubmitServiceRequest(context.Background(), f.auth, model.ServiceRequest{
		PatientID: "PAT-000001",
		Items:     items,
	})
	require.NoError(t, err)
	return sub
}

func (f *fixture) addVisit(t *testing.T, id string, at time.Time, doctorID *string) {
	t.Helper()
	require.NoError(t, f.store.Visits().Create(context.Background(), &model.Visit{
		ID:            id,
		PatientID:     "PAT-000001",
		DoctorID:      doctorID,
		VisitDateTime: at,
		Status:        model.VisitStatusWaiting,
		CreatedAt:     at,
	}))
}

func bloodTest(qty int, price float64) model.LineItem {
	return model.LineItem{Description: "Blood Test", Quantity: qty, UnitPrice: price}
}

func strPtr(s string) *string { return &s }

func TestSubmitServiceRequest_CreatesVisitAndBill(t *testing.T) {
	f := newFixture(t)

	sub := f.submit(t, bloodTest(1, 75))

	assert.False(t, sub.Merged)
	inv := sub.Invoice
	assert.Equal(t, "PAT-000001", inv.PatientID)
	assert.Equal(t, model.BillStatusPending, inv.Status)
	assert.InDelta(t, 75.00, inv.Subtotal, 1e-9)
	assert.InDelta(t, 7.50, inv.Tax, 1e-9)
	assert.InDelta(t, 82.50, inv.Total, 1e-9)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Blood Test", inv.Items[0].ServiceName)
	assert.Regexp(t, `^SVC-[0-9A-F]{6}$`, inv.Items[0].ID)
	assert.Regexp(t, `^BILL-[0-9A-F]{6}$`, inv.ID)
	assert.True(t, inv.BillingDate.Equal(f.now))

	visit, err := f.store.Visits().Latest(context.Background(), "PAT-000001")
	require.NoError(t, err)
	assert.Equal(t, inv.VisitID, visit.ID)
	assert.Equal(t, model.VisitStatusWaiting, visit.Status)
	require.NotNil(t, visit.DoctorID)
	assert.Equal(t, "DOC-001", *visit.DoctorID)
	require.NotNil(t, visit.CreatedByUserID)
	assert.Equal(t, int64(7), *visit.CreatedByUserID)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventInvoiceCreated, events[0].EventType)
}

func TestSubmitServiceRequest_RepeatMergesQuantity(t *testing.T) {
	f := newFixture(t)

	first := f.submit(t, bloodTest(1, 75))
	second := f.submit(t, bloodTest(1, 75))

	assert.True(t, second.Merged)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	require.Len(t, second.Invoice.Items, 1)
	assert.Equal(t, 2, second.Invoice.Items[0].Quantity)
	assert.InDelta(t, 150.00, second.Invoice.Subtotal, 1e-9)
	assert.InDelta(t, 15.00, second.Invoice.Tax, 1e-9)
	assert.InDelta(t, 165.00, second.Invoice.Total, 1e-9)

	counts := f.store.Counts()
	assert.Equal(t, 1, counts["visits"])
	assert.Equal(t, 1, counts["bills"])
	assert.Equal(t, 1, counts["bill_services"])

	events := f.store.OutboxEvents()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventInvoiceUpdated, events[1].EventType)
}

func TestSubmitServiceRequest_MergeTakesLatestPrice(t *testing.T) {
	f := newFixture(t)

	f.submit(t, bloodTest(1, 75))
	sub := f.submit(t, bloodTest(2, 80))

	require.Len(t, sub.Invoice.Items, 1)
	item := sub.Invoice.Items[0]
	assert.Equal(t, 3, item.Quantity)
	assert.InDelta(t, 80.00, item.Amount, 1e-9)
	assert.InDelta(t, 240.00, sub.Invoice.Subtotal, 1e-9)
	assert.InDelta(t, 24.00, sub.Invoice.Tax, 1e-9)
	assert.InDelta(t, 264.00, sub.Invoice.Total, 1e-9)
}

func TestSubmitServiceRequest_MergeAppendsDistinctItems(t *testing.T) {
	f := newFixture(t)

	f.submit(t, bloodTest(1, 75))
	sub := f.submit(t,
		model.LineItem{Description: "X-Ray", Quantity: 1, UnitPrice: 200},
		model.LineItem{Description: "blood test", Quantity: 1, UnitPrice: 75},
		model.LineItem{Description: "X-Ray", Quantity: 1, UnitPrice: 200},
	)

	assert.True(t, sub.Merged)
	require.Len(t, sub.Invoice.Items, 3)
	assert.Equal(t, "Blood Test", sub.Invoice.Items[0].ServiceName)
	assert.Equal(t, "X-Ray", sub.Invoice.Items[1].ServiceName)
	assert.Equal(t, 2, sub.Invoice.Items[1].Quantity)
	assert.Equal(t, "blood test", sub.Invoice.Items[2].ServiceName)
	assert.InDelta(t, 550.00, sub.Invoice.Subtotal, 1e-9)
	assert.InDelta(t, 605.00, sub.Invoice.Total, 1e-9)
}

func TestSubmitServiceRequest_IgnoresStaleAndPaidBills(t *testing.T) {
	t.Run("pending bill from yesterday", func(t *testing.T) {
		f := newFixture(t)
		yesterday := f.now.AddDate(0, 0, -1)
		f.now = yesterday
		old := f.submit(t, bloodTest(1, 75))

		f.now = yesterday.AddDate(0, 0, 1)
		sub := f.submit(t, bloodTest(1, 75))

		assert.False(t, sub.Merged)
		assert.NotEqual(t, old.Invoice.ID, sub.Invoice.ID)
		assert.Equal(t, 2, f.store.Counts()["bills"])
	})

	t.Run("paid bill from today", func(t *testing.T) {
		f := newFixture(t)
		first := f.submit(t, bloodTest(1, 75))
		_, err := f.svc.UpdateInvoiceStatus(context.Background(), f.auth, model.InvoiceID(first.Invoice.ID),
			InvoiceUpdate{Status: strPtr("paid")})
		require.NoError(t, err)

		sub := f.submit(t, bloodTest(1, 75))
		assert.False(t, sub.Merged)
		assert.NotEqual(t, first.Invoice.ID, sub.Invoice.ID)
	})
}

func TestSubmitServiceRequest_DoctorResolution(t *testing.T) {
	t.Run("requested doctor wins", func(t *testing.T) {
		f := newFixture(t)
		f.addVisit(t, "VIS-000001", f.now.AddDate(0, 0, -3), strPtr("DOC-001"))

		sub, err := f.svc.SubmitServiceRequest(context.Background(), f.auth, model.ServiceRequest{
			PatientID: "PAT-000001",
			DoctorID:  strPtr("DOC-002"),
			Items:     []model.LineItem{bloodTest(1, 75)},
		})
		require.NoError(t, err)
		require.NotNil(t, sub.Invoice.DoctorName)
		assert.Equal(t, "Maria Santos", *sub.Invoice.DoctorName)
	})

	t.Run("latest visit doctor", func(t *testing.T) {
		f := newFixture(t)
		f.addVisit(t, "VIS-000001", f.now.AddDate(0, 0, -10), strPtr("DOC-001"))
		f.addVisit(t, "VIS-000002", f.now.AddDate(0, 0, -3), strPtr("DOC-002"))

		sub := f.submit(t, bloodTest(1, 75))
		require.NotNil(t, sub.Invoice.DoctorName)
		assert.Equal(t, "Maria Santos", *sub.Invoice.DoctorName)
	})

	t.Run("configured default", func(t *testing.T) {
		f := newFixture(t)
		f.addVisit(t, "VIS-000001", f.now.AddDate(0, 0, -3), nil)

		sub := f.submit(t, bloodTest(1, 75))
		require.NotNil(t, sub.Invoice.DoctorName)
		assert.Equal(t, "Attending Physician", *sub.Invoice.DoctorName)
	})
}

func TestSubmitServiceRequest_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.ServiceRequest
		code apperrors.ErrorCode
	}{
		{"missing patient id", model.ServiceRequest{Items: []model.LineItem{bloodTest(1, 75)}}, apperrors.ErrBadRequest},
		{"no items", model.ServiceRequest{PatientID: "PAT-000001"}, apperrors.ErrBadRequest},
		{"zero quantity", model.ServiceRequest{PatientID: "PAT-000001", Items: []model.LineItem{bloodTest(0, 75)}}, apperrors.ErrBadRequest},
		{"negative price", model.ServiceRequest{PatientID: "PAT-000001", Items: []model.LineItem{bloodTest(1, -1)}}, apperrors.ErrBadRequest},
		{"blank description", model.ServiceRequest{PatientID: "PAT-000001", Items: []model.LineItem{{Description: " ", Quantity: 1}}}, apperrors.ErrBadRequest},
		{"unknown patient", model.ServiceRequest{PatientID: "PAT-FFFFFF", Items: []model.LineItem{bloodTest(1, 75)}}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitServiceRequest(ctx, f.auth, tt.req)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}

	assert.Equal(t, 0, f.store.Counts()["bills"])
	assert.Empty(t, f.store.OutboxEvents())
}

func TestSubmitServiceRequest_ConcurrentSubmissionsShareOneBill(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitServiceRequest(context.Background(), f.auth, model.ServiceRequest{
				PatientID: "PAT-000001",
				Items:     []model.LineItem{bloodTest(1, 75)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	counts := f.store.Counts()
	assert.Equal(t, 1, counts["bills"])
	assert.Equal(t, 1, counts["bill_services"])

	records, err := f.svc.ListInvoices(context.Background(), model.InvoiceFilters{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 8, records[0].Items[0].Quantity)
	assert.InDelta(t, 660.00, records[0].Total, 1e-9)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("no fields", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))

		_, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{Status: strPtr("  ")})
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		assert.Equal(t, "No fields to update", appErr.Message)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, "INV-FFFFFF", InvoiceUpdate{Status: strPtr("paid")})
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("paid stamps now and mails receipt", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))
		f.now = f.now.Add(time.Hour)

		record, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{
			Status:        strPtr("paid"),
			PaymentMethod: strPtr("Cash"),
		})
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusPaid, record.Status)
		require.NotNil(t, record.PaymentDate)
		assert.True(t, record.PaymentDate.Equal(f.now))
		require.NotNil(t, record.PaymentMethodName)
		assert.Equal(t, "Cash", *record.PaymentMethodName)

		require.Len(t, f.mailer.receipts, 1)
		receipt := f.mailer.receipts[0]
		assert.Equal(t, "ana@example.com", receipt.To)
		assert.Equal(t, model.InvoiceID(sub.Invoice.ID), receipt.InvoiceID)
		assert.Equal(t, "Cash", receipt.PaymentMethod)

		events := f.store.OutboxEvents()
		assert.Equal(t, model.EventInvoicePaid, events[len(events)-1].EventType)
	})

	t.Run("explicit paid date", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))

		record, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{
			Status:   strPtr("Paid"),
			PaidDate: strPtr("2026-01-26T15:00:00"),
		})
		require.NoError(t, err)
		require.NotNil(t, record.PaymentDate)
		assert.Equal(t, time.Date(2026, 1, 26, 15, 0, 0, 0, time.Local), record.PaymentDate.In(time.Local))
	})

	t.Run("unknown payment method is skipped", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))

		record, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{
			Status:        strPtr("pending"),
			PaymentMethod: strPtr("Barter"),
		})
		require.NoError(t, err)
		assert.Nil(t, record.PaymentMethodID)
		assert.Nil(t, record.PaymentDate)
		assert.Empty(t, f.mailer.receipts)
	})

	t.Run("only unknown payment method", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))

		before := len(f.store.OutboxEvents())

		_, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{
			PaymentMethod: strPtr("Barter"),
		})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		assert.Equal(t, "No fields to update", appErr.Message)
		assert.Len(t, f.store.OutboxEvents(), before)

		record, err := f.svc.GetInvoice(ctx, model.InvoiceID(sub.Invoice.ID))
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusPending, record.Status)
	})

	t.Run("invalid paid date", func(t *testing.T) {
		f := newFixture(t)
		sub := f.submit(t, bloodTest(1, 75))

		_, err := f.svc.UpdateInvoiceStatus(ctx, f.auth, model.InvoiceID(sub.Invoice.ID), InvoiceUpdate{
			PaidDate: strPtr("yesterday-ish"),
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})
}

func TestGetAndListInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submit(t, bloodTest(1, 75))

	got, err := f.svc.GetInvoice(ctx, model.InvoiceID(sub.Invoice.ID))
	require.NoError(t, err)
	assert.Equal(t, sub.Invoice.ID, got.ID)

	_, err = f.svc.GetInvoice(ctx, "INV-FFFFFF")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	list, err := f.svc.ListInvoices(ctx, model.InvoiceFilters{Status: "PENDING", Search: "ana cruz"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.ListInvoices(ctx, model.InvoiceFilters{Status: "paid"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdatePatientVisitStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("check-in stamp is set once", func(t *testing.T) {
		f := newFixture(t)
		f.addVisit(t, "VIS-000001", f.now.Add(-2*time.Hour), nil)
		checkedInAt := f.now

		record, err := f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "checked-in")
		require.NoError(t, err)
		require.NotNil(t, record.StatusID)
		assert.Equal(t, model.VisitStatusCheckedIn, *record.StatusID)
		require.NotNil(t, record.CheckInDateTime)
		assert.True(t, record.CheckInDateTime.Equal(checkedInAt))

		f.now = f.now.Add(30 * time.Minute)
		_, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "waiting")
		require.NoError(t, err)
		record, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "checked-in")
		require.NoError(t, err)
		require.NotNil(t, record.CheckInDateTime)
		assert.True(t, record.CheckInDateTime.Equal(checkedInAt))

		record, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "completed")
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusCompleted, *record.StatusID)
		assert.NotNil(t, record.CheckInDateTime)
	})

	t.Run("targets the latest visit", func(t *testing.T) {
		f := newFixture(t)
		f.addVisit(t, "VIS-000001", f.now.AddDate(0, 0, -5), nil)
		f.addVisit(t, "VIS-000002", f.now.Add(-time.Hour), nil)

		record, err := f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "completed")
		require.NoError(t, err)
		require.NotNil(t, record.VisitID)
		assert.Equal(t, "VIS-000002", *record.VisitID)

		visits, err := f.svc.ListPatientVisits(ctx, "PAT-000001")
		require.NoError(t, err)
		require.Len(t, visits, 2)
		assert.Equal(t, model.VisitStatusCompleted, visits[0].Status)
		assert.Equal(t, model.VisitStatusWaiting, visits[1].Status)
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "discharged")
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

		_, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "Checked-In")
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

		_, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-000001", "waiting")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

		_, err = f.svc.UpdatePatientVisitStatus(ctx, f.auth, "PAT-FFFFFF", "waiting")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})
}

func TestCheckFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CheckFollowUp(ctx, "PAT-000001")
	require.NoError(t, err)
	assert.False(t, result.HasFollowUp)
	assert.Nil(t, result.Visit)

	due := time.Date(2026, 1, 26, 0, 0, 0, 0, time.Local)
	require.NoError(t, f.store.Visits().Create(ctx, &model.Visit{
		ID:             "VIS-000001",
		PatientID:      "PAT-000001",
		DoctorID:       strPtr("DOC-002"),
		VisitDateTime:  f.now.AddDate(0, 0, -14),
		Status:         model.VisitStatusCompleted,
		ChiefComplaint: "Cough",
		FollowUpDate:   &due,
	}))
	f.addVisit(t, "VIS-000002", f.now.Add(-time.Hour), nil)

	result, err = f.svc.CheckFollowUp(ctx, "PAT-000001")
	require.NoError(t, err)
	assert.True(t, result.HasFollowUp)
	require.NotNil(t, result.Visit)
	assert.Equal(t, "VIS-000001", result.Visit.ID)
	assert.Equal(t, "Cough", result.Visit.ChiefComplaint)
	assert.Equal(t, "Maria Santos", *result.Visit.DoctorName())

	f.now = f.now.AddDate(0, 0, 1)
	result, err = f.svc.CheckFollowUp(ctx, "PAT-000001")
	require.NoError(t, err)
	assert.False(t, result.HasFollowUp)
}
