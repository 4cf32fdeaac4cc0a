// Package memory is an in-process DataStore used as a test fixture by the
// service, handler and end-to-end tests. The API server never constructs
// it; cmd/api always opens the PostgreSQL store. Transactions are
// serialized by one mutex and roll back by restoring a snapshot of every
// table.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type doctor struct {
	ID           string
	FirstName    string
	LastName     string
	DepartmentID *string
}

type tables struct {
	patients       map[string]model.Patient
	visits         map[string]model.Visit
	bills          map[string]model.Bill
	items          []model.BillService
	diagnoses      []model.Diagnosis
	prescriptions  []model.Prescription
	departments    []model.Department
	doctors        []doctor
	services       []model.Service
	paymentMethods []model.PaymentMethod
	users          map[int64]model.User
	outbox         []model.OutboxEvent
	nextUserID     int64
}

func newTables() *tables {
	return &tables{
		patients: make(map[string]model.Patient),
		visits:   make(map[string]model.Visit),
		bills:    make(map[string]model.Bill),
		users:    make(map[int64]model.User),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		patients:       make(map[string]model.Patient, len(t.patients)),
		visits:         make(map[string]model.Visit, len(t.visits)),
		bills:          make(map[string]model.Bill, len(t.bills)),
		users:          make(map[int64]model.User, len(t.users)),
		items:          append([]model.BillService(nil), t.items...),
		diagnoses:      append([]model.Diagnosis(nil), t.diagnoses...),
		prescriptions:  append([]model.Prescription(nil), t.prescriptions...),
		departments:    append([]model.Department(nil), t.departments...),
		doctors:        append([]doctor(nil), t.doctors...),
		services:       append([]model.Service(nil), t.services...),
		paymentMethods: append([]model.PaymentMethod(nil), t.paymentMethods...),
		outbox:         append([]model.OutboxEvent(nil), t.outbox...),
		nextUserID:     t.nextUserID,
	}
	for k, v := range t.patients {
		c.patients[k] = v
	}
	for k, v := range t.visits {
		c.visits[k] = v
	}
	for k, v := range t.bills {
		c.bills[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	return c
}

// latestVisit returns the patient's visit with the greatest visit time.
func (t *tables) latestVisit(patientID string) (model.Visit, bool) {
	var (
		latest model.Visit
		found  bool
	)
	for _, v := range t.visits {
		if v.PatientID != patientID {
			continue
		}
		if !found || v.VisitDateTime.After(latest.VisitDateTime) {
			latest, found = v, true
		}
	}
	return latest, found
}

func (t *tables) doctor(id *string) (doctor, bool) {
	if id == nil {
		return doctor{}, false
	}
	for _, d := range t.doctors {
		if d.ID == *id {
			return d, true
		}
	}
	return doctor{}, false
}

type database struct {
	mu     sync.Mutex
	tables *tables
	now    func() time.Time
}

// Store implements repository.Store over in-process tables.
type Store struct {
	db *database
	tx bool
}

func NewStore() *Store {
	return &Store{db: &database{tables: newTables(), now: time.Now}}
}

// NewSeededStore returns a store holding the same reference rows the
// PostgreSQL seed migration inserts.
func NewSeededStore() *Store {
	s := NewStore()
	deptID := "DEPT-001"
	s.AddDepartment(model.Department{ID: deptID, Name: "General Medicine"})
	s.AddDoctor("DOC-001", "Attending", "Physician", &deptID)
	s.AddService(model.Service{ID: model.ConsultationServiceID, Name: "Consultation Fee", Price: 150.00, IsActive: true})
	for _, name := range []string{"Cash", "Credit Card", "Debit Card", "GCash", "Insurance"} {
		s.AddPaymentMethod(name)
	}
	return s
}

// SetClock replaces the clock used for outbox bookkeeping.
func (s *Store) SetClock(now func() time.Time) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.now = now
}

// run executes fn against the tables, taking the lock unless the store
// already belongs to a transaction that holds it.
func (s *Store) run(fn func(t *tables) error) error {
	if s.tx {
		return fn(s.db.tables)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.tables)
}

func (s *Store) Patients() repository.PatientRepository { return &patientRepository{s} }
func (s *Store) Visits() repository.VisitRepository { return &visitRepository{s} }
func (s *Store) Bills() repository.BillRepository { return &billRepository{s} }
func (s *Store) Clinical() repository.ClinicalRepository { return &clinicalRepository{s} }
func (s *Store) Reference() repository.ReferenceRepository { return &referenceRepository{s} }
func (s *Store) Users() repository.UserRepository { return &userRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepository{s} }

// WithTx runs fn with exclusive access to the tables. Any error or panic
// restores the tables as they were before fn started.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.tables.clone()
	committed := false
	defer func() {
		if !committed {
			s.db.tables = snapshot
		}
	}()

	if err := fn(&Store{db: s.db, tx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// Seed helpers

func (s *Store) AddDepartment(d model.Department) {
	s.run(func(t *tables) error {
		t.departments = append(t.departments, d)
		return nil
	})
}

func (s *Store) AddDoctor(id, firstName, lastName string, departmentID *string) {
	s.run(func(t *tables) error {
		t.doctors = append(t.doctors, doctor{ID: id, FirstName: firstName, LastName: lastName, DepartmentID: departmentID})
		return nil
	})
}

func (s *Store) AddService(svc model.Service) {
	s.run(func(t *tables) error {
		for i := range t.services {
			if t.services[i].ID == svc.ID {
				t.services[i] = svc
				return nil
			}
		}
		t.services = append(t.services, svc)
		return nil
	})
}

func (s *Store) AddPaymentMethod(name string) int {
	var id int
	s.run(func(t *tables) error {
		id = len(t.paymentMethods) + 1
		t.paymentMethods = append(t.paymentMethods, model.PaymentMethod{ID: id, Name: name})
		return nil
	})
	return id
}

// AddUser stores u with the next user id and returns that id.
func (s *Store) AddUser(u model.User) int64 {
	s.run(func(t *tables) error {
		t.nextUserID++
		u.ID = t.nextUserID
		t.users[u.ID] = u
		return nil
	})
	return u.ID
}

func (s *Store) AddDiagnosis(d model.Diagnosis) {
	s.run(func(t *tables) error {
		t.diagnoses = append(t.diagnoses, d)
		return nil
	})
}

func (s *Store) AddPrescription(p model.Prescription) {
	s.run(func(t *tables) error {
		t.prescriptions = append(t.prescriptions, p)
		return nil
	})
}

// Counts reports row counts per table, for assertions in tests.
func (s *Store) Counts() map[string]int {
	counts := make(map[string]int)
	s.run(func(t *tables) error {
		counts["patients"] = len(t.patients)
		counts["visits"] = len(t.visits)
		counts["bills"] = len(t.bills)
		counts["bill_services"] = len(t.items)
		counts["diagnoses"] = len(t.diagnoses)
		counts["prescriptions"] = len(t.prescriptions)
		counts["outbox_events"] = len(t.outbox)
		return nil
	})
	return counts
}

// OutboxEvents returns a copy of every outbox row in insertion order.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	var events []model.OutboxEvent
	s.run(func(t *tables) error {
		events = append(events, t.outbox...)
		return nil
	})
	return events
}

func sortRecordsByVisit(records []model.PatientRecord, asc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].VisitDateTime, records[j].VisitDateTime
		switch {
		case a == nil && b == nil:
			return records[i].CreatedAt.After(records[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case asc:
			return a.Before(*b)
		default:
			return a.After(*b)
		}
	})
}
