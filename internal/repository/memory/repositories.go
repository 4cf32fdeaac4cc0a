package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type patientRepository struct{ s *Store }

func (r *patientRepository) Create(_ context.Context, patient *model.Patient) error {
	return r.s.run(func(t *tables) error {
		if _, ok := t.patients[patient.ID]; ok {
			return fmt.Errorf("failed to create patient: duplicate id %s", patient.ID)
		}
		t.patients[patient.ID] = *patient
		return nil
	})
}

func (r *patientRepository) Get(_ context.Context, id string) (*model.Patient, error) {
	var patient model.Patient
	err := r.s.run(func(t *tables) error {
		p, ok := t.patients[id]
		if !ok {
			return repository.ErrNotFound
		}
		patient = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// GetForUpdate is Get: the transaction already holds the only lock.
func (r *patientRepository) GetForUpdate(ctx context.Context, id string) (*model.Patient, error) {
	return r.Get(ctx, id)
}

func patientRecord(t *tables, p model.Patient) model.PatientRecord {
	record := model.PatientRecord{Patient: p}
	for _, s := range model.Sexes() {
		if s.ID == p.SexID {
			name := s.Name
			record.SexName = &name
		}
	}
	for _, g := range model.GenderIdentities() {
		if g.ID == p.GenderIdentityID {
			name := g.Name
			record.GenderIdentityName = &name
		}
	}

	v, ok := t.latestVisit(p.ID)
	if !ok {
		return record
	}
	id, at, notes, status := v.ID, v.VisitDateTime, v.Notes, v.Status
	record.VisitID = &id
	record.VisitDateTime = &at
	record.CheckInDateTime = v.CheckInDateTime
	record.Notes = &notes
	record.FollowUpDate = v.FollowUpDate
	record.StatusID = &status
	if d, ok := t.doctor(v.DoctorID); ok {
		first, last := d.FirstName, d.LastName
		record.DoctorFirstName = &first
		record.DoctorLastName = &last
	}
	return record
}

func (r *patientRepository) GetRecord(_ context.Context, id string) (*model.PatientRecord, error) {
	var record model.PatientRecord
	err := r.s.run(func(t *tables) error {
		p, ok := t.patients[id]
		if !ok {
			return repository.ErrNotFound
		}
		record = patientRecord(t, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *patientRepository) List(_ context.Context, filters model.PatientFilters) ([]model.PatientRecord, error) {
	records := []model.PatientRecord{}
	search := strings.ToLower(filters.Search)
	err := r.s.run(func(t *tables) error {
		for _, p := range t.patients {
			record := patientRecord(t, p)
			if filters.Status != "" && (record.StatusID == nil || record.StatusID.String() != filters.Status) {
				continue
			}
			if filters.Doctor != "" {
				name := record.DoctorName()
				if name == nil || *name != filters.Doctor {
					continue
				}
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName), search) &&
				!strings.Contains(strings.ToLower(p.Phone), search) {
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	sortRecordsByVisit(records, false)
	return records, err
}

func (r *patientRepository) Queue(_ context.Context) ([]model.PatientRecord, error) {
	records := []model.PatientRecord{}
	err := r.s.run(func(t *tables) error {
		for _, p := range t.patients {
			record := patientRecord(t, p)
			if record.StatusID == nil {
				continue
			}
			if *record.StatusID == model.VisitStatusWaiting || *record.StatusID == model.VisitStatusCheckedIn {
				records = append(records, record)
			}
		}
		return nil
	})
	sortRecordsByVisit(records, true)
	return records, err
}

func (r *patientRepository) Stats(_ context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	err := r.s.run(func(t *tables) error {
		for _, p := range t.patients {
			stats.Total++
			v, ok := t.latestVisit(p.ID)
			if !ok {
				continue
			}
			switch v.Status {
			case model.VisitStatusCheckedIn:
				stats.CheckedIn++
			case model.VisitStatusWaiting:
				stats.Waiting++
			case model.VisitStatusCompleted:
				stats.Completed++
			}
			if !v.VisitDateTime.Before(dayStart) && v.VisitDateTime.Before(dayEnd) {
				stats.NewToday++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *patientRepository) Update(_ context.Context, id string, changes repository.PatientChanges) error {
	if changes.Empty() {
		return nil
	}
	return r.s.run(func(t *tables) error {
		p, ok := t.patients[id]
		if !ok {
			return repository.ErrNotFound
		}
		var err error
		changes.Each(func(field repository.PatientField, value any) {
			if err != nil {
				return
			}
			switch field {
			case repository.PatientFirstName:
				p.FirstName, err = asString(value)
			case repository.PatientLastName:
				p.LastName, err = asString(value)
			case repository.PatientPhone:
				p.Phone, err = asString(value)
			case repository.PatientEmail:
				p.Email, err = asString(value)
			case repository.PatientAddress:
				p.Address, err = asString(value)
			case repository.PatientEmergencyContactName:
				p.EmergencyContactName, err = asString(value)
			case repository.PatientEmergencyContactRelationship:
				p.EmergencyContactRelationship, err = asString(value)
			case repository.PatientEmergencyContactPhone:
				p.EmergencyContactPhone, err = asString(value)
			case repository.PatientSexID:
				p.SexID, err = asInt(value)
			case repository.PatientGenderIdentityID:
				p.GenderIdentityID, err = asInt(value)
			default:
				err = fmt.Errorf("unknown patient field %q", field)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}
		t.patients[id] = p
		return nil
	})
}

func (r *patientRepository) Delete(_ context.Context, id string) error {
	return r.s.run(func(t *tables) error {
		if _, ok := t.patients[id]; !ok {
			return repository.ErrNotFound
		}
		for _, v := range t.visits {
			if v.PatientID == id {
				return fmt.Errorf("failed to delete patient: visits still reference %s", id)
			}
		}
		delete(t.patients, id)
		return nil
	})
}

type visitRepository struct{ s *Store }

func (r *visitRepository) Create(_ context.Context, visit *model.Visit) error {
	return r.s.run(func(t *tables) error {
		if _, ok := t.patients[visit.PatientID]; !ok {
			return fmt.Errorf("failed to create visit: unknown patient %s", visit.PatientID)
		}
		if _, ok := t.visits[visit.ID]; ok {
			return fmt.Errorf("failed to create visit: duplicate id %s", visit.ID)
		}
		t.visits[visit.ID] = *visit
		return nil
	})
}

func (r *visitRepository) Latest(_ context.Context, patientID string) (*model.Visit, error) {
	var visit model.Visit
	err := r.s.run(func(t *tables) error {
		v, ok := t.latestVisit(patientID)
		if !ok {
			return repository.ErrNotFound
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func visitDetail(t *tables, v model.Visit) model.VisitDetail {
	detail := model.VisitDetail{Visit: v}
	if d, ok := t.doctor(v.DoctorID); ok {
		first, last := d.FirstName, d.LastName
		detail.DoctorFirstName = &first
		detail.DoctorLastName = &last
	}
	return detail
}

func (r *visitRepository) ListByPatient(_ context.Context, patientID string) ([]model.VisitDetail, error) {
	visits := []model.VisitDetail{}
	err := r.s.run(func(t *tables) error {
		for _, v := range t.visits {
			if v.PatientID == patientID {
				visits = append(visits, visitDetail(t, v))
			}
		}
		return nil
	})
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitDateTime.After(visits[j].VisitDateTime)
	})
	return visits, err
}

func (r *visitRepository) FollowUpOn(ctx context.Context, patientID string, day time.Time) (*model.VisitDetail, error) {
	visits, err := r.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i := range visits {
		if f := visits[i].FollowUpDate; f != nil && model.SameDay(*f, day) {
			return &visits[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *visitRepository) Update(_ context.Context, id string, changes repository.VisitChanges) error {
	if changes.Empty() {
		return nil
	}
	return r.s.run(func(t *tables) error {
		v, ok := t.visits[id]
		if !ok {
			return repository.ErrNotFound
		}
		var err error
		changes.Each(func(field repository.VisitField, value any) {
			if err != nil {
				return
			}
			switch field {
			case repository.VisitDoctorID:
				v.DoctorID, err = asStringPtr(value)
			case repository.VisitStatusID:
				var n int
				n, err = asInt(value)
				v.Status = model.VisitStatus(n)
			case repository.VisitCheckInDateTime:
				v.CheckInDateTime, err = asTimePtr(value)
			case repository.VisitFollowUpDate:
				v.FollowUpDate, err = asTimePtr(value)
			case repository.VisitNotes:
				v.Notes, err = asString(value)
			default:
				err = fmt.Errorf("unknown visit field %q", field)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to update visit: %w", err)
		}
		t.visits[id] = v
		return nil
	})
}

func (r *visitRepository) DeleteByPatient(_ context.Context, patientID string) error {
	return r.s.run(func(t *tables) error {
		for id, v := range t.visits {
			if v.PatientID != patientID {
				continue
			}
			for _, b := range t.bills {
				if b.VisitID == id {
					return fmt.Errorf("failed to delete visits: bill %s references visit %s", b.ID, id)
				}
			}
		}
		for id, v := range t.visits {
			if v.PatientID == patientID {
				delete(t.visits, id)
			}
		}
		return nil
	})
}

type billRepository struct{ s *Store }

func (r *billRepository) Create(_ context.Context, bill *model.Bill) error {
	return r.s.run(func(t *tables) error {
		if _, ok := t.visits[bill.VisitID]; !ok {
			return fmt.Errorf("failed to create bill: unknown visit %s", bill.VisitID)
		}
		if _, ok := t.bills[bill.ID]; ok {
			return fmt.Errorf("failed to create bill: duplicate id %s", bill.ID)
		}
		t.bills[bill.ID] = *bill
		return nil
	})
}

func (r *billRepository) Get(_ context.Context, id string) (*model.Bill, error) {
	var bill model.Bill
	err := r.s.run(func(t *tables) error {
		b, ok := t.bills[id]
		if !ok {
			return repository.ErrNotFound
		}
		bill = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func itemsOf(t *tables, billID string) []model.BillService {
	items := []model.BillService{}
	for _, item := range t.items {
		if item.BillID == billID {
			items = append(items, item)
		}
	}
	return items
}

func billRecord(t *tables, b model.Bill) model.BillRecord {
	record := model.BillRecord{Bill: b, Items: itemsOf(t, b.ID)}
	if p, ok := t.patients[b.PatientID]; ok {
		first, last, phone, email := p.FirstName, p.LastName, p.Phone, p.Email
		record.FirstName = &first
		record.LastName = &last
		record.Phone = &phone
		record.Email = &email
	}
	if b.PaymentMethodID != nil {
		for _, m := range t.paymentMethods {
			if m.ID == *b.PaymentMethodID {
				name := m.Name
				record.PaymentMethodName = &name
			}
		}
	}
	if v, ok := t.visits[b.VisitID]; ok {
		if d, ok := t.doctor(v.DoctorID); ok {
			name := strings.TrimSpace(d.FirstName + " " + d.LastName)
			record.DoctorName = &name
		}
	}
	return record
}

func (r *billRepository) GetRecord(_ context.Context, id string) (*model.BillRecord, error) {
	var record model.BillRecord
	err := r.s.run(func(t *tables) error {
		b, ok := t.bills[id]
		if !ok {
			return repository.ErrNotFound
		}
		record = billRecord(t, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *billRepository) List(_ context.Context, filters model.InvoiceFilters) ([]model.BillRecord, error) {
	records := []model.BillRecord{}
	search := strings.ToLower(filters.Search)
	err := r.s.run(func(t *tables) error {
		for _, b := range t.bills {
			if filters.Status != "" && !strings.EqualFold(b.Status, filters.Status) {
				continue
			}
			record := billRecord(t, b)
			if search != "" {
				name := ""
				if record.FirstName != nil && record.LastName != nil {
					name = *record.FirstName + " " + *record.LastName
				}
				if !strings.Contains(strings.ToLower(b.ID), search) &&
					!strings.Contains(strings.ToLower(name), search) {
					continue
				}
			}
			records = append(records, record)
		}
		return nil
	})
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].BillingDate.After(records[j].BillingDate)
	})
	return records, err
}

func (r *billRepository) FindPendingForDay(_ context.Context, patientID string, dayStart, dayEnd time.Time) (*model.Bill, error) {
	var (
		bill  model.Bill
		found bool
	)
	err := r.s.run(func(t *tables) error {
		for _, b := range t.bills {
			if b.PatientID != patientID || !b.IsPending() {
				continue
			}
			if b.BillingDate.Before(dayStart) || !b.BillingDate.Before(dayEnd) {
				continue
			}
			if !found || b.BillingDate.After(bill.BillingDate) {
				bill, found = b, true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return &bill, nil
}

func (r *billRepository) Update(_ context.Context, id string, changes repository.BillChanges) error {
	if changes.Empty() {
		return nil
	}
	return r.s.run(func(t *tables) error {
		b, ok := t.bills[id]
		if !ok {
			return repository.ErrNotFound
		}
		var err error
		changes.Each(func(field repository.BillField, value any) {
			if err != nil {
				return
			}
			switch field {
			case repository.BillSubtotal:
				b.Subtotal, err = asFloat(value)
			case repository.BillTax:
				b.Tax, err = asFloat(value)
			case repository.BillTotal:
				b.Total, err = asFloat(value)
			case repository.BillStatus:
				b.Status, err = asString(value)
			case repository.BillPaymentMethodID:
				b.PaymentMethodID, err = asIntPtr(value)
			case repository.BillPaymentDate:
				b.PaymentDate, err = asTimePtr(value)
			default:
				err = fmt.Errorf("unknown bill field %q", field)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to update bill: %w", err)
		}
		t.bills[id] = b
		return nil
	})
}

func (r *billRepository) DeleteByPatient(_ context.Context, patientID string) error {
	return r.s.run(func(t *tables) error {
		for id, b := range t.bills {
			if b.PatientID != patientID {
				continue
			}
			if len(itemsOf(t, id)) > 0 {
				return fmt.Errorf("failed to delete bills: line items reference bill %s", id)
			}
		}
		for id, b := range t.bills {
			if b.PatientID == patientID {
				delete(t.bills, id)
			}
		}
		return nil
	})
}

func (r *billRepository) Items(_ context.Context, billID string) ([]model.BillService, error) {
	var items []model.BillService
	err := r.s.run(func(t *tables) error {
		items = itemsOf(t, billID)
		return nil
	})
	return items, err
}

func (r *billRepository) ItemsForBills(_ context.Context, billIDs []string) (map[string][]model.BillService, error) {
	byBill := make(map[string][]model.BillService, len(billIDs))
	err := r.s.run(func(t *tables) error {
		for _, id := range billIDs {
			byBill[id] = itemsOf(t, id)
		}
		return nil
	})
	return byBill, err
}

func (r *billRepository) FindItem(_ context.Context, billID, serviceName string) (*model.BillService, error) {
	var item *model.BillService
	err := r.s.run(func(t *tables) error {
		for _, it := range t.items {
			if it.BillID == billID && it.ServiceName == serviceName {
				found := it
				item = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return item, err
}

func (r *billRepository) AddItem(_ context.Context, item *model.BillService) error {
	return r.s.run(func(t *tables) error {
		if _, ok := t.bills[item.BillID]; !ok {
			return fmt.Errorf("failed to add bill item: unknown bill %s", item.BillID)
		}
		for _, it := range t.items {
			if it.ID == item.ID {
				return fmt.Errorf("failed to add bill item: duplicate id %s", item.ID)
			}
		}
		t.items = append(t.items, *item)
		return nil
	})
}

func (r *billRepository) UpdateItem(_ context.Context, item *model.BillService) error {
	return r.s.run(func(t *tables) error {
		for i := range t.items {
			if t.items[i].ID == item.ID {
				t.items[i].Amount = item.Amount
				t.items[i].Quantity = item.Quantity
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *billRepository) DeleteItemsByPatient(_ context.Context, patientID string) error {
	return r.s.run(func(t *tables) error {
		kept := t.items[:0]
		for _, it := range t.items {
			if b, ok := t.bills[it.BillID]; ok && b.PatientID == patientID {
				continue
			}
			kept = append(kept, it)
		}
		t.items = kept
		return nil
	})
}

type clinicalRepository struct{ s *Store }

func patientVisits(t *tables, patientID string) map[string]bool {
	ids := make(map[string]bool)
	for id, v := range t.visits {
		if v.PatientID == patientID {
			ids[id] = true
		}
	}
	return ids
}

func (r *clinicalRepository) DeleteDiagnosesByPatient(_ context.Context, patientID string) error {
	return r.s.run(func(t *tables) error {
		visits := patientVisits(t, patientID)
		kept := t.diagnoses[:0]
		for _, d := range t.diagnoses {
			if !visits[d.VisitID] {
				kept = append(kept, d)
			}
		}
		t.diagnoses = kept
		return nil
	})
}

func (r *clinicalRepository) DeletePrescriptionsByPatient(_ context.Context, patientID string) error {
	return r.s.run(func(t *tables) error {
		visits := patientVisits(t, patientID)
		kept := t.prescriptions[:0]
		for _, p := range t.prescriptions {
			if !visits[p.VisitID] {
				kept = append(kept, p)
			}
		}
		t.prescriptions = kept
		return nil
	})
}

type referenceRepository struct{ s *Store }

func (r *referenceRepository) Departments(_ context.Context) ([]model.Department, error) {
	var departments []model.Department
	err := r.s.run(func(t *tables) error {
		departments = append([]model.Department{}, t.departments...)
		return nil
	})
	sort.SliceStable(departments, func(i, j int) bool { return departments[i].Name < departments[j].Name })
	return departments, err
}

func (r *referenceRepository) Doctors(_ context.Context) ([]model.Doctor, error) {
	doctors := []model.Doctor{}
	err := r.s.run(func(t *tables) error {
		for _, d := range t.doctors {
			doc := model.Doctor{
				ID:           d.ID,
				FullName:     d.FirstName + " " + d.LastName,
				DepartmentID: d.DepartmentID,
			}
			for _, dept := range t.departments {
				if d.DepartmentID != nil && dept.ID == *d.DepartmentID {
					name := dept.Name
					doc.DepartmentName = &name
				}
			}
			doctors = append(doctors, doc)
		}
		return nil
	})
	sort.SliceStable(doctors, func(i, j int) bool {
		a, b := "", ""
		if doctors[i].DepartmentName != nil {
			a = *doctors[i].DepartmentName
		}
		if doctors[j].DepartmentName != nil {
			b = *doctors[j].DepartmentName
		}
		if a != b {
			return a < b
		}
		return doctors[i].FullName < doctors[j].FullName
	})
	return doctors, err
}

func (r *referenceRepository) DoctorsByDepartment(_ context.Context, departmentID string) ([]string, error) {
	names := []string{}
	err := r.s.run(func(t *tables) error {
		for _, d := range t.doctors {
			if d.DepartmentID != nil && *d.DepartmentID == departmentID {
				names = append(names, d.FirstName+" "+d.LastName)
			}
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

func (r *referenceRepository) FindDoctorByName(_ context.Context, firstName, lastName string) (string, error) {
	var id string
	err := r.s.run(func(t *tables) error {
		for _, d := range t.doctors {
			if d.FirstName == firstName && d.LastName == lastName {
				id = d.ID
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return id, err
}

func (r *referenceRepository) Services(_ context.Context) ([]model.Service, error) {
	services := []model.Service{}
	err := r.s.run(func(t *tables) error {
		for _, svc := range t.services {
			if svc.IsActive {
				services = append(services, svc)
			}
		}
		return nil
	})
	sort.SliceStable(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, err
}

func (r *referenceRepository) GetService(_ context.Context, id string) (*model.Service, error) {
	var service *model.Service
	err := r.s.run(func(t *tables) error {
		for _, svc := range t.services {
			if svc.ID == id {
				found := svc
				service = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return service, err
}

func (r *referenceRepository) PaymentMethods(_ context.Context) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	err := r.s.run(func(t *tables) error {
		methods = append([]model.PaymentMethod{}, t.paymentMethods...)
		return nil
	})
	sort.SliceStable(methods, func(i, j int) bool { return methods[i].ID < methods[j].ID })
	return methods, err
}

func (r *referenceRepository) FindPaymentMethod(_ context.Context, name string) (*model.PaymentMethod, error) {
	var method *model.PaymentMethod
	err := r.s.run(func(t *tables) error {
		for _, m := range t.paymentMethods {
			if m.Name == name {
				found := m
				method = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return method, err
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByUsername(_ context.Context, username string) (*model.User, error) {
	var user *model.User
	err := r.s.run(func(t *tables) error {
		for _, u := range t.users {
			if u.Username == username {
				found := u
				user = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return user, err
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.s.run(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	return r.s.run(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.LastLogin = &at
		t.users[id] = u
		return nil
	})
}

func (r *userRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return r.s.run(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.PasswordHash = passwordHash
		t.users[id] = u
		return nil
	})
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	return r.s.run(func(t *tables) error {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		now := r.s.db.now()
		event.CreatedAt = now
		event.UpdatedAt = now
		event.Status = model.OutboxStatusPending
		event.RetryCount = 0
		t.outbox = append(t.outbox, *event)
		return nil
	})
}

func (r *outboxRepository) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent
	err := r.s.run(func(t *tables) error {
		now := r.s.db.now()
		for _, e := range t.outbox {
			if len(events) >= limit {
				break
			}
			if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
				continue
			}
			if e.RetryAt != nil && e.RetryAt.After(now) {
				continue
			}
			claimed := e
			events = append(events, &claimed)
		}
		return nil
	})
	return events, err
}

func (r *outboxRepository) modify(id uuid.UUID, fn func(e *model.OutboxEvent, now time.Time)) error {
	return r.s.run(func(t *tables) error {
		for i := range t.outbox {
			if t.outbox[i].ID == id {
				now := r.s.db.now()
				fn(&t.outbox[i], now)
				t.outbox[i].UpdatedAt = now
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return r.modify(id, func(e *model.OutboxEvent, now time.Time) {
		e.Status = status
		e.ErrorMessage = errMsg
		if status == model.OutboxStatusProcessed {
			e.ProcessedAt = &now
		}
	})
}

func (r *outboxRepository) ScheduleRetry(_ context.Context, id uuid.UUID, retryAt time.Time, errMsg string) error {
	return r.modify(id, func(e *model.OutboxEvent, _ time.Time) {
		e.Status = model.OutboxStatusRetry
		e.ErrorMessage = &errMsg
		e.RetryCount++
		e.RetryAt = &retryAt
	})
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.s.run(func(t *tables) error {
		kept := t.outbox[:0]
		for _, e := range t.outbox {
			if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		t.outbox = kept
		return nil
	})
	return deleted, err
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case *string:
		if s == nil {
			return "", nil
		}
		return *s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asStringPtr(v any) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	case *string:
		return s, nil
	}
	return nil, fmt.Errorf("expected string, got %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case model.VisitStatus:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asIntPtr(v any) (*int, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case *int:
		return n, nil
	}
	i, err := asInt(v)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func asFloat(v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asTimePtr(v any) (*time.Time, error) {
	switch ts := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &ts, nil
	case *time.Time:
		return ts, nil
	}
	return nil, fmt.Errorf("expected time, got %T", v)
}
