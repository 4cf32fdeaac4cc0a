package presenter

import (
	"strings"

	"github.com/jwalitptl/orms-api/internal/model"
)

type Patient struct {
	ID                           string  `json:"id"`
	Name                         string  `json:"name"`
	Age                          *int    `json:"age"`
	Gender                       string  `json:"gender"`
	GenderIdentity               string  `json:"genderIdentity"`
	Phone                        string  `json:"phone"`
	Email                        string  `json:"email"`
	Address                      string  `json:"address"`
	EmergencyContact             string  `json:"emergencyContact"`
	EmergencyContactRelationship string  `json:"emergencyContactRelationship"`
	EmergencyPhone               string  `json:"emergencyPhone"`
	RegistrationTime             string  `json:"registrationTime"`
	RegistrationDate             *string `json:"registrationDate"`
	CheckInTime                  *string `json:"checkInTime"`
	Status                       string  `json:"status"`
	AssignedDoctor               *string `json:"assignedDoctor"`
	HasFollowUp                  bool    `json:"hasFollowUp"`
	FollowUpDate                 *string `json:"followUpDate"`
	MedicalNotes                 string  `json:"medicalNotes"`
	IsNew                        bool    `json:"isNew"`
}

type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type Invoice struct {
	ID             string        `json:"id"`
	PatientID      string        `json:"patientId"`
	PatientName    string        `json:"patientName"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email"`
	AssignedDoctor string        `json:"assignedDoctor"`
	Date           *string       `json:"date"`
	Items          []InvoiceItem `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	Tax            float64       `json:"tax"`
	Total          float64       `json:"total"`
	Status         string        `json:"status"`
	PaymentMethod  *string       `json:"paymentMethod"`
	PaidDate       *string       `json:"paidDate"`
}

type Stats struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checkedIn"`
	Waiting   int `json:"waiting"`
	Completed int `json:"completed"`
	NewToday  int `json:"newToday"`
}

type Service struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Visit struct {
	ID             string  `json:"id"`
	VisitDate      *string `json:"visitDate"`
	VisitTime      string  `json:"visitTime"`
	CheckInTime    *string `json:"checkInTime"`
	Status         string  `json:"status"`
	Doctor         *string `json:"doctor"`
	ChiefComplaint string  `json:"chiefComplaint"`
	Notes          string  `json:"notes"`
	FollowUpDate   *string `json:"followUpDate"`
}

type FollowUp struct {
	HasFollowUp    bool    `json:"hasFollowUp"`
	VisitID        *string `json:"visitId"`
	VisitDate      *string `json:"visitDate"`
	ChiefComplaint *string `json:"chiefComplaint"`
	Doctor         *string `json:"doctor"`
}

func (p *Presenter) Patient(r *model.PatientRecord) Patient {
	now := p.now()
	out := Patient{
		ID:                           r.ID,
		Name:                         r.FullName(),
		Age:                          Age(r.DateOfBirth, now),
		Gender:                       "Unknown",
		Phone:                        r.Phone,
		Email:                        r.Email,
		Address:                      r.Address,
		EmergencyContact:             r.EmergencyContactName,
		EmergencyContactRelationship: r.EmergencyContactRelationship,
		EmergencyPhone:               r.EmergencyContactPhone,
		RegistrationTime:             SmartDateTime(r.VisitDateTime, now),
		RegistrationDate:             ISO(r.VisitDateTime),
		CheckInTime:                  ISO(r.CheckInDateTime),
		Status:                       model.VisitStatusWaiting.String(),
		AssignedDoctor:               r.DoctorName(),
		HasFollowUp:                  r.FollowUpDate != nil,
		FollowUpDate:                 isoDate(r.FollowUpDate),
		MedicalNotes:                 str(r.Notes),
	}
	if r.SexName != nil {
		out.Gender = *r.SexName
	}
	if r.GenderIdentityName != nil {
		out.GenderIdentity = *r.GenderIdentityName
	}
	if r.StatusID != nil && r.StatusID.Valid() {
		out.Status = r.StatusID.String()
	}
	if r.VisitDateTime != nil {
		out.IsNew = model.SameDay(r.VisitDateTime.In(now.Location()), now)
	}
	return out
}

func (p *Presenter) Patients(records []model.PatientRecord) []Patient {
	out := make([]Patient, len(records))
	for i := range records {
		out[i] = p.Patient(&records[i])
	}
	return out
}

func (p *Presenter) Invoice(r *model.BillRecord) Invoice {
	out := Invoice{
		ID:             FormatInvoiceID(r.ID),
		PatientID:      r.PatientID,
		PatientName:    "Unknown Patient",
		Phone:          str(r.Phone),
		Email:          str(r.Email),
		AssignedDoctor: str(r.DoctorName),
		Date:           ISO(&r.BillingDate),
		Items:          make([]InvoiceItem, len(r.Items)),
		Subtotal:       model.RoundMoney(r.Subtotal),
		Tax:            model.RoundMoney(r.Tax),
		Total:          model.RoundMoney(r.Total),
		Status:         strings.ToLower(r.Status),
		PaymentMethod:  r.PaymentMethodName,
		PaidDate:       ISO(r.PaymentDate),
	}
	if r.FirstName != nil || r.LastName != nil {
		out.PatientName = joinName(r.FirstName, r.LastName)
	}
	if out.Status == "" {
		out.Status = "pending"
	}
	for i, item := range r.Items {
		out.Items[i] = InvoiceItem{
			Description: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   model.RoundMoney(item.Amount),
		}
	}
	return out
}

func (p *Presenter) Invoices(records []model.BillRecord) []Invoice {
	out := make([]Invoice, len(records))
	for i := range records {
		out[i] = p.Invoice(&records[i])
	}
	return out
}

func (p *Presenter) Stats(s *model.DashboardStats) Stats {
	return Stats{
		Total:     s.Total,
		CheckedIn: s.CheckedIn,
		Waiting:   s.Waiting,
		Completed: s.Completed,
		NewToday:  s.NewToday,
	}
}

func (p *Presenter) Services(services []model.Service) []Service {
	out := make([]Service, len(services))
	for i, s := range services {
		out[i] = Service{ID: s.ID, Name: s.Name, Price: model.RoundMoney(s.Price)}
	}
	return out
}

func (p *Presenter) Visits(visits []model.VisitDetail) []Visit {
	now := p.now()
	out := make([]Visit, len(visits))
	for i := range visits {
		v := &visits[i]
		out[i] = Visit{
			ID:             v.ID,
			VisitDate:      ISO(&v.VisitDateTime),
			VisitTime:      SmartDateTime(&v.VisitDateTime, now),
			CheckInTime:    ISO(v.CheckInDateTime),
			Status:         v.Status.String(),
			Doctor:         v.DoctorName(),
			ChiefComplaint: v.ChiefComplaint,
			Notes:          v.Notes,
			FollowUpDate:   isoDate(v.FollowUpDate),
		}
	}
	return out
}

func (p *Presenter) FollowUp(f *model.FollowUp) FollowUp {
	if f == nil || !f.HasFollowUp || f.Visit == nil {
		return FollowUp{}
	}
	id, complaint := f.Visit.ID, f.Visit.ChiefComplaint
	return FollowUp{
		HasFollowUp:    true,
		VisitID:        &id,
		VisitDate:      ISO(&f.Visit.VisitDateTime),
		ChiefComplaint: &complaint,
		Doctor:         f.Visit.DoctorName(),
	}
}

// SubmittedInvoice is an Invoice plus whether the request merged into an
// existing bill.
type SubmittedInvoice struct {
	Invoice
	Merged bool `json:"merged"`
}

func (p *Presenter) Submitted(r *model.BillRecord, merged bool) SubmittedInvoice {
	return SubmittedInvoice{Invoice: p.Invoice(r), Merged: merged}
}
