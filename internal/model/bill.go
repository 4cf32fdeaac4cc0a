package model

import (
	"strings"
	"time"
)

const (
	BillStatusPending = "Pending"
	BillStatusPaid    = "Paid"
)

type Bill struct {
	ID              string     `db:"bill_id" json:"id"`
	VisitID         string     `db:"visit_id" json:"visit_id"`
	PatientID       string     `db:"patient_id" json:"patient_id"`
	Subtotal        float64    `db:"subtotal" json:"subtotal"`
	Tax             float64    `db:"tax" json:"tax"`
	Total           float64    `db:"amount_total" json:"total"`
	Status          string     `db:"status" json:"status"`
	PaymentMethodID *int       `db:"payment_method_id" json:"payment_method_id,omitempty"`
	PaymentDate     *time.Time `db:"payment_date" json:"payment_date,omitempty"`
	BillingDate     time.Time  `db:"billing_date" json:"billing_date"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

func (b Bill) IsPending() bool {
	return strings.EqualFold(b.Status, BillStatusPending)
}

// BillService is one line item on a bill. ServiceName is free text.
type BillService struct {
	ID          string  `db:"service_id" json:"id"`
	BillID      string  `db:"bill_id" json:"bill_id"`
	ServiceName string  `db:"service_name" json:"service_name"`
	Amount      float64 `db:"amount" json:"amount"`
	Quantity    int     `db:"quantity" json:"quantity"`
}

// BillRecord is a bill joined with its patient, payment method and doctor.
type BillRecord struct {
	Bill
	FirstName         *string       `db:"first_name"`
	LastName          *string       `db:"last_name"`
	Phone             *string       `db:"phone"`
	Email             *string       `db:"email"`
	PaymentMethodName *string       `db:"payment_method_name"`
	DoctorName        *string       `db:"doctor_name"`
	Items             []BillService `db:"-"`
}

type InvoiceFilters struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

type LineItem struct {
	ServiceID   string  `json:"serviceId,omitempty"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type ServiceRequest struct {
	PatientID      string     `json:"patientId"`
	DoctorID       *string    `json:"doctorId"`
	ChiefComplaint *string    `json:"chiefComplaint"`
	Items          []LineItem `json:"items"`
}

type UpdateInvoiceRequest struct {
	Status        *string `json:"status"`
	PaymentMethod *string `json:"paymentMethod"`
	PaidDate      *string `json:"paidDate" binding:"omitempty,timestamp"`
}

// Totals computes subtotal, tax and total from line items at the given rate.
func Totals(items []BillService, taxRate float64) (subtotal, tax, total float64) {
	for _, item := range items {
		subtotal += item.Amount * float64(item.Quantity)
	}
	subtotal = RoundMoney(subtotal)
	tax = RoundMoney(subtotal * taxRate)
	total = RoundMoney(subtotal + tax)
	return subtotal, tax, total
}
