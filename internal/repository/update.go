package repository

// Change is one (field, value) pair of a partial update.
type Change[F ~string] struct {
	Field F
	Value any
}

// Changes accumulates the fields a partial update touches, in the order they
// were first set. Setting a field twice keeps the last value.
type Changes[F ~string] struct {
	items []Change[F]
}

func (c *Changes[F]) Set(field F, value any) *Changes[F] {
	for i := range c.items {
		if c.items[i].Field == field {
			c.items[i].Value = value
			return c
		}
	}
	c.items = append(c.items, Change[F]{Field: field, Value: value})
	return c
}

func (c Changes[F]) Get(field F) (any, bool) {
	for _, item := range c.items {
		if item.Field == field {
			return item.Value, true
		}
	}
	return nil, false
}

func (c Changes[F]) Len() int { return len(c.items) }

func (c Changes[F]) Empty() bool { return len(c.items) == 0 }

func (c Changes[F]) Each(fn func(field F, value any)) {
	for _, item := range c.items {
		fn(item.Field, item.Value)
	}
}

type PatientField string

const (
	PatientFirstName                    PatientField = "first_name"
	PatientLastName                     PatientField = "last_name"
	PatientPhone                        PatientField = "phone"
	PatientEmail                        PatientField = "email"
	PatientAddress                      PatientField = "address"
	PatientEmergencyContactName         PatientField = "emergency_contact_name"
	PatientEmergencyContactRelationship PatientField = "emergency_contact_relationship"
	PatientEmergencyContactPhone        PatientField = "emergency_contact_phone"
	PatientSexID                        PatientField = "sex_id"
	PatientGenderIdentityID             PatientField = "gender_identity_id"
)

type VisitField string

const (
	VisitDoctorID        VisitField = "doctor_id"
	VisitStatusID        VisitField = "status_id"
	VisitCheckInDateTime VisitField = "check_in_datetime"
	VisitFollowUpDate    VisitField = "followup_date"
	VisitNotes           VisitField = "notes"
)

type BillField string

const (
	BillSubtotal        BillField = "subtotal"
	BillTax             BillField = "tax"
	BillTotal           BillField = "amount_total"
	BillStatus          BillField = "status"
	BillPaymentMethodID BillField = "payment_method_id"
	BillPaymentDate     BillField = "payment_date"
)

type (
	PatientChanges = Changes[PatientField]
	VisitChanges   = Changes[VisitField]
	BillChanges    = Changes[BillField]
)
