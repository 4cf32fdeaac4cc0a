package model

import (
	"strings"
	"time"
)

type Patient struct {
	ID                           string     `db:"patient_id" json:"id"`
	FirstName                    string     `db:"first_name" json:"first_name"`
	LastName                     string     `db:"last_name" json:"last_name"`
	DateOfBirth                  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	SexID                        int        `db:"sex_id" json:"sex_id"`
	GenderIdentityID             int        `db:"gender_identity_id" json:"gender_identity_id"`
	Phone                        string     `db:"phone" json:"phone"`
	Email                        string     `db:"email" json:"email"`
	Address                      string     `db:"address" json:"address"`
	EmergencyContactName         string     `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactRelationship string     `db:"emergency_contact_relationship" json:"emergency_contact_relationship"`
	EmergencyContactPhone        string     `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	CreatedAt                    time.Time  `db:"created_at" json:"created_at"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PatientRecord is a patient joined with its most recent visit, if any.
type PatientRecord struct {
	Patient
	SexName            *string      `db:"sex_name"`
	GenderIdentityName *string      `db:"gender_identity_name"`
	VisitID            *string      `db:"visit_id"`
	VisitDateTime      *time.Time   `db:"visit_datetime"`
	CheckInDateTime    *time.Time   `db:"check_in_datetime"`
	Notes              *string      `db:"notes"`
	FollowUpDate       *time.Time   `db:"followup_date"`
	StatusID           *VisitStatus `db:"status_id"`
	DoctorFirstName    *string      `db:"doctor_first_name"`
	DoctorLastName     *string      `db:"doctor_last_name"`
}

func (r PatientRecord) DoctorName() *string {
	return fullName(r.DoctorFirstName, r.DoctorLastName)
}

type PatientFilters struct {
	Status string `form:"status"`
	Doctor string `form:"doctor"`
	Search string `form:"search"`
}

type CreatePatientRequest struct {
	FirstName                    string  `json:"firstName" binding:"required"`
	LastName                     string  `json:"lastName" binding:"required"`
	DateOfBirth                  string  `json:"dateOfBirth" binding:"required"`
	Sex                          string  `json:"sex"`
	Gender                       string  `json:"gender" binding:"required"`
	Phone                        string  `json:"phone" binding:"required"`
	Email                        string  `json:"email" binding:"omitempty,email"`
	Address                      string  `json:"address"`
	EmergencyContact             string  `json:"emergencyContact"`
	EmergencyContactRelationship string  `json:"emergencyContactRelationship"`
	EmergencyPhone               string  `json:"emergencyPhone"`
	AssignedDoctor               string  `json:"assignedDoctor"`
	HasFollowUp                  bool    `json:"hasFollowUp"`
	FollowUpDate                 *string `json:"followUpDate"`
	MedicalNotes                 string  `json:"medicalNotes"`
}

// UpdatePatientRequest carries only the fields a client sent.
type UpdatePatientRequest struct {
	Name                         *string `json:"name"`
	Phone                        *string `json:"phone"`
	Email                        *string `json:"email" binding:"omitempty,email"`
	Address                      *string `json:"address"`
	EmergencyContact             *string `json:"emergencyContact"`
	EmergencyContactRelationship *string `json:"emergencyContactRelationship"`
	EmergencyPhone               *string `json:"emergencyPhone"`
	Sex                          *string `json:"sex"`
	Gender                       *string `json:"gender"`
	AssignedDoctor               *string `json:"assignedDoctor"`
	Status                       *string `json:"status"`
	HasFollowUp                  *bool   `json:"hasFollowUp"`
	FollowUpDate                 *string `json:"followUpDate"`
	MedicalNotes                 *string `json:"medicalNotes"`
}

type DashboardStats struct {
	Total     int `db:"total"`
	CheckedIn int `db:"checked_in"`
	Waiting   int `db:"waiting"`
	Completed int `db:"completed"`
	NewToday  int `db:"new_today"`
}

// Sex lookup ids
var sexIDs = map[string]int{
	"male":   1,
	"female": 2,
}

const DefaultSexID = 1

// Gender identity lookup ids
var genderIdentityIDs = map[string]int{
	"male":              1,
	"female":            2,
	"non-binary":        3,
	"prefer not to say": 4,
	"other":             5,
}

const DefaultGenderIdentityID = 4

func SexID(name string) (int, bool) {
	id, ok := sexIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

func GenderIdentityID(name string) (int, bool) {
	id, ok := genderIdentityIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// SplitName splits on the first space only.
func SplitName(name string) (first, last string, hasLast bool) {
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", false
}
