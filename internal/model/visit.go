package model

import (
	"fmt"
	"strings"
	"time"
)

// VisitStatus is the state of a visit. Values are the visit_status lookup ids.
type VisitStatus int

const (
	VisitStatusWaiting   VisitStatus = 1
	VisitStatusCheckedIn VisitStatus = 2
	VisitStatusCompleted VisitStatus = 3
)

var visitStatusNames = map[VisitStatus]string{
	VisitStatusWaiting:   "waiting",
	VisitStatusCheckedIn: "checked-in",
	VisitStatusCompleted: "completed",
}

// ParseVisitStatus resolves a status name such as "checked-in". Names match
// exactly; "Checked-In" is not a status.
func ParseVisitStatus(name string) (VisitStatus, error) {
	for status, n := range visitStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("invalid visit status %q", name)
}

func (s VisitStatus) Valid() bool {
	_, ok := visitStatusNames[s]
	return ok
}

func (s VisitStatus) String() string {
	if n, ok := visitStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("VisitStatus(%d)", int(s))
}

type Visit struct {
	ID              string      `db:"visit_id" json:"id"`
	PatientID       string      `db:"patient_id" json:"patient_id"`
	DoctorID        *string     `db:"doctor_id" json:"doctor_id,omitempty"`
	VisitDateTime   time.Time   `db:"visit_datetime" json:"visit_datetime"`
	CheckInDateTime *time.Time  `db:"check_in_datetime" json:"check_in_datetime,omitempty"`
	Status          VisitStatus `db:"status_id" json:"status_id"`
	Notes           string      `db:"notes" json:"notes"`
	ChiefComplaint  string      `db:"chief_complaint" json:"chief_complaint"`
	FollowUpDate    *time.Time  `db:"followup_date" json:"followup_date,omitempty"`
	CreatedByUserID *int64      `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// VisitDetail is a visit joined with its doctor's name.
type VisitDetail struct {
	Visit
	DoctorFirstName *string `db:"doctor_first_name"`
	DoctorLastName  *string `db:"doctor_last_name"`
}

func (v VisitDetail) DoctorName() *string {
	return fullName(v.DoctorFirstName, v.DoctorLastName)
}

// FollowUp is the result of a follow-up check for one patient.
type FollowUp struct {
	HasFollowUp bool
	Visit       *VisitDetail
}

// Diagnosis and Prescription hang off a visit. Only deletion is handled here.
type Diagnosis struct {
	ID      string `db:"diagnosis_id"`
	VisitID string `db:"visit_id"`
}

type Prescription struct {
	ID      string `db:"prescription_id"`
	VisitID string `db:"visit_id"`
}

type UpdateVisitStatusRequest struct {
	Status string `json:"status" binding:"omitempty,visit_status"`
}

func fullName(first, last *string) *string {
	if first == nil && last == nil {
		return nil
	}
	var parts []string
	if first != nil {
		parts = append(parts, *first)
	}
	if last != nil {
		parts = append(parts, *last)
	}
	name := strings.TrimSpace(strings.Join(parts, " "))
	return &name
}
