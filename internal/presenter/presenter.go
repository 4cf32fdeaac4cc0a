// Package presenter turns stored rows into the JSON shapes the front desk
// client consumes.
package presenter

import (
	"strings"
	"time"

	"github.com/jwalitptl/orms-api/internal/model"
)

const (
	timeLayout = "3:04 PM"
	dateLayout = "Jan 02, 2006"
	dayLayout  = "2006-01-02"
)

type Presenter struct {
	now func() time.Time
}

func New(now func() time.Time) *Presenter {
	if now == nil {
		now = time.Now
	}
	return &Presenter{now: now}
}

// FormatInvoiceID rewrites a stored bill id to its external form.
func FormatInvoiceID(billID string) string {
	return model.InvoiceID(billID)
}

// Age is the number of whole years between birth and now.
func Age(birth *time.Time, now time.Time) *int {
	if birth == nil || birth.IsZero() {
		return nil
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return &age
}

// SmartDateTime renders "Today, 3:04 PM", "Yesterday, 3:04 PM" or
// "Jan 02, 2006 3:04 PM", with "-" for a missing value.
func SmartDateTime(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	local := t.In(now.Location())
	clock := local.Format(timeLayout)

	today, _ := model.DayBounds(now)
	day, _ := model.DayBounds(local)
	switch {
	case day.Equal(today):
		return "Today, " + clock
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday, " + clock
	}
	return local.Format(dateLayout) + " " + clock
}

// ISO formats t as RFC 3339, or nil.
func ISO(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func isoDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(dayLayout)
	return &s
}

func joinName(first, last *string) string {
	var b strings.Builder
	if first != nil {
		b.WriteString(*first)
	}
	b.WriteString(" ")
	if last != nil {
		b.WriteString(*last)
	}
	return strings.TrimSpace(b.String())
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
