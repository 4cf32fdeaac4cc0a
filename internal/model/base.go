package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier prefixes
const (
	PrefixPatient  = "PAT-"
	PrefixVisit    = "VIS-"
	PrefixBill     = "BILL-"
	PrefixInvoice  = "INV-"
	PrefixLineItem = "SVC-"
)

// NewID returns prefix followed by six upper-case hex characters.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + strings.ToUpper(hex[:6])
}

// InvoiceID maps a stored bill id to its external invoice id. A bare
// numeric id is zero-padded to six digits.
func InvoiceID(billID string) string {
	if n, err := strconv.ParseUint(billID, 10, 64); err == nil {
		return fmt.Sprintf("%s%06d", PrefixInvoice, n)
	}
	return strings.ReplaceAll(billID, PrefixBill, PrefixInvoice)
}

// BillID maps an external invoice id back to the stored bill id.
func BillID(invoiceID string) string {
	return strings.ReplaceAll(invoiceID, PrefixInvoice, PrefixBill)
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// SameDay reports whether a and b fall on the same calendar day, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayBounds returns the start of t's calendar day and the start of the next,
// in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the zone-less forms browsers send.
// Zone-less values are read in server-local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

