package quote

import (
	"fmt"
	"strings"
	"time"
)

// Contact is the contact snapshot stored on a lead.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

// Location is where the event takes place.
type Location struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// Lead is the quote for one event day.
type Lead struct {
	ID           int64        `json:"id"`
	Contact      Contact      `json:"contact"`
	EventDate    time.Time    `json:"event_date"`
	StartTime    string       `json:"start_time"` // HH:MM
	EndTime      string       `json:"end_time"`   // HH:MM
	Location     Location     `json:"location"`
	CustomerType CustomerType `json:"customer_type"`
	Confirmed    bool         `json:"confirmed"`
	ConfirmedAt  *time.Time   `json:"confirmed_at,omitempty"`
	GroupID      string       `json:"group_id,omitempty"`
}

// LineItem is one article on a quote.
type LineItem struct {
	ID        int64  `json:"id"`
	LeadID    int64  `json:"lead_id"`
	VariantID int64  `json:"variant_id"`
	Name      string `json:"name"`
	UnitPrice Number `json:"unit_price"`
	Quantity  Number `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// Total is price times quantity with malformed values counted as zero.
// Quantities are whole pieces, a fractional quantity is truncated.
func (i LineItem) Total() float64 {
	return i.UnitPrice.Contribution() * float64(i.Quantity.Int())
}

// HasGroup reports whether the lead is part of a multi-day request.
func (l Lead) HasGroup() bool {
	return strings.TrimSpace(l.GroupID) != ""
}

// Label names the day for messages, e.g. "14.06.2025 10:00-14:00 (Schloss Benrath)".
func (l Lead) Label() string {
	var b strings.Builder
	if l.EventDate.IsZero() {
		fmt.Fprintf(&b, "Tag #%d", l.ID)
	} else {
		b.WriteString(l.EventDate.Format("02.01.2006"))
	}
	if start := NormalizeClock(l.StartTime); start != "" {
		b.WriteString(" ")
		b.WriteString(start)
		if end := NormalizeClock(l.EndTime); end != "" {
			b.WriteString("-")
			b.WriteString(end)
		}
	}
	if name := strings.TrimSpace(l.Location.Name); name != "" {
		fmt.Fprintf(&b, " (%s)", name)
	}
	return b.String()
}

// ParseEventDate accepts "2006-01-02" and full RFC 3339 timestamps. Only the
// calendar date is kept.
func ParseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeClock turns "9:30", "09:30:00" or "0930" into zero-padded "HH:MM".
// Unrecognised input is returned trimmed so ordering stays deterministic.
func NormalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ":")
	if len(parts) == 1 && len(s) == 4 {
		parts = []string{s[:2], s[2:]}
	}
	if len(parts) < 2 {
		return s
	}
	h, m := parts[0], parts[1]
	if len(h) == 1 {
		h = "0" + h
	}
	if len(m) == 1 {
		m = "0" + m
	}
	if len(h) != 2 || len(m) != 2 {
		return s
	}
	return h + ":" + m
}
