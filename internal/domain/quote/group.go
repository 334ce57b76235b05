package quote

import "sort"

// Day is one event day of a quote with its articles.
type Day struct {
	Lead  Lead       `json:"lead"`
	Items []LineItem `json:"items"`
	// ItemsUnavailable marks a sibling whose article list could not be fetched yet.
	ItemsUnavailable bool `json:"items_unavailable"`
}

// Subtotal of the day's articles.
func (d Day) Subtotal() float64 {
	return Subtotal(d.Items)
}

// Group is the ordered set of days of one request. An ungrouped quote is a
// group with a single day and an empty GroupID.
type Group struct {
	GroupID   string `json:"group_id,omitempty"`
	PrimaryID int64  `json:"primary_id"`
	Days      []Day  `json:"days"`
}

// NewGroup builds a group and sorts its days by event date and start time.
func NewGroup(groupID string, primaryID int64, days []Day) Group {
	g := Group{GroupID: groupID, PrimaryID: primaryID, Days: append([]Day(nil), days...)}
	SortDays(g.Days)
	return g
}

// Single wraps an ungrouped quote.
func Single(day Day) Group {
	return Group{PrimaryID: day.Lead.ID, Days: []Day{day}}
}

// Grouped reports whether decisions are taken per day.
func (g Group) Grouped() bool {
	return g.GroupID != ""
}

// Primary is the day the access token belongs to.
func (g Group) Primary() (Day, bool) {
	return g.Day(g.PrimaryID)
}

// Day looks a day up by lead ID.
func (g Group) Day(leadID int64) (Day, bool) {
	for _, d := range g.Days {
		if d.Lead.ID == leadID {
			return d, true
		}
	}
	return Day{}, false
}

// LeadIDs in display order.
func (g Group) LeadIDs() []int64 {
	ids := make([]int64, 0, len(g.Days))
	for _, d := range g.Days {
		ids = append(ids, d.Lead.ID)
	}
	return ids
}

// SameDays reports whether both groups contain exactly the same leads.
func (g Group) SameDays(other Group) bool {
	if len(g.Days) != len(other.Days) {
		return false
	}
	seen := make(map[int64]bool, len(g.Days))
	for _, d := range g.Days {
		seen[d.Lead.ID] = true
	}
	for _, d := range other.Days {
		if !seen[d.Lead.ID] {
			return false
		}
	}
	return true
}

// SortDays orders days ascending by event date, then by zero-padded HH:MM start
// time, then by lead ID so equal slots still order deterministically.
func SortDays(days []Day) {
	sort.SliceStable(days, func(i, j int) bool {
		a, b := days[i].Lead, days[j].Lead
		if !a.EventDate.Equal(b.EventDate) {
			return a.EventDate.Before(b.EventDate)
		}
		as, bs := NormalizeClock(a.StartTime), NormalizeClock(b.StartTime)
		if as != bs {
			return as < bs
		}
		return a.ID < b.ID
	})
}

// Warning reports a non-fatal degradation while loading a quote.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LeadID  int64  `json:"lead_id,omitempty"`
}
