package quote

// Subtotal sums price times quantity over the items. Lines are not rounded
// individually; rounding happens once, when the amount is displayed.
func Subtotal(items []LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}

// DayTotal is the subtotal of one day.
type DayTotal struct {
	LeadID   int64
	Subtotal float64
}

// Totals holds the per-day subtotals and the informational grand total.
type Totals struct {
	Days  []DayTotal
	Grand float64
}

// Aggregate computes per-day subtotals and the grand total. For grouped quotes
// the grand total covers every day regardless of the decisions taken, so the
// customer sees the full request before deciding.
func Aggregate(g Group) Totals {
	t := Totals{Days: make([]DayTotal, 0, len(g.Days))}
	for _, d := range g.Days {
		sub := d.Subtotal()
		t.Days = append(t.Days, DayTotal{LeadID: d.Lead.ID, Subtotal: sub})
		t.Grand += sub
	}
	return t
}

// SubtotalFor looks up the subtotal of a day.
func (t Totals) SubtotalFor(leadID int64) float64 {
	for _, d := range t.Days {
		if d.LeadID == leadID {
			return d.Subtotal
		}
	}
	return 0
}
