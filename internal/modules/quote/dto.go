package quote

import (
	"time"

	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/pkg/money"
	"kundenportal/internal/session"
)

// DecisionRequest sets the decision for one day.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// ConfirmRequest executes a prepared confirmation.
type ConfirmRequest struct {
	Ticket string `json:"ticket" binding:"required"`
}

// FeedbackRequest is a free-text message about the quote.
type FeedbackRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// QuoteView is the quote as presented to the customer.
type QuoteView struct {
	Grouped       bool               `json:"grouped"`
	GroupID       string             `json:"group_id,omitempty"`
	PrimaryLeadID int64              `json:"primary_lead_id"`
	CustomerType  string             `json:"customer_type"`
	Days          []DayView          `json:"days"`
	GrandTotal    string             `json:"grand_total"`
	Contact       domain.ContactForm `json:"contact"`
	CanSubmit     bool               `json:"can_submit"`
	Undecided     []int64            `json:"undecided,omitempty"`
	Warnings      []domain.Warning   `json:"warnings,omitempty"`
	Completed     bool               `json:"completed"`
	Receipt       *domain.Receipt    `json:"receipt,omitempty"`
	Revision      int64              `json:"revision"`
}

// DayView is one event day with its articles.
type DayView struct {
	LeadID           int64           `json:"lead_id"`
	Label            string          `json:"label"`
	Date             string          `json:"date,omitempty"`
	StartTime        string          `json:"start_time,omitempty"`
	EndTime          string          `json:"end_time,omitempty"`
	Location         domain.Location `json:"location"`
	Confirmed        bool            `json:"confirmed"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	Decision         string          `json:"decision,omitempty"`
	Items            []ItemView      `json:"items"`
	ItemsUnavailable bool            `json:"items_unavailable"`
	Subtotal         string          `json:"subtotal"`
}

// ItemView is one article line.
type ItemView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
	Note      string `json:"note,omitempty"`
}

// PreparedConfirmation is the summary shown before the customer commits.
type PreparedConfirmation struct {
	Ticket        string         `json:"ticket"`
	Days          []DayResult    `json:"days"`
	AcceptedTotal string         `json:"accepted_total"`
	Contact       domain.Contact `json:"contact"`
	Address       domain.Address `json:"address"`
	Billing       domain.Address `json:"billing"`
	SameBilling   bool           `json:"billing_same_as_primary"`
}

func newQuoteView(s *session.Session) QuoteView {
	g := s.Group
	v := QuoteView{
		Grouped:       g.Grouped(),
		GroupID:       g.GroupID,
		PrimaryLeadID: g.PrimaryID,
		Days:          make([]DayView, 0, len(g.Days)),
		Contact:       s.Contact,
		Warnings:      s.Warnings,
		Completed:     s.Completed,
		Receipt:       s.Receipt,
		Revision:      s.Revision,
	}
	if p, ok := g.Primary(); ok {
		v.CustomerType = string(p.Lead.CustomerType)
	}

	totals := domain.Aggregate(g)
	v.GrandTotal = money.Format(totals.Grand)

	for _, d := range g.Days {
		dv := DayView{
			LeadID:           d.Lead.ID,
			Label:            d.Lead.Label(),
			StartTime:        d.Lead.StartTime,
			EndTime:          d.Lead.EndTime,
			Location:         d.Lead.Location,
			Confirmed:        d.Lead.Confirmed,
			ConfirmedAt:      d.Lead.ConfirmedAt,
			Items:            make([]ItemView, 0, len(d.Items)),
			ItemsUnavailable: d.ItemsUnavailable,
			Subtotal:         money.Format(totals.SubtotalFor(d.Lead.ID)),
		}
		if !d.Lead.EventDate.IsZero() {
			dv.Date = d.Lead.EventDate.Format("2006-01-02")
		}
		if g.Grouped() {
			dec, _ := s.Selection.Get(d.Lead.ID)
			dv.Decision = dec.String()
		}
		for _, it := range d.Items {
			dv.Items = append(dv.Items, ItemView{
				ID:        it.ID,
				Name:      it.Name,
				UnitPrice: money.Format(it.UnitPrice.Contribution()),
				Quantity:  it.Quantity.Int(),
				Total:     money.Format(it.Total()),
				Note:      it.Note,
			})
		}
		v.Days = append(v.Days, dv)
	}

	if g.Grouped() && s.Selection != nil {
		err := s.Selection.Validate()
		v.CanSubmit = err == nil
		for _, e := range s.Selection.Entries() {
			if e.Decision == domain.Undecided {
				v.Undecided = append(v.Undecided, e.LeadID)
			}
		}
	} else {
		v.CanSubmit = !s.Completed
	}
	if s.Completed {
		v.CanSubmit = false
	}
	return v
}
