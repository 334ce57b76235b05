package quote

import (
	"strings"
	"time"
)

// Address is a postal address.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// ContactForm is the customer's editable draft. One form applies to every
// accepted day of a group.
type ContactForm struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`

	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	City       string `json:"city" validate:"required"`

	BillingSameAsPrimary bool   `json:"billing_same_as_primary"`
	BillingStreet        string `json:"billing_street" validate:"required_if=BillingSameAsPrimary false"`
	BillingPostalCode    string `json:"billing_postal_code" validate:"required_if=BillingSameAsPrimary false"`
	BillingCity          string `json:"billing_city" validate:"required_if=BillingSameAsPrimary false"`

	AcceptTerms   bool `json:"accept_terms"`
	AcceptPrivacy bool `json:"accept_privacy"`
}

// NewContactForm prefills the draft from the lead's contact snapshot.
func NewContactForm(l Lead) ContactForm {
	return ContactForm{
		FirstName:            l.Contact.FirstName,
		LastName:             l.Contact.LastName,
		Email:                l.Contact.Email,
		Phone:                l.Contact.Phone,
		Company:              l.Contact.Company,
		BillingSameAsPrimary: true,
	}
}

// Normalize trims every text field.
func (f ContactForm) Normalize() ContactForm {
	for _, p := range []*string{
		&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.Company,
		&f.Street, &f.PostalCode, &f.City,
		&f.BillingStreet, &f.BillingPostalCode, &f.BillingCity,
	} {
		*p = strings.TrimSpace(*p)
	}
	return f
}

// Consented reports whether both terms and privacy were accepted.
func (f ContactForm) Consented() bool {
	return f.AcceptTerms && f.AcceptPrivacy
}

// Primary is the customer's main address.
func (f ContactForm) Primary() Address {
	return Address{Street: f.Street, PostalCode: f.PostalCode, City: f.City}
}

// Billing returns the address invoices go to. When the billing address is the
// same as the primary one, the primary fields are mirrored verbatim.
func (f ContactForm) Billing() Address {
	if f.BillingSameAsPrimary {
		return f.Primary()
	}
	return Address{Street: f.BillingStreet, PostalCode: f.BillingPostalCode, City: f.BillingCity}
}

// Confirmation is the payload sent with every confirmation or conversion call.
type Confirmation struct {
	Contact              Contact
	Address              Address
	Billing              Address
	BillingSameAsPrimary bool
}

// Confirmation builds the payload from the normalised draft.
func (f ContactForm) Confirmation() Confirmation {
	n := f.Normalize()
	return Confirmation{
		Contact: Contact{
			FirstName: n.FirstName,
			LastName:  n.LastName,
			Email:     n.Email,
			Phone:     n.Phone,
			Company:   n.Company,
		},
		Address:              n.Primary(),
		Billing:              n.Billing(),
		BillingSameAsPrimary: n.BillingSameAsPrimary,
	}
}

// Receipt is shown instead of the editable workflow once a quote is confirmed.
type Receipt struct {
	Email       string       `json:"email"`
	ConfirmedAt *time.Time   `json:"confirmed_at,omitempty"`
	Days        []ReceiptDay `json:"days"`
}

// ReceiptDay is one confirmed day.
type ReceiptDay struct {
	LeadID      int64      `json:"lead_id"`
	Label       string     `json:"label"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// ReceiptFor collects the confirmed days of a group once the primary lead is
// confirmed. It returns nil otherwise, so a group whose primary day failed
// stays open for a retry. The email defaults to the primary lead's contact
// address.
func ReceiptFor(g Group, email string) *Receipt {
	primary, ok := g.Primary()
	if !ok || !primary.Lead.Confirmed {
		return nil
	}

	var r Receipt
	for _, d := range g.Days {
		if !d.Lead.Confirmed {
			continue
		}
		r.Days = append(r.Days, ReceiptDay{LeadID: d.Lead.ID, Label: d.Lead.Label(), ConfirmedAt: d.Lead.ConfirmedAt})
		if at := d.Lead.ConfirmedAt; at != nil && (r.ConfirmedAt == nil || at.After(*r.ConfirmedAt)) {
			r.ConfirmedAt = at
		}
	}
	r.Email = strings.TrimSpace(email)
	if r.Email == "" {
		r.Email = primary.Lead.Contact.Email
	}
	return &r
}
