package booking

import "time"

// LayoutRequest is the photo-print layout chosen by the customer.
type LayoutRequest struct {
	Style string `json:"style" validate:"required"`
	Text  string `json:"text" validate:"max=200"`
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Color string `json:"color" validate:"required,hexcolor,len=7"`
}

// LayoutState is the step of the photo-layout workflow.
type LayoutState string

const (
	LayoutForm             LayoutState = "form"
	LayoutInDesign         LayoutState = "in_design"
	LayoutAwaitingApproval LayoutState = "awaiting_approval"
	LayoutApproved         LayoutState = "approved"
	LayoutFinalized        LayoutState = "finalized"
)

// BookingView is the booking as presented in the customer portal.
type BookingView struct {
	Customer CustomerView `json:"customer"`
	Billing  BillingView  `json:"billing"`
	Event    EventView    `json:"event"`
	Items    []ItemView   `json:"items"`
	Totals   TotalsView   `json:"totals"`
	Features FeaturesView `json:"features"`

	Layout   *LayoutView   `json:"layout,omitempty"`
	QRLayout *QRLayoutView `json:"qr_layout,omitempty"`
	Gallery  *GalleryView  `json:"gallery,omitempty"`
	Download DownloadView  `json:"download"`
}

type CustomerView struct {
	// Company is empty when the CRM holds a placeholder.
	Company   string `json:"company,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Type      string `json:"type"`
}

type BillingView struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

type EventView struct {
	Date       string `json:"date,omitempty"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Location   string `json:"location,omitempty"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

type ItemView struct {
	ID        int64  `json:"id"`
	VariantID int64  `json:"variant_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// TotalsView carries the VAT breakdown. For private customers the item sum is
// gross; for everyone else it is net and Gross is added on top.
type TotalsView struct {
	Sum      string `json:"sum"`
	Gross    bool   `json:"sum_is_gross"`
	VAT      string `json:"vat"`
	VATRate  int    `json:"vat_rate"`
	GrossSum string `json:"gross_total"`
}

type FeaturesView struct {
	Print         bool `json:"print"`
	QR            bool `json:"qr"`
	OnlineGallery bool `json:"online_gallery"`
}

type LayoutView struct {
	State      LayoutState `json:"state"`
	Style      string      `json:"style,omitempty"`
	Text       string      `json:"text,omitempty"`
	Date       string      `json:"date,omitempty"`
	Color      string      `json:"color,omitempty"`
	PreviewURL string      `json:"preview_url,omitempty"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
	Done       bool        `json:"done"`
	Styles     []string    `json:"styles,omitempty"`
}

type QRLayoutView struct {
	Done bool `json:"done"`
}

type GalleryView struct {
	Active   bool   `json:"active"`
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
}

type DownloadView struct {
	Ready bool   `json:"ready"`
	URL   string `json:"url,omitempty"`
}
