package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"kundenportal/internal/crm"
	"kundenportal/internal/domain/quote"
	"kundenportal/internal/pkg/money"
	"kundenportal/internal/pkg/validator"
)

const (
	vatRate    = 0.19
	styleCount = 16
	qrSize     = 256
)

// Article variants that unlock parts of the portal.
var (
	printVariants   = []int64{2, 4, 6}
	qrVariants      = []int64{23}
	galleryVariants = []int64{22}
)

// companyPlaceholders are stored by the CRM when the customer has no company.
var companyPlaceholders = map[string]bool{"": true, "-": true, "–": true, "--": true}

// Service renders confirmed bookings and drives the photo-layout workflow.
type Service struct {
	backend       Backend
	publicBaseURL string
}

func NewService(backend Backend, publicBaseURL string) *Service {
	return &Service{backend: backend, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Styles lists the selectable layout styles, "Style 001" to "Style 016".
func Styles() []string {
	out := make([]string, 0, styleCount)
	for i := 1; i <= styleCount; i++ {
		out = append(out, fmt.Sprintf("Style %03d", i))
	}
	return out
}

func validStyle(s string) bool {
	for _, st := range Styles() {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Service) get(ctx context.Context, token string) (*crm.Booking, error) {
	b, err := s.backend.GetBooking(ctx, token)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		log.Printf("booking_load_failed error=%v", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return b, nil
}

// Load returns the portal view of the booking.
func (s *Service) Load(ctx context.Context, token string) (*BookingView, error) {
	b, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	return newBookingView(b), nil
}

// SubmitLayout stores the customer's layout choice. It is accepted only while
// no layout was submitted yet and never approves the layout.
func (s *Service) SubmitLayout(ctx context.Context, token string, req LayoutRequest) (*BookingView, error) {
	req.Style = strings.TrimSpace(req.Style)
	req.Text = strings.TrimSpace(req.Text)
	req.Date = strings.TrimSpace(req.Date)
	req.Color = strings.TrimSpace(req.Color)

	fields := validator.Validate(req)
	if req.Style != "" && !validStyle(req.Style) {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["style"] = "oneof"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	b, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !hasVariant(b.Items, printVariants) {
		return nil, ErrLayoutNotBooked
	}
	if layoutState(b.Layout) != LayoutForm {
		return nil, ErrLayoutLocked
	}

	upd := crm.LayoutUpdate{Style: req.Style, Text: req.Text, Datum: req.Date, Farbe: req.Color, Kundenfreigabe: false}
	if err := s.update(ctx, token, upd); err != nil {
		return nil, err
	}
	log.Printf("booking_layout_submitted style=%q", req.Style)
	return s.Load(ctx, token)
}

// ApproveLayout approves the layout preview. Only a layout awaiting approval
// can be approved.
func (s *Service) ApproveLayout(ctx context.Context, token string) (*BookingView, error) {
	b, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	if layoutState(b.Layout) != LayoutAwaitingApproval {
		return nil, ErrApprovalNotPossible
	}
	if err := s.update(ctx, token, crm.LayoutUpdate{Kundenfreigabe: true}); err != nil {
		return nil, err
	}
	log.Printf("booking_layout_approved")
	return s.Load(ctx, token)
}

func (s *Service) update(ctx context.Context, token string, upd crm.LayoutUpdate) error {
	err := s.backend.UpdateLayout(ctx, token, upd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, crm.ErrNotFound):
		return ErrBookingNotFound
	default:
		log.Printf("booking_layout_update_failed error=%v", err)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}

// PortalURL is the public address of the booking portal for the token.
func (s *Service) PortalURL(token string) string {
	return s.publicBaseURL + "/kunde/" + token
}

// QRCode renders a PNG QR code linking to the booking portal. The booking
// must exist.
func (s *Service) QRCode(ctx context.Context, token string) ([]byte, error) {
	if _, err := s.get(ctx, token); err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.PortalURL(token), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

func newBookingView(b *crm.Booking) *BookingView {
	v := &BookingView{
		Customer: CustomerView{
			Company:   displayCompany(b.Customer.Company),
			FirstName: b.Customer.FirstName,
			LastName:  b.Customer.LastName,
			Email:     b.Customer.Email,
			Phone:     b.Customer.Phone,
			Type:      string(b.CustomerType),
		},
		Billing: BillingView{
			Name:       billingName(b),
			Street:     b.BillingStreet,
			PostalCode: b.BillingPostal,
			City:       b.BillingCity,
		},
		Event: EventView{
			StartTime:  b.StartTime,
			EndTime:    b.EndTime,
			Location:   b.Location.Name,
			Street:     b.Location.Street,
			PostalCode: b.Location.PostalCode,
			City:       b.Location.City,
		},
		Items:  make([]ItemView, 0, len(b.Items)),
		Totals: totals(quote.Subtotal(b.Items), b.CustomerType),
		Features: FeaturesView{
			Print:         hasVariant(b.Items, printVariants),
			QR:            hasVariant(b.Items, qrVariants),
			OnlineGallery: hasVariant(b.Items, galleryVariants),
		},
		Download: DownloadView{Ready: b.Download.Ready},
	}
	if !b.EventDate.IsZero() {
		v.Event.Date = b.EventDate.Format("2006-01-02")
	}
	for _, it := range b.Items {
		v.Items = append(v.Items, ItemView{
			ID:        it.ID,
			VariantID: it.VariantID,
			Name:      it.Name,
			Quantity:  it.Quantity.Int(),
			UnitPrice: money.Format(it.UnitPrice.Contribution()),
		})
	}

	if v.Features.Print {
		v.Layout = newLayoutView(b.Layout)
	}
	if v.Features.QR {
		v.QRLayout = &QRLayoutView{Done: b.QRLayoutDone}
	}
	if v.Features.OnlineGallery {
		v.Gallery = &GalleryView{Active: b.Gallery.Active}
		if b.Gallery.Active {
			v.Gallery.URL = b.Gallery.URL
			v.Gallery.Password = b.Gallery.Password
		}
	}
	if b.Download.Ready {
		v.Download.URL = b.Download.URL
	}
	return v
}

func newLayoutView(l crm.Layout) *LayoutView {
	state := layoutState(l)
	v := &LayoutView{
		State: state,
		Style: l.Style,
		Text:  l.Text,
		Date:  l.Date,
		Color: l.Color,
		Done:  l.Done,
	}
	switch state {
	case LayoutForm:
		v.Styles = Styles()
	case LayoutAwaitingApproval:
		v.PreviewURL = strings.TrimRight(l.PreviewURL, "/") + "/download"
	case LayoutApproved, LayoutFinalized:
		v.PreviewURL = l.PreviewURL
		if l.Approved {
			v.ApprovedAt = l.ApprovedAt
		}
	}
	return v
}

// layoutState derives the workflow step. A layout marked done with a preview
// is final regardless of the approval flag.
func layoutState(l crm.Layout) LayoutState {
	switch {
	case l.Style == "":
		return LayoutForm
	case l.PreviewURL == "":
		return LayoutInDesign
	case l.Done:
		return LayoutFinalized
	case !l.Approved:
		return LayoutAwaitingApproval
	default:
		return LayoutApproved
	}
}

func totals(sum float64, ct quote.CustomerType) TotalsView {
	t := TotalsView{VATRate: 19}
	if ct.IsPrivate() {
		t.Gross = true
		t.Sum = money.Format(sum)
		t.VAT = money.Format(sum / (1 + vatRate) * vatRate)
		t.GrossSum = money.Format(sum)
		return t
	}
	t.Sum = money.Format(sum)
	t.VAT = money.Format(sum * vatRate)
	t.GrossSum = money.Format(sum * (1 + vatRate))
	return t
}

func displayCompany(company string) string {
	c := strings.TrimSpace(company)
	if companyPlaceholders[c] {
		return ""
	}
	return c
}

// billingName falls back to the company and then to the customer's name.
func billingName(b *crm.Booking) string {
	if name := strings.TrimSpace(b.BillingName); name != "" {
		return name
	}
	if c := displayCompany(b.Customer.Company); c != "" {
		return c
	}
	return strings.TrimSpace(b.Customer.FirstName + " " + b.Customer.LastName)
}

func hasVariant(items []quote.LineItem, variants []int64) bool {
	for _, it := range items {
		for _, v := range variants {
			if it.VariantID == v {
				return true
			}
		}
	}
	return false
}
