package crm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"kundenportal/internal/domain/quote"
)

// FlexID decodes an identifier sent either as a JSON number or a numeric string.
type FlexID int64

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		*id = 0
		return nil
	}
	*id = FlexID(v)
	return nil
}

// FlexString decodes a string, number or null into a trimmed string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	*s = FlexString(string(data))
	return nil
}

// FlexBool decodes true/false, 0/1 and their string forms.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(string(bytes.Trim(bytes.TrimSpace(data), `"`))) {
	case "true", "1", "t", "yes", "ja":
		*b = true
	default:
		*b = false
	}
	return nil
}

// LeadDTO is a lead as the CRM backend serialises it.
type LeadDTO struct {
	ID                    FlexID     `json:"id"`
	Vorname               string     `json:"vorname"`
	Nachname              string     `json:"nachname"`
	Email                 string     `json:"email"`
	Telefon               string     `json:"telefon"`
	Firmenname            string     `json:"firmenname"`
	Kundentyp             string     `json:"kundentyp"`
	KundentypCode         string     `json:"kundentyp_code,omitempty"`
	EventDatum            string     `json:"event_datum"`
	EventStartzeit        string     `json:"event_startzeit"`
	EventEndzeit          string     `json:"event_endzeit"`
	EventLocation         string     `json:"event_location"`
	EventAnschriftStrasse string     `json:"event_anschrift_strasse"`
	EventAnschriftPLZ     string     `json:"event_anschrift_plz"`
	EventAnschriftOrt     string     `json:"event_anschrift_ort"`
	Bestaetigt            FlexBool   `json:"bestaetigt"`
	BestaetigtAm          string     `json:"bestaetigt_am,omitempty"`
	GruppeID              FlexString `json:"gruppe_id,omitempty"`
	GroupID               FlexString `json:"groupId,omitempty"`
}

// ItemDTO is a quote or booking article.
type ItemDTO struct {
	ID                FlexID       `json:"id"`
	LeadID            FlexID       `json:"lead_id"`
	ArtikelVarianteID FlexID       `json:"artikel_variante_id"`
	VarianteName      string       `json:"variante_name"`
	Einzelpreis       quote.Number `json:"einzelpreis"`
	Anzahl            quote.Number `json:"anzahl"`
	Bemerkung         string       `json:"bemerkung,omitempty"`
}

// QuoteDTO is the answer of GET /quote/{token} and GET /quote-detail-by-lead/{id}.
// Older backend versions name the article list "artikel".
type QuoteDTO struct {
	Lead    LeadDTO   `json:"lead"`
	Items   []ItemDTO `json:"items,omitempty"`
	Artikel []ItemDTO `json:"artikel,omitempty"`
}

// Quote is a lead with its articles.
type Quote struct {
	Lead  quote.Lead
	Items []quote.LineItem
}

func (d LeadDTO) toDomain() quote.Lead {
	l := quote.Lead{
		ID: int64(d.ID),
		Contact: quote.Contact{
			FirstName: strings.TrimSpace(d.Vorname),
			LastName:  strings.TrimSpace(d.Nachname),
			Email:     strings.TrimSpace(d.Email),
			Phone:     strings.TrimSpace(d.Telefon),
			Company:   strings.TrimSpace(d.Firmenname),
		},
		StartTime: quote.NormalizeClock(d.EventStartzeit),
		EndTime:   quote.NormalizeClock(d.EventEndzeit),
		Location: quote.Location{
			Name:       strings.TrimSpace(d.EventLocation),
			Street:     strings.TrimSpace(d.EventAnschriftStrasse),
			PostalCode: strings.TrimSpace(d.EventAnschriftPLZ),
			City:       strings.TrimSpace(d.EventAnschriftOrt),
		},
		CustomerType: quote.ParseCustomerType(d.KundentypCode, d.Kundentyp),
		Confirmed:    bool(d.Bestaetigt),
		GroupID:      string(d.GruppeID),
	}
	if l.GroupID == "" {
		l.GroupID = string(d.GroupID)
	}
	if t, ok := quote.ParseEventDate(d.EventDatum); ok {
		l.EventDate = t
	}
	if at, ok := parseTimestamp(d.BestaetigtAm); ok {
		l.ConfirmedAt = &at
		l.Confirmed = true
	}
	return l
}

func (d ItemDTO) toDomain(leadID int64) quote.LineItem {
	it := quote.LineItem{
		ID:        int64(d.ID),
		LeadID:    int64(d.LeadID),
		VariantID: int64(d.ArtikelVarianteID),
		Name:      strings.TrimSpace(d.VarianteName),
		UnitPrice: d.Einzelpreis,
		Quantity:  d.Anzahl,
		Note:      strings.TrimSpace(d.Bemerkung),
	}
	if it.LeadID == 0 {
		it.LeadID = leadID
	}
	return it
}

func (d QuoteDTO) toDomain() *Quote {
	lead := d.Lead.toDomain()
	raw := d.Items
	if len(raw) == 0 {
		raw = d.Artikel
	}
	items := make([]quote.LineItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, it.toDomain(lead.ID))
	}
	return &Quote{Lead: lead, Items: items}
}

// groupDTO accepts both a bare array of leads and {"leads": [...]}.
type groupDTO []LeadDTO

func (g *groupDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var leads []LeadDTO
		if err := json.Unmarshal(data, &leads); err != nil {
			return err
		}
		*g = leads
		return nil
	}
	var wrapped struct {
		Leads []LeadDTO `json:"leads"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*g = wrapped.Leads
	return nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// KontaktDTO is the contact snapshot sent with a confirmation.
type KontaktDTO struct {
	Vorname    string `json:"vorname"`
	Nachname   string `json:"nachname"`
	Email      string `json:"email"`
	Telefon    string `json:"telefon"`
	Firmenname string `json:"firmenname"`
}

// RechnungsadresseDTO carries the primary and the billing address. The billing
// fields are always populated; with GleicheRechnungsadresse they repeat the
// primary address.
type RechnungsadresseDTO struct {
	AnschriftStrasse          string `json:"anschrift_strasse"`
	AnschriftPLZ              string `json:"anschrift_plz"`
	AnschriftOrt              string `json:"anschrift_ort"`
	RechnungsanschriftStrasse string `json:"rechnungsanschrift_strasse"`
	RechnungsanschriftPLZ     string `json:"rechnungsanschrift_plz"`
	RechnungsanschriftOrt     string `json:"rechnungsanschrift_ort"`
	GleicheRechnungsadresse   bool   `json:"gleicheRechnungsadresse"`
}

// ConfirmRequest is the body of the confirm and convert-to-booking calls.
type ConfirmRequest struct {
	Kontakt          KontaktDTO          `json:"kontakt"`
	Rechnungsadresse RechnungsadresseDTO `json:"rechnungsadresse"`
}

// NewConfirmRequest maps a confirmation payload to the wire format.
func NewConfirmRequest(c quote.Confirmation) ConfirmRequest {
	return ConfirmRequest{
		Kontakt: KontaktDTO{
			Vorname:    c.Contact.FirstName,
			Nachname:   c.Contact.LastName,
			Email:      c.Contact.Email,
			Telefon:    c.Contact.Phone,
			Firmenname: c.Contact.Company,
		},
		Rechnungsadresse: RechnungsadresseDTO{
			AnschriftStrasse:          c.Address.Street,
			AnschriftPLZ:              c.Address.PostalCode,
			AnschriftOrt:              c.Address.City,
			RechnungsanschriftStrasse: c.Billing.Street,
			RechnungsanschriftPLZ:     c.Billing.PostalCode,
			RechnungsanschriftOrt:     c.Billing.City,
			GleicheRechnungsadresse:   c.BillingSameAsPrimary,
		},
	}
}

type ackDTO struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (a ackDTO) message() string {
	if a.Message != "" {
		return a.Message
	}
	return a.Error
}

// Feedback is a free-text message about a quote.
type Feedback struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// BookingDTO is a confirmed booking as served by GET /auftrag/{token}.
type BookingDTO struct {
	KundeVorname             string   `json:"kunde_vorname"`
	KundeNachname            string   `json:"kunde_nachname"`
	KundeEmail               string   `json:"kunde_email"`
	KundeTelefon             string   `json:"kunde_telefon"`
	KundeFirma               string   `json:"kunde_firma"`
	Kundentyp                string   `json:"kundentyp"`
	KundentypCode            string   `json:"kundentyp_code,omitempty"`
	EventDatum               string   `json:"event_datum"`
	EventStartzeit           string   `json:"event_startzeit"`
	EventEndzeit             string   `json:"event_endzeit"`
	EventLocation            string   `json:"event_location"`
	EventAnschriftStrasse    string   `json:"event_anschrift_strasse"`
	EventAnschriftPLZ        string   `json:"event_anschrift_plz"`
	EventAnschriftOrt        string   `json:"event_anschrift_ort"`
	LayoutFertig             FlexBool `json:"layout_fertig"`
	LayoutQRFertig           FlexBool `json:"layout_qr_fertig"`
	OnlineGalerieURL         string   `json:"online_galerie_url"`
	GalerieAktiv             FlexBool `json:"galerie_aktiv"`
	GaleriePasswort          string   `json:"galerie_passwort"`
	RechnungsName            string   `json:"rechnungs_name"`
	RechnungsStrasse         string   `json:"rechnungs_strasse"`
	RechnungsPLZ             string   `json:"rechnungs_plz"`
	RechnungsOrt             string   `json:"rechnungs_ort"`
	FotosBereit              FlexBool `json:"fotos_bereit"`
	FotodownloadLink         string   `json:"fotodownload_link"`
	FotolayoutStyle          string   `json:"fotolayout_style"`
	FotolayoutText           string   `json:"fotolayout_text"`
	FotolayoutDatum          string   `json:"fotolayout_datum"`
	FotolayoutFarbe          string   `json:"fotolayout_farbe"`
	FotolayoutLink           string   `json:"fotolayout_link"`
	FotolayoutKundenfreigabe FlexBool `json:"fotolayout_kundenfreigabe"`
	FotolayoutFreigabeAm     string   `json:"fotolayout_freigabe_am"`
}

// BookingResponseDTO is the envelope of GET /auftrag/{token}.
type BookingResponseDTO struct {
	Buchung BookingDTO `json:"buchung"`
	Artikel []ItemDTO  `json:"artikel"`
}

// Booking is a confirmed booking with its articles.
type Booking struct {
	Customer     quote.Contact
	CustomerType quote.CustomerType
	EventDate    time.Time
	StartTime    string
	EndTime      string
	Location     quote.Location

	BillingName   string
	BillingStreet string
	BillingPostal string
	BillingCity   string

	Layout       Layout
	Gallery      Gallery
	Download     Download
	QRLayoutDone bool

	Items []quote.LineItem
}

// Layout is the photo-print layout workflow state held by the backend.
type Layout struct {
	Style      string
	Text       string
	Date       string
	Color      string
	PreviewURL string
	Approved   bool
	ApprovedAt *time.Time
	Done       bool
}

// Gallery is the online gallery access.
type Gallery struct {
	Active   bool
	URL      string
	Password string
}

// Download is the photo download link, usable once the photos are ready.
type Download struct {
	Ready bool
	URL   string
}

func (d BookingResponseDTO) toDomain() *Booking {
	b := d.Buchung
	out := &Booking{
		Customer: quote.Contact{
			FirstName: strings.TrimSpace(b.KundeVorname),
			LastName:  strings.TrimSpace(b.KundeNachname),
			Email:     strings.TrimSpace(b.KundeEmail),
			Phone:     strings.TrimSpace(b.KundeTelefon),
			Company:   strings.TrimSpace(b.KundeFirma),
		},
		CustomerType: quote.ParseCustomerType(b.KundentypCode, b.Kundentyp),
		StartTime:    quote.NormalizeClock(b.EventStartzeit),
		EndTime:      quote.NormalizeClock(b.EventEndzeit),
		Location: quote.Location{
			Name:       strings.TrimSpace(b.EventLocation),
			Street:     strings.TrimSpace(b.EventAnschriftStrasse),
			PostalCode: strings.TrimSpace(b.EventAnschriftPLZ),
			City:       strings.TrimSpace(b.EventAnschriftOrt),
		},
		BillingName:   strings.TrimSpace(b.RechnungsName),
		BillingStreet: strings.TrimSpace(b.RechnungsStrasse),
		BillingPostal: strings.TrimSpace(b.RechnungsPLZ),
		BillingCity:   strings.TrimSpace(b.RechnungsOrt),
		Layout: Layout{
			Style:      strings.TrimSpace(b.FotolayoutStyle),
			Text:       b.FotolayoutText,
			Date:       b.FotolayoutDatum,
			Color:      b.FotolayoutFarbe,
			PreviewURL: strings.TrimSpace(b.FotolayoutLink),
			Approved:   bool(b.FotolayoutKundenfreigabe),
			Done:       bool(b.LayoutFertig),
		},
		Gallery: Gallery{
			Active:   bool(b.GalerieAktiv),
			URL:      strings.TrimSpace(b.OnlineGalerieURL),
			Password: b.GaleriePasswort,
		},
		Download: Download{
			Ready: bool(b.FotosBereit),
			URL:   strings.TrimSpace(b.FotodownloadLink),
		},
		QRLayoutDone: bool(b.LayoutQRFertig),
		Items:        make([]quote.LineItem, 0, len(d.Artikel)),
	}
	if t, ok := quote.ParseEventDate(b.EventDatum); ok {
		out.EventDate = t
	}
	if at, ok := parseTimestamp(b.FotolayoutFreigabeAm); ok {
		out.Layout.ApprovedAt = &at
	}
	for _, it := range d.Artikel {
		out.Items = append(out.Items, it.toDomain(0))
	}
	return out
}

// LayoutUpdate is the body of PATCH /auftrag/{token}/layout. An approval sends
// only Kundenfreigabe.
type LayoutUpdate struct {
	Style          string `json:"style,omitempty"`
	Text           string `json:"text,omitempty"`
	Datum          string `json:"datum,omitempty"`
	Farbe          string `json:"farbe,omitempty"`
	Kundenfreigabe bool   `json:"kundenfreigabe"`
}
