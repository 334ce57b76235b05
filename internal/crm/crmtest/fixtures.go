package crmtest

import (
	"kundenportal/internal/crm"
	"kundenportal/internal/domain/quote"
)

// Tokens of the demo records created by Seed.
const (
	SingleToken  = "angebot-einzel"
	GroupToken   = "angebot-gruppe"
	BookingToken = "kunde-demo"
	DemoGroupID  = "G-2025-0042"
)

// Lead returns a lead fixture with a complete contact snapshot.
func Lead(id int64, date, start, end string) crm.LeadDTO {
	return crm.LeadDTO{
		ID:                    crm.FlexID(id),
		Vorname:               "Anna",
		Nachname:              "Schmidt",
		Email:                 "anna.schmidt@example.de",
		Telefon:               "0211 123456",
		Firmenname:            "-",
		Kundentyp:             "Privat",
		KundentypCode:         "private",
		EventDatum:            date,
		EventStartzeit:        start,
		EventEndzeit:          end,
		EventLocation:         "Schloss Benrath",
		EventAnschriftStrasse: "Benrather Schlossallee 100",
		EventAnschriftPLZ:     "40597",
		EventAnschriftOrt:     "Düsseldorf",
	}
}

// GroupedLead is Lead with a group ID.
func GroupedLead(id int64, groupID, date, start, end string) crm.LeadDTO {
	l := Lead(id, date, start, end)
	l.GruppeID = crm.FlexString(groupID)
	return l
}

// Item returns an article fixture.
func Item(id, leadID, variantID int64, name string, price, qty float64) crm.ItemDTO {
	return crm.ItemDTO{
		ID:                crm.FlexID(id),
		LeadID:            crm.FlexID(leadID),
		ArtikelVarianteID: crm.FlexID(variantID),
		VarianteName:      name,
		Einzelpreis:       quote.Num(price),
		Anzahl:            quote.Num(qty),
	}
}

// Seed fills the backend with an ungrouped quote, a three-day group and a booking.
func Seed(b *Backend) {
	b.AddQuote(SingleToken, Lead(100, "2025-08-16", "18:00:00", "23:00:00"),
		Item(1, 100, 2, "Fotobox mit Druck", 10.00, 2),
		Item(2, 100, 22, "Online-Galerie", 5.50, 1),
	)

	b.AddQuote(GroupToken, GroupedLead(201, DemoGroupID, "2025-09-13", "14:00", "18:00"),
		Item(10, 201, 2, "Fotobox mit Druck", 399, 1),
	)
	b.AddLead(GroupedLead(202, DemoGroupID, "2025-09-12", "9:30", "12:00"),
		Item(11, 202, 4, "Fotobox Premium", 499, 1),
		Item(12, 202, 23, "QR-Sofortbild", 49.90, 1),
	)
	b.AddLead(GroupedLead(203, DemoGroupID, "2025-09-13", "19:00", "23:30"),
		Item(13, 203, 1, "Fotobox digital", 299, 1),
	)

	booking := crm.BookingDTO{
		KundeVorname:          "Jonas",
		KundeNachname:         "Weber",
		KundeEmail:            "jonas.weber@example.de",
		KundeFirma:            "Weber Events GmbH",
		Kundentyp:             "Firma",
		KundentypCode:         "business",
		EventDatum:            "2025-10-04",
		EventStartzeit:        "19:00:00",
		EventEndzeit:          "01:00:00",
		EventLocation:         "Rheinterrasse",
		EventAnschriftStrasse: "Joseph-Beuys-Ufer 33",
		EventAnschriftPLZ:     "40479",
		EventAnschriftOrt:     "Düsseldorf",
		RechnungsStrasse:      "Königsallee 1",
		RechnungsPLZ:          "40212",
		RechnungsOrt:          "Düsseldorf",
		OnlineGalerieURL:      "https://galerie.example.de/weber",
		GaleriePasswort:       "knips2025",
	}
	b.AddBooking(BookingToken, booking,
		Item(20, 0, 2, "Fotobox mit Druck", 449, 1),
		Item(21, 0, 22, "Online-Galerie", 79, 1),
	)
}
