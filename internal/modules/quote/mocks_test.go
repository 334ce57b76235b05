package quote

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"kundenportal/internal/crm"
	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/modules/progress"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetQuote(ctx context.Context, token string) (*crm.Quote, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Quote), args.Error(1)
}

func (m *MockBackend) GetQuoteGroup(ctx context.Context, groupID string) ([]*crm.Quote, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crm.Quote), args.Error(1)
}

func (m *MockBackend) GetQuoteDetailByLead(ctx context.Context, leadID int64) (*crm.Quote, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Quote), args.Error(1)
}

func (m *MockBackend) ConfirmQuote(ctx context.Context, token string, body crm.ConfirmRequest) (crm.Ack, error) {
	args := m.Called(ctx, token, body)
	return args.Get(0).(crm.Ack), args.Error(1)
}

func (m *MockBackend) ConvertLead(ctx context.Context, leadID int64, body crm.ConfirmRequest) (crm.Ack, error) {
	args := m.Called(ctx, leadID, body)
	return args.Get(0).(crm.Ack), args.Error(1)
}

func (m *MockBackend) SendFeedback(ctx context.Context, token string, fb crm.Feedback) error {
	args := m.Called(ctx, token, fb)
	return args.Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []progress.Event
}

func (p *recordingPublisher) Publish(_ string, ev progress.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func testLead(id int64, groupID, date, start string) domain.Lead {
	d, _ := domain.ParseEventDate(date)
	return domain.Lead{
		ID:        id,
		GroupID:   groupID,
		EventDate: d,
		StartTime: domain.NormalizeClock(start),
		EndTime:   "23:00",
		Location:  domain.Location{Name: "Schloss Benrath"},
		Contact:   domain.Contact{FirstName: "Anna", LastName: "Schmidt", Email: "anna@example.de"},
	}
}

func testItems(leadID int64, prices ...float64) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(prices))
	for i, p := range prices {
		items = append(items, domain.LineItem{ID: leadID*10 + int64(i), LeadID: leadID, Name: "Artikel", UnitPrice: domain.Num(p), Quantity: domain.Num(1)})
	}
	return items
}

func validForm() domain.ContactForm {
	return domain.ContactForm{
		FirstName:            "Anna",
		LastName:             "Schmidt",
		Email:                "anna@example.de",
		Street:               "Hauptstr. 1",
		PostalCode:           "40210",
		City:                 "Düsseldorf",
		BillingSameAsPrimary: true,
		AcceptTerms:          true,
		AcceptPrivacy:        true,
	}
}

func confirmedCopy(l domain.Lead) domain.Lead {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.Confirmed = true
	l.ConfirmedAt = &at
	return l
}
