package quote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kundenportal/internal/crm"
	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/modules/progress"
)

// threeDays is a grouped quote: lead 2 (13.06.), lead 1 (14.06.), lead 3 (15.06.).
func threeDays() domain.Group {
	days := []domain.Day{
		{Lead: testLead(1, "G", "2025-06-14", "10:00"), Items: testItems(1, 100)},
		{Lead: testLead(2, "G", "2025-06-13", "10:00"), Items: testItems(2, 50)},
		{Lead: testLead(3, "G", "2025-06-15", "10:00"), Items: testItems(3, 25)},
	}
	return domain.NewGroup("G", 1, days)
}

func selectionOf(g domain.Group, decisions map[int64]domain.Decision) *domain.Selection {
	sel := domain.NewSelection(g.LeadIDs())
	for id, d := range decisions {
		_ = sel.Set(id, d)
	}
	return sel
}

func TestOrchestrator_ValidateContactFields(t *testing.T) {
	o := NewOrchestrator(new(MockBackend), nil, nil)
	g := domain.Single(domain.Day{Lead: testLead(1, "", "2025-06-14", "10:00")})

	form := validForm()
	form.Email = "not-an-email"
	form.City = "  "
	form.AcceptPrivacy = false

	err := o.Validate(g, nil, form)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "email")
	assert.Contains(t, vErr.Fields, "city")
	assert.Contains(t, vErr.Fields, "accept_privacy")
	assert.NotContains(t, vErr.Fields, "accept_terms")

	assert.NoError(t, o.Validate(g, nil, validForm()))
}

func TestOrchestrator_ValidateSeparateBilling(t *testing.T) {
	o := NewOrchestrator(new(MockBackend), nil, nil)
	g := domain.Single(domain.Day{Lead: testLead(1, "", "2025-06-14", "10:00")})

	form := validForm()
	form.BillingSameAsPrimary = false
	err := o.Validate(g, nil, form)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "billing_street")

	form.BillingStreet = "Rechnungsweg 2"
	form.BillingPostalCode = "50667"
	form.BillingCity = "Köln"
	assert.NoError(t, o.Validate(g, nil, form))
}

func TestOrchestrator_ValidateSelectionGate(t *testing.T) {
	o := NewOrchestrator(new(MockBackend), nil, nil)
	g := threeDays()

	err := o.Validate(g, selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Rejected}), validForm())
	assert.ErrorIs(t, err, domain.ErrSelectionIncomplete)

	err = o.Validate(g, selectionOf(g, map[int64]domain.Decision{1: domain.Rejected, 2: domain.Rejected, 3: domain.Rejected}), validForm())
	assert.ErrorIs(t, err, domain.ErrNothingAccepted)

	err = o.Validate(g, nil, validForm())
	assert.ErrorIs(t, err, domain.ErrSelectionIncomplete)

	assert.NoError(t, o.Validate(g, selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Rejected, 3: domain.Rejected}), validForm()))
}

func TestOrchestrator_PlanMarksRejectedDaysSkipped(t *testing.T) {
	o := NewOrchestrator(new(MockBackend), nil, nil)
	g := threeDays()
	plan := o.Plan(g, selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Rejected, 3: domain.Accepted}))

	require.Len(t, plan, 3)
	assert.Equal(t, int64(2), plan[0].LeadID)
	assert.Equal(t, StatusSkipped, plan[0].Status)
	assert.Equal(t, StatusPending, plan[1].Status)
	assert.Equal(t, StatusPending, plan[2].Status)
}

func TestOrchestrator_ConfirmSingleReloads(t *testing.T) {
	backend := new(MockBackend)
	lead := testLead(1, "", "2025-06-14", "10:00")
	g := domain.Single(domain.Day{Lead: lead, Items: testItems(1, 10)})

	backend.On("ConfirmQuote", mock.Anything, "tok", mock.Anything).Return(crm.Ack{Success: true}, nil).Once()
	backend.On("GetQuote", mock.Anything, "tok").Return(&crm.Quote{Lead: confirmedCopy(lead)}, nil).Once()

	pub := &recordingPublisher{}
	o := NewOrchestrator(backend, NewLoader(backend), pub)
	out, err := o.Execute(context.Background(), "sid", "tok", g, nil, validForm())
	require.NoError(t, err)

	assert.True(t, out.Succeeded())
	assert.False(t, out.AlreadyConfirmed)
	assert.Equal(t, []int64{1}, out.Converted())
	require.NotNil(t, out.Receipt)
	assert.Equal(t, "anna@example.de", out.Receipt.Email)
	require.NotNil(t, out.Group)
	assert.True(t, out.Group.Days[0].Lead.Confirmed)
	assert.Equal(t, []string{progress.EventDayStarted, progress.EventDayConverted, progress.EventFinished}, pub.types())
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "ConvertLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_ConfirmSingleAlreadyConfirmed(t *testing.T) {
	backend := new(MockBackend)
	g := domain.Single(domain.Day{Lead: testLead(1, "", "2025-06-14", "10:00")})
	backend.On("ConfirmQuote", mock.Anything, "tok", mock.Anything).
		Return(crm.Ack{AlreadyConfirmed: true, Message: "already confirmed"}, nil).Once()

	o := NewOrchestrator(backend, NewLoader(backend), nil)
	out, err := o.Execute(context.Background(), "sid", "tok", g, nil, validForm())
	require.NoError(t, err)

	assert.True(t, out.AlreadyConfirmed)
	assert.Equal(t, StatusAlreadyConfirmed, out.Days[0].Status)
	require.NotNil(t, out.Receipt)
	assert.Len(t, out.Receipt.Days, 1)
	backend.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestOrchestrator_ConfirmSingleFailures(t *testing.T) {
	g := domain.Single(domain.Day{Lead: testLead(1, "", "2025-06-14", "10:00")})

	t.Run("refused", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ConfirmQuote", mock.Anything, "tok", mock.Anything).Return(crm.Ack{Success: false, Message: "Angebot abgelaufen"}, nil)
		out, err := NewOrchestrator(backend, nil, nil).Execute(context.Background(), "sid", "tok", g, nil, validForm())

		var convErr *ConversionError
		require.True(t, errors.As(err, &convErr))
		assert.ErrorIs(t, err, ErrConversionRefused)
		assert.Equal(t, "Angebot abgelaufen", convErr.Day.Message)
		assert.False(t, out.Succeeded())
	})

	t.Run("transport", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("ConfirmQuote", mock.Anything, "tok", mock.Anything).
			Return(crm.Ack{}, &crm.TransportError{Op: "confirm", Err: errors.New("timeout")})
		_, err := NewOrchestrator(backend, nil, nil).Execute(context.Background(), "sid", "tok", g, nil, validForm())

		var netErr *NetworkError
		assert.True(t, errors.As(err, &netErr))
	})
}

func TestOrchestrator_ConvertsAcceptedDaysInOrder(t *testing.T) {
	backend := new(MockBackend)
	g := threeDays()
	sel := selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Rejected, 3: domain.Accepted})

	var order []int64
	backend.On("ConvertLead", mock.Anything, mock.AnythingOfType("int64"), mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.Get(1).(int64)) }).
		Return(crm.Ack{Success: true}, nil)

	pub := &recordingPublisher{}
	out, err := NewOrchestrator(backend, nil, pub).Execute(context.Background(), "sid", "tok", g, sel, validForm())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, order)
	assert.Equal(t, []int64{1, 3}, out.Converted())
	assert.Equal(t, StatusSkipped, out.Days[0].Status)
	require.NotNil(t, out.Receipt)
	assert.Len(t, out.Receipt.Days, 2)
	assert.Equal(t, progress.EventFinished, pub.types()[len(pub.types())-1])
	backend.AssertNotCalled(t, "ConvertLead", mock.Anything, int64(2), mock.Anything)
	backend.AssertNotCalled(t, "ConfirmQuote", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_StopsAtFirstFailure(t *testing.T) {
	backend := new(MockBackend)
	g := threeDays()
	sel := selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Accepted, 3: domain.Accepted})

	backend.On("ConvertLead", mock.Anything, int64(2), mock.Anything).Return(crm.Ack{Success: true}, nil).Once()
	backend.On("ConvertLead", mock.Anything, int64(1), mock.Anything).
		Return(crm.Ack{}, &crm.StatusError{Op: "convert", StatusCode: 500, Message: "Datenbankfehler"}).Once()

	out, err := NewOrchestrator(backend, nil, nil).Execute(context.Background(), "sid", "tok", g, sel, validForm())

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, int64(1), convErr.Day.LeadID)
	assert.Contains(t, convErr.Error(), g.Days[1].Lead.Label())

	require.Len(t, out.Days, 3)
	assert.Equal(t, StatusConverted, out.Days[0].Status)
	assert.Equal(t, StatusFailed, out.Days[1].Status)
	assert.Equal(t, StatusNotAttempted, out.Days[2].Status)
	assert.Equal(t, []int64{2}, out.Converted())
	assert.Nil(t, out.Receipt)
	backend.AssertNotCalled(t, "ConvertLead", mock.Anything, int64(3), mock.Anything)
	backend.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestOrchestrator_AlreadyConfirmedDayCountsAsSuccess(t *testing.T) {
	backend := new(MockBackend)
	g := threeDays()
	sel := selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Accepted, 3: domain.Rejected})

	backend.On("ConvertLead", mock.Anything, int64(2), mock.Anything).Return(crm.Ack{AlreadyConfirmed: true}, nil).Once()
	backend.On("ConvertLead", mock.Anything, int64(1), mock.Anything).Return(crm.Ack{Success: true}, nil).Once()

	out, err := NewOrchestrator(backend, nil, nil).Execute(context.Background(), "sid", "tok", g, sel, validForm())
	require.NoError(t, err)

	assert.True(t, out.AlreadyConfirmed)
	assert.Equal(t, StatusAlreadyConfirmed, out.Days[0].Status)
	assert.Equal(t, StatusConverted, out.Days[1].Status)
	backend.AssertExpectations(t)
}

func TestOrchestrator_BillingMirroredInEveryCall(t *testing.T) {
	backend := new(MockBackend)
	g := threeDays()
	sel := selectionOf(g, map[int64]domain.Decision{1: domain.Accepted, 2: domain.Accepted, 3: domain.Accepted})

	mirrored := mock.MatchedBy(func(body crm.ConfirmRequest) bool {
		r := body.Rechnungsadresse
		return r.GleicheRechnungsadresse &&
			r.RechnungsanschriftStrasse == "Hauptstr. 1" &&
			r.RechnungsanschriftPLZ == "40210" &&
			r.RechnungsanschriftOrt == "Düsseldorf"
	})
	backend.On("ConvertLead", mock.Anything, mock.AnythingOfType("int64"), mirrored).Return(crm.Ack{Success: true}, nil).Times(3)

	_, err := NewOrchestrator(backend, nil, nil).Execute(context.Background(), "sid", "tok", g, sel, validForm())
	require.NoError(t, err)
	backend.AssertExpectations(t)
}
