package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"

	"kundenportal/internal/crm"
	"kundenportal/internal/crm/crmtest"
	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/session"
)

type portalTestContext struct {
	backend *crmtest.Backend
	server  *httptest.Server
	service *Service

	token   string
	sess    *session.Session
	view    QuoteView
	outcome *Outcome
	err     error
}

func (p *portalTestContext) reset() {
	if p.server != nil {
		p.server.Close()
	}
	p.backend = crmtest.New()
	p.server = httptest.NewServer(p.backend.Handler())
	p.service = NewService(crm.NewClient(p.server.URL+"/api"), session.NewMemoryStore(), &recordingPublisher{}, time.Hour)
	p.token = ""
	p.sess = nil
	p.view = QuoteView{}
	p.outcome = nil
	p.err = nil
}

func (p *portalTestContext) anUngroupedQuoteWithArticles(token string, leadID int64, table *godog.Table) error {
	items := make([]crm.ItemDTO, 0, len(table.Rows))
	for i, row := range table.Rows[1:] {
		items = append(items, crm.ItemDTO{
			ID:           crm.FlexID(leadID*100 + int64(i)),
			LeadID:       crm.FlexID(leadID),
			VarianteName: row.Cells[0].Value,
			Einzelpreis:  domain.ParseNumber(row.Cells[1].Value),
			Anzahl:       domain.ParseNumber(row.Cells[2].Value),
		})
	}
	p.backend.AddQuote(token, crmtest.Lead(leadID, "2025-06-14", "10:00", "14:00"), items...)
	return nil
}

func (p *portalTestContext) aGroupedQuoteWithDays(token, groupID string, table *godog.Table) error {
	for i, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		price := domain.ParseNumber(row.Cells[3].Value)
		lead := crmtest.GroupedLead(id, groupID, row.Cells[1].Value, row.Cells[2].Value, "23:00")
		item := crmtest.Item(id*100, id, 2, "Fotobox", price.Value, 1)
		if i == 0 {
			p.backend.AddQuote(token, lead, item)
		} else {
			p.backend.AddLead(lead, item)
		}
	}
	return nil
}

func (p *portalTestContext) theDetailsOfLeadAreNotAvailable(leadID int64) error {
	p.backend.HideDetail(leadID)
	return nil
}

func (p *portalTestContext) theDaysOfGroupCannotBeListed(groupID string) error {
	p.backend.FailGroup(groupID, http.StatusInternalServerError)
	return nil
}

func (p *portalTestContext) convertingLeadFailsWithStatus(leadID int64, status int) error {
	p.backend.FailConvert(leadID, status, "Buchung nicht möglich")
	return nil
}

func (p *portalTestContext) theCustomerOpensTheQuote(token string) error {
	sess, _, err := p.service.Open(context.Background(), token, "")
	if err != nil {
		return err
	}
	p.token = token
	p.sess = sess
	p.view = p.service.View(sess)
	return nil
}

func (p *portalTestContext) theCustomerDecides(verb string, leadID int64) error {
	d := domain.Accepted
	if verb == "rejects" {
		d = domain.Rejected
	}
	sess, err := p.service.SetDecision(context.Background(), p.token, p.sess.ID, leadID, d)
	if err != nil {
		return err
	}
	p.sess = sess
	return nil
}

func (p *portalTestContext) theCustomerEntersACompleteContactForm() error {
	sess, err := p.service.UpdateContact(context.Background(), p.token, p.sess.ID, completeContact(p.sess.Contact))
	if err != nil {
		return err
	}
	p.sess = sess
	return nil
}

func (p *portalTestContext) theCustomerEntersTheBillingAddress(street, postal, city string) error {
	form := p.sess.Contact
	form.BillingSameAsPrimary = false
	form.BillingStreet = street
	form.BillingPostalCode = postal
	form.BillingCity = city
	sess, err := p.service.UpdateContact(context.Background(), p.token, p.sess.ID, form)
	if err != nil {
		return err
	}
	p.sess = sess
	return nil
}

func (p *portalTestContext) leadGetsConfirmedFromAnotherDevice(leadID int64) error {
	p.backend.MarkConfirmed(leadID)
	return nil
}

func (p *portalTestContext) anotherConfirmationIsRunning() error {
	if !p.service.inflight.tryAcquire(p.sess.ID) {
		return errors.New("session already busy")
	}
	return nil
}

func (p *portalTestContext) theCustomerConfirms() error {
	ctx := context.Background()
	prepared, err := p.service.Prepare(ctx, p.token, p.sess.ID)
	if err != nil {
		p.err = err
		return nil
	}
	p.outcome, p.err = p.service.Confirm(ctx, p.token, p.sess.ID, prepared.Ticket)
	return nil
}

func (p *portalTestContext) theCustomerConfirmsWithoutReviewing() error {
	p.outcome, p.err = p.service.Confirm(context.Background(), p.token, p.sess.ID, "")
	return nil
}

func (p *portalTestContext) theGrandTotalIs(want string) error {
	if p.view.GrandTotal != want {
		return fmt.Errorf("expected grand total %q, got %q", want, p.view.GrandTotal)
	}
	return nil
}

func (p *portalTestContext) theSubtotalOfLeadIs(leadID int64, want string) error {
	for _, d := range p.view.Days {
		if d.LeadID == leadID {
			if d.Subtotal != want {
				return fmt.Errorf("expected subtotal %q, got %q", want, d.Subtotal)
			}
			return nil
		}
	}
	return fmt.Errorf("lead %d not shown", leadID)
}

func parseIDs(list string) ([]int64, error) {
	var ids []int64
	for _, f := range strings.Split(list, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p *portalTestContext) theDaysAreShownInOrder(list string) error {
	want, err := parseIDs(list)
	if err != nil {
		return err
	}
	got := make([]int64, 0, len(p.view.Days))
	for _, d := range p.view.Days {
		got = append(got, d.LeadID)
	}
	if !equalIDs(want, got) {
		return fmt.Errorf("expected order %v, got %v", want, got)
	}
	return nil
}

// errorCode renders the error through the HTTP error mapping.
func errorCode(err error) string {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	(&Handler{}).writeError(c, err)

	var env envelope
	if json.Unmarshal(w.Body.Bytes(), &env) != nil || env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func (p *portalTestContext) theConfirmationIsBlockedWith(code string) error {
	if p.err == nil {
		return errors.New("expected the confirmation to fail")
	}
	if got := errorCode(p.err); got != code {
		return fmt.Errorf("expected error code %s, got %s (%v)", code, got, p.err)
	}
	return nil
}

func (p *portalTestContext) theConfirmationSucceeds() error {
	if p.err != nil {
		return fmt.Errorf("confirmation failed: %w", p.err)
	}
	if p.outcome == nil || !p.outcome.Succeeded() {
		return errors.New("expected a successful outcome")
	}
	return nil
}

func (p *portalTestContext) noBookingCallWasMade() error {
	if calls := p.backend.MutatingCalls(); len(calls) > 0 {
		return fmt.Errorf("expected no booking call, got %d", len(calls))
	}
	return nil
}

func (p *portalTestContext) theLeadsWereConvertedInOrder(list string) error {
	want, err := parseIDs(list)
	if err != nil {
		return err
	}
	if got := p.backend.ConvertedLeads(); !equalIDs(want, got) {
		return fmt.Errorf("expected conversions %v, got %v", want, got)
	}
	return nil
}

func (p *portalTestContext) leadIsConverted(leadID int64) error {
	if !p.backend.Confirmed(leadID) {
		return fmt.Errorf("lead %d is not confirmed", leadID)
	}
	return nil
}

func (p *portalTestContext) leadIsNotConverted(leadID int64) error {
	if p.backend.Confirmed(leadID) {
		return fmt.Errorf("lead %d is confirmed", leadID)
	}
	return nil
}

func (p *portalTestContext) dayStatus(leadID int64) (DayStatus, error) {
	if p.outcome == nil {
		return "", errors.New("no outcome")
	}
	for _, d := range p.outcome.Days {
		if d.LeadID == leadID {
			return d.Status, nil
		}
	}
	return "", fmt.Errorf("lead %d missing from outcome", leadID)
}

func (p *portalTestContext) theConversionStoppedAtLead(leadID int64) error {
	var convErr *ConversionError
	if !errors.As(p.err, &convErr) {
		return fmt.Errorf("expected a conversion error, got %v", p.err)
	}
	if convErr.Day.LeadID != leadID {
		return fmt.Errorf("expected failure at lead %d, got %d", leadID, convErr.Day.LeadID)
	}
	if !strings.Contains(convErr.Error(), convErr.Day.Label) {
		return errors.New("error does not name the day")
	}
	return nil
}

func (p *portalTestContext) leadWasNotAttempted(leadID int64) error {
	status, err := p.dayStatus(leadID)
	if err != nil {
		return err
	}
	if status != StatusNotAttempted {
		return fmt.Errorf("expected %s, got %s", StatusNotAttempted, status)
	}
	for _, id := range p.backend.ConvertedLeads() {
		if id == leadID {
			return fmt.Errorf("lead %d was sent to the backend", leadID)
		}
	}
	return nil
}

func (p *portalTestContext) theCustomerIsToldAlreadyConfirmed() error {
	if p.outcome == nil || !p.outcome.AlreadyConfirmed {
		return errors.New("expected an already-confirmed outcome")
	}
	return nil
}

func (p *portalTestContext) theReceiptListsDays(n int) error {
	if p.outcome == nil || p.outcome.Receipt == nil {
		return errors.New("no receipt")
	}
	if got := len(p.outcome.Receipt.Days); got != n {
		return fmt.Errorf("expected %d receipt days, got %d", n, got)
	}
	return nil
}

func (p *portalTestContext) everyBookingCallCarriesTheBillingAddress(street, postal, city string) error {
	calls := p.backend.MutatingCalls()
	if len(calls) == 0 {
		return errors.New("no booking call was made")
	}
	for _, c := range calls {
		body, ok := c.Body.(crm.ConfirmRequest)
		if !ok {
			return fmt.Errorf("unexpected body on %s", c.Path)
		}
		r := body.Rechnungsadresse
		if r.RechnungsanschriftStrasse != street || r.RechnungsanschriftPLZ != postal || r.RechnungsanschriftOrt != city {
			return fmt.Errorf("billing address on %s is %q %q %q", c.Path, r.RechnungsanschriftStrasse, r.RechnungsanschriftPLZ, r.RechnungsanschriftOrt)
		}
	}
	return nil
}

func (p *portalTestContext) leadShowsItsArticlesAsUnavailable(leadID int64) error {
	for _, d := range p.view.Days {
		if d.LeadID == leadID {
			if !d.ItemsUnavailable || len(d.Items) != 0 {
				return fmt.Errorf("lead %d shows %d articles", leadID, len(d.Items))
			}
			return nil
		}
	}
	return fmt.Errorf("lead %d not shown", leadID)
}

func (p *portalTestContext) theQuoteIsShownAsASingleDay() error {
	if p.view.Grouped || len(p.view.Days) != 1 {
		return fmt.Errorf("expected one ungrouped day, got %d days (grouped=%v)", len(p.view.Days), p.view.Grouped)
	}
	return nil
}

func (p *portalTestContext) aWarningIsShown(code string) error {
	for _, w := range p.view.Warnings {
		if w.Code == code {
			return nil
		}
	}
	return fmt.Errorf("warning %s not shown", code)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &portalTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.service.Wait()
		tc.server.Close()
		tc.server = nil
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an ungrouped quote "([^"]*)" for lead (\d+) with articles:$`, tc.anUngroupedQuoteWithArticles)
	ctx.Step(`^a grouped quote "([^"]*)" in group "([^"]*)" with days:$`, tc.aGroupedQuoteWithDays)
	ctx.Step(`^the details of lead (\d+) are not available$`, tc.theDetailsOfLeadAreNotAvailable)
	ctx.Step(`^the days of group "([^"]*)" cannot be listed$`, tc.theDaysOfGroupCannotBeListed)
	ctx.Step(`^converting lead (\d+) fails with status (\d+)$`, tc.convertingLeadFailsWithStatus)

	// When steps
	ctx.Step(`^the customer opens the quote "([^"]*)"$`, tc.theCustomerOpensTheQuote)
	ctx.Step(`^the customer (accepts|rejects) lead (\d+)$`, tc.theCustomerDecides)
	ctx.Step(`^the customer enters a complete contact form$`, tc.theCustomerEntersACompleteContactForm)
	ctx.Step(`^the customer enters the billing address "([^"]*)", "([^"]*)" "([^"]*)"$`, tc.theCustomerEntersTheBillingAddress)
	ctx.Step(`^lead (\d+) gets confirmed from another device$`, tc.leadGetsConfirmedFromAnotherDevice)
	ctx.Step(`^another confirmation is running for the session$`, tc.anotherConfirmationIsRunning)
	ctx.Step(`^the customer confirms$`, tc.theCustomerConfirms)
	ctx.Step(`^the customer confirms without reviewing the summary$`, tc.theCustomerConfirmsWithoutReviewing)

	// Then steps
	ctx.Step(`^the grand total is "([^"]*)"$`, tc.theGrandTotalIs)
	ctx.Step(`^the subtotal of lead (\d+) is "([^"]*)"$`, tc.theSubtotalOfLeadIs)
	ctx.Step(`^the days are shown in order (.+)$`, tc.theDaysAreShownInOrder)
	ctx.Step(`^the confirmation is blocked with "([^"]*)"$`, tc.theConfirmationIsBlockedWith)
	ctx.Step(`^the confirmation succeeds$`, tc.theConfirmationSucceeds)
	ctx.Step(`^no booking call was made$`, tc.noBookingCallWasMade)
	ctx.Step(`^the leads were converted in order (.+)$`, tc.theLeadsWereConvertedInOrder)
	ctx.Step(`^lead (\d+) is converted$`, tc.leadIsConverted)
	ctx.Step(`^lead (\d+) is not converted$`, tc.leadIsNotConverted)
	ctx.Step(`^the conversion stopped at lead (\d+)$`, tc.theConversionStoppedAtLead)
	ctx.Step(`^lead (\d+) was not attempted$`, tc.leadWasNotAttempted)
	ctx.Step(`^the customer is told the quote was already confirmed$`, tc.theCustomerIsToldAlreadyConfirmed)
	ctx.Step(`^the receipt lists (\d+) days?$`, tc.theReceiptListsDays)
	ctx.Step(`^every booking call carries the billing address "([^"]*)", "([^"]*)" "([^"]*)"$`, tc.everyBookingCallCarriesTheBillingAddress)
	ctx.Step(`^lead (\d+) shows its articles as unavailable$`, tc.leadShowsItsArticlesAsUnavailable)
	ctx.Step(`^the quote is shown as a single day$`, tc.theQuoteIsShownAsASingleDay)
	ctx.Step(`^a warning "([^"]*)" is shown$`, tc.aWarningIsShown)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
