package quote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kundenportal/internal/crm"
	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/modules/progress"
	"kundenportal/internal/pkg/validator"
)

// DayStatus is the result of the confirmation for one day.
type DayStatus string

const (
	StatusConverted        DayStatus = "converted"
	StatusAlreadyConfirmed DayStatus = "already_confirmed"
	StatusFailed           DayStatus = "failed"
	StatusSkipped          DayStatus = "skipped"
	StatusNotAttempted     DayStatus = "not_attempted"
	StatusPending          DayStatus = "pending"
)

// DayResult reports what happened to one day.
type DayResult struct {
	LeadID  int64     `json:"lead_id"`
	Label   string    `json:"label"`
	Status  DayStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// Outcome is the explicit result of a confirmation. Every day of the quote is
// listed with its status.
type Outcome struct {
	Days []DayResult `json:"days"`
	// AlreadyConfirmed is set when at least one day had been confirmed before.
	AlreadyConfirmed bool            `json:"already_confirmed"`
	Receipt          *domain.Receipt `json:"receipt,omitempty"`
	// Group is the quote as reloaded from the backend after a full success.
	Group *domain.Group `json:"-"`
	// Failed points at the day the conversion stopped at.
	Failed *DayResult `json:"failed,omitempty"`
}

// Succeeded reports whether no day failed.
func (o *Outcome) Succeeded() bool {
	return o.Failed == nil
}

// Converted lists the lead IDs converted during this run.
func (o *Outcome) Converted() []int64 {
	var ids []int64
	for _, d := range o.Days {
		if d.Status == StatusConverted {
			ids = append(ids, d.LeadID)
		}
	}
	return ids
}

// Orchestrator validates a confirmation and runs the conversion protocol.
type Orchestrator struct {
	backend  Backend
	loader   *Loader
	progress ProgressPublisher
}

func NewOrchestrator(backend Backend, loader *Loader, publisher ProgressPublisher) *Orchestrator {
	return &Orchestrator{backend: backend, loader: loader, progress: publisher}
}

// Validate checks every precondition of a confirmation without touching the
// backend: required contact fields, consent and, for grouped quotes, a
// complete selection with at least one accepted day.
func (o *Orchestrator) Validate(g domain.Group, sel *domain.Selection, form domain.ContactForm) error {
	form = form.Normalize()
	fields := validator.Validate(form)
	if !form.AcceptTerms {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["accept_terms"] = "required"
	}
	if !form.AcceptPrivacy {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["accept_privacy"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if !g.Grouped() {
		return nil
	}
	if sel == nil {
		sel = domain.NewSelection(g.LeadIDs())
	}
	return sel.Validate()
}

// Plan lists what a confirmation would do for every day, for the summary
// shown before the customer commits.
func (o *Orchestrator) Plan(g domain.Group, sel *domain.Selection) []DayResult {
	out := make([]DayResult, 0, len(g.Days))
	for _, d := range g.Days {
		status := StatusPending
		if g.Grouped() {
			if dec, _ := sel.Get(d.Lead.ID); dec != domain.Accepted {
				status = StatusSkipped
			}
		}
		out = append(out, DayResult{LeadID: d.Lead.ID, Label: d.Lead.Label(), Status: status})
	}
	return out
}

// Execute issues the mutating backend calls. Ungrouped quotes are confirmed
// with one call; grouped quotes convert each accepted day in order and stop at
// the first failure. Days converted before a failure stay converted.
func (o *Orchestrator) Execute(ctx context.Context, sessionID, token string, g domain.Group, sel *domain.Selection, form domain.ContactForm) (*Outcome, error) {
	confirmation := form.Confirmation()
	body := crm.NewConfirmRequest(confirmation)

	if !g.Grouped() {
		return o.confirmSingle(ctx, sessionID, token, g, body, confirmation.Contact.Email)
	}
	return o.convertDays(ctx, sessionID, token, g, sel, body, confirmation.Contact.Email)
}

func (o *Orchestrator) confirmSingle(ctx context.Context, sessionID, token string, g domain.Group, body crm.ConfirmRequest, email string) (*Outcome, error) {
	day, ok := g.Primary()
	if !ok && len(g.Days) > 0 {
		day = g.Days[0]
	}
	res := DayResult{LeadID: day.Lead.ID, Label: day.Lead.Label()}
	out := &Outcome{}

	o.publish(sessionID, progress.Event{Type: progress.EventDayStarted, LeadID: res.LeadID, Label: res.Label, Index: 1, Total: 1})
	ack, err := o.backend.ConfirmQuote(ctx, token, body)

	switch {
	case err != nil:
		return o.fail(sessionID, out, res, "confirm quote", err)
	case ack.AlreadyConfirmed:
		res.Status = StatusAlreadyConfirmed
		res.Message = ack.Message
		out.Days = append(out.Days, res)
		out.AlreadyConfirmed = true
		out.Receipt = fallbackReceipt(out, email)
		log.Printf("quote_confirm_already lead_id=%d", res.LeadID)
		o.publish(sessionID, progress.Event{Type: progress.EventDayAlreadyConfirmed, LeadID: res.LeadID, Label: res.Label, Status: string(res.Status)})
		o.publish(sessionID, progress.Event{Type: progress.EventFinished, Status: string(res.Status)})
		return out, nil
	case !ack.Success:
		res.Message = ack.Message
		return o.fail(sessionID, out, res, "confirm quote", fmt.Errorf("%w: %s", ErrConversionRefused, ack.Message))
	}

	res.Status = StatusConverted
	out.Days = append(out.Days, res)
	log.Printf("quote_confirmed lead_id=%d", res.LeadID)
	o.publish(sessionID, progress.Event{Type: progress.EventDayConverted, LeadID: res.LeadID, Label: res.Label, Status: string(res.Status), Index: 1, Total: 1})

	o.reload(ctx, token, out, email)
	o.publish(sessionID, progress.Event{Type: progress.EventFinished, Status: string(StatusConverted)})
	return out, nil
}

func (o *Orchestrator) convertDays(ctx context.Context, sessionID, token string, g domain.Group, sel *domain.Selection, body crm.ConfirmRequest, email string) (*Outcome, error) {
	out := &Outcome{Days: make([]DayResult, 0, len(g.Days))}
	total := len(sel.Accepted())
	index := 0
	var failure error

	for _, d := range g.Days {
		res := DayResult{LeadID: d.Lead.ID, Label: d.Lead.Label()}

		if dec, _ := sel.Get(d.Lead.ID); dec != domain.Accepted {
			res.Status = StatusSkipped
			out.Days = append(out.Days, res)
			o.publish(sessionID, progress.Event{Type: progress.EventDaySkipped, LeadID: res.LeadID, Label: res.Label, Status: string(res.Status)})
			continue
		}
		if failure != nil {
			res.Status = StatusNotAttempted
			out.Days = append(out.Days, res)
			continue
		}

		index++
		o.publish(sessionID, progress.Event{Type: progress.EventDayStarted, LeadID: res.LeadID, Label: res.Label, Index: index, Total: total})
		ack, err := o.backend.ConvertLead(ctx, d.Lead.ID, body)

		switch {
		case err != nil:
			failure = o.classifyConversion(err)
			res.Status = StatusFailed
			res.Message = err.Error()
		case ack.AlreadyConfirmed:
			res.Status = StatusAlreadyConfirmed
			res.Message = ack.Message
			out.AlreadyConfirmed = true
		case !ack.Success:
			failure = fmt.Errorf("%w: %s", ErrConversionRefused, ack.Message)
			res.Status = StatusFailed
			res.Message = ack.Message
		default:
			res.Status = StatusConverted
		}

		out.Days = append(out.Days, res)
		o.publishResult(sessionID, res, index, total)
		if res.Status == StatusFailed {
			failed := res
			out.Failed = &failed
			log.Printf("quote_convert_failed lead_id=%d group_id=%s error=%v", res.LeadID, g.GroupID, failure)
		} else {
			log.Printf("quote_convert_day lead_id=%d group_id=%s status=%s", res.LeadID, g.GroupID, res.Status)
		}
	}

	if failure != nil {
		o.publish(sessionID, progress.Event{Type: progress.EventFinished, Status: string(StatusFailed), LeadID: out.Failed.LeadID, Label: out.Failed.Label})
		return out, &ConversionError{Outcome: out, Day: *out.Failed, Err: failure}
	}

	o.reload(ctx, token, out, email)
	o.publish(sessionID, progress.Event{Type: progress.EventFinished, Status: string(StatusConverted)})
	return out, nil
}

func (o *Orchestrator) fail(sessionID string, out *Outcome, res DayResult, op string, err error) (*Outcome, error) {
	cause := err
	if !isRefusal(err) {
		cause = o.classifyConversion(err)
	}
	res.Status = StatusFailed
	if res.Message == "" {
		res.Message = err.Error()
	}
	out.Days = append(out.Days, res)
	out.Failed = &res
	log.Printf("quote_confirm_failed op=%q lead_id=%d error=%v", op, res.LeadID, err)
	o.publishResult(sessionID, res, 1, 1)
	o.publish(sessionID, progress.Event{Type: progress.EventFinished, Status: string(StatusFailed), LeadID: res.LeadID, Label: res.Label})
	return out, &ConversionError{Outcome: out, Day: res, Err: cause}
}

func (o *Orchestrator) classifyConversion(err error) error {
	if crm.IsTransport(err) {
		return &NetworkError{Op: "convert", Err: err}
	}
	return err
}

// reload re-reads the quote after a successful run; the backend is the source
// of truth for the receipt.
func (o *Orchestrator) reload(ctx context.Context, token string, out *Outcome, email string) {
	if o.loader != nil {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		res, err := o.loader.Load(ctx, token)
		if err == nil {
			out.Group = &res.Group
			out.Receipt = domain.ReceiptFor(res.Group, email)
		} else {
			log.Printf("quote_reload_failed error=%v", err)
		}
	}
	if out.Receipt == nil {
		out.Receipt = fallbackReceipt(out, email)
	}
}

// fallbackReceipt is used when the reloaded quote does not show the
// confirmation yet.
func fallbackReceipt(out *Outcome, email string) *domain.Receipt {
	r := &domain.Receipt{Email: email}
	for _, d := range out.Days {
		if d.Status == StatusConverted || d.Status == StatusAlreadyConfirmed {
			r.Days = append(r.Days, domain.ReceiptDay{LeadID: d.LeadID, Label: d.Label})
		}
	}
	return r
}

func (o *Orchestrator) publishResult(sessionID string, res DayResult, index, total int) {
	ev := progress.Event{LeadID: res.LeadID, Label: res.Label, Status: string(res.Status), Message: res.Message, Index: index, Total: total}
	switch res.Status {
	case StatusConverted:
		ev.Type = progress.EventDayConverted
	case StatusAlreadyConfirmed:
		ev.Type = progress.EventDayAlreadyConfirmed
	case StatusFailed:
		ev.Type = progress.EventDayFailed
	case StatusSkipped, StatusNotAttempted, StatusPending:
		ev.Type = progress.EventDaySkipped
	}
	o.publish(sessionID, ev)
}

func (o *Orchestrator) publish(sessionID string, ev progress.Event) {
	if o.progress == nil || sessionID == "" {
		return
	}
	o.progress.Publish(sessionID, ev)
}

func isRefusal(err error) bool {
	return errors.Is(err, ErrConversionRefused)
}
