package quote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"kundenportal/internal/crm"
	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/pkg/money"
	"kundenportal/internal/pkg/validator"
	"kundenportal/internal/session"
)

const (
	feedbackTimeout = 30 * time.Second
	maxSaveAttempts = 3
)

// Service binds the quote workflow to portal sessions.
type Service struct {
	backend      Backend
	loader       *Loader
	orchestrator *Orchestrator
	sessions     session.Store
	ttl          time.Duration
	inflight     *inflight
	background   sync.WaitGroup
	now          func() time.Time
}

func NewService(backend Backend, sessions session.Store, publisher ProgressPublisher, ttl time.Duration) *Service {
	loader := NewLoader(backend)
	return &Service{
		backend:      backend,
		loader:       loader,
		orchestrator: NewOrchestrator(backend, loader, publisher),
		sessions:     sessions,
		ttl:          ttl,
		inflight:     newInflight(),
		now:          time.Now,
	}
}

// Open loads the quote and returns the caller's session, creating one when
// sessionID is empty, unknown, expired or belongs to another token. The quote
// is always re-read from the backend; decisions survive as long as the set of
// days is unchanged.
func (s *Service) Open(ctx context.Context, token, sessionID string) (*session.Session, bool, error) {
	res, err := s.loader.Load(ctx, token)
	if err != nil {
		return nil, false, err
	}

	sess, created := s.resume(ctx, token, sessionID)
	sess, err = s.persist(ctx, sess, func(x *session.Session) {
		if !x.Completed {
			s.apply(x, res, created)
		}
	})
	if err != nil {
		return nil, false, fmt.Errorf("save session: %w", err)
	}
	return sess, created, nil
}

// persist applies change and saves the session. When another request saved
// the session in between, the stored copy is reloaded and change is applied
// to it again.
func (s *Service) persist(ctx context.Context, sess *session.Session, change func(*session.Session)) (*session.Session, error) {
	for attempt := 1; ; attempt++ {
		change(sess)
		sess.Touch(s.now(), s.ttl)
		err := s.sessions.Save(ctx, sess)
		if err == nil || !errors.Is(err, session.ErrConflict) || attempt == maxSaveAttempts {
			return sess, err
		}
		fresh, gerr := s.sessions.Get(ctx, sess.ID)
		if gerr != nil {
			return sess, gerr
		}
		log.Printf("session_save_retry session_id=%s attempt=%d", sess.ID, attempt)
		sess = fresh
	}
}

func (s *Service) resume(ctx context.Context, token, sessionID string) (*session.Session, bool) {
	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err == nil && sess.Owns(token) {
			return sess, false
		}
		if err != nil && !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrExpired) {
			log.Printf("session_load_failed session_id=%s error=%v", sessionID, err)
		}
	}
	return session.New(token, s.ttl, s.now()), true
}

// apply merges a fresh load into the session.
func (s *Service) apply(sess *session.Session, res *LoadResult, created bool) {
	sameDays := !created && sess.Group.SameDays(res.Group) && sess.Group.Grouped() == res.Group.Grouped()
	sess.Group = res.Group
	sess.Warnings = res.Warnings

	if res.Receipt != nil && !(sameDays && retryPending(res.Group, sess.Selection)) {
		// confirmed elsewhere or in an earlier session
		sess.Complete(res.Group, res.Receipt)
		return
	}

	if created {
		if p, ok := res.Group.Primary(); ok {
			sess.Contact = domain.NewContactForm(p.Lead)
		}
	}
	if !sameDays {
		sess.Selection = nil
		if res.Group.Grouped() {
			sess.Selection = domain.NewSelection(res.Group.LeadIDs())
		}
		sess.Bump()
	}
}

// retryPending reports whether an accepted day is still unconfirmed after a
// partial conversion, so the customer can resume instead of seeing a receipt.
func retryPending(g domain.Group, sel *domain.Selection) bool {
	if !g.Grouped() || sel == nil {
		return false
	}
	for _, id := range sel.Accepted() {
		if d, ok := g.Day(id); ok && !d.Lead.Confirmed {
			return true
		}
	}
	return false
}

// Session returns an existing session of the token.
func (s *Service) Session(ctx context.Context, token, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !sess.Owns(token) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// View renders a session.
func (s *Service) View(sess *session.Session) QuoteView {
	return newQuoteView(sess)
}

// SetDecision records the customer's decision for one day of a grouped quote.
func (s *Service) SetDecision(ctx context.Context, token, sessionID string, leadID int64, d domain.Decision) (*session.Session, error) {
	sess, err := s.Session(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return sess, nil
	}
	if !sess.Group.Grouped() || sess.Selection == nil {
		return nil, ErrNotGrouped
	}
	if err := sess.Selection.Set(leadID, d); err != nil {
		return nil, err
	}
	return sess, s.save(ctx, sess)
}

// UpdateContact replaces the contact draft. The draft is validated only when
// a confirmation is prepared.
func (s *Service) UpdateContact(ctx context.Context, token, sessionID string, form domain.ContactForm) (*session.Session, error) {
	sess, err := s.Session(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return sess, nil
	}
	sess.Contact = form
	return sess, s.save(ctx, sess)
}

func (s *Service) save(ctx context.Context, sess *session.Session) error {
	sess.Bump()
	sess.Touch(s.now(), s.ttl)
	return s.sessions.Save(ctx, sess)
}

// Prepare validates the draft and issues the single-use ticket required by
// Confirm. No backend call is made.
func (s *Service) Prepare(ctx context.Context, token, sessionID string) (*PreparedConfirmation, error) {
	sess, err := s.Session(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return nil, ErrConfirmationRequired
	}
	if err := s.orchestrator.Validate(sess.Group, sess.Selection, sess.Contact); err != nil {
		return nil, err
	}

	plan := s.orchestrator.Plan(sess.Group, sess.Selection)
	var total float64
	for _, d := range plan {
		if d.Status == StatusPending {
			if day, ok := sess.Group.Day(d.LeadID); ok {
				total += day.Subtotal()
			}
		}
	}

	ticket := sess.IssueTicket()
	sess.Touch(s.now(), s.ttl)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	c := sess.Contact.Confirmation()
	return &PreparedConfirmation{
		Ticket:        ticket,
		Days:          plan,
		AcceptedTotal: money.Format(total),
		Contact:       c.Contact,
		Address:       c.Address,
		Billing:       c.Billing,
		SameBilling:   c.BillingSameAsPrimary,
	}, nil
}

// Confirm runs a prepared confirmation. At most one confirmation runs per
// session; the run is detached from ctx cancellation so a disconnecting
// client cannot stop it half-way.
func (s *Service) Confirm(ctx context.Context, token, sessionID, ticket string) (*Outcome, error) {
	if !s.inflight.tryAcquire(sessionID) {
		return nil, ErrConfirmationInFlight
	}
	defer s.inflight.release(sessionID)

	sess, err := s.Session(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return &Outcome{AlreadyConfirmed: true, Receipt: sess.Receipt}, nil
	}

	if !sess.ConsumeTicket(ticket) {
		if err := s.sessions.Save(ctx, sess); err != nil {
			log.Printf("session_save_failed session_id=%s error=%v", sessionID, err)
		}
		return nil, ErrConfirmationRequired
	}
	if err := s.orchestrator.Validate(sess.Group, sess.Selection, sess.Contact); err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	outcome, runErr := s.orchestrator.Execute(runCtx, sessionID, token, sess.Group, sess.Selection, sess.Contact)

	if _, err := s.persist(runCtx, sess, func(x *session.Session) {
		if runErr == nil {
			g := x.Group
			if outcome.Group != nil {
				g = *outcome.Group
			}
			x.Complete(g, outcome.Receipt)
			return
		}
		markConfirmed(&x.Group, outcome)
		x.Bump()
	}); err != nil {
		log.Printf("session_save_failed session_id=%s error=%v", sessionID, err)
	}
	return outcome, runErr
}

// markConfirmed flags the days converted before a failure so the view shows them.
func markConfirmed(g *domain.Group, outcome *Outcome) {
	if outcome == nil {
		return
	}
	done := make(map[int64]bool)
	for _, d := range outcome.Days {
		if d.Status == StatusConverted || d.Status == StatusAlreadyConfirmed {
			done[d.LeadID] = true
		}
	}
	for i := range g.Days {
		if done[g.Days[i].Lead.ID] {
			g.Days[i].Lead.Confirmed = true
		}
	}
}

// SendFeedback validates the message and forwards it in the background.
func (s *Service) SendFeedback(ctx context.Context, token string, req FeedbackRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	req.Email = strings.TrimSpace(req.Email)
	if fields := validator.Validate(req); fields != nil {
		return &ValidationError{Fields: fields}
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedbackTimeout)
		defer cancel()
		if err := s.backend.SendFeedback(ctx, token, crm.Feedback{Message: req.Message, Email: req.Email}); err != nil {
			log.Printf("quote_feedback_failed error=%v", err)
		}
	}()
	return nil
}

// Wait blocks until background work has finished.
func (s *Service) Wait() {
	s.background.Wait()
}
