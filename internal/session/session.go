package session

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"kundenportal/internal/domain/quote"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
	ErrConflict = errors.New("session was modified concurrently")
)

// Session is the server-side state of one browser working on one access
// token: the loaded quote, the day decisions and the contact draft.
type Session struct {
	ID        string `json:"id"`
	TokenHash string `json:"token_hash"`

	Group     quote.Group       `json:"group"`
	Warnings  []quote.Warning   `json:"warnings,omitempty"`
	Selection *quote.Selection  `json:"selection,omitempty"`
	Contact   quote.ContactForm `json:"contact"`

	// Revision grows with every change of the draft. A confirmation ticket
	// is only valid for the revision it was issued at.
	Revision       int64  `json:"revision"`
	Ticket         string `json:"ticket,omitempty"`
	TicketRevision int64  `json:"ticket_revision,omitempty"`

	// Version counts successful saves. A save carrying an older version than
	// the stored one fails with ErrConflict.
	Version int64 `json:"version"`

	Completed bool           `json:"completed"`
	Receipt   *quote.Receipt `json:"receipt,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New starts a session for the access token.
func New(token string, ttl time.Duration, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        uuid.NewString(),
		TokenHash: HashToken(token),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// HashToken returns the hex blake2b-256 digest of an access token. Raw tokens
// are never stored.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Owns reports whether the session belongs to the access token.
func (s *Session) Owns(token string) bool {
	return subtle.ConstantTimeCompare([]byte(s.TokenHash), []byte(HashToken(token))) == 1
}

// IsExpired reports whether the session outlived its TTL.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Touch extends the session and records the change time.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.UpdatedAt = now.UTC()
	s.ExpiresAt = s.UpdatedAt.Add(ttl)
}

// Bump marks the draft as changed, which invalidates any issued ticket.
func (s *Session) Bump() {
	s.Revision++
	s.Ticket = ""
	s.TicketRevision = 0
}

// IssueTicket creates a single-use confirmation ticket for the current revision.
func (s *Session) IssueTicket() string {
	s.Ticket = uuid.NewString()
	s.TicketRevision = s.Revision
	return s.Ticket
}

// ConsumeTicket checks and invalidates the ticket. It fails when the ticket is
// unknown, was already used, or the draft changed after it was issued.
func (s *Session) ConsumeTicket(ticket string) bool {
	if s.Ticket == "" || ticket == "" {
		return false
	}
	ok := subtle.ConstantTimeCompare([]byte(s.Ticket), []byte(ticket)) == 1 && s.TicketRevision == s.Revision
	s.Ticket = ""
	s.TicketRevision = 0
	return ok
}

// Complete replaces the draft by the receipt once the backend acknowledged
// the confirmation.
func (s *Session) Complete(g quote.Group, r *quote.Receipt) {
	s.Group = g
	s.Receipt = r
	s.Completed = true
	s.Selection = nil
	s.Contact = quote.ContactForm{}
	s.Bump()
}
