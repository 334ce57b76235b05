package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Decision is the customer's choice for one day of a grouped quote.
type Decision int

const (
	Undecided Decision = iota
	Accepted
	Rejected
)

var (
	ErrUnknownDay      = errors.New("day is not part of this quote")
	ErrInvalidDecision = errors.New("decision must be accepted or rejected")
	ErrNothingAccepted = errors.New("at least one day must be accepted")
	// ErrSelectionIncomplete is matched by *IncompleteSelectionError.
	ErrSelectionIncomplete = errors.New("every day needs a decision")
)

// IncompleteSelectionError lists the days still undecided.
type IncompleteSelectionError struct {
	Undecided []int64
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("%s: %d day(s) undecided", ErrSelectionIncomplete, len(e.Undecided))
}

func (e *IncompleteSelectionError) Is(target error) bool {
	return target == ErrSelectionIncomplete
}

func (d Decision) String() string {
	switch d {
	case Undecided:
		return "undecided"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision accepts "accepted"/"rejected"/"undecided" (case-insensitive).
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "undecided":
		return Undecided, nil
	case "accepted", "accept":
		return Accepted, nil
	case "rejected", "reject":
		return Rejected, nil
	}
	return Undecided, fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	v, err := ParseDecision(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Selection holds exactly one decision per day of a group. Entries are created
// Undecided and can only move to Accepted or Rejected; they are never removed.
type Selection struct {
	order     []int64
	decisions map[int64]Decision
}

// NewSelection initialises every day as Undecided.
func NewSelection(leadIDs []int64) *Selection {
	s := &Selection{decisions: make(map[int64]Decision, len(leadIDs))}
	for _, id := range leadIDs {
		if _, dup := s.decisions[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.decisions[id] = Undecided
	}
	return s
}

// Len is the number of entries.
func (s *Selection) Len() int {
	return len(s.order)
}

// Get returns the decision for a day.
func (s *Selection) Get(leadID int64) (Decision, bool) {
	if s == nil {
		return Undecided, false
	}
	d, ok := s.decisions[leadID]
	return d, ok
}

// Set records a decision. Accepting clears a rejection and vice versa; there is
// no way back to Undecided.
func (s *Selection) Set(leadID int64, d Decision) error {
	if _, ok := s.decisions[leadID]; !ok {
		return ErrUnknownDay
	}
	switch d {
	case Accepted, Rejected:
		s.decisions[leadID] = d
		return nil
	case Undecided:
		return ErrInvalidDecision
	}
	return ErrInvalidDecision
}

// Validate enforces the submission gate: no Undecided entry and at least one Accepted.
func (s *Selection) Validate() error {
	var undecided []int64
	accepted := 0
	for _, id := range s.order {
		switch s.decisions[id] {
		case Undecided:
			undecided = append(undecided, id)
		case Accepted:
			accepted++
		case Rejected:
		}
	}
	if len(undecided) > 0 {
		return &IncompleteSelectionError{Undecided: undecided}
	}
	if accepted == 0 {
		return ErrNothingAccepted
	}
	return nil
}

// Accepted returns the accepted lead IDs in insertion order.
func (s *Selection) Accepted() []int64 {
	if s == nil {
		return nil
	}
	var out []int64
	for _, id := range s.order {
		if s.decisions[id] == Accepted {
			out = append(out, id)
		}
	}
	return out
}

// Entries returns the decisions in insertion order.
func (s *Selection) Entries() []SelectionEntry {
	out := make([]SelectionEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, SelectionEntry{LeadID: id, Decision: s.decisions[id]})
	}
	return out
}

// SelectionEntry is the serialised form of one decision.
type SelectionEntry struct {
	LeadID   int64    `json:"lead_id"`
	Decision Decision `json:"decision"`
}

func (s *Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var entries []SelectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	restored := NewSelection(nil)
	for _, e := range entries {
		if _, dup := restored.decisions[e.LeadID]; dup {
			continue
		}
		restored.order = append(restored.order, e.LeadID)
		restored.decisions[e.LeadID] = e.Decision
	}
	*s = *restored
	return nil
}
