package quote

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kundenportal/internal/crm"
	domain "kundenportal/internal/domain/quote"
)

// Warning codes attached to a degraded load.
const (
	WarnGroupUnavailable = "GROUP_UNAVAILABLE"
	WarnItemsUnavailable = "ITEMS_UNAVAILABLE"
)

// LoadResult is a normalised quote ready for display.
type LoadResult struct {
	Group    domain.Group
	Warnings []domain.Warning
	// SiblingErr is set when the group could not be expanded.
	SiblingErr *SiblingLoadError
	// Receipt is set once any day of the quote is confirmed.
	Receipt *domain.Receipt
}

// Loader fetches a quote and, for grouped quotes, all sibling days.
type Loader struct {
	backend Backend
}

func NewLoader(backend Backend) *Loader {
	return &Loader{backend: backend}
}

// Load fetches the quote addressed by token. Only a failure of the primary
// fetch is fatal; sibling failures degrade the result and are reported as
// warnings.
func (l *Loader) Load(ctx context.Context, token string) (*LoadResult, error) {
	primary, err := l.backend.GetQuote(ctx, token)
	if err != nil {
		return nil, &LoadError{Err: classify("load quote", err)}
	}

	primaryDay := domain.Day{Lead: primary.Lead, Items: primary.Items}
	res := &LoadResult{}

	if !primary.Lead.HasGroup() {
		res.Group = domain.Single(primaryDay)
		res.Receipt = domain.ReceiptFor(res.Group, "")
		return res, nil
	}

	groupID := primary.Lead.GroupID
	siblings, err := l.backend.GetQuoteGroup(ctx, groupID)
	if err != nil {
		res.SiblingErr = &SiblingLoadError{GroupID: groupID, Err: err}
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    WarnGroupUnavailable,
			Message: "Die weiteren Tage dieser Anfrage konnten nicht geladen werden.",
		})
		log.Printf("quote_load_degraded reason=group_unavailable group_id=%s lead_id=%d error=%v", groupID, primary.Lead.ID, err)
		res.Group = domain.Single(primaryDay)
		res.Receipt = domain.ReceiptFor(res.Group, "")
		return res, nil
	}

	days := make([]domain.Day, 0, len(siblings)+1)
	days = append(days, primaryDay)
	seen := map[int64]bool{primary.Lead.ID: true}
	for _, sib := range siblings {
		if sib == nil || sib.Lead.ID == 0 || seen[sib.Lead.ID] {
			continue
		}
		seen[sib.Lead.ID] = true
		days = append(days, l.loadSibling(ctx, sib.Lead, res))
	}

	res.Group = domain.NewGroup(groupID, primary.Lead.ID, days)
	res.Receipt = domain.ReceiptFor(res.Group, "")
	return res, nil
}

// loadSibling fetches the articles of a sibling day. A failure keeps the day
// with an empty article list marked as not available yet.
func (l *Loader) loadSibling(ctx context.Context, lead domain.Lead, res *LoadResult) domain.Day {
	detail, err := l.backend.GetQuoteDetailByLead(ctx, lead.ID)
	if err != nil {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    WarnItemsUnavailable,
			Message: fmt.Sprintf("Die Artikel für %s sind noch nicht verfügbar.", lead.Label()),
			LeadID:  lead.ID,
		})
		log.Printf("quote_load_degraded reason=items_unavailable lead_id=%d error=%v", lead.ID, err)
		return domain.Day{Lead: lead, Items: []domain.LineItem{}, ItemsUnavailable: true}
	}

	// the detail lead is fresher than the group listing but may omit the group ID
	merged := detail.Lead
	if merged.ID == 0 {
		merged = lead
	}
	if merged.GroupID == "" {
		merged.GroupID = lead.GroupID
	}
	return domain.Day{Lead: merged, Items: detail.Items}
}

// classify maps a backend error onto the workflow taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, crm.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrQuoteNotFound, err)
	case crm.IsTransport(err):
		return &NetworkError{Op: op, Err: err}
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}
