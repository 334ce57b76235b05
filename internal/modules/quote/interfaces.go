package quote

import (
	"context"

	"kundenportal/internal/crm"
	"kundenportal/internal/modules/progress"
)

// Backend is the part of the CRM API used by the quote workflow.
type Backend interface {
	GetQuote(ctx context.Context, token string) (*crm.Quote, error)
	GetQuoteGroup(ctx context.Context, groupID string) ([]*crm.Quote, error)
	GetQuoteDetailByLead(ctx context.Context, leadID int64) (*crm.Quote, error)
	ConfirmQuote(ctx context.Context, token string, body crm.ConfirmRequest) (crm.Ack, error)
	ConvertLead(ctx context.Context, leadID int64, body crm.ConfirmRequest) (crm.Ack, error)
	SendFeedback(ctx context.Context, token string, fb crm.Feedback) error
}

// ProgressPublisher receives the per-day events of a running confirmation.
type ProgressPublisher interface {
	Publish(sessionID string, ev progress.Event)
}
