package booking

import (
	"context"

	"kundenportal/internal/crm"
)

// Backend is the part of the CRM client the booking portal needs.
type Backend interface {
	GetBooking(ctx context.Context, token string) (*crm.Booking, error)
	UpdateLayout(ctx context.Context, token string, upd crm.LayoutUpdate) error
}
