package booking

import "context"

// Confirmation is the booking system's receipt for a reserved slot.
type Confirmation struct {
	BookingID string
	Slot      string
}

// Client fronts the external calendar. CheckAvailability returns up to max
// human-readable slot labels; Book reserves exactly one of them.
type Client interface {
	CheckAvailability(ctx context.Context, max int) ([]string, error)
	Book(ctx context.Context, slot, contactID string) (Confirmation, error)
	Name() string
}
