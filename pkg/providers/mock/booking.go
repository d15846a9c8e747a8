package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/palinopr/leadflow/pkg/adapters/booking"
)

// BookingClient serves a fixed slot list and records bookings.
type BookingClient struct {
	mu    sync.Mutex
	slots []string

	AvailabilityErr error
	BookErr         error
	Booked          []booking.Confirmation
}

func NewBookingClient(slots []string) *BookingClient {
	if len(slots) == 0 {
		slots = []string{"Lunes 10:00 AM", "Martes 2:00 PM", "Miércoles 4:00 PM"}
	}
	return &BookingClient{slots: slots}
}

func (c *BookingClient) Name() string { return "mock_booking" }

func (c *BookingClient) CheckAvailability(ctx context.Context, max int) ([]string, error) {
	if c.AvailabilityErr != nil {
		return nil, c.AvailabilityErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if max <= 0 || max > len(c.slots) {
		max = len(c.slots)
	}
	out := make([]string, max)
	copy(out, c.slots[:max])
	return out, nil
}

func (c *BookingClient) Book(ctx context.Context, slot, contactID string) (booking.Confirmation, error) {
	if c.BookErr != nil {
		return booking.Confirmation{}, c.BookErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	conf := booking.Confirmation{
		BookingID: fmt.Sprintf("bk_%s_%d", contactID, len(c.Booked)+1),
		Slot:      slot,
	}
	c.Booked = append(c.Booked, conf)
	return conf, nil
}

// BookCount reports how many bookings were made.
func (c *BookingClient) BookCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Booked)
}
