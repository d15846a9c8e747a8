package mock

import (
	"context"
	"sync"
)

// Delivered is one captured outbound message.
type Delivered struct {
	ContactID string
	Text      string
}

// Sender captures outbound messages instead of sending them.
type Sender struct {
	mu   sync.Mutex
	sent []Delivered

	SendErr error
}

func NewSender() *Sender { return &Sender{} }

func (s *Sender) Name() string { return "mock_delivery" }

func (s *Sender) Send(ctx context.Context, contactID, text string) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Delivered{ContactID: contactID, Text: text})
	return nil
}

// Sent returns a copy of everything captured so far.
func (s *Sender) Sent() []Delivered {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivered, len(s.sent))
	copy(out, s.sent)
	return out
}
