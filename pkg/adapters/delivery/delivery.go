package delivery

import "context"

// Sender pushes the agent's reply back over the lead's channel.
type Sender interface {
	Send(ctx context.Context, contactID, text string) error
	Name() string
}
