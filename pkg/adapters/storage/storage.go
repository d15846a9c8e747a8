package storage

import (
	"context"

	"github.com/palinopr/leadflow/pkg/convo"
)

// Store persists conversation state between turns. Load returns found=false
// for an unknown contact; Save replaces the stored state wholesale.
type Store interface {
	Load(ctx context.Context, contactID string) (convo.ConversationState, bool, error)
	Save(ctx context.Context, contactID string, state convo.ConversationState) error
	Name() string
}
