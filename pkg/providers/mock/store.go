package mock

import (
	"context"
	"sync"

	"github.com/palinopr/leadflow/pkg/convo"
)

// MemoryStore keeps conversation state in process. Load and Save work on deep
// copies so callers can never mutate stored state by aliasing.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]convo.ConversationState

	LoadErr error
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]convo.ConversationState)}
}

func (s *MemoryStore) Name() string { return "memory_store" }

func (s *MemoryStore) Load(ctx context.Context, contactID string) (convo.ConversationState, bool, error) {
	if s.LoadErr != nil {
		return convo.ConversationState{}, false, s.LoadErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[contactID]
	if !ok {
		return convo.ConversationState{}, false, nil
	}
	return st.Clone(), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, contactID string, state convo.ConversationState) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[contactID] = state.Clone()
	return nil
}

// Len reports how many contacts have stored state.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
