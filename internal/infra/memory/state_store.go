package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// StateStore is an in-memory implementation of game.StateStore. Updates
// are serialized under a mutex and conditioned on the UpdatedAt the
// caller observed, mirroring the optimistic write of the SQL store.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]domain.LiveGameState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]domain.LiveGameState)}
}

func (s *StateStore) Get(_ context.Context, gameID string) (domain.LiveGameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[gameID]
	if !ok {
		return domain.LiveGameState{}, domain.ErrStateNotFound
	}
	return state, nil
}

func (s *StateStore) Create(_ context.Context, state domain.LiveGameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.GameID]; ok {
		return domain.ErrStateExists
	}
	s.states[state.GameID] = state
	return nil
}

func (s *StateStore) Update(_ context.Context, next domain.LiveGameState, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[next.GameID]
	if !ok {
		return domain.ErrStateNotFound
	}
	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrStateConflict
	}
	s.states[next.GameID] = next
	return nil
}

func (s *StateStore) ListUnfinished(_ context.Context) ([]domain.LiveGameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]domain.LiveGameState, 0, len(s.states))
	for _, state := range s.states {
		if state.Status != domain.StatusFinished {
			states = append(states, state)
		}
	}
	return states, nil
}
