package memory

import (
	"context"
	"sync"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

type resultKey struct {
	gameID string
	userID string
}

// ResultStore is an in-memory implementation of game.ResultStore. Saving
// the same (game, user) twice keeps the first row, matching the
// idempotent SQL insert.
type ResultStore struct {
	mu      sync.RWMutex
	results map[resultKey]domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[resultKey]domain.GameResult)}
}

func (s *ResultStore) Save(_ context.Context, res domain.GameResult) error {
	key := resultKey{res.GameID, res.UserID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[key]; ok {
		return nil
	}
	s.results[key] = res
	return nil
}

// Get is a test hook into the saved rows.
func (s *ResultStore) Get(gameID, userID string) (domain.GameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[resultKey{gameID, userID}]
	return res, ok
}
