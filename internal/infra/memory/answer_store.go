package memory

import (
	"context"
	"sync"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

type answerKey struct {
	gameID        string
	userID        string
	questionIndex int
}

// AnswerStore is an in-memory implementation of game.AnswerStore. The
// (game, user, question) uniqueness constraint is enforced under the
// store's own lock so near-simultaneous duplicates cannot both land.
type AnswerStore struct {
	mu      sync.RWMutex
	byKey   map[answerKey]struct{}
	records map[string][]domain.AnswerRecord
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		byKey:   make(map[answerKey]struct{}),
		records: make(map[string][]domain.AnswerRecord),
	}
}

func (s *AnswerStore) Insert(_ context.Context, rec domain.AnswerRecord) error {
	key := answerKey{rec.GameID, rec.UserID, rec.QuestionIndex}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[key]; ok {
		return domain.ErrAlreadyAnswered
	}
	s.byKey[key] = struct{}{}
	s.records[rec.GameID] = append(s.records[rec.GameID], rec)
	return nil
}

// ListByGame returns answers in insertion order.
func (s *AnswerStore) ListByGame(_ context.Context, gameID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.AnswerRecord, len(s.records[gameID]))
	copy(records, s.records[gameID])
	return records, nil
}
