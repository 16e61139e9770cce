package game

import (
	"context"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// StateStore persists the authoritative live state of each game.
// Update is conditioned on the UpdatedAt observed at read time so that
// concurrent schedulers cannot both advance past one expired countdown.
type StateStore interface {
	Get(ctx context.Context, gameID string) (domain.LiveGameState, error)
	Create(ctx context.Context, state domain.LiveGameState) error
	Update(ctx context.Context, next domain.LiveGameState, expectedUpdatedAt time.Time) error
	ListUnfinished(ctx context.Context) ([]domain.LiveGameState, error)
}

// GameRepository loads game definitions (from cache/backing store).
type GameRepository interface {
	GetGame(ctx context.Context, gameID string) (domain.GameDefinition, error)
	CountQuestions(ctx context.Context, gameID string) (int, error)
	ListUpcoming(ctx context.Context, from, until time.Time) ([]domain.GameDefinition, error)
}

// AnswerStore persists scored answers. Insert returns
// domain.ErrAlreadyAnswered when a record for the same
// (game, user, question) already exists; the uniqueness constraint is
// enforced by the store, not by callers.
type AnswerStore interface {
	Insert(ctx context.Context, rec domain.AnswerRecord) error
	ListByGame(ctx context.Context, gameID string) ([]domain.AnswerRecord, error)
}

// ResultStore persists final per-user results. Save is idempotent: a
// second save for the same (game, user) is a no-op.
type ResultStore interface {
	Save(ctx context.Context, res domain.GameResult) error
}

// UserDirectory resolves display names for leaderboard entries.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (domain.User, error)
}

// Durations holds the per-phase countdown budgets in seconds.
type Durations struct {
	Question    int
	Result      int
	Leaderboard int
}

// DefaultDurations matches the production phase lengths.
func DefaultDurations() Durations {
	return Durations{Question: 20, Result: 8, Leaderboard: 8}
}
