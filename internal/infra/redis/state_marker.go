package redis

import (
	"context"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/redis/go-redis/v9"
)

// StateMarker decorates a game.StateStore with best-effort Redis
// liveness keys, one per in-flight game. Notes:
//   - The inner store stays authoritative; the keys only advertise which
//     games are live (dashboards, cross-instance visibility).
//   - Markers expire on their own if an instance dies mid-round.
type StateMarker struct {
	client *redis.Client
	inner  game.StateStore
	ttl    time.Duration
}

func NewStateMarker(client *redis.Client, inner game.StateStore, ttl time.Duration) *StateMarker {
	return &StateMarker{client: client, inner: inner, ttl: ttl}
}

func (s *StateMarker) Get(ctx context.Context, gameID string) (domain.LiveGameState, error) {
	return s.inner.Get(ctx, gameID)
}

func (s *StateMarker) Create(ctx context.Context, state domain.LiveGameState) error {
	if err := s.inner.Create(ctx, state); err != nil {
		return err
	}
	_ = s.client.Set(ctx, s.key(state.GameID), string(state.Status), s.ttl).Err()
	return nil
}

func (s *StateMarker) Update(ctx context.Context, next domain.LiveGameState, expectedUpdatedAt time.Time) error {
	if err := s.inner.Update(ctx, next, expectedUpdatedAt); err != nil {
		return err
	}
	if next.Status == domain.StatusFinished {
		_ = s.client.Del(ctx, s.key(next.GameID)).Err()
	} else {
		_ = s.client.Set(ctx, s.key(next.GameID), string(next.Status), s.ttl).Err()
	}
	return nil
}

func (s *StateMarker) ListUnfinished(ctx context.Context) ([]domain.LiveGameState, error) {
	return s.inner.ListUnfinished(ctx)
}

func (s *StateMarker) key(gameID string) string {
	return "game:live:" + gameID
}
