package postgres

import (
	"context"
	"fmt"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/uptrace/bun"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	GameID        string `bun:"game_id,pk"`
	UserID        string `bun:"user_id,pk"`
	Rank          int    `bun:"rank,notnull"`
	CorrectCount  int    `bun:"correct_count,notnull"`
	AnsweredCount int    `bun:"answered_count,notnull"`
}

// ResultStore persists final per-user results. A second save for the
// same (game, user) is a silent no-op.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Save(ctx context.Context, res domain.GameResult) error {
	row := gameResultRow{
		GameID:        res.GameID,
		UserID:        res.UserID,
		Rank:          res.Rank,
		CorrectCount:  res.CorrectCount,
		AnsweredCount: res.AnsweredCount,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (game_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save game result: %w", err)
	}
	return nil
}
