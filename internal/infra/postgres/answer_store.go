package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/uptrace/bun"
)

type answerRecordRow struct {
	bun.BaseModel `bun:"table:answer_records"`

	GameID        string    `bun:"game_id,pk"`
	UserID        string    `bun:"user_id,pk"`
	QuestionIndex int       `bun:"question_index,pk"`
	OptionID      string    `bun:"option_id,notnull"`
	IsCorrect     bool      `bun:"is_correct,notnull"`
	Points        int       `bun:"points,notnull"`
	LatencyMs     int       `bun:"latency_ms,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// AnswerStore persists scored answers. The (game, user, question)
// primary key enforces uniqueness at the storage layer, surviving
// near-simultaneous duplicate submissions from the same user.
type AnswerStore struct {
	db *bun.DB
}

func NewAnswerStore(db *bun.DB) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) Insert(ctx context.Context, rec domain.AnswerRecord) error {
	row := answerRecordRow{
		GameID:        rec.GameID,
		UserID:        rec.UserID,
		QuestionIndex: rec.QuestionIndex,
		OptionID:      rec.OptionID,
		IsCorrect:     rec.Correct,
		Points:        rec.Points,
		LatencyMs:     rec.LatencyMs,
		CreatedAt:     rec.CreatedAt,
	}
	res, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (game_id, user_id, question_index) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrAlreadyAnswered
	}
	return nil
}

func (s *AnswerStore) ListByGame(ctx context.Context, gameID string) ([]domain.AnswerRecord, error) {
	var rows []answerRecordRow
	err := s.db.NewSelect().Model(&rows).
		Where("game_id = ?", gameID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	records := make([]domain.AnswerRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.AnswerRecord{
			GameID:        row.GameID,
			UserID:        row.UserID,
			QuestionIndex: row.QuestionIndex,
			OptionID:      row.OptionID,
			Correct:       row.IsCorrect,
			Points:        row.Points,
			LatencyMs:     row.LatencyMs,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records, nil
}
