package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/uptrace/bun"
)

type liveGameStateRow struct {
	bun.BaseModel `bun:"table:live_game_states"`

	GameID           string    `bun:"game_id,pk"`
	Status           string    `bun:"status,notnull"`
	QuestionIndex    int       `bun:"question_index,notnull"`
	CountdownSeconds int       `bun:"countdown_seconds,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
	StartedAt        time.Time `bun:"started_at,notnull"`
}

func (r liveGameStateRow) toDomain() domain.LiveGameState {
	return domain.LiveGameState{
		GameID:           r.GameID,
		Status:           domain.Status(r.Status),
		QuestionIndex:    r.QuestionIndex,
		CountdownSeconds: r.CountdownSeconds,
		UpdatedAt:        r.UpdatedAt,
		StartedAt:        r.StartedAt,
	}
}

func rowFromState(s domain.LiveGameState) liveGameStateRow {
	return liveGameStateRow{
		GameID:           s.GameID,
		Status:           string(s.Status),
		QuestionIndex:    s.QuestionIndex,
		CountdownSeconds: s.CountdownSeconds,
		UpdatedAt:        s.UpdatedAt,
		StartedAt:        s.StartedAt,
	}
}

// StateStore persists live game state in Postgres. Updates are
// conditioned on the previously observed updated_at, so two schedulers
// racing past one expired countdown produce exactly one transition.
type StateStore struct {
	db *bun.DB
}

func NewStateStore(db *bun.DB) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) Get(ctx context.Context, gameID string) (domain.LiveGameState, error) {
	var row liveGameStateRow
	err := s.db.NewSelect().Model(&row).Where("game_id = ?", gameID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LiveGameState{}, domain.ErrStateNotFound
	}
	if err != nil {
		return domain.LiveGameState{}, fmt.Errorf("get live state: %w", err)
	}
	return row.toDomain(), nil
}

func (s *StateStore) Create(ctx context.Context, state domain.LiveGameState) error {
	row := rowFromState(state)
	res, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (game_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create live state: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrStateExists
	}
	return nil
}

func (s *StateStore) Update(ctx context.Context, next domain.LiveGameState, expectedUpdatedAt time.Time) error {
	row := rowFromState(next)
	res, err := s.db.NewUpdate().Model(&row).
		WherePK().
		Where("updated_at = ?", expectedUpdatedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update live state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update live state: %w", err)
	}
	if affected == 0 {
		exists, err := s.db.NewSelect().Model((*liveGameStateRow)(nil)).
			Where("game_id = ?", next.GameID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("update live state: %w", err)
		}
		if !exists {
			return domain.ErrStateNotFound
		}
		return domain.ErrStateConflict
	}
	return nil
}

func (s *StateStore) ListUnfinished(ctx context.Context) ([]domain.LiveGameState, error) {
	var rows []liveGameStateRow
	err := s.db.NewSelect().Model(&rows).
		Where("status != ?", string(domain.StatusFinished)).
		Order("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unfinished states: %w", err)
	}
	states := make([]domain.LiveGameState, 0, len(rows))
	for _, row := range rows {
		states = append(states, row.toDomain())
	}
	return states, nil
}
