package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// GameLoader loads game definition JSONB from Postgres.
type GameLoader struct {
	pool *pgxpool.Pool
}

func NewGameLoader(pool *pgxpool.Pool) *GameLoader {
	return &GameLoader{pool: pool}
}

func (l *GameLoader) LoadGame(ctx context.Context, gameID string) (domain.GameDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM games WHERE id=$1`, gameID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameDefinition{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.GameDefinition{}, fmt.Errorf("load game: %w", err)
	}
	var def domain.GameDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.GameDefinition{}, fmt.Errorf("unmarshal game: %w", err)
	}
	return def, nil
}

func (l *GameLoader) ListScheduled(ctx context.Context, from, until time.Time) ([]domain.GameDefinition, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT data FROM games WHERE scheduled_at >= $1 AND scheduled_at < $2 ORDER BY scheduled_at`,
		from, until)
	if err != nil {
		return nil, fmt.Errorf("list scheduled games: %w", err)
	}
	defer rows.Close()

	var defs []domain.GameDefinition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		var def domain.GameDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("unmarshal game: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scheduled games: %w", err)
	}
	return defs, nil
}
