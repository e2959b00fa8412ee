package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStorage struct {
	Pool *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &PostgresStorage{Pool: pool}, nil
}

func (that *PostgresStorage) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		black_nickname TEXT NOT NULL,
		white_nickname TEXT NOT NULL,
		winner TEXT NOT NULL,
		winner_participant_id TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		moves JSONB NOT NULL,
		final_board TEXT NOT NULL,
		winner_review TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_matches_finished_at ON matches (finished_at DESC);`

	_, err := that.Pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *PostgresStorage) Close() {
	that.Pool.Close()
}
