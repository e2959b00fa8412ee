package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStorage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLiteStorage{Connection: conn}, nil
}

func (that *SQLiteStorage) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		black_nickname TEXT NOT NULL,
		white_nickname TEXT NOT NULL,
		winner TEXT NOT NULL,
		winner_participant_id TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		moves TEXT NOT NULL,
		final_board TEXT NOT NULL,
		winner_review TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_matches_finished_at ON matches (finished_at DESC);`

	_, err := that.Connection.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *SQLiteStorage) Close() error {
	return that.Connection.Close()
}
