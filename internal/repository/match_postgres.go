package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

type postgresMatchRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMatchRepository(pool *pgxpool.Pool) MatchRepository {
	return &postgresMatchRepository{
		pool: pool,
	}
}

func (that *postgresMatchRepository) Save(ctx context.Context, match *entity.Match) error {
	query := `INSERT INTO matches (` + matchColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	moves, err := json.Marshal(match.Moves)
	if err != nil {
		return fmt.Errorf("could not marshal moves: %w", err)
	}

	_, err = that.pool.Exec(ctx, query,
		match.ID,
		match.RoomID,
		match.BlackNickname,
		match.WhiteNickname,
		string(match.Winner),
		match.WinnerParticipantID,
		match.StartedAt,
		match.FinishedAt,
		string(moves),
		match.FinalBoard,
		match.WinnerReview,
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	return nil
}

func (that *postgresMatchRepository) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanPostgresMatch(that.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find match: %w", err)
	}

	return match, nil
}

func (that *postgresMatchRepository) List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY finished_at DESC LIMIT $1`
	args := []any{limit}

	if !before.IsZero() {
		query = `SELECT ` + matchColumns + ` FROM matches WHERE finished_at < $1 ORDER BY finished_at DESC LIMIT $2`
		args = []any{before, limit}
	}

	rows, err := that.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*entity.Match, 0, limit)
	for rows.Next() {
		match, err := scanPostgresMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("can't scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}

	return matches, nil
}

func (that *postgresMatchRepository) SetReview(ctx context.Context, id, text string) error {
	query := `UPDATE matches SET winner_review = $1 WHERE id = $2 AND winner_review IS NULL`

	tag, err := that.pool.Exec(ctx, query, text, id)
	if err != nil {
		return fmt.Errorf("can't save review: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.ErrReviewExists
	}

	return nil
}

func (that *postgresMatchRepository) Ping(ctx context.Context) error {
	return that.pool.Ping(ctx)
}

func scanPostgresMatch(row pgx.Row) (*entity.Match, error) {
	var (
		match  entity.Match
		winner string
		moves  []byte
	)

	err := row.Scan(
		&match.ID,
		&match.RoomID,
		&match.BlackNickname,
		&match.WhiteNickname,
		&winner,
		&match.WinnerParticipantID,
		&match.StartedAt,
		&match.FinishedAt,
		&moves,
		&match.FinalBoard,
		&match.WinnerReview,
	)
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal(moves, &match.Moves); err != nil {
		return nil, fmt.Errorf("failed to unmarshal moves: %w", err)
	}

	match.Winner = entity.Winner(winner)
	match.StartedAt = match.StartedAt.UTC()
	match.FinishedAt = match.FinishedAt.UTC()

	return &match, nil
}
