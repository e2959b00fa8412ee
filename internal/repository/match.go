package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

type MatchRepository interface {
	Save(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	// List returns matches finished strictly before before, newest first.
	// A zero before lists from the newest match.
	List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error)
	// SetReview writes the review once; a second write gets ErrReviewExists.
	SetReview(ctx context.Context, id, text string) error
	Ping(ctx context.Context) error
}

const matchColumns = `id, room_id, black_nickname, white_nickname, winner, winner_participant_id,
	started_at, finished_at, moves, final_board, winner_review`

type sqliteMatchRepository struct {
	conn *sql.DB
}

func NewSQLiteMatchRepository(conn *sql.DB) MatchRepository {
	return &sqliteMatchRepository{
		conn: conn,
	}
}

func (that *sqliteMatchRepository) Save(ctx context.Context, match *entity.Match) error {
	query := `INSERT INTO matches (` + matchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	moves, err := json.Marshal(match.Moves)
	if err != nil {
		return fmt.Errorf("could not marshal moves: %w", err)
	}

	_, err = that.conn.ExecContext(ctx, query,
		match.ID,
		match.RoomID,
		match.BlackNickname,
		match.WhiteNickname,
		string(match.Winner),
		match.WinnerParticipantID,
		match.StartedAt.UnixNano(),
		match.FinishedAt.UnixNano(),
		string(moves),
		match.FinalBoard,
		match.WinnerReview,
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	return nil
}

func (that *sqliteMatchRepository) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`

	match, err := scanSQLiteMatch(that.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find match: %w", err)
	}

	return match, nil
}

func (that *sqliteMatchRepository) List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY finished_at DESC LIMIT ?`
	args := []any{limit}

	if !before.IsZero() {
		query = `SELECT ` + matchColumns + ` FROM matches WHERE finished_at < ? ORDER BY finished_at DESC LIMIT ?`
		args = []any{before.UnixNano(), limit}
	}

	rows, err := that.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*entity.Match, 0, limit)
	for rows.Next() {
		match, err := scanSQLiteMatch(rows)
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

func (that *sqliteMatchRepository) SetReview(ctx context.Context, id, text string) error {
	query := `UPDATE matches SET winner_review = ? WHERE id = ? AND winner_review IS NULL`

	result, err := that.conn.ExecContext(ctx, query, text, id)
	if err != nil {
		return fmt.Errorf("can't save review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't save review: %w", err)
	}

	if affected == 0 {
		return apperror.ErrReviewExists
	}

	return nil
}

func (that *sqliteMatchRepository) Ping(ctx context.Context) error {
	return that.conn.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMatch(row rowScanner) (*entity.Match, error) {
	var (
		match      entity.Match
		winner     string
		startedAt  int64
		finishedAt int64
		moves      string
		review     sql.NullString
	)

	err := row.Scan(
		&match.ID,
		&match.RoomID,
		&match.BlackNickname,
		&match.WhiteNickname,
		&winner,
		&match.WinnerParticipantID,
		&startedAt,
		&finishedAt,
		&moves,
		&match.FinalBoard,
		&review,
	)
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal([]byte(moves), &match.Moves); err != nil {
		return nil, fmt.Errorf("failed to unmarshal moves: %w", err)
	}

	match.Winner = entity.Winner(winner)
	match.StartedAt = time.Unix(0, startedAt).UTC()
	match.FinishedAt = time.Unix(0, finishedAt).UTC()

	if review.Valid {
		match.WinnerReview = &review.String
	}

	return &match, nil
}
