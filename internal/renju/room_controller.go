package renju

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

// Outcome is the result of an accepted move.
type Outcome struct {
	Move     entity.Move
	State    entity.PublicState
	Finished bool
	Winner   entity.Winner
}

// SubmitMove validates and applies a move for color. On any error the room is
// left untouched.
func SubmitMove(room *entity.Room, color entity.Color, index int, now time.Time) (*Outcome, error) {
	if room.IsFinished() {
		return nil, apperror.ErrGameFinished
	}

	if err := validateMove(room, color, index); err != nil {
		return nil, fmt.Errorf("invalid move: %w", err)
	}

	if err := room.Board.Place(index, color); err != nil {
		return nil, fmt.Errorf("invalid move: %w", err)
	}

	move := entity.Move{Index: index, Color: color}
	room.Moves = append(room.Moves, move)
	room.LastMove = &entity.Move{Index: index, Color: color}

	outcome := &Outcome{Move: move}
	updateRoomStatus(room, color, index, now, outcome)
	outcome.State = room.Snapshot()

	return outcome, nil
}

// validateMove - checks turn, cell and, for the constrained color, forbidden patterns.
func validateMove(room *entity.Room, color entity.Color, index int) error {
	if !room.IsPlaying() || !color.IsPlayer() || room.Turn != color {
		return apperror.ErrNotYourTurn
	}

	if !entity.ValidIndex(index) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if room.Board.IsOccupied(index) {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	if color == Constrained {
		if forbidden, reason := CheckForbidden(room.Board, index); forbidden {
			return &apperror.ForbiddenMoveError{Reason: string(reason)}
		}
	}

	return nil
}

// updateRoomStatus - checks victory, then draw, then passes the turn.
func updateRoomStatus(room *entity.Room, color entity.Color, index int, now time.Time, outcome *Outcome) {
	switch {
	case CheckVictory(&room.Board, index, color):
		room.Finish(entity.WinnerOf(color), now)
	case IsDraw(&room.Board):
		room.Finish(entity.WinnerDraw, now)
	default:
		room.Turn = color.Opponent()
		return
	}

	outcome.Finished = true
	outcome.Winner = room.Winner
}
