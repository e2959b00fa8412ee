package renju

import (
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

// Constrained is the color barred from overlines, double-threes and double-fours.
const Constrained = entity.Black

type Reason string

const (
	ReasonNone        Reason = ""
	ReasonOverline    Reason = "overline"
	ReasonDoubleThree Reason = "double-three"
	ReasonDoubleFour  Reason = "double-four"
)

const (
	victoryLength  = 5
	overlineLength = 6
)

// IsOverline reports whether any run through index is six stones or longer.
func IsOverline(board *entity.Board, index int, color entity.Color) bool {
	for _, dir := range entity.Directions {
		if board.RunThrough(index, color, dir).Length >= overlineLength {
			return true
		}
	}

	return false
}

// CountOpenThrees scores the open threes through index. An open three counts
// twice, an open two once; runs of four or more are ignored.
func CountOpenThrees(board *entity.Board, index int, color entity.Color) int {
	return countOpen(board, index, color, 3)
}

// CountOpenFours is CountOpenThrees shifted one rung up.
func CountOpenFours(board *entity.Board, index int, color entity.Color) int {
	return countOpen(board, index, color, 4)
}

func countOpen(board *entity.Board, index int, color entity.Color, target int) int {
	total := 0

	for _, dir := range entity.Directions {
		run := board.RunThrough(index, color, dir)
		if run.Length > target || !run.BothOpen() {
			continue
		}

		switch run.Length {
		case target:
			total += 2
		case target - 1:
			total++
		}
	}

	return total
}

// CheckForbidden evaluates a hypothetical constrained-color stone at index.
// The board is taken by value so the caller's board is never touched. An
// occupied or invalid cell is not forbidden; legality is checked elsewhere.
func CheckForbidden(board entity.Board, index int) (bool, Reason) {
	if err := board.Place(index, Constrained); err != nil {
		return false, ReasonNone
	}

	if IsOverline(&board, index, Constrained) {
		return true, ReasonOverline
	}

	if CountOpenThrees(&board, index, Constrained) >= 2 {
		return true, ReasonDoubleThree
	}

	if CountOpenFours(&board, index, Constrained) >= 2 {
		return true, ReasonDoubleFour
	}

	return false, ReasonNone
}

// CheckVictory reports whether the stone at index wins. The constrained color
// needs exactly five; the other color wins on five or more.
func CheckVictory(board *entity.Board, index int, color entity.Color) bool {
	for _, dir := range entity.Directions {
		length := board.RunThrough(index, color, dir).Length

		if color == Constrained {
			if length == victoryLength {
				return true
			}
			continue
		}

		if length >= victoryLength {
			return true
		}
	}

	return false
}

// IsDraw must be evaluated after CheckVictory on the move that filled the board.
func IsDraw(board *entity.Board) bool {
	return board.IsFull()
}
