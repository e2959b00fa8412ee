package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
)

const (
	BoardSize  = 15
	BoardCells = BoardSize * BoardSize
)

// Color is both a cell state and a seat/turn marker.
type Color string

const (
	Empty Color = ""
	Black Color = "B"
	White Color = "W"
)

const emptyCellRune = '.'

var ErrBadBoard = errors.New("malformed board")

// Opponent returns the other player color; Empty stays Empty.
func (that Color) Opponent() Color {
	switch that {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (that Color) IsPlayer() bool {
	return that == Black || that == White
}

// Direction is a unit step along one of the four board axes.
type Direction struct {
	DRow int
	DCol int
}

var Directions = [4]Direction{
	{DRow: 0, DCol: 1},  // horizontal
	{DRow: 1, DCol: 0},  // vertical
	{DRow: 1, DCol: 1},  // diagonal
	{DRow: 1, DCol: -1}, // anti-diagonal
}

// Run describes the contiguous stones of one color through an origin cell.
// The origin always counts toward Length.
type Run struct {
	Length       int
	Negative     int
	Positive     int
	NegativeOpen bool
	PositiveOpen bool
}

func (that Run) BothOpen() bool {
	return that.NegativeOpen && that.PositiveOpen
}

// Board is a 15x15 grid addressed row-major. The zero value is an empty board.
type Board struct {
	cells [BoardCells]Color
}

func Index(row, col int) int {
	return row*BoardSize + col
}

func Coord(index int) (int, int) {
	return index / BoardSize, index % BoardSize
}

func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

func ValidIndex(index int) bool {
	return index >= 0 && index < BoardCells
}

func (that *Board) At(index int) Color {
	if !ValidIndex(index) {
		return Empty
	}

	return that.cells[index]
}

func (that *Board) IsOccupied(index int) bool {
	return that.At(index) != Empty
}

// Place sets a stone. Rule legality is not checked here.
func (that *Board) Place(index int, color Color) error {
	if !ValidIndex(index) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if !color.IsPlayer() {
		return fmt.Errorf("%w: color %q", apperror.ErrInvalidCell, color)
	}

	if that.cells[index] != Empty {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	that.cells[index] = color

	return nil
}

func (that *Board) IsFull() bool {
	for _, cell := range that.cells {
		if cell == Empty {
			return false
		}
	}

	return true
}

func (that *Board) StoneCount() int {
	count := 0
	for _, cell := range that.cells {
		if cell != Empty {
			count++
		}
	}

	return count
}

// RunThrough walks both ways from index along dir counting stones of color.
// Off-board ends are closed.
func (that *Board) RunThrough(index int, color Color, dir Direction) Run {
	row, col := Coord(index)

	negative, negativeOpen := that.walk(row, col, color, -dir.DRow, -dir.DCol)
	positive, positiveOpen := that.walk(row, col, color, dir.DRow, dir.DCol)

	return Run{
		Length:       negative + positive + 1,
		Negative:     negative,
		Positive:     positive,
		NegativeOpen: negativeOpen,
		PositiveOpen: positiveOpen,
	}
}

func (that *Board) walk(row, col int, color Color, dRow, dCol int) (int, bool) {
	count := 0
	r, c := row+dRow, col+dCol

	for InBounds(r, c) && that.cells[Index(r, c)] == color {
		count++
		r += dRow
		c += dCol
	}

	return count, InBounds(r, c) && that.cells[Index(r, c)] == Empty
}

// String renders the board as 225 characters of '.', 'B' and 'W'.
func (that *Board) String() string {
	var sb strings.Builder
	sb.Grow(BoardCells)

	for _, cell := range that.cells {
		if cell == Empty {
			sb.WriteRune(emptyCellRune)
			continue
		}
		sb.WriteString(string(cell))
	}

	return sb.String()
}

// ParseBoard is the inverse of String.
func ParseBoard(raw string) (Board, error) {
	var board Board

	if len(raw) != BoardCells {
		return board, fmt.Errorf("%w: length %d", ErrBadBoard, len(raw))
	}

	for i := range len(raw) {
		switch raw[i] {
		case emptyCellRune:
		case 'B':
			board.cells[i] = Black
		case 'W':
			board.cells[i] = White
		default:
			return Board{}, fmt.Errorf("%w: cell %d is %q", ErrBadBoard, i, raw[i])
		}
	}

	return board, nil
}

func (that Board) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Board) UnmarshalText(text []byte) error {
	board, err := ParseBoard(string(text))
	if err != nil {
		return err
	}

	*that = board

	return nil
}
