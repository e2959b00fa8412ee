package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Winner string

const (
	WinnerNone  Winner = ""
	WinnerBlack Winner = "B"
	WinnerWhite Winner = "W"
	WinnerDraw  Winner = "draw"
)

func WinnerOf(color Color) Winner {
	switch color {
	case Black:
		return WinnerBlack
	case White:
		return WinnerWhite
	default:
		return WinnerNone
	}
}

// Color returns the winning color, or Empty for a draw or no verdict.
func (that Winner) Color() Color {
	switch that {
	case WinnerBlack:
		return Black
	case WinnerWhite:
		return White
	default:
		return Empty
	}
}

type Move struct {
	Index int   `json:"idx"`
	Color Color `json:"color"`
}

// Room is one match session. It is not safe for concurrent use; the session
// hub serializes access per room.
type Room struct {
	ID         string
	Board      Board
	Black      *Seat
	White      *Seat
	Turn       Color
	Status     Status
	Moves      []Move
	LastMove   *Move
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Winner     Winner
	MatchID    string
}

func NewRoom(id, creatorName string, now time.Time) (*Room, error) {
	creatorName = strings.TrimSpace(creatorName)
	if creatorName == "" {
		return nil, apperror.ErrEmptyNickname
	}

	return &Room{
		ID:        id,
		Black:     NewSeat(creatorName),
		Turn:      Empty,
		Status:    StatusWaiting,
		Moves:     []Move{},
		CreatedAt: now,
	}, nil
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

// Join seats the second player as White and starts the game.
func (that *Room) Join(joinerName string, now time.Time) error {
	joinerName = strings.TrimSpace(joinerName)
	if joinerName == "" {
		return apperror.ErrEmptyNickname
	}

	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.White != nil {
		return fmt.Errorf("%w: room %s", apperror.ErrRoomFull, that.ID)
	}

	that.White = NewSeat(joinerName)
	that.Status = StatusPlaying
	that.Turn = Black
	that.StartedAt = now

	return nil
}

func (that *Room) Seat(color Color) *Seat {
	switch color {
	case Black:
		return that.Black
	case White:
		return that.White
	default:
		return nil
	}
}

// ColorOf returns the seat bound to participantID, or Empty for spectators.
func (that *Room) ColorOf(participantID string) Color {
	if participantID == "" {
		return Empty
	}

	for _, color := range []Color{Black, White} {
		if seat := that.Seat(color); seat != nil && seat.ParticipantID == participantID {
			return color
		}
	}

	return Empty
}

// BindParticipant binds participantID to the first unbound seat seated under
// nickname. A participant already bound keeps its seat.
func (that *Room) BindParticipant(nickname, participantID string) Color {
	if color := that.ColorOf(participantID); color != Empty {
		return color
	}

	for _, color := range []Color{Black, White} {
		seat := that.Seat(color)
		if seat == nil || seat.Nickname != nickname {
			continue
		}

		if seat.Bind(participantID) {
			return color
		}
	}

	return Empty
}

// Finish moves the room to its terminal state.
func (that *Room) Finish(winner Winner, now time.Time) {
	that.Status = StatusFinished
	that.Turn = Empty
	that.Winner = winner
	that.FinishedAt = now
}

func (that *Room) AttachMatch(matchID string) {
	that.MatchID = matchID
}

// PublicState is the projection of a room safe to send to any observer.
type PublicState struct {
	Room      string         `json:"room"`
	Board     string         `json:"board"`
	Turn      *Color         `json:"turn"`
	Players   map[Color]Seat `json:"players"`
	Status    Status         `json:"status"`
	Winner    *Winner        `json:"winner"`
	LastMove  *Move          `json:"lastMove"`
	Moves     []int          `json:"moves"`
	MoveCount int            `json:"moveCount"`
	MatchID   *string        `json:"matchId"`
}

func (that *Room) Snapshot() PublicState {
	state := PublicState{
		Room:      that.ID,
		Board:     that.Board.String(),
		Players:   make(map[Color]Seat, 2),
		Status:    that.Status,
		Moves:     make([]int, 0, len(that.Moves)),
		MoveCount: len(that.Moves),
	}

	if that.Turn != Empty {
		turn := that.Turn
		state.Turn = &turn
	}

	if that.Winner != WinnerNone {
		winner := that.Winner
		state.Winner = &winner
	}

	for _, color := range []Color{Black, White} {
		if seat := that.Seat(color); seat != nil {
			state.Players[color] = Seat{Nickname: seat.Nickname}
		}
	}

	if that.LastMove != nil {
		last := *that.LastMove
		state.LastMove = &last
	}

	for _, move := range that.Moves {
		state.Moves = append(state.Moves, move.Index)
	}

	if that.MatchID != "" {
		matchID := that.MatchID
		state.MatchID = &matchID
	}

	return state
}

// Summary builds the archive record of a finished room.
func (that *Room) Summary() *Match {
	match := &Match{
		RoomID:     that.ID,
		Winner:     that.Winner,
		StartedAt:  that.StartedAt,
		FinishedAt: that.FinishedAt,
		Moves:      make([]int, 0, len(that.Moves)),
		FinalBoard: that.Board.String(),
	}

	if match.StartedAt.IsZero() {
		match.StartedAt = that.CreatedAt
	}

	if that.Black != nil {
		match.BlackNickname = that.Black.Nickname
	}

	if that.White != nil {
		match.WhiteNickname = that.White.Nickname
	}

	if seat := that.Seat(that.Winner.Color()); seat != nil {
		match.WinnerParticipantID = seat.ParticipantID
	}

	for _, move := range that.Moves {
		match.Moves = append(match.Moves, move.Index)
	}

	return match
}
