package protocol

import (
	"errors"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

// Outbound is a message sent to connected clients.
type Outbound interface {
	MessageType() string
}

type StateMessage struct {
	Type string `json:"type"`
	entity.PublicState
}

type ChatMessage struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

type FinishedMessage struct {
	Type    string        `json:"type"`
	Winner  entity.Winner `json:"winner"`
	MatchID *string       `json:"matchId"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (StateMessage) MessageType() string    { return TypeState }
func (ChatMessage) MessageType() string     { return TypeChat }
func (FinishedMessage) MessageType() string { return TypeFinished }
func (ErrorMessage) MessageType() string    { return TypeError }

func NewState(state entity.PublicState) StateMessage {
	return StateMessage{Type: TypeState, PublicState: state}
}

func NewChat(id, nickname, text string, at time.Time) ChatMessage {
	return ChatMessage{Type: TypeChat, ID: id, Nickname: nickname, Text: text, At: at}
}

// NewFinished reports the verdict; an empty matchID means archiving failed.
func NewFinished(winner entity.Winner, matchID string) FinishedMessage {
	msg := FinishedMessage{Type: TypeFinished, Winner: winner}
	if matchID != "" {
		msg.MatchID = &matchID
	}

	return msg
}

const (
	CodeBadMessage      = "bad_message"
	CodeNotYourTurn     = "not_your_turn"
	CodeCellOccupied    = "cell_occupied"
	CodeInvalidCell     = "invalid_cell"
	CodeForbiddenMove   = "forbidden_move"
	CodeAlreadyFinished = "already_finished"
	CodeRoomNotFound    = "room_not_found"
	CodeInternal        = "internal_error"
)

var codes = []struct {
	err     error
	code    string
	message string
}{
	{apperror.ErrBadMessage, CodeBadMessage, "Unknown message"},
	{apperror.ErrNotYourTurn, CodeNotYourTurn, "Not your turn"},
	{apperror.ErrCellOccupied, CodeCellOccupied, "Cell filled"},
	{apperror.ErrInvalidCell, CodeInvalidCell, "Cell out of range"},
	{apperror.ErrForbiddenMove, CodeForbiddenMove, "Forbidden move"},
	{apperror.ErrGameFinished, CodeAlreadyFinished, "Game finished"},
	{apperror.ErrRoomNotFound, CodeRoomNotFound, "Room not found"},
}

// NewError maps a domain error to the message sent back to its sender.
func NewError(err error) ErrorMessage {
	msg := ErrorMessage{Type: TypeError, Code: CodeInternal, Message: "Internal error"}

	for _, c := range codes {
		if errors.Is(err, c.err) {
			msg.Code = c.code
			msg.Message = c.message
			break
		}
	}

	var forbidden *apperror.ForbiddenMoveError
	if errors.As(err, &forbidden) {
		msg.Reason = forbidden.Reason
	}

	return msg
}
