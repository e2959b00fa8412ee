package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
)

const (
	TypeMove     = "move"
	TypeChat     = "chat"
	TypeLeave    = "leave"
	TypeState    = "state"
	TypeFinished = "finished"
	TypeError    = "error"
)

const MaxChatLength = 500

// Inbound is a message received from a connected client.
type Inbound interface {
	inbound()
}

type MoveCommand struct {
	Index int
}

type ChatCommand struct {
	Text string
}

type LeaveCommand struct{}

func (MoveCommand) inbound()  {}
func (ChatCommand) inbound()  {}
func (LeaveCommand) inbound() {}

type envelope struct {
	Type  string  `json:"type"`
	Index *int    `json:"index"`
	Idx   *int    `json:"idx"`
	Text  *string `json:"text"`
}

// Decode parses one client frame. Any unknown tag or missing field is ErrBadMessage.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrBadMessage, err)
	}

	switch env.Type {
	case TypeMove:
		index := env.Index
		if index == nil {
			index = env.Idx
		}

		if index == nil {
			return nil, fmt.Errorf("%w: move without index", apperror.ErrBadMessage)
		}

		return MoveCommand{Index: *index}, nil
	case TypeChat:
		if env.Text == nil {
			return nil, fmt.Errorf("%w: chat without text", apperror.ErrBadMessage)
		}

		text := strings.TrimSpace(*env.Text)
		if text == "" || utf8.RuneCountInString(text) > MaxChatLength {
			return nil, fmt.Errorf("%w: chat text length", apperror.ErrBadMessage)
		}

		return ChatCommand{Text: text}, nil
	case TypeLeave:
		return LeaveCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", apperror.ErrBadMessage, env.Type)
	}
}
