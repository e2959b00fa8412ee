package apperror

import (
	"errors"
	"fmt"
)

// Kind groups errors by who caused them and who gets told about it.
type Kind string

const (
	KindUnknown        Kind = "unknown"
	KindClientProtocol Kind = "client_protocol"
	KindGameRule       Kind = "game_rule"
	KindLifecycle      Kind = "lifecycle"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindPersistence    Kind = "persistence"
)

var (
	ErrBadMessage = errors.New("unknown or malformed message")

	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrInvalidCell   = errors.New("invalid cell index")
	ErrForbiddenMove = errors.New("forbidden move")

	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrGameFinished  = errors.New("game is already finished")
	ErrMatchNotFound = errors.New("match not found")

	ErrNotWinner = errors.New("only the winner can review the match")

	ErrReviewTooLong = errors.New("review is too long")
	ErrNoWinner      = errors.New("match has no winner")
	ErrReviewExists  = errors.New("review already written")
	ErrEmptyNickname = errors.New("nickname is required")

	ErrPersistence = errors.New("persistence failure")
)

// ForbiddenMoveError carries the renju reason a placement was refused.
type ForbiddenMoveError struct {
	Reason string
}

func (that *ForbiddenMoveError) Error() string {
	return fmt.Sprintf("%s: %s", ErrForbiddenMove.Error(), that.Reason)
}

func (that *ForbiddenMoveError) Is(target error) bool {
	return target == ErrForbiddenMove
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrBadMessage, KindClientProtocol},
	{ErrNotYourTurn, KindGameRule},
	{ErrCellOccupied, KindGameRule},
	{ErrInvalidCell, KindGameRule},
	{ErrForbiddenMove, KindGameRule},
	{ErrRoomNotFound, KindLifecycle},
	{ErrRoomFull, KindLifecycle},
	{ErrGameFinished, KindLifecycle},
	{ErrMatchNotFound, KindLifecycle},
	{ErrNotWinner, KindAuthorization},
	{ErrReviewTooLong, KindValidation},
	{ErrNoWinner, KindValidation},
	{ErrReviewExists, KindValidation},
	{ErrEmptyNickname, KindValidation},
	{ErrPersistence, KindPersistence},
}

// KindOf classifies err by the first known sentinel in its chain.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindUnknown
}
