package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Classifies wrapped sentinels", func(t *testing.T) {
		// Given: sentinels wrapped the way services wrap them
		cases := map[error]Kind{
			fmt.Errorf("decode: %w", ErrBadMessage):     KindClientProtocol,
			fmt.Errorf("submit: %w", ErrNotYourTurn):    KindGameRule,
			fmt.Errorf("join: %w", ErrRoomFull):         KindLifecycle,
			fmt.Errorf("review: %w", ErrNotWinner):      KindAuthorization,
			fmt.Errorf("review: %w", ErrReviewTooLong):  KindValidation,
			fmt.Errorf("archive: %w", ErrPersistence):   KindPersistence,
			fmt.Errorf("lookup: %w", ErrMatchNotFound):  KindLifecycle,
			fmt.Errorf("create: %w", ErrEmptyNickname):  KindValidation,
			fmt.Errorf("submit: %w", ErrCellOccupied):   KindGameRule,
			fmt.Errorf("connect: %w", ErrRoomNotFound):  KindLifecycle,
			fmt.Errorf("review: %w", ErrReviewExists):   KindValidation,
			fmt.Errorf("submit: %w", ErrGameFinished):   KindLifecycle,
			fmt.Errorf("submit: %w", ErrInvalidCell):    KindGameRule,
			fmt.Errorf("review: %w", ErrNoWinner):       KindValidation,
			errors.New("something the taxonomy ignores"): KindUnknown,
		}

		for err, want := range cases {
			// When: classifying
			got := KindOf(err)

			// Then: the kind follows the sentinel
			assert.Equal(t, want, got, err.Error())
		}
	})

	t.Run("Forbidden move error matches its sentinel", func(t *testing.T) {
		// Given: a forbidden move with a reason
		err := fmt.Errorf("submit: %w", &ForbiddenMoveError{Reason: "double-three"})

		// Then: it is a game rule violation and keeps its reason
		assert.ErrorIs(t, err, ErrForbiddenMove)
		assert.Equal(t, KindGameRule, KindOf(err))

		var forbidden *ForbiddenMoveError
		assert.ErrorAs(t, err, &forbidden)
		assert.Equal(t, "double-three", forbidden.Reason)
		assert.Contains(t, err.Error(), "double-three")
	})
}
