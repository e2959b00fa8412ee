package entity

import "time"

const MaxReviewLength = 60

// Match is the archived record of a finished room.
type Match struct {
	ID                  string    `json:"id"`
	RoomID              string    `json:"room_id"`
	BlackNickname       string    `json:"black_nickname"`
	WhiteNickname       string    `json:"white_nickname"`
	Winner              Winner    `json:"winner"`
	WinnerParticipantID string    `json:"-"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	Moves               []int     `json:"moves"`
	FinalBoard          string    `json:"final_board"`
	WinnerReview        *string   `json:"winner_review"`
}

func (that *Match) HasWinner() bool {
	return that.Winner == WinnerBlack || that.Winner == WinnerWhite
}

func (that *Match) HasReview() bool {
	return that.WinnerReview != nil
}
