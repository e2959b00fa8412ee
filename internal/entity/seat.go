package entity

// Seat is one color's chair in a room. ParticipantID is bound on the
// participant's first connection and never changes afterwards.
type Seat struct {
	Nickname      string `json:"nickname"`
	ParticipantID string `json:"-"`
}

func NewSeat(nickname string) *Seat {
	return &Seat{Nickname: nickname}
}

func (that *Seat) IsBound() bool {
	return that.ParticipantID != ""
}

// Bind attaches participantID if the seat is still unbound. It reports whether
// participantID now owns the seat.
func (that *Seat) Bind(participantID string) bool {
	if participantID == "" {
		return false
	}

	if !that.IsBound() {
		that.ParticipantID = participantID
	}

	return that.ParticipantID == participantID
}
