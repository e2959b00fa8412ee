package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const roomIDLength = 6

// GenerateNewSessionID - generates a new unique sessionID.
func GenerateNewSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "error-generating-session-id"
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateRoomID - generates a short hex identifier for a room.
func GenerateRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomIDLength]
}

// NewMatchID - time-ordered identifier for an archived match.
func NewMatchID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewChatID - sortable identifier for a relayed chat line.
func NewChatID() string {
	return ulid.Make().String()
}
