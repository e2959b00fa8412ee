package pkg

import (
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomID(t *testing.T) {
	// When: generating room ids
	first := GenerateRoomID()
	second := GenerateRoomID()

	// Then: they are six hex chars
	assert.Len(t, first, roomIDLength)
	_, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, second, roomIDLength)
}

func TestNewMatchID(t *testing.T) {
	id, err := NewMatchID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNewChatID(t *testing.T) {
	id := NewChatID()

	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)
}

func TestGenerateNewSessionID(t *testing.T) {
	assert.NotEqual(t, GenerateNewSessionID(), GenerateNewSessionID())
}
