package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
)

var hubStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type hubFixture struct {
	hub       *SessionHub
	archiver  *fakeArchiver
	snapshots *fakeSnapshots
	clock     *fakeClock
}

func newHubFixture() *hubFixture {
	clock := &fakeClock{now: hubStart}
	archiver := &fakeArchiver{id: "m-1"}
	snapshots := newFakeSnapshots()

	hub := NewSessionHub(discardLogger(), archiver, snapshots, HubOptions{
		FinishedTTL:    10 * time.Minute,
		IdleTTL:        time.Hour,
		SweepInterval:  time.Minute,
		SnapshotTTL:    24 * time.Hour,
		ArchiveTimeout: time.Second,
		Now:            clock.Now,
	})

	return &hubFixture{hub: hub, archiver: archiver, snapshots: snapshots, clock: clock}
}

// startGame creates a playing room with alice (Black) and bob (White) connected.
func (that *hubFixture) startGame(t *testing.T) (string, *fakeObserver, *fakeObserver) {
	t.Helper()

	ctx := context.Background()

	state, err := that.hub.CreateRoom(ctx, "alice")
	require.NoError(t, err)
	_, err = that.hub.JoinRoom(ctx, state.Room, "bob")
	require.NoError(t, err)

	alice := newObserver("conn-a", "uid-alice", "alice")
	bob := newObserver("conn-b", "uid-bob", "bob")

	color, err := that.hub.Connect(ctx, state.Room, alice)
	require.NoError(t, err)
	require.Equal(t, entity.Black, color)

	color, err = that.hub.Connect(ctx, state.Room, bob)
	require.NoError(t, err)
	require.Equal(t, entity.White, color)

	alice.reset()
	bob.reset()

	return state.Room, alice, bob
}

func move(t *testing.T, hub *SessionHub, roomID string, observer Observer, index int) {
	t.Helper()

	require.NoError(t, hub.Dispatch(context.Background(), roomID, observer, protocol.MoveCommand{Index: index}))
}

// playWhiteWin plays scattered Black stones while White fills row zero.
func playWhiteWin(t *testing.T, hub *SessionHub, roomID string, alice, bob Observer) {
	t.Helper()

	black := []int{112, 50, 180, 214, 150}
	for i, cell := range black {
		move(t, hub, roomID, alice, cell)
		move(t, hub, roomID, bob, i)
	}
}

func TestSessionHub_CreateAndJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("Create seats Black and join starts the game", func(t *testing.T) {
		// Given: an empty hub
		fx := newHubFixture()

		// When: alice creates and bob joins
		created, err := fx.hub.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		joined, err := fx.hub.JoinRoom(ctx, created.Room, "bob")
		require.NoError(t, err)

		// Then: the room is playing with Black to move
		assert.Len(t, created.Room, 6)
		assert.Equal(t, entity.StatusWaiting, created.Status)
		assert.Equal(t, entity.StatusPlaying, joined.Status)
		require.NotNil(t, joined.Turn)
		assert.Equal(t, entity.Black, *joined.Turn)
	})

	t.Run("Join notifies already connected observers", func(t *testing.T) {
		fx := newHubFixture()
		created, err := fx.hub.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		alice := newObserver("conn-a", "uid-alice", "alice")
		_, err = fx.hub.Connect(ctx, created.Room, alice)
		require.NoError(t, err)

		_, err = fx.hub.JoinRoom(ctx, created.Room, "bob")
		require.NoError(t, err)

		state, ok := alice.last().(protocol.StateMessage)
		require.True(t, ok)
		assert.Equal(t, entity.StatusPlaying, state.Status)
	})

	t.Run("Third player is refused", func(t *testing.T) {
		fx := newHubFixture()
		roomID, _, _ := fx.startGame(t)

		_, err := fx.hub.JoinRoom(ctx, roomID, "carol")

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Unknown room", func(t *testing.T) {
		fx := newHubFixture()

		_, err := fx.hub.JoinRoom(ctx, "nope00", "bob")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Empty nickname", func(t *testing.T) {
		fx := newHubFixture()

		_, err := fx.hub.CreateRoom(ctx, " ")

		require.ErrorIs(t, err, apperror.ErrEmptyNickname)
	})
}

func TestSessionHub_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("Sends the snapshot and binds by nickname", func(t *testing.T) {
		fx := newHubFixture()
		created, err := fx.hub.CreateRoom(ctx, "alice")
		require.NoError(t, err)
		alice := newObserver("conn-a", "uid-alice", "alice")

		color, err := fx.hub.Connect(ctx, created.Room, alice)

		require.NoError(t, err)
		assert.Equal(t, entity.Black, color)
		require.Len(t, alice.received(), 1)
		state, ok := alice.last().(protocol.StateMessage)
		require.True(t, ok)
		assert.Equal(t, created.Room, state.Room)
	})

	t.Run("Spectators are not seated", func(t *testing.T) {
		fx := newHubFixture()
		roomID, _, _ := fx.startGame(t)

		color, err := fx.hub.Connect(ctx, roomID, newObserver("conn-s", "uid-s", "watcher"))

		require.NoError(t, err)
		assert.Equal(t, entity.Empty, color)
	})

	t.Run("Impostor with a seated nickname stays a spectator", func(t *testing.T) {
		fx := newHubFixture()
		roomID, _, _ := fx.startGame(t)

		color, err := fx.hub.Connect(ctx, roomID, newObserver("conn-x", "uid-x", "alice"))

		require.NoError(t, err)
		assert.Equal(t, entity.Empty, color)
	})

	t.Run("Reconnect with the same identity keeps the seat", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, _ := fx.startGame(t)
		fx.hub.Disconnect(roomID, alice)

		color, err := fx.hub.Connect(ctx, roomID, newObserver("conn-a2", "uid-alice", "alice"))

		require.NoError(t, err)
		assert.Equal(t, entity.Black, color)
	})

	t.Run("Unknown room", func(t *testing.T) {
		fx := newHubFixture()

		_, err := fx.hub.Connect(ctx, "nope00", newObserver("c", "u", "n"))

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestSessionHub_DispatchMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepted move is broadcast to every observer", func(t *testing.T) {
		// Given: a game with a spectator
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		spectator := newObserver("conn-s", "uid-s", "watcher")
		_, err := fx.hub.Connect(ctx, roomID, spectator)
		require.NoError(t, err)
		spectator.reset()

		// When: Black plays
		move(t, fx.hub, roomID, alice, 112)

		// Then: everyone sees the new state
		for _, observer := range []*fakeObserver{alice, bob, spectator} {
			state, ok := observer.last().(protocol.StateMessage)
			require.True(t, ok, observer.id)
			require.NotNil(t, state.LastMove)
			assert.Equal(t, 112, state.LastMove.Index)
			assert.Equal(t, entity.White, *state.Turn)
		}
	})

	t.Run("Out of turn goes to the sender only and changes nothing", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)

		// When: White moves first
		err := fx.hub.Dispatch(ctx, roomID, bob, protocol.MoveCommand{Index: 112})

		// Then: bob alone is told, the board is untouched
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		reply, ok := bob.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeNotYourTurn, reply.Code)
		assert.Empty(t, alice.received())

		state, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		assert.Zero(t, state.MoveCount)
	})

	t.Run("Spectator cannot move", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, _ := fx.startGame(t)
		spectator := newObserver("conn-s", "uid-s", "watcher")
		_, err := fx.hub.Connect(ctx, roomID, spectator)
		require.NoError(t, err)

		err = fx.hub.Dispatch(ctx, roomID, spectator, protocol.MoveCommand{Index: 112})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Empty(t, alice.received())
	})

	t.Run("Forbidden move reports its reason", func(t *testing.T) {
		// Given: Black 112 and 97 stacked vertically
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		move(t, fx.hub, roomID, alice, 112)
		move(t, fx.hub, roomID, bob, 0)
		move(t, fx.hub, roomID, alice, 97)
		move(t, fx.hub, roomID, bob, 1)
		bob.reset()

		// When: Black makes an open three
		err := fx.hub.Dispatch(ctx, roomID, alice, protocol.MoveCommand{Index: 127})

		// Then: it is refused as a double-three
		require.ErrorIs(t, err, apperror.ErrForbiddenMove)
		reply, ok := alice.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeForbiddenMove, reply.Code)
		assert.Equal(t, "double-three", reply.Reason)
		assert.Empty(t, bob.received())
	})

	t.Run("Occupied cell", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		move(t, fx.hub, roomID, alice, 112)

		err := fx.hub.Dispatch(ctx, roomID, bob, protocol.MoveCommand{Index: 112})

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		reply, ok := bob.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeCellOccupied, reply.Code)
	})

	t.Run("Concurrent moves for one turn admit exactly one", func(t *testing.T) {
		// Given: a fresh game
		fx := newHubFixture()
		roomID, alice, _ := fx.startGame(t)

		// When: Black fires many moves at once
		var accepted atomic.Int32
		var wg sync.WaitGroup
		for cell := range 20 {
			wg.Add(1)
			go func(cell int) {
				defer wg.Done()
				if fx.hub.Dispatch(ctx, roomID, alice, protocol.MoveCommand{Index: cell * 11}) == nil {
					accepted.Add(1)
				}
			}(cell)
		}
		wg.Wait()

		// Then: one stone landed
		assert.Equal(t, int32(1), accepted.Load())
		state, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, 1, state.MoveCount)
	})
}

func TestSessionHub_GameEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("Win is archived and announced once with the match id", func(t *testing.T) {
		// Given: a game heading for a White five
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)

		// When: White completes row zero
		playWhiteWin(t, fx.hub, roomID, alice, bob)
		fx.hub.Wait()

		// Then: the last two messages are the final state and the verdict
		msgs := alice.received()
		require.GreaterOrEqual(t, len(msgs), 2)
		state, ok := msgs[len(msgs)-2].(protocol.StateMessage)
		require.True(t, ok)
		assert.Equal(t, entity.StatusFinished, state.Status)
		assert.Nil(t, state.Turn)

		finished, ok := msgs[len(msgs)-1].(protocol.FinishedMessage)
		require.True(t, ok)
		assert.Equal(t, entity.WinnerWhite, finished.Winner)
		require.NotNil(t, finished.MatchID)
		assert.Equal(t, "m-1", *finished.MatchID)

		finishedCount := 0
		for _, msg := range bob.received() {
			if _, ok := msg.(protocol.FinishedMessage); ok {
				finishedCount++
			}
		}
		assert.Equal(t, 1, finishedCount)

		// And: the record carries the winner's binding
		archived := fx.archiver.archived()
		require.Len(t, archived, 1)
		assert.Equal(t, entity.WinnerWhite, archived[0].Winner)
		assert.Equal(t, "uid-bob", archived[0].WinnerParticipantID)
		assert.Equal(t, []int{112, 0, 50, 1, 180, 2, 214, 3, 150, 4}, archived[0].Moves)

		roomState, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		require.NotNil(t, roomState.MatchID)
		assert.Equal(t, "m-1", *roomState.MatchID)
	})

	t.Run("Moves after the end are refused", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		playWhiteWin(t, fx.hub, roomID, alice, bob)
		fx.hub.Wait()

		err := fx.hub.Dispatch(ctx, roomID, alice, protocol.MoveCommand{Index: 200})

		require.ErrorIs(t, err, apperror.ErrGameFinished)
		reply, ok := alice.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeAlreadyFinished, reply.Code)
	})

	t.Run("Archive failure keeps the room finished", func(t *testing.T) {
		// Given: storage that refuses writes
		fx := newHubFixture()
		fx.archiver.err = errStorageDown
		roomID, alice, bob := fx.startGame(t)

		// When: the game ends
		playWhiteWin(t, fx.hub, roomID, alice, bob)
		fx.hub.Wait()

		// Then: the verdict is still announced, without a match id
		finished, ok := alice.last().(protocol.FinishedMessage)
		require.True(t, ok)
		assert.Equal(t, entity.WinnerWhite, finished.Winner)
		assert.Nil(t, finished.MatchID)

		state, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, state.Status)
		assert.Nil(t, state.MatchID)
	})
}

func TestSessionHub_DispatchOther(t *testing.T) {
	ctx := context.Background()

	t.Run("Chat is relayed with sender and id", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)

		err := fx.hub.Dispatch(ctx, roomID, alice, protocol.ChatCommand{Text: "hi"})

		require.NoError(t, err)
		for _, observer := range []*fakeObserver{alice, bob} {
			chat, ok := observer.last().(protocol.ChatMessage)
			require.True(t, ok)
			assert.Equal(t, "alice", chat.Nickname)
			assert.Equal(t, "hi", chat.Text)
			assert.Equal(t, hubStart, chat.At)
			assert.NotEmpty(t, chat.ID)
		}
	})

	t.Run("Unknown message goes back to the sender only", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)

		err := fx.hub.Dispatch(ctx, roomID, alice, nil)

		require.ErrorIs(t, err, apperror.ErrBadMessage)
		reply, ok := alice.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeBadMessage, reply.Code)
		assert.Empty(t, bob.received())
	})

	t.Run("Leave removes and closes only that observer", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)

		require.NoError(t, fx.hub.Dispatch(ctx, roomID, alice, protocol.LeaveCommand{}))
		require.NoError(t, fx.hub.Dispatch(ctx, roomID, bob, protocol.ChatCommand{Text: "bye"}))

		assert.True(t, alice.isClosed())
		assert.Empty(t, alice.received())
		assert.False(t, bob.isClosed())

		state, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, state.Status)
	})

	t.Run("Unknown room", func(t *testing.T) {
		fx := newHubFixture()
		observer := newObserver("c", "u", "n")

		err := fx.hub.Dispatch(ctx, "nope00", observer, protocol.ChatCommand{Text: "hi"})

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		reply, ok := observer.last().(protocol.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, protocol.CodeRoomNotFound, reply.Code)
	})

	t.Run("Slow observer is dropped without stalling others", func(t *testing.T) {
		// Given: a spectator whose buffer fills up
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		spectator := newObserver("conn-s", "uid-s", "watcher")
		_, err := fx.hub.Connect(ctx, roomID, spectator)
		require.NoError(t, err)
		spectator.mu.Lock()
		spectator.failSend = true
		spectator.mu.Unlock()

		// When: two moves are broadcast
		move(t, fx.hub, roomID, alice, 112)
		spectator.mu.Lock()
		spectator.failSend = false
		spectator.closed = false
		spectator.mu.Unlock()
		move(t, fx.hub, roomID, bob, 0)

		// Then: the spectator was dropped after the first and players saw both
		assert.Len(t, spectator.received(), 1)
		assert.Len(t, alice.received(), 2)
		assert.Len(t, bob.received(), 2)
	})

	t.Run("Disconnect is idempotent", func(t *testing.T) {
		fx := newHubFixture()
		roomID, alice, _ := fx.startGame(t)

		fx.hub.Disconnect(roomID, alice)
		fx.hub.Disconnect(roomID, alice)
		fx.hub.Disconnect("nope00", alice)

		assert.False(t, alice.isClosed())
	})
}

func TestSessionHub_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("Finished room is evicted after its TTL and stays readable", func(t *testing.T) {
		// Given: a finished and archived game
		fx := newHubFixture()
		roomID, alice, bob := fx.startGame(t)
		playWhiteWin(t, fx.hub, roomID, alice, bob)
		fx.hub.Wait()

		// When: sweeping before and after the TTL
		early := fx.hub.Sweep(ctx, fx.clock.Now().Add(time.Minute))
		late := fx.hub.Sweep(ctx, fx.clock.Now().Add(10*time.Minute))

		// Then: only the late sweep evicts, closing observers and caching the snapshot
		assert.Zero(t, early)
		assert.Equal(t, 1, late)
		assert.True(t, alice.isClosed())
		assert.True(t, bob.isClosed())

		state, err := fx.hub.RoomState(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, state.Status)
		require.NotNil(t, state.MatchID)
		assert.Equal(t, "m-1", *state.MatchID)

		_, err = fx.hub.Connect(ctx, roomID, newObserver("c", "u", "n"))
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Unwatched idle room is evicted", func(t *testing.T) {
		fx := newHubFixture()
		created, err := fx.hub.CreateRoom(ctx, "alice")
		require.NoError(t, err)

		evicted := fx.hub.Sweep(ctx, hubStart.Add(time.Hour))

		assert.Equal(t, 1, evicted)
		_, err = fx.hub.JoinRoom(ctx, created.Room, "bob")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Watched room is kept", func(t *testing.T) {
		fx := newHubFixture()
		fx.startGame(t)

		assert.Zero(t, fx.hub.Sweep(ctx, hubStart.Add(24*time.Hour)))
	})
}

func TestSessionHub_RoomState(t *testing.T) {
	fx := newHubFixture()

	_, err := fx.hub.RoomState(context.Background(), "nope00")

	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
}

func TestSessionHub_HasRoom(t *testing.T) {
	fx := newHubFixture()
	created, err := fx.hub.CreateRoom(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, fx.hub.HasRoom(created.Room))
	assert.False(t, fx.hub.HasRoom("nope00"))

	fx.hub.Sweep(context.Background(), hubStart.Add(time.Hour))
	assert.False(t, fx.hub.HasRoom(created.Room))
}

func TestSessionHub_Run(t *testing.T) {
	// Given: a hub sweeping every few milliseconds
	hub := NewSessionHub(discardLogger(), &fakeArchiver{}, nil, HubOptions{
		SweepInterval: 5 * time.Millisecond,
		IdleTTL:       time.Millisecond,
	})
	_, err := hub.CreateRoom(context.Background(), "alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	// Then: the idle room disappears and Run returns on cancel
	require.Eventually(t, func() bool {
		hub.roomsMutex.RLock()
		defer hub.roomsMutex.RUnlock()
		return len(hub.rooms) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
