package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
)

var errStorageDown = errors.New("storage down")

type fakeObserver struct {
	id       string
	pid      string
	nickname string

	mu       sync.Mutex
	messages []protocol.Outbound
	failSend bool
	closed   bool
}

func newObserver(id, pid, nickname string) *fakeObserver {
	return &fakeObserver{id: id, pid: pid, nickname: nickname}
}

func (that *fakeObserver) ID() string            { return that.id }
func (that *fakeObserver) ParticipantID() string { return that.pid }
func (that *fakeObserver) Nickname() string      { return that.nickname }

func (that *fakeObserver) Send(msg protocol.Outbound) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.failSend || that.closed {
		return ErrSlowConsumer
	}

	that.messages = append(that.messages, msg)

	return nil
}

func (that *fakeObserver) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
}

func (that *fakeObserver) isClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}

func (that *fakeObserver) received() []protocol.Outbound {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]protocol.Outbound(nil), that.messages...)
}

func (that *fakeObserver) last() protocol.Outbound {
	msgs := that.received()
	if len(msgs) == 0 {
		return nil
	}

	return msgs[len(msgs)-1]
}

func (that *fakeObserver) reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	matches []*entity.Match
	id      string
	err     error
}

func (that *fakeArchiver) Archive(_ context.Context, match *entity.Match) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.matches = append(that.matches, match)
	if that.err != nil {
		return "", that.err
	}

	return that.id, nil
}

func (that *fakeArchiver) archived() []*entity.Match {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]*entity.Match(nil), that.matches...)
}

type fakeSnapshots struct {
	mu     sync.Mutex
	states map[string]entity.PublicState
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{states: make(map[string]entity.PublicState)}
}

func (that *fakeSnapshots) Save(_ context.Context, state entity.PublicState, _ time.Duration) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.states[state.Room] = state

	return nil
}

func (that *fakeSnapshots) GetByID(_ context.Context, roomID string) (entity.PublicState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	state, ok := that.states[roomID]
	if !ok {
		return entity.PublicState{}, apperror.ErrRoomNotFound
	}

	return state, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
