package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/metrics"
	"github.com/rocketscienceinc/renju-backend/internal/pkg"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
	"github.com/rocketscienceinc/renju-backend/internal/renju"
)

var ErrSlowConsumer = errors.New("observer send buffer is full")

const (
	maxRoomIDAttempts     = 16
	defaultArchiveTimeout = 5 * time.Second
)

// Observer is one live connection watching a room. Send must not block.
type Observer interface {
	ID() string
	ParticipantID() string
	Nickname() string
	Send(msg protocol.Outbound) error
	Close()
}

type matchArchiver interface {
	Archive(ctx context.Context, match *entity.Match) (string, error)
}

type roomSnapshotRepo interface {
	Save(ctx context.Context, state entity.PublicState, ttl time.Duration) error
	GetByID(ctx context.Context, roomID string) (entity.PublicState, error)
}

type HubOptions struct {
	FinishedTTL    time.Duration
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	SnapshotTTL    time.Duration
	ArchiveTimeout time.Duration
	Now            func() time.Time
}

// roomSession serializes every read and write of one room.
type roomSession struct {
	mu           sync.Mutex
	room         *entity.Room
	observers    map[string]Observer
	lastActivity time.Time
	archiving    bool
	evicted      bool
}

type SessionHub struct {
	logger    *slog.Logger
	archiver  matchArchiver
	snapshots roomSnapshotRepo
	opts      HubOptions

	roomsMutex sync.RWMutex
	rooms      map[string]*roomSession

	archives sync.WaitGroup
}

// NewSessionHub builds an empty hub. snapshots may be nil.
func NewSessionHub(logger *slog.Logger, archiver matchArchiver, snapshots roomSnapshotRepo, opts HubOptions) *SessionHub {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = defaultArchiveTimeout
	}

	return &SessionHub{
		logger:    logger.With("component", "session_hub"),
		archiver:  archiver,
		snapshots: snapshots,
		opts:      opts,
		rooms:     make(map[string]*roomSession),
	}
}

func (that *SessionHub) CreateRoom(_ context.Context, nickname string) (entity.PublicState, error) {
	log := that.logger.With("method", "CreateRoom")

	now := that.opts.Now()

	that.roomsMutex.Lock()
	defer that.roomsMutex.Unlock()

	roomID := ""
	for range maxRoomIDAttempts {
		candidate := pkg.GenerateRoomID()
		if _, taken := that.rooms[candidate]; !taken {
			roomID = candidate
			break
		}
	}

	if roomID == "" {
		return entity.PublicState{}, errors.New("failed to generate a free room id")
	}

	room, err := entity.NewRoom(roomID, nickname, now)
	if err != nil {
		return entity.PublicState{}, fmt.Errorf("failed to create room: %w", err)
	}

	that.rooms[roomID] = &roomSession{
		room:         room,
		observers:    make(map[string]Observer),
		lastActivity: now,
	}
	metrics.ActiveRooms.Inc()

	log.Info("room created", "roomID", roomID)

	return room.Snapshot(), nil
}

func (that *SessionHub) JoinRoom(_ context.Context, roomID, nickname string) (entity.PublicState, error) {
	log := that.logger.With("method", "JoinRoom", "roomID", roomID)

	session, err := that.lockSession(roomID)
	if err != nil {
		return entity.PublicState{}, err
	}
	defer session.mu.Unlock()

	if err = session.room.Join(nickname, that.opts.Now()); err != nil {
		return entity.PublicState{}, fmt.Errorf("failed to join room: %w", err)
	}

	session.lastActivity = that.opts.Now()
	state := session.room.Snapshot()
	that.broadcast(session, protocol.NewState(state))

	log.Info("player joined room")

	return state, nil
}

// RoomState answers from memory, then from the snapshot cache of evicted rooms.
func (that *SessionHub) RoomState(ctx context.Context, roomID string) (entity.PublicState, error) {
	session, err := that.lockSession(roomID)
	if err == nil {
		defer session.mu.Unlock()
		return session.room.Snapshot(), nil
	}

	if that.snapshots == nil {
		return entity.PublicState{}, err
	}

	state, err := that.snapshots.GetByID(ctx, roomID)
	if err != nil {
		return entity.PublicState{}, fmt.Errorf("failed to get room %s: %w", roomID, err)
	}

	return state, nil
}

// HasRoom reports whether roomID is live in memory.
func (that *SessionHub) HasRoom(roomID string) bool {
	session, err := that.lockSession(roomID)
	if err != nil {
		return false
	}
	session.mu.Unlock()

	return true
}

// Connect registers observer, binds its identity to a seat when the nickname
// matches, and sends it the current state. It returns the bound color.
func (that *SessionHub) Connect(_ context.Context, roomID string, observer Observer) (entity.Color, error) {
	log := that.logger.With("method", "Connect", "roomID", roomID, "observerID", observer.ID())

	session, err := that.lockSession(roomID)
	if err != nil {
		return entity.Empty, err
	}
	defer session.mu.Unlock()

	color := session.room.BindParticipant(observer.Nickname(), observer.ParticipantID())
	session.observers[observer.ID()] = observer
	session.lastActivity = that.opts.Now()

	that.sendTo(session, observer, protocol.NewState(session.room.Snapshot()))

	log.Info("observer connected", "color", color, "observers", len(session.observers))

	return color, nil
}

// Disconnect removes observer; unknown rooms and observers are ignored.
func (that *SessionHub) Disconnect(roomID string, observer Observer) {
	session, err := that.lockSession(roomID)
	if err != nil {
		return
	}
	defer session.mu.Unlock()

	if _, ok := session.observers[observer.ID()]; !ok {
		return
	}

	delete(session.observers, observer.ID())
	session.lastActivity = that.opts.Now()

	that.logger.Info("observer disconnected", "roomID", roomID, "observerID", observer.ID())
}

// Dispatch applies one inbound message from observer. Errors are also
// reported to observer alone.
func (that *SessionHub) Dispatch(ctx context.Context, roomID string, observer Observer, msg protocol.Inbound) error {
	session, err := that.lockSession(roomID)
	if err != nil {
		_ = observer.Send(protocol.NewError(err))
		return err
	}

	switch cmd := msg.(type) {
	case protocol.MoveCommand:
		err = that.handleMove(ctx, session, observer, cmd)
		session.mu.Unlock()
		return err
	case protocol.ChatCommand:
		that.handleChat(session, observer, cmd)
		session.mu.Unlock()
		return nil
	case protocol.LeaveCommand:
		session.mu.Unlock()
		that.Disconnect(roomID, observer)
		observer.Close()
		return nil
	default:
		session.mu.Unlock()
		_ = observer.Send(protocol.NewError(apperror.ErrBadMessage))
		return apperror.ErrBadMessage
	}
}

// handleMove runs with session locked.
func (that *SessionHub) handleMove(ctx context.Context, session *roomSession, observer Observer, cmd protocol.MoveCommand) error {
	room := session.room
	color := room.ColorOf(observer.ParticipantID())

	outcome, err := renju.SubmitMove(room, color, cmd.Index, that.opts.Now())
	if err != nil {
		reply := protocol.NewError(err)
		metrics.MovesRejected.WithLabelValues(reply.Code).Inc()
		that.sendTo(session, observer, reply)
		return err
	}

	metrics.MovesAccepted.WithLabelValues(string(color)).Inc()
	session.lastActivity = that.opts.Now()

	that.broadcast(session, protocol.NewState(outcome.State))

	if outcome.Finished {
		session.archiving = true
		that.archive(ctx, session, room.Summary())
	}

	return nil
}

func (that *SessionHub) handleChat(session *roomSession, observer Observer, cmd protocol.ChatCommand) {
	now := that.opts.Now()
	session.lastActivity = now

	that.broadcast(session, protocol.NewChat(pkg.NewChatID(), observer.Nickname(), cmd.Text, now))
}

// archive hands the record off without holding the room, then announces the
// result once.
func (that *SessionHub) archive(ctx context.Context, session *roomSession, match *entity.Match) {
	log := that.logger.With("method", "archive", "roomID", match.RoomID)

	that.archives.Add(1)

	go func() {
		defer that.archives.Done()

		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), that.opts.ArchiveTimeout)
		defer cancel()

		matchID, err := that.archiver.Archive(archiveCtx, match)
		if err != nil {
			log.Error("failed to archive match", "error", err)
		}

		session.mu.Lock()
		defer session.mu.Unlock()

		session.archiving = false
		if matchID != "" {
			session.room.AttachMatch(matchID)
		}

		that.broadcast(session, protocol.NewFinished(session.room.Winner, matchID))
	}()
}

// Sweep evicts finished rooms past FinishedTTL and unwatched rooms idle past
// IdleTTL. Evicted rooms leave a snapshot behind. It returns the evicted count.
func (that *SessionHub) Sweep(ctx context.Context, now time.Time) int {
	log := that.logger.With("method", "Sweep")

	that.roomsMutex.RLock()
	sessions := make([]*roomSession, 0, len(that.rooms))
	for _, session := range that.rooms {
		sessions = append(sessions, session)
	}
	that.roomsMutex.RUnlock()

	evicted := 0
	for _, session := range sessions {
		state, ok := that.evict(session, now)
		if !ok {
			continue
		}

		that.roomsMutex.Lock()
		if that.rooms[state.Room] == session {
			delete(that.rooms, state.Room)
		}
		that.roomsMutex.Unlock()

		metrics.ActiveRooms.Dec()
		metrics.RoomsEvicted.WithLabelValues(string(state.Status)).Inc()
		evicted++

		if that.snapshots == nil {
			continue
		}

		if err := that.snapshots.Save(ctx, state, that.opts.SnapshotTTL); err != nil {
			log.Error("failed to cache room snapshot", "roomID", state.Room, "error", err)
		}
	}

	if evicted > 0 {
		log.Info("rooms evicted", "count", evicted)
	}

	return evicted
}

func (that *SessionHub) evict(session *roomSession, now time.Time) (entity.PublicState, bool) {
	session.mu.Lock()
	defer session.mu.Unlock()

	room := session.room

	switch {
	case session.evicted || session.archiving:
		return entity.PublicState{}, false
	case room.IsFinished():
		if now.Sub(room.FinishedAt) < that.opts.FinishedTTL {
			return entity.PublicState{}, false
		}
	case len(session.observers) > 0 || now.Sub(session.lastActivity) < that.opts.IdleTTL:
		return entity.PublicState{}, false
	}

	session.evicted = true
	for id, observer := range session.observers {
		delete(session.observers, id)
		observer.Close()
	}

	return room.Snapshot(), true
}

// Run sweeps every SweepInterval until ctx is done.
func (that *SessionHub) Run(ctx context.Context) {
	if that.opts.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(that.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.Sweep(ctx, that.opts.Now())
		}
	}
}

// Wait blocks until every pending archive hand-off has finished.
func (that *SessionHub) Wait() {
	that.archives.Wait()
}

// lockSession returns the live session for roomID with its mutex held.
func (that *SessionHub) lockSession(roomID string) (*roomSession, error) {
	that.roomsMutex.RLock()
	session, ok := that.rooms[roomID]
	that.roomsMutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	session.mu.Lock()
	if session.evicted {
		session.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return session, nil
}

// broadcast runs with session locked. Observers whose send fails are dropped.
func (that *SessionHub) broadcast(session *roomSession, msg protocol.Outbound) {
	for _, observer := range session.observers {
		that.sendTo(session, observer, msg)
	}
}

func (that *SessionHub) sendTo(session *roomSession, observer Observer, msg protocol.Outbound) {
	if err := observer.Send(msg); err != nil {
		that.logger.Warn("dropping observer", "roomID", session.room.ID, "observerID", observer.ID(), "error", err)

		delete(session.observers, observer.ID())
		observer.Close()
		metrics.ObserversDropped.Inc()
	}
}
