package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/renju-backend/internal/pkg"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
	"github.com/rocketscienceinc/renju-backend/internal/usecase"
)

const (
	maxMessageSize      = 4096
	defaultSendBuffer   = 32
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
)

var errClientClosed = errors.New("client connection closed")

// client is one websocket connection. The hub writes through Send; only
// writePump touches the connection for writing.
type client struct {
	id            string
	participantID string
	nickname      string

	logger *slog.Logger
	conn   *websocket.Conn

	send      chan protocol.Outbound
	done      chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func newClient(logger *slog.Logger, conn *websocket.Conn, participantID, nickname string, opts Options) *client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}

	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaultPongTimeout
	}

	id := pkg.NewChatID()

	return &client{
		id:            id,
		participantID: participantID,
		nickname:      nickname,
		logger:        logger.With("observerID", id),
		conn:          conn,
		send:          make(chan protocol.Outbound, opts.SendBuffer),
		done:          make(chan struct{}),
		writeTimeout:  opts.WriteTimeout,
		pongTimeout:   opts.PongTimeout,
	}
}

func (that *client) ID() string            { return that.id }
func (that *client) ParticipantID() string { return that.participantID }
func (that *client) Nickname() string      { return that.nickname }

// Send queues msg without blocking.
func (that *client) Send(msg protocol.Outbound) error {
	select {
	case <-that.done:
		return errClientClosed
	default:
	}

	select {
	case that.send <- msg:
		return nil
	default:
		return usecase.ErrSlowConsumer
	}
}

// Close is idempotent. Queued messages are still flushed by writePump.
func (that *client) Close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

func (that *client) writePump() {
	pingPeriod := that.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case msg := <-that.send:
			if err := that.write(msg); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				that.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(that.writeTimeout)
			if err := that.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				that.Close()
				return
			}
		case <-that.done:
			that.flush()
			return
		}
	}
}

// flush writes what is still queued and says goodbye.
func (that *client) flush() {
	for {
		select {
		case msg := <-that.send:
			if err := that.write(msg); err != nil {
				return
			}
		default:
			deadline := time.Now().Add(that.writeTimeout)
			closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = that.conn.WriteControl(websocket.CloseMessage, closing, deadline)
			return
		}
	}
}

func (that *client) write(msg protocol.Outbound) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
		return err
	}

	return that.conn.WriteJSON(msg)
}
