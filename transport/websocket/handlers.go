package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
)

var errBinaryFrame = fmt.Errorf("%w: binary frames are not supported", apperror.ErrBadMessage)

// handleMessages - processes messages from the client until it goes away.
func (that *Server) handleMessages(ctx context.Context, roomID string, client *client) {
	log := that.logger.With("method", "handleMessages", "roomID", roomID, "observerID", client.ID())

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(client.pongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(client.pongTimeout))
	})

	for {
		messageType, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("error reading message", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			_ = client.Send(protocol.NewError(errBinaryFrame))
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Debug("failed to decode message", "error", err)
			_ = client.Send(protocol.NewError(err))
			continue
		}

		if err = that.hub.Dispatch(ctx, roomID, client, msg); err != nil {
			log.Debug("message rejected", "error", err)
		}

		if _, leaving := msg.(protocol.LeaveCommand); leaving {
			return
		}
	}
}
