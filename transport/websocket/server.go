package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/metrics"
	"github.com/rocketscienceinc/renju-backend/internal/pkg"
	"github.com/rocketscienceinc/renju-backend/internal/protocol"
	"github.com/rocketscienceinc/renju-backend/internal/usecase"
)

const (
	sessionCookieName = "user_session"
	sessionCookieTTL  = 24 * time.Hour
	shutdownTimeout   = 5 * time.Second
)

type sessionHub interface {
	HasRoom(roomID string) bool
	Connect(ctx context.Context, roomID string, observer usecase.Observer) (entity.Color, error)
	Disconnect(roomID string, observer usecase.Observer)
	Dispatch(ctx context.Context, roomID string, observer usecase.Observer, msg protocol.Inbound) error
}

type Options struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	AllowedOrigins []string
}

type Server struct {
	logger   *slog.Logger
	hub      sessionHub
	opts     Options
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, hub sessionHub, opts Options) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		hub:    hub,
		opts:   opts,
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	return server
}

// Router serves GET /ws/rooms/{roomID}?user_id=&nickname=.
func (that *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws/rooms/{roomID}", that.handleRoom)

	return r
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleRoom upgrades the request and serves one observer until it leaves.
func (that *Server) handleRoom(w http.ResponseWriter, req *http.Request) {
	roomID := chi.URLParam(req, "roomID")
	log := that.logger.With("method", "handleRoom", "roomID", roomID)

	if !that.hub.HasRoom(roomID) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	participantID, header := that.participantID(req)
	nickname := strings.TrimSpace(req.URL.Query().Get("nickname"))

	conn, err := that.upgrader.Upgrade(w, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	client := newClient(that.logger, conn, participantID, nickname, that.opts)
	log = log.With("observerID", client.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.writePump()
	}()

	ctx := req.Context()

	color, err := that.hub.Connect(ctx, roomID, client)
	if err != nil {
		log.Warn("failed to connect observer", "error", err)
		_ = client.Send(protocol.NewError(err))
		client.Close()
		<-writerDone
		return
	}

	log.Info("WebSocket connection established", "color", color)

	that.handleMessages(ctx, roomID, client)

	that.hub.Disconnect(roomID, client)
	client.Close()
	<-writerDone

	log.Info("WebSocket connection closed")
}

// participantID resolves the caller identity: user_id query parameter, then
// the session cookie, then a fresh session id returned as a cookie.
func (that *Server) participantID(req *http.Request) (string, http.Header) {
	log := that.logger.With("method", "participantID")

	if id := strings.TrimSpace(req.URL.Query().Get("user_id")); id != "" {
		return id, nil
	}

	if cookie, err := req.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		log.Debug("session cookie found", "cookie", cookie.Value)
		return cookie.Value, nil
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    pkg.GenerateNewSessionID(),
		Expires:  time.Now().Add(sessionCookieTTL),
		Path:     "/",
		HttpOnly: true,
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	log.Info("session cookie not found, new one created", "cookie", cookie.Value)

	return cookie.Value, header
}

func (that *Server) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" || len(that.opts.AllowedOrigins) == 0 {
		return true
	}

	return slices.Contains(that.opts.AllowedOrigins, "*") || slices.Contains(that.opts.AllowedOrigins, origin)
}
