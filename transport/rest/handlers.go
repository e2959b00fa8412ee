package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/service"
)

const (
	sessionCookieName = "user_session"
	maxBodySize       = 8 * 1024
)

type Handlers interface {
	CreateRoom(w http.ResponseWriter, r *http.Request)
	JoinRoom(w http.ResponseWriter, r *http.Request)
	GetRoom(w http.ResponseWriter, r *http.Request)

	ListMatches(w http.ResponseWriter, r *http.Request)
	GetMatch(w http.ResponseWriter, r *http.Request)
	ReviewMatch(w http.ResponseWriter, r *http.Request)

	Health(w http.ResponseWriter, r *http.Request)
}

type roomHub interface {
	CreateRoom(ctx context.Context, nickname string) (entity.PublicState, error)
	JoinRoom(ctx context.Context, roomID, nickname string) (entity.PublicState, error)
	RoomState(ctx context.Context, roomID string) (entity.PublicState, error)
}

type handlers struct {
	logger  *slog.Logger
	hub     roomHub
	matches service.MatchService
}

func NewHandlers(logger *slog.Logger, hub roomHub, matches service.MatchService) Handlers {
	return &handlers{
		logger:  logger.With("component", "rest"),
		hub:     hub,
		matches: matches,
	}
}

type roomRequest struct {
	Nickname string `json:"nickname"`
}

type roomResponse struct {
	RoomID string `json:"roomId"`
}

type reviewRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type matchesResponse struct {
	Matches    []*entity.Match `json:"matches"`
	NextCursor *string         `json:"nextCursor"`
}

func (that *handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "CreateRoom")

	var req roomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	state, err := that.hub.CreateRoom(r.Context(), req.Nickname)
	if err != nil {
		log.Warn("failed to create room", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, roomResponse{RoomID: state.Room})
}

func (that *handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	log := that.logger.With("method", "JoinRoom", "roomID", roomID)

	var req roomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	state, err := that.hub.JoinRoom(r.Context(), roomID, req.Nickname)
	if err != nil {
		log.Warn("failed to join room", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse{RoomID: state.Room})
}

func (that *handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	state, err := that.hub.RoomState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// ListMatches pages newest first; cursor is the finished_at of the last
// match already seen.
func (that *handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ListMatches")

	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = parsed
	}

	var before time.Time
	if raw := query.Get("cursor"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: cursor must be RFC3339", errBadRequest))
			return
		}
		before = parsed
	}

	matches, err := that.matches.List(r.Context(), before, limit)
	if err != nil {
		log.Error("failed to list matches", "error", err)
		writeError(w, err)
		return
	}

	resp := matchesResponse{Matches: matches}
	if resp.Matches == nil {
		resp.Matches = []*entity.Match{}
	}

	if len(matches) > 0 {
		cursor := matches[len(matches)-1].FinishedAt.UTC().Format(time.RFC3339Nano)
		resp.NextCursor = &cursor
	}

	writeJSON(w, http.StatusOK, resp)
}

func (that *handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := that.matches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, match)
}

// ReviewMatch takes the caller identity from the body, falling back to the
// session cookie set by the websocket server.
func (that *handlers) ReviewMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	log := that.logger.With("method", "ReviewMatch", "matchID", matchID)

	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	participantID := strings.TrimSpace(req.UserID)
	if participantID == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			participantID = cookie.Value
		}
	}

	if err := that.matches.AddReview(r.Context(), matchID, participantID, req.Text); err != nil {
		log.Info("review refused", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (that *handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := that.matches.Health(r.Context()); err != nil {
		that.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return nil
}
