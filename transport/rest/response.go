package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to the HTTP status reported for it.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrRoomNotFound), errors.Is(err, apperror.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomFull), errors.Is(err, apperror.ErrGameFinished), errors.Is(err, apperror.ErrReviewExists):
		return http.StatusConflict
	}

	switch apperror.KindOf(err) {
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindValidation, apperror.KindClientProtocol, apperror.KindGameRule:
		return http.StatusBadRequest
	case apperror.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal Server Error"
	}

	writeJSON(w, status, errorResponse{
		Error:   codeOf(err),
		Message: message,
	})
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, errBadRequest):
		return "bad_request"
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, apperror.ErrMatchNotFound):
		return "match_not_found"
	case errors.Is(err, apperror.ErrRoomFull):
		return "room_full"
	case errors.Is(err, apperror.ErrGameFinished):
		return "already_finished"
	case errors.Is(err, apperror.ErrReviewExists):
		return "review_exists"
	case errors.Is(err, apperror.ErrReviewTooLong):
		return "review_too_long"
	case errors.Is(err, apperror.ErrNoWinner):
		return "no_winner"
	case errors.Is(err, apperror.ErrNotWinner):
		return "not_winner"
	case errors.Is(err, apperror.ErrEmptyNickname):
		return "empty_nickname"
	}

	if kind := apperror.KindOf(err); kind != apperror.KindUnknown {
		return string(kind)
	}

	return "internal_error"
}
