package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
	"github.com/rocketscienceinc/renju-backend/internal/metrics"
	"github.com/rocketscienceinc/renju-backend/internal/pkg"
)

type matchSaver interface {
	Save(ctx context.Context, match *entity.Match) error
}

// MatchArchiver persists the records of finished rooms.
type MatchArchiver struct {
	logger    *slog.Logger
	matchRepo matchSaver
}

func NewMatchArchiver(logger *slog.Logger, matchRepo matchSaver) *MatchArchiver {
	return &MatchArchiver{
		logger:    logger.With("component", "archiver"),
		matchRepo: matchRepo,
	}
}

// Archive stores match under a fresh id and returns that id.
func (that *MatchArchiver) Archive(ctx context.Context, match *entity.Match) (string, error) {
	log := that.logger.With("method", "Archive", "roomID", match.RoomID)

	matchID, err := pkg.NewMatchID()
	if err != nil {
		metrics.MatchesArchived.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: generate match id: %w", apperror.ErrPersistence, err)
	}

	match.ID = matchID

	if err = that.matchRepo.Save(ctx, match); err != nil {
		metrics.MatchesArchived.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: %w", apperror.ErrPersistence, err)
	}

	metrics.MatchesArchived.WithLabelValues(string(match.Winner)).Inc()
	log.Info("match archived", "matchID", matchID, "winner", match.Winner)

	return matchID, nil
}
