package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

type MatchService interface {
	List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error)
	Get(ctx context.Context, id string) (*entity.Match, error)
	AddReview(ctx context.Context, id, participantID, text string) error
	Health(ctx context.Context) error
}

type matchRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error)
	SetReview(ctx context.Context, id, text string) error
	Ping(ctx context.Context) error
}

type matchService struct {
	matchRepo   matchRepo
	pageSize    int
	maxPageSize int
}

func NewMatchService(matchRepo matchRepo, pageSize, maxPageSize int) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

func (that *matchService) List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error) {
	if limit <= 0 {
		limit = that.pageSize
	}

	if limit > that.maxPageSize {
		limit = that.maxPageSize
	}

	matches, err := that.matchRepo.List(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches from storage: %w", err)
	}

	return matches, nil
}

func (that *matchService) Get(ctx context.Context, id string) (*entity.Match, error) {
	match, err := that.matchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve match from storage: %w", err)
	}

	return match, nil
}

// AddReview lets the bound winner attach one short comment to a decided match.
func (that *matchService) AddReview(ctx context.Context, id, participantID, text string) error {
	match, err := that.Get(ctx, id)
	if err != nil {
		return err
	}

	if !match.HasWinner() {
		return apperror.ErrNoWinner
	}

	if participantID == "" || participantID != match.WinnerParticipantID {
		return apperror.ErrNotWinner
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > entity.MaxReviewLength {
		return fmt.Errorf("%w: max %d characters", apperror.ErrReviewTooLong, entity.MaxReviewLength)
	}

	if match.HasReview() {
		return apperror.ErrReviewExists
	}

	if err = that.matchRepo.SetReview(ctx, id, text); err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	return nil
}

func (that *matchService) Health(ctx context.Context) error {
	if err := that.matchRepo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrPersistence, err)
	}

	return nil
}
