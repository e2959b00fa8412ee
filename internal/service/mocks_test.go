package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

type mockMatchRepo struct {
	mock.Mock
}

func (m *mockMatchRepo) Save(ctx context.Context, match *entity.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *mockMatchRepo) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	args := m.Called(ctx, id)
	match, _ := args.Get(0).(*entity.Match)
	return match, args.Error(1)
}

func (m *mockMatchRepo) List(ctx context.Context, before time.Time, limit int) ([]*entity.Match, error) {
	args := m.Called(ctx, before, limit)
	matches, _ := args.Get(0).([]*entity.Match)
	return matches, args.Error(1)
}

func (m *mockMatchRepo) SetReview(ctx context.Context, id, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *mockMatchRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
