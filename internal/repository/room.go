package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/renju-backend/internal/apperror"
	"github.com/rocketscienceinc/renju-backend/internal/entity"
)

// RoomSnapshotRepository keeps the last public state of rooms evicted from memory.
type RoomSnapshotRepository interface {
	Save(ctx context.Context, state entity.PublicState, ttl time.Duration) error
	GetByID(ctx context.Context, roomID string) (entity.PublicState, error)
	DeleteByID(ctx context.Context, roomID string) error
}

type redisRoomSnapshot struct {
	client *redis.Client
}

func NewRoomSnapshotRepository(client *redis.Client) RoomSnapshotRepository {
	return &redisRoomSnapshot{
		client: client,
	}
}

func roomKey(roomID string) string {
	return "room:" + roomID
}

func (that *redisRoomSnapshot) Save(ctx context.Context, state entity.PublicState, ttl time.Duration) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	err = that.client.Set(ctx, roomKey(state.Room), stateJSON, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *redisRoomSnapshot) GetByID(ctx context.Context, roomID string) (entity.PublicState, error) {
	response, err := that.client.Get(ctx, roomKey(roomID)).Result()

	if errors.Is(err, redis.Nil) {
		return entity.PublicState{}, apperror.ErrRoomNotFound
	}

	if err != nil {
		return entity.PublicState{}, fmt.Errorf("failed to get room by ID: %w", err)
	}

	var state entity.PublicState
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return entity.PublicState{}, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return state, nil
}

func (that *redisRoomSnapshot) DeleteByID(ctx context.Context, roomID string) error {
	err := that.client.Del(ctx, roomKey(roomID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete room by ID: %w", err)
	}

	return nil
}
