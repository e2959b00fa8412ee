package suite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

const (
	postgresPort     = "5432/tcp"
	postgresImage    = "postgres"
	postgresTag      = "16-alpine"
	postgresUser     = "renju"
	postgresPassword = "renju"
	postgresDB       = "renju"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
}

type PostgresSuite struct {
	*testing.T
	Logger *slog.Logger

	Pool *pgxpool.Pool
}

// New starts a throwaway Redis and returns a flushed client.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx := newContext(t)

	pool, resource := runContainer(t, &dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	})

	redisHost := resource.GetHostPort(redisPort)

	var redisClient *redis.Client
	if err := pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		purge(t, pool, resource)
		t.Fatalf("could not connect to redis: %v", err)
	}

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		_ = redisClient.Close()
	})

	return ctx, &Suite{
		T:       t,
		Logger:  newLogger(),
		Storage: redisClient,
	}
}

// NewPostgres starts a throwaway Postgres and returns a connected pool.
func NewPostgres(t *testing.T) (context.Context, *PostgresSuite) {
	t.Helper()

	ctx := newContext(t)

	pool, resource := runContainer(t, &dockertest.RunOptions{
		Repository: postgresImage,
		Tag:        postgresTag,
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDB,
		},
	})

	databaseURL := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		postgresUser, postgresPassword, resource.GetHostPort(postgresPort), postgresDB)

	var pgPool *pgxpool.Pool
	if err := pool.Retry(func() error {
		var err error
		pgPool, err = pgxpool.New(ctx, databaseURL)
		if err != nil {
			return err
		}

		if err = pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			return err
		}

		return nil
	}); err != nil {
		purge(t, pool, resource)
		t.Fatalf("could not connect to postgres: %v", err)
	}

	t.Cleanup(pgPool.Close)

	return ctx, &PostgresSuite{
		T:      t,
		Logger: newLogger(),
		Pool:   pgPool,
	}
}

func newContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	return ctx
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func runContainer(t *testing.T, options *dockertest.RunOptions) (*dockertest.Pool, *dockertest.Resource) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(options, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration) // Tell docker to hard kill the container in 120 seconds

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = maxWaitDuration

	t.Cleanup(func() {
		purge(t, pool, resource)
	})

	return pool, resource
}

func purge(t *testing.T, pool *dockertest.Pool, resource *dockertest.Resource) {
	t.Helper()

	if err := pool.Purge(resource); err != nil {
		t.Logf("could not purge resource: %v", err)
	}
}
