package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/renju-backend/internal/config"
	"github.com/rocketscienceinc/renju-backend/internal/repository"
	"github.com/rocketscienceinc/renju-backend/internal/repository/storage"
	"github.com/rocketscienceinc/renju-backend/internal/service"
	"github.com/rocketscienceinc/renju-backend/internal/usecase"
	"github.com/rocketscienceinc/renju-backend/transport/rest"
	"github.com/rocketscienceinc/renju-backend/transport/websocket"
)

var (
	ErrAddrNotFound      = errors.New("redis address string is empty")
	ErrUnknownDriver     = errors.New("unknown storage driver")
	ErrPostgresURLNotSet = errors.New("postgres url is empty")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	matchRepo, closeMatches, err := openMatchRepository(ctx, conf.Storage)
	if err != nil {
		return err
	}
	defer closeMatches()

	snapshotRepo := repository.NewRoomSnapshotRepository(redisStorage.Connection)
	archiver := service.NewMatchArchiver(logger, matchRepo)
	matchService := service.NewMatchService(matchRepo, conf.Matches.PageSize, conf.Matches.MaxPageSize)

	hub := usecase.NewSessionHub(logger, archiver, snapshotRepo, usecase.HubOptions{
		FinishedTTL:    conf.Rooms.FinishedTTL,
		IdleTTL:        conf.Rooms.IdleTTL,
		SweepInterval:  conf.Rooms.SweepInterval,
		SnapshotTTL:    conf.Rooms.SnapshotTTL,
		ArchiveTimeout: conf.Archive.Timeout,
	})

	go hub.Run(ctx)
	defer hub.Wait()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		router := rest.NewRouter(rest.NewHandlers(logger, hub, matchService), rest.NewPingHandler(), conf.WebSocket.AllowedOrigins)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, router); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, websocket.Options{
			SendBuffer:     conf.WebSocket.SendBuffer,
			WriteTimeout:   conf.WebSocket.WriteTimeout,
			PongTimeout:    conf.WebSocket.PongTimeout,
			AllowedOrigins: conf.WebSocket.AllowedOrigins,
		})
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// openMatchRepository opens the archive store selected by conf.Driver and
// creates its schema.
func openMatchRepository(ctx context.Context, conf config.Storage) (repository.MatchRepository, func(), error) {
	switch conf.Driver {
	case config.DriverSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteMatchRepository(sqliteStorage.Connection), func() { _ = sqliteStorage.Close() }, nil
	case config.DriverPostgres:
		if conf.PostgresURL == "" {
			return nil, nil, ErrPostgresURLNotSet
		}

		postgresStorage, err := storage.NewPostgresStorage(ctx, conf.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to postgres storage: %w", err)
		}

		if err = postgresStorage.Init(ctx); err != nil {
			postgresStorage.Close()
			return nil, nil, fmt.Errorf("could not init postgres storage: %w", err)
		}

		return repository.NewPostgresMatchRepository(postgresStorage.Pool), postgresStorage.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, conf.Driver)
	}
}
