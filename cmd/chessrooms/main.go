package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chessrooms/internal/agent"
	"chessrooms/internal/archive"
	"chessrooms/internal/bus"
	"chessrooms/internal/config"
	"chessrooms/internal/obslog"
	"chessrooms/internal/room"
	"chessrooms/internal/store"
	"chessrooms/internal/ws"
)

func main() {
	if err := run(); err != nil {
		obslog.L().Fatal("startup_failed", zap.Error(err))
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obslog.Init(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = obslog.L().Sync() }()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}

	games := store.NewRedisGames(rdb, cfg.RecordTTL)
	sessions := store.NewRedisSessions(rdb, cfg.RecordTTL)
	msgBus := bus.NewRedis(rdb)

	hub := ws.NewHub(msgBus, ws.EmitLogging())
	if err := hub.Run(context.Background()); err != nil {
		return err
	}
	defer func() { _ = hub.Stop() }()

	coord := room.NewCoordinator(games, sessions, hub)

	bridge := agent.NewBridge(msgBus, coord)
	coord.AttachMoveRequestor(bridge)
	if err := bridge.Run(context.Background()); err != nil {
		return err
	}
	defer func() { _ = bridge.Stop() }()

	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()
		coord.AttachArchive(repo)
		obslog.L().Info("archive_enabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           ws.NewServer(hub, coord).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obslog.L().Info("server_listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Warn("server_shutdown_error", zap.Error(err))
	}
	return nil
}
