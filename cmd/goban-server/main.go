package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/api"
	"github.com/atarigo/goban-server/internal/archive"
	appcfg "github.com/atarigo/goban-server/internal/config"
	"github.com/atarigo/goban-server/internal/engine"
	"github.com/atarigo/goban-server/internal/game"
	"github.com/atarigo/goban-server/internal/gtp"
	"github.com/atarigo/goban-server/internal/logging"
	"github.com/atarigo/goban-server/internal/store"
	"github.com/atarigo/goban-server/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	pool, err := gtp.NewPool(gtp.PoolConfig{
		Addr:        cfg.EngineAddr(),
		Capacity:    cfg.EnginePoolSize,
		DialTimeout: cfg.EngineDialTimeout,
		IOTimeout:   cfg.EngineIOTimeout,
	})
	if err != nil {
		logger.Fatal("engine pool init failed", zap.Error(err))
	}

	levels := engine.DefaultLevels()
	if cfg.LevelsFile != "" {
		levels, err = engine.LoadLevels(cfg.LevelsFile)
		if err != nil {
			logger.Fatal("levels file load failed",
				zap.String("path", cfg.LevelsFile),
				zap.Error(err),
			)
		}
	}
	adapter := engine.NewAdapter(pool, levels, logger.Named("engine"))

	var sessions store.Store
	if cfg.RedisURL != "" {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := store.NewRedisStoreURL(rctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis store init failed", zap.Error(err))
		}
		defer func() { _ = rs.Close() }()
		sessions = rs
		logger.Info("session store: redis")
	} else {
		sessions = store.NewMemoryStore()
		logger.Info("session store: memory")
	}

	var games game.Archiver
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		games = repo
		logger.Info("game archive: postgres")
	} else {
		games = archive.NewMemoryRepository()
		logger.Info("game archive: memory")
	}

	hub := ws.NewHub(logger.Named("ws"))

	svc := game.NewService(sessions, adapter, hub, games,
		game.Config{BotChainLimit: cfg.BotChainLimit},
		logger.Named("game"),
	)

	sweeper := game.NewSweeper(sessions, adapter.Forget, cfg.SessionTTL, cfg.SweepInterval, logger.Named("sweeper"))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(rootCtx)

	handler := api.NewHandler(svc, hub, logger.Named("api"))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := pool.Close(); err != nil {
		logger.Warn("engine pool close", zap.Error(err))
	}
}
