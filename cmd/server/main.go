package main

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/controller"
	"ctchen222/tictactoe-ai/internal/api/service"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/config"
	"ctchen222/tictactoe-ai/internal/db"
	"ctchen222/tictactoe-ai/internal/hub"
	"ctchen222/tictactoe-ai/internal/logger"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/room"
	"ctchen222/tictactoe-ai/internal/server"
	"ctchen222/tictactoe-ai/internal/telemetry"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// stores holds the backends chosen by configuration and the resources to
// release on shutdown.
type stores struct {
	games   repository.GameRepository
	kv      repository.KVStore
	closers []func() error
}

func (s *stores) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Error("Error closing store", "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	var rdb *redis.Client
	if cfg.Store.Sessions == "redis" || cfg.Store.Scores == "redis" {
		client, err := db.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		rdb = client
		s.closers = append(s.closers, rdb.Close)
	}

	switch cfg.Store.Sessions {
	case "redis":
		s.games = repository.NewGameRepository(rdb, cfg.Redis.SessionTTL)
	default:
		s.games = repository.NewMemoryGameRepository()
	}

	switch cfg.Store.Scores {
	case "redis":
		s.kv = repository.NewRedisKVStore(rdb, cfg.Redis.KeyPrefix)
	case "sqlite":
		sqlDB, err := db.SQLiteConnect(ctx, cfg.SQLite.Path)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to initialize sqlite db: %w", err)
		}
		s.closers = append(s.closers, sqlDB.Close)
		s.kv = repository.NewSQLiteKVStore(sqlDB)
	default:
		s.kv = repository.NewMemoryKVStore()
	}
	return s, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	if err := logger.Init(cfg.Log.Level); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer st.close()
	slog.Info("Stores ready", "store.sessions", cfg.Store.Sessions, "store.scores", cfg.Store.Scores)

	// Create services
	calculator := bot.NewBotMoveCalculator(bot.NewEngine(nil))
	gameService := service.NewGameService(
		st.games,
		repository.NewScoreRepository(st.kv),
		repository.NewPreferenceRepository(st.kv),
		calculator,
		service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	)

	// Create controllers
	gameController := controller.NewGameController(gameService)

	// Create hub
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	h := hub.NewHub(gameService, room.Options{
		MoveTimeout:       cfg.Game.MoveTimeout,
		HeartbeatInterval: cfg.Game.HeartbeatInterval,
		ThinkDelay:        cfg.Game.ThinkDelay,
	})
	go h.Run(hubCtx)

	// Create the Gin-based server
	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(h, gameController, cfg.Game.DefaultDifficulty)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "http.addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop

	slog.Info("Shutting down server...")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
