package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boardloop/turn-engine/internal/api"
	"github.com/boardloop/turn-engine/internal/api/handlers"
	"github.com/boardloop/turn-engine/internal/bootstrap"
	"github.com/boardloop/turn-engine/internal/config"
	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/manager"
	"github.com/boardloop/turn-engine/internal/queue"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: search ., ./config, /etc/turn-engine)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := storage.Close(context.Background()); err != nil {
			sugar.Errorf("Failed to close storage: %v", err)
		}
	}()
	sugar.Infof("Connected to %s storage", cfg.Storage.Driver)

	if cfg.Game.SeedOnStart {
		if err := storage.Store.EnsureBoard(ctx, board.Properties(), board.Cards()); err != nil {
			sugar.Fatalf("Failed to seed the board: %v", err)
		}
	}

	events, err := bootstrap.OpenEvents(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := events.Close(); err != nil {
			sugar.Errorf("Failed to close Redis connection: %v", err)
		}
	}()

	// Initialize game manager with the message queue
	gameManager := manager.NewGameManager(storage.Store, sugar, bootstrap.GameOptions(cfg.Game))
	gameManager.SetMessageQueue(events.Queue)
	if events.Locker != nil {
		gameManager.SetLocker(events.Locker)
	}
	sugar.Info("Game manager initialized")

	// Initialize queue worker
	worker := queue.NewWorker(events.Source, storage.Ledger, logger, cfg.Queue.MaxAttempts)
	worker.Start()
	sugar.Info("Queue worker started")

	health := map[string]handlers.Pinger{"store": storage.Store}
	if events.Redis != nil {
		health["redis"] = events.Redis
	}

	server := api.NewServer(cfg, api.Dependencies{
		GameManager: gameManager,
		Ledger:      storage.Ledger,
		Health:      health,
	}, sugar)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Failed to start the server: %v", err)
		}
	}()
	sugar.Infof("Server started on port %d", cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	// Drain after the last request so no new events arrive
	worker.Stop()
	sugar.Info("Queue worker stopped")

	sugar.Info("Server exited properly")
}
