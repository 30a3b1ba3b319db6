package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/boardloop/turn-engine/internal/bootstrap"
	"github.com/boardloop/turn-engine/internal/config"
	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/manager"
)

func main() {
	configFile := flag.String("config", "", "path to a config file")
	reset := flag.Bool("reset", false, "remove all players and restart the turn state after seeding")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver == "memory" {
		fmt.Println("Error: storage.driver is memory, nothing to seed. Set STORAGE_DRIVER to mongodb or postgres")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	fmt.Printf("Connecting to %s...\n", cfg.Storage.Driver)
	storage, err := bootstrap.OpenStorage(ctx, cfg, sugar)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close(context.Background())

	props, cards := board.Properties(), board.Cards()
	if err := storage.Store.EnsureBoard(ctx, props, cards); err != nil {
		fmt.Printf("Failed to seed the board: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Board ready: %d properties, %d cards\n", len(props), len(cards))

	gm := manager.NewGameManager(storage.Store, sugar, bootstrap.GameOptions(cfg.Game))
	if *reset {
		if err := gm.ResetGame(ctx); err != nil {
			fmt.Printf("Failed to reset the game: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Game reset")
	}

	state, err := gm.State(ctx)
	if err != nil {
		fmt.Printf("Failed to read game state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Turn %d, %d players, required action %s, status %s\n",
		state.TurnNumber, state.PlayerCount, state.RequiredAction, state.Status)
}
