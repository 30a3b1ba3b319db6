package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/config"
	redisdb "github.com/boardloop/turn-engine/internal/db/redis"
	"github.com/boardloop/turn-engine/internal/queue"
)

func main() {
	configFile := flag.String("config", "", "path to a config file")
	requeue := flag.Bool("requeue", false, "move dead letters back onto the event queue")
	clearAll := flag.Bool("clear", false, "delete pending and dead messages")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	defer logger.Sync()

	fmt.Printf("Connecting to Redis at %s...\n", cfg.Redis.Addr)
	client, err := redisdb.Connect(ctx, redisdb.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, sugar)
	if err != nil {
		fmt.Printf("Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	q := queue.NewRedisQueue(client, cfg.Queue.Name, logger)

	switch {
	case *clearAll:
		if err := q.ClearQueue(ctx); err != nil {
			fmt.Printf("Failed to clear queues: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cleared pending and dead messages")
	case *requeue:
		moved, err := q.RequeueDeadLetters(ctx)
		if err != nil {
			fmt.Printf("Requeued %d messages before failing: %v\n", moved, err)
			os.Exit(1)
		}
		fmt.Printf("Requeued %d dead letters\n", moved)
	}

	pending, err := q.GetQueueLength(ctx)
	if err != nil {
		fmt.Printf("Failed to read queue length: %v\n", err)
		os.Exit(1)
	}
	dead, err := q.GetDeadLetterLength(ctx)
	if err != nil {
		fmt.Printf("Failed to read dead letter length: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d pending\n", q.Name(), pending)
	fmt.Printf("%s: %d dead\n", q.DeadLetterName(), dead)
}
