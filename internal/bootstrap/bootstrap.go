// Package bootstrap builds the logger, storage and event plumbing selected by the configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/boardloop/turn-engine/internal/config"
	"github.com/boardloop/turn-engine/internal/db/mongodb"
	"github.com/boardloop/turn-engine/internal/db/postgres"
	redisdb "github.com/boardloop/turn-engine/internal/db/redis"
	"github.com/boardloop/turn-engine/internal/game/manager"
	"github.com/boardloop/turn-engine/internal/game/store"
	"github.com/boardloop/turn-engine/internal/queue"
)

// NewLogger builds the process logger
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// Storage is the entity store together with the ledger on the same backend
type Storage struct {
	Store  store.Store
	Ledger store.Ledger
}

// Close releases the backend connection
func (s *Storage) Close(ctx context.Context) error {
	return s.Store.Close(ctx)
}

// OpenStorage connects to the configured driver
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		logger.Info("Using in-memory storage")
		return &Storage{Store: store.NewMemoryStore(), Ledger: store.NewMemoryLedger()}, nil

	case "mongodb":
		client, err := mongodb.Connect(ctx, cfg.MongoDB.URI, logger)
		if err != nil {
			return nil, err
		}
		st := mongodb.NewStore(client, cfg.MongoDB.Database, cfg.MongoDB.Transactions, logger)
		return &Storage{Store: st, Ledger: mongodb.NewTransactionStore(st.Database())}, nil

	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Storage{Store: postgres.NewStore(pool, logger), Ledger: postgres.NewTransactionStore(pool)}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Events is the event queue and game lock. Without redis both stay in process.
type Events struct {
	Queue  manager.MessageQueue
	Source queue.Source
	Locker manager.Locker
	// Redis is nil unless redis is enabled
	Redis *redisdb.Pinger

	closeFn func() error
}

// Close releases the redis connection if one was opened
func (e *Events) Close() error {
	if e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}

// OpenEvents connects the event queue and distributed lock
func OpenEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Events, error) {
	sugar := logger.Sugar()

	if !cfg.Redis.Enabled {
		local := queue.NewLocalQueue(1024)
		sugar.Info("Redis disabled, using in-process queue and lock")
		return &Events{Queue: local, Source: local}, nil
	}

	client, err := redisdb.Connect(ctx, redisdb.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, sugar)
	if err != nil {
		return nil, err
	}

	redisQueue := queue.NewRedisQueue(client, cfg.Queue.Name, logger)
	locker := redisdb.NewLocker(client,
		time.Duration(cfg.Redis.LockTTL)*time.Millisecond,
		time.Duration(cfg.Redis.LockWait)*time.Millisecond,
		sugar)

	return &Events{
		Queue:   redisQueue,
		Source:  redisQueue,
		Locker:  locker,
		Redis:   redisdb.NewPinger(client),
		closeFn: client.Close,
	}, nil
}

// GameOptions maps the game section onto manager options
func GameOptions(cfg config.GameConfig) manager.Options {
	return manager.Options{
		InitialBalance: cfg.InitialBalance,
		MaxPlayers:     cfg.MaxPlayers,
		PassGoReward:   cfg.PassGoReward,
		JailRelease:    manager.JailRelease(cfg.JailRelease),
	}
}
