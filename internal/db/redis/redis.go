package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/db/circuit"
)

// Options configures the redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect establishes a connection to Redis with retry capabilities
func Connect(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	maxRetries := 5
	initialBackoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			logger.Infow("Successfully connected to Redis", "addr", opts.Addr, "attempt", attempt+1)
			return client, nil
		}

		backoff := circuit.Backoff(attempt, initialBackoff, maxBackoff)
		logger.Warnw("Failed to connect to Redis, retrying",
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", backoff,
			"error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("context cancelled while connecting to Redis: %w", ctx.Err())
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

// Pinger wraps a client's ping with circuit breaker protection
type Pinger struct {
	client  *redis.Client
	breaker *circuit.Breaker
}

// NewPinger creates a new Pinger
func NewPinger(client *redis.Client) *Pinger {
	return &Pinger{
		client:  client,
		breaker: circuit.NewBreaker(5, 10*time.Second),
	}
}

// Ping checks the connection
func (p *Pinger) Ping(ctx context.Context) error {
	return p.breaker.Execute(func() error {
		return p.client.Ping(ctx).Err()
	})
}
