package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// DefaultQueueName is the redis list game events are pushed to
const DefaultQueueName = "game:events:queue"

// ErrQueueEmpty is returned by DequeueMessage when there is nothing to process
var ErrQueueEmpty = errors.New("queue is empty")

// QueueMessage represents a message in the queue
type QueueMessage struct {
	Event      models.GameEvent `json:"event"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
	Attempts   int              `json:"attempts"`
}

// RedisQueue implements a Redis-based message queue
type RedisQueue struct {
	client *redis.Client
	logger *zap.Logger
	name   string
}

// NewRedisQueue creates a new Redis queue on an existing client
func NewRedisQueue(client *redis.Client, name string, logger *zap.Logger) *RedisQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &RedisQueue{
		client: client,
		logger: logger,
		name:   name,
	}
}

// Name returns the list the queue pushes to
func (q *RedisQueue) Name() string {
	return q.name
}

// DeadLetterName returns the list failed messages are moved to
func (q *RedisQueue) DeadLetterName() string {
	return q.name + ":dead"
}

// EnqueueGameEvent adds a game event to the queue
func (q *RedisQueue) EnqueueGameEvent(ctx context.Context, event models.GameEvent) error {
	msg := QueueMessage{
		Event:      event,
		EnqueuedAt: time.Now(),
		Attempts:   0,
	}
	if err := q.push(ctx, q.name, &msg); err != nil {
		return err
	}

	q.logger.Debug("Message enqueued",
		zap.String("queue", q.name),
		zap.String("type", string(event.Type)),
		zap.String("eventId", event.ID),
		zap.Int64("playerId", event.PlayerID))
	return nil
}

func (q *RedisQueue) push(ctx context.Context, list string, msg *QueueMessage) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.client.RPush(ctx, list, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to %s: %w", list, err)
	}
	return nil
}

// DequeueMessage retrieves and removes the oldest message
func (q *RedisQueue) DequeueMessage(ctx context.Context) (*QueueMessage, error) {
	result, err := q.client.LPop(ctx, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to pop message from queue: %w", err)
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(result), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// RetryMessage puts a message back into the queue for retry
func (q *RedisQueue) RetryMessage(ctx context.Context, msg *QueueMessage) error {
	msg.Attempts++
	if err := q.push(ctx, q.name, msg); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}

	q.logger.Info("Message requeued for retry",
		zap.String("queue", q.name),
		zap.String("type", string(msg.Event.Type)),
		zap.String("eventId", msg.Event.ID),
		zap.Int("attempts", msg.Attempts))
	return nil
}

// MoveToDeadLetterQueue moves a failed message to the dead letter queue
func (q *RedisQueue) MoveToDeadLetterQueue(ctx context.Context, msg *QueueMessage) error {
	msg.Attempts++
	if err := q.push(ctx, q.DeadLetterName(), msg); err != nil {
		return fmt.Errorf("failed to move message to dead letter queue: %w", err)
	}

	q.logger.Warn("Message moved to dead letter queue",
		zap.String("queue", q.name),
		zap.String("deadLetterQueue", q.DeadLetterName()),
		zap.String("type", string(msg.Event.Type)),
		zap.String("eventId", msg.Event.ID),
		zap.Int("attempts", msg.Attempts))
	return nil
}

// GetQueueLength returns the number of pending messages
func (q *RedisQueue) GetQueueLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// ClearQueue removes all pending and dead messages
func (q *RedisQueue) ClearQueue(ctx context.Context) error {
	return q.client.Del(ctx, q.name, q.DeadLetterName()).Err()
}

// GetDeadLetterLength returns the number of messages that exhausted their attempts
func (q *RedisQueue) GetDeadLetterLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.DeadLetterName()).Result()
}

// RequeueDeadLetters moves every dead message back to the queue with a fresh attempt count
func (q *RedisQueue) RequeueDeadLetters(ctx context.Context) (int, error) {
	moved := 0
	for {
		result, err := q.client.LPop(ctx, q.DeadLetterName()).Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to pop dead letter: %w", err)
		}

		var msg QueueMessage
		if err := json.Unmarshal([]byte(result), &msg); err != nil {
			q.logger.Error("Dropping unreadable dead letter", zap.Error(err))
			continue
		}
		msg.Attempts = 0
		if err := q.push(ctx, q.name, &msg); err != nil {
			return moved, err
		}
		moved++
	}
}
