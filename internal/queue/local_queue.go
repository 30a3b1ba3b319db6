package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// LocalQueue is an in-process queue used when redis is not configured
type LocalQueue struct {
	mu       sync.Mutex
	pending  []*QueueMessage
	dead     []*QueueMessage
	capacity int
}

// NewLocalQueue creates a queue holding at most capacity pending messages
func NewLocalQueue(capacity int) *LocalQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &LocalQueue{capacity: capacity}
}

// EnqueueGameEvent adds a game event to the queue
func (q *LocalQueue) EnqueueGameEvent(ctx context.Context, event models.GameEvent) error {
	return q.push(&QueueMessage{Event: event, EnqueuedAt: time.Now()})
}

func (q *LocalQueue) push(msg *QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		return fmt.Errorf("local queue is full (%d messages)", q.capacity)
	}
	q.pending = append(q.pending, msg)
	return nil
}

// DequeueMessage retrieves and removes the oldest message
func (q *LocalQueue) DequeueMessage(ctx context.Context) (*QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, ErrQueueEmpty
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

// RetryMessage puts a message back into the queue for retry
func (q *LocalQueue) RetryMessage(ctx context.Context, msg *QueueMessage) error {
	msg.Attempts++
	return q.push(msg)
}

// MoveToDeadLetterQueue keeps a failed message aside
func (q *LocalQueue) MoveToDeadLetterQueue(ctx context.Context, msg *QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg.Attempts++
	q.dead = append(q.dead, msg)
	return nil
}

// Len returns the number of pending messages
func (q *LocalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLetters returns a copy of the dead letter list
func (q *LocalQueue) DeadLetters() []*QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*QueueMessage(nil), q.dead...)
}
