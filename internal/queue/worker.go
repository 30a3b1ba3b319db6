package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// Source is the queue the worker consumes
type Source interface {
	DequeueMessage(ctx context.Context) (*QueueMessage, error)
	RetryMessage(ctx context.Context, msg *QueueMessage) error
	MoveToDeadLetterQueue(ctx context.Context, msg *QueueMessage) error
}

// Ledger receives the money movements derived from events
type Ledger interface {
	RecordTransaction(ctx context.Context, txn *models.Transaction) error
}

// MessageHandler is a function that processes a queue message
type MessageHandler func(ctx context.Context, msg *QueueMessage) error

// settleTimeout bounds the requeue or dead-letter write for a failed message
const settleTimeout = 5 * time.Second

// Worker processes game events from a queue
type Worker struct {
	source       Source
	ledger       Ledger
	logger       *zap.Logger
	handlers     map[models.EventType]MessageHandler
	maxAttempts  int
	pollInterval time.Duration
	retryDelay   time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewWorker creates a new queue worker. ledger may be nil, in which case events are only logged.
func NewWorker(source Source, ledger Ledger, logger *zap.Logger, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	ctx, cancel := context.WithCancel(context.Background())
	worker := &Worker{
		source:       source,
		ledger:       ledger,
		logger:       logger,
		handlers:     make(map[models.EventType]MessageHandler),
		maxAttempts:  maxAttempts,
		pollInterval: 200 * time.Millisecond,
		retryDelay:   time.Second,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	worker.registerDefaultHandlers()
	return worker
}

// registerDefaultHandlers records a ledger entry for every event that moves money
func (w *Worker) registerDefaultHandlers() {
	w.RegisterHandler(models.EventPropertyBought, w.ledgerHandler(func(e models.GameEvent) *models.Transaction {
		return &models.Transaction{
			Type:         models.TransactionTypePurchase,
			FromPlayerID: models.Int64Ptr(e.PlayerID),
			Amount:       e.Amount,
			PropertyID:   models.Int64Ptr(e.PropertyID),
		}
	}))

	w.RegisterHandler(models.EventRentPaid, w.ledgerHandler(func(e models.GameEvent) *models.Transaction {
		return &models.Transaction{
			Type:         models.TransactionTypeRent,
			FromPlayerID: models.Int64Ptr(e.PlayerID),
			ToPlayerID:   models.Int64Ptr(e.TargetID),
			Amount:       e.Amount,
			PropertyID:   models.Int64Ptr(e.PropertyID),
		}
	}))

	w.RegisterHandler(models.EventTaxPaid, w.ledgerHandler(func(e models.GameEvent) *models.Transaction {
		return &models.Transaction{
			Type:         models.TransactionTypeTax,
			FromPlayerID: models.Int64Ptr(e.PlayerID),
			Amount:       e.Amount,
		}
	}))

	w.RegisterHandler(models.EventPassedGo, w.ledgerHandler(func(e models.GameEvent) *models.Transaction {
		return &models.Transaction{
			Type:       models.TransactionTypeSalary,
			ToPlayerID: models.Int64Ptr(e.PlayerID),
			Amount:     e.Amount,
		}
	}))

	w.RegisterHandler(models.EventCardDrawn, w.ledgerHandler(func(e models.GameEvent) *models.Transaction {
		if e.Amount == 0 {
			return nil
		}
		txn := &models.Transaction{
			Type:   models.TransactionTypeCardEffect,
			CardID: models.Int64Ptr(e.CardID),
			Amount: e.Amount,
		}
		if e.Amount > 0 {
			txn.ToPlayerID = models.Int64Ptr(e.PlayerID)
		} else {
			txn.FromPlayerID = models.Int64Ptr(e.PlayerID)
			txn.Amount = -e.Amount
		}
		return txn
	}))

	for _, t := range []models.EventType{
		models.EventPlayerJoined,
		models.EventDiceRolled,
		models.EventSentToJail,
		models.EventPlayerEliminated,
		models.EventTurnAdvanced,
		models.EventGameOver,
		models.EventGameReset,
	} {
		w.RegisterHandler(t, w.logHandler)
	}
}

// ledgerHandler builds a handler recording the transaction derived from an event.
// The event id is reused as the transaction id so redelivery does not double count.
func (w *Worker) ledgerHandler(derive func(models.GameEvent) *models.Transaction) MessageHandler {
	return func(ctx context.Context, msg *QueueMessage) error {
		if w.ledger == nil {
			return w.logHandler(ctx, msg)
		}

		txn := derive(msg.Event)
		if txn == nil {
			return nil
		}
		txn.ID = msg.Event.ID
		txn.TurnNumber = msg.Event.TurnNumber
		txn.Timestamp = msg.Event.Timestamp

		if err := w.ledger.RecordTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to record %s transaction: %w", txn.Type, err)
		}
		return nil
	}
}

func (w *Worker) logHandler(ctx context.Context, msg *QueueMessage) error {
	w.logger.Info("Game event",
		zap.String("type", string(msg.Event.Type)),
		zap.Int64("playerId", msg.Event.PlayerID),
		zap.Int("amount", msg.Event.Amount),
		zap.Int("turn", msg.Event.TurnNumber))
	return nil
}

// RegisterHandler registers a handler for a specific event type
func (w *Worker) RegisterHandler(eventType models.EventType, handler MessageHandler) {
	w.handlers[eventType] = handler
}

// Start begins processing messages from the queue
func (w *Worker) Start() {
	go w.processMessages()
}

// Stop stops the worker and waits for the current message to finish
func (w *Worker) Stop() {
	w.cancel()
	<-w.done
}

// processMessages continuously processes messages from the queue
func (w *Worker) processMessages() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Worker shutting down")
			return
		default:
		}

		processed, err := w.ProcessNext(w.ctx)
		if err != nil {
			w.logger.Error("Failed to dequeue message", zap.Error(err))
		}
		if processed {
			continue
		}

		select {
		case <-w.ctx.Done():
			w.logger.Info("Worker shutting down")
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessNext handles one message. It reports false when the queue was empty or unreachable.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	msg, err := w.source.DequeueMessage(ctx)
	if err != nil {
		if errors.Is(err, ErrQueueEmpty) {
			return false, nil
		}
		return false, err
	}

	if err := w.processMessage(ctx, msg); err != nil {
		w.logger.Error("Failed to process message",
			zap.String("type", string(msg.Event.Type)),
			zap.String("eventId", msg.Event.ID),
			zap.Int("attempts", msg.Attempts),
			zap.Error(err))

		if msg.Attempts+1 < w.maxAttempts {
			w.logger.Info("Retrying message",
				zap.String("type", string(msg.Event.Type)),
				zap.Int("attempt", msg.Attempts+1),
				zap.Int("maxAttempts", w.maxAttempts))

			select {
			case <-time.After(time.Duration(msg.Attempts+1) * w.retryDelay):
			case <-ctx.Done():
			}
			settleCtx, cancel := w.settleContext(ctx)
			defer cancel()
			if err := w.source.RetryMessage(settleCtx, msg); err != nil {
				w.logger.Error("Failed to requeue message", zap.Error(err))
			}
		} else {
			w.logger.Warn("Moving message to dead letter queue after max attempts",
				zap.String("type", string(msg.Event.Type)),
				zap.Int("attempts", msg.Attempts+1),
				zap.Int("maxAttempts", w.maxAttempts))
			settleCtx, cancel := w.settleContext(ctx)
			defer cancel()
			if err := w.source.MoveToDeadLetterQueue(settleCtx, msg); err != nil {
				w.logger.Error("Failed to move message to dead letter queue", zap.Error(err))
			}
		}
	}
	return true, nil
}

// settleContext outlives a shutdown so a dequeued message is always requeued or dead-lettered
func (w *Worker) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// processMessage processes a single message from the queue
func (w *Worker) processMessage(ctx context.Context, msg *QueueMessage) error {
	handler, ok := w.handlers[msg.Event.Type]
	if !ok {
		return fmt.Errorf("no handler registered for event type: %s", msg.Event.Type)
	}

	if err := handler(ctx, msg); err != nil {
		return err
	}

	w.logger.Debug("Successfully processed message",
		zap.String("type", string(msg.Event.Type)),
		zap.String("eventId", msg.Event.ID))
	return nil
}
