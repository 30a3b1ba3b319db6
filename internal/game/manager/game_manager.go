package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/game/models"
	"github.com/boardloop/turn-engine/internal/game/store"
)

const gameLockKey = "game:current"

// JailRelease selects what a jailed player's roll does
type JailRelease string

const (
	// JailReleaseMove clears the jail flag and moves the player normally
	JailReleaseMove JailRelease = "move"
	// JailReleaseSkip clears the jail flag and passes the turn without moving
	JailReleaseSkip JailRelease = "skip"
)

// MessageQueue defines the interface for the game event queue
type MessageQueue interface {
	EnqueueGameEvent(ctx context.Context, event models.GameEvent) error
}

// Options configures game rules and collaborators. Zero values fall back to defaults.
type Options struct {
	InitialBalance int
	MaxPlayers     int
	PassGoReward   int
	JailRelease    JailRelease
	Dice           Dice
	CardPicker     CardPicker
}

// GameManager runs the turn state machine against a Store
type GameManager struct {
	store        store.Store
	logger       *zap.SugaredLogger
	locker       Locker
	messageQueue MessageQueue
	dice         Dice
	picker       CardPicker
	opts         Options
}

// NewGameManager creates a new game manager instance
func NewGameManager(st store.Store, logger *zap.SugaredLogger, opts Options) *GameManager {
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = 1500
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 6
	}
	if opts.PassGoReward <= 0 {
		opts.PassGoReward = 200
	}
	if opts.JailRelease == "" {
		opts.JailRelease = JailReleaseMove
	}

	gm := &GameManager{
		store:  st,
		logger: logger,
		locker: newLocalLocker(),
		dice:   opts.Dice,
		picker: opts.CardPicker,
		opts:   opts,
	}
	if gm.dice == nil {
		gm.dice = randomDice{}
	}
	if gm.picker == nil {
		gm.picker = randomPicker{}
	}
	return gm
}

// SetMessageQueue sets the message queue for the game manager
func (gm *GameManager) SetMessageQueue(queue MessageQueue) {
	gm.messageQueue = queue
	gm.logger.Info("Message queue set for game manager")
}

// SetLocker replaces the in-process lock, e.g. with a distributed one
func (gm *GameManager) SetLocker(locker Locker) {
	gm.locker = locker
	gm.logger.Info("Game locker set for game manager")
}

// turnTx carries the state loaded for one unit of work
type turnTx struct {
	tx      store.Tx
	state   *models.GameState
	players []*models.Player
	events  []models.GameEvent
}

func (t *turnTx) emit(event models.GameEvent) {
	event.ID = uuid.New().String()
	event.TurnNumber = t.state.TurnNumber
	event.Timestamp = time.Now()
	t.events = append(t.events, event)
}

func (t *turnTx) currentPlayer() *models.Player {
	if len(t.players) == 0 {
		return nil
	}
	return t.players[t.state.CurrentPlayerIndex]
}

func (t *turnTx) indexOf(playerID int64) int {
	for i, p := range t.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// mutate runs fn under the game lock in a single unit of work and publishes
// the events it emitted once the unit of work has committed
func (gm *GameManager) mutate(ctx context.Context, fn func(ctx context.Context, t *turnTx) error) error {
	release, err := gm.locker.Acquire(ctx, gameLockKey)
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	defer release()

	var events []models.GameEvent
	err = gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := loadTurn(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(ctx, t); err != nil {
			return err
		}
		t.state.UpdatedAt = time.Now()
		if err := tx.SaveState(ctx, t.state); err != nil {
			return fmt.Errorf("failed to save game state: %w", err)
		}
		events = t.events
		return nil
	})
	if err != nil {
		return err
	}

	gm.publish(ctx, events)
	return nil
}

func loadTurn(ctx context.Context, tx store.Tx) (*turnTx, error) {
	state, err := tx.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	players, err := tx.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	// The player list may have shrunk since the index was written
	if len(players) > 0 && (state.CurrentPlayerIndex < 0 || state.CurrentPlayerIndex >= len(players)) {
		state.CurrentPlayerIndex = ((state.CurrentPlayerIndex % len(players)) + len(players)) % len(players)
	}

	return &turnTx{tx: tx, state: state, players: players}, nil
}

func (gm *GameManager) publish(ctx context.Context, events []models.GameEvent) {
	if gm.messageQueue == nil {
		return
	}
	for _, event := range events {
		if err := gm.messageQueue.EnqueueGameEvent(ctx, event); err != nil {
			// Continue even if queue fails, the action is already committed
			gm.logger.Errorf("Failed to enqueue %s event: %v", event.Type, err)
		}
	}
}

// logOutcome logs an action result at the level matching its kind
func (gm *GameManager) logOutcome(action string, playerID int64, required models.RequiredAction, err error) {
	switch {
	case err == nil:
		gm.logger.Infof("Player %d %s, required action now %s", playerID, action, required)
	case IsRejection(err):
		gm.logger.Debugf("Player %d %s rejected: %v", playerID, action, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		gm.logger.Warnf("Player %d %s abandoned: %v", playerID, action, err)
	default:
		gm.logger.Errorf("Player %d %s failed: %v", playerID, action, err)
	}
}

// validateActor checks that playerID holds the turn and the stored required action allows the operation
func validateActor(t *turnTx, playerID int64, allowed func(models.RequiredAction) bool) (*models.Player, error) {
	if t.state.Status == models.GameStatusCompleted {
		return nil, fmt.Errorf("%w: the game has finished", ErrGameOver)
	}

	idx := t.indexOf(playerID)
	if idx < 0 {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	if len(t.players) < 2 {
		return nil, fmt.Errorf("%w: at least two players are required", ErrGameOver)
	}
	if idx != t.state.CurrentPlayerIndex {
		return nil, fmt.Errorf("%w: it is player %d's turn", ErrNotYourTurn, t.currentPlayer().ID)
	}
	if !allowed(t.state.RequiredAction) {
		return nil, fmt.Errorf("%w: required action is %s", ErrWrongAction, t.state.RequiredAction)
	}

	return t.players[idx], nil
}

func requires(actions ...models.RequiredAction) func(models.RequiredAction) bool {
	return func(current models.RequiredAction) bool {
		for _, a := range actions {
			if a == current {
				return true
			}
		}
		return false
	}
}
