package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boardloop/turn-engine/internal/game/models"
	"github.com/boardloop/turn-engine/internal/game/store"
)

// AddPlayer joins a new player with the starting balance on GO
func (gm *GameManager) AddPlayer(ctx context.Context, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}

	var player *models.Player
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		if t.state.Status == models.GameStatusCompleted {
			return fmt.Errorf("%w: cannot join a finished game", ErrGameOver)
		}
		if len(t.players) >= gm.opts.MaxPlayers {
			return fmt.Errorf("%w: game is full (%d players)", ErrInvalidInput, gm.opts.MaxPlayers)
		}

		player = &models.Player{
			Name:     name,
			Position: 0,
			Cash:     gm.opts.InitialBalance,
			JoinedAt: time.Now(),
		}
		if err := t.tx.CreatePlayer(ctx, player); err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}

		t.emit(models.GameEvent{
			Type:     models.EventPlayerJoined,
			PlayerID: player.ID,
			Amount:   player.Cash,
			Data:     map[string]interface{}{"name": player.Name},
		})
		return nil
	})
	if err != nil {
		gm.logOutcome("join", 0, "", err)
		return nil, err
	}

	gm.logger.Infof("Player %d (%s) joined the game", player.ID, player.Name)
	return player, nil
}

// ListPlayers returns the live players in turn order
func (gm *GameManager) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	var players []*models.Player
	err := gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		players, err = tx.ListPlayers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if players == nil {
		players = []*models.Player{}
	}
	return players, nil
}

// GetPlayer returns a single player
func (gm *GameManager) GetPlayer(ctx context.Context, playerID int64) (*models.Player, error) {
	var player *models.Player
	err := gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		player, err = tx.GetPlayer(ctx, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// State returns the game state along with the id of the player whose turn it is
func (gm *GameManager) State(ctx context.Context) (*StateView, error) {
	var view *StateView
	err := gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := loadTurn(ctx, tx)
		if err != nil {
			return err
		}
		view = &StateView{
			GameState:       t.state,
			CurrentPlayerID: t.currentPlayerID(),
			PlayerCount:     len(t.players),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	return view, nil
}

// ListProperties returns the board's properties ordered by position
func (gm *GameManager) ListProperties(ctx context.Context) ([]*models.Property, error) {
	var props []*models.Property
	err := gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		props, err = tx.ListProperties(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return props, nil
}

// ListCards returns the cards of one deck, or both decks when category is empty
func (gm *GameManager) ListCards(ctx context.Context, category models.CardCategory) ([]*models.Card, error) {
	var cards []*models.Card
	err := gm.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		cards, err = tx.ListCards(ctx, category)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}
