package manager

import (
	"context"
	"fmt"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// eliminate removes a bankrupt player inside the current unit of work.
// Ownership is released before the player record is deleted.
func (gm *GameManager) eliminate(ctx context.Context, t *turnTx, playerID int64) (*EliminationResult, error) {
	idx := t.indexOf(playerID)
	if idx < 0 {
		return &EliminationResult{PlayerID: playerID, RemainingPlayers: len(t.players)}, nil
	}

	result := &EliminationResult{PlayerID: playerID, Eliminated: true}

	props, err := t.tx.PropertiesOwnedBy(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of player %d: %w", playerID, err)
	}
	for _, prop := range props {
		prop.OwnerID = nil
		if err := t.tx.UpdateProperty(ctx, prop); err != nil {
			return nil, fmt.Errorf("failed to release property %d: %w", prop.ID, err)
		}
		result.ReleasedProperties = append(result.ReleasedProperties, prop.ID)
	}

	if err := t.tx.DeletePlayer(ctx, playerID); err != nil {
		return nil, fmt.Errorf("failed to delete player %d: %w", playerID, err)
	}

	wasCurrent := idx == t.state.CurrentPlayerIndex
	remaining := make([]*models.Player, 0, len(t.players)-1)
	remaining = append(remaining, t.players[:idx]...)
	remaining = append(remaining, t.players[idx+1:]...)
	t.players = remaining

	// Keep the index on the same player, or on the predecessor of the removed
	// current player so the next advance lands on its successor
	switch {
	case len(t.players) == 0:
		t.state.CurrentPlayerIndex = 0
	case idx <= t.state.CurrentPlayerIndex:
		t.state.CurrentPlayerIndex--
		if t.state.CurrentPlayerIndex < 0 {
			t.state.CurrentPlayerIndex = len(t.players) - 1
		}
	}
	if wasCurrent {
		t.state.RequiredAction = models.ActionNone
	} else if err := gm.resolveReleasedRent(ctx, t, props); err != nil {
		return nil, err
	}

	result.RemainingPlayers = len(t.players)
	result.GameOver = len(t.players) == 1

	t.emit(models.GameEvent{
		Type:     models.EventPlayerEliminated,
		PlayerID: playerID,
		Data:     map[string]interface{}{"releasedProperties": result.ReleasedProperties},
	})

	if result.GameOver {
		winner := t.players[0].ID
		result.WinnerID = models.Int64Ptr(winner)
		t.state.Status = models.GameStatusCompleted
		t.state.WinnerID = models.Int64Ptr(winner)
		t.state.RequiredAction = models.ActionNone
		t.emit(models.GameEvent{Type: models.EventGameOver, PlayerID: winner})
	}

	return result, nil
}

// resolveReleasedRent re-resolves the current player's tile when the rent they
// owe was due to the player just removed. The tile is unowned now, so the
// pending PAY_RENT becomes BUY.
func (gm *GameManager) resolveReleasedRent(ctx context.Context, t *turnTx, released []*models.Property) error {
	current := t.currentPlayer()
	if current == nil || t.state.RequiredAction != models.ActionPayRent {
		return nil
	}
	for _, prop := range released {
		if prop.Position == current.Position {
			_, err := gm.land(ctx, t, current)
			return err
		}
	}
	return nil
}

// Eliminate removes a player from the game, releasing their properties.
// Eliminating an unknown player is a no-op.
func (gm *GameManager) Eliminate(ctx context.Context, playerID int64) (*EliminationResult, error) {
	var result *EliminationResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		if t.indexOf(playerID) < 0 {
			result = &EliminationResult{PlayerID: playerID, RemainingPlayers: len(t.players)}
			return nil
		}
		if t.state.Status == models.GameStatusCompleted {
			return fmt.Errorf("%w: the game has finished", ErrGameOver)
		}
		var err error
		result, err = gm.eliminate(ctx, t, playerID)
		return err
	})
	if err != nil {
		gm.logOutcome("elimination", playerID, "", err)
		return nil, err
	}

	if result.Eliminated {
		gm.logger.Infof("Player %d eliminated, %d players remain (game over: %t)", playerID, result.RemainingPlayers, result.GameOver)
	}
	return result, nil
}
