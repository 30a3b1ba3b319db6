package manager

import (
	"context"
	"fmt"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// ResetGame removes every player, releases all properties and restores the initial game state
func (gm *GameManager) ResetGame(ctx context.Context) error {
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		props, err := t.tx.ListProperties(ctx)
		if err != nil {
			return fmt.Errorf("failed to list properties: %w", err)
		}
		for _, prop := range props {
			if !prop.IsOwned() {
				continue
			}
			prop.OwnerID = nil
			if err := t.tx.UpdateProperty(ctx, prop); err != nil {
				return fmt.Errorf("failed to release property %d: %w", prop.ID, err)
			}
		}

		if err := t.tx.DeleteAllPlayers(ctx); err != nil {
			return fmt.Errorf("failed to delete players: %w", err)
		}

		removed := len(t.players)
		t.players = nil
		t.state = models.NewGameState()
		t.emit(models.GameEvent{
			Type: models.EventGameReset,
			Data: map[string]interface{}{"removedPlayers": removed},
		})
		return nil
	})
	if err != nil {
		gm.logger.Errorf("Failed to reset game: %v", err)
		return err
	}

	gm.logger.Info("Game reset to initial state")
	return nil
}
