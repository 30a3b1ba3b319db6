package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/models"
)

// advance passes the turn to the next live player.
// Eliminated players are removed from the list, so the next index is always live.
func (t *turnTx) advance() error {
	if len(t.players) <= 1 {
		return fmt.Errorf("%w: %d live players", ErrGameOver, len(t.players))
	}

	t.state.CurrentPlayerIndex = (t.state.CurrentPlayerIndex + 1) % len(t.players)
	t.state.TurnNumber++
	t.state.RequiredAction = models.ActionRoll

	t.emit(models.GameEvent{
		Type:     models.EventTurnAdvanced,
		PlayerID: t.currentPlayer().ID,
	})
	return nil
}

func (t *turnTx) currentPlayerID() *int64 {
	if p := t.currentPlayer(); p != nil {
		return models.Int64Ptr(p.ID)
	}
	return nil
}

// move walks the player forward (or back, for negative steps) and credits
// the pass-GO reward when a forward move wraps
func (gm *GameManager) move(t *turnTx, player *models.Player, steps int) bool {
	to, passedGo := board.Advance(player.Position, steps)
	player.Position = to

	if passedGo {
		player.Cash += gm.opts.PassGoReward
		t.emit(models.GameEvent{
			Type:     models.EventPassedGo,
			PlayerID: player.ID,
			Amount:   gm.opts.PassGoReward,
		})
	}
	return passedGo
}

// land resolves the tile under the player and stores the resulting required action
func (gm *GameManager) land(ctx context.Context, t *turnTx, player *models.Player) (*board.Resolution, error) {
	prop, err := t.tx.PropertyAt(ctx, player.Position)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up tile %d: %w", player.Position, err)
	}

	res := board.Resolve(player.Position, prop, player.ID)
	t.state.RequiredAction = res.RequiredAction
	return &res, nil
}

// NextTurn advances the turn on behalf of playerID. Any live player may advance
// once the current turn has resolved to NONE. Declining a purchase while BUY is
// pending is reserved to the current player.
func (gm *GameManager) NextTurn(ctx context.Context, playerID int64) (*TurnResult, error) {
	var result *TurnResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		if t.state.Status == models.GameStatusCompleted {
			return fmt.Errorf("%w: the game has finished", ErrGameOver)
		}
		if len(t.players) == 0 {
			return fmt.Errorf("%w: no players", ErrGameOver)
		}
		idx := t.indexOf(playerID)
		if idx < 0 {
			return fmt.Errorf("player %d: %w", playerID, ErrNotFound)
		}
		if !requires(models.ActionNone, models.ActionBuy)(t.state.RequiredAction) {
			return fmt.Errorf("%w: required action is %s", ErrWrongAction, t.state.RequiredAction)
		}
		if t.state.RequiredAction == models.ActionBuy && idx != t.state.CurrentPlayerIndex {
			return fmt.Errorf("%w: only player %d can decline the purchase", ErrNotYourTurn, t.currentPlayer().ID)
		}

		if err := t.advance(); err != nil {
			return err
		}

		result = &TurnResult{
			CurrentPlayerID:    t.currentPlayer().ID,
			CurrentPlayerIndex: t.state.CurrentPlayerIndex,
			TurnNumber:         t.state.TurnNumber,
			RequiredAction:     t.state.RequiredAction,
		}
		return nil
	})
	if err != nil {
		gm.logOutcome("next turn", playerID, "", err)
		return nil, err
	}

	gm.logger.Infof("Turn %d: player %d to roll", result.TurnNumber, result.CurrentPlayerID)
	return result, nil
}
