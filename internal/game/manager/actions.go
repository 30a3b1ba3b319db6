package manager

import (
	"context"
	"fmt"

	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/models"
)

// Roll rolls the dice for the current player, moves them and resolves the tile they land on
func (gm *GameManager) Roll(ctx context.Context, playerID int64) (*RollResult, error) {
	var result *RollResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		player, err := validateActor(t, playerID, requires(models.ActionRoll))
		if err != nil {
			return err
		}

		d1, d2 := gm.dice.Roll()
		t.state.LastDice = [2]int{d1, d2}
		res := &RollResult{
			Dice:  [2]int{d1, d2},
			Steps: d1 + d2,
			From:  player.Position,
		}
		t.emit(models.GameEvent{
			Type:     models.EventDiceRolled,
			PlayerID: player.ID,
			Amount:   d1 + d2,
			Data:     map[string]interface{}{"dice": []int{d1, d2}},
		})

		if player.InJail {
			player.InJail = false
			res.ReleasedFromJail = true

			if gm.opts.JailRelease == JailReleaseSkip {
				if !player.HasJailFreeCard {
					if err := t.tx.UpdatePlayer(ctx, player); err != nil {
						return fmt.Errorf("failed to update player %d: %w", player.ID, err)
					}
					if err := t.advance(); err != nil {
						return err
					}
					res.Position = player.Position
					res.Message = "Released from jail, the turn passes"
					res.RequiredAction = t.state.RequiredAction
					res.Player = player
					res.NextPlayerID = t.currentPlayerID()
					res.TurnNumber = t.state.TurnNumber
					result = res
					return nil
				}
				player.HasJailFreeCard = false
				res.UsedJailFreeCard = true
			}
		}

		res.PassedGo = gm.move(t, player, d1+d2)
		if err := t.tx.UpdatePlayer(ctx, player); err != nil {
			return fmt.Errorf("failed to update player %d: %w", player.ID, err)
		}

		tile, err := gm.land(ctx, t, player)
		if err != nil {
			return err
		}

		res.Position = player.Position
		res.Tile = tile
		res.Message = fmt.Sprintf("Rolled %d and %d. %s", d1, d2, tile.Message)
		res.RequiredAction = t.state.RequiredAction
		res.Player = player
		res.TurnNumber = t.state.TurnNumber
		result = res
		return nil
	})
	if err != nil {
		gm.logOutcome("roll", playerID, "", err)
		return nil, err
	}

	gm.logOutcome(fmt.Sprintf("rolled %d", result.Steps), playerID, result.RequiredAction, nil)
	return result, nil
}

// BuyProperty buys the unowned property the current player is standing on and passes the turn
func (gm *GameManager) BuyProperty(ctx context.Context, playerID int64, position int) (*BuyResult, error) {
	var result *BuyResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		player, err := validateActor(t, playerID, requires(models.ActionBuy))
		if err != nil {
			return err
		}
		if player.Position != position {
			return fmt.Errorf("%w: player %d is at position %d, not %d", ErrInvalidInput, player.ID, player.Position, position)
		}

		prop, err := t.tx.PropertyAt(ctx, position)
		if err != nil {
			return fmt.Errorf("failed to load property: %w", err)
		}
		if prop.IsOwned() {
			return fmt.Errorf("%w: %s belongs to player %d", ErrAlreadyOwned, prop.Name, *prop.OwnerID)
		}
		if player.Cash < prop.Price {
			return fmt.Errorf("%w: %s costs $%d, player has $%d", ErrInsufficientFunds, prop.Name, prop.Price, player.Cash)
		}

		player.Cash -= prop.Price
		prop.OwnerID = models.Int64Ptr(player.ID)
		if err := t.tx.UpdatePlayer(ctx, player); err != nil {
			return fmt.Errorf("failed to update player %d: %w", player.ID, err)
		}
		if err := t.tx.UpdateProperty(ctx, prop); err != nil {
			return fmt.Errorf("failed to update property %d: %w", prop.ID, err)
		}

		t.emit(models.GameEvent{
			Type:       models.EventPropertyBought,
			PlayerID:   player.ID,
			Amount:     prop.Price,
			PropertyID: prop.ID,
		})

		if err := t.advance(); err != nil {
			return err
		}

		result = &BuyResult{
			Player:         player,
			Property:       prop,
			NextPlayerID:   t.currentPlayer().ID,
			TurnNumber:     t.state.TurnNumber,
			RequiredAction: t.state.RequiredAction,
		}
		return nil
	})
	if err != nil {
		gm.logOutcome("buy", playerID, "", err)
		return nil, err
	}

	gm.logOutcome("bought "+result.Property.Name, playerID, result.RequiredAction, nil)
	return result, nil
}

// PayRent pays the flat stored rent of the property under the current player to its owner.
// A payer who cannot afford it is eliminated instead.
func (gm *GameManager) PayRent(ctx context.Context, payerID int64, position int) (*RentResult, error) {
	var result *RentResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		payer, err := validateActor(t, payerID, requires(models.ActionPayRent))
		if err != nil {
			return err
		}
		if payer.Position != position {
			return fmt.Errorf("%w: player %d is at position %d, not %d", ErrInvalidInput, payer.ID, payer.Position, position)
		}

		prop, err := t.tx.PropertyAt(ctx, position)
		if err != nil {
			return fmt.Errorf("failed to load property: %w", err)
		}
		if !prop.IsOwned() {
			return fmt.Errorf("%w: %s has no owner", ErrNotFound, prop.Name)
		}
		if prop.OwnedBy(payer.ID) {
			return fmt.Errorf("%w: player %d owns %s", ErrInvalidInput, payer.ID, prop.Name)
		}
		ownerIdx := t.indexOf(*prop.OwnerID)
		if ownerIdx < 0 {
			return fmt.Errorf("owner %d of %s: %w", *prop.OwnerID, prop.Name, ErrNotFound)
		}
		owner := t.players[ownerIdx]

		result = &RentResult{Owner: owner, Property: prop, Amount: prop.Rent}

		if payer.Cash < prop.Rent {
			elim, err := gm.eliminate(ctx, t, payer.ID)
			if err != nil {
				return err
			}
			result.Bankruptcy = bankruptcyFrom(elim)
			result.RequiredAction = t.state.RequiredAction
			result.TurnNumber = t.state.TurnNumber
			return nil
		}

		payer.Cash -= prop.Rent
		owner.Cash += prop.Rent
		if err := t.tx.UpdatePlayer(ctx, payer); err != nil {
			return fmt.Errorf("failed to update player %d: %w", payer.ID, err)
		}
		if err := t.tx.UpdatePlayer(ctx, owner); err != nil {
			return fmt.Errorf("failed to update player %d: %w", owner.ID, err)
		}

		t.emit(models.GameEvent{
			Type:       models.EventRentPaid,
			PlayerID:   payer.ID,
			TargetID:   owner.ID,
			Amount:     prop.Rent,
			PropertyID: prop.ID,
		})

		if err := t.advance(); err != nil {
			return err
		}

		result.Payer = payer
		result.NextPlayerID = t.currentPlayerID()
		result.TurnNumber = t.state.TurnNumber
		result.RequiredAction = t.state.RequiredAction
		return nil
	})
	if err != nil {
		gm.logOutcome("pay rent", payerID, "", err)
		return nil, err
	}

	if result.Bankrupt {
		gm.logger.Infof("Player %d went bankrupt paying $%d rent on %s", payerID, result.Amount, result.Property.Name)
	}
	gm.logOutcome("paid rent", payerID, result.RequiredAction, nil)
	return result, nil
}

// PayTax pays the fixed tax of the tax tile the current player is standing on
func (gm *GameManager) PayTax(ctx context.Context, playerID int64, position int) (*TaxResult, error) {
	var result *TaxResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		player, err := validateActor(t, playerID, requires(models.ActionTax))
		if err != nil {
			return err
		}

		amount, ok := board.TaxAmount(position)
		if !ok {
			return fmt.Errorf("%w: %d is not a tax position", ErrInvalidInput, position)
		}
		if player.Position != position {
			return fmt.Errorf("%w: player %d is at position %d, not %d", ErrInvalidInput, player.ID, player.Position, position)
		}

		result = &TaxResult{Position: position, Amount: amount}

		if player.Cash < amount {
			elim, err := gm.eliminate(ctx, t, player.ID)
			if err != nil {
				return err
			}
			result.Bankruptcy = bankruptcyFrom(elim)
			result.RequiredAction = t.state.RequiredAction
			result.TurnNumber = t.state.TurnNumber
			return nil
		}

		player.Cash -= amount
		if err := t.tx.UpdatePlayer(ctx, player); err != nil {
			return fmt.Errorf("failed to update player %d: %w", player.ID, err)
		}

		t.emit(models.GameEvent{
			Type:     models.EventTaxPaid,
			PlayerID: player.ID,
			Amount:   amount,
			Data:     map[string]interface{}{"position": position},
		})

		if err := t.advance(); err != nil {
			return err
		}

		result.Player = player
		result.NextPlayerID = t.currentPlayerID()
		result.TurnNumber = t.state.TurnNumber
		result.RequiredAction = t.state.RequiredAction
		return nil
	})
	if err != nil {
		gm.logOutcome("pay tax", playerID, "", err)
		return nil, err
	}

	gm.logOutcome("paid tax", playerID, result.RequiredAction, nil)
	return result, nil
}

// GoToJail sends the current player to jail. The turn is not advanced.
func (gm *GameManager) GoToJail(ctx context.Context, playerID int64) (*JailResult, error) {
	var result *JailResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		player, err := validateActor(t, playerID, requires(models.ActionGoToJail))
		if err != nil {
			return err
		}

		if err := gm.jail(ctx, t, player); err != nil {
			return err
		}

		result = &JailResult{Player: player, RequiredAction: t.state.RequiredAction}
		return nil
	})
	if err != nil {
		gm.logOutcome("go to jail", playerID, "", err)
		return nil, err
	}

	gm.logOutcome("went to jail", playerID, result.RequiredAction, nil)
	return result, nil
}

// jail moves the player straight to the jail tile without a pass-GO reward
func (gm *GameManager) jail(ctx context.Context, t *turnTx, player *models.Player) error {
	player.Position = board.JailPosition
	player.InJail = true
	if err := t.tx.UpdatePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}

	t.state.RequiredAction = models.ActionNone
	t.emit(models.GameEvent{Type: models.EventSentToJail, PlayerID: player.ID})
	return nil
}

// DrawCard draws a card from the deck matching the pending CHANCE or COMMUNITY_CHEST action and applies it
func (gm *GameManager) DrawCard(ctx context.Context, playerID int64) (*CardResult, error) {
	var result *CardResult
	err := gm.mutate(ctx, func(ctx context.Context, t *turnTx) error {
		player, err := validateActor(t, playerID, models.RequiredAction.IsCardDraw)
		if err != nil {
			return err
		}

		category, _ := models.CardCategoryFor(t.state.RequiredAction)
		cards, err := t.tx.ListCards(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to list %s cards: %w", category, err)
		}
		if len(cards) == 0 {
			return fmt.Errorf("%s cards: %w", category, ErrNotFound)
		}

		card := gm.picker.Pick(cards)
		result = &CardResult{Card: card, Message: card.Text}
		t.emit(models.GameEvent{
			Type:     models.EventCardDrawn,
			PlayerID: player.ID,
			CardID:   card.ID,
			Amount:   cardAmount(card),
			Data:     map[string]interface{}{"category": card.Category, "effect": card.Effect.Kind},
		})

		return gm.applyCard(ctx, t, player, card, result)
	})
	if err != nil {
		gm.logOutcome("draw card", playerID, "", err)
		return nil, err
	}

	gm.logOutcome(fmt.Sprintf("drew card %d", result.Card.ID), playerID, result.RequiredAction, nil)
	return result, nil
}

func (gm *GameManager) applyCard(ctx context.Context, t *turnTx, player *models.Player, card *models.Card, result *CardResult) error {
	switch card.Effect.Kind {
	case models.EffectMoney:
		player.Cash += card.Effect.Amount
		if player.Cash < 0 {
			elim, err := gm.eliminate(ctx, t, player.ID)
			if err != nil {
				return err
			}
			result.Bankruptcy = bankruptcyFrom(elim)
			result.RequiredAction = t.state.RequiredAction
			return nil
		}
		t.state.RequiredAction = models.ActionNone

	case models.EffectMoveTo, models.EffectMoveBy:
		steps := card.Effect.Amount
		if card.Effect.Kind == models.EffectMoveTo {
			steps = board.Normalize(card.Effect.Amount - player.Position)
		}
		result.PassedGo = gm.move(t, player, steps)

		// The new tile may chain into another required action
		tile, err := gm.land(ctx, t, player)
		if err != nil {
			return err
		}
		result.Tile = tile
		result.Message = fmt.Sprintf("%s. %s", card.Text, tile.Message)

	case models.EffectGoToJail:
		if err := gm.jail(ctx, t, player); err != nil {
			return err
		}
		result.Player = player
		result.RequiredAction = t.state.RequiredAction
		return nil

	case models.EffectJailFree:
		player.HasJailFreeCard = true
		t.state.RequiredAction = models.ActionNone

	default:
		return fmt.Errorf("card %d has unknown effect %q", card.ID, card.Effect.Kind)
	}

	if err := t.tx.UpdatePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}
	result.Player = player
	result.RequiredAction = t.state.RequiredAction
	return nil
}

func cardAmount(card *models.Card) int {
	if card.Effect.Kind == models.EffectMoney {
		return card.Effect.Amount
	}
	return 0
}
