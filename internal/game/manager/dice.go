package manager

import (
	"context"
	"math/rand"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// Dice produces a pair of die values in 1..6
type Dice interface {
	Roll() (int, int)
}

// CardPicker selects one card from a non-empty deck
type CardPicker interface {
	Pick(cards []*models.Card) *models.Card
}

type randomDice struct{}

func (randomDice) Roll() (int, int) {
	return rand.Intn(6) + 1, rand.Intn(6) + 1
}

// Cards are drawn with replacement, there is no deck state.
type randomPicker struct{}

func (randomPicker) Pick(cards []*models.Card) *models.Card {
	return cards[rand.Intn(len(cards))]
}

// Locker serializes mutating operations on the game
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// localLocker is a process-local lock that honours context cancellation
type localLocker struct {
	sem chan struct{}
}

func newLocalLocker() *localLocker {
	return &localLocker{sem: make(chan struct{}, 1)}
}

func (l *localLocker) Acquire(ctx context.Context, key string) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
