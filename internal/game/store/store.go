// Package store defines the persistence contract the game manager runs against.
package store

import (
	"context"
	"errors"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// ErrNotFound is returned when a player, property, card or state record does not exist
var ErrNotFound = errors.New("not found")

// Store is a game entity store. All reads and writes go through a Tx.
type Store interface {
	// WithTx runs fn in a unit of work. If fn returns an error nothing it wrote is persisted.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// EnsureBoard inserts the static properties and cards if they are not present yet
	EnsureBoard(ctx context.Context, props []*models.Property, cards []*models.Card) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is the set of operations available inside a unit of work
type Tx interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id int64) (*models.Player, error)
	// ListPlayers returns live players ordered by id ascending
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, player *models.Player) error
	DeletePlayer(ctx context.Context, id int64) error
	DeleteAllPlayers(ctx context.Context) error

	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	// PropertyAt returns ErrNotFound when the position holds no property
	PropertyAt(ctx context.Context, position int) (*models.Property, error)
	// ListProperties returns all properties ordered by position
	ListProperties(ctx context.Context) ([]*models.Property, error)
	PropertiesOwnedBy(ctx context.Context, playerID int64) ([]*models.Property, error)
	UpdateProperty(ctx context.Context, prop *models.Property) error

	// ListCards returns the cards of a category, or every card when category is empty
	ListCards(ctx context.Context, category models.CardCategory) ([]*models.Card, error)

	// GetState returns the singleton, creating it with the initial value on first access
	GetState(ctx context.Context) (*models.GameState, error)
	SaveState(ctx context.Context, state *models.GameState) error
}
