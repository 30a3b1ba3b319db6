package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/boardloop/turn-engine/internal/game/models"
)

type snapshot struct {
	players      map[int64]*models.Player
	properties   map[int64]*models.Property
	cards        map[int64]*models.Card
	state        *models.GameState
	nextPlayerID int64
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		players:      make(map[int64]*models.Player, len(s.players)),
		properties:   make(map[int64]*models.Property, len(s.properties)),
		cards:        s.cards, // cards are immutable once seeded
		nextPlayerID: s.nextPlayerID,
	}
	for id, p := range s.players {
		cp := *p
		c.players[id] = &cp
	}
	for id, p := range s.properties {
		c.properties[id] = copyProperty(p)
	}
	if s.state != nil {
		st := *s.state
		c.state = &st
	}
	return c
}

func copyProperty(p *models.Property) *models.Property {
	cp := *p
	if p.OwnerID != nil {
		cp.OwnerID = models.Int64Ptr(*p.OwnerID)
	}
	return &cp
}

// MemoryStore keeps the game in process memory.
// A unit of work operates on a private copy that replaces the live data only on success.
type MemoryStore struct {
	mu   sync.Mutex
	data *snapshot
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &snapshot{
			players:      make(map[int64]*models.Player),
			properties:   make(map[int64]*models.Property),
			cards:        make(map[int64]*models.Card),
			nextPlayerID: 1,
		},
	}
}

// WithTx implements Store
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	if err := fn(ctx, &memoryTx{data: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// EnsureBoard implements Store
func (s *MemoryStore) EnsureBoard(ctx context.Context, props []*models.Property, cards []*models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.properties) == 0 {
		for _, p := range props {
			s.data.properties[p.ID] = copyProperty(p)
		}
	}
	if len(s.data.cards) == 0 {
		cardMap := make(map[int64]*models.Card, len(cards))
		for _, c := range cards {
			cp := *c
			cardMap[c.ID] = &cp
		}
		s.data.cards = cardMap
	}
	return nil
}

// Ping implements Store
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Store
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

type memoryTx struct {
	data *snapshot
}

func (tx *memoryTx) CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.ID == 0 {
		player.ID = tx.data.nextPlayerID
	}
	if _, exists := tx.data.players[player.ID]; exists {
		return fmt.Errorf("player %d already exists", player.ID)
	}
	if player.ID >= tx.data.nextPlayerID {
		tx.data.nextPlayerID = player.ID + 1
	}
	cp := *player
	tx.data.players[player.ID] = &cp
	return nil
}

func (tx *memoryTx) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	p, ok := tx.data.players[id]
	if !ok {
		return nil, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (tx *memoryTx) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	players := make([]*models.Player, 0, len(tx.data.players))
	for _, p := range tx.data.players {
		cp := *p
		players = append(players, &cp)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func (tx *memoryTx) UpdatePlayer(ctx context.Context, player *models.Player) error {
	if _, ok := tx.data.players[player.ID]; !ok {
		return fmt.Errorf("player %d: %w", player.ID, ErrNotFound)
	}
	cp := *player
	tx.data.players[player.ID] = &cp
	return nil
}

func (tx *memoryTx) DeletePlayer(ctx context.Context, id int64) error {
	if _, ok := tx.data.players[id]; !ok {
		return fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	delete(tx.data.players, id)
	return nil
}

func (tx *memoryTx) DeleteAllPlayers(ctx context.Context) error {
	tx.data.players = make(map[int64]*models.Player)
	return nil
}

func (tx *memoryTx) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	p, ok := tx.data.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	return copyProperty(p), nil
}

func (tx *memoryTx) PropertyAt(ctx context.Context, position int) (*models.Property, error) {
	for _, p := range tx.data.properties {
		if p.Position == position {
			return copyProperty(p), nil
		}
	}
	return nil, fmt.Errorf("property at position %d: %w", position, ErrNotFound)
}

func (tx *memoryTx) ListProperties(ctx context.Context) ([]*models.Property, error) {
	props := make([]*models.Property, 0, len(tx.data.properties))
	for _, p := range tx.data.properties {
		props = append(props, copyProperty(p))
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Position < props[j].Position })
	return props, nil
}

func (tx *memoryTx) PropertiesOwnedBy(ctx context.Context, playerID int64) ([]*models.Property, error) {
	var props []*models.Property
	for _, p := range tx.data.properties {
		if p.OwnedBy(playerID) {
			props = append(props, copyProperty(p))
		}
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Position < props[j].Position })
	return props, nil
}

func (tx *memoryTx) UpdateProperty(ctx context.Context, prop *models.Property) error {
	if _, ok := tx.data.properties[prop.ID]; !ok {
		return fmt.Errorf("property %d: %w", prop.ID, ErrNotFound)
	}
	tx.data.properties[prop.ID] = copyProperty(prop)
	return nil
}

func (tx *memoryTx) ListCards(ctx context.Context, category models.CardCategory) ([]*models.Card, error) {
	var cards []*models.Card
	for _, c := range tx.data.cards {
		if category == "" || c.Category == category {
			cp := *c
			cards = append(cards, &cp)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (tx *memoryTx) GetState(ctx context.Context) (*models.GameState, error) {
	if tx.data.state == nil {
		tx.data.state = models.NewGameState()
	}
	st := *tx.data.state
	return &st, nil
}

func (tx *memoryTx) SaveState(ctx context.Context, state *models.GameState) error {
	st := *state
	st.ID = models.GameStateID
	tx.data.state = &st
	return nil
}
