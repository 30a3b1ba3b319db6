package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/db/circuit"
	"github.com/boardloop/turn-engine/internal/game/models"
	"github.com/boardloop/turn-engine/internal/game/store"
)

// Store implements store.Store on PostgreSQL. Every unit of work is one SQL transaction
// and the game state row is locked FOR UPDATE when it is read.
type Store struct {
	pool    *pgxpool.Pool
	breaker *circuit.Breaker
	logger  *zap.SugaredLogger
}

// NewStore creates a new Store
func NewStore(pool *pgxpool.Pool, logger *zap.SugaredLogger) *Store {
	return &Store{
		pool:    pool,
		breaker: circuit.NewBreaker(5, 10*time.Second),
		logger:  logger,
	}
}

// Pool returns the underlying connection pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WithTx implements store.Store
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if !s.breaker.AllowRequest() {
		s.logger.Warn("Circuit breaker is open, fast-failing PostgreSQL request")
		return circuit.ErrOpen
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	if err != nil && isInfraError(err) {
		s.breaker.RecordFailure()
	} else {
		s.breaker.RecordSuccess()
	}
	return err
}

// EnsureBoard implements store.Store. Rows that already exist are left untouched.
func (s *Store) EnsureBoard(ctx context.Context, props []*models.Property, cards []*models.Card) error {
	if err := EnsureSchema(ctx, s.pool); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range props {
		batch.Queue(`INSERT INTO properties (id, position, name, grp, type, price, rent)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Position, p.Name, p.Group, string(p.Type), p.Price, p.Rent)
	}
	for _, c := range cards {
		batch.Queue(`INSERT INTO cards (id, category, text, effect_kind, effect_amount)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			c.ID, string(c.Category), c.Text, string(c.Effect.Kind), c.Effect.Amount)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed board: %w", err)
	}
	s.logger.Infof("Ensured %d properties and %d cards", len(props), len(cards))
	return nil
}

// Ping implements store.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.breaker.Execute(func() error {
		return s.pool.Ping(ctx)
	})
}

// Close implements store.Store
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

const playerColumns = `id, name, position, cash, in_jail, has_jail_free_card, joined_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.Position, &p.Cash, &p.InJail, &p.HasJailFreeCard, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.ID != 0 {
		_, err := t.tx.Exec(ctx, `INSERT INTO players (`+playerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			player.ID, player.Name, player.Position, player.Cash, player.InJail, player.HasJailFreeCard, player.JoinedAt)
		return err
	}
	return t.tx.QueryRow(ctx, `INSERT INTO players (name, position, cash, in_jail, has_jail_free_card, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		player.Name, player.Position, player.Cash, player.InJail, player.HasJailFreeCard, player.JoinedAt,
	).Scan(&player.ID)
}

func (t *pgTx) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	p, err := scanPlayer(t.tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("player %d", id))
	}
	return p, nil
}

func (t *pgTx) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Player, error) {
		return scanPlayer(row)
	})
}

func (t *pgTx) UpdatePlayer(ctx context.Context, player *models.Player) error {
	tag, err := t.tx.Exec(ctx, `UPDATE players
		SET name = $2, position = $3, cash = $4, in_jail = $5, has_jail_free_card = $6
		WHERE id = $1`,
		player.ID, player.Name, player.Position, player.Cash, player.InJail, player.HasJailFreeCard)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player %d: %w", player.ID, store.ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeletePlayer(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteAllPlayers(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM players`)
	return err
}

const propertyColumns = `id, position, name, grp, type, price, rent, owner_id`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	var typ string
	if err := row.Scan(&p.ID, &p.Position, &p.Name, &p.Group, &typ, &p.Price, &p.Rent, &p.OwnerID); err != nil {
		return nil, err
	}
	p.Type = models.PropertyType(typ)
	return &p, nil
}

func (t *pgTx) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	p, err := scanProperty(t.tx.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("property %d", id))
	}
	return p, nil
}

func (t *pgTx) PropertyAt(ctx context.Context, position int) (*models.Property, error) {
	p, err := scanProperty(t.tx.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE position = $1`, position))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("property at position %d", position))
	}
	return p, nil
}

func (t *pgTx) queryProperties(ctx context.Context, where string, args ...any) ([]*models.Property, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+propertyColumns+` FROM properties `+where+` ORDER BY position`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Property, error) {
		return scanProperty(row)
	})
}

func (t *pgTx) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return t.queryProperties(ctx, "")
}

func (t *pgTx) PropertiesOwnedBy(ctx context.Context, playerID int64) ([]*models.Property, error) {
	return t.queryProperties(ctx, "WHERE owner_id = $1", playerID)
}

func (t *pgTx) UpdateProperty(ctx context.Context, prop *models.Property) error {
	tag, err := t.tx.Exec(ctx, `UPDATE properties SET owner_id = $2 WHERE id = $1`, prop.ID, prop.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("property %d: %w", prop.ID, store.ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListCards(ctx context.Context, category models.CardCategory) ([]*models.Card, error) {
	query := `SELECT id, category, text, effect_kind, effect_amount FROM cards`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, string(category))
	}
	rows, err := t.tx.Query(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Card, error) {
		var c models.Card
		var cat, kind string
		if err := row.Scan(&c.ID, &cat, &c.Text, &kind, &c.Effect.Amount); err != nil {
			return nil, err
		}
		c.Category = models.CardCategory(cat)
		c.Effect.Kind = models.EffectKind(kind)
		return &c, nil
	})
}

func (t *pgTx) selectState(ctx context.Context) (*models.GameState, error) {
	var st models.GameState
	var action, status string
	err := t.tx.QueryRow(ctx, `SELECT id, current_player_index, turn_number, required_action, status,
			winner_id, die_one, die_two, updated_at
		FROM game_state WHERE id = $1 FOR UPDATE`, models.GameStateID,
	).Scan(&st.ID, &st.CurrentPlayerIndex, &st.TurnNumber, &action, &status,
		&st.WinnerID, &st.LastDice[0], &st.LastDice[1], &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.RequiredAction = models.RequiredAction(action)
	st.Status = models.GameStatus(status)
	return &st, nil
}

func (t *pgTx) GetState(ctx context.Context) (*models.GameState, error) {
	st, err := t.selectState(ctx)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}

	initial := models.NewGameState()
	if err := t.upsertState(ctx, initial, "DO NOTHING"); err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}
	// A concurrent first access may have won the insert
	st, err = t.selectState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	return st, nil
}

func (t *pgTx) SaveState(ctx context.Context, state *models.GameState) error {
	state.ID = models.GameStateID
	return t.upsertState(ctx, state, `DO UPDATE SET
		current_player_index = EXCLUDED.current_player_index,
		turn_number = EXCLUDED.turn_number,
		required_action = EXCLUDED.required_action,
		status = EXCLUDED.status,
		winner_id = EXCLUDED.winner_id,
		die_one = EXCLUDED.die_one,
		die_two = EXCLUDED.die_two,
		updated_at = EXCLUDED.updated_at`)
}

func (t *pgTx) upsertState(ctx context.Context, st *models.GameState, onConflict string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO game_state
			(id, current_player_index, turn_number, required_action, status, winner_id, die_one, die_two, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) `+onConflict,
		st.ID, st.CurrentPlayerIndex, st.TurnNumber, string(st.RequiredAction), string(st.Status),
		st.WinnerID, st.LastDice[0], st.LastDice[1], st.UpdatedAt)
	return err
}
