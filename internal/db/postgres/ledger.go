package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// TransactionStore persists the money ledger in the transactions table
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// RecordTransaction inserts a ledger entry. Re-recording the same id is a no-op.
func (s *TransactionStore) RecordTransaction(ctx context.Context, txn *models.Transaction) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO transactions
			(id, type, from_player_id, to_player_id, amount, property_id, card_id, turn_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		txn.ID, string(txn.Type), txn.FromPlayerID, txn.ToPlayerID, txn.Amount,
		txn.PropertyID, txn.CardID, txn.TurnNumber, txn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record transaction %s: %w", txn.ID, err)
	}
	return nil
}

// ListTransactions returns the newest ledger entries first
func (s *TransactionStore) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `SELECT id, type, from_player_id, to_player_id, amount, property_id, card_id, turn_number, created_at
		FROM transactions ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Transaction, error) {
		var t models.Transaction
		var typ string
		err := row.Scan(&t.ID, &typ, &t.FromPlayerID, &t.ToPlayerID, &t.Amount,
			&t.PropertyID, &t.CardID, &t.TurnNumber, &t.Timestamp)
		t.Type = models.TransactionType(typ)
		return &t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txns, nil
}
