package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// TransactionStore persists the money ledger in the transactions collection
type TransactionStore struct {
	transactions *mongo.Collection
}

// NewTransactionStore creates a new TransactionStore
func NewTransactionStore(db *mongo.Database) *TransactionStore {
	return &TransactionStore{
		transactions: db.Collection(TransactionsCollection),
	}
}

// RecordTransaction inserts a ledger entry. Re-recording the same id is a no-op.
func (s *TransactionStore) RecordTransaction(ctx context.Context, txn *models.Transaction) error {
	_, err := s.transactions.InsertOne(ctx, txn)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record transaction %s: %w", txn.ID, err)
	}
	return nil
}

// ListTransactions returns the newest ledger entries first
func (s *TransactionStore) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.transactions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txns := []*models.Transaction{}
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txns, nil
}
