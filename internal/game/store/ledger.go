package store

import (
	"context"
	"sort"
	"sync"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// Ledger records money movements derived from game events
type Ledger interface {
	// RecordTransaction stores an entry; recording an id twice keeps the first entry
	RecordTransaction(ctx context.Context, txn *models.Transaction) error
	// ListTransactions returns entries newest first, at most limit when limit > 0
	ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// MemoryLedger keeps the ledger in process memory
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*models.Transaction
	seen    map[string]bool
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]bool)}
}

// RecordTransaction implements Ledger
func (l *MemoryLedger) RecordTransaction(ctx context.Context, txn *models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[txn.ID] {
		return nil
	}
	l.seen[txn.ID] = true
	cp := *txn
	l.entries = append(l.entries, &cp)
	return nil
}

// ListTransactions implements Ledger
func (l *MemoryLedger) ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		cp := *l.entries[i]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
