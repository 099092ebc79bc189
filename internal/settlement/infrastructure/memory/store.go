package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// Store is an in-memory settlement store for tests and local runs. It
// implements both TransactionRepository and BatchRepository with the same
// uniqueness and conditional-bind semantics as the Postgres layer.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*settlement.Transaction
	batches      map[string]*settlement.SettlementBatch
	items        map[string][]settlement.BatchLineItem
	ownerPeriods map[string]string // orgID|periodKey -> batch id
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*settlement.Transaction),
		batches:      make(map[string]*settlement.SettlementBatch),
		items:        make(map[string][]settlement.BatchLineItem),
		ownerPeriods: make(map[string]string),
	}
}

// Insert records a transaction.
func (s *Store) Insert(ctx context.Context, tx *settlement.Transaction) error {
	_ = ctx
	if tx == nil {
		return settlement.ErrInvalidAmount
	}
	copy := *tx
	s.mu.Lock()
	s.transactions[tx.ID] = &copy
	s.mu.Unlock()
	return nil
}

// ListUnsettled returns the owner's unsettled transactions within the
// period. Callers derive totals and the bound id set from this one read.
func (s *Store) ListUnsettled(ctx context.Context, orgID string, period settlement.Period) ([]*settlement.Transaction, error) {
	_ = ctx
	if orgID == "" {
		return nil, settlement.ErrEmptyOwnerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*settlement.Transaction
	for _, tx := range s.transactions {
		if tx.Settled() || tx.OrgID != orgID || !period.Contains(tx.OccurredAt) {
			continue
		}
		copy := *tx
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// ListByBatch returns the transactions bound to a batch.
func (s *Store) ListByBatch(ctx context.Context, batchID string) ([]*settlement.Transaction, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*settlement.Transaction
	for _, tx := range s.transactions {
		if tx.BatchID == batchID {
			copy := *tx
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// CreateWithItems persists the batch and stamps transactions atomically
// under the store lock. Nothing is written on any failure.
func (s *Store) CreateWithItems(ctx context.Context, batch *settlement.SettlementBatch, items []settlement.BatchLineItem, transactionIDs []string) error {
	_ = ctx
	if batch == nil {
		return settlement.ErrNilBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ownerPeriod := batch.OrgID + "|" + batch.PeriodKey
	if _, exists := s.ownerPeriods[ownerPeriod]; exists {
		return settlement.ErrBatchExists
	}
	if _, exists := s.batches[batch.ID]; exists {
		return settlement.ErrBatchExists
	}
	for _, id := range transactionIDs {
		tx, ok := s.transactions[id]
		if !ok || tx.Settled() {
			return settlement.ErrConcurrentClaim
		}
	}

	stored := *batch
	s.batches[batch.ID] = &stored
	s.items[batch.ID] = append([]settlement.BatchLineItem(nil), items...)
	s.ownerPeriods[ownerPeriod] = batch.ID
	for _, id := range transactionIDs {
		s.transactions[id].BatchID = batch.ID
	}
	return nil
}

// GetByID fetches a batch header.
func (s *Store) GetByID(ctx context.Context, id string) (*settlement.SettlementBatch, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	copy := *batch
	return &copy, nil
}

// ListByOwner returns batches newest first, optionally filtered by status.
func (s *Store) ListByOwner(ctx context.Context, orgID, status string) ([]settlement.SettlementBatch, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []settlement.SettlementBatch
	for _, batch := range s.batches {
		if batch.OrgID != orgID {
			continue
		}
		if status != "" && batch.Status != status {
			continue
		}
		result = append(result, *batch)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ListItems returns line items for a batch ordered by garage id.
func (s *Store) ListItems(ctx context.Context, batchID string) ([]settlement.BatchLineItem, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	items := append([]settlement.BatchLineItem(nil), s.items[batchID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].GarageID < items[j].GarageID })
	return items, nil
}

// MarkCompleted transitions pending -> completed; reports whether a row changed.
func (s *Store) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok || batch.Status != settlement.BatchStatusPending {
		return false, nil
	}
	batch.Status = settlement.BatchStatusCompleted
	batch.CompletedAt = completedAt.UTC()
	return true, nil
}
