package settlement

import (
	"context"
	"time"
)

// TransactionRepository reads and seeds fuel transactions.
type TransactionRepository interface {
	// Insert records a transaction from the purchase authorization flow.
	Insert(ctx context.Context, tx *Transaction) error
	// ListUnsettled returns the owner's unsettled transactions within the
	// half-open period. Totals and the bound id set are both derived from
	// this one read so they cannot diverge.
	ListUnsettled(ctx context.Context, orgID string, period Period) ([]*Transaction, error)
	// ListByBatch returns the transactions bound to a batch.
	ListByBatch(ctx context.Context, batchID string) ([]*Transaction, error)
}

// BatchRepository persists settlement batches.
type BatchRepository interface {
	// CreateWithItems inserts the batch header and line items and stamps
	// the source transactions, all inside one storage transaction.
	// A duplicate (owner, period) yields ErrBatchExists; a transaction
	// already claimed elsewhere yields ErrConcurrentClaim and nothing is
	// persisted.
	CreateWithItems(ctx context.Context, batch *SettlementBatch, items []BatchLineItem, transactionIDs []string) error
	GetByID(ctx context.Context, id string) (*SettlementBatch, error)
	// ListByOwner returns batches newest first, optionally filtered by status.
	ListByOwner(ctx context.Context, orgID, status string) ([]SettlementBatch, error)
	ListItems(ctx context.Context, batchID string) ([]BatchLineItem, error)
	// MarkCompleted transitions pending -> completed. It reports whether a
	// row actually changed so callers can distinguish a repeat call.
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error)
}
