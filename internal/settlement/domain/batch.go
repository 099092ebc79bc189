package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"fleetfuel-cloud/internal/money"
)

const (
	BatchStatusPending   = "pending"
	BatchStatusCompleted = "completed"
)

// SettlementBatch is an immutable, dated aggregation of transactions
// destined for one payment run. Totals never change after creation; only
// Status and CompletedAt move, and only pending -> completed.
type SettlementBatch struct {
	ID              string
	OrgID           string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	PeriodKey       string
	TotalCount      int
	TotalGross      money.Amount
	TotalCommission money.Amount
	TotalNet        money.Amount
	Status          string
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// BatchLineItem is the per-garage slice of a batch. BankReference is a
// snapshot taken at creation time so later registry edits do not alter
// historical batches.
type BatchLineItem struct {
	BatchID       string
	GarageID      string
	Count         int
	Gross         money.Amount
	Commission    money.Amount
	Net           money.Amount
	BankReference string
	CreatedAt     time.Time
}

// BuildBatchID derives the batch identity from owner and period key.
func BuildBatchID(orgID string, period Period) string {
	base := orgID + "|" + period.Key()
	hash := sha256.Sum256([]byte(base))
	return "batch-" + hex.EncodeToString(hash[:8])
}

// NewBatch builds a pending batch and its line items from aggregate
// results. Header totals are the exact sum of the line items.
func NewBatch(orgID string, period Period, results map[string]AggregateResult, bankRefs map[string]string, now time.Time) (*SettlementBatch, []BatchLineItem, error) {
	if orgID == "" {
		return nil, nil, ErrEmptyOwnerID
	}
	if period.Start.IsZero() || !period.Start.Before(period.End) {
		return nil, nil, ErrInvalidPeriod
	}
	if len(results) == 0 {
		return nil, nil, ErrNoTransactions
	}

	garageIDs := make([]string, 0, len(results))
	for garageID := range results {
		garageIDs = append(garageIDs, garageID)
	}
	sort.Strings(garageIDs)

	now = now.UTC()
	batch := &SettlementBatch{
		ID:          BuildBatchID(orgID, period),
		OrgID:       orgID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		PeriodKey:   period.Key(),
		Status:      BatchStatusPending,
		CreatedAt:   now,
	}

	items := make([]BatchLineItem, 0, len(garageIDs))
	for _, garageID := range garageIDs {
		agg := results[garageID]
		items = append(items, BatchLineItem{
			BatchID:       batch.ID,
			GarageID:      garageID,
			Count:         agg.Count,
			Gross:         agg.Gross,
			Commission:    agg.Commission,
			Net:           agg.Net,
			BankReference: bankRefs[garageID],
			CreatedAt:     now,
		})
		batch.TotalCount += agg.Count
		batch.TotalGross += agg.Gross
		batch.TotalCommission += agg.Commission
		batch.TotalNet += agg.Net
	}
	return batch, items, nil
}
