package settlement

import "fleetfuel-cloud/internal/money"

// AggregateResult holds per-garage sums over unsettled transactions.
type AggregateResult struct {
	Count      int
	Gross      money.Amount
	Commission money.Amount
	Net        money.Amount
}

// Aggregate folds transactions into per-garage results for the owner and
// period. Settled transactions and rows outside the window are excluded.
// Batch creation folds the one unsettled snapshot through this, so the
// totals and the bound id set always come from the same rows.
func Aggregate(transactions []*Transaction, orgID string, period Period) map[string]AggregateResult {
	results := make(map[string]AggregateResult)
	for _, tx := range transactions {
		if tx == nil || tx.Settled() || tx.OrgID != orgID {
			continue
		}
		if !period.Contains(tx.OccurredAt) {
			continue
		}
		agg := results[tx.GarageID]
		agg.Count++
		agg.Gross += tx.Gross
		agg.Commission += tx.Commission
		agg.Net += tx.Net
		results[tx.GarageID] = agg
	}
	return results
}
