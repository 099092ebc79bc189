package settlement

import (
	"errors"
	"testing"
	"time"

	"fleetfuel-cloud/internal/money"
)

func day(t *testing.T) Period {
	t.Helper()
	period, err := DayPeriod(time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day period: %v", err)
	}
	return period
}

func TestNewBatchTotalsMatchLineItems(t *testing.T) {
	period := day(t)
	results := map[string]AggregateResult{
		"garage-p1": {Count: 2, Gross: 15000, Commission: 750, Net: 14250},
		"garage-p2": {Count: 1, Gross: 20000, Commission: 2000, Net: 18000},
	}
	refs := map[string]string{"garage-p1": "IBAN-P1", "garage-p2": "IBAN-P2"}

	batch, items, err := NewBatch("org-a", period, results, refs, time.Now())
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}
	if batch.Status != BatchStatusPending {
		t.Fatalf("expected pending, got %s", batch.Status)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(items))
	}
	// items come back sorted by garage id
	if items[0].GarageID != "garage-p1" || items[1].GarageID != "garage-p2" {
		t.Fatalf("unexpected item order: %s, %s", items[0].GarageID, items[1].GarageID)
	}
	if items[0].BankReference != "IBAN-P1" {
		t.Fatalf("bank reference not snapshotted: %s", items[0].BankReference)
	}

	var gross, commission, net money.Amount
	var count int
	for _, item := range items {
		count += item.Count
		gross += item.Gross
		commission += item.Commission
		net += item.Net
	}
	if batch.TotalCount != count || batch.TotalGross != gross || batch.TotalCommission != commission || batch.TotalNet != net {
		t.Fatalf("header totals diverge from line items")
	}
	if batch.TotalGross != 35000 || batch.TotalCommission != 2750 || batch.TotalNet != 32250 {
		t.Fatalf("totals mismatch: gross=%d commission=%d net=%d", batch.TotalGross, batch.TotalCommission, batch.TotalNet)
	}
}

func TestNewBatchEmptyAggregate(t *testing.T) {
	_, _, err := NewBatch("org-a", day(t), nil, nil, time.Now())
	if !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}
}

func TestBuildBatchIDDeterministic(t *testing.T) {
	period := day(t)
	first := BuildBatchID("org-a", period)
	second := BuildBatchID("org-a", period)
	if first != second {
		t.Fatalf("id not deterministic: %s vs %s", first, second)
	}
	if BuildBatchID("org-b", period) == first {
		t.Fatalf("different owners must get different ids")
	}
}

func TestAggregateExcludesSettledAndOutOfWindow(t *testing.T) {
	period := day(t)
	inWindow := period.Start.Add(6 * time.Hour)

	tx1, err := NewTransaction("tx-1", "org-a", "garage-p1", 10000, 500, inWindow)
	if err != nil {
		t.Fatalf("tx1: %v", err)
	}
	tx2, err := NewTransaction("tx-2", "org-a", "garage-p1", 5000, 500, inWindow)
	if err != nil {
		t.Fatalf("tx2: %v", err)
	}
	tx2.BatchID = "batch-elsewhere"
	tx3, err := NewTransaction("tx-3", "org-a", "garage-p1", 7000, 500, period.End)
	if err != nil {
		t.Fatalf("tx3: %v", err)
	}
	tx4, err := NewTransaction("tx-4", "org-b", "garage-p1", 9000, 500, inWindow)
	if err != nil {
		t.Fatalf("tx4: %v", err)
	}

	results := Aggregate([]*Transaction{tx1, tx2, tx3, tx4}, "org-a", period)
	agg, ok := results["garage-p1"]
	if !ok {
		t.Fatalf("missing garage aggregate")
	}
	if agg.Count != 1 || agg.Gross != 10000 {
		t.Fatalf("aggregate included excluded rows: %+v", agg)
	}
}

func TestPeriodKey(t *testing.T) {
	single := day(t)
	if single.Key() != "20260305" {
		t.Fatalf("day key = %s", single.Key())
	}
	multi, err := NewPeriod(
		time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	if multi.Key() != "20260301_20260308" {
		t.Fatalf("window key = %s", multi.Key())
	}
	if _, err := NewPeriod(multi.End, multi.Start); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}

	// off-boundary windows keep their time component and stay distinct
	sixToSix, err := NewPeriod(
		time.Date(2026, time.April, 10, 6, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 11, 6, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	nineToNine, err := NewPeriod(
		time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 11, 9, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	if sixToSix.Key() == nineToNine.Key() {
		t.Fatalf("distinct windows collide on key %s", sixToSix.Key())
	}
	if sixToSix.Key() != "20260410T060000_20260411T060000" {
		t.Fatalf("off-boundary key = %s", sixToSix.Key())
	}
}
