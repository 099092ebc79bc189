package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	garages "fleetfuel-cloud/internal/garages/domain"
	garagememory "fleetfuel-cloud/internal/garages/infrastructure/memory"
	"fleetfuel-cloud/internal/money"
	settlement "fleetfuel-cloud/internal/settlement/domain"
	"fleetfuel-cloud/internal/settlement/infrastructure/memory"
)

type fixture struct {
	store    *memory.Store
	registry *garagememory.Registry
	service  *BatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	registry := garagememory.NewRegistry()
	registry.Add(garages.Garage{ID: "garage-p1", Name: "P1 Fuels", BankReference: "IBAN-P1"})
	registry.Add(garages.Garage{ID: "garage-p2", Name: "P2 Fuels", BankReference: "IBAN-P2"})

	service, err := NewBatchService(store, store, registry, SystemClock{}, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("batch service: %v", err)
	}
	return &fixture{store: store, registry: registry, service: service}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func dayD(t *testing.T) settlement.Period {
	t.Helper()
	period, err := settlement.DayPeriod(time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day period: %v", err)
	}
	return period
}

func (f *fixture) seed(t *testing.T, id, orgID, garageID string, gross money.Amount, rate money.Rate, at time.Time) {
	t.Helper()
	tx, err := settlement.NewTransaction(id, orgID, garageID, gross, rate, at)
	if err != nil {
		t.Fatalf("new transaction %s: %v", id, err)
	}
	if err := f.store.Insert(context.Background(), tx); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func (f *fixture) seedScenarioA(t *testing.T, period settlement.Period) {
	t.Helper()
	at := period.Start.Add(9 * time.Hour)
	f.seed(t, "tx-1", "org-o", "garage-p1", 10000, 500, at)
	f.seed(t, "tx-2", "org-o", "garage-p1", 5000, 500, at.Add(time.Hour))
	f.seed(t, "tx-3", "org-o", "garage-p2", 20000, 1000, at.Add(2*time.Hour))
}

func TestCreateBatchScenarioA(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	batch, items, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	if batch.TotalCount != 3 || batch.TotalGross != 35000 || batch.TotalCommission != 2750 || batch.TotalNet != 32250 {
		t.Fatalf("batch totals: %+v", batch)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(items))
	}
	p1 := items[0]
	if p1.GarageID != "garage-p1" || p1.Count != 2 || p1.Gross != 15000 || p1.Commission != 750 || p1.Net != 14250 {
		t.Fatalf("p1 line item: %+v", p1)
	}
	p2 := items[1]
	if p2.GarageID != "garage-p2" || p2.Count != 1 || p2.Gross != 20000 || p2.Commission != 2000 || p2.Net != 18000 {
		t.Fatalf("p2 line item: %+v", p2)
	}
	if p1.BankReference != "IBAN-P1" || p2.BankReference != "IBAN-P2" {
		t.Fatalf("bank references not snapshotted: %q %q", p1.BankReference, p2.BankReference)
	}

	// conservation: header totals equal the exact sum of line items
	var gross, commission, net money.Amount
	for _, item := range items {
		gross += item.Gross
		commission += item.Commission
		net += item.Net
	}
	if gross != batch.TotalGross || commission != batch.TotalCommission || net != batch.TotalNet {
		t.Fatalf("conservation violated")
	}

	// completeness: nothing unsettled remains in the period
	remaining, err := f.store.ListUnsettled(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("list unsettled: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty unsettled set, got %d", len(remaining))
	}
}

func TestCreateBatchScenarioB_NoTransactions(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.CreateBatch(context.Background(), "org-o", dayD(t))
	if !errors.Is(err, settlement.ErrNoTransactions) {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}
	batches, err := f.service.ListBatches(context.Background(), "org-o", "")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("no batch row may exist, got %d", len(batches))
	}
}

func TestCreateBatchScenarioC_Duplicate(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	if _, _, err := f.service.CreateBatch(context.Background(), "org-o", period); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// seed one more so the retry has something to aggregate
	f.seed(t, "tx-late", "org-o", "garage-p1", 4000, 500, period.Start.Add(20*time.Hour))

	_, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if !errors.Is(err, settlement.ErrBatchExists) {
		t.Fatalf("expected ErrBatchExists, got %v", err)
	}
	batches, err := f.service.ListBatches(context.Background(), "org-o", "")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("exactly one batch must exist, got %d", len(batches))
	}
}

func TestCreateBatchScenarioD_BoundExcludedFromOverlap(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	first, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// overlapping wider window; the already-bound rows must not reappear
	wide, err := settlement.NewPeriod(period.Start, period.End.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("wide period: %v", err)
	}
	f.seed(t, "tx-next", "org-o", "garage-p2", 6000, 1000, period.End.Add(3*time.Hour))

	second, items, err := f.service.CreateBatch(context.Background(), "org-o", wide)
	if err != nil {
		t.Fatalf("overlapping create: %v", err)
	}
	if second.TotalCount != 1 || second.TotalGross != 6000 {
		t.Fatalf("overlap re-counted bound transactions: %+v", second)
	}
	if len(items) != 1 || items[0].GarageID != "garage-p2" {
		t.Fatalf("unexpected items: %+v", items)
	}

	// write-once: the original binding is untouched
	bound, err := f.service.ListBatchTransactions(context.Background(), "org-o", first.ID)
	if err != nil {
		t.Fatalf("list bound: %v", err)
	}
	if len(bound) != 3 {
		t.Fatalf("first batch lost transactions: %d", len(bound))
	}
	for _, tx := range bound {
		if tx.BatchID != first.ID {
			t.Fatalf("transaction %s rebound to %s", tx.ID, tx.BatchID)
		}
	}
}

// lateInsertRepo writes one extra row right after the unsettled snapshot
// is taken, mimicking the authorization flow inserting mid-create.
type lateInsertRepo struct {
	*memory.Store
	t    *testing.T
	late *settlement.Transaction
	once sync.Once
}

func (r *lateInsertRepo) ListUnsettled(ctx context.Context, orgID string, period settlement.Period) ([]*settlement.Transaction, error) {
	list, err := r.Store.ListUnsettled(ctx, orgID, period)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		if err := r.Store.Insert(ctx, r.late); err != nil {
			r.t.Errorf("late insert: %v", err)
		}
	})
	return list, nil
}

func TestCreateBatchMidFlightInsertStaysUnsettled(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seed(t, "tx-1", "org-o", "garage-p1", 10000, 500, period.Start.Add(9*time.Hour))

	late, err := settlement.NewTransaction("tx-late", "org-o", "garage-p1", 4000, 500, period.Start.Add(20*time.Hour))
	if err != nil {
		t.Fatalf("late transaction: %v", err)
	}
	repo := &lateInsertRepo{Store: f.store, t: t, late: late}

	service, err := NewBatchService(repo, f.store, f.registry, SystemClock{}, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("batch service: %v", err)
	}

	batch, _, err := service.CreateBatch(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if batch.TotalCount != 1 || batch.TotalGross != 10000 {
		t.Fatalf("batch counted rows outside its snapshot: %+v", batch)
	}

	// bound set matches the header exactly
	bound, err := f.store.ListByBatch(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("list bound: %v", err)
	}
	var boundGross money.Amount
	for _, tx := range bound {
		boundGross += tx.Gross
	}
	if len(bound) != batch.TotalCount || boundGross != batch.TotalGross {
		t.Fatalf("bound transactions diverge from batch totals: count=%d gross=%d", len(bound), boundGross)
	}

	// the mid-flight row is still unsettled and payable by a later run
	remaining, err := f.store.ListUnsettled(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("list unsettled: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "tx-late" {
		t.Fatalf("late transaction must remain unsettled, got %d rows", len(remaining))
	}
}

func TestCreateBatchConcurrentExactlyOneSuccess(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.service.CreateBatch(context.Background(), "org-o", period)
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, settlement.ErrBatchExists), errors.Is(err, settlement.ErrConcurrentClaim), errors.Is(err, settlement.ErrNoTransactions):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if conflicts != attempts-1 {
		t.Fatalf("expected %d deterministic failures, got %d", attempts-1, conflicts)
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	batch, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := f.service.MarkCompleted(context.Background(), "org-o", batch.ID)
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if first.Status != settlement.BatchStatusCompleted || first.CompletedAt.IsZero() {
		t.Fatalf("not completed: %+v", first)
	}

	second, err := f.service.MarkCompleted(context.Background(), "org-o", batch.ID)
	if err != nil {
		t.Fatalf("second complete must be a no-op, got %v", err)
	}
	if !second.CompletedAt.Equal(first.CompletedAt) {
		t.Fatalf("completed-at changed on retry: %v vs %v", second.CompletedAt, first.CompletedAt)
	}
}

func TestMarkCompletedUnknownBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.MarkCompleted(context.Background(), "org-o", "batch-missing")
	if !errors.Is(err, settlement.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestGetBatchHidesOtherOwners(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seedScenarioA(t, period)

	batch, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := f.service.GetBatch(context.Background(), "org-other", batch.ID); !errors.Is(err, settlement.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound for foreign owner, got %v", err)
	}
}

func TestListBatchesNewestFirstAndStatusFilter(t *testing.T) {
	f := newFixture(t)

	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	var firstID string
	for i := 0; i < 3; i++ {
		day := base.AddDate(0, 0, i)
		period, err := settlement.DayPeriod(day)
		if err != nil {
			t.Fatalf("period: %v", err)
		}
		f.seed(t, fmt.Sprintf("tx-%d", i), "org-o", "garage-p1", 10000, 500, day.Add(8*time.Hour))
		batch, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 0 {
			firstID = batch.ID
		}
		// keep creation timestamps strictly ordered in the memory store
		time.Sleep(2 * time.Millisecond)
	}

	if _, err := f.service.MarkCompleted(context.Background(), "org-o", firstID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	all, err := f.service.ListBatches(context.Background(), "org-o", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("not newest first at %d", i)
		}
	}

	pending, err := f.service.ListBatches(context.Background(), "org-o", settlement.BatchStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if _, err := f.service.ListBatches(context.Background(), "org-o", "voided"); !errors.Is(err, settlement.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCreateBatchUnknownGarageFails(t *testing.T) {
	f := newFixture(t)
	period := dayD(t)
	f.seed(t, "tx-x", "org-o", "garage-unknown", 10000, 500, period.Start.Add(time.Hour))

	_, _, err := f.service.CreateBatch(context.Background(), "org-o", period)
	if !errors.Is(err, garages.ErrGarageNotFound) {
		t.Fatalf("expected ErrGarageNotFound, got %v", err)
	}
	batches, err := f.service.ListBatches(context.Background(), "org-o", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("failed create must not persist a batch")
	}
}
