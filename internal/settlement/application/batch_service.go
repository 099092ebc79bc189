package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	garages "fleetfuel-cloud/internal/garages/domain"
	"fleetfuel-cloud/internal/money"
	"fleetfuel-cloud/internal/observability/metrics"
	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// BatchCreated is emitted after a settlement batch commits.
type BatchCreated struct {
	BatchID    string
	OrgID      string
	PeriodKey  string
	TotalNet   money.Amount
	OccurredAt time.Time
}

// Publisher emits batch lifecycle events.
type Publisher interface {
	PublishBatchCreated(ctx context.Context, event BatchCreated) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// BatchService handles settlement batch workflows.
type BatchService struct {
	transactions settlement.TransactionRepository
	batches      settlement.BatchRepository
	garages      garages.Registry
	publisher    Publisher
	clock        Clock
	logger       *log.Logger
	timeout      time.Duration
}

// Option configures the service.
type Option func(*BatchService)

// WithCreateTimeout bounds each CreateBatch call.
func WithCreateTimeout(timeout time.Duration) Option {
	return func(s *BatchService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPublisher sets the batch event publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *BatchService) {
		s.publisher = publisher
	}
}

// NewBatchService constructs the service.
func NewBatchService(
	transactions settlement.TransactionRepository,
	batches settlement.BatchRepository,
	registry garages.Registry,
	clock Clock,
	logger *log.Logger,
	opts ...Option,
) (*BatchService, error) {
	if transactions == nil {
		return nil, errors.New("batch service: nil transaction repository")
	}
	if batches == nil {
		return nil, errors.New("batch service: nil batch repository")
	}
	if registry == nil {
		return nil, errors.New("batch service: nil garage registry")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &BatchService{
		transactions: transactions,
		batches:      batches,
		garages:      registry,
		clock:        clock,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateBatch aggregates the owner's unsettled transactions over the
// period, persists the batch with its line items and binds the source
// transactions, all of it committing or rolling back together.
func (s *BatchService) CreateBatch(ctx context.Context, orgID string, period settlement.Period) (*settlement.SettlementBatch, []settlement.BatchLineItem, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBatchCreate(result, time.Since(start))
	}()

	if orgID == "" {
		result = metrics.ResultError
		return nil, nil, settlement.ErrEmptyOwnerID
	}
	if period.Start.IsZero() || !period.Start.Before(period.End) {
		result = metrics.ResultError
		return nil, nil, settlement.ErrInvalidPeriod
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// One read backs both the totals and the bound id set, so a row
	// arriving mid-flight can never be stamped without being counted.
	// The conditional bind in CreateWithItems remains the backstop for
	// rows claimed by a competing batch after this read.
	unsettled, err := s.transactions.ListUnsettled(ctx, orgID, period)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	if len(unsettled) == 0 {
		result = metrics.ResultError
		return nil, nil, settlement.ErrNoTransactions
	}

	results := settlement.Aggregate(unsettled, orgID, period)
	ids := make([]string, 0, len(unsettled))
	for _, tx := range unsettled {
		ids = append(ids, tx.ID)
	}

	garageIDs := make([]string, 0, len(results))
	for garageID := range results {
		garageIDs = append(garageIDs, garageID)
	}
	sort.Strings(garageIDs)
	bankRefs, err := s.garages.BankReferences(ctx, garageIDs)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	batch, items, err := settlement.NewBatch(orgID, period, results, bankRefs, s.clock.Now())
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	if err := s.batches.CreateWithItems(ctx, batch, items, ids); err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	s.logger.Printf("batch created: id=%s org=%s period=%s count=%d net=%s",
		batch.ID, orgID, batch.PeriodKey, batch.TotalCount, batch.TotalNet)

	if s.publisher != nil {
		event := BatchCreated{
			BatchID:    batch.ID,
			OrgID:      orgID,
			PeriodKey:  batch.PeriodKey,
			TotalNet:   batch.TotalNet,
			OccurredAt: s.clock.Now(),
		}
		if err := s.publisher.PublishBatchCreated(ctx, event); err != nil {
			s.logger.Printf("batch created event publish failed: id=%s err=%v", batch.ID, err)
		}
	}
	return batch, items, nil
}

// MarkCompleted transitions a batch to completed after payment
// confirmation. Repeating the call is an idempotent no-op.
func (s *BatchService) MarkCompleted(ctx context.Context, orgID, batchID string) (*settlement.SettlementBatch, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBatchComplete(result, time.Since(start))
	}()

	batch, err := s.getOwned(ctx, orgID, batchID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if batch.Status == settlement.BatchStatusCompleted {
		s.logger.Printf("batch complete no-op, already completed: id=%s org=%s", batchID, orgID)
		return batch, nil
	}

	completedAt := s.clock.Now()
	changed, err := s.batches.MarkCompleted(ctx, batchID, completedAt)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !changed {
		// Lost a race with another completion; re-read and report the
		// final state as idempotent success.
		batch, err = s.getOwned(ctx, orgID, batchID)
		if err != nil {
			result = metrics.ResultError
			return nil, err
		}
		if batch.Status != settlement.BatchStatusCompleted {
			result = metrics.ResultError
			return nil, settlement.ErrBatchNotFound
		}
		s.logger.Printf("batch complete no-op, concurrent completion: id=%s org=%s", batchID, orgID)
		return batch, nil
	}

	batch.Status = settlement.BatchStatusCompleted
	batch.CompletedAt = completedAt
	s.logger.Printf("batch completed: id=%s org=%s", batchID, orgID)
	return batch, nil
}

// GetBatch returns a batch with its line items.
func (s *BatchService) GetBatch(ctx context.Context, orgID, batchID string) (*settlement.SettlementBatch, []settlement.BatchLineItem, error) {
	batch, err := s.getOwned(ctx, orgID, batchID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.batches.ListItems(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}

// ListBatches returns the owner's batches newest first, optionally
// filtered by status.
func (s *BatchService) ListBatches(ctx context.Context, orgID, status string) ([]settlement.SettlementBatch, error) {
	if orgID == "" {
		return nil, settlement.ErrEmptyOwnerID
	}
	switch status {
	case "", settlement.BatchStatusPending, settlement.BatchStatusCompleted:
	default:
		return nil, settlement.ErrInvalidStatus
	}
	return s.batches.ListByOwner(ctx, orgID, status)
}

// ListBatchTransactions returns the transactions bound to a batch.
func (s *BatchService) ListBatchTransactions(ctx context.Context, orgID, batchID string) ([]*settlement.Transaction, error) {
	if _, err := s.getOwned(ctx, orgID, batchID); err != nil {
		return nil, err
	}
	return s.transactions.ListByBatch(ctx, batchID)
}

// getOwned loads a batch and hides other owners' batches behind not-found.
func (s *BatchService) getOwned(ctx context.Context, orgID, batchID string) (*settlement.SettlementBatch, error) {
	if orgID == "" {
		return nil, settlement.ErrEmptyOwnerID
	}
	if batchID == "" {
		return nil, settlement.ErrBatchNotFound
	}
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil || batch.OrgID != orgID {
		return nil, settlement.ErrBatchNotFound
	}
	return batch, nil
}
