package application

import (
	"context"
	"errors"
	"log"
	"time"

	"fleetfuel-cloud/internal/observability/metrics"
	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// Scheduler triggers daily batch creation for configured owners.
type Scheduler struct {
	service *BatchService
	owners  []string
	dailyAt string
	logger  *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(service *BatchService, owners []string, dailyAt string, logger *log.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		owners:  owners,
		dailyAt: dailyAt,
		logger:  logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.service == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// runOnce settles yesterday's transactions for every configured owner.
// A period with nothing to settle, or one already batched, is a benign skip.
func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	period, err := settlement.DayPeriod(now.AddDate(0, 0, -1))
	if err != nil {
		return
	}
	for _, orgID := range s.owners {
		if orgID == "" {
			continue
		}
		_, _, err := s.service.CreateBatch(ctx, orgID, period)
		switch {
		case err == nil:
			metrics.IncScheduleRun("created")
		case errors.Is(err, settlement.ErrNoTransactions):
			metrics.IncScheduleRun("empty")
			if s.logger != nil {
				s.logger.Printf("schedule skip, nothing to settle: org=%s period=%s", orgID, period.Key())
			}
		case errors.Is(err, settlement.ErrBatchExists):
			metrics.IncScheduleRun("exists")
			if s.logger != nil {
				s.logger.Printf("schedule skip, batch exists: org=%s period=%s", orgID, period.Key())
			}
		default:
			metrics.IncScheduleRun("error")
			if s.logger != nil {
				s.logger.Printf("schedule error: org=%s period=%s err=%v", orgID, period.Key(), err)
			}
		}
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
