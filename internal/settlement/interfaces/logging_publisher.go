package interfaces

import (
	"context"
	"errors"
	"log"

	"fleetfuel-cloud/internal/settlement/application"
)

// LoggingPublisher logs batch created events.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishBatchCreated logs the event.
func (p *LoggingPublisher) PublishBatchCreated(ctx context.Context, event application.BatchCreated) error {
	_ = ctx
	if p == nil {
		return errors.New("batch publisher: nil publisher")
	}
	p.logger.Printf("batch created event: batch=%s org=%s period=%s net=%s", event.BatchID, event.OrgID, event.PeriodKey, event.TotalNet)
	return nil
}
