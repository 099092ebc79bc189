package settlement

import "errors"

var (
	// ErrEmptyOwnerID is returned when the owner organization id is empty.
	ErrEmptyOwnerID = errors.New("settlement: empty owner id")
	// ErrEmptyGarageID is returned when a payee garage id is empty.
	ErrEmptyGarageID = errors.New("settlement: empty garage id")
	// ErrInvalidPeriod is returned when a period window is malformed.
	ErrInvalidPeriod = errors.New("settlement: invalid period")
	// ErrInvalidAmount is returned when a transaction amount is not positive.
	ErrInvalidAmount = errors.New("settlement: invalid amount")
	// ErrNoTransactions is returned when nothing is unsettled in the period.
	ErrNoTransactions = errors.New("settlement: no unsettled transactions in period")
	// ErrBatchExists is returned when a batch already exists for owner and period.
	ErrBatchExists = errors.New("settlement: batch already exists for owner and period")
	// ErrConcurrentClaim is returned when a transaction was bound by a
	// competing batch attempt; the enclosing creation must roll back.
	ErrConcurrentClaim = errors.New("settlement: transaction claimed by concurrent batch")
	// ErrBatchNotFound is returned when a batch id does not exist for the owner.
	ErrBatchNotFound = errors.New("settlement: batch not found")
	// ErrNilBatch is returned when persisting a nil batch.
	ErrNilBatch = errors.New("settlement: nil batch")
	// ErrInvalidStatus is returned for an unknown batch status filter.
	ErrInvalidStatus = errors.New("settlement: invalid batch status")
)
