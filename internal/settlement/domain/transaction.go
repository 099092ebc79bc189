package settlement

import (
	"time"

	"fleetfuel-cloud/internal/money"
)

// Transaction is a single fuel purchase recorded by the authorization flow.
// BatchID is empty until the settlement binder stamps it; once set it is
// never cleared or reassigned.
type Transaction struct {
	ID             string
	OrgID          string
	GarageID       string
	Gross          money.Amount
	CommissionRate money.Rate
	Commission     money.Amount
	Net            money.Amount
	OccurredAt     time.Time
	BatchID        string
	CreatedAt      time.Time
}

// NewTransaction validates inputs and derives commission and net amounts.
func NewTransaction(id, orgID, garageID string, gross money.Amount, rate money.Rate, occurredAt time.Time) (*Transaction, error) {
	if orgID == "" {
		return nil, ErrEmptyOwnerID
	}
	if garageID == "" {
		return nil, ErrEmptyGarageID
	}
	if id == "" || gross <= 0 || rate < 0 || occurredAt.IsZero() {
		return nil, ErrInvalidAmount
	}
	commission := money.Commission(gross, rate)
	return &Transaction{
		ID:             id,
		OrgID:          orgID,
		GarageID:       garageID,
		Gross:          gross,
		CommissionRate: rate,
		Commission:     commission,
		Net:            gross - commission,
		OccurredAt:     occurredAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Settled reports whether the transaction has been bound to a batch.
func (t *Transaction) Settled() bool { return t != nil && t.BatchID != "" }
