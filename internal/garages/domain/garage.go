package garages

import (
	"context"
	"errors"
	"time"
)

// ErrGarageNotFound is returned when a payee garage is unknown.
var ErrGarageNotFound = errors.New("garages: not found")

// Garage is a payee merchant receiving net settlement funds. The registry
// is maintained by the surrounding application; this core only reads it.
type Garage struct {
	ID            string
	Name          string
	BankReference string
	CreatedAt     time.Time
}

// Registry reads garage records.
type Registry interface {
	Get(ctx context.Context, id string) (*Garage, error)
	// BankReferences resolves the settlement reference for each id.
	// Every requested id must resolve; a missing garage is an error.
	BankReferences(ctx context.Context, ids []string) (map[string]string, error)
}
