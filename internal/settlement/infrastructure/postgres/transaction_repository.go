package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleetfuel-cloud/internal/money"
	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// TransactionRepository is a Postgres implementation for fuel transactions.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository constructs a repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert records a transaction from the purchase authorization flow.
func (r *TransactionRepository) Insert(ctx context.Context, tx *settlement.Transaction) error {
	if r == nil || r.db == nil {
		return errors.New("transaction repo: nil db")
	}
	if tx == nil {
		return settlement.ErrInvalidAmount
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO fuel_transactions (
	id, org_id, garage_id, gross_cents, commission_rate_bps,
	commission_cents, net_cents, occurred_at, batch_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,$9)`,
		tx.ID, tx.OrgID, tx.GarageID, int64(tx.Gross), int64(tx.CommissionRate),
		int64(tx.Commission), int64(tx.Net), tx.OccurredAt.UTC(), tx.CreatedAt.UTC())
	return err
}

// ListUnsettled returns the owner's unsettled transactions within the
// period. Callers derive totals and the bound id set from this one read.
func (r *TransactionRepository) ListUnsettled(ctx context.Context, orgID string, period settlement.Period) ([]*settlement.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repo: nil db")
	}
	if orgID == "" {
		return nil, settlement.ErrEmptyOwnerID
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, garage_id, gross_cents, commission_rate_bps,
	commission_cents, net_cents, occurred_at, batch_id, created_at
FROM fuel_transactions
WHERE org_id = $1 AND batch_id IS NULL AND occurred_at >= $2 AND occurred_at < $3
ORDER BY occurred_at ASC, id ASC`, orgID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*settlement.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByBatch returns the transactions bound to a batch.
func (r *TransactionRepository) ListByBatch(ctx context.Context, batchID string) ([]*settlement.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, garage_id, gross_cents, commission_rate_bps,
	commission_cents, net_cents, occurred_at, batch_id, created_at
FROM fuel_transactions
WHERE batch_id = $1
ORDER BY occurred_at ASC, id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*settlement.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTransaction(row rowScanner) (*settlement.Transaction, error) {
	var tx settlement.Transaction
	var gross, rate, commission, net int64
	var batchID sql.NullString
	err := row.Scan(
		&tx.ID,
		&tx.OrgID,
		&tx.GarageID,
		&gross,
		&rate,
		&commission,
		&net,
		&tx.OccurredAt,
		&batchID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Gross = money.Amount(gross)
	tx.CommissionRate = money.Rate(rate)
	tx.Commission = money.Amount(commission)
	tx.Net = money.Amount(net)
	if batchID.Valid {
		tx.BatchID = batchID.String
	}
	tx.OccurredAt = tx.OccurredAt.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	return &tx, nil
}
