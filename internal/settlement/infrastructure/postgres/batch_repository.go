package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fleetfuel-cloud/internal/money"
	settlement "fleetfuel-cloud/internal/settlement/domain"
)

const uniqueViolation = "23505"

// BatchRepository persists settlement batches.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository constructs a repository.
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateWithItems inserts the batch header and line items and stamps the
// source transactions in one database transaction. The unique constraint
// on (org_id, period_key) closes the check-then-insert race; the
// conditional update on batch_id IS NULL closes the aggregate-then-bind
// race. Either failure rolls the whole creation back.
func (r *BatchRepository) CreateWithItems(ctx context.Context, batch *settlement.SettlementBatch, items []settlement.BatchLineItem, transactionIDs []string) error {
	if r == nil || r.db == nil {
		return errors.New("batch repo: nil db")
	}
	if batch == nil {
		return settlement.ErrNilBatch
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO settlement_batches (
	id, org_id, period_start, period_end, period_key,
	total_count, total_gross_cents, total_commission_cents, total_net_cents,
	status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		batch.ID, batch.OrgID, batch.PeriodStart, batch.PeriodEnd, batch.PeriodKey,
		batch.TotalCount, int64(batch.TotalGross), int64(batch.TotalCommission), int64(batch.TotalNet),
		batch.Status, batch.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return settlement.ErrBatchExists
		}
		return err
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
INSERT INTO batch_line_items (
	batch_id, garage_id, tx_count, gross_cents, commission_cents, net_cents,
	bank_reference, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.BatchID, item.GarageID, item.Count, int64(item.Gross), int64(item.Commission), int64(item.Net),
			item.BankReference, item.CreatedAt)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `
UPDATE fuel_transactions
SET batch_id = $1
WHERE id = ANY($2) AND batch_id IS NULL`, batch.ID, transactionIDs)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	bound, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if bound != int64(len(transactionIDs)) {
		_ = tx.Rollback()
		return settlement.ErrConcurrentClaim
	}

	return tx.Commit()
}

// GetByID fetches a batch header.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*settlement.SettlementBatch, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("batch repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, org_id, period_start, period_end, period_key,
	total_count, total_gross_cents, total_commission_cents, total_net_cents,
	status, created_at, completed_at
FROM settlement_batches
WHERE id = $1
LIMIT 1`, id)
	return scanBatch(row)
}

// ListByOwner returns batches newest first, optionally filtered by status.
func (r *BatchRepository) ListByOwner(ctx context.Context, orgID, status string) ([]settlement.SettlementBatch, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("batch repo: nil db")
	}
	query := `
SELECT id, org_id, period_start, period_end, period_key,
	total_count, total_gross_cents, total_commission_cents, total_net_cents,
	status, created_at, completed_at
FROM settlement_batches
WHERE org_id = $1`
	args := []any{orgID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += `
ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.SettlementBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		if batch != nil {
			result = append(result, *batch)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListItems returns line items for a batch ordered by garage id.
func (r *BatchRepository) ListItems(ctx context.Context, batchID string) ([]settlement.BatchLineItem, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("batch repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT batch_id, garage_id, tx_count, gross_cents, commission_cents, net_cents,
	bank_reference, created_at
FROM batch_line_items
WHERE batch_id = $1
ORDER BY garage_id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.BatchLineItem
	for rows.Next() {
		var item settlement.BatchLineItem
		var gross, commission, net int64
		if err := rows.Scan(&item.BatchID, &item.GarageID, &item.Count, &gross, &commission, &net, &item.BankReference, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Gross = money.Amount(gross)
		item.Commission = money.Amount(commission)
		item.Net = money.Amount(net)
		item.CreatedAt = item.CreatedAt.UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkCompleted transitions pending -> completed; reports whether a row changed.
func (r *BatchRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("batch repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE settlement_batches
SET status = $1, completed_at = $2
WHERE id = $3 AND status = $4`,
		settlement.BatchStatusCompleted, completedAt, id, settlement.BatchStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*settlement.SettlementBatch, error) {
	var batch settlement.SettlementBatch
	var gross, commission, net int64
	var completedAt sql.NullTime
	err := row.Scan(
		&batch.ID,
		&batch.OrgID,
		&batch.PeriodStart,
		&batch.PeriodEnd,
		&batch.PeriodKey,
		&batch.TotalCount,
		&gross,
		&commission,
		&net,
		&batch.Status,
		&batch.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	batch.TotalGross = money.Amount(gross)
	batch.TotalCommission = money.Amount(commission)
	batch.TotalNet = money.Amount(net)
	if completedAt.Valid {
		batch.CompletedAt = completedAt.Time.UTC()
	}
	batch.PeriodStart = batch.PeriodStart.UTC()
	batch.PeriodEnd = batch.PeriodEnd.UTC()
	batch.CreatedAt = batch.CreatedAt.UTC()
	return &batch, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

