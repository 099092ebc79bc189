package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fleetfuel-cloud/internal/auth"
)

const timeLayout = time.RFC3339

// TransactionsHandler serves fuel transaction queries.
type TransactionsHandler struct {
	db         *sql.DB
	defaultOrg string
}

// NewTransactionsHandler constructs a TransactionsHandler.
func NewTransactionsHandler(db *sql.DB, defaultOrg string) *TransactionsHandler {
	return &TransactionsHandler{db: db, defaultOrg: defaultOrg}
}

// ServeHTTP handles GET /api/v1/transactions.
func (h *TransactionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	if orgID == "" {
		orgID = h.defaultOrg
	}
	if orgID == "" {
		http.Error(w, "org_id is required", http.StatusBadRequest)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	settled, err := parseSettledQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := queryTransactions(r.Context(), h.db, orgID, settled, from, to)
	if err != nil {
		http.Error(w, "query transactions error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportBatchesCSVHandler serves settlement batch CSV exports.
type ExportBatchesCSVHandler struct {
	db         *sql.DB
	defaultOrg string
}

// NewExportBatchesCSVHandler constructs a ExportBatchesCSVHandler.
func NewExportBatchesCSVHandler(db *sql.DB, defaultOrg string) *ExportBatchesCSVHandler {
	return &ExportBatchesCSVHandler{db: db, defaultOrg: defaultOrg}
}

// ServeHTTP handles GET /api/v1/exports/batches.csv.
func (h *ExportBatchesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	if orgID == "" {
		orgID = h.defaultOrg
	}
	if orgID == "" {
		http.Error(w, "org_id is required", http.StatusBadRequest)
		return
	}

	batchID := r.URL.Query().Get("batch_id")

	rows, err := queryBatches(r.Context(), h.db, orgID, batchID)
	if err != nil {
		http.Error(w, "query batches error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"batch_id",
		"org_id",
		"period_key",
		"status",
		"total_count",
		"total_gross_cents",
		"total_commission_cents",
		"total_net_cents",
		"created_at",
		"completed_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.BatchID,
			row.OrgID,
			row.PeriodKey,
			row.Status,
			formatInt(row.TotalCount),
			formatInt64(row.TotalGrossCents),
			formatInt64(row.TotalCommissionCents),
			formatInt64(row.TotalNetCents),
			formatTime(row.CreatedAt),
			formatTimePtr(row.CompletedAt),
		})
	}
	writer.Flush()
}

type transactionRow struct {
	ID                string    `json:"id"`
	OrgID             string    `json:"org_id"`
	GarageID          string    `json:"garage_id"`
	GrossCents        int64     `json:"gross_cents"`
	CommissionRateBps int64     `json:"commission_rate_bps"`
	CommissionCents   int64     `json:"commission_cents"`
	NetCents          int64     `json:"net_cents"`
	OccurredAt        time.Time `json:"occurred_at"`
	BatchID           string    `json:"batch_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type batchRow struct {
	BatchID              string     `json:"batch_id"`
	OrgID                string     `json:"org_id"`
	PeriodKey            string     `json:"period_key"`
	Status               string     `json:"status"`
	TotalCount           int        `json:"total_count"`
	TotalGrossCents      int64      `json:"total_gross_cents"`
	TotalCommissionCents int64      `json:"total_commission_cents"`
	TotalNetCents        int64      `json:"total_net_cents"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at"`
}

func queryTransactions(ctx context.Context, db *sql.DB, orgID string, settled *bool, from, to time.Time) ([]transactionRow, error) {
	query := `
SELECT
	id,
	org_id,
	garage_id,
	gross_cents,
	commission_rate_bps,
	commission_cents,
	net_cents,
	occurred_at,
	batch_id,
	created_at
FROM fuel_transactions
WHERE org_id = $1
	AND occurred_at >= $2
	AND occurred_at < $3`
	args := []any{orgID, from.UTC(), to.UTC()}
	if settled != nil {
		if *settled {
			query += `
	AND batch_id IS NOT NULL`
		} else {
			query += `
	AND batch_id IS NULL`
		}
	}
	query += `
ORDER BY occurred_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transactionRow
	for rows.Next() {
		var row transactionRow
		var batchID sql.NullString
		if err := rows.Scan(
			&row.ID,
			&row.OrgID,
			&row.GarageID,
			&row.GrossCents,
			&row.CommissionRateBps,
			&row.CommissionCents,
			&row.NetCents,
			&row.OccurredAt,
			&batchID,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.OccurredAt = row.OccurredAt.UTC()
		row.CreatedAt = row.CreatedAt.UTC()
		if batchID.Valid {
			row.BatchID = batchID.String
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryBatches(ctx context.Context, db *sql.DB, orgID, batchID string) ([]batchRow, error) {
	query := `
SELECT
	id,
	org_id,
	period_key,
	status,
	total_count,
	total_gross_cents,
	total_commission_cents,
	total_net_cents,
	created_at,
	completed_at
FROM settlement_batches
WHERE org_id = $1`
	args := []any{orgID}
	if batchID != "" {
		query += `
	AND id = $2`
		args = append(args, batchID)
	}
	query += `
ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []batchRow
	for rows.Next() {
		var row batchRow
		var completedAt sql.NullTime
		if err := rows.Scan(
			&row.BatchID,
			&row.OrgID,
			&row.PeriodKey,
			&row.Status,
			&row.TotalCount,
			&row.TotalGrossCents,
			&row.TotalCommissionCents,
			&row.TotalNetCents,
			&row.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		row.CreatedAt = row.CreatedAt.UTC()
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			row.CompletedAt = &t
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func parseSettledQuery(r *http.Request) (*bool, error) {
	value := r.URL.Query().Get("settled")
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, errors.New("settled must be a boolean")
	}
	return &parsed, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}

func formatInt64(value int64) string {
	return strconv.FormatInt(value, 10)
}
