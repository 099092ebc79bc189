package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fleetfuel-cloud/internal/audit"
	"fleetfuel-cloud/internal/auth"
	"fleetfuel-cloud/internal/observability/metrics"
	batchapp "fleetfuel-cloud/internal/settlement/application"
	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// BatchHandler handles settlement batch APIs.
type BatchHandler struct {
	service     *batchapp.BatchService
	defaultOrg  string
	auditLogger audit.Logger
}

// NewBatchHandler constructs a handler. defaultOrg backs requests that
// carry no authenticated org, such as exempt local runs.
func NewBatchHandler(service *batchapp.BatchService, defaultOrg string, auditLogger audit.Logger) (*BatchHandler, error) {
	if service == nil {
		return nil, errors.New("batch handler: nil service")
	}
	return &BatchHandler{service: service, defaultOrg: defaultOrg, auditLogger: auditLogger}, nil
}

// ServeHTTP handles batch routes under /api/v1/batches.
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/batches/create" && r.Method == http.MethodPost {
		h.handleCreate(w, r)
		return
	}
	if path == "/api/v1/batches" && r.Method == http.MethodGet {
		h.handleList(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/batches/") {
		rest := strings.TrimPrefix(path, "/api/v1/batches/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *BatchHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgID       string `json:"org_id"`
		Date        string `json:"date"`
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	orgID, ok := h.resolveOrg(w, r, req.OrgID)
	if !ok {
		return
	}
	period, err := parsePeriod(req.Date, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch, items, err := h.service.CreateBatch(r.Context(), orgID, period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(batchDetailResponse(batch, items))
	h.logAudit(r, orgID, batch.ID, "batch.create", map[string]any{
		"period_key": batch.PeriodKey,
		"count":      batch.TotalCount,
		"net_cents":  int64(batch.TotalNet),
	})
}

func (h *BatchHandler) handleList(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.resolveOrg(w, r, r.URL.Query().Get("org_id"))
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	batches, err := h.service.ListBatches(r.Context(), orgID, status)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(batches))
	for i := range batches {
		resp = append(resp, batchResponse(&batches[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *BatchHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "complete":
			if r.Method == http.MethodPost {
				h.handleComplete(w, r, id)
				return
			}
		case "transactions":
			if r.Method == http.MethodGet {
				h.handleTransactions(w, r, id)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExportPDF(w, r, id)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExportXLSX(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *BatchHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	orgID, ok := h.resolveOrg(w, r, "")
	if !ok {
		return
	}
	batch, items, err := h.service.GetBatch(r.Context(), orgID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(batchDetailResponse(batch, items))
}

func (h *BatchHandler) handleComplete(w http.ResponseWriter, r *http.Request, id string) {
	orgID, ok := h.resolveOrg(w, r, "")
	if !ok {
		return
	}
	batch, err := h.service.MarkCompleted(r.Context(), orgID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(batchResponse(batch))
	h.logAudit(r, orgID, batch.ID, "batch.complete", map[string]any{
		"status": batch.Status,
	})
}

func (h *BatchHandler) handleTransactions(w http.ResponseWriter, r *http.Request, id string) {
	orgID, ok := h.resolveOrg(w, r, "")
	if !ok {
		return
	}
	transactions, err := h.service.ListBatchTransactions(r.Context(), orgID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := make([]map[string]any, 0, len(transactions))
	for _, tx := range transactions {
		resp = append(resp, map[string]any{
			"id":                  tx.ID,
			"garage_id":           tx.GarageID,
			"gross_cents":         int64(tx.Gross),
			"commission_rate_bps": int64(tx.CommissionRate),
			"commission_cents":    int64(tx.Commission),
			"net_cents":           int64(tx.Net),
			"occurred_at":         tx.OccurredAt.Format(time.RFC3339),
			"batch_id":            tx.BatchID,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *BatchHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBatchExport("pdf", result, time.Since(start))
	}()

	orgID, ok := h.resolveOrg(w, r, "")
	if !ok {
		result = metrics.ResultError
		return
	}
	batch, items, err := h.service.GetBatch(r.Context(), orgID, id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildBatchPDF(batch, items)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, orgID, batch.ID, "batch.export", map[string]any{"format": "pdf"})
}

func (h *BatchHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBatchExport("xlsx", result, time.Since(start))
	}()

	orgID, ok := h.resolveOrg(w, r, "")
	if !ok {
		result = metrics.ResultError
		return
	}
	batch, items, err := h.service.GetBatch(r.Context(), orgID, id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildBatchXLSX(batch, items)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, orgID, batch.ID, "batch.export", map[string]any{"format": "xlsx"})
}

// resolveOrg picks the effective owner org: the authenticated org wins,
// a mismatching explicit org is forbidden, and exempt requests fall back
// to the configured default.
func (h *BatchHandler) resolveOrg(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	orgID := auth.OrgIDFromContext(r.Context())
	if orgID != "" {
		if requested != "" && requested != orgID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return "", false
		}
		return orgID, true
	}
	if requested != "" {
		return requested, true
	}
	if h.defaultOrg != "" {
		return h.defaultOrg, true
	}
	http.Error(w, "missing org_id", http.StatusBadRequest)
	return "", false
}

func (h *BatchHandler) logAudit(r *http.Request, orgID, batchID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		OrgID:        orgID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "batch",
		ResourceID:   batchID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func batchResponse(batch *settlement.SettlementBatch) map[string]any {
	resp := map[string]any{
		"batch_id":               batch.ID,
		"org_id":                 batch.OrgID,
		"period_key":             batch.PeriodKey,
		"period_start":           batch.PeriodStart.Format("2006-01-02"),
		"period_end":             batch.PeriodEnd.Format("2006-01-02"),
		"status":                 batch.Status,
		"total_count":            batch.TotalCount,
		"total_gross_cents":      int64(batch.TotalGross),
		"total_commission_cents": int64(batch.TotalCommission),
		"total_net_cents":        int64(batch.TotalNet),
		"created_at":             batch.CreatedAt.Format(time.RFC3339),
	}
	if !batch.CompletedAt.IsZero() {
		resp["completed_at"] = batch.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func batchDetailResponse(batch *settlement.SettlementBatch, items []settlement.BatchLineItem) map[string]any {
	lines := make([]map[string]any, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]any{
			"garage_id":        item.GarageID,
			"count":            item.Count,
			"gross_cents":      int64(item.Gross),
			"commission_cents": int64(item.Commission),
			"net_cents":        int64(item.Net),
			"bank_reference":   item.BankReference,
		})
	}
	resp := batchResponse(batch)
	resp["items"] = lines
	return resp
}

func parsePeriod(date, start, end string) (settlement.Period, error) {
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return settlement.Period{}, errors.New("invalid date")
		}
		return settlement.DayPeriod(day)
	}
	if start == "" || end == "" {
		return settlement.Period{}, errors.New("missing period")
	}
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return settlement.Period{}, errors.New("invalid period_start")
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return settlement.Period{}, errors.New("invalid period_end")
	}
	return settlement.NewPeriod(from, to)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, settlement.ErrNoTransactions):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, settlement.ErrBatchExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrConcurrentClaim):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrBatchNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, auth.ErrOrgMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
