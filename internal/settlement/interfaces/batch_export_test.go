package interfaces

import (
	"bytes"
	"testing"
	"time"

	settlement "fleetfuel-cloud/internal/settlement/domain"
)

func exportFixture() (*settlement.SettlementBatch, []settlement.BatchLineItem) {
	now := time.Date(2026, time.April, 11, 3, 0, 0, 0, time.UTC)
	batch := &settlement.SettlementBatch{
		ID:              "batch-abc123",
		OrgID:           "org-o",
		PeriodStart:     time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, time.April, 11, 0, 0, 0, 0, time.UTC),
		PeriodKey:       "20260410",
		TotalCount:      3,
		TotalGross:      35000,
		TotalCommission: 2750,
		TotalNet:        32250,
		Status:          settlement.BatchStatusPending,
		CreatedAt:       now,
	}
	items := []settlement.BatchLineItem{
		{BatchID: batch.ID, GarageID: "garage-p1", Count: 2, Gross: 15000, Commission: 750, Net: 14250, BankReference: "IBAN-P1", CreatedAt: now},
		{BatchID: batch.ID, GarageID: "garage-p2", Count: 1, Gross: 20000, Commission: 2000, Net: 18000, BankReference: "IBAN-P2", CreatedAt: now},
	}
	return batch, items
}

func TestBuildBatchPDF(t *testing.T) {
	batch, items := exportFixture()
	data, err := BuildBatchPDF(batch, items)
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty pdf output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
}

func TestBuildBatchXLSX(t *testing.T) {
	batch, items := exportFixture()
	data, err := BuildBatchXLSX(batch, items)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty xlsx output")
	}
	// xlsx is a zip container
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("not a zip container: %q", data[:4])
	}
}
