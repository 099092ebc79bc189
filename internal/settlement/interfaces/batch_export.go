package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	settlement "fleetfuel-cloud/internal/settlement/domain"
)

// BuildBatchPDF renders a minimal PDF for a settlement batch.
func BuildBatchPDF(batch *settlement.SettlementBatch, items []settlement.BatchLineItem) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Settlement Batch")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Batch: %s", batch.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Owner: %s", batch.OrgID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", batch.PeriodKey))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", batch.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Created: %s", batch.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if !batch.CompletedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Completed: %s", batch.CompletedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Transactions: %d", batch.TotalCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Gross: %s", batch.TotalGross))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Commission: %s", batch.TotalCommission))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net Payable: %s", batch.TotalNet))
	pdf.Ln(8)

	// Line items table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Garage", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Gross", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Commission", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Net", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Bank Ref", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		pdf.CellFormat(35, 6, item.GarageID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", item.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.Gross.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.Commission.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.Net.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, item.BankReference, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBatchXLSX renders a minimal XLSX for a settlement batch.
func BuildBatchXLSX(batch *settlement.SettlementBatch, items []settlement.BatchLineItem) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	itemsSheet := "items"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(itemsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Settlement Batch")
	_ = f.SetCellValue(summarySheet, "A3", "Batch")
	_ = f.SetCellValue(summarySheet, "B3", batch.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Owner")
	_ = f.SetCellValue(summarySheet, "B4", batch.OrgID)
	_ = f.SetCellValue(summarySheet, "A5", "Period")
	_ = f.SetCellValue(summarySheet, "B5", batch.PeriodKey)
	_ = f.SetCellValue(summarySheet, "A6", "Status")
	_ = f.SetCellValue(summarySheet, "B6", batch.Status)
	_ = f.SetCellValue(summarySheet, "A7", "Transactions")
	_ = f.SetCellValue(summarySheet, "B7", batch.TotalCount)
	_ = f.SetCellValue(summarySheet, "A8", "Gross")
	_ = f.SetCellValue(summarySheet, "B8", batch.TotalGross.String())
	_ = f.SetCellValue(summarySheet, "A9", "Commission")
	_ = f.SetCellValue(summarySheet, "B9", batch.TotalCommission.String())
	_ = f.SetCellValue(summarySheet, "A10", "Net Payable")
	_ = f.SetCellValue(summarySheet, "B10", batch.TotalNet.String())

	_ = f.SetCellValue(itemsSheet, "A1", "Garage")
	_ = f.SetCellValue(itemsSheet, "B1", "Count")
	_ = f.SetCellValue(itemsSheet, "C1", "Gross")
	_ = f.SetCellValue(itemsSheet, "D1", "Commission")
	_ = f.SetCellValue(itemsSheet, "E1", "Net")
	_ = f.SetCellValue(itemsSheet, "F1", "Bank Ref")
	for i, item := range items {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), item.GarageID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), item.Count)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), item.Gross.String())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), item.Commission.String())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), item.Net.String())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", row), item.BankReference)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
