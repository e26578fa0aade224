// Package export writes invoice lists to spreadsheet and CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/invopilot/invopilot/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var columns = []string{
	"Invoice Number", "Client", "Status", "Currency", "Amount",
	"Issue Date", "Due Date", "Notes",
}

// Row pairs an invoice with its resolved client name for export.
type Row struct {
	Invoice *models.Invoice
	Client  string
}

// ExcelExporter writes invoice workbooks.
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter.
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Write builds a single-sheet workbook from rows and writes it to w.
func (e *ExcelExporter) Write(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		e.setCell(f, sheet, cell, col)
	}

	for i, row := range rows {
		values := e.rowValues(row)
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to build cell: %w", err)
			}
			e.setCell(f, sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Invoice workbook written", zap.Int("rows", len(rows)))
	return nil
}

func (e *ExcelExporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (e *ExcelExporter) rowValues(row Row) []interface{} {
	inv := row.Invoice
	dueDate := ""
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format("2006-01-02")
	}
	return []interface{}{
		inv.InvoiceNumber,
		row.Client,
		inv.Status,
		inv.Currency,
		inv.Amount,
		inv.IssueDate.Format("2006-01-02"),
		dueDate,
		inv.Notes,
	}
}

// WriteCSV writes rows as CSV with the same column layout as the workbook.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range rows {
		inv := row.Invoice
		dueDate := ""
		if inv.DueDate != nil {
			dueDate = inv.DueDate.Format("2006-01-02")
		}
		record := []string{
			inv.InvoiceNumber,
			row.Client,
			inv.Status,
			inv.Currency,
			strconv.FormatFloat(inv.Amount, 'f', 2, 64),
			inv.IssueDate.Format("2006-01-02"),
			dueDate,
			inv.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
