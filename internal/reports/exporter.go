package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
)

const sheetName = "Verifications"

var queueColumns = []string{
	"Expert ID",
	"Status",
	"Completion %",
	"Documents Complete",
	"Banking Complete",
	"Submitted At",
	"Reviewed At",
	"Rejection Reason",
	"Admin Notes",
}

// QueueExporter writes the admin verification queue as an Excel workbook:
// one row per record, frozen styled header, auto filter.
type QueueExporter struct {
	file *excelize.File
}

func NewQueueExporter() *QueueExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", sheetName)
	return &QueueExporter{file: file}
}

// Write renders the queue into the workbook. Sensitive fields are not part
// of the export; the snapshot already carries only masked values.
func (e *QueueExporter) Write(records []*kyc.AdminSnapshot) error {
	if err := e.writeHeader(); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		values := []interface{}{
			rec.ExpertID.String(),
			string(rec.Status),
			rec.CompletionPercentage,
			rec.RequiredDocumentsUploaded,
			rec.BankingComplete,
			cellTime(rec.SubmittedAt),
			cellTime(rec.ReviewedAt),
			rec.RejectionReason,
			rec.AdminNotes,
		}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := e.file.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if len(records) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(queueColumns), 1)
		if err := e.file.AutoFilter(sheetName, "A1:"+lastCol, nil); err != nil {
			return fmt.Errorf("failed to apply auto filter: %w", err)
		}
	}
	return nil
}

func (e *QueueExporter) writeHeader() error {
	styleID, err := e.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range queueColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := e.file.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := e.file.SetCellStyle(sheetName, cell, cell, styleID); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	return e.file.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteTo streams the workbook to w.
func (e *QueueExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// Close releases the workbook.
func (e *QueueExporter) Close() error {
	return e.file.Close()
}

func cellTime(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
