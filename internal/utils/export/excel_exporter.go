package export

import (
	"fmt"
	"io"

	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string
	FreezeHeader bool
	NumberFormat string
	HeaderFill   string
	HeaderFont   string
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Schedule",
		FreezeHeader: true,
		NumberFormat: "#,##0.00",
		HeaderFill:   "4472C4",
		HeaderFont:   "FFFFFF",
	}
}

// ExcelExporter exports schedules to Excel format
type ExcelExporter struct {
	options ExcelOptions
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	return &ExcelExporter{options: options}
}

// WriteSchedule builds a workbook with one row per schedule line plus a totals row and
// streams it to w.
func (e *ExcelExporter) WriteSchedule(w io.Writer, schedule *dto.ScheduleResponse) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := e.options.SheetName
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.options.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.NumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, col := range scheduleColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(scheduleColumns), 1)
	if err := file.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, line := range schedule.Lines {
		row := i + 2
		values := []any{
			line.Seq,
			line.DueDate.Format(dateLayout),
			line.OriginalDueDate.Format(dateLayout),
			line.PrincipalDue.InexactFloat64(),
			line.InterestDue.InexactFloat64(),
			line.PrincipalPaid.InexactFloat64(),
			line.InterestPaid.InexactFloat64(),
			string(line.Status),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := file.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("failed to write line %d: %w", line.Seq, err)
		}
		from, _ := excelize.CoordinatesToCellName(4, row)
		to, _ := excelize.CoordinatesToCellName(7, row)
		if err := file.SetCellStyle(sheet, from, to, amountStyle); err != nil {
			return fmt.Errorf("failed to style line %d: %w", line.Seq, err)
		}
	}

	totalRow := len(schedule.Lines) + 2
	totals := []any{
		"Total", "", "",
		schedule.TotalPrincipalDue.InexactFloat64(),
		schedule.TotalInterestDue.InexactFloat64(),
	}
	start, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := file.SetSheetRow(sheet, start, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	if e.options.FreezeHeader {
		if err := file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if err := file.SetColWidth(sheet, "A", "H", 16); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
