package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/utils"
)

// CSVExporter exports schedules to CSV format
type CSVExporter struct {
	writer *csv.Writer
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer) *CSVExporter {
	return &CSVExporter{writer: csv.NewWriter(w)}
}

// WriteSchedule writes the header, one row per line and a totals row.
func (e *CSVExporter) WriteSchedule(schedule *dto.ScheduleResponse) error {
	if err := e.writer.Write(scheduleColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, line := range schedule.Lines {
		if err := e.writer.Write(scheduleRow(line, schedule.CurrencyCode)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	totals := []string{
		"Total", "", "",
		utils.FormatWithCurrencyPrecision(schedule.TotalPrincipalDue, schedule.CurrencyCode),
		utils.FormatWithCurrencyPrecision(schedule.TotalInterestDue, schedule.CurrencyCode),
		"", "", "",
	}
	if err := e.writer.Write(totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	e.writer.Flush()
	return e.writer.Error()
}
