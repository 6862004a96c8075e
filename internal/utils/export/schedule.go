// Package export renders repayment schedules as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/utils"
)

// Format is a supported export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a raw format value. An empty value selects XLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput, "unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName builds the attachment name for a deal's schedule.
func (f Format) FileName(dealID string) string {
	return fmt.Sprintf("schedule_%s.%s", dealID, f)
}

const dateLayout = "2006-01-02"

// scheduleColumns is the header row shared by every format.
var scheduleColumns = []string{
	"Seq",
	"Due Date",
	"Original Due Date",
	"Principal Due",
	"Interest Due",
	"Principal Paid",
	"Interest Paid",
	"Status",
}

// scheduleRow renders one line as strings with amounts fixed to the currency precision.
func scheduleRow(line dto.ScheduleLineResponse, currencyCode string) []string {
	return []string{
		fmt.Sprintf("%d", line.Seq),
		line.DueDate.Format(dateLayout),
		line.OriginalDueDate.Format(dateLayout),
		utils.FormatWithCurrencyPrecision(line.PrincipalDue, currencyCode),
		utils.FormatWithCurrencyPrecision(line.InterestDue, currencyCode),
		utils.FormatWithCurrencyPrecision(line.PrincipalPaid, currencyCode),
		utils.FormatWithCurrencyPrecision(line.InterestPaid, currencyCode),
		string(line.Status),
	}
}

// WriteSchedule renders the schedule in the given format.
func WriteSchedule(w io.Writer, format Format, schedule *dto.ScheduleResponse) error {
	switch format {
	case FormatCSV:
		return NewCSVExporter(w).WriteSchedule(schedule)
	case FormatXLSX:
		return NewExcelExporter(DefaultExcelOptions()).WriteSchedule(w, schedule)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
