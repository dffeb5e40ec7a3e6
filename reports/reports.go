/*
Package reports renders leave data as CSV, XLSX and PDF.

PURPOSE:
  HR downloads the year's leave register and the comp-off register as CSV
  or XLSX, and any single employee's yearly statement as a PDF. Rendering
  is pure: callers load and authorize the data, reports only formats it.

FILES:
  reports.go    Tables, formats, CSV
  xlsx.go       Spreadsheet output (excelize)
  pdf.go        Yearly statement (gofpdf)

SEE ALSO:
  - timeoff/admin.go: Statement and LeavesForYear
  - api/reports.go: Download endpoints
*/
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// FORMATS
// =============================================================================

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV for an empty string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", generic.Validation(generic.ReasonInvalidInput, "format must be csv or xlsx, got %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// =============================================================================
// TABLES
// =============================================================================

// Table is a header row plus data rows. Cells are strings, numbers or
// decimals; Write converts them per format.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// Names resolves employee ids to display names.
type Names map[generic.EmployeeID]string

func NamesOf(employees []timeoff.Employee) Names {
	n := make(Names, len(employees))
	for _, e := range employees {
		n[e.ID] = e.Name
	}
	return n
}

// LeavesTable is the leave register.
func LeavesTable(leaves []timeoff.LeaveRequest, names Names) Table {
	t := Table{
		Sheet: "Leaves",
		Headers: []string{
			"Request ID", "Employee ID", "Employee", "Leave Type", "Applied As",
			"From", "To", "Status", "Computed Days", "Paid Days", "LWP Days",
			"Auto LWP Reason", "Override Remark", "Cancel Remark", "Applied At",
		},
	}
	for _, l := range leaves {
		t.Rows = append(t.Rows, []any{
			l.ID, int64(l.EmployeeID), names[l.EmployeeID], string(l.LeaveType), string(l.OriginalLeaveType),
			l.FromDate.String(), l.ToDate.String(), string(l.Status), l.ComputedDays, l.PaidDays, l.LWPDays,
			l.AutoLWPReason, l.OverrideRemark, l.CancelRemark, l.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return t
}

// CompOffTable is the comp-off register.
func CompOffTable(reqs []compoff.Request, names Names) Table {
	t := Table{
		Sheet:   "Comp-off",
		Headers: []string{"Request ID", "Employee ID", "Employee", "Worked Date", "Expires On", "Status", "Decided By", "Remarks", "Reason"},
	}
	for _, r := range reqs {
		decidedBy := ""
		if r.DecidedBy != 0 {
			decidedBy = names[r.DecidedBy]
		}
		t.Rows = append(t.Rows, []any{
			r.ID, int64(r.EmployeeID), names[r.EmployeeID], r.WorkedDate.String(),
			r.WorkedDate.AddDays(compoff.CreditValidityDays).String(), string(r.Status), decidedBy, r.Remarks, r.Reason,
		})
	}
	return t
}

// Write renders t in the requested format.
func Write(w io.Writer, f Format, t Table) error {
	if f == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellText(v)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	}
	return fmt.Sprint(v)
}
