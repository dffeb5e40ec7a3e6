package reports

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/timeoff"
)

// WriteStatementPDF renders an employee's yearly leave statement: header,
// balances per bucket, the year's requests and the wallet trail.
func WriteStatementPDF(w io.Writer, st *timeoff.Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Leave statement %d - %s", st.Year, st.Employee.Name), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Leave Statement %d", st.Year))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Employee: %s (%s)", st.Employee.Name, st.Employee.Email))
	pdf.Ln(6)
	if st.Employee.EmpCode != "" {
		pdf.Cell(0, 6, "Code: "+st.Employee.EmpCode)
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Joined: "+st.Employee.JoinDate.String())
	pdf.Ln(10)

	section(pdf, "Balances")
	grid(pdf, []float64{25, 25, 25, 25, 30, 30},
		[]string{"Type", "Opening", "Accrued", "Used", "Remaining", "Carried Fwd"})
	for _, b := range st.Balances {
		grid(pdf, []float64{25, 25, 25, 25, 30, 30}, []string{
			string(b.LeaveType), b.Opening.String(), b.Accrued.String(), b.Used.String(),
			b.Remaining.String(), b.PLCarriedForward.String(),
		})
	}
	pdf.Ln(6)

	section(pdf, "Requests")
	widths := []float64{18, 24, 24, 30, 22, 22, 22}
	grid(pdf, widths, []string{"Type", "From", "To", "Status", "Days", "Paid", "LWP"})
	for _, l := range st.Leaves {
		grid(pdf, widths, []string{
			string(l.LeaveType), l.FromDate.String(), l.ToDate.String(), string(l.Status),
			l.ComputedDays.String(), l.PaidDays.String(), l.LWPDays.String(),
		})
	}
	if len(st.Leaves) == 0 {
		pdf.Cell(0, 6, "No leave requests.")
		pdf.Ln(6)
	}
	pdf.Ln(6)

	section(pdf, "Balance Movements")
	widths = []float64{32, 18, 20, 36, 74}
	grid(pdf, widths, []string{"Date", "Type", "Delta", "Action", "Remarks"})
	for _, tx := range st.Transactions {
		grid(pdf, widths, []string{
			tx.CreatedAt.UTC().Format("2006-01-02 15:04"), string(tx.LeaveType), tx.Delta.String(),
			string(tx.Action), truncate(tx.Remarks, 40),
		})
	}

	return errors.Wrap(pdf.Output(w), "render statement pdf")
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
}

func grid(pdf *gofpdf.Fpdf, widths []float64, cells []string) {
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
