package reports_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/reports"
	"github.com/warp/leave-engine/timeoff"
)

func sampleLeaves() ([]timeoff.LeaveRequest, reports.Names) {
	names := reports.NamesOf([]timeoff.Employee{{ID: 3, Name: "Asha"}})
	return []timeoff.LeaveRequest{{
		ID: 11, EmployeeID: 3, LeaveType: timeoff.LeaveCL, OriginalLeaveType: timeoff.LeaveCL,
		FromDate: generic.MustParseDate("2025-03-03"), ToDate: generic.MustParseDate("2025-03-04"),
		Status: timeoff.StatusApproved, ComputedDays: generic.DaysInt(2), PaidDays: generic.Days(1.5),
		LWPDays: generic.Days(0.5), AppliedAt: time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC),
	}}, names
}

func TestParseFormat(t *testing.T) {
	f, err := reports.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, reports.FormatCSV, f)

	f, err = reports.ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, reports.FormatXLSX, f)

	_, err = reports.ParseFormat("pdf")
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))
}

func TestWriteCSV_Leaves(t *testing.T) {
	leaves, names := sampleLeaves()
	var buf bytes.Buffer
	require.NoError(t, reports.Write(&buf, reports.FormatCSV, reports.LeavesTable(leaves, names)))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Request ID", recs[0][0])
	assert.Equal(t, []string{"11", "3", "Asha", "CL", "CL", "2025-03-03", "2025-03-04", "APPROVED", "2", "1.5", "0.5"}, recs[1][:11])
	assert.Equal(t, "2025-02-20T09:00:00Z", recs[1][14])
}

func TestWriteXLSX_CompOff(t *testing.T) {
	names := reports.NamesOf([]timeoff.Employee{{ID: 3, Name: "Asha"}, {ID: 2, Name: "Ravi"}})
	reqs := []compoff.Request{{
		ID: 5, EmployeeID: 3, WorkedDate: generic.MustParseDate("2025-03-02"),
		Status: compoff.StatusApproved, DecidedBy: 2,
	}}

	var buf bytes.Buffer
	require.NoError(t, reports.Write(&buf, reports.FormatXLSX, reports.CompOffTable(reqs, names)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Comp-off", "D1")
	require.NoError(t, err)
	assert.Equal(t, "Worked Date", header)

	rows, err := f.GetRows("Comp-off")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-05-01", rows[1][4])
	assert.Equal(t, "Ravi", rows[1][6])
}

func TestWriteStatementPDF(t *testing.T) {
	leaves, _ := sampleLeaves()
	st := &timeoff.Statement{
		Employee: timeoff.Employee{ID: 3, Name: "Asha", Email: "asha@example.com", JoinDate: generic.MustParseDate("2024-01-10")},
		Year:     2025,
		Balances: []timeoff.Balance{*timeoff.NewBalance(3, 2025, timeoff.LeaveCL)},
		Leaves:   leaves,
		Transactions: []timeoff.Transaction{{
			LeaveType: timeoff.LeaveCL, Delta: generic.Days(-1.5), Action: timeoff.ActionApproveDeduct,
			Remarks: "leave approved", CreatedAt: time.Now(),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, reports.WriteStatementPDF(&buf, st))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
