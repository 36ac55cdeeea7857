package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/ledger"
	"github.com/warp/overtime-engine/report"
)

func TestMonthlyWorkbook(t *testing.T) {
	summary := &attendance.MonthSummary{
		OwnerID: "owner-1",
		Year:    2025,
		Month:   time.March,
		Members: []attendance.MemberSummary{
			{RealName: "Nguyễn Văn An", Nickname: "N", Shift: ledger.DayShift, Days: 2,
				Done: ledger.Hours(5), Limit: ledger.Hours(40), Remaining: ledger.Hours(35), OnRoster: true},
			{RealName: "Lê Chi", Nickname: "L", Days: 1,
				Done: ledger.Hours(1), Limit: ledger.ZeroHours(), Remaining: ledger.ZeroHours()},
		},
		Total: ledger.Hours(6),
	}
	records := []ledger.AttendanceRecord{
		{RealName: "Nguyễn Văn An", Nickname: "N", CheckIn: "06:55", CheckOut: "18:30",
			CurrentDate: ledger.NewTimePoint(2025, time.March, 3), OvertimeHours: ledger.Hours(2)},
		{RealName: "Lê Chi", Nickname: "L", CheckOut: "17:10",
			CurrentDate: ledger.NewTimePoint(2025, time.March, 4), OvertimeHours: ledger.Hours(1)},
	}

	buf, err := report.MonthlyWorkbook(summary, records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{report.SummarySheet, report.RecordsSheet}, f.GetSheetList())

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Real name", get(report.SummarySheet, "A1"))
	assert.Equal(t, "Nguyễn Văn An", get(report.SummarySheet, "A2"))
	assert.Equal(t, "Day shift", get(report.SummarySheet, "C2"))
	assert.Equal(t, "5", get(report.SummarySheet, "E2"))
	assert.Equal(t, "35", get(report.SummarySheet, "G2"))
	assert.Equal(t, "yes", get(report.SummarySheet, "H2"))
	assert.Equal(t, "no", get(report.SummarySheet, "H3"))
	assert.Equal(t, "Total", get(report.SummarySheet, "A4"))
	assert.Equal(t, "6", get(report.SummarySheet, "E4"))

	assert.Equal(t, "2025-03-03", get(report.RecordsSheet, "A2"))
	assert.Equal(t, "06:55", get(report.RecordsSheet, "D2"))
	assert.Equal(t, "", get(report.RecordsSheet, "D3"))
	assert.Equal(t, "17:10", get(report.RecordsSheet, "E3"))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "overtime_2025-03.xlsx", report.Filename(2025, 3))
}
