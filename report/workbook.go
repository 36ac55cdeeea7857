// Package report renders a month of overtime as an xlsx workbook.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/ledger"
)

const (
	SummarySheet = "Summary"
	RecordsSheet = "Records"
)

var (
	summaryHeader = []string{"Real name", "Nickname", "Shift", "Days", "Overtime (h)", "Limit (h)", "Remaining (h)", "On roster"}
	recordsHeader = []string{"Date", "Real name", "Nickname", "Check-in", "Check-out", "Overtime (h)"}
)

// Filename suggests a download name for the month.
func Filename(year, month int) string {
	return fmt.Sprintf("overtime_%04d-%02d.xlsx", year, month)
}

// MonthlyWorkbook builds a workbook with a Summary sheet (one row per
// member plus a total row) and a Records sheet (one row per attendance
// record, in the order given).
func MonthlyWorkbook(summary *attendance.MonthSummary, records []ledger.AttendanceRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RecordsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, summary, headerStyle); err != nil {
		return nil, err
	}
	if err := writeRecords(f, records, headerStyle); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func writeSummary(f *excelize.File, s *attendance.MonthSummary, style int) error {
	if err := writeHeader(f, SummarySheet, summaryHeader, style); err != nil {
		return err
	}
	f.SetColWidth(SummarySheet, "A", "A", 24)
	f.SetColWidth(SummarySheet, "B", "H", 12)

	row := 2
	for _, m := range s.Members {
		values := []interface{}{
			m.RealName,
			m.Nickname,
			m.Shift.Label(),
			m.Days,
			hours(m.Done),
			hours(m.Limit),
			hours(m.Remaining),
			yesNo(m.OnRoster),
		}
		if err := f.SetSheetRow(SummarySheet, cell("A", row), &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		row++
	}

	total := []interface{}{"Total", "", "", "", hours(s.Total)}
	if err := f.SetSheetRow(SummarySheet, cell("A", row), &total); err != nil {
		return fmt.Errorf("write total row: %w", err)
	}
	return f.SetCellStyle(SummarySheet, cell("A", row), cell("E", row), style)
}

func writeRecords(f *excelize.File, records []ledger.AttendanceRecord, style int) error {
	if err := writeHeader(f, RecordsSheet, recordsHeader, style); err != nil {
		return err
	}
	f.SetColWidth(RecordsSheet, "A", "A", 12)
	f.SetColWidth(RecordsSheet, "B", "B", 24)

	for i, r := range records {
		values := []interface{}{
			r.CurrentDate.String(),
			r.RealName,
			r.Nickname,
			r.CheckIn,
			r.CheckOut,
			hours(r.OvertimeHours),
		}
		if err := f.SetSheetRow(RecordsSheet, cell("A", i+2), &values); err != nil {
			return fmt.Errorf("write record row: %w", err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last+"1", style)
}

// hours renders an amount as a number so spreadsheet sums work.
func hours(a ledger.Amount) float64 {
	v, _ := a.Value.Float64()
	return v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
