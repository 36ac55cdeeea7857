package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// ACCRUAL TESTS
// =============================================================================

func TestAccrual_RemainingIsLimitMinusWorked(t *testing.T) {
	a := ledger.NewAccrual().WithLimit(ledger.Hours(40))
	a = a.Apply(ledger.Hours(3))

	assert.True(t, a.WorkedHours.Equal(ledger.Hours(3)))
	assert.True(t, a.Remaining.Equal(ledger.Hours(37)), "got %s", a.Remaining)
}

func TestAccrual_RemainingNeverNegative(t *testing.T) {
	// GIVEN: A 5 hour cap
	// WHEN: 8 hours are worked
	// THEN: Remaining is clamped at zero, worked is kept as is

	a := ledger.NewAccrual().WithLimit(ledger.Hours(5)).Apply(ledger.Hours(8))

	assert.True(t, a.WorkedHours.Equal(ledger.Hours(8)))
	assert.True(t, a.Remaining.IsZero(), "got %s", a.Remaining)
}

func TestAccrual_WorkedNeverNegative(t *testing.T) {
	a := ledger.NewAccrual().WithLimit(ledger.Hours(10)).Apply(ledger.Hours(2))
	a = a.Apply(ledger.Hours(-5))

	assert.True(t, a.WorkedHours.IsZero(), "got %s", a.WorkedHours)
	assert.True(t, a.Remaining.Equal(ledger.Hours(10)))
}

func TestAccrual_LoweringLimitBelowWorked(t *testing.T) {
	a := ledger.NewAccrual().WithLimit(ledger.Hours(20)).Apply(ledger.Hours(12))
	a = a.WithLimit(ledger.Hours(10))

	assert.True(t, a.Remaining.IsZero())
	assert.True(t, a.WorkedHours.Equal(ledger.Hours(12)))
}

func TestAccrual_MoveScopedToTrackedMonth(t *testing.T) {
	// GIVEN: A counter tracking March 2025 with 2 hours against a 10 hour cap
	// WHEN: Check-outs land in March, February and April
	// THEN: March moves it, February leaves it, April rolls it over

	march := ledger.NewAccrual().Reset(2025, time.March, ledger.Hours(2), ledger.Hours(10))

	a := march.Move(ledger.AccrualMove{Year: 2025, Month: time.March, Delta: ledger.Hours(1), Worked: ledger.Hours(99)}, ledger.Hours(50))
	assert.True(t, a.Tracks(2025, time.March))
	assert.True(t, a.WorkedHours.Equal(ledger.Hours(3)))
	assert.True(t, a.MonthlyLimit.Equal(ledger.Hours(10)))

	a = march.Move(ledger.AccrualMove{Year: 2025, Month: time.February, Delta: ledger.Hours(1), Worked: ledger.Hours(1)}, ledger.Hours(50))
	assert.Equal(t, march, a)

	a = march.Move(ledger.AccrualMove{Year: 2025, Month: time.April, Delta: ledger.Hours(1), Worked: ledger.Hours(1)}, ledger.Hours(20))
	assert.True(t, a.Tracks(2025, time.April))
	assert.True(t, a.WorkedHours.Equal(ledger.Hours(1)))
	assert.True(t, a.Remaining.Equal(ledger.Hours(19)), "got %s", a.Remaining)
}

func TestAccrual_ResetAcrossYears(t *testing.T) {
	dec := ledger.NewAccrual().Reset(2024, time.December, ledger.Hours(4), ledger.Hours(10))

	assert.True(t, dec.After(2024, time.November))
	assert.False(t, dec.After(2025, time.January))

	jan := dec.Reset(2025, time.January, ledger.ZeroHours(), ledger.Hours(8))
	assert.True(t, jan.Tracks(2025, time.January))
	assert.True(t, jan.Remaining.Equal(ledger.Hours(8)))

	back := jan.Reset(2024, time.December, ledger.Hours(4), ledger.Hours(10))
	assert.Equal(t, jan, back)
}

// =============================================================================
// CLOCK / DATE TESTS
// =============================================================================

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    ledger.ClockTime
		wantErr bool
	}{
		{in: "07:45", want: ledger.ClockTime{Hour: 7, Minute: 45}},
		{in: "7:45", want: ledger.ClockTime{Hour: 7, Minute: 45}},
		{in: "23:59", want: ledger.ClockTime{Hour: 23, Minute: 59}},
		{in: "00:00", want: ledger.ClockTime{}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1230", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "ab:cd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ledger.ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrInvalidClockTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTime_IsMorning(t *testing.T) {
	assert.True(t, ledger.ClockTime{Hour: 11, Minute: 59}.IsMorning())
	assert.False(t, ledger.ClockTime{Hour: 12}.IsMorning())
}

func TestParseDate(t *testing.T) {
	d, err := ledger.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, "2025-03-10", d.String())

	_, err = ledger.ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-29", ledger.EndOfMonth(2024, time.February).String())
	assert.Equal(t, "2025-12-31", ledger.EndOfMonth(2025, time.December).String())
}

// =============================================================================
// NAME / KEY TESTS
// =============================================================================

func TestNormalizeName_ComposesDecomposedVietnamese(t *testing.T) {
	composed := "Nguyễn Văn An"
	decomposed := "Nguye\u0302\u0303n Va\u0306n An"

	require.NotEqual(t, composed, decomposed)
	assert.Equal(t, composed, ledger.NormalizeName(decomposed))
	assert.True(t, ledger.SameName(composed, "  "+decomposed+" "))
}

func TestNormalizeName_KeepsCase(t *testing.T) {
	assert.False(t, ledger.SameName("an", "An"))
}

func TestRecordKey_StableAcrossNormalization(t *testing.T) {
	d := ledger.NewTimePoint(2025, time.March, 10)
	a := ledger.RecordKey("owner-1", "Nguyễn Văn An", d)
	b := ledger.RecordKey("owner-1", "Nguye\u0302\u0303n Va\u0306n An", d)

	assert.Equal(t, a, b)
	assert.Equal(t, "owner-1/Nguyễn Văn An/2025-03-10", a)
}

func TestDefaultNickname(t *testing.T) {
	assert.Equal(t, "N", ledger.DefaultNickname("Nguyễn Văn An"))
	assert.Equal(t, "王", ledger.DefaultNickname("王小明"))
	assert.Equal(t, "", ledger.DefaultNickname("  "))
}

func TestShiftStart_Clock(t *testing.T) {
	assert.Equal(t, ledger.ClockTime{Hour: 20}, ledger.ShiftStart2000.Clock())
	assert.Equal(t, ledger.ClockTime{Hour: 7}, ledger.ShiftStart("09:00").Clock())
	assert.Equal(t, ledger.ShiftStart1900, ledger.DefaultShiftStart(ledger.FullNight))
	assert.Equal(t, ledger.ShiftStart0700, ledger.DefaultShiftStart(ledger.DayShift))
}

// =============================================================================
// MERGE TESTS
// =============================================================================

func TestMerge_EmptyFieldsKeepStoredValues(t *testing.T) {
	d := ledger.NewTimePoint(2025, time.March, 10)
	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

	first := ledger.Merge(nil, ledger.AttendancePatch{
		OwnerID: "o", RealName: "An", Nickname: "A", Date: d, CheckIn: "07:00",
	}, now)
	require.True(t, first.Created)
	assert.Equal(t, 3, first.Record.Month)
	assert.True(t, first.Record.OvertimeHours.IsZero())

	ot := ledger.Hours(2)
	second := ledger.Merge(&first.Record, ledger.AttendancePatch{
		OwnerID: "o", RealName: "An", Date: d, CheckOut: "18:30", Overtime: &ot,
	}, now)

	assert.False(t, second.Created)
	assert.Equal(t, "07:00", second.Record.CheckIn)
	assert.Equal(t, "18:30", second.Record.CheckOut)
	assert.Equal(t, "A", second.Record.Nickname)
	assert.True(t, second.PreviousOvertime.IsZero())
	assert.True(t, second.Record.OvertimeHours.Equal(ledger.Hours(2)))
}
