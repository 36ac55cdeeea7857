package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/ledger"
	"github.com/warp/overtime-engine/ledger/store"
)

func TestMemory_MergeAttendance_OneRecordPerKey(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	d := ledger.NewTimePoint(2025, time.March, 10)

	r1, err := s.MergeAttendance(ctx, ledger.AttendancePatch{OwnerID: "o", RealName: "An", Date: d, CheckIn: "07:00"})
	require.NoError(t, err)
	assert.True(t, r1.Created)

	ot := ledger.Hours(1)
	r2, err := s.MergeAttendance(ctx, ledger.AttendancePatch{OwnerID: "o", RealName: "An", Date: d, CheckOut: "17:00", Overtime: &ot})
	require.NoError(t, err)
	assert.False(t, r2.Created)

	list, err := s.ListAttendance(ctx, "o", 2025, time.March)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "07:00", list[0].CheckIn)
	assert.Equal(t, "17:00", list[0].CheckOut)
}

func TestMemory_RecordCheckOut_MovesAccrual(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	_, err := s.SetMonthlyLimit(ctx, "o", 2025, time.March, ledger.Hours(4))
	require.NoError(t, err)
	require.NoError(t, s.CreateMember(ctx, ledger.StaffMember{
		ID: "m1", OwnerID: "o", RealName: "An",
		Accrual: ledger.NewAccrual(),
	}))

	// First check-out rolls the counter onto March and picks up March's limit.
	acc, err := s.RecordCheckOut(ctx, "o", "m1", "20:00", ledger.AccrualMove{
		Year: 2025, Month: time.March, Delta: ledger.Hours(6), Worked: ledger.Hours(6),
	})
	require.NoError(t, err)
	assert.True(t, acc.Tracks(2025, time.March))
	assert.True(t, acc.MonthlyLimit.Equal(ledger.Hours(4)))
	assert.True(t, acc.Remaining.IsZero())

	m, err := s.GetMember(ctx, "o", "m1")
	require.NoError(t, err)
	assert.Equal(t, "20:00", m.LastCheckOutTime)

	_, err = s.RecordCheckOut(ctx, "other", "m1", "20:00", ledger.AccrualMove{Year: 2025, Month: time.March, Delta: ledger.Hours(1)})
	assert.ErrorIs(t, err, ledger.ErrMemberNotFound)
}

func TestMemory_MonthlyLimit_KeptPerMonth(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.CreateMember(ctx, ledger.StaffMember{
		ID: "m1", OwnerID: "o", RealName: "An",
		Accrual: ledger.NewAccrual().Reset(2025, time.March, ledger.Hours(2), ledger.ZeroHours()),
	}))

	_, err := s.SetMonthlyLimit(ctx, "o", 2025, time.February, ledger.Hours(10))
	require.NoError(t, err)
	n, err := s.SetMonthlyLimit(ctx, "o", 2025, time.March, ledger.Hours(40))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	feb, err := s.MonthlyLimit(ctx, "o", 2025, time.February)
	require.NoError(t, err)
	assert.True(t, feb.Equal(ledger.Hours(10)))

	apr, err := s.MonthlyLimit(ctx, "o", 2025, time.April)
	require.NoError(t, err)
	assert.True(t, apr.IsZero())

	other, err := s.MonthlyLimit(ctx, "x", 2025, time.March)
	require.NoError(t, err)
	assert.True(t, other.IsZero())

	// Only the month the counter tracks refreshes the member's accrual.
	m, err := s.GetMember(ctx, "o", "m1")
	require.NoError(t, err)
	assert.True(t, m.Accrual.MonthlyLimit.Equal(ledger.Hours(40)))
	assert.True(t, m.Accrual.Remaining.Equal(ledger.Hours(38)))
}

func TestMemory_ResetAccrual_NeverMovesBack(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.CreateMember(ctx, ledger.StaffMember{ID: "m1", OwnerID: "o", RealName: "An", Accrual: ledger.NewAccrual()}))

	acc, err := s.ResetAccrual(ctx, "o", "m1", 2025, time.March, ledger.Hours(2))
	require.NoError(t, err)
	assert.True(t, acc.Tracks(2025, time.March))

	acc, err = s.ResetAccrual(ctx, "o", "m1", 2025, time.January, ledger.ZeroHours())
	require.NoError(t, err)
	assert.True(t, acc.Tracks(2025, time.March))
	assert.True(t, acc.WorkedHours.Equal(ledger.Hours(2)))
}

func TestMemory_DeleteAttendanceMonth_ScopedToOwner(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	mar := ledger.NewTimePoint(2025, time.March, 3)
	apr := ledger.NewTimePoint(2025, time.April, 3)

	for _, p := range []ledger.AttendancePatch{
		{OwnerID: "o", RealName: "An", Date: mar, CheckIn: "07:00"},
		{OwnerID: "o", RealName: "Binh", Date: mar, CheckIn: "07:00"},
		{OwnerID: "o", RealName: "An", Date: apr, CheckIn: "07:00"},
		{OwnerID: "x", RealName: "An", Date: mar, CheckIn: "07:00"},
	} {
		_, err := s.MergeAttendance(ctx, p)
		require.NoError(t, err)
	}

	n, err := s.DeleteAttendanceMonth(ctx, "o", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, _ := s.ListAttendance(ctx, "x", 2025, time.March)
	assert.Len(t, left, 1)
	left, _ = s.ListAttendance(ctx, "o", 2025, time.April)
	assert.Len(t, left, 1)
}

func TestMemory_Staging_SaveEmptyClears(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveStaging(ctx, "o", []ledger.UnresolvedCandidate{{RealName: "An", Selected: true}}))
	got, err := s.LoadStaging(ctx, "o")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, s.SaveStaging(ctx, "o", nil))
	got, err = s.LoadStaging(ctx, "o")
	require.NoError(t, err)
	assert.Empty(t, got)
}
