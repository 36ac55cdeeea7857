/*
Package ledger provides the persisted data model of the overtime engine.

PURPOSE:
  This package holds the records every other package reads and writes:
  the roster (StaffMember), the per-day attendance ledger (AttendanceRecord)
  and the staging area for staff seen in pasted text but not yet on the
  roster (UnresolvedCandidate). It also defines the store contracts the
  attendance pipeline is written against.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity of hours (decimal, never float)
  - StaffMember: Roster entry with its running overtime accrual for one month
  - AttendanceRecord: One check-in/check-out pair per member per date
  - UnresolvedCandidate: A name awaiting operator triage

DESIGN PRINCIPLES:
  1. Precision: Hours use decimal.Decimal to avoid floating-point drift
  2. Derived values: Remaining is recomputed from WorkedHours and MonthlyLimit
     every time either changes, never set on its own
  3. Month scope: an accrual counts one (year, month) and only moves forward;
     check-outs and reconciles for an earlier month never touch it
  4. Identity: An attendance record is identified by (owner, realName, date),
     see RecordKey

SEE ALSO:
  - time.go: TimePoint (dates) and ClockTime (HH:MM)
  - store.go: Roster, attendance and staging store contracts
  - errors.go: Sentinel and structured errors
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (hours for this system)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Hours is shorthand for NewAmountFromInt(n, UnitHours).
func Hours(n int) Amount { return NewAmountFromInt(n, UnitHours) }

// ZeroHours is the zero amount of hours.
func ZeroHours() Amount { return Amount{Value: decimal.Zero, Unit: UnitHours} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.unit()} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.unit()} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.unit()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) String() string            { return a.Value.String() }

// ClampZero returns a, or zero hours if a is negative.
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return Amount{Value: decimal.Zero, Unit: a.unit()}
	}
	return a
}

func (a Amount) unit() Unit {
	if a.Unit == "" {
		return UnitHours
	}
	return a.Unit
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OwnerID string
type MemberID string

// =============================================================================
// SHIFTS
// =============================================================================

type Shift string

const (
	DayShift   Shift = "day"
	NightShift Shift = "night"
	FullDay    Shift = "full_day"
	FullNight  Shift = "full_night"
)

func (s Shift) Valid() bool {
	switch s {
	case DayShift, NightShift, FullDay, FullNight:
		return true
	}
	return false
}

// IsNight reports whether the shift starts in the evening.
func (s Shift) IsNight() bool { return s == NightShift || s == FullNight }

func (s Shift) Label() string {
	switch s {
	case DayShift:
		return "Day shift"
	case NightShift:
		return "Night shift"
	case FullDay:
		return "Full day"
	case FullNight:
		return "Full night"
	}
	return string(s)
}

// ShiftStart is the nominal clock-in time of a shift. Only the four
// constants below are accepted.
type ShiftStart string

const (
	ShiftStart0700 ShiftStart = "07:00"
	ShiftStart0800 ShiftStart = "08:00"
	ShiftStart1900 ShiftStart = "19:00"
	ShiftStart2000 ShiftStart = "20:00"
)

func (s ShiftStart) Valid() bool {
	switch s {
	case ShiftStart0700, ShiftStart0800, ShiftStart1900, ShiftStart2000:
		return true
	}
	return false
}

// Clock returns the shift start as a ClockTime. Unknown values fall back
// to 07:00, the default day-shift start.
func (s ShiftStart) Clock() ClockTime {
	c, err := ParseClock(string(s))
	if err != nil || !s.Valid() {
		return ClockTime{Hour: 7}
	}
	return c
}

// DefaultShiftStart returns the shift start assumed when an operator picks
// a shift without choosing a start time.
func DefaultShiftStart(s Shift) ShiftStart {
	if s.IsNight() {
		return ShiftStart1900
	}
	return ShiftStart0700
}

// =============================================================================
// STAFF MEMBER - Roster entry
// =============================================================================

// OvertimeAccrual is a member's running overtime for one month against
// that month's cap. Year and Month are zero until the counter first
// tracks a month.
type OvertimeAccrual struct {
	Year         int
	Month        time.Month
	WorkedHours  Amount
	MonthlyLimit Amount
	Remaining    Amount
}

// Recompute returns the accrual with Remaining = max(MonthlyLimit - WorkedHours, 0).
func (a OvertimeAccrual) Recompute() OvertimeAccrual {
	a.WorkedHours = a.WorkedHours.ClampZero()
	a.Remaining = a.MonthlyLimit.Sub(a.WorkedHours).ClampZero()
	return a
}

// Apply moves WorkedHours by delta (never below zero) and recomputes Remaining.
func (a OvertimeAccrual) Apply(delta Amount) OvertimeAccrual {
	a.WorkedHours = a.WorkedHours.Add(delta)
	return a.Recompute()
}

// WithLimit replaces the monthly cap and recomputes Remaining.
func (a OvertimeAccrual) WithLimit(limit Amount) OvertimeAccrual {
	a.MonthlyLimit = limit
	return a.Recompute()
}

// Tracks reports whether the counter is for year/month.
func (a OvertimeAccrual) Tracks(year int, month time.Month) bool {
	return a.Year == year && a.Month == month
}

// After reports whether the counter is for a month later than year/month.
func (a OvertimeAccrual) After(year int, month time.Month) bool {
	return monthIndex(a.Year, a.Month) > monthIndex(year, month)
}

// Reset points the counter at year/month with worked hours against limit.
// A counter already on a later month is returned unchanged: counters only
// move forward.
func (a OvertimeAccrual) Reset(year int, month time.Month, worked, limit Amount) OvertimeAccrual {
	if a.After(year, month) {
		return a
	}
	a.Year, a.Month = year, month
	a.WorkedHours = worked
	a.MonthlyLimit = limit
	return a.Recompute()
}

// AccrualMove is the effect of one check-out on the counter.
type AccrualMove struct {
	Year  int
	Month time.Month
	Delta Amount // change of this date's overtime
	// Worked is the ledger total for Year/Month, this check-out included.
	// It becomes the counter when the counter rolls over to Year/Month.
	Worked Amount
}

// Move applies m. Delta when the counter tracks m's month, a Reset to
// m.Worked against limit when the counter is on an earlier month, and
// nothing when it is on a later one.
func (a OvertimeAccrual) Move(m AccrualMove, limit Amount) OvertimeAccrual {
	switch {
	case a.Tracks(m.Year, m.Month):
		return a.Apply(m.Delta)
	case a.After(m.Year, m.Month):
		return a
	}
	return a.Reset(m.Year, m.Month, m.Worked, limit)
}

// NewAccrual returns a zero accrual tracking no month.
func NewAccrual() OvertimeAccrual {
	return OvertimeAccrual{WorkedHours: ZeroHours(), MonthlyLimit: ZeroHours(), Remaining: ZeroHours()}
}

func monthIndex(year int, month time.Month) int { return year*12 + int(month) - 1 }

type StaffMember struct {
	ID         MemberID
	OwnerID    OwnerID
	RealName   string // resolution key, NFC-normalized
	Nickname   string
	Shift      Shift
	ShiftStart ShiftStart

	LastCheckInDate  string // YYYY-MM-DD or empty
	LastCheckInTime  string // HH:MM or empty
	LastCheckOutTime string // HH:MM or empty

	Accrual   OvertimeAccrual
	CreatedAt time.Time
}

// DefaultNickname returns the first character of a real name.
func DefaultNickname(realName string) string {
	for _, r := range NormalizeName(realName) {
		return string(r)
	}
	return ""
}

// =============================================================================
// ATTENDANCE RECORD - Ledger entry, one per (owner, realName, date)
// =============================================================================

type AttendanceRecord struct {
	ID            string // RecordKey(OwnerID, RealName, CurrentDate)
	OwnerID       OwnerID
	RealName      string // denormalized link to StaffMember.RealName
	Nickname      string
	CheckIn       string // HH:MM or empty
	CheckOut      string // HH:MM or empty
	CurrentDate   TimePoint
	Month         int // 1-12
	Year          int
	OvertimeHours Amount // credited for this date by the last check-out
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecordKey is the identity of an attendance record.
func RecordKey(owner OwnerID, realName string, date TimePoint) string {
	return string(owner) + "/" + NormalizeName(realName) + "/" + date.String()
}

// AttendancePatch describes one merge-upsert into the ledger. Empty
// CheckIn/CheckOut and a nil Overtime leave the stored values untouched.
type AttendancePatch struct {
	OwnerID  OwnerID
	RealName string
	Nickname string
	Date     TimePoint
	CheckIn  string
	CheckOut string
	Overtime *Amount
}

func (p AttendancePatch) Key() string { return RecordKey(p.OwnerID, p.RealName, p.Date) }

// MergeResult reports the outcome of a merge-upsert.
type MergeResult struct {
	Record           AttendanceRecord
	Created          bool
	PreviousOvertime Amount // overtime stored for this date before the merge
}

// =============================================================================
// UNRESOLVED CANDIDATE - Staged for operator review
// =============================================================================

type UnresolvedCandidate struct {
	RealName           string     `json:"realName"`
	ProposedNickname   string     `json:"proposedNickname"`
	ProposedShift      Shift      `json:"proposedShift"`
	ProposedShiftStart ShiftStart `json:"proposedShiftStart"`
	CheckInTimeSeen    string     `json:"checkInTimeSeen"`
	Selected           bool       `json:"selected"`
}

// =============================================================================
// RECONCILE RUN - Audit row for an accrual reconciliation
// =============================================================================

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ReconcileRun records one recomputation of an owner's accruals from the
// ledger for a month.
type ReconcileRun struct {
	ID          string
	OwnerID     OwnerID
	Year        int
	Month       int
	Status      RunStatus
	Checked     int // members compared against the ledger
	Corrected   int // members whose WorkedHours drifted and were rewritten
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}
