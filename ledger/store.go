/*
store.go - Persistence contracts for the roster, the attendance ledger and staging

PURPOSE:
  Defines the interface between the attendance pipeline and the database.
  Different implementations can use SQLite, Redis or in-memory storage.

KEY INTERFACES:
  RosterStore:     StaffMember records per owner, accrual updates
  AttendanceStore: AttendanceRecord merge-upserts and monthly listing
  StagingStore:    Candidates awaiting operator confirmation
  RunStore:        Audit trail of accrual reconciliations

MERGE-UPSERT CONTRACT:
  AttendanceStore has no Create/Update pair. MergeAttendance is keyed by
  RecordKey(owner, realName, date), so two passes racing on the same key
  converge on one record instead of both inserting. Empty fields in the
  patch never overwrite stored values.

ACCRUAL UPDATES:
  RecordCheckOut moves WorkedHours and recomputes Remaining in the same
  write. Callers never set Remaining directly. The accrual counts one
  month: writes aimed at an earlier month leave it alone, writes aimed at
  a later month roll it over.

MONTHLY LIMITS:
  Limits are kept per (owner, year, month). Setting March never changes
  what February's summary reports.

NO CROSS-DOCUMENT TRANSACTIONS:
  A check-out touches the ledger and the roster in two separate calls.
  If the second fails the first stays committed.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: RosterStore + AttendanceStore + RunStore on SQLite
  - store/redis/staging.go: StagingStore on Redis
  - ledger/store/memory.go: All four in memory for tests and dev

SEE ALSO:
  - types.go: Records stored here
  - attendance/engine.go: The only writer during a parse pass
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ROSTER STORE
// =============================================================================

type RosterStore interface {
	// ListMembers returns the owner's roster in creation order.
	ListMembers(ctx context.Context, owner OwnerID) ([]StaffMember, error)

	// GetMember returns ErrMemberNotFound if the member doesn't belong to owner.
	GetMember(ctx context.Context, owner OwnerID, id MemberID) (*StaffMember, error)

	// CreateMember stores a new member. Name uniqueness is the caller's concern.
	CreateMember(ctx context.Context, m StaffMember) error

	// DeleteMember removes a member. Attendance records are left in place.
	DeleteMember(ctx context.Context, owner OwnerID, id MemberID) error

	// RecordCheckIn stores the last check-in date and time on the member.
	RecordCheckIn(ctx context.Context, owner OwnerID, id MemberID, date TimePoint, at string) error

	// RecordCheckOut stores the last check-out time and applies move to the
	// accrual (see OvertimeAccrual.Move). A roll-over takes the owner's
	// limit for the move's month.
	RecordCheckOut(ctx context.Context, owner OwnerID, id MemberID, at string, move AccrualMove) (OvertimeAccrual, error)

	// ResetAccrual points the accrual at year/month with worked hours and
	// the owner's limit for that month (see OvertimeAccrual.Reset).
	ResetAccrual(ctx context.Context, owner OwnerID, id MemberID, year int, month time.Month, worked Amount) (OvertimeAccrual, error)

	// SetMonthlyLimit stores the owner's cap for year/month and refreshes the
	// accrual of members tracking that month. Returns members on the roster.
	SetMonthlyLimit(ctx context.Context, owner OwnerID, year int, month time.Month, limit Amount) (int, error)

	// MonthlyLimit returns the owner's cap for year/month, zero if never set.
	MonthlyLimit(ctx context.Context, owner OwnerID, year int, month time.Month) (Amount, error)

	// ListOwners returns every owner with at least one member.
	ListOwners(ctx context.Context) ([]OwnerID, error)
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

type AttendanceStore interface {
	// MergeAttendance creates or updates the record identified by p.Key().
	MergeAttendance(ctx context.Context, p AttendancePatch) (MergeResult, error)

	// GetAttendance returns nil, nil if no record exists for the key.
	GetAttendance(ctx context.Context, owner OwnerID, realName string, date TimePoint) (*AttendanceRecord, error)

	// ListAttendance returns the owner's records for a month, ordered by date then name.
	ListAttendance(ctx context.Context, owner OwnerID, year int, month time.Month) ([]AttendanceRecord, error)

	// DeleteAttendanceMonth removes the owner's records for a month. Returns records removed.
	DeleteAttendanceMonth(ctx context.Context, owner OwnerID, year int, month time.Month) (int, error)
}

// =============================================================================
// STAGING STORE
// =============================================================================

type StagingStore interface {
	// LoadStaging returns the owner's staged candidates, empty if none.
	LoadStaging(ctx context.Context, owner OwnerID) ([]UnresolvedCandidate, error)

	// SaveStaging replaces the owner's staged candidates.
	SaveStaging(ctx context.Context, owner OwnerID, candidates []UnresolvedCandidate) error

	// ClearStaging discards the owner's staged candidates.
	ClearStaging(ctx context.Context, owner OwnerID) error
}

// =============================================================================
// RUN STORE
// =============================================================================

type RunStore interface {
	// SaveReconcileRun upserts a run keyed by (owner, year, month).
	SaveReconcileRun(ctx context.Context, run ReconcileRun) error

	// ListReconcileRuns returns the owner's runs, newest first.
	ListReconcileRuns(ctx context.Context, owner OwnerID) ([]ReconcileRun, error)
}
