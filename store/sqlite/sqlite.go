/*
Package sqlite provides a SQLite-backed implementation of the ledger store contracts.

PURPOSE:
  Implements RosterStore, AttendanceStore and RunStore on SQLite. Staging
  lives in Redis (store/redis) or in memory; it is short-lived and
  per-owner, so it has no table here.

INTERFACES IMPLEMENTED:
  ledger.RosterStore:     Staff members and their overtime accrual
  ledger.AttendanceStore: One attendance row per (owner, real name, date)
  ledger.RunStore:        Reconciliation audit rows

KEY TABLES:
  members:             Roster, accrual stored as decimal TEXT with its month
  monthly_limits:      One overtime cap per (owner, year, month)
  attendance:          Ledger, id = ledger.RecordKey(owner, name, date)
  reconciliation_runs: One row per (owner, year, month) reconciliation

MERGE-UPSERT:
  MergeAttendance reads the current row and writes the merged row in one
  SQL transaction under the store mutex. The UNIQUE(owner_id, real_name,
  work_date) index backs up the id: two writers can never produce two rows
  for the same member and date.

DECIMALS:
  Hours are stored as decimal strings (TEXT), never REAL, so accruals
  read back exactly as written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, WAL journal for concurrent readers.

USAGE:
  store, err := sqlite.New("./data/overtime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/merge.go: Field-level merge rules shared with the memory store
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/overtime-engine/ledger"
)

// timeLayout is fixed-width so TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store implements the ledger store contracts using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.RosterStore     = (*Store)(nil)
	_ ledger.AttendanceStore = (*Store)(nil)
	_ ledger.RunStore        = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Roster
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		real_name TEXT NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL,
		shift_start TEXT NOT NULL,
		last_check_in_date TEXT,
		last_check_in_time TEXT,
		last_check_out_time TEXT,
		accrual_year INTEGER NOT NULL DEFAULT 0,
		accrual_month INTEGER NOT NULL DEFAULT 0,
		worked_hours TEXT NOT NULL DEFAULT '0',
		monthly_limit TEXT NOT NULL DEFAULT '0',
		remaining_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- A real name resolves to at most one member per owner
	CREATE UNIQUE INDEX IF NOT EXISTS idx_members_owner_name
		ON members(owner_id, real_name);

	-- Overtime caps, one per owner and month
	CREATE TABLE IF NOT EXISTS monthly_limits (
		owner_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		hours TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner_id, year, month)
	);

	-- Attendance ledger, one row per member per date
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		real_name TEXT NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		check_in TEXT,
		check_out TEXT,
		work_date TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		overtime_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(owner_id, real_name, work_date)
	);

	-- Monthly listing and bulk delete (hot path for reports)
	CREATE INDEX IF NOT EXISTS idx_attendance_owner_month
		ON attendance(owner_id, year, month, work_date);

	-- Reconciliation Runs
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		checked INTEGER DEFAULT 0,
		corrected INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		UNIQUE(owner_id, year, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER STORE (ledger.RosterStore interface)
// =============================================================================

const memberColumns = `id, owner_id, real_name, nickname, shift, shift_start,
	last_check_in_date, last_check_in_time, last_check_out_time,
	accrual_year, accrual_month,
	worked_hours, monthly_limit, remaining_hours, created_at`

// ListMembers returns the owner's roster in creation order.
func (s *Store) ListMembers(ctx context.Context, owner ledger.OwnerID) ([]ledger.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE owner_id = ? ORDER BY rowid",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []ledger.StaffMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember retrieves one member of owner.
func (s *Store) GetMember(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID) (*ledger.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getMember(ctx, s.db, owner, id)
}

// CreateMember stores a new member.
func (s *Store) CreateMember(ctx context.Context, m ledger.StaffMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = ledger.MemberID(uuid.NewString())
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	acc := m.Accrual.Recompute()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.OwnerID, ledger.NormalizeName(m.RealName), m.Nickname,
		m.Shift, m.ShiftStart,
		nullString(m.LastCheckInDate), nullString(m.LastCheckInTime), nullString(m.LastCheckOutTime),
		acc.Year, int(acc.Month),
		acc.WorkedHours.String(), acc.MonthlyLimit.String(), acc.Remaining.String(),
		m.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateMember
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// DeleteMember removes a member. Attendance rows are kept.
func (s *Store) DeleteMember(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM members WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrMemberNotFound
	}
	return nil
}

// RecordCheckIn stores the last check-in on the member.
func (s *Store) RecordCheckIn(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID, date ledger.TimePoint, at string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE members SET last_check_in_date = ?, last_check_in_time = ?
		WHERE owner_id = ? AND id = ?
	`, date.String(), at, owner, id)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrMemberNotFound
	}
	return nil
}

// RecordCheckOut stores the last check-out and applies move to the accrual.
func (s *Store) RecordCheckOut(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID, at string, move ledger.AccrualMove) (ledger.OvertimeAccrual, error) {
	return s.updateAccrual(ctx, owner, id, move.Year, move.Month, func(m *ledger.StaffMember, limit ledger.Amount) {
		m.LastCheckOutTime = at
		m.Accrual = m.Accrual.Move(move, limit)
	})
}

// ResetAccrual points the accrual at year/month with worked hours.
func (s *Store) ResetAccrual(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID, year int, month time.Month, worked ledger.Amount) (ledger.OvertimeAccrual, error) {
	return s.updateAccrual(ctx, owner, id, year, month, func(m *ledger.StaffMember, limit ledger.Amount) {
		m.Accrual = m.Accrual.Reset(year, month, worked, limit)
	})
}

// updateAccrual runs a read-modify-write of one member inside a
// transaction. fn gets the owner's limit for year/month.
func (s *Store) updateAccrual(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID, year int, month time.Month, fn func(m *ledger.StaffMember, limit ledger.Amount)) (ledger.OvertimeAccrual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.OvertimeAccrual{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	m, err := s.getMember(ctx, sqlTx, owner, id)
	if err != nil {
		return ledger.OvertimeAccrual{}, err
	}
	limit, err := s.monthlyLimit(ctx, sqlTx, owner, year, month)
	if err != nil {
		return ledger.OvertimeAccrual{}, err
	}
	fn(m, limit)

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE members SET last_check_out_time = ?,
			accrual_year = ?, accrual_month = ?,
			worked_hours = ?, monthly_limit = ?, remaining_hours = ?
		WHERE owner_id = ? AND id = ?
	`,
		nullString(m.LastCheckOutTime),
		m.Accrual.Year, int(m.Accrual.Month),
		m.Accrual.WorkedHours.String(), m.Accrual.MonthlyLimit.String(), m.Accrual.Remaining.String(),
		owner, id,
	)
	if err != nil {
		return ledger.OvertimeAccrual{}, fmt.Errorf("failed to update accrual: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return ledger.OvertimeAccrual{}, err
	}
	return m.Accrual, nil
}

// SetMonthlyLimit stores the owner's cap for year/month and refreshes
// members whose accrual tracks that month.
func (s *Store) SetMonthlyLimit(ctx context.Context, owner ledger.OwnerID, year int, month time.Month, limit ledger.Amount) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO monthly_limits (owner_id, year, month, hours, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, year, month) DO UPDATE SET
			hours = excluded.hours,
			updated_at = excluded.updated_at
	`, owner, year, int(month), limit.String(), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to set monthly limit: %w", err)
	}

	rows, err := sqlTx.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE owner_id = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("failed to load members: %w", err)
	}
	var members []ledger.StaffMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		members = append(members, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, m := range members {
		if !m.Accrual.Tracks(year, month) {
			continue
		}
		acc := m.Accrual.WithLimit(limit)
		if _, err := sqlTx.ExecContext(ctx, `
			UPDATE members SET monthly_limit = ?, worked_hours = ?, remaining_hours = ?
			WHERE id = ?
		`, acc.MonthlyLimit.String(), acc.WorkedHours.String(), acc.Remaining.String(), m.ID); err != nil {
			return 0, fmt.Errorf("failed to refresh accrual: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return len(members), nil
}

// MonthlyLimit returns the owner's cap for year/month, zero if never set.
func (s *Store) MonthlyLimit(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (ledger.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.monthlyLimit(ctx, s.db, owner, year, month)
}

func (s *Store) monthlyLimit(ctx context.Context, db queryer, owner ledger.OwnerID, year int, month time.Month) (ledger.Amount, error) {
	var hours string
	err := db.QueryRowContext(ctx,
		"SELECT hours FROM monthly_limits WHERE owner_id = ? AND year = ? AND month = ?",
		owner, year, int(month),
	).Scan(&hours)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ZeroHours(), nil
	}
	if err != nil {
		return ledger.Amount{}, fmt.Errorf("failed to load monthly limit: %w", err)
	}
	return parseHours(hours), nil
}

// ListOwners returns every owner with at least one member.
func (s *Store) ListOwners(ctx context.Context) ([]ledger.OwnerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT owner_id FROM members ORDER BY owner_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []ledger.OwnerID
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, ledger.OwnerID(o))
	}
	return owners, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getMember(ctx context.Context, db queryer, owner ledger.OwnerID, id ledger.MemberID) (*ledger.StaffMember, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE owner_id = ? AND id = ?", owner, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (ledger.StaffMember, error) {
	var m ledger.StaffMember
	var lastInDate, lastInTime, lastOutTime sql.NullString
	var worked, limit, remaining, createdAt string
	var accYear, accMonth int

	err := row.Scan(
		&m.ID, &m.OwnerID, &m.RealName, &m.Nickname, &m.Shift, &m.ShiftStart,
		&lastInDate, &lastInTime, &lastOutTime,
		&accYear, &accMonth,
		&worked, &limit, &remaining, &createdAt,
	)
	if err != nil {
		return m, err
	}

	m.LastCheckInDate = lastInDate.String
	m.LastCheckInTime = lastInTime.String
	m.LastCheckOutTime = lastOutTime.String
	m.Accrual = ledger.OvertimeAccrual{
		Year:         accYear,
		Month:        time.Month(accMonth),
		WorkedHours:  parseHours(worked),
		MonthlyLimit: parseHours(limit),
		Remaining:    parseHours(remaining),
	}
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return m, nil
}

// =============================================================================
// ATTENDANCE STORE (ledger.AttendanceStore interface)
// =============================================================================

const attendanceColumns = `id, owner_id, real_name, nickname, check_in, check_out,
	work_date, month, year, overtime_hours, created_at, updated_at`

// MergeAttendance creates or updates the row identified by p.Key().
func (s *Store) MergeAttendance(ctx context.Context, p ledger.AttendancePatch) (ledger.MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.MergeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	existing, err := s.getAttendance(ctx, sqlTx, p.Key())
	if err != nil {
		return ledger.MergeResult{}, err
	}

	result := ledger.Merge(existing, p, time.Now().UTC())
	rec := result.Record

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nickname = excluded.nickname,
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			overtime_hours = excluded.overtime_hours,
			updated_at = excluded.updated_at
	`,
		rec.ID, rec.OwnerID, rec.RealName, rec.Nickname,
		nullString(rec.CheckIn), nullString(rec.CheckOut),
		rec.CurrentDate.String(), rec.Month, rec.Year,
		rec.OvertimeHours.String(),
		rec.CreatedAt.UTC().Format(timeLayout),
		rec.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return ledger.MergeResult{}, fmt.Errorf("failed to merge attendance: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return ledger.MergeResult{}, err
	}
	return result, nil
}

// GetAttendance returns nil, nil if no row exists.
func (s *Store) GetAttendance(ctx context.Context, owner ledger.OwnerID, realName string, date ledger.TimePoint) (*ledger.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAttendance(ctx, s.db, ledger.RecordKey(owner, realName, date))
}

func (s *Store) getAttendance(ctx context.Context, db queryer, id string) (*ledger.AttendanceRecord, error) {
	row := db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendance WHERE id = ?", id)
	rec, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	return &rec, nil
}

// ListAttendance returns the owner's rows for a month.
func (s *Store) ListAttendance(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) ([]ledger.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE owner_id = ? AND year = ? AND month = ?
		ORDER BY work_date, real_name
	`, owner, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []ledger.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteAttendanceMonth removes the owner's rows for a month.
func (s *Store) DeleteAttendanceMonth(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM attendance WHERE owner_id = ? AND year = ? AND month = ?",
		owner, year, int(month),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanAttendance(row scanner) (ledger.AttendanceRecord, error) {
	var rec ledger.AttendanceRecord
	var checkIn, checkOut sql.NullString
	var workDate, overtime, createdAt, updatedAt string

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.RealName, &rec.Nickname, &checkIn, &checkOut,
		&workDate, &rec.Month, &rec.Year, &overtime, &createdAt, &updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.CheckIn = checkIn.String
	rec.CheckOut = checkOut.String
	rec.CurrentDate, _ = ledger.ParseDate(workDate)
	rec.OvertimeHours = parseHours(overtime)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return rec, nil
}

// =============================================================================
// RUN STORE (ledger.RunStore interface)
// =============================================================================

// SaveReconcileRun upserts a run keyed by (owner, year, month).
func (s *Store) SaveReconcileRun(ctx context.Context, r ledger.ReconcileRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var completedAt *string
	if !r.CompletedAt.IsZero() {
		c := r.CompletedAt.UTC().Format(timeLayout)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, owner_id, year, month, status,
			checked, corrected, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, year, month) DO UPDATE SET
			status = excluded.status,
			checked = excluded.checked,
			corrected = excluded.corrected,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`,
		r.ID, r.OwnerID, r.Year, r.Month, r.Status,
		r.Checked, r.Corrected, nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout), completedAt,
	)
	return err
}

// ListReconcileRuns returns the owner's runs, newest first.
func (s *Store) ListReconcileRuns(ctx context.Context, owner ledger.OwnerID) ([]ledger.ReconcileRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, year, month, status, checked, corrected,
			error, started_at, completed_at
		FROM reconciliation_runs
		WHERE owner_id = ?
		ORDER BY started_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ledger.ReconcileRun
	for rows.Next() {
		var r ledger.ReconcileRun
		var runErr, completedAt sql.NullString
		var startedAt string
		if err := rows.Scan(
			&r.ID, &r.OwnerID, &r.Year, &r.Month, &r.Status, &r.Checked, &r.Corrected,
			&runErr, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(timeLayout, completedAt.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseHours(value string) ledger.Amount {
	return ledger.Amount{
		Value: ledger.MustParseDecimal(value),
		Unit:  ledger.UnitHours,
	}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
