// Package store provides in-memory implementations of the ledger store contracts.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.RosterStore, ledger.AttendanceStore,
// ledger.StagingStore and ledger.RunStore.
type Memory struct {
	mu         sync.RWMutex
	members    map[ledger.OwnerID][]ledger.StaffMember
	limits     map[limitKey]ledger.Amount
	attendance map[string]ledger.AttendanceRecord
	staging    map[ledger.OwnerID][]ledger.UnresolvedCandidate
	runs       []ledger.ReconcileRun

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		members:    make(map[ledger.OwnerID][]ledger.StaffMember),
		limits:     make(map[limitKey]ledger.Amount),
		attendance: make(map[string]ledger.AttendanceRecord),
		staging:    make(map[ledger.OwnerID][]ledger.UnresolvedCandidate),
		now:        time.Now,
	}
}

type limitKey struct {
	owner ledger.OwnerID
	year  int
	month time.Month
}

var (
	_ ledger.RosterStore     = (*Memory)(nil)
	_ ledger.AttendanceStore = (*Memory)(nil)
	_ ledger.StagingStore    = (*Memory)(nil)
	_ ledger.RunStore        = (*Memory)(nil)
)

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) ListMembers(_ context.Context, owner ledger.OwnerID) ([]ledger.StaffMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.StaffMember, len(m.members[owner]))
	copy(result, m.members[owner])
	return result, nil
}

func (m *Memory) GetMember(_ context.Context, owner ledger.OwnerID, id ledger.MemberID) (*ledger.StaffMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexLocked(owner, id)
	if i < 0 {
		return nil, ledger.ErrMemberNotFound
	}
	member := m.members[owner][i]
	return &member, nil
}

func (m *Memory) CreateMember(_ context.Context, member ledger.StaffMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if member.CreatedAt.IsZero() {
		member.CreatedAt = m.now()
	}
	m.members[member.OwnerID] = append(m.members[member.OwnerID], member)
	return nil
}

func (m *Memory) DeleteMember(_ context.Context, owner ledger.OwnerID, id ledger.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(owner, id)
	if i < 0 {
		return ledger.ErrMemberNotFound
	}
	list := m.members[owner]
	m.members[owner] = append(list[:i:i], list[i+1:]...)
	return nil
}

func (m *Memory) RecordCheckIn(_ context.Context, owner ledger.OwnerID, id ledger.MemberID, date ledger.TimePoint, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(owner, id)
	if i < 0 {
		return ledger.ErrMemberNotFound
	}
	m.members[owner][i].LastCheckInDate = date.String()
	m.members[owner][i].LastCheckInTime = at
	return nil
}

func (m *Memory) RecordCheckOut(_ context.Context, owner ledger.OwnerID, id ledger.MemberID, at string, move ledger.AccrualMove) (ledger.OvertimeAccrual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(owner, id)
	if i < 0 {
		return ledger.OvertimeAccrual{}, ledger.ErrMemberNotFound
	}
	member := &m.members[owner][i]
	member.LastCheckOutTime = at
	member.Accrual = member.Accrual.Move(move, m.limitLocked(owner, move.Year, move.Month))
	return member.Accrual, nil
}

func (m *Memory) ResetAccrual(_ context.Context, owner ledger.OwnerID, id ledger.MemberID, year int, month time.Month, worked ledger.Amount) (ledger.OvertimeAccrual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(owner, id)
	if i < 0 {
		return ledger.OvertimeAccrual{}, ledger.ErrMemberNotFound
	}
	member := &m.members[owner][i]
	member.Accrual = member.Accrual.Reset(year, month, worked, m.limitLocked(owner, year, month))
	return member.Accrual, nil
}

func (m *Memory) SetMonthlyLimit(_ context.Context, owner ledger.OwnerID, year int, month time.Month, limit ledger.Amount) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limits[limitKey{owner, year, month}] = limit
	for i := range m.members[owner] {
		acc := &m.members[owner][i].Accrual
		if acc.Tracks(year, month) {
			*acc = acc.WithLimit(limit)
		}
	}
	return len(m.members[owner]), nil
}

func (m *Memory) MonthlyLimit(_ context.Context, owner ledger.OwnerID, year int, month time.Month) (ledger.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.limitLocked(owner, year, month), nil
}

func (m *Memory) limitLocked(owner ledger.OwnerID, year int, month time.Month) ledger.Amount {
	if limit, ok := m.limits[limitKey{owner, year, month}]; ok {
		return limit
	}
	return ledger.ZeroHours()
}

func (m *Memory) ListOwners(_ context.Context) ([]ledger.OwnerID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owners []ledger.OwnerID
	for owner, list := range m.members {
		if len(list) > 0 {
			owners = append(owners, owner)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func (m *Memory) indexLocked(owner ledger.OwnerID, id ledger.MemberID) int {
	for i, member := range m.members[owner] {
		if member.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) MergeAttendance(_ context.Context, p ledger.AttendancePatch) (ledger.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := p.Key()
	var existing *ledger.AttendanceRecord
	if rec, ok := m.attendance[key]; ok {
		existing = &rec
	}
	result := ledger.Merge(existing, p, m.now())
	m.attendance[key] = result.Record
	return result, nil
}

func (m *Memory) GetAttendance(_ context.Context, owner ledger.OwnerID, realName string, date ledger.TimePoint) (*ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.attendance[ledger.RecordKey(owner, realName, date)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListAttendance(_ context.Context, owner ledger.OwnerID, year int, month time.Month) ([]ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.OwnerID == owner && rec.Year == year && rec.Month == int(month) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CurrentDate.Equal(result[j].CurrentDate) {
			return result[i].CurrentDate.Before(result[j].CurrentDate)
		}
		return result[i].RealName < result[j].RealName
	})
	return result, nil
}

func (m *Memory) DeleteAttendanceMonth(_ context.Context, owner ledger.OwnerID, year int, month time.Month) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, rec := range m.attendance {
		if rec.OwnerID == owner && rec.Year == year && rec.Month == int(month) {
			delete(m.attendance, key)
			removed++
		}
	}
	return removed, nil
}

// =============================================================================
// STAGING
// =============================================================================

func (m *Memory) LoadStaging(_ context.Context, owner ledger.OwnerID) ([]ledger.UnresolvedCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.UnresolvedCandidate, len(m.staging[owner]))
	copy(result, m.staging[owner])
	return result, nil
}

func (m *Memory) SaveStaging(_ context.Context, owner ledger.OwnerID, candidates []ledger.UnresolvedCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(candidates) == 0 {
		delete(m.staging, owner)
		return nil
	}
	m.staging[owner] = append([]ledger.UnresolvedCandidate(nil), candidates...)
	return nil
}

func (m *Memory) ClearStaging(_ context.Context, owner ledger.OwnerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.staging, owner)
	return nil
}

// =============================================================================
// RECONCILE RUNS
// =============================================================================

func (m *Memory) SaveReconcileRun(_ context.Context, run ledger.ReconcileRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.runs {
		if r.OwnerID == run.OwnerID && r.Year == run.Year && r.Month == run.Month {
			run.ID = r.ID
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListReconcileRuns(_ context.Context, owner ledger.OwnerID) ([]ledger.ReconcileRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.ReconcileRun
	for _, r := range m.runs {
		if r.OwnerID == owner {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	return result, nil
}
