package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// MONTHLY SUMMARY - Sum on read
// =============================================================================

// MemberSummary is one staff member's month. Done is summed from the
// per-date overtime on the ledger, not read from the running counter.
type MemberSummary struct {
	RealName  string
	Nickname  string
	Shift     ledger.Shift
	Days      int // dates with a record
	Done      ledger.Amount
	Limit     ledger.Amount
	Remaining ledger.Amount
	OnRoster  bool // false for names whose member was deleted
}

type MonthSummary struct {
	OwnerID ledger.OwnerID
	Year    int
	Month   time.Month
	Members []MemberSummary
	Total   ledger.Amount
}

// MonthlyRecords lists the owner's attendance records for a month.
func (e *Engine) MonthlyRecords(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) ([]ledger.AttendanceRecord, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	if err := validMonth(year, month); err != nil {
		return nil, err
	}
	return e.ledger.ListAttendance(ctx, owner, year, month)
}

// MonthlySummary totals each member's overtime for a month against the
// owner's limit for that month.
// Roster members come first in roster order, then names only found on the
// ledger, alphabetically.
func (e *Engine) MonthlySummary(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (*MonthSummary, error) {
	records, err := e.MonthlyRecords(ctx, owner, year, month)
	if err != nil {
		return nil, err
	}
	members, err := e.roster.ListMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	limit, err := e.roster.MonthlyLimit(ctx, owner, year, month)
	if err != nil {
		return nil, err
	}

	done := sumByName(records)
	days := make(map[string]int)
	nick := make(map[string]string)
	for _, r := range records {
		key := ledger.NormalizeName(r.RealName)
		days[key]++
		nick[key] = r.Nickname
	}

	summary := &MonthSummary{OwnerID: owner, Year: year, Month: month, Total: ledger.ZeroHours()}
	seen := make(map[string]bool)
	for _, m := range members {
		key := ledger.NormalizeName(m.RealName)
		seen[key] = true
		d, ok := done[key]
		if !ok {
			d = ledger.ZeroHours()
		}
		summary.Members = append(summary.Members, MemberSummary{
			RealName:  m.RealName,
			Nickname:  m.Nickname,
			Shift:     m.Shift,
			Days:      days[key],
			Done:      d,
			Limit:     limit,
			Remaining: limit.Sub(d).ClampZero(),
			OnRoster:  true,
		})
		summary.Total = summary.Total.Add(d)
	}

	var orphans []string
	for key := range done {
		if !seen[key] {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		summary.Members = append(summary.Members, MemberSummary{
			RealName:  key,
			Nickname:  nick[key],
			Days:      days[key],
			Done:      done[key],
			Limit:     ledger.ZeroHours(),
			Remaining: ledger.ZeroHours(),
		})
		summary.Total = summary.Total.Add(done[key])
	}

	return summary, nil
}

// DeleteMonth removes every attendance record of owner for a month.
// Member accruals are left alone; ReconcileAccruals brings them back in line.
func (e *Engine) DeleteMonth(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (int, error) {
	if owner == "" {
		return 0, ledger.ErrNoOwner
	}
	if err := validMonth(year, month); err != nil {
		return 0, err
	}
	n, err := e.ledger.DeleteAttendanceMonth(ctx, owner, year, month)
	if err != nil {
		return 0, err
	}
	e.logger.Info("month deleted",
		zap.String("owner", string(owner)),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("records", n),
	)
	return n, nil
}

// =============================================================================
// RECONCILIATION - Counter := ledger sum
// =============================================================================

// ReconcileAccruals rewrites each member's WorkedHours to the sum of their
// per-date overtime for the month, which also recomputes Remaining. Members
// already in line are not written. A counter on an earlier month rolls
// forward to this one; a counter already on a later month is left alone
// and not counted as checked. The run is recorded when a RunStore is
// configured.
func (e *Engine) ReconcileAccruals(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (*ledger.ReconcileRun, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	if err := validMonth(year, month); err != nil {
		return nil, err
	}

	run := &ledger.ReconcileRun{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Year:      year,
		Month:     int(month),
		StartedAt: e.now(),
	}

	err := e.reconcile(ctx, run, year, month)
	run.CompletedAt = e.now()
	if err != nil {
		run.Status = ledger.RunFailed
		run.Error = err.Error()
	} else {
		run.Status = ledger.RunCompleted
	}

	if e.runs != nil {
		if saveErr := e.runs.SaveReconcileRun(ctx, *run); saveErr != nil {
			e.logger.Error("failed to save reconcile run", zap.Error(saveErr))
			err = errors.Join(err, saveErr)
		}
	}
	if err != nil {
		return run, err
	}

	e.logger.Info("accruals reconciled",
		zap.String("owner", string(owner)),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("checked", run.Checked),
		zap.Int("corrected", run.Corrected),
	)
	return run, nil
}

func (e *Engine) reconcile(ctx context.Context, run *ledger.ReconcileRun, year int, month time.Month) error {
	records, err := e.ledger.ListAttendance(ctx, run.OwnerID, year, month)
	if err != nil {
		return err
	}
	members, err := e.roster.ListMembers(ctx, run.OwnerID)
	if err != nil {
		return err
	}

	done := sumByName(records)
	for _, m := range members {
		if m.Accrual.After(year, month) {
			continue
		}
		run.Checked++
		want, ok := done[ledger.NormalizeName(m.RealName)]
		if !ok {
			want = ledger.ZeroHours()
		}
		if m.Accrual.Tracks(year, month) && m.Accrual.WorkedHours.Equal(want) {
			continue
		}
		acc, err := e.roster.ResetAccrual(ctx, run.OwnerID, m.ID, year, month, want)
		if err != nil {
			if errors.Is(err, ledger.ErrMemberNotFound) {
				continue
			}
			return err
		}
		if !acc.Tracks(year, month) {
			continue
		}
		run.Corrected++
		e.logger.Debug("accrual corrected",
			zap.String("name", m.RealName),
			zap.String("was", m.Accrual.WorkedHours.String()),
			zap.String("now", want.String()),
		)
	}
	return nil
}

// ReconcileAll reconciles every owner for a month. It keeps going past a
// failing owner and returns the joined errors.
func (e *Engine) ReconcileAll(ctx context.Context, year int, month time.Month) ([]ledger.ReconcileRun, error) {
	owners, err := e.roster.ListOwners(ctx)
	if err != nil {
		return nil, err
	}

	var runs []ledger.ReconcileRun
	var errs []error
	for _, owner := range owners {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		run, err := e.ReconcileAccruals(ctx, owner, year, month)
		if run != nil {
			runs = append(runs, *run)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
		}
	}
	return runs, errors.Join(errs...)
}

// ReconcileRuns lists the owner's recorded runs, newest first. Empty
// without a RunStore.
func (e *Engine) ReconcileRuns(ctx context.Context, owner ledger.OwnerID) ([]ledger.ReconcileRun, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	if e.runs == nil {
		return nil, nil
	}
	return e.runs.ListReconcileRuns(ctx, owner)
}

// monthTotal is one member's overtime on the ledger for a month.
func (e *Engine) monthTotal(ctx context.Context, owner ledger.OwnerID, realName string, year int, month time.Month) (ledger.Amount, error) {
	records, err := e.ledger.ListAttendance(ctx, owner, year, month)
	if err != nil {
		return ledger.Amount{}, err
	}
	if total, ok := sumByName(records)[ledger.NormalizeName(realName)]; ok {
		return total, nil
	}
	return ledger.ZeroHours(), nil
}

func sumByName(records []ledger.AttendanceRecord) map[string]ledger.Amount {
	done := make(map[string]ledger.Amount)
	for _, r := range records {
		key := ledger.NormalizeName(r.RealName)
		cur, ok := done[key]
		if !ok {
			cur = ledger.ZeroHours()
		}
		done[key] = cur.Add(r.OvertimeHours)
	}
	return done
}

func validMonth(year int, month time.Month) error {
	if month < time.January || month > time.December || year < 2000 || year > 2100 {
		return fmt.Errorf("%w: %d-%02d", ledger.ErrInvalidPeriod, year, int(month))
	}
	return nil
}
