package attendance

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/overtime-engine/ledger"
)

// Engine runs attendance passes and the operations around them (staging
// review, roster maintenance, monthly summary, reconciliation).
type Engine struct {
	roster  ledger.RosterStore
	ledger  ledger.AttendanceStore
	staging ledger.StagingStore
	runs    ledger.RunStore // optional
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunStore records reconciliation runs in rs.
func WithRunStore(rs ledger.RunStore) Option {
	return func(e *Engine) { e.runs = rs }
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(roster ledger.RosterStore, attendance ledger.AttendanceStore, staging ledger.StagingStore, opts ...Option) *Engine {
	e := &Engine{
		roster:  roster,
		ledger:  attendance,
		staging: staging,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// SUBMIT ATTENDANCE TEXT
// =============================================================================

// SubmitAttendanceText runs one pass over raw for owner.
//
// Lines are applied one at a time in input order. Line-level problems are
// counted in the Outcome and never stop the pass. A store failure stops it:
// the partial Outcome is returned with a *ledger.PassAbortedError, and lines
// applied before the failure stay written.
//
// A zero date means today.
func (e *Engine) SubmitAttendanceText(ctx context.Context, owner ledger.OwnerID, raw string, mode Mode, date ledger.TimePoint) (*Outcome, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ledger.ErrEmptyText
	}
	if !mode.Valid() {
		return nil, ledger.ErrInvalidMode
	}
	if date.IsZero() {
		date = ledger.DateOf(e.now())
	}

	log := e.logger.With(
		zap.String("owner", string(owner)),
		zap.String("mode", string(mode)),
		zap.String("date", date.String()),
	)

	// One roster snapshot per pass.
	members, err := e.roster.ListMembers(ctx, owner)
	if err != nil {
		log.Error("failed to load roster", zap.Error(err))
		return nil, &ledger.PassAbortedError{Line: 0, Err: err}
	}

	lines := Classify(raw)
	session := NewParseSession(owner, mode, date, members)
	actions := session.Plan(lines)
	outcome := session.Outcome()

	for _, issue := range outcome.Issues {
		log.Warn("line skipped", zap.Int("line", issue.Line), zap.String("reason", issue.Reason))
	}

	if err := e.stageCandidates(ctx, owner, session.Candidates()); err != nil {
		log.Error("failed to stage candidates", zap.Error(err))
		return outcome, &ledger.PassAbortedError{Line: 0, Err: err}
	}

	for _, a := range actions {
		err := e.apply(ctx, session, a)
		if err == nil {
			continue
		}
		if isLineError(err) {
			outcome.skip(a.Line, err)
			log.Warn("line skipped", zap.Int("line", a.Line.Number), zap.Error(err))
			continue
		}
		log.Error("attendance pass aborted", zap.Int("line", a.Line.Number), zap.Error(err))
		return outcome, &ledger.PassAbortedError{Line: a.Line.Number, Err: err}
	}

	log.Info("attendance pass complete",
		zap.Int("lines", len(lines)),
		zap.Int("created", outcome.Created),
		zap.Int("updated", outcome.Updated),
		zap.Int("skipped", outcome.Skipped),
		zap.Int("ignored", outcome.Ignored),
		zap.Int("unresolved", len(outcome.Unresolved)),
	)
	return outcome, nil
}

// apply writes one action: a merge-upsert of the day's record, then the
// member's last check-in/out and, on check-out, the accrual move.
func (e *Engine) apply(ctx context.Context, s *ParseSession, a Action) error {
	at := a.Line.Time.String()
	patch := ledger.AttendancePatch{
		OwnerID:  s.Owner,
		RealName: a.Member.RealName,
		Nickname: a.Member.Nickname,
		Date:     s.Date,
	}

	var overtime ledger.Amount
	if s.Mode == CheckIn {
		patch.CheckIn = at
	} else {
		overtime = ledger.Hours(OvertimeHours(a.Member.ShiftStart.Clock(), a.Line.Time))
		patch.CheckOut = at
		patch.Overtime = &overtime
	}

	result, err := e.ledger.MergeAttendance(ctx, patch)
	if err != nil {
		return err
	}

	if s.Mode == CheckIn {
		if err := e.roster.RecordCheckIn(ctx, s.Owner, a.Member.ID, s.Date, at); err != nil {
			return err
		}
		s.outcome.count(result)
		e.logger.Debug("check-in applied",
			zap.Int("line", a.Line.Number),
			zap.String("name", a.Member.RealName),
			zap.String("at", at),
			zap.Bool("created", result.Created),
		)
		return nil
	}

	// Move the counter by this date's change only, so replaying a
	// check-out line leaves the accrual where it was. The counter counts
	// one month: a check-out dated in an earlier month stays on the ledger
	// only, one dated in a later month restarts the counter from that
	// month's ledger total.
	year, month := s.Date.Year(), s.Date.Month()
	move := ledger.AccrualMove{
		Year:   year,
		Month:  month,
		Delta:  overtime.Sub(result.PreviousOvertime),
		Worked: overtime,
	}
	if acc := a.Member.Accrual; !acc.Tracks(year, month) && !acc.After(year, month) {
		worked, err := e.monthTotal(ctx, s.Owner, a.Member.RealName, year, month)
		if err != nil {
			return err
		}
		move.Worked = worked
	}
	acc, err := e.roster.RecordCheckOut(ctx, s.Owner, a.Member.ID, at, move)
	if err != nil {
		return err
	}
	s.outcome.count(result)
	e.logger.Debug("check-out applied",
		zap.Int("line", a.Line.Number),
		zap.String("name", a.Member.RealName),
		zap.String("at", at),
		zap.String("overtime", overtime.String()),
		zap.String("delta", move.Delta.String()),
		zap.String("worked", acc.WorkedHours.String()),
		zap.String("remaining", acc.Remaining.String()),
	)
	return nil
}
