package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// SHIFT WINDOWS - Observed check-in time -> proposed shift
// =============================================================================

type shiftWindow struct {
	from, to int // minutes of day, inclusive
	shift    ledger.Shift
	start    ledger.ShiftStart
}

var shiftWindows = []shiftWindow{
	{from: 6*60 + 45, to: 7 * 60, shift: ledger.DayShift, start: ledger.ShiftStart0700},
	{from: 7*60 + 45, to: 8 * 60, shift: ledger.DayShift, start: ledger.ShiftStart0800},
	{from: 18*60 + 45, to: 19 * 60, shift: ledger.NightShift, start: ledger.ShiftStart1900},
	{from: 19*60 + 45, to: 20 * 60, shift: ledger.NightShift, start: ledger.ShiftStart2000},
}

// ClassifyShift buckets a check-in time into a shift and shift start.
// Times outside every window fall back to the day shift at 07:00.
func ClassifyShift(seen ledger.ClockTime) (ledger.Shift, ledger.ShiftStart) {
	m := seen.Minutes()
	for _, w := range shiftWindows {
		if m >= w.from && m <= w.to {
			return w.shift, w.start
		}
	}
	return ledger.DayShift, ledger.ShiftStart0700
}

// NewCandidate proposes a roster entry for an unknown name. Only a check-in
// time says anything about the shift, so a check-out sighting gets the
// defaults and no CheckInTimeSeen.
func NewCandidate(realName string, mode Mode, seen ledger.ClockTime) ledger.UnresolvedCandidate {
	c := ledger.UnresolvedCandidate{
		RealName:           ledger.NormalizeName(realName),
		ProposedNickname:   ledger.DefaultNickname(realName),
		ProposedShift:      ledger.DayShift,
		ProposedShiftStart: ledger.ShiftStart0700,
		Selected:           true,
	}
	if mode == CheckIn {
		c.ProposedShift, c.ProposedShiftStart = ClassifyShift(seen)
		c.CheckInTimeSeen = seen.String()
	}
	return c
}

// =============================================================================
// STAGING OPERATIONS
// =============================================================================

// CandidateEdit changes one staged candidate. Nil fields are left alone.
type CandidateEdit struct {
	Nickname   *string
	Shift      *ledger.Shift
	ShiftStart *ledger.ShiftStart
	Selected   *bool
}

// ConfirmResult reports a staging confirmation.
type ConfirmResult struct {
	Added   []ledger.StaffMember `json:"added"`
	Skipped []string             `json:"skipped"` // names already on the roster
	Dropped int                  `json:"dropped"` // unselected candidates discarded
}

// StagedCandidates returns the owner's candidates awaiting review.
func (e *Engine) StagedCandidates(ctx context.Context, owner ledger.OwnerID) ([]ledger.UnresolvedCandidate, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	return e.staging.LoadStaging(ctx, owner)
}

// EditCandidate applies edit to the staged candidate named realName.
func (e *Engine) EditCandidate(ctx context.Context, owner ledger.OwnerID, realName string, edit CandidateEdit) (*ledger.UnresolvedCandidate, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	if edit.Shift != nil && !edit.Shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidShift, *edit.Shift)
	}
	if edit.ShiftStart != nil && !edit.ShiftStart.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidShiftStart, *edit.ShiftStart)
	}

	candidates, err := e.staging.LoadStaging(ctx, owner)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		if !ledger.SameName(c.RealName, realName) {
			continue
		}
		if edit.Nickname != nil {
			c.ProposedNickname = *edit.Nickname
		}
		if edit.Shift != nil {
			c.ProposedShift = *edit.Shift
		}
		if edit.ShiftStart != nil {
			c.ProposedShiftStart = *edit.ShiftStart
		}
		if edit.Selected != nil {
			c.Selected = *edit.Selected
		}
		if err := e.staging.SaveStaging(ctx, owner, candidates); err != nil {
			return nil, err
		}
		edited := *c
		return &edited, nil
	}
	return nil, fmt.Errorf("%w: %q", ledger.ErrCandidateNotFound, realName)
}

// ConfirmStaging promotes every selected candidate to a StaffMember and
// clears staging. Names that reached the roster since they were staged are
// skipped and reported.
func (e *Engine) ConfirmStaging(ctx context.Context, owner ledger.OwnerID) (*ConfirmResult, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}

	candidates, err := e.staging.LoadStaging(ctx, owner)
	if err != nil {
		return nil, err
	}

	var selected []ledger.UnresolvedCandidate
	for _, c := range candidates {
		if c.Selected {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return nil, ledger.ErrNothingSelected
	}

	members, err := e.roster.ListMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	roster := NewRoster(members)
	accrual, err := e.openingAccrual(ctx, owner)
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Dropped: len(candidates) - len(selected)}
	for _, c := range selected {
		if roster.Contains(c.RealName) {
			result.Skipped = append(result.Skipped, c.RealName)
			e.logger.Warn("staged name already on roster",
				zap.String("owner", string(owner)), zap.String("name", c.RealName))
			continue
		}

		m := ledger.StaffMember{
			ID:         ledger.MemberID(uuid.NewString()),
			OwnerID:    owner,
			RealName:   c.RealName,
			Nickname:   c.ProposedNickname,
			Shift:      c.ProposedShift,
			ShiftStart: c.ProposedShiftStart,
			Accrual:    accrual,
			CreatedAt:  e.now(),
		}
		if m.Nickname == "" {
			m.Nickname = ledger.DefaultNickname(m.RealName)
		}
		if !m.Shift.Valid() {
			m.Shift = ledger.DayShift
		}
		if !m.ShiftStart.Valid() {
			m.ShiftStart = ledger.DefaultShiftStart(m.Shift)
		}

		if err := e.roster.CreateMember(ctx, m); err != nil {
			if ledger.IsConflict(err) {
				result.Skipped = append(result.Skipped, c.RealName)
				continue
			}
			return result, err
		}
		roster.Add(m)
		result.Added = append(result.Added, m)
	}

	if err := e.staging.ClearStaging(ctx, owner); err != nil {
		return result, err
	}

	e.logger.Info("staging confirmed",
		zap.String("owner", string(owner)),
		zap.Int("added", len(result.Added)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("dropped", result.Dropped),
	)
	return result, nil
}

// CancelStaging discards every staged candidate.
func (e *Engine) CancelStaging(ctx context.Context, owner ledger.OwnerID) error {
	if owner == "" {
		return ledger.ErrNoOwner
	}
	return e.staging.ClearStaging(ctx, owner)
}

// stageCandidates adds fresh candidates to whatever the owner already has
// staged. A name already staged keeps the operator's edits.
func (e *Engine) stageCandidates(ctx context.Context, owner ledger.OwnerID, fresh []ledger.UnresolvedCandidate) error {
	if len(fresh) == 0 {
		return nil
	}
	staged, err := e.staging.LoadStaging(ctx, owner)
	if err != nil {
		return err
	}
	merged := mergeCandidates(staged, fresh)
	if len(merged) == len(staged) {
		return nil
	}
	return e.staging.SaveStaging(ctx, owner, merged)
}

func mergeCandidates(staged, fresh []ledger.UnresolvedCandidate) []ledger.UnresolvedCandidate {
	seen := make(map[string]bool, len(staged))
	merged := make([]ledger.UnresolvedCandidate, 0, len(staged)+len(fresh))
	for _, c := range staged {
		seen[ledger.NormalizeName(c.RealName)] = true
		merged = append(merged, c)
	}
	for _, c := range fresh {
		key := ledger.NormalizeName(c.RealName)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}
	return merged
}
