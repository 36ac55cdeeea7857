package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/ledger"
)

// NewMember is an operator's manual roster entry. Only RealName is required.
type NewMember struct {
	RealName   string
	Nickname   string
	Shift      ledger.Shift
	ShiftStart ledger.ShiftStart
}

// ListMembers returns the owner's roster in creation order.
func (e *Engine) ListMembers(ctx context.Context, owner ledger.OwnerID) ([]ledger.StaffMember, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}
	return e.roster.ListMembers(ctx, owner)
}

// AddMember puts a new member on the roster.
//
// Defaults: nickname is the first character of the name, shift is the day
// shift, shift start is 07:00 for day shifts and 19:00 for night shifts.
// The accrual starts on the current month against that month's limit.
func (e *Engine) AddMember(ctx context.Context, owner ledger.OwnerID, in NewMember) (*ledger.StaffMember, error) {
	if owner == "" {
		return nil, ledger.ErrNoOwner
	}

	name := ledger.NormalizeName(in.RealName)
	if name == "" {
		return nil, ledger.ErrInvalidName
	}
	shift := in.Shift
	if shift == "" {
		shift = ledger.DayShift
	}
	if !shift.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidShift, shift)
	}
	start := in.ShiftStart
	if start == "" {
		start = ledger.DefaultShiftStart(shift)
	}
	if !start.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidShiftStart, start)
	}
	nickname := in.Nickname
	if nickname == "" {
		nickname = ledger.DefaultNickname(name)
	}

	members, err := e.roster.ListMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	if NewRoster(members).Contains(name) {
		return nil, fmt.Errorf("%w: %q", ledger.ErrDuplicateMember, name)
	}
	accrual, err := e.openingAccrual(ctx, owner)
	if err != nil {
		return nil, err
	}

	m := ledger.StaffMember{
		ID:         ledger.MemberID(uuid.NewString()),
		OwnerID:    owner,
		RealName:   name,
		Nickname:   nickname,
		Shift:      shift,
		ShiftStart: start,
		Accrual:    accrual,
		CreatedAt:  e.now(),
	}
	if err := e.roster.CreateMember(ctx, m); err != nil {
		return nil, err
	}

	e.logger.Info("member added",
		zap.String("owner", string(owner)),
		zap.String("id", string(m.ID)),
		zap.String("name", m.RealName),
	)
	return &m, nil
}

// DeleteMember removes a member. Their attendance records stay.
func (e *Engine) DeleteMember(ctx context.Context, owner ledger.OwnerID, id ledger.MemberID) error {
	if owner == "" {
		return ledger.ErrNoOwner
	}
	if err := e.roster.DeleteMember(ctx, owner, id); err != nil {
		return err
	}
	e.logger.Info("member deleted", zap.String("owner", string(owner)), zap.String("id", string(id)))
	return nil
}

// SetMonthlyLimit sets the owner's overtime cap for one month and returns
// how many members are on the roster. Other months keep their own caps.
func (e *Engine) SetMonthlyLimit(ctx context.Context, owner ledger.OwnerID, year int, month time.Month, limit ledger.Amount) (int, error) {
	if owner == "" {
		return 0, ledger.ErrNoOwner
	}
	if err := validMonth(year, month); err != nil {
		return 0, err
	}
	if !limit.IsPositive() {
		return 0, ledger.ErrInvalidLimit
	}
	n, err := e.roster.SetMonthlyLimit(ctx, owner, year, month, limit)
	if err != nil {
		return 0, err
	}
	e.logger.Info("monthly limit set",
		zap.String("owner", string(owner)),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.String("limit", limit.String()),
		zap.Int("members", n),
	)
	return n, nil
}

// MonthlyLimit returns the owner's overtime cap for a month, zero if unset.
func (e *Engine) MonthlyLimit(ctx context.Context, owner ledger.OwnerID, year int, month time.Month) (ledger.Amount, error) {
	if owner == "" {
		return ledger.Amount{}, ledger.ErrNoOwner
	}
	if err := validMonth(year, month); err != nil {
		return ledger.Amount{}, err
	}
	return e.roster.MonthlyLimit(ctx, owner, year, month)
}

// openingAccrual is the accrual a new member starts with: nothing worked
// this month, against this month's limit.
func (e *Engine) openingAccrual(ctx context.Context, owner ledger.OwnerID) (ledger.OvertimeAccrual, error) {
	today := ledger.DateOf(e.now())
	limit, err := e.roster.MonthlyLimit(ctx, owner, today.Year(), today.Month())
	if err != nil {
		return ledger.OvertimeAccrual{}, err
	}
	return ledger.NewAccrual().Reset(today.Year(), today.Month(), ledger.ZeroHours(), limit), nil
}
