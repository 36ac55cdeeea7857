package attendance

import (
	"github.com/warp/overtime-engine/ledger"
)

const (
	// AdminShiftMinutes is the nominal shift length the overtime baseline sits on.
	AdminShiftMinutes = 9 * 60

	// GraceMinutes of overage are never credited.
	GraceMinutes = 60
)

// OvertimeHours returns whole overtime hours for a check-out at out by a
// member whose shift starts at start:
//
//	diff = out - (start + 9h)
//	diff < 60 min -> 0
//	otherwise     -> floor(diff / 60)
//
// Both times are minutes of the same day. A night shift whose check-out
// falls after midnight therefore yields 0.
func OvertimeHours(start, out ledger.ClockTime) int {
	diff := out.Minutes() - (start.Minutes() + AdminShiftMinutes)
	if diff < GraceMinutes {
		return 0
	}
	return diff / 60
}

// Plausible reports whether at fits mode: check-ins happen before noon,
// check-outs at or after noon.
func Plausible(mode Mode, at ledger.ClockTime) bool {
	if mode == CheckIn {
		return at.IsMorning()
	}
	return !at.IsMorning()
}
