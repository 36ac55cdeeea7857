package ledger

import "time"

// Merge applies p on top of existing (nil when no record is stored yet)
// and returns the record to store.
//
// Only non-empty fields of p are written: a check-out merge never clears a
// stored check-in, and the reverse. The nickname follows the latest patch.
func Merge(existing *AttendanceRecord, p AttendancePatch, now time.Time) MergeResult {
	if existing == nil {
		rec := AttendanceRecord{
			ID:            p.Key(),
			OwnerID:       p.OwnerID,
			RealName:      NormalizeName(p.RealName),
			Nickname:      p.Nickname,
			CheckIn:       p.CheckIn,
			CheckOut:      p.CheckOut,
			CurrentDate:   p.Date,
			Month:         int(p.Date.Month()),
			Year:          p.Date.Year(),
			OvertimeHours: ZeroHours(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if p.Overtime != nil {
			rec.OvertimeHours = *p.Overtime
		}
		return MergeResult{Record: rec, Created: true, PreviousOvertime: ZeroHours()}
	}

	rec := *existing
	prev := rec.OvertimeHours
	if prev.Unit == "" {
		prev = ZeroHours()
	}
	if p.CheckIn != "" {
		rec.CheckIn = p.CheckIn
	}
	if p.CheckOut != "" {
		rec.CheckOut = p.CheckOut
	}
	if p.Nickname != "" {
		rec.Nickname = p.Nickname
	}
	if p.Overtime != nil {
		rec.OvertimeHours = *p.Overtime
	}
	rec.UpdatedAt = now
	return MergeResult{Record: rec, Created: false, PreviousOvertime: prev}
}
