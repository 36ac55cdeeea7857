/*
Package attendance turns pasted clock-in/clock-out text into ledger writes.

PIPELINE:
  raw text -> Classify -> []ParsedLine
           -> ParseSession.Plan (roster snapshot) -> []Action + staged candidates
           -> Engine.apply (sequential merge-upserts) -> Outcome

KEY CONCEPTS:
  - ParsedLine: One trimmed input line with its kind and extracted (name, time)
  - Roster: Exact-match name index over one roster snapshot
  - ParseSession: Pure planning step, no store access
  - Engine: Applies a plan against the stores and owns staging/roster operations

FILES:
  classifier.go: Line kinds and the patterns that recognize them
  resolver.go:   Name resolution against a roster snapshot
  overtime.go:   Plausibility check and the overtime formula
  staging.go:    Shift window table and staging review operations
  session.go:    ParseSession and Outcome
  engine.go:     SubmitAttendanceText
  roster.go:     Roster maintenance
  summary.go:    Monthly summary, month delete and accrual reconciliation
*/
package attendance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// MODE
// =============================================================================

type Mode string

const (
	CheckIn  Mode = "checkin"
	CheckOut Mode = "checkout"
)

func (m Mode) Valid() bool { return m == CheckIn || m == CheckOut }

// ParseMode accepts "checkin"/"checkout" plus the hyphenated and
// underscored spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "checkin", "check-in", "check_in", "in":
		return CheckIn, nil
	case "checkout", "check-out", "check_out", "out":
		return CheckOut, nil
	}
	return "", fmt.Errorf("%w: %q", ledger.ErrInvalidMode, s)
}

// =============================================================================
// LINE KINDS
// =============================================================================

type LineKind int

const (
	LineAttendance LineKind = iota
	LineLeave
	LineHeader
	LineMalformed
)

func (k LineKind) String() string {
	switch k {
	case LineAttendance:
		return "attendance"
	case LineLeave:
		return "leave"
	case LineHeader:
		return "header"
	case LineMalformed:
		return "malformed"
	}
	return "unknown"
}

// ParsedLine is one non-empty input line after classification.
// RealName and Time are set only for LineAttendance.
type ParsedLine struct {
	Number   int // 1-based among non-empty lines
	Text     string
	Kind     LineKind
	RealName string
	Time     ledger.ClockTime
	Err      error // why a line is LineMalformed
}

// =============================================================================
// PATTERNS
// =============================================================================

var (
	// Absence markers in Chinese and Vietnamese group chats. Case-sensitive:
	// markers are written lowercase, names are capitalized, so "Lý Phép"
	// stays a name.
	leavePattern = regexp.MustCompile(`休|事假|年假|病假|phép|nghỉ|việc riêng`)

	// Report titles pasted along with the list.
	headerPattern = regexp.MustCompile(
		`(?i)^(?:bảng\s+)?(?:chấm công|báo cáo|danh sách|tổng hợp|lên ca|xuống ca)` +
			`|^(?:打卡|考勤|签到|签退)` +
			`|^[=\-*#]{3,}`)

	// Optional ordinal ("1.", "2)", "3、"), a name of letters and marks,
	// a separator or plain whitespace, then H:MM or HH:MM. The name comes
	// first: "07:30 Nguyễn Văn A" does not match.
	attendancePattern = regexp.MustCompile(
		`^(?:\d+\s*[.)、]?\s*)?` +
			`([\p{L}\p{M}][\p{L}\p{M}\s]*?)` +
			`(?:\s*[/|,\-–—:：]\s*|\s+)` +
			`(\d{1,2}:\d{2})(?:\D|$)`)

	errNoAttendance = errors.New("line has no name and HH:MM time")
)

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify splits raw into trimmed non-empty lines and classifies each.
// It never fails: unreadable lines come back as LineMalformed.
func Classify(raw string) []ParsedLine {
	var lines []ParsedLine
	n := 0
	for _, text := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		n++
		lines = append(lines, ClassifyLine(n, text))
	}
	return lines
}

// ClassifyLine classifies a single trimmed line.
func ClassifyLine(number int, text string) ParsedLine {
	line := ParsedLine{Number: number, Text: text}
	normalized := ledger.NormalizeName(text)

	if leavePattern.MatchString(normalized) {
		line.Kind = LineLeave
		return line
	}
	if headerPattern.MatchString(normalized) {
		line.Kind = LineHeader
		return line
	}

	m := attendancePattern.FindStringSubmatch(normalized)
	if m == nil {
		line.Kind = LineMalformed
		line.Err = errNoAttendance
		return line
	}

	name := ledger.NormalizeName(m[1])
	at, err := ledger.ParseClock(m[2])
	if err != nil || name == "" {
		line.Kind = LineMalformed
		line.Err = err
		if err == nil {
			line.Err = ledger.ErrInvalidName
		}
		return line
	}

	line.Kind = LineAttendance
	line.RealName = name
	line.Time = at
	return line
}
