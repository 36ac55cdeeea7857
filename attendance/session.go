package attendance

import (
	"errors"

	"github.com/warp/overtime-engine/ledger"
)

// =============================================================================
// OUTCOME
// =============================================================================

// LineIssue explains why a line was skipped.
type LineIssue struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Outcome aggregates one pass over pasted text.
type Outcome struct {
	Created    int         `json:"created"`
	Updated    int         `json:"updated"`
	Skipped    int         `json:"skipped"`
	Ignored    int         `json:"ignored"`    // leave and header lines
	Unresolved []string    `json:"unresolved"` // names staged for review, first-seen order
	Issues     []LineIssue `json:"issues"`
}

func newOutcome() *Outcome {
	return &Outcome{Unresolved: []string{}, Issues: []LineIssue{}}
}

func (o *Outcome) count(r ledger.MergeResult) {
	if r.Created {
		o.Created++
	} else {
		o.Updated++
	}
}

func (o *Outcome) skip(line ParsedLine, err error) {
	o.Skipped++
	o.Issues = append(o.Issues, LineIssue{Line: line.Number, Text: line.Text, Reason: err.Error()})
}

// =============================================================================
// PARSE SESSION - Pure planning over one roster snapshot
// =============================================================================

// Action is one resolved, plausible line ready to be written.
type Action struct {
	Line   ParsedLine
	Member ledger.StaffMember
}

// ParseSession carries everything one pass needs: the roster snapshot taken
// at the start of the pass, the outcome so far and the candidates to stage.
// Plan touches no store, so a session is a pure function of
// (lines, mode, roster).
type ParseSession struct {
	Owner ledger.OwnerID
	Mode  Mode
	Date  ledger.TimePoint

	roster     *Roster
	outcome    *Outcome
	candidates []ledger.UnresolvedCandidate
	staged     map[string]bool
}

func NewParseSession(owner ledger.OwnerID, mode Mode, date ledger.TimePoint, members []ledger.StaffMember) *ParseSession {
	return &ParseSession{
		Owner:   owner,
		Mode:    mode,
		Date:    date,
		roster:  NewRoster(members),
		outcome: newOutcome(),
		staged:  make(map[string]bool),
	}
}

// Outcome returns the outcome accumulated so far.
func (s *ParseSession) Outcome() *Outcome { return s.outcome }

// Candidates returns the unknown names seen, one per name.
func (s *ParseSession) Candidates() []ledger.UnresolvedCandidate { return s.candidates }

// Plan classifies every line and returns the writes to perform, in input
// order. Leave, header, malformed, ambiguous and implausible lines are
// counted on the outcome; unknown names become candidates.
func (s *ParseSession) Plan(lines []ParsedLine) []Action {
	var actions []Action
	for _, line := range lines {
		if a, ok := s.planLine(line); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func (s *ParseSession) planLine(line ParsedLine) (Action, bool) {
	switch line.Kind {
	case LineLeave, LineHeader:
		s.outcome.Ignored++
		return Action{}, false
	case LineMalformed:
		err := line.Err
		if err == nil {
			err = errNoAttendance
		}
		s.outcome.skip(line, err)
		return Action{}, false
	}

	member, err := s.roster.Resolve(line.RealName)
	if err != nil {
		s.outcome.skip(line, err)
		return Action{}, false
	}
	if member == nil {
		s.stage(line)
		return Action{}, false
	}

	if !Plausible(s.Mode, line.Time) {
		s.outcome.skip(line, &ledger.ImplausibleTimeError{
			RealName: member.RealName,
			Mode:     string(s.Mode),
			Time:     line.Time.String(),
		})
		return Action{}, false
	}

	return Action{Line: line, Member: *member}, true
}

func (s *ParseSession) stage(line ParsedLine) {
	key := ledger.NormalizeName(line.RealName)
	if s.staged[key] {
		return
	}
	s.staged[key] = true
	s.candidates = append(s.candidates, NewCandidate(key, s.Mode, line.Time))
	s.outcome.Unresolved = append(s.outcome.Unresolved, key)
}

// isLineError reports whether err belongs on a line rather than aborting a pass.
func isLineError(err error) bool {
	return errors.Is(err, ledger.ErrImplausibleTime) ||
		errors.Is(err, ledger.ErrAmbiguousName) ||
		errors.Is(err, ledger.ErrMemberNotFound)
}
