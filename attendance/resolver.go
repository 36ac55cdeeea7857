package attendance

import (
	"github.com/warp/overtime-engine/ledger"
)

// Roster indexes one snapshot of an owner's staff by normalized real name.
// Matching is exact after NFC normalization; no case folding, no fuzzy match.
type Roster struct {
	byName map[string][]ledger.StaffMember
}

func NewRoster(members []ledger.StaffMember) *Roster {
	r := &Roster{byName: make(map[string][]ledger.StaffMember, len(members))}
	for _, m := range members {
		r.Add(m)
	}
	return r
}

// Add indexes m. Used when staging confirmation promotes a candidate.
func (r *Roster) Add(m ledger.StaffMember) {
	key := ledger.NormalizeName(m.RealName)
	r.byName[key] = append(r.byName[key], m)
}

// Contains reports whether any member has this name.
func (r *Roster) Contains(name string) bool {
	return len(r.byName[ledger.NormalizeName(name)]) > 0
}

// Resolve returns the single member named name, or nil when nobody matches.
// More than one match is an *ledger.AmbiguousNameError.
func (r *Roster) Resolve(name string) (*ledger.StaffMember, error) {
	key := ledger.NormalizeName(name)
	matches := r.byName[key]
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		m := matches[0]
		return &m, nil
	}

	ids := make([]ledger.MemberID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return nil, &ledger.AmbiguousNameError{RealName: key, Matches: ids}
}
