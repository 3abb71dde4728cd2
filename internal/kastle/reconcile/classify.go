package reconcile

import "github.com/jvanhook93/Kastle-script/internal/kastle/types"

// Classify returns the issue tag for a transition.  open reports whether the
// identity had a pending entry before dir arrived, last is the direction of
// the identity's previous event ("" if none) and duration is only consulted
// when an EXIT closes an open entry.
//
// The result depends on nothing but these arguments.
func Classify(open bool, dir, last types.Direction, duration float64) string {
	switch {
	case dir == types.DirectionEntry && open:
		return types.IssueDoubleEntry
	case dir == types.DirectionEntry:
		return types.IssueNone
	case open:
		if duration < 0 {
			return types.IssueNegativeDuration
		}
		return types.IssueNone
	case last == types.DirectionExit:
		return types.IssueDoubleExit
	default:
		return types.IssueExitWithoutEntry
	}
}

// Discrepancies returns the sessions whose issue tag is non-blank.
func Discrepancies(sessions []types.Session) []types.Session {
	out := []types.Session{}
	for _, s := range sessions {
		if s.Discrepant() {
			out = append(out, s)
		}
	}
	return out
}
