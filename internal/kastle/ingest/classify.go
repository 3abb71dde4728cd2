package ingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

var (
	entryWords = map[string]bool{"ENTRY": true, "ENTRANCE": true, "ENTER": true, "IN": true}
	exitWords  = map[string]bool{"EXIT": true, "OUT": true}

	wordSplit    = regexp.MustCompile(`[^A-Za-z0-9]+`)
	suitePattern = regexp.MustCompile(`(?i)\bsuite\s*#?\s*([A-Za-z0-9]+)`)
)

// classifyDirection returns ENTRY or EXIT when the text names exactly one of
// them, and false otherwise.
func classifyDirection(text string) (types.Direction, bool) {
	var hasEntry, hasExit bool
	for _, w := range wordSplit.Split(strings.ToUpper(text), -1) {
		switch {
		case entryWords[w]:
			hasEntry = true
		case exitWords[w]:
			hasExit = true
		}
	}
	switch {
	case hasEntry && !hasExit:
		return types.DirectionEntry, true
	case hasExit && !hasEntry:
		return types.DirectionExit, true
	default:
		return "", false
	}
}

// extractSuite pulls "Suite <id>" out of a reader label.  Labels without a
// suite fall back to the label minus its direction words, so the ENTRY and
// EXIT readers of one door share a zone.
func extractSuite(reader string) string {
	if m := suitePattern.FindStringSubmatch(reader); m != nil {
		return "Suite " + strings.ToUpper(m[1])
	}
	var kept []string
	for _, w := range strings.Fields(reader) {
		bare := strings.ToUpper(strings.Trim(w, "-_()[]:,."))
		if bare == "" || entryWords[bare] || exitWords[bare] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return types.Unknown
	}
	return strings.Trim(strings.Join(kept, " "), " -_:,")
}

var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04:05",
	"1/2/06 3:04 PM",
	"1/2/06 15:04",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006 3:04:05 PM",
	"2-Jan-2006 15:04:05",
	"2-Jan-2006 15:04",
	"2-Jan-2006 3:04:05 PM",
	"2-Jan-2006 3:04 PM",
	"01-02-06 15:04",
	"01-02-06 15:04:05",
}

var trailingZone = regexp.MustCompile(`\s+[A-Z]{2,4}$`)

// parseTimestamp parses a swipe time in the local wall clock of the export.
// A trailing zone abbreviation such as " CT" is ignored.  Matching is
// case-insensitive ("9:00 am").
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	if m := trailingZone.FindString(s); m != "" {
		if z := strings.TrimSpace(m); z != "AM" && z != "PM" {
			s = strings.TrimSpace(strings.TrimSuffix(s, m))
		}
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
