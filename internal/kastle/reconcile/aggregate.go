package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

const dateLayout = "2006-01-02"

type dayKey struct {
	key  types.IdentityKey
	date string
}

// DailyTotals groups complete sessions by identity and entry date and sums
// their durations.
//
// Completeness is the only filter: a NEGATIVE DURATION session still carries
// all three fields and is summed like any other.
func DailyTotals(sessions []types.Session) []types.DailyDurationSummary {
	totals := make(map[dayKey]float64)
	var keys []dayKey
	for _, s := range sessions {
		if !s.Complete() {
			continue
		}
		k := dayKey{key: s.Key, date: s.EntryTime.Format(dateLayout)}
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
		totals[k] += *s.DurationMinutes
	}

	out := make([]types.DailyDurationSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.DailyDurationSummary{
			Key:          k.key,
			Date:         k.date,
			TotalMinutes: round2(totals[k]),
		})
	}

	slices.SortStableFunc(out, func(a, b types.DailyDurationSummary) int {
		if c := strings.Compare(a.Key.Person, b.Key.Person); c != 0 {
			return c
		}
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.Key.Suite, b.Key.Suite); c != 0 {
			return c
		}
		return strings.Compare(a.Key.Card, b.Key.Card)
	})
	return out
}

// PersonTotals rolls daily totals up per person.  A day counts once per
// person even when several cards or suites were used on it.
func PersonTotals(daily []types.DailyDurationSummary) []types.PersonSummary {
	type acc struct {
		days  map[string]struct{}
		total float64
	}
	byPerson := make(map[string]*acc)
	var names []string
	for _, d := range daily {
		a, ok := byPerson[d.Key.Person]
		if !ok {
			a = &acc{days: make(map[string]struct{})}
			byPerson[d.Key.Person] = a
			names = append(names, d.Key.Person)
		}
		a.days[d.Date] = struct{}{}
		a.total += d.TotalMinutes
	}
	slices.Sort(names)

	out := make([]types.PersonSummary, 0, len(names))
	for _, n := range names {
		a := byPerson[n]
		ps := types.PersonSummary{
			Person:       n,
			DaysInOffice: len(a.days),
			TotalMinutes: round2(a.total),
		}
		if ps.DaysInOffice > 0 {
			ps.AverageMinutesPerDay = round2(a.total / float64(ps.DaysInOffice))
		}
		out = append(out, ps)
	}
	return out
}

// FormatHHMM renders minutes as HH:MM, truncating seconds, or "N/A" for zero.
func FormatHHMM(minutes float64) string {
	secs := int64(minutes * 60)
	if secs == 0 {
		return "N/A"
	}
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}
