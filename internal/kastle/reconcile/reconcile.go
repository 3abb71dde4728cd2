// Package reconcile pairs ENTRY/EXIT swipes into sessions and rolls complete
// sessions up into daily totals.
package reconcile

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

var (
	ErrNoEvents         = errors.New("no ENTRY/EXIT events to reconcile")
	ErrUnknownDirection = errors.New("unknown swipe direction")
)

type pendingEntry struct {
	time   time.Time
	reader string
}

// identityState is the pairing memory for one identity.  entry is nil while
// the identity is CLOSED.
type identityState struct {
	entry *pendingEntry
	last  types.Direction
}

// Reconcile consumes events already sorted by identity and timestamp and
// returns the sessions they produce, in emission order.
//
// State lives only for the duration of the call, so concurrent calls on
// different event sets never interact.
func Reconcile(events []types.SwipeEvent) ([]types.Session, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	state := make(map[types.IdentityKey]*identityState)
	var order []types.IdentityKey
	sessions := make([]types.Session, 0, len(events)/2+1)

	for i, ev := range events {
		st, ok := state[ev.Key]
		if !ok {
			st = &identityState{}
			state[ev.Key] = st
			order = append(order, ev.Key)
		}

		switch ev.Direction {
		case types.DirectionEntry:
			if st.entry != nil {
				sessions = append(sessions, openSession(ev.Key, *st.entry, Classify(true, ev.Direction, st.last, 0)))
			}
			st.entry = &pendingEntry{time: ev.Timestamp, reader: ev.Reader}

		case types.DirectionExit:
			if st.entry != nil {
				sessions = append(sessions, pairedSession(ev, *st.entry, st.last))
				st.entry = nil
			} else {
				exit := ev.Timestamp
				sessions = append(sessions, types.Session{
					Key:        ev.Key,
					ExitReader: ev.Reader,
					ExitTime:   &exit,
					Issue:      Classify(false, ev.Direction, st.last, 0),
				})
			}

		default:
			return nil, fmt.Errorf("event %d (%s): %w %q", i, ev.Key, ErrUnknownDirection, ev.Direction)
		}

		st.last = ev.Direction
	}

	for _, key := range order {
		if st := state[key]; st.entry != nil {
			sessions = append(sessions, openSession(key, *st.entry, types.IssueMissingExit))
		}
	}

	return sessions, nil
}

func openSession(key types.IdentityKey, e pendingEntry, issue string) types.Session {
	entry := e.time
	return types.Session{
		Key:         key,
		EntryReader: e.reader,
		EntryTime:   &entry,
		Issue:       issue,
	}
}

func pairedSession(ev types.SwipeEvent, e pendingEntry, last types.Direction) types.Session {
	entry, exit := e.time, ev.Timestamp
	dur := DurationMinutes(entry, exit)
	return types.Session{
		Key:             ev.Key,
		EntryReader:     e.reader,
		EntryTime:       &entry,
		ExitReader:      ev.Reader,
		ExitTime:        &exit,
		DurationMinutes: &dur,
		Issue:           Classify(true, ev.Direction, last, dur),
	}
}

// DurationMinutes is exit-entry in minutes, rounded to two decimal places.
func DurationMinutes(entry, exit time.Time) float64 {
	return round2(exit.Sub(entry).Minutes())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
