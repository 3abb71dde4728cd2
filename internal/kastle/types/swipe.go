package types

import "time"

// Direction is the side of the door a swipe was recorded on.
type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// Unknown is the placeholder used when a person or card field is blank.
const Unknown = "Unknown"

// IdentityKey correlates swipes into sessions.  Two events belong to the same
// identity only when all three fields match exactly.
type IdentityKey struct {
	Person string `json:"person"`
	Card   string `json:"card"`
	Suite  string `json:"suite"`
}

func (k IdentityKey) String() string {
	return k.Person + "/" + k.Card + "/" + k.Suite
}

// Less orders keys by person, card, then suite.
func (k IdentityKey) Less(o IdentityKey) bool {
	if k.Person != o.Person {
		return k.Person < o.Person
	}
	if k.Card != o.Card {
		return k.Card < o.Card
	}
	return k.Suite < o.Suite
}

// SwipeEvent is one normalized reader row.
type SwipeEvent struct {
	Key       IdentityKey
	Timestamp time.Time
	Direction Direction
	Reader    string
}
