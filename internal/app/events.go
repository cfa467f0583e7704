package app

// EventKind identifies emitted match events for transport dispatch.
type EventKind string

const (
	EventMatchStarted  EventKind = "match_started"
	EventIntentApplied EventKind = "intent_applied"
	EventClockExpired  EventKind = "clock_expired"
)

// Event is one state change of a match. Every event carries the snapshot taken right
// after the change; a terminal snapshot is the match result.
type Event struct {
	Kind     EventKind
	Seat     int // acting or flagged seat, -1 for match_started
	Snapshot Snapshot
}

// Terminal reports whether this event ended the match.
func (e Event) Terminal() bool { return e.Snapshot.Terminal }
