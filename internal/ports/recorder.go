package ports

import (
	"context"
	"time"
)

// LogEntry is one accepted action in a match, in the order it was applied.
type LogEntry struct {
	Seat   int       `json:"seat"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// RecordSeat is the participant bound to a seat when the match ended.
type RecordSeat struct {
	Seat     int    `json:"seat"`
	UserID   string `json:"user_id"`
	Scripted bool   `json:"scripted"`
}

// Record is the final result of a match handed to persistence.
type Record struct {
	ID           string       `json:"id"`
	MatchID      string       `json:"match_id"`
	Kind         string       `json:"kind"`
	Participants []RecordSeat `json:"participants"`
	Winner       int          `json:"winner"` // seat index, -1 for a draw
	WinnerID     string       `json:"winner_id,omitempty"`
	Reason       string       `json:"reason"`
	Scores       []int        `json:"scores,omitempty"`
	Log          []LogEntry   `json:"log"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      time.Time    `json:"ended_at"`
}

// MatchRecorder persists finished matches.
type MatchRecorder interface {
	// Record stores the final record. It is called exactly once per finished match.
	Record(ctx context.Context, rec Record) error
}
