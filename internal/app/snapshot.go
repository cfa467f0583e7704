package app

import (
	"encoding/json"

	"tabletop/internal/domain/carrom"
	"tabletop/internal/domain/chess"
	"tabletop/internal/domain/fourchess"
)

// Snapshot is everything a client needs to render a match without replaying history.
// Exactly one of Chess, FourChess and Carrom is set.
type Snapshot struct {
	MatchID  string      `json:"match_id"`
	Kind     string      `json:"kind"`
	Seq      int         `json:"seq"`
	Turn     int         `json:"turn"`
	Terminal bool        `json:"terminal"`
	Winner   int         `json:"winner"`
	Reason   string      `json:"reason,omitempty"`
	Seats    []SeatView  `json:"seats"`
	Clock    []ClockView `json:"clock,omitempty"`
	Scores   []int       `json:"scores,omitempty"`

	Chess     *ChessView     `json:"chess,omitempty"`
	FourChess *FourChessView `json:"four_chess,omitempty"`
	Carrom    *CarromView    `json:"carrom,omitempty"`
}

type SeatView struct {
	Seat     int    `json:"seat"`
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Scripted bool   `json:"scripted"`
}

// ClockView reports the budget stored at the last accepted intent. Running marks the seat
// whose time is being consumed; clients count down locally.
type ClockView struct {
	Seat        int   `json:"seat"`
	RemainingMs int64 `json:"remaining_ms"`
	Running     bool  `json:"running"`
}

type ChessView struct {
	FEN      string          `json:"fen"`
	ToMove   string          `json:"to_move"`
	History  []string        `json:"history"`
	InCheck  bool            `json:"in_check"`
	LastMove *chess.LastMove `json:"last_move,omitempty"`
}

type FourChessView struct {
	Board      fourchess.Board       `json:"board"`
	Eliminated [fourchess.Seats]bool `json:"eliminated"`
	Plies      int                   `json:"plies"`
	LastMove   *fourchess.Move       `json:"last_move,omitempty"`
}

type CarromView struct {
	Table    carrom.Table `json:"table"`
	Shots    int          `json:"shots"`
	LastShot *ShotView    `json:"last_shot,omitempty"`
}

// ShotView summarises the most recent carrom shot.
type ShotView struct {
	Pocketed  []string `json:"pocketed,omitempty"`
	Foul      bool     `json:"foul"`
	Continued bool     `json:"continued"`
	Points    int      `json:"points"`
	Steps     int      `json:"steps"`
}

// Encode renders the snapshot as the JSON payload broadcast to clients.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}
