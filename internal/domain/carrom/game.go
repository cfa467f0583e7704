package carrom

import (
	"fmt"
	"math"

	"tabletop/internal/domain"
)

// Shot is a shooter's request: direction in radians, launch speed and the
// striker's coordinate along the shooter's baseline.
type Shot struct {
	Angle   float64 `json:"angle"`
	Power   float64 `json:"power"`
	OriginX float64 `json:"origin_x"`
}

// State is the carrom match state: the table at rest plus turn and score bookkeeping.
type State struct {
	Params  Params         `json:"params"`
	Table   Table          `json:"table"`
	Seats   int            `json:"seats"`
	Turn    int            `json:"turn"`
	Scores  []int          `json:"scores"`
	Shots   int            `json:"shots"`
	Outcome domain.Outcome `json:"outcome"`
}

// ShotResult describes one resolved shot.
type ShotResult struct {
	Pocketed  []Body
	Foul      bool
	Continued bool
	NextSeat  int
	Steps     int
	Converged bool
	Points    int
}

// NewState racks a fresh table for 2 or 4 seats with seat 0 to shoot.
func NewState(p Params, seats int) (State, error) {
	if seats != 2 && seats != 4 {
		return State{}, fmt.Errorf("carrom needs 2 or 4 seats, got %d", seats)
	}
	p = p.WithDefaults()
	s := State{
		Params:  p,
		Table:   NewTable(p),
		Seats:   seats,
		Scores:  make([]int, seats),
		Outcome: domain.Ongoing(),
	}
	s.Table.Striker.Pos = BaselinePoint(p, SideBottom, p.Center())
	return s, nil
}

// Category returns the coin colour a seat plays for. Partners share a colour in four-seat games.
func Category(seat int) Class {
	if seat%2 == 0 {
		return White
	}
	return Black
}

// Side is the table edge a seat shoots from.
type Side int

const (
	SideBottom Side = iota
	SideLeft
	SideTop
	SideRight
)

// SeatSide returns the edge seat shoots from. Two players sit opposite each other. Four
// players go round the table in turn order, so partners 0/2 and 1/3 face each other.
func SeatSide(seats, seat int) Side {
	if seats == 4 {
		return Side(seat % 4)
	}
	if seat == 1 {
		return SideTop
	}
	return SideBottom
}

// Side returns the edge seat shoots from in this match.
func (s State) Side(seat int) Side { return SeatSide(s.Seats, seat) }

// BaselinePoint returns the striker position on side's baseline at coordinate along.
func BaselinePoint(p Params, side Side, along float64) Vec {
	along = math.Max(p.BaselineMin, math.Min(p.BaselineMax, along))
	near, far := p.PlayMin+p.BaselineOffset, p.PlayMax-p.BaselineOffset
	switch side {
	case SideTop:
		return Vec{X: along, Y: near}
	case SideLeft:
		return Vec{X: near, Y: along}
	case SideRight:
		return Vec{X: far, Y: along}
	default:
		return Vec{X: along, Y: far}
	}
}

// Along returns the coordinate of v along side's baseline axis.
func Along(side Side, v Vec) float64 {
	if side == SideLeft || side == SideRight {
		return v.Y
	}
	return v.X
}

// ForwardAngle is the direction from side's baseline towards the centre of the board.
func ForwardAngle(side Side) float64 {
	switch side {
	case SideTop:
		return math.Pi / 2
	case SideLeft:
		return 0
	case SideRight:
		return math.Pi
	default:
		return -math.Pi / 2
	}
}

// Shoot places the striker, sweeps the table to rest and applies scoring and turn rules.
func Shoot(s State, seat int, shot Shot) (State, ShotResult, error) {
	if s.Outcome.Terminal {
		return s, ShotResult{}, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, domain.ErrMatchOver)
	}
	if seat != s.Turn {
		return s, ShotResult{}, fmt.Errorf("%w: not seat %d's turn", domain.ErrIllegalIntent, seat)
	}
	for _, v := range []float64{shot.Angle, shot.Power, shot.OriginX} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, ShotResult{}, fmt.Errorf("%w: shot parameters must be finite", domain.ErrIllegalIntent)
		}
	}
	if shot.Power < 0 {
		return s, ShotResult{}, fmt.Errorf("%w: negative power", domain.ErrIllegalIntent)
	}

	p := s.Params
	next := s
	next.Table = s.Table.Clone()
	next.Scores = append([]int(nil), s.Scores...)

	power := math.Min(shot.Power, p.MaxPower)
	striker := &next.Table.Striker
	striker.Pos = BaselinePoint(p, next.Side(seat), shot.OriginX)
	striker.Vel = polar(shot.Angle, power)
	striker.Active = true

	sweep := next.Table.Sweep(p)
	res := ShotResult{
		Pocketed:  sweep.Pocketed,
		Foul:      sweep.Foul,
		Steps:     sweep.Steps,
		Converged: sweep.Converged,
	}

	own := 0
	for _, b := range sweep.Pocketed {
		if b.Class == Queen {
			res.Points += p.QueenPoints
			continue
		}
		res.Points += p.CoinPoints
		if b.Class == Category(seat) {
			own++
		}
	}
	if res.Foul {
		res.Points -= p.FoulPenalty
	}
	next.Scores[seat] = max(0, next.Scores[seat]+res.Points)
	next.Shots++

	res.NextSeat = (seat + 1) % next.Seats
	if !res.Foul && own > 0 {
		res.NextSeat = seat
		res.Continued = true
	}
	next.Turn = res.NextSeat

	// The striker always returns to the baseline of whoever shoots next, fouls included.
	*striker = Body{
		ID:     striker.ID,
		Class:  Striker,
		Pos:    BaselinePoint(p, next.Side(next.Turn), p.Center()),
		Radius: striker.Radius,
		Mass:   striker.Mass,
		Active: true,
	}

	if next.Table.Remaining(White) == 0 || next.Table.Remaining(Black) == 0 {
		next.Outcome = best(Standings(next.Scores), domain.ReasonBoardCleared)
	}
	return next, res, nil
}

// Standings folds seat scores into side totals. Four-seat games are played in
// partnerships, so entry 0 is seats 0+2 and entry 1 is seats 1+3.
func Standings(scores []int) []int {
	if len(scores) == 4 {
		return []int{scores[0] + scores[2], scores[1] + scores[3]}
	}
	return append([]int(nil), scores...)
}

// Forfeit ends the match with seat's side losing. In four-seat games the winner is
// named by the lower seat of the other partnership.
func Forfeit(s State, seat int, reason string) State {
	if s.Outcome.Terminal {
		return s
	}
	next := s
	next.Scores = append([]int(nil), s.Scores...)
	next.Outcome = domain.Win(1-seat%2, reason)
	return next
}

// best picks the unique top standing. A shared top standing is a draw. Index i of
// standings is seat i, or the partnership led by seat i in four-seat games.
func best(standings []int, reason string) domain.Outcome {
	winner, top, tied := domain.NoWinner, math.MinInt, false
	for i, sc := range standings {
		switch {
		case sc > top:
			winner, top, tied = i, sc, false
		case sc == top:
			tied = true
		}
	}
	if tied || winner == domain.NoWinner {
		return domain.Draw(reason)
	}
	return domain.Win(winner, reason)
}
