package app

import (
	"context"
	"fmt"

	"tabletop/internal/bot"
	"tabletop/internal/domain"
	"tabletop/internal/domain/carrom"
	"tabletop/internal/domain/chess"
	"tabletop/internal/domain/fourchess"
)

// Rules is the game-kind specific half of a match. The set of implementations is closed:
// chessRules, fourRules and carromRules. Every method is a pure function of the receiver;
// apply and forfeit return a new value and leave the receiver untouched.
type Rules interface {
	Kind() domain.GameKind
	Turn() int
	Outcome() domain.Outcome
	// Scores returns per-seat tallies or nil for games without points.
	Scores() []int

	apply(seat int, in domain.Intent) (Rules, applied, error)
	forfeit(seat int, reason string) Rules
	propose(ctx context.Context, agent *bot.Agent, seat int) (domain.Intent, error)
	view(s *Snapshot)
}

// applied is what the match needs to know about an accepted intent.
type applied struct {
	Action  string
	Warning error
}

// NewRules returns the starting rules value for kind.
func NewRules(kind domain.GameKind, seats int, params carrom.Params) (Rules, error) {
	lo, hi := kind.SeatRange()
	if lo == 0 {
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}
	if seats < lo || seats > hi {
		return nil, fmt.Errorf("%s needs %d-%d seats, got %d", kind, lo, hi, seats)
	}
	switch kind {
	case domain.KindChess:
		return chessRules{state: chess.NewState()}, nil
	case domain.KindFourChess:
		return fourRules{state: fourchess.NewState()}, nil
	default:
		s, err := carrom.NewState(params, seats)
		if err != nil {
			return nil, err
		}
		return carromRules{state: s}, nil
	}
}

func wantMove(in domain.Intent) (*domain.MoveIntent, error) {
	if in.Kind != domain.IntentMove || in.Move == nil {
		return nil, fmt.Errorf("%w: expected a move", domain.ErrIllegalIntent)
	}
	return in.Move, nil
}

// chess

type chessRules struct {
	state    chess.State
	last     *chess.LastMove
	forfeits *domain.Outcome
}

func (r chessRules) Kind() domain.GameKind { return domain.KindChess }
func (r chessRules) Turn() int             { return int(r.state.Turn()) }
func (r chessRules) Scores() []int         { return nil }

func (r chessRules) Outcome() domain.Outcome {
	if r.forfeits != nil {
		return *r.forfeits
	}
	return r.state.Outcome()
}

func (r chessRules) apply(seat int, in domain.Intent) (Rules, applied, error) {
	mv, err := wantMove(in)
	if err != nil {
		return r, applied{}, err
	}
	if r.forfeits != nil {
		return r, applied{}, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, domain.ErrMatchOver)
	}
	res, err := r.state.ApplyMove(chess.Color(seat), chess.Move{From: mv.From, To: mv.To, Promotion: mv.Promotion})
	if err != nil {
		return r, applied{}, err
	}
	last := res.LastMove
	return chessRules{state: res.State, last: &last}, applied{Action: last.UCI()}, nil
}

func (r chessRules) forfeit(seat int, reason string) Rules {
	if r.Outcome().Terminal {
		return r
	}
	o := r.state.Forfeit(chess.Color(seat), reason)
	r.forfeits = &o
	return r
}

func (r chessRules) propose(ctx context.Context, agent *bot.Agent, seat int) (domain.Intent, error) {
	mv, err := agent.PlayChess(ctx, r.state)
	if err != nil {
		return domain.Intent{}, err
	}
	return domain.Move(mv.From, mv.To, mv.Promotion), nil
}

func (r chessRules) view(s *Snapshot) {
	s.Chess = &ChessView{
		FEN:      r.state.FEN(),
		ToMove:   r.state.Turn().String(),
		History:  r.state.History(),
		InCheck:  r.state.InCheck(),
		LastMove: r.last,
	}
}

// four-player chess

type fourRules struct {
	state fourchess.State
	last  *fourchess.Move
}

func (r fourRules) Kind() domain.GameKind   { return domain.KindFourChess }
func (r fourRules) Turn() int               { return r.state.Turn }
func (r fourRules) Outcome() domain.Outcome { return r.state.Outcome }
func (r fourRules) Scores() []int           { return nil }

func (r fourRules) apply(seat int, in domain.Intent) (Rules, applied, error) {
	mv, err := wantMove(in)
	if err != nil {
		return r, applied{}, err
	}
	from, err := fourchess.ParseSquare(mv.From)
	if err != nil {
		return r, applied{}, err
	}
	to, err := fourchess.ParseSquare(mv.To)
	if err != nil {
		return r, applied{}, err
	}
	next, res, err := fourchess.ApplyMove(r.state, seat, from, to)
	if err != nil {
		return r, applied{}, err
	}
	action := from.String() + "-" + to.String()
	if res.Eliminated >= 0 {
		action += fmt.Sprintf(" x%d", res.Eliminated)
	}
	return fourRules{state: next, last: &res.Move}, applied{Action: action}, nil
}

func (r fourRules) forfeit(seat int, reason string) Rules {
	return fourRules{state: fourchess.Forfeit(r.state, seat, reason), last: r.last}
}

func (r fourRules) propose(_ context.Context, agent *bot.Agent, seat int) (domain.Intent, error) {
	mv, ok := agent.PlayFourChess(r.state, seat)
	if !ok {
		return domain.Intent{}, fmt.Errorf("%w: seat %d has no legal move", domain.ErrIllegalIntent, seat)
	}
	return domain.Move(mv.From.String(), mv.To.String(), ""), nil
}

func (r fourRules) view(s *Snapshot) {
	s.FourChess = &FourChessView{
		Board:      r.state.Board,
		Eliminated: r.state.Eliminated,
		Plies:      r.state.Plies,
		LastMove:   r.last,
	}
}

// carrom

type carromRules struct {
	state carrom.State
	last  *ShotView
}

func (r carromRules) Kind() domain.GameKind   { return domain.KindCarrom }
func (r carromRules) Turn() int               { return r.state.Turn }
func (r carromRules) Outcome() domain.Outcome { return r.state.Outcome }
func (r carromRules) Scores() []int           { return append([]int(nil), r.state.Scores...) }

func (r carromRules) apply(seat int, in domain.Intent) (Rules, applied, error) {
	if in.Kind != domain.IntentShoot || in.Shoot == nil {
		return r, applied{}, fmt.Errorf("%w: expected a shot", domain.ErrIllegalIntent)
	}
	shot := carrom.Shot{Angle: in.Shoot.Angle, Power: in.Shoot.Power, OriginX: in.Shoot.OriginX}
	next, res, err := carrom.Shoot(r.state, seat, shot)
	if err != nil {
		return r, applied{}, err
	}

	view := &ShotView{Foul: res.Foul, Continued: res.Continued, Points: res.Points, Steps: res.Steps}
	for _, b := range res.Pocketed {
		view.Pocketed = append(view.Pocketed, b.ID)
	}
	out := applied{Action: in.String()}
	if !res.Converged {
		out.Warning = fmt.Errorf("%w: seat %d shot stopped after %d steps", domain.ErrSimulationNonconvergence, seat, res.Steps)
	}
	return carromRules{state: next, last: view}, out, nil
}

func (r carromRules) forfeit(seat int, reason string) Rules {
	return carromRules{state: carrom.Forfeit(r.state, seat, reason), last: r.last}
}

func (r carromRules) propose(_ context.Context, agent *bot.Agent, seat int) (domain.Intent, error) {
	shot := agent.PlayCarrom(r.state, seat)
	return domain.Shoot(shot.Angle, shot.Power, shot.OriginX), nil
}

func (r carromRules) view(s *Snapshot) {
	s.Carrom = &CarromView{
		Table:    r.state.Table.Clone(),
		Shots:    r.state.Shots,
		LastShot: r.last,
	}
}
