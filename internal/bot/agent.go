package bot

import (
	"context"

	"tabletop/internal/domain/carrom"
	"tabletop/internal/domain/chess"
	"tabletop/internal/domain/fourchess"
)

// Agent represents an autonomous scripted opponent. One agent serves one seat.
type Agent struct {
	ID    string
	Name  string
	Level int

	Chess     ChessBrain
	FourChess FourChessBrain
	Carrom    CarromBrain
}

// PlayChess asks the agent for its chess move.
func (a *Agent) PlayChess(ctx context.Context, s chess.State) (chess.Move, error) {
	return a.Chess.Propose(ctx, s)
}

// PlayFourChess asks the agent for its move as seat.
func (a *Agent) PlayFourChess(s fourchess.State, seat int) (fourchess.Move, bool) {
	return a.FourChess.Propose(s, seat)
}

// PlayCarrom asks the agent for its shot as seat.
func (a *Agent) PlayCarrom(s carrom.State, seat int) carrom.Shot {
	return a.Carrom.Propose(s, seat)
}
