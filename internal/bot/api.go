package bot

import (
	"context"

	"tabletop/internal/domain/carrom"
	"tabletop/internal/domain/chess"
	"tabletop/internal/domain/fourchess"
)

// ChessBrain proposes a move for the side to move.
type ChessBrain interface {
	Propose(ctx context.Context, s chess.State) (chess.Move, error)
}

// FourChessBrain proposes a move for seat. ok is false when seat has no legal move.
type FourChessBrain interface {
	Propose(s fourchess.State, seat int) (mv fourchess.Move, ok bool)
}

// CarromBrain proposes a shot for seat.
type CarromBrain interface {
	Propose(s carrom.State, seat int) carrom.Shot
}
