package ports

import "context"

// OracleRequest asks for the best move in a chess position.
type OracleRequest struct {
	FEN        string
	SkillLevel int
	Depth      int
}

// OracleMove is a move in long algebraic notation, e.g. "e7e5" or "a2a1q".
type OracleMove struct {
	UCI string
}

// MoveOracle is an external best-move engine.
type MoveOracle interface {
	// BestMove returns (nil, nil) when the engine has no move to offer.
	BestMove(ctx context.Context, req OracleRequest) (*OracleMove, error)
}
