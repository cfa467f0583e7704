package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/domain"
	"tabletop/internal/domain/chess"
	"tabletop/internal/ports"
)

// OracleChess asks a best-move oracle and falls back to a uniformly random
// legal move when the oracle fails, has no answer, or answers with an illegal move.
type OracleChess struct {
	Oracle ports.MoveOracle
	Level  int
	Tuning Tuning
	Rng    *rand.Rand
	Logger runtime.Logger
}

func (b *OracleChess) Propose(ctx context.Context, s chess.State) (chess.Move, error) {
	legal := s.LegalMoves()
	if len(legal) == 0 {
		return chess.Move{}, fmt.Errorf("%w: no legal moves for %s", domain.ErrIllegalIntent, s.Turn())
	}

	if b.Oracle != nil {
		mv, err := b.ask(ctx, s)
		switch {
		case err != nil:
			b.warn("OracleChess: %v; playing a random legal move", err)
		case mv == nil:
			b.warn("OracleChess: oracle had no move for %s; playing a random legal move", s.FEN())
		default:
			if found, ok := match(legal, *mv); ok {
				return found, nil
			}
			b.warn("OracleChess: oracle move %s is not legal in %s; playing a random legal move", mv.UCI(), s.FEN())
		}
	}
	return legal[b.Rng.Intn(len(legal))], nil
}

func (b *OracleChess) ask(ctx context.Context, s chess.State) (*chess.Move, error) {
	res, err := b.Oracle.BestMove(ctx, ports.OracleRequest{
		FEN:        s.FEN(),
		SkillLevel: b.Level,
		Depth:      b.Tuning.Depth(b.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	}
	if res == nil {
		return nil, nil
	}
	uci := strings.TrimSpace(res.UCI)
	if len(uci) < 4 || uci == "(none)" {
		return nil, nil
	}
	mv := chess.Move{From: uci[0:2], To: uci[2:4]}
	if len(uci) > 4 {
		mv.Promotion = uci[4:5]
	}
	return &mv, nil
}

// match finds mv in legal. A missing promotion piece reads as a queen.
func match(legal []chess.Move, mv chess.Move) (chess.Move, bool) {
	promo := mv.Promotion
	for _, candidate := range legal {
		if candidate.From != mv.From || candidate.To != mv.To {
			continue
		}
		if candidate.Promotion == promo || (promo == "" && candidate.Promotion == "q") {
			return candidate, true
		}
	}
	return chess.Move{}, false
}

func (b *OracleChess) warn(format string, args ...interface{}) {
	if b.Logger != nil {
		b.Logger.Warn(format, args...)
	}
}
