package bot

import (
	"math/rand"

	"tabletop/internal/domain/fourchess"
)

// WeightedFourChess samples uniformly among the highest-weighted legal moves.
// King captures outrank other captures, which outrank quiet moves.
type WeightedFourChess struct {
	Tuning Tuning
	Rng    *rand.Rand
}

func (b *WeightedFourChess) Propose(s fourchess.State, seat int) (fourchess.Move, bool) {
	moves := fourchess.GenerateMoves(s, seat)
	if len(moves) == 0 {
		return fourchess.Move{}, false
	}

	best := -1
	var top []fourchess.Move
	for _, mv := range moves {
		w := b.weight(mv)
		if w > best {
			best = w
			top = top[:0]
		}
		if w == best {
			top = append(top, mv)
		}
	}
	return top[b.Rng.Intn(len(top))], true
}

func (b *WeightedFourChess) weight(mv fourchess.Move) int {
	switch mv.Captured {
	case fourchess.NoPiece:
		return b.Tuning.QuietWeight
	case fourchess.King:
		return b.Tuning.KingWeight
	default:
		return b.Tuning.CaptureWeight
	}
}
