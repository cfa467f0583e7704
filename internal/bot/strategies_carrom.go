package bot

import (
	"math"
	"math/rand"

	"tabletop/internal/domain/carrom"
)

// GeometricCarrom aims the striker so it drives a coin along the coin-to-pocket line.
// Every (active coin, pocket) pair is a candidate; the one with the least total travel wins.
type GeometricCarrom struct {
	Tuning Tuning
	Rng    *rand.Rand
}

func (b *GeometricCarrom) Propose(s carrom.State, seat int) carrom.Shot {
	p := s.Params
	side := s.Side(seat)
	var (
		best      carrom.Shot
		found     bool
		bestScore = math.Inf(1)
	)

	for _, coin := range s.Table.ActiveCoins() {
		for _, pocket := range p.Pockets() {
			toPocket := pocket.Sub(coin.Pos)
			travel := toPocket.Len()
			heading := toPocket.Angle()

			// Contact point: behind the coin on the coin-to-pocket line.
			reach := coin.Radius + p.StrikerRadius
			impact := coin.Pos.Sub(carrom.Vec{X: math.Cos(heading) * reach, Y: math.Sin(heading) * reach})

			origin := carrom.BaselinePoint(p, side, carrom.Along(side, impact))
			approach := impact.Sub(origin)
			dist := approach.Len()

			if score := travel + dist; score < bestScore {
				bestScore = score
				found = true
				best = carrom.Shot{
					Angle:   approach.Angle(),
					Power:   math.Min((dist+travel)*b.Tuning.CarromPowerPerUnit, p.MaxPower),
					OriginX: carrom.Along(side, origin),
				}
			}
		}
	}

	if !found {
		return carrom.Shot{
			Angle:   carrom.ForwardAngle(side),
			Power:   b.Tuning.CarromFallbackPower,
			OriginX: p.Center(),
		}
	}
	best.Angle += (b.Rng.Float64() - 0.5) * b.Tuning.CarromJitter
	return best
}
