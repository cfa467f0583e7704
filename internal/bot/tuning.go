package bot

// Tuning holds the knobs of the geometric and weighted policies.
type Tuning struct {
	// Carrom: power per unit of total travel distance, capped by the table's max power.
	CarromPowerPerUnit float64
	// Carrom: total width of the uniform angle jitter in radians.
	CarromJitter float64
	// Carrom: fallback shot power when no coin is left to aim at.
	CarromFallbackPower float64

	// Four-player chess move weights.
	QuietWeight   int
	CaptureWeight int
	KingWeight    int

	// Chess oracle depth bounds.
	MinDepth int
	MaxDepth int
}

// DefaultTuning matches the reference engine's constants.
var DefaultTuning = Tuning{
	CarromPowerPerUnit:  0.18,
	CarromJitter:        0.05,
	CarromFallbackPower: 20,

	QuietWeight:   1,
	CaptureWeight: 2,
	KingWeight:    3,

	MinDepth: 1,
	MaxDepth: 15,
}

// Depth maps a skill level onto a search depth.
func (t Tuning) Depth(level int) int {
	return max(t.MinDepth, min(level, t.MaxDepth))
}
