// Package carrom is the deterministic carrom simulator and its turn rules.
package carrom

// Params holds every physical and scoring constant of a table.
type Params struct {
	BoardSize      float64 `json:"board_size"`
	PlayMin        float64 `json:"play_min"`
	PlayMax        float64 `json:"play_max"`
	PocketRadius   float64 `json:"pocket_radius"`
	CoinRadius     float64 `json:"coin_radius"`
	CoinMass       float64 `json:"coin_mass"`
	StrikerRadius  float64 `json:"striker_radius"`
	StrikerMass    float64 `json:"striker_mass"`
	Friction       float64 `json:"friction"`
	Restitution    float64 `json:"restitution"`
	RestSpeed      float64 `json:"rest_speed"`
	StepCeiling    int     `json:"step_ceiling"`
	TimeStep       float64 `json:"time_step"`
	BaselineOffset float64 `json:"baseline_offset"`
	BaselineMin    float64 `json:"baseline_min"`
	BaselineMax    float64 `json:"baseline_max"`
	MaxPower       float64 `json:"max_power"`
	SeparationSlop float64 `json:"separation_slop"`
	CoinPoints     int     `json:"coin_points"`
	QueenPoints    int     `json:"queen_points"`
	FoulPenalty    int     `json:"foul_penalty"`
}

// DefaultParams mirrors the reference table: an 800 unit board with a 700 unit playing field.
func DefaultParams() Params {
	return Params{
		BoardSize:      800,
		PlayMin:        50,
		PlayMax:        750,
		PocketRadius:   35,
		CoinRadius:     14,
		CoinMass:       1,
		StrikerRadius:  20,
		StrikerMass:    2,
		Friction:       0.985,
		Restitution:    0.7,
		RestSpeed:      0.1,
		StepCeiling:    5000,
		TimeStep:       1,
		BaselineOffset: 90,
		BaselineMin:    100,
		BaselineMax:    700,
		MaxPower:       50,
		SeparationSlop: 1,
		CoinPoints:     10,
		QueenPoints:    50,
		FoulPenalty:    10,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&p.BoardSize, d.BoardSize)
	fill(&p.PlayMin, d.PlayMin)
	fill(&p.PlayMax, d.PlayMax)
	fill(&p.PocketRadius, d.PocketRadius)
	fill(&p.CoinRadius, d.CoinRadius)
	fill(&p.CoinMass, d.CoinMass)
	fill(&p.StrikerRadius, d.StrikerRadius)
	fill(&p.StrikerMass, d.StrikerMass)
	fill(&p.Friction, d.Friction)
	fill(&p.Restitution, d.Restitution)
	fill(&p.RestSpeed, d.RestSpeed)
	fill(&p.TimeStep, d.TimeStep)
	fill(&p.BaselineOffset, d.BaselineOffset)
	fill(&p.BaselineMin, d.BaselineMin)
	fill(&p.BaselineMax, d.BaselineMax)
	fill(&p.MaxPower, d.MaxPower)
	fill(&p.SeparationSlop, d.SeparationSlop)
	if p.StepCeiling == 0 {
		p.StepCeiling = d.StepCeiling
	}
	if p.CoinPoints == 0 {
		p.CoinPoints = d.CoinPoints
	}
	if p.QueenPoints == 0 {
		p.QueenPoints = d.QueenPoints
	}
	if p.FoulPenalty == 0 {
		p.FoulPenalty = d.FoulPenalty
	}
	return p
}

// Center returns the board centre coordinate.
func (p Params) Center() float64 { return p.BoardSize / 2 }

// Pockets returns the four pocket centres at the corners of the playing field.
func (p Params) Pockets() [4]Vec {
	return [4]Vec{
		{X: p.PlayMin, Y: p.PlayMin},
		{X: p.PlayMax, Y: p.PlayMin},
		{X: p.PlayMin, Y: p.PlayMax},
		{X: p.PlayMax, Y: p.PlayMax},
	}
}
