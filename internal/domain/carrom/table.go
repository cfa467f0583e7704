package carrom

import (
	"math"
	"strconv"
)

// Vec is a 2-D vector in board units.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec) Scale(k float64) Vec { return Vec{X: v.X * k, Y: v.Y * k} }

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

func (v Vec) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Rotate turns v counter-clockwise by a radians.
func (v Vec) Rotate(a float64) Vec {
	s, c := math.Sincos(a)
	return Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

func polar(angle, r float64) Vec { return Vec{X: math.Cos(angle) * r, Y: math.Sin(angle) * r} }

// Class is the colour category of a body.
type Class string

const (
	White   Class = "white"
	Black   Class = "black"
	Queen   Class = "queen"
	Striker Class = "striker"
)

// Body is a circular disc on the table.
type Body struct {
	ID     string  `json:"id"`
	Class  Class   `json:"class"`
	Pos    Vec     `json:"pos"`
	Vel    Vec     `json:"vel"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`
	Active bool    `json:"active"`
}

// Speed returns the magnitude of the body's velocity.
func (b *Body) Speed() float64 { return b.Vel.Len() }

// Momentum returns mass times velocity.
func (b *Body) Momentum() Vec { return b.Vel.Scale(b.Mass) }

// Table is the full set of bodies. The striker is kept apart from the coins.
type Table struct {
	Coins   []Body `json:"coins"`
	Striker Body   `json:"striker"`
}

// NewTable racks the coins at the centre: the queen, an inner ring of six and an outer ring of twelve.
func NewTable(p Params) Table {
	p = p.WithDefaults()
	c := Vec{X: p.Center(), Y: p.Center()}
	coin := func(id string, class Class, at Vec) Body {
		return Body{ID: id, Class: class, Pos: at, Radius: p.CoinRadius, Mass: p.CoinMass, Active: true}
	}

	coins := []Body{coin("queen", Queen, c)}
	inner := 2*p.CoinRadius + 1
	for i := 0; i < 6; i++ {
		class := White
		if i%2 == 1 {
			class = Black
		}
		a := float64(i) * math.Pi / 3
		coins = append(coins, coin("inner-"+strconv.Itoa(i), class, c.Add(polar(a, inner))))
	}
	outer := 2 * inner
	for i := 0; i < 12; i++ {
		class := White
		if i%2 == 1 {
			class = Black
		}
		a := float64(i) * math.Pi / 6
		coins = append(coins, coin("outer-"+strconv.Itoa(i), class, c.Add(polar(a, outer))))
	}

	return Table{
		Coins: coins,
		Striker: Body{
			ID:     "striker",
			Class:  Striker,
			Pos:    Vec{X: p.Center(), Y: p.PlayMax - p.BaselineOffset},
			Radius: p.StrikerRadius,
			Mass:   p.StrikerMass,
			Active: true,
		},
	}
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := t
	out.Coins = append([]Body(nil), t.Coins...)
	return out
}

// ActiveCoins returns the coins still on the table.
func (t *Table) ActiveCoins() []Body {
	var out []Body
	for _, c := range t.Coins {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// Remaining counts active coins of class.
func (t *Table) Remaining(class Class) int {
	n := 0
	for _, c := range t.Coins {
		if c.Active && c.Class == class {
			n++
		}
	}
	return n
}

// bodies returns pointers to every body in a fixed order: striker first, then coins.
func (t *Table) bodies() []*Body {
	out := make([]*Body, 0, len(t.Coins)+1)
	out = append(out, &t.Striker)
	for i := range t.Coins {
		out = append(out, &t.Coins[i])
	}
	return out
}

// StepReport summarises one integration step.
type StepReport struct {
	Moving   bool
	Pocketed []Body
	Foul     bool
}

// Step advances the simulation by one fixed time step:
// integrate, friction, walls, pairwise collisions, pockets.
func (t *Table) Step(p Params) StepReport {
	var rep StepReport
	all := t.bodies()

	for _, b := range all {
		if !b.Active || b.Vel.IsZero() {
			continue
		}
		b.Pos = b.Pos.Add(b.Vel.Scale(p.TimeStep))
		b.Vel = b.Vel.Scale(p.Friction)
		if b.Speed() < p.RestSpeed {
			b.Vel = Vec{}
		}
		bounceWalls(b, p)
	}

	for i := 0; i < len(all); i++ {
		if !all[i].Active {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if !all[j].Active {
				continue
			}
			if all[i].Pos.Dist(all[j].Pos) < all[i].Radius+all[j].Radius {
				ResolveCollision(all[i], all[j], p.SeparationSlop)
			}
		}
	}

	pockets := p.Pockets()
	for _, b := range all {
		if !b.Active || !inPocket(b.Pos, pockets, p.PocketRadius) {
			continue
		}
		b.Vel = Vec{}
		if b.Class == Striker {
			// The striker stays on the table, stopped, until it is re-baselined after the turn.
			rep.Foul = true
			continue
		}
		b.Active = false
		rep.Pocketed = append(rep.Pocketed, *b)
	}

	for _, b := range all {
		if b.Active && !b.Vel.IsZero() {
			rep.Moving = true
			break
		}
	}
	return rep
}

func bounceWalls(b *Body, p Params) {
	lo, hi := p.PlayMin+b.Radius, p.PlayMax-b.Radius
	if b.Pos.X < lo {
		b.Pos.X = lo
		b.Vel.X = math.Abs(b.Vel.X) * p.Restitution
	} else if b.Pos.X > hi {
		b.Pos.X = hi
		b.Vel.X = -math.Abs(b.Vel.X) * p.Restitution
	}
	if b.Pos.Y < lo {
		b.Pos.Y = lo
		b.Vel.Y = math.Abs(b.Vel.Y) * p.Restitution
	} else if b.Pos.Y > hi {
		b.Pos.Y = hi
		b.Vel.Y = -math.Abs(b.Vel.Y) * p.Restitution
	}
}

func inPocket(pos Vec, pockets [4]Vec, radius float64) bool {
	for _, pk := range pockets {
		if pos.Dist(pk) < radius {
			return true
		}
	}
	return false
}

// ResolveCollision applies a 2-D elastic collision between two overlapping discs.
// Velocities are rotated onto the line of centres, exchanged with the 1-D elastic
// formulas weighted by mass, rotated back, and the discs are pushed apart in
// proportion to the other body's mass plus slop.
func ResolveCollision(a, b *Body, slop float64) {
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Len()
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return
	}
	angle := delta.Angle()
	if dist == 0 {
		angle = 0
	}

	v1 := a.Vel.Rotate(-angle)
	v2 := b.Vel.Rotate(-angle)

	m1, m2 := a.Mass, b.Mass
	if v1.X-v2.X > 0 {
		u1 := ((m1-m2)*v1.X + 2*m2*v2.X) / (m1 + m2)
		u2 := ((m2-m1)*v2.X + 2*m1*v1.X) / (m1 + m2)
		v1.X, v2.X = u1, u2
		a.Vel = v1.Rotate(angle)
		b.Vel = v2.Rotate(angle)
	}

	push := polar(angle, minDist-dist+slop)
	total := m1 + m2
	a.Pos = a.Pos.Sub(push.Scale(m2 / total))
	b.Pos = b.Pos.Add(push.Scale(m1 / total))
}

// SweepReport summarises a full run to rest.
type SweepReport struct {
	Steps     int
	Converged bool
	Pocketed  []Body
	Foul      bool
}

// Sweep runs Step until every active body is at rest or the step ceiling is reached.
// Hitting the ceiling is reported through Converged=false and the current state is kept.
func (t *Table) Sweep(p Params) SweepReport {
	var rep SweepReport
	for rep.Steps < p.StepCeiling {
		step := t.Step(p)
		rep.Steps++
		rep.Pocketed = append(rep.Pocketed, step.Pocketed...)
		rep.Foul = rep.Foul || step.Foul
		if !step.Moving {
			rep.Converged = true
			return rep
		}
	}
	for _, b := range t.bodies() {
		b.Vel = Vec{}
	}
	return rep
}
