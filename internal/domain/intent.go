package domain

import (
	"encoding/json"
	"fmt"
)

// IntentKind tags the payload carried by an Intent.
type IntentKind string

const (
	IntentMove  IntentKind = "move"
	IntentShoot IntentKind = "shoot"
)

// MoveIntent is a board move. Chess squares use algebraic coordinates ("e2"),
// four-player chess squares use "r,c" pairs.
type MoveIntent struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// ShotIntent is a carrom strike.
type ShotIntent struct {
	Angle   float64 `json:"angle"`
	Power   float64 `json:"power"`
	OriginX float64 `json:"origin_x"`
}

// Intent is a participant's requested state transition. Exactly one payload is set.
// The submitting seat is never part of the payload; the orchestrator resolves it.
type Intent struct {
	Kind  IntentKind  `json:"kind"`
	Move  *MoveIntent `json:"move,omitempty"`
	Shoot *ShotIntent `json:"shoot,omitempty"`
}

// Move builds a move intent.
func Move(from, to, promotion string) Intent {
	return Intent{Kind: IntentMove, Move: &MoveIntent{From: from, To: to, Promotion: promotion}}
}

// Shoot builds a shot intent.
func Shoot(angle, power, originX float64) Intent {
	return Intent{Kind: IntentShoot, Shoot: &ShotIntent{Angle: angle, Power: power, OriginX: originX}}
}

// DecodeIntent parses a wire payload and checks that the tag matches the payload.
func DecodeIntent(data []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return Intent{}, fmt.Errorf("%w: malformed payload: %v", ErrIllegalIntent, err)
	}
	if err := in.Validate(); err != nil {
		return Intent{}, err
	}
	return in, nil
}

// Validate checks that the intent carries exactly the payload its kind names.
func (in Intent) Validate() error {
	switch in.Kind {
	case IntentMove:
		if in.Move == nil || in.Shoot != nil {
			return fmt.Errorf("%w: move intent without move payload", ErrIllegalIntent)
		}
	case IntentShoot:
		if in.Shoot == nil || in.Move != nil {
			return fmt.Errorf("%w: shoot intent without shot payload", ErrIllegalIntent)
		}
	default:
		return fmt.Errorf("%w: unknown intent kind %q", ErrIllegalIntent, in.Kind)
	}
	return nil
}

// String renders the intent for move logs.
func (in Intent) String() string {
	switch {
	case in.Move != nil:
		return in.Move.From + in.Move.To + in.Move.Promotion
	case in.Shoot != nil:
		return fmt.Sprintf("shoot(%.4f,%.2f,%.1f)", in.Shoot.Angle, in.Shoot.Power, in.Shoot.OriginX)
	}
	return string(in.Kind)
}
