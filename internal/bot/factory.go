package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/domain"
	"tabletop/internal/ports"
)

// Skill levels handed to the chess oracle per named difficulty.
const (
	LevelEasy   = 3
	LevelMedium = 8
	LevelHard   = 15
)

// ParseDifficulty maps a difficulty name onto a skill level.
func ParseDifficulty(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "easy":
		return LevelEasy, nil
	case "", "medium":
		return LevelMedium, nil
	case "hard":
		return LevelHard, nil
	default:
		return LevelMedium, fmt.Errorf("unknown bot difficulty: %q", name)
	}
}

// Deps are the collaborators shared by the policies of one agent.
type Deps struct {
	Oracle ports.MoveOracle // nil means always fall back to random legal moves
	Rng    *rand.Rand       // nil means time-seeded
	Logger runtime.Logger
	Tuning *Tuning // nil means DefaultTuning
}

// NewAgent creates the policies for a scripted seat.
func NewAgent(p domain.Scripted, deps Deps) (*Agent, error) {
	if p.BotID == "" {
		return nil, fmt.Errorf("scripted participant without bot id")
	}
	rng := deps.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	tuning := DefaultTuning
	if deps.Tuning != nil {
		tuning = *deps.Tuning
	}
	level := p.Level
	if level <= 0 {
		level = LevelMedium
	}

	return &Agent{
		ID:    p.BotID,
		Name:  p.Name,
		Level: level,
		Chess: &OracleChess{
			Oracle: deps.Oracle,
			Level:  level,
			Tuning: tuning,
			Rng:    rng,
			Logger: deps.Logger,
		},
		FourChess: &WeightedFourChess{Tuning: tuning, Rng: rng},
		Carrom:    &GeometricCarrom{Tuning: tuning, Rng: rng},
	}, nil
}
