package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"tabletop/internal/domain"
	"tabletop/internal/domain/carrom"
)

// TimeControl lists the per-seat budgets a game kind offers. Zero seconds is untimed.
type TimeControl struct {
	DefaultSeconds int   `json:"default_seconds"`
	AllowedSeconds []int `json:"allowed_seconds"`
}

type OracleConfig struct {
	Path     string `json:"path"`
	PoolSize int    `json:"pool_size"`
}

type GameConfig struct {
	TimeControls      map[string]TimeControl `json:"time_controls"`
	MaxPlies          int                    `json:"max_plies"`
	BotIdentitiesPath string                 `json:"bot_identities_path"`
	BotsEnabled       bool                   `json:"bots_enabled"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before filling a lobby with bots.
	BotAutoFillDelaySeconds int           `json:"bot_auto_fill_delay_seconds"`
	Oracle                  OracleConfig  `json:"oracle"`
	Carrom                  carrom.Params `json:"carrom"`
}

// Default is the configuration used when no file has been loaded.
func Default() GameConfig {
	return GameConfig{
		TimeControls: map[string]TimeControl{
			string(domain.KindChess):     {DefaultSeconds: 600, AllowedSeconds: []int{0, 60, 180, 300, 600, 900}},
			string(domain.KindFourChess): {DefaultSeconds: 300, AllowedSeconds: []int{0, 180, 300, 600}},
			string(domain.KindCarrom):    {DefaultSeconds: 0, AllowedSeconds: []int{0, 300, 600}},
		},
		MaxPlies:                600,
		BotIdentitiesPath:       "data/bot_identities.json",
		BotsEnabled:             true,
		BotAutoFillDelaySeconds: 5,
		Oracle:                  OracleConfig{PoolSize: 2},
		Carrom:                  carrom.DefaultParams(),
	}
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// Parse decodes a config document on top of Default.
func Parse(data []byte) (*GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	c.Carrom = c.Carrom.WithDefaults()
	if c.MaxPlies < 0 {
		return nil, fmt.Errorf("max_plies must not be negative, got %d", c.MaxPlies)
	}
	for kind, tc := range c.TimeControls {
		if _, ok := domain.ParseGameKind(kind); !ok {
			return nil, fmt.Errorf("time control for unknown game %q", kind)
		}
		if tc.DefaultSeconds < 0 {
			return nil, fmt.Errorf("time control for %s: negative default", kind)
		}
	}
	return &c, nil
}

// GetGameConfig returns the global game configuration. When nothing was loaded the
// defaults become the global configuration.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		d := Default()
		cfg = &d
	}
	return cfg
}

// TurnBudget resolves the per-seat budget a client asked for. A request of -1 or one
// that is not on the allowed list falls back to the default for the game.
func (c *GameConfig) TurnBudget(kind domain.GameKind, requestedSeconds int) time.Duration {
	tc, ok := c.TimeControls[string(kind)]
	if !ok {
		return 0
	}
	seconds := tc.DefaultSeconds
	if requestedSeconds >= 0 && slices.Contains(tc.AllowedSeconds, requestedSeconds) {
		seconds = requestedSeconds
	}
	return time.Duration(seconds) * time.Second
}
