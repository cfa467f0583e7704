package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the deployment overlay read from the Nakama runtime env map or the process env.
// Unset numeric fields keep the file value.
type Env struct {
	BotsEnabled         *bool  `env:"TABLETOP_BOTS_ENABLED"`
	BotAutoFillDelaySec *int   `env:"TABLETOP_BOT_AUTO_FILL_DELAY_SEC"`
	OraclePath          string `env:"TABLETOP_ORACLE_PATH"`
	OraclePool          int    `env:"TABLETOP_ORACLE_POOL"`
	MaxPlies            int    `env:"TABLETOP_MAX_PLIES"`
}

// ParseEnv loads env tags into target. A nil environ reads the process environment.
func ParseEnv(target any, environ map[string]string) error {
	var err error
	if environ == nil {
		err = env.Parse(target)
	} else {
		err = env.ParseWithOptions(target, env.Options{Environment: environ})
	}
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Apply overlays the set fields of e onto c.
func (c *GameConfig) Apply(e Env) {
	if e.BotsEnabled != nil {
		c.BotsEnabled = *e.BotsEnabled
	}
	if e.BotAutoFillDelaySec != nil && *e.BotAutoFillDelaySec >= 0 {
		c.BotAutoFillDelaySeconds = *e.BotAutoFillDelaySec
	}
	if e.OraclePath != "" {
		c.Oracle.Path = e.OraclePath
	}
	if e.OraclePool > 0 {
		c.Oracle.PoolSize = e.OraclePool
	}
	if e.MaxPlies > 0 {
		c.MaxPlies = e.MaxPlies
	}
}
