package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/bot"
	"tabletop/internal/config"
	"tabletop/internal/ports"
	"tabletop/internal/ports/uci"
)

// InitModule wires configuration, bots, RPCs and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig(defaultGameConfigPath); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()

	// Nakama passes runtime.env from its config; a missing map falls back to the process env.
	environ, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	var overlay config.Env
	if err := config.ParseEnv(&overlay, environ); err != nil {
		return err
	}
	cfg.Apply(overlay)

	if err := bot.LoadIdentities(cfg.BotIdentitiesPath); err != nil {
		logger.Warn("InitModule: Could not load bot identities: %v", err)
	}
	bot.ProvisionBots(ctx, nk, logger)

	var oracle ports.MoveOracle
	if cfg.Oracle.Path != "" {
		oracle = uci.New(cfg.Oracle.Path, cfg.Oracle.PoolSize, logger)
		logger.Info("InitModule: Chess engine %s with %d slots.", cfg.Oracle.Path, cfg.Oracle.PoolSize)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameTabletop, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(oracle), nil
	}); err != nil {
		return err
	}

	logger.Info("Tabletop Go module loaded.")
	return nil
}
