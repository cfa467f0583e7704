// Command matchsim plays scripted opponents against each other outside Nakama and stores
// the results in a SQLite match history.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tabletop/internal/app"
	"tabletop/internal/bot"
	"tabletop/internal/config"
	"tabletop/internal/domain"
	"tabletop/internal/logging"
	"tabletop/internal/ports"
	"tabletop/internal/ports/uci"
	"tabletop/internal/store/sqlite"
)

// Options are read from MATCHSIM_* variables.
type Options struct {
	Game        string `env:"MATCHSIM_GAME" envDefault:"chess"`
	Games       int    `env:"MATCHSIM_GAMES" envDefault:"10"`
	Seats       int    `env:"MATCHSIM_SEATS"`
	Parallel    int    `env:"MATCHSIM_PARALLEL" envDefault:"4"`
	Seed        int64  `env:"MATCHSIM_SEED" envDefault:"1"`
	DBPath      string `env:"MATCHSIM_DB" envDefault:"matchsim.db"`
	Identities  string `env:"MATCHSIM_BOT_IDENTITIES" envDefault:"data/bot_identities.json"`
	ConfigPath  string `env:"MATCHSIM_CONFIG" envDefault:"data/game_config.json"`
	Development bool   `env:"MATCHSIM_DEV"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "matchsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts Options
	if err := config.ParseEnv(&opts, nil); err != nil {
		return err
	}
	kind, ok := domain.ParseGameKind(opts.Game)
	if !ok {
		return fmt.Errorf("unknown game %q", opts.Game)
	}
	lo, hi := kind.SeatRange()
	seats := opts.Seats
	if seats == 0 {
		seats = lo
	}
	if seats < lo || seats > hi {
		return fmt.Errorf("%s takes %d to %d seats, got %d", kind, lo, hi, seats)
	}

	logger, err := logging.New(opts.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.LoadGameConfig(opts.ConfigPath); err != nil {
		logger.Warn("matchsim: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()
	var overlay config.Env
	if err := config.ParseEnv(&overlay, nil); err != nil {
		return err
	}
	cfg.Apply(overlay)

	if err := bot.LoadIdentities(opts.Identities); err != nil {
		logger.Warn("matchsim: Could not load bot identities: %v", err)
	}

	store, err := sqlite.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var oracle ports.MoveOracle
	if cfg.Oracle.Path != "" {
		o := uci.New(cfg.Oracle.Path, cfg.Oracle.PoolSize, logger)
		defer o.Close()
		oracle = o
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := app.NewRegistry(app.Deps{
		Logger:   logger,
		Recorder: store,
		Bots:     bot.Deps{Oracle: oracle, Rng: rand.New(rand.NewSource(opts.Seed))},
	})

	matches := make([]*app.Match, 0, opts.Games)
	for g := 0; g < opts.Games; g++ {
		lineup := make([]domain.Participant, seats)
		for s := range lineup {
			lineup[s] = bot.GetIdentity(g + s).Scripted()
		}
		m, err := registry.Create(app.MatchConfig{
			Kind:     kind,
			Seats:    lineup,
			MaxPlies: cfg.MaxPlies,
			Carrom:   cfg.Carrom,
		})
		if err != nil {
			return fmt.Errorf("create match %d: %w", g, err)
		}
		matches = append(matches, m)
	}

	parallel := max(opts.Parallel, 1)
	slots := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for _, m := range matches {
		wg.Add(1)
		slots <- struct{}{}
		go func(m *app.Match) {
			defer wg.Done()
			defer func() { <-slots }()
			events := m.Start(ctx)
			if len(events) == 0 {
				return
			}
			final := events[len(events)-1].Snapshot
			logger.WithField("match_id", m.ID()).Info("matchsim: %s finished after %d actions, winner=%d reason=%s",
				kind, final.Seq, final.Winner, final.Reason)
		}(m)
	}
	wg.Wait()

	unfinished := registry.Len() - registry.Reap()
	counts, err := store.CountByReason(context.Background(), string(kind))
	if err != nil {
		return err
	}
	logger.Info("matchsim: %d %s matches stored in %s, %d unfinished, outcomes %v",
		opts.Games-unfinished, kind, opts.DBPath, unfinished, counts)
	return nil
}
