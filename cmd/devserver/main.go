// Package main provides the development server: it loads content and serves
// battles over the JSON inspection API.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/api"
	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
	"github.com/cory-johannsen/gridtactics/internal/observability"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
	"github.com/cory-johannsen/gridtactics/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	catalog, err := gamedata.LoadAll(ctx, cfg.Data, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("levels", len(catalog.LevelNames())),
		zap.Duration("elapsed", time.Since(start)),
	)

	options, err := battle.NewOptionsFactory(cfg.Rules, cfg.RNG, logger)
	if err != nil {
		logger.Fatal("building battle options", zap.Error(err))
	}
	battles := battle.NewManager(catalog, options, logger)

	var planner *ai.Planner
	scripts := scripting.NewManager(dice.NewLoggedRoller(dice.NewSource(cfg.RNG.Seed), logger), logger)
	defer scripts.Close()
	if cfg.Data.ScriptsDir != "" {
		if err := scripts.LoadGlobal(cfg.Data.ScriptsDir, scripting.DefaultInstructionLimit); err != nil {
			logger.Fatal("loading AI scripts", zap.Error(err))
		}
		planner = ai.NewPlanner(ai.NewScriptScorer(scripts), logger)
	} else {
		logger.Warn("no scripts_dir configured, AI endpoint disabled")
	}

	handler := api.NewHandler(battles, planner, logger)
	httpService := server.NewHTTPService(cfg.DevServer.Addr(), handler.Router(), cfg.DevServer.ShutdownTimeout, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("http", httpService)

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.DevServer.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
