// Package main runs a battle to completion with every unit driven by the AI
// scoring scripts, logging each decision.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
	"github.com/cory-johannsen/gridtactics/internal/observability"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	level := flag.String("level", "ambush", "level to play")
	units := flag.String("units", "soldier,mage", "comma-separated unit types to deploy")
	maxTurns := flag.Int("turns", 200, "stop after this many turns")
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

	catalog, err := gamedata.LoadAll(context.Background(), cfg.Data, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	options, err := battle.NewOptionsFactory(cfg.Rules, cfg.RNG, logger)
	if err != nil {
		logger.Fatal("building battle options", zap.Error(err))
	}

	scripts := scripting.NewManager(dice.NewLoggedRoller(dice.NewSource(cfg.RNG.Seed), logger), logger)
	defer scripts.Close()
	var scorer ai.Scorer = ai.ZeroScorer{}
	if cfg.Data.ScriptsDir != "" {
		if err := scripts.LoadGlobal(cfg.Data.ScriptsDir, scripting.DefaultInstructionLimit); err != nil {
			logger.Fatal("loading AI scripts", zap.Error(err))
		}
		scorer = ai.NewScriptScorer(scripts)
	}

	mgr := battle.NewManager(catalog, options, logger)
	id, err := mgr.Create(*level)
	if err != nil {
		logger.Fatal("creating battle", zap.Error(err))
	}

	var res Result
	err = mgr.With(id, func(b *battle.Battle) error {
		var err error
		res, err = Simulate(b, ai.NewPlanner(scorer, logger), strings.Split(*units, ","), *maxTurns, logger)
		return err
	})
	if err != nil {
		logger.Fatal("simulating", zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("battle_id", id),
		zap.Int("turns", res.Turns),
		zap.Int("rounds", res.Rounds),
	}
	if res.Winner != nil {
		fields = append(fields, zap.Int("winner", int(*res.Winner)))
	}
	logger.Info("battle finished", fields...)
}
