package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

// Result summarises a simulated battle.
type Result struct {
	Turns  int
	Rounds int
	// Winner is nil when the turn limit was reached first.
	Winner *board.Faction
}

// Simulate deploys unitTypes onto the level's deployment positions in order,
// starts combat, and lets planner act for every unit until one faction
// remains or maxTurns turns have been played.
//
// Precondition: b must have been built from a level; maxTurns > 0.
func Simulate(b *battle.Battle, planner *ai.Planner, unitTypes []string, maxTurns int, logger *zap.Logger) (Result, error) {
	positions := b.Level.DeploymentPositions
	deployed := 0
	for _, t := range unitTypes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if deployed >= len(positions) || deployed >= b.Level.MaxPlayerUnits {
			logger.Warn("no deployment position left", zap.String("unit_type", t))
			continue
		}
		if _, err := b.Deploy(t, positions[deployed]); err != nil {
			return Result{}, fmt.Errorf("deploying %q: %w", t, err)
		}
		deployed++
	}

	if _, err := b.StartCombat(); err != nil {
		return Result{}, err
	}

	var res Result
	for res.Turns < maxTurns && !b.IsOver() {
		u, ok := b.ActiveUnit()
		if !ok {
			break
		}
		decision, _, err := planner.Act(b, u.ID)
		if err != nil {
			return res, fmt.Errorf("turn %d: %w", res.Turns+1, err)
		}
		logger.Info("turn played",
			zap.Int("round", b.Round()),
			zap.Uint32("unit_id", uint32(u.ID)),
			zap.String("unit_type", u.TypeName),
			zap.Stringer("action", decision.Action.Kind),
			zap.String("skill", decision.Action.Skill),
			zap.Float64("score", decision.Score),
		)
		res.Turns++
		if b.IsOver() || res.Turns == maxTurns {
			break
		}
		if _, err := b.EndTurn(); err != nil {
			return res, err
		}
	}

	res.Rounds = b.Round()
	if f := b.Factions(); len(f) == 1 {
		res.Winner = &f[0]
	}
	return res, nil
}
