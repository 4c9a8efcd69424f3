package ai_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
)

func selfMod(attr skill.Attribute, v int) skill.Effect {
	return skill.Effect{
		Kind:      skill.EffectAttributeModify,
		Attribute: attr,
		Mechanic:  skill.Mechanic{Kind: skill.MechanicGuaranteed},
		Target:    skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterCaster},
		Formula:   skill.Fixed(v),
	}
}

// testCatalog: "fighter" walks 10 per phase and knows strike and guard;
// "dummy" only has stats.
func testCatalog() *gamedata.Catalog {
	one := 1
	cat := gamedata.NewCatalog()
	for _, s := range []*skill.Skill{
		{ID: "stats", Trigger: skill.TriggerPassive, Effects: []skill.Effect{
			selfMod(skill.HP, 20),
			selfMod(skill.MP, 10),
			selfMod(skill.Movement, 10),
			selfMod(skill.Hit, 50),
			selfMod(skill.Evasion, 10),
			selfMod(skill.Block, 10),
			selfMod(skill.PhysicalAttack, 6),
		}},
		{ID: "strike", Trigger: skill.TriggerActive, MinRange: 1, MaxRange: 1, Tags: []string{"attack"}, Effects: []skill.Effect{{
			Kind:     skill.EffectHPModify,
			Mechanic: skill.Mechanic{Kind: skill.MechanicHitBased},
			Target:   skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterEnemy},
			Formula:  skill.Scaled(skill.PhysicalAttack, -100),
		}}},
		{ID: "guard", Trigger: skill.TriggerActive, AllowsMovementAfter: true, Tags: []string{"beneficial"}, Effects: []skill.Effect{{
			Kind:      skill.EffectAttributeModify,
			Attribute: skill.Block,
			Mechanic:  skill.Mechanic{Kind: skill.MechanicGuaranteed},
			Target:    skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterCaster},
			Formula:   skill.Fixed(30),
			Duration:  &one,
		}}},
	} {
		cat.Skills.Register(s)
	}
	cat.Units["fighter"] = &gamedata.UnitType{Name: "fighter", Skills: []string{"stats", "strike", "guard"}}
	cat.Units["dummy"] = &gamedata.UnitType{Name: "dummy", Skills: []string{"stats"}}
	return cat
}

func newBattle(t *testing.T, w, h int) *battle.Battle {
	t.Helper()
	return battle.New(testCatalog(), board.Board{Width: w, Height: h}, battle.Options{
		Roller:   dice.NewLoggedRoller(dice.NewFixed(50), zap.NewNop()),
		IDSource: dice.NewSeededSource(11),
	})
}

func spawn(t *testing.T, b *battle.Battle, typ string, f board.Faction, x, y int) *battle.Unit {
	t.Helper()
	u, err := b.SpawnUnit(typ, f, board.Position{X: x, Y: y})
	require.NoError(t, err)
	return u
}

func p(x, y int) board.Position { return board.Position{X: x, Y: y} }
