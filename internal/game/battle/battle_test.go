package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
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

func intPtr(v int) *int { return &v }

// testCatalog: "fighter" has every active skill; "dummy" only has stats;
// "mute" has a costly skill and no MP.
func testCatalog() *gamedata.Catalog {
	cat := gamedata.NewCatalog()
	for _, s := range []*skill.Skill{
		{ID: "stats", Trigger: skill.TriggerPassive, Effects: []skill.Effect{
			selfMod(skill.HP, 20),
			selfMod(skill.MP, 10),
			selfMod(skill.Movement, 20),
			selfMod(skill.Hit, 50),
			selfMod(skill.Evasion, 10),
			selfMod(skill.Block, 10),
			selfMod(skill.BlockProtection, 3),
			selfMod(skill.PhysicalAttack, 6),
		}},
		{ID: "toughness", Trigger: skill.TriggerPassive, Effects: []skill.Effect{selfMod(skill.HP, 10)}},
		{ID: "strike", Trigger: skill.TriggerActive, MinRange: 1, MaxRange: 1, Effects: []skill.Effect{{
			Kind:     skill.EffectHPModify,
			Mechanic: skill.Mechanic{Kind: skill.MechanicHitBased},
			Target:   skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterEnemy},
			Formula:  skill.Scaled(skill.PhysicalAttack, -100),
		}}},
		{ID: "bolt", Trigger: skill.TriggerActive, MPChange: -4, MinRange: 1, MaxRange: 3, Effects: []skill.Effect{{
			Kind:     skill.EffectHPModify,
			Mechanic: skill.Mechanic{Kind: skill.MechanicGuaranteed},
			Target: skill.TargetMode{Mode: skill.TargetArea, Filter: skill.FilterEnemy,
				Shape: &skill.Shape{Kind: skill.ShapeDiamond, Radius: 1}},
			Formula: skill.Fixed(-5),
		}}},
		{ID: "guard", Trigger: skill.TriggerActive, AllowsMovementAfter: true, Effects: []skill.Effect{{
			Kind:      skill.EffectAttributeModify,
			Attribute: skill.Block,
			Mechanic:  skill.Mechanic{Kind: skill.MechanicGuaranteed},
			Target:    skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterCaster},
			Formula:   skill.Fixed(30),
			Duration:  intPtr(1),
		}}},
		{ID: "shove", Trigger: skill.TriggerActive, MinRange: 1, MaxRange: 1, Effects: []skill.Effect{{
			Kind:     skill.EffectPush,
			Mechanic: skill.Mechanic{Kind: skill.MechanicGuaranteed},
			Target:   skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterEnemy},
			Distance: 2,
		}}},
		{ID: "curse", Trigger: skill.TriggerActive, MinRange: 1, MaxRange: 2, Effects: []skill.Effect{{
			Kind:     skill.EffectHPModify,
			Mechanic: skill.Mechanic{Kind: skill.MechanicDCBased, DC: 15, SaveType: skill.Will},
			Target:   skill.TargetMode{Mode: skill.TargetSingle, Filter: skill.FilterEnemy},
			Formula:  skill.Fixed(-4),
		}}},
	} {
		cat.Skills.Register(s)
	}
	cat.Units["fighter"] = &gamedata.UnitType{Name: "fighter", Skills: []string{"stats", "strike", "bolt", "guard", "shove", "curse"}}
	cat.Units["dummy"] = &gamedata.UnitType{Name: "dummy", Skills: []string{"stats"}}
	cat.Units["mute"] = &gamedata.UnitType{Name: "mute", Skills: []string{"bolt"}}
	cat.Objects["wall"] = &gamedata.ObjectType{Name: "wall", MovementCost: 10000}
	cat.Objects["mud"] = &gamedata.ObjectType{Name: "mud", MovementCost: 30}
	cat.Objects["spikes"] = &gamedata.ObjectType{Name: "spikes", HPModify: -3}
	return cat
}

// newBattle creates a battle whose rolls replay values.
func newBattle(t *testing.T, w, h int, values ...int) *battle.Battle {
	t.Helper()
	if len(values) == 0 {
		values = []int{50}
	}
	return battle.New(testCatalog(), board.Board{Width: w, Height: h}, battle.Options{
		Roller:   dice.NewLoggedRoller(dice.NewFixed(values...), zap.NewNop()),
		IDSource: dice.NewSeededSource(7),
	})
}

func spawn(t *testing.T, b *battle.Battle, typ string, f board.Faction, x, y int) *battle.Unit {
	t.Helper()
	u, err := b.SpawnUnit(typ, f, board.Position{X: x, Y: y})
	require.NoError(t, err)
	return u
}

func TestSpawnUnit_AggregatesAndFillsPools(t *testing.T) {
	b := newBattle(t, 3, 3)
	u := spawn(t, b, "fighter", 0, 1, 1)

	assert.NotZero(t, u.ID)
	assert.Equal(t, 20, u.MaxHP())
	assert.Equal(t, 20, u.CurrentHP)
	assert.Equal(t, 10, u.CurrentMP)
	assert.Equal(t, 20, u.MovePoints())
	pos, ok := b.PositionOf(u.ID)
	require.True(t, ok)
	assert.Equal(t, board.Position{X: 1, Y: 1}, pos)
}

func TestSpawnUnit_Errors(t *testing.T) {
	b := newBattle(t, 3, 3)
	spawn(t, b, "dummy", 1, 0, 0)

	_, err := b.SpawnUnit("dragon", 0, board.Position{X: 1, Y: 1})
	assert.ErrorIs(t, err, battle.ErrUnitTypeNotFound)

	_, err = b.SpawnUnit("dummy", 0, board.Position{X: 3, Y: 0})
	assert.ErrorIs(t, err, board.ErrOutOfBounds)

	_, err = b.SpawnUnit("dummy", 0, board.Position{X: 0, Y: 0})
	assert.ErrorIs(t, err, battle.ErrTileOccupied)

	assert.Len(t, b.Units(), 1)
}

func TestPlaceObject_UnknownType(t *testing.T) {
	b := newBattle(t, 3, 3)
	_, err := b.PlaceObject("lava", board.Position{})
	assert.ErrorIs(t, err, battle.ErrObjectTypeNotFound)
}

func TestTerrainCost_HighestObjectWins(t *testing.T) {
	b := newBattle(t, 3, 1)
	p := board.Position{X: 1, Y: 0}
	assert.Equal(t, 10, b.TerrainCost(p))

	_, err := b.PlaceObject("spikes", p)
	require.NoError(t, err)
	assert.Equal(t, 10, b.TerrainCost(p))

	_, err = b.PlaceObject("mud", p)
	require.NoError(t, err)
	assert.Equal(t, 30, b.TerrainCost(p))
}

func TestDespawn_RemovesEverywhere(t *testing.T) {
	b := newBattle(t, 3, 3)
	a := spawn(t, b, "fighter", 0, 0, 0)
	d := spawn(t, b, "dummy", 1, 1, 0)
	_, err := b.StartCombat()
	require.NoError(t, err)

	require.NoError(t, b.Despawn(d.ID))
	_, ok := b.Unit(d.ID)
	assert.False(t, ok)
	_, ok = b.UnitAt(board.Position{X: 1, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, []board.ID{a.ID}, b.State().Order)

	assert.ErrorIs(t, b.Despawn(d.ID), battle.ErrUnitNotFound)
}

func TestDespawn_ActiveUnitVacatesTurn(t *testing.T) {
	// Both roll 1 on 1d6; ties keep spawn order.
	b := newBattle(t, 3, 3, 0)
	a := spawn(t, b, "fighter", 0, 0, 0)
	d := spawn(t, b, "fighter", 1, 2, 2)
	_, err := b.StartCombat()
	require.NoError(t, err)

	d.Moved = 15
	d.HasCastSkillThisTurn = true
	require.NoError(t, b.Despawn(a.ID))

	_, ok := b.ActiveUnit()
	assert.False(t, ok, "nobody acts until the turn is ended")
	assert.Equal(t, 15, d.Moved)

	active, err := b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, d.ID, active.ID)
	assert.Zero(t, active.Moved)
	assert.False(t, active.HasCastSkillThisTurn)
	assert.Equal(t, 1, b.Round())
}

func TestEndTurn_AfterActiveUnitDiesOnTerrain(t *testing.T) {
	b := newBattle(t, 3, 3, 0)
	first := spawn(t, b, "fighter", 0, 0, 0)
	second := spawn(t, b, "fighter", 1, 0, 2)
	third := spawn(t, b, "fighter", 1, 2, 2)
	for i := 0; i < 7; i++ {
		_, err := b.PlaceObject("spikes", p(1, 0))
		require.NoError(t, err)
	}
	_, err := b.StartCombat()
	require.NoError(t, err)
	require.Equal(t, []board.ID{first.ID, second.ID, third.ID}, b.State().Order)

	rep, err := b.Move(first.ID, p(1, 0))
	require.NoError(t, err)
	require.True(t, rep.Defeated)

	active, err := b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID, "the unit after the fallen one still gets its turn")

	active, err = b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, third.ID, active.ID)

	active, err = b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, 2, b.Round())
}

func TestLearnSkill_Reaggregates(t *testing.T) {
	b := newBattle(t, 3, 3)
	u := spawn(t, b, "dummy", 0, 0, 0)

	require.NoError(t, b.LearnSkill(u.ID, "toughness"))
	assert.Equal(t, 30, u.MaxHP())
	assert.Equal(t, 20, u.CurrentHP, "current HP is not refilled")
	assert.True(t, u.HasSkill("toughness"))

	require.NoError(t, b.LearnSkill(u.ID, "toughness"))
	assert.Len(t, u.Skills, 2)

	assert.ErrorIs(t, b.LearnSkill(u.ID, "nope"), skill.ErrSkillNotFound)
	assert.ErrorIs(t, b.LearnSkill(999, "toughness"), battle.ErrUnitNotFound)
}

func TestApplyBuff_CapsCurrentPools(t *testing.T) {
	b := newBattle(t, 3, 3)
	u := spawn(t, b, "dummy", 0, 0, 0)

	require.NoError(t, b.ApplyBuff(u.ID, "weaken", skill.Buff{Attribute: skill.HP, Formula: skill.Scaled(skill.HP, 50)}, 2))
	assert.Equal(t, 10, u.MaxHP())
	assert.Equal(t, 10, u.CurrentHP)

	require.NoError(t, b.RemoveBuff(u.ID, "weaken"))
	assert.Equal(t, 20, u.MaxHP())
	assert.Equal(t, 10, u.CurrentHP)
}

func TestStartCombat_OrderAndRounds(t *testing.T) {
	// First unit rolls 1, second rolls 6.
	b := newBattle(t, 3, 3, 0, 5)
	a := spawn(t, b, "fighter", 0, 0, 0)
	d := spawn(t, b, "dummy", 1, 2, 2)

	_, err := b.EndTurn()
	assert.ErrorIs(t, err, battle.ErrCombatNotStarted)

	rolls, err := b.StartCombat()
	require.NoError(t, err)
	require.Len(t, rolls, 2)
	assert.Equal(t, d.ID, rolls[0].ID)
	assert.Equal(t, 6, rolls[0].Total)

	_, err = b.StartCombat()
	assert.ErrorIs(t, err, battle.ErrCombatStarted)

	active, _ := b.ActiveUnit()
	assert.Equal(t, d.ID, active.ID)
	assert.Equal(t, 1, b.Round())

	next, err := b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, a.ID, next.ID)
	next, err = b.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, d.ID, next.ID)
	assert.Equal(t, 2, b.Round())
}

func TestEndTurn_ResetsAndTicksBuffs(t *testing.T) {
	b := newBattle(t, 3, 3, 0)
	a := spawn(t, b, "fighter", 0, 0, 0)
	spawn(t, b, "dummy", 1, 2, 2)
	_, err := b.StartCombat()
	require.NoError(t, err)

	_, err = b.CastSkill(a.ID, "guard", board.Position{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 40, a.Attributes.Get(skill.Block))
	_, err = b.Move(a.ID, board.Position{X: 1, Y: 0})
	require.NoError(t, err, "guard allows movement after casting")

	_, err = b.EndTurn()
	require.NoError(t, err)
	_, err = b.EndTurn()
	require.NoError(t, err)

	assert.Zero(t, a.Moved)
	assert.False(t, a.HasCastSkillThisTurn)
	assert.Equal(t, 10, a.Attributes.Get(skill.Block), "one-turn buff expired at the start of the next turn")
	assert.Zero(t, a.Buffs.Len())
}

func TestSpawnAfterStart_JoinsOrder(t *testing.T) {
	b := newBattle(t, 3, 3, 0)
	spawn(t, b, "fighter", 0, 0, 0)
	_, err := b.StartCombat()
	require.NoError(t, err)
	late := spawn(t, b, "dummy", 1, 2, 2)
	order := b.State().Order
	assert.Equal(t, late.ID, order[len(order)-1])
}

func TestDeploy(t *testing.T) {
	cat := testCatalog()
	lvl := &gamedata.Level{
		Name:                "yard",
		Board:               board.Board{Width: 4, Height: 2},
		MaxPlayerUnits:      1,
		DeploymentPositions: []board.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 3, Y: 1}},
		Units:               []gamedata.UnitPlacement{{Position: board.Position{X: 3, Y: 1}, Type: "dummy", Faction: 1}},
		Objects:             []gamedata.ObjectPlacement{{Position: board.Position{X: 2, Y: 0}, Type: "wall"}},
	}
	b, err := battle.FromLevel(cat, lvl, battle.Options{})
	require.NoError(t, err)
	require.Len(t, b.Units(), 1)
	assert.Len(t, b.State().Objects, 1)

	first, err := b.Deploy("fighter", board.Position{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, board.PlayerFaction, first.Faction)

	replaced, err := b.Deploy("dummy", board.Position{X: 0, Y: 0})
	require.NoError(t, err, "a player unit on the tile is replaced")
	_, ok := b.Unit(first.ID)
	assert.False(t, ok)
	assert.Equal(t, "dummy", replaced.TypeName)

	_, err = b.Deploy("fighter", board.Position{X: 0, Y: 1})
	assert.ErrorIs(t, err, battle.ErrDeploymentFull)

	_, err = b.Deploy("fighter", board.Position{X: 1, Y: 1})
	assert.ErrorIs(t, err, battle.ErrNotDeploymentPosition)

	_, err = b.Deploy("fighter", board.Position{X: 3, Y: 1})
	assert.ErrorIs(t, err, battle.ErrTileOccupied)

	_, err = b.Deploy("dragon", board.Position{X: 0, Y: 0})
	assert.ErrorIs(t, err, battle.ErrUnitTypeNotFound)
}

func TestDeploy_RequiresLevel(t *testing.T) {
	b := newBattle(t, 2, 2)
	_, err := b.Deploy("fighter", board.Position{})
	assert.ErrorIs(t, err, battle.ErrNoLevel)
}

func TestFromLevel_UnknownPlacement(t *testing.T) {
	lvl := &gamedata.Level{
		Name:  "bad",
		Board: board.Board{Width: 2, Height: 2},
		Units: []gamedata.UnitPlacement{{Type: "dragon"}},
	}
	_, err := battle.FromLevel(testCatalog(), lvl, battle.Options{})
	assert.ErrorIs(t, err, battle.ErrUnitTypeNotFound)
}

func TestState_Snapshot(t *testing.T) {
	b := newBattle(t, 3, 2)
	u := spawn(t, b, "fighter", 0, 0, 1)
	_, err := b.PlaceObject("mud", board.Position{X: 2, Y: 1})
	require.NoError(t, err)

	s := b.State()
	assert.Equal(t, b.ID, s.ID)
	assert.False(t, s.Started)
	require.Len(t, s.Units, 1)
	assert.Equal(t, u.ID, s.Units[0].ID)
	assert.Equal(t, board.Position{X: 0, Y: 1}, s.Units[0].Position)
	require.Len(t, s.Objects, 1)
	assert.Equal(t, "mud", s.Objects[0].Type)
	assert.Nil(t, s.Winner)

	_, err = b.StartCombat()
	require.NoError(t, err)
	s = b.State()
	require.NotNil(t, s.Winner, "a single faction has won")
	assert.Equal(t, board.PlayerFaction, *s.Winner)
	assert.True(t, b.IsOver())
}
