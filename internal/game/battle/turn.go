package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// StartCombat rolls initiative for every live unit and fixes the turn order.
//
// Postcondition: Returns the rolls, highest first, or ErrCombatStarted.
func (b *Battle) StartCombat() ([]combat.InitiativeRoll, error) {
	if b.turns != nil {
		return nil, ErrCombatStarted
	}
	contenders := make([]combat.Contender, 0, len(b.spawnOrder))
	for _, id := range b.spawnOrder {
		contenders = append(contenders, combat.Contender{
			ID:         id,
			Initiative: b.units[id].Attributes.Get(skill.Initiative),
		})
	}
	rolls := combat.RollInitiative(contenders, b.initiative, b.roller)
	b.turns = combat.NewTurnTracker(combat.TurnOrder(rolls))

	fields := []zap.Field{zap.Int("units", len(rolls))}
	if first, ok := b.turns.ActiveUnit(); ok {
		fields = append(fields, zap.Uint32("first", uint32(first)))
	}
	b.logger.Info("combat started", fields...)
	return rolls, nil
}

// Started reports whether combat has begun.
func (b *Battle) Started() bool { return b.turns != nil }

// Round returns the current round, or zero before combat starts.
func (b *Battle) Round() int {
	if b.turns == nil {
		return 0
	}
	return b.turns.Round()
}

// ActiveUnit returns the unit whose turn it is. After the active unit is
// despawned there is none until EndTurn.
func (b *Battle) ActiveUnit() (*Unit, bool) {
	if b.turns == nil {
		return nil, false
	}
	id, ok := b.turns.ActiveUnit()
	if !ok {
		return nil, false
	}
	return b.units[id], true
}

// EndTurn passes the turn to the next unit in order and starts its turn:
// movement and cast state are cleared and its buffs tick down.
//
// Postcondition: Returns the newly active unit, or ErrCombatNotStarted.
func (b *Battle) EndTurn() (*Unit, error) {
	if b.turns == nil {
		return nil, ErrCombatNotStarted
	}
	b.turns.Advance(combat.TurnResetterFunc(b.startTurn))
	u, ok := b.ActiveUnit()
	if !ok {
		return nil, fmt.Errorf("ending turn: %w: turn order is empty", ErrUnitNotFound)
	}
	b.logger.Debug("turn started",
		zap.Uint32("unit_id", uint32(u.ID)),
		zap.Int("round", b.turns.Round()),
	)
	return u, nil
}

func (b *Battle) startTurn(id board.ID) {
	u, ok := b.units[id]
	if !ok {
		return
	}
	u.resetTurn()
	if expired := u.Buffs.Tick(); len(expired) > 0 {
		b.refresh(u)
		b.logger.Debug("buffs expired",
			zap.Uint32("unit_id", uint32(id)),
			zap.Strings("sources", expired),
		)
	}
}

// reaggregate recomputes u's attributes from its skills and buffs and caps
// current HP and MP at the new maxima.
func (b *Battle) reaggregate(u *Unit) error {
	attrs, err := skill.CalculateAttributes(u.Skills, u.Buffs.Buffs(), b.catalog)
	if err != nil {
		return err
	}
	u.Attributes = attrs
	u.CurrentHP = min(u.CurrentHP, u.MaxHP())
	u.CurrentMP = min(u.CurrentMP, u.MaxMP())
	return nil
}

// refresh re-aggregates u where the caller has no error to return. A failure
// keeps the previous attributes.
func (b *Battle) refresh(u *Unit) {
	if err := b.reaggregate(u); err != nil {
		b.logger.Warn("re-aggregating attributes",
			zap.Uint32("unit_id", uint32(u.ID)),
			zap.Error(err),
		)
	}
}

// ApplyBuff applies a buff from source to unit id for duration turns
// (buff.Permanent for no expiry) and re-aggregates its attributes.
func (b *Battle) ApplyBuff(id board.ID, source string, bf skill.Buff, duration int) error {
	u, _, err := b.unit(id)
	if err != nil {
		return err
	}
	if !bf.Attribute.Valid() {
		return fmt.Errorf("applying buff from %q: invalid attribute %d", source, int(bf.Attribute))
	}
	u.Buffs.Apply(source, bf, duration)
	return b.reaggregate(u)
}

// RemoveBuff drops every buff from source on unit id.
func (b *Battle) RemoveBuff(id board.ID, source string) error {
	u, _, err := b.unit(id)
	if err != nil {
		return err
	}
	u.Buffs.Remove(source)
	return b.reaggregate(u)
}

// LearnSkill teaches unit id skillID and re-aggregates its attributes.
// Learning a known skill is a no-op.
func (b *Battle) LearnSkill(id board.ID, skillID string) error {
	u, _, err := b.unit(id)
	if err != nil {
		return err
	}
	if _, ok := b.catalog.Skill(skillID); !ok {
		return fmt.Errorf("learning: %w: %q", skill.ErrSkillNotFound, skillID)
	}
	if u.HasSkill(skillID) {
		return nil
	}
	u.Skills = append(u.Skills, skillID)
	return b.reaggregate(u)
}
