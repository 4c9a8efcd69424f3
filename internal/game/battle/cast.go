package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/area"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/buff"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// saveDice is rolled and added to the target's save attribute against a DC.
var saveDice = dice.MustParse("1d20")

// SaveResult is the outcome of a saving throw against a dc_based effect.
type SaveResult struct {
	Save     skill.Attribute `json:"save"`
	DC       int             `json:"dc"`
	Roll     dice.RollResult `json:"-"`
	Total    int             `json:"total"`
	Resisted bool            `json:"resisted"`
}

// TargetResult is what one cast did to one unit.
type TargetResult struct {
	Unit     board.ID          `json:"unit"`
	Hit      *combat.HitResult `json:"hit,omitempty"`
	Save     *SaveResult       `json:"save,omitempty"`
	HPChange int               `json:"hp_change"`
	Buffed   []skill.Attribute `json:"buffed,omitempty"`
	PushedTo *board.Position   `json:"pushed_to,omitempty"`
	Defeated bool              `json:"defeated"`
}

// CastReport describes a completed cast.
type CastReport struct {
	Caster  board.ID         `json:"caster"`
	Skill   string           `json:"skill"`
	Target  board.Position   `json:"target"`
	MPSpent int              `json:"mp_spent"`
	Area    []board.Position `json:"area"`
	Results []TargetResult   `json:"results"`
}

// castable returns the caster and the skill after checking the caster may
// cast it at all, ignoring the target.
func (b *Battle) castable(id board.ID, skillID string) (*Unit, board.Position, *skill.Skill, error) {
	u, pos, err := b.unit(id)
	if err != nil {
		return nil, board.Position{}, nil, err
	}
	if !u.CanCast() {
		return nil, board.Position{}, nil, fmt.Errorf("unit %d: %w", id, ErrCannotCast)
	}
	sk, ok := b.catalog.Skill(skillID)
	if !ok {
		return nil, board.Position{}, nil, fmt.Errorf("casting: %w: %q", skill.ErrSkillNotFound, skillID)
	}
	if !u.HasSkill(skillID) {
		return nil, board.Position{}, nil, fmt.Errorf("unit %d casting %q: %w", id, skillID, ErrSkillNotLearned)
	}
	if sk.Trigger != skill.TriggerActive {
		return nil, board.Position{}, nil, fmt.Errorf("casting %q (%s): %w", skillID, sk.Trigger, ErrSkillNotActive)
	}
	return u, pos, sk, nil
}

// CastingArea returns the tiles unit id could aim skillID at this turn.
func (b *Battle) CastingArea(id board.ID, skillID string) ([]board.Position, error) {
	_, pos, sk, err := b.castable(id, skillID)
	if err != nil {
		return nil, err
	}
	return area.Casting(b.Board, pos, sk.MinRange, sk.MaxRange), nil
}

// effectTiles returns the tiles effect e covers when aimed at target.
func (b *Battle) effectTiles(e skill.Effect, caster, target board.Position) []board.Position {
	if e.Target.Mode == skill.TargetArea && e.Target.Shape != nil {
		return area.Shape(b.Board, *e.Target.Shape, caster, target)
	}
	return []board.Position{target}
}

// affectArea is the row-major union of every effect's tiles.
func (b *Battle) affectArea(sk *skill.Skill, caster, target board.Position) []board.Position {
	seen := map[board.Position]bool{}
	for _, e := range sk.Effects {
		for _, p := range b.effectTiles(e, caster, target) {
			seen[p] = true
		}
	}
	var out []board.Position
	for _, p := range b.Board.Positions() {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// validateTarget checks the aim of sk against its first effect: skills aimed
// at a unit need a unit on target that passes the effect's filter.
func (b *Battle) validateTarget(caster *Unit, casterPos board.Position, sk *skill.Skill, target board.Position) error {
	if err := b.Board.Check(target); err != nil {
		return fmt.Errorf("casting %q: %w", sk.ID, err)
	}
	if !area.InRange(casterPos, target, sk.MinRange, sk.MaxRange) {
		return fmt.Errorf("casting %q at %s from %s: %w", sk.ID, target, casterPos, ErrOutOfRange)
	}
	if len(sk.Effects) == 0 {
		return fmt.Errorf("casting %q: %w: skill has no effects", sk.ID, ErrInvalidTarget)
	}
	first := sk.Effects[0]
	if first.Target.Mode == skill.TargetArea && !first.Target.TargetsUnit {
		return nil
	}
	t, ok := b.UnitAt(target)
	if !ok {
		return fmt.Errorf("casting %q at %s: %w: no unit", sk.ID, target, ErrInvalidTarget)
	}
	if !first.Target.Filter.Allows(t.Faction == caster.Faction, t.ID == caster.ID) {
		return fmt.Errorf("casting %q at unit %d: %w: filter %s", sk.ID, t.ID, ErrInvalidTarget, first.Target.Filter)
	}
	return nil
}

// PreviewCast validates a cast without performing it and returns the tiles it
// would affect.
func (b *Battle) PreviewCast(id board.ID, skillID string, target board.Position) ([]board.Position, error) {
	u, pos, sk, err := b.castable(id, skillID)
	if err != nil {
		return nil, err
	}
	if err := b.validateTarget(u, pos, sk, target); err != nil {
		return nil, err
	}
	tiles := b.affectArea(sk, pos, target)
	if len(tiles) == 0 {
		return nil, fmt.Errorf("casting %q at %s: %w", skillID, target, ErrNoTargets)
	}
	if u.CurrentMP < sk.MPCost() {
		return nil, fmt.Errorf("casting %q: %w: have %d, need %d", skillID, ErrInsufficientMP, u.CurrentMP, sk.MPCost())
	}
	return tiles, nil
}

// CastOption is one legal aim of a skill.
type CastOption struct {
	Target   board.Position   `json:"target"`
	Area     []board.Position `json:"area"`
	Affected []board.ID       `json:"affected,omitempty"`
}

// CastOptionsFrom lists every legal aim of skillID for unit id as if the unit
// stood on from, in row-major target order. Affected lists every unit inside
// the area regardless of effect filters.
//
// Precondition: from must be empty or the unit's own tile.
// Postcondition: The battle is left unchanged.
func (b *Battle) CastOptionsFrom(id board.ID, skillID string, from board.Position) ([]CastOption, error) {
	u, pos, sk, err := b.castable(id, skillID)
	if err != nil {
		return nil, err
	}
	if u.CurrentMP < sk.MPCost() {
		return nil, fmt.Errorf("casting %q: %w: have %d, need %d", skillID, ErrInsufficientMP, u.CurrentMP, sk.MPCost())
	}
	if from != pos {
		if other, ok := b.UnitAt(from); ok {
			return nil, fmt.Errorf("casting from %s: %w: unit %d", from, ErrTileOccupied, other.ID)
		}
		if err := b.occupancy.Move(board.Unit(id), from); err != nil {
			return nil, err
		}
		defer func() { _ = b.occupancy.Move(board.Unit(id), pos) }()
	}

	var out []CastOption
	for _, target := range area.Casting(b.Board, from, sk.MinRange, sk.MaxRange) {
		if b.validateTarget(u, from, sk, target) != nil {
			continue
		}
		tiles := b.affectArea(sk, from, target)
		if len(tiles) == 0 {
			continue
		}
		opt := CastOption{Target: target, Area: tiles}
		for _, t := range tiles {
			if o, ok := b.UnitAt(t); ok {
				opt.Affected = append(opt.Affected, o.ID)
			}
		}
		out = append(out, opt)
	}
	return out, nil
}

// CastSkill has unit id cast skillID at target.
//
// A unit casts at most once per turn and not after entering its second
// movement phase. Each affected unit that passes an effect's filter is
// resolved once per cast: hit_based effects roll against the target's evasion
// and block, dc_based effects let the target save. A Miss or a successful save
// skips the unit. A Blocked hit reduces HP damage by the target's
// BlockProtection. Units brought to zero HP are despawned after all effects
// apply.
//
// Postcondition: Returns a report, or an error with no state change. Once
// validation passes the cast always completes.
func (b *Battle) CastSkill(id board.ID, skillID string, target board.Position) (CastReport, error) {
	tiles, err := b.PreviewCast(id, skillID, target)
	if err != nil {
		return CastReport{}, err
	}
	caster := b.units[id]
	casterPos, _ := b.PositionOf(id)
	sk, _ := b.catalog.Skill(skillID)

	rep := CastReport{Caster: id, Skill: skillID, Target: target, MPSpent: sk.MPCost(), Area: tiles}
	caster.CurrentMP += sk.MPChange
	if hi := caster.MaxMP(); caster.CurrentMP > hi {
		caster.CurrentMP = hi
	}

	results := map[board.ID]*TargetResult{}
	var order []board.ID
	resultFor := func(u *Unit) *TargetResult {
		r, ok := results[u.ID]
		if !ok {
			r = &TargetResult{Unit: u.ID}
			results[u.ID] = r
			order = append(order, u.ID)
		}
		return r
	}

	for _, e := range sk.Effects {
		for _, p := range b.effectTiles(e, casterPos, target) {
			t, ok := b.UnitAt(p)
			if !ok {
				continue
			}
			if !e.Target.Filter.Allows(t.Faction == caster.Faction, t.ID == caster.ID) {
				continue
			}
			r := resultFor(t)
			if !b.lands(caster, t, e, r) {
				continue
			}
			b.applyEffect(sk, e, caster, casterPos, t, r)
		}
	}

	caster.HasCastSkillThisTurn = true
	caster.CastSkillAllowsMove = sk.AllowsMovementAfter

	for _, uid := range order {
		r := results[uid]
		if u, ok := b.units[uid]; ok && u.CurrentHP <= 0 {
			r.Defeated = true
			b.defeat(u)
		}
		rep.Results = append(rep.Results, *r)
	}

	b.logger.Info("skill cast",
		zap.Uint32("caster", uint32(id)),
		zap.String("skill", skillID),
		zap.Stringer("target", target),
		zap.Int("mp_spent", rep.MPSpent),
		zap.Int("units_affected", len(rep.Results)),
	)
	return rep, nil
}

// lands resolves whether e reaches t, rolling at most once per unit per cast.
func (b *Battle) lands(caster, t *Unit, e skill.Effect, r *TargetResult) bool {
	switch e.Mechanic.Kind {
	case skill.MechanicHitBased:
		if r.Hit == nil {
			res := combat.ResolveHit(combat.HitContext{
				Accuracy: caster.Attributes.Get(skill.Hit) + e.Mechanic.HitBonus,
				Evasion:  t.Attributes.Get(skill.Evasion),
				Block:    t.Attributes.Get(skill.Block),
			}, b.roller.Source())
			r.Hit = &res
			b.logger.Debug("hit resolved",
				zap.Uint32("attacker", uint32(caster.ID)),
				zap.Uint32("defender", uint32(t.ID)),
				zap.Stringer("outcome", res.Outcome),
				zap.String("trace", res.Trace),
			)
		}
		return r.Hit.Outcome != combat.Miss
	case skill.MechanicDCBased:
		if r.Save == nil {
			roll := b.roller.Roll(saveDice)
			total := roll.Total() + t.Attributes.Get(e.Mechanic.SaveType)
			r.Save = &SaveResult{
				Save:     e.Mechanic.SaveType,
				DC:       e.Mechanic.DC,
				Roll:     roll,
				Total:    total,
				Resisted: total >= e.Mechanic.DC,
			}
		}
		return !r.Save.Resisted
	default:
		return true
	}
}

func (b *Battle) applyEffect(sk *skill.Skill, e skill.Effect, caster *Unit, casterPos board.Position, t *Unit, r *TargetResult) {
	switch e.Kind {
	case skill.EffectHPModify:
		amount := e.Formula.Evaluate(&caster.Attributes, &t.Attributes)
		if amount < 0 && r.Hit != nil && r.Hit.Outcome == combat.Blocked {
			amount = min(amount+t.Attributes.Get(skill.BlockProtection), 0)
		}
		r.HPChange += b.changeHP(t, amount)
	case skill.EffectAttributeModify:
		duration := buff.Permanent
		if e.Duration != nil {
			duration = *e.Duration
		}
		t.Buffs.Apply(sk.ID, skill.Buff{Attribute: e.Attribute, Formula: e.Formula}, duration)
		b.refresh(t)
		r.Buffed = append(r.Buffed, e.Attribute)
	case skill.EffectPush:
		if to, moved := b.push(t, casterPos, e.Distance, r); moved {
			r.PushedTo = &to
		}
	}
}

// push slides t up to distance tiles directly away from origin along the
// dominant axis, stopping before the board edge, any unit and impassable
// terrain. Contact hp_modify applies for each tile entered.
func (b *Battle) push(t *Unit, origin board.Position, distance int, r *TargetResult) (board.Position, bool) {
	from, _ := b.PositionOf(t.ID)
	dx, dy := from.X-origin.X, from.Y-origin.Y
	var d board.Direction
	switch {
	case dx == 0 && dy == 0:
		return from, false
	case abs(dx) >= abs(dy) && dx > 0:
		d = board.Right
	case abs(dx) >= abs(dy):
		d = board.Left
	case dy > 0:
		d = board.Down
	default:
		d = board.Up
	}

	cur, delta := from, 0
	for i := 0; i < distance; i++ {
		next, ok := b.Board.Step(cur, d)
		if !ok || b.TerrainCost(next) >= movement.Impassable {
			break
		}
		if _, occupied := b.UnitAt(next); occupied {
			break
		}
		cur = next
		for _, o := range b.ObjectsAt(cur) {
			delta += o.Type.HPModify
		}
	}
	if cur == from {
		return from, false
	}
	// The tile was checked free of units above.
	_ = b.occupancy.Move(board.Unit(t.ID), cur)
	r.HPChange += b.changeHP(t, delta)
	return cur, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
