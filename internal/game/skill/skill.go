// Package skill defines skills, their effects and the aggregation of passive
// effects and buffs into a unit's combat attributes.
package skill

import (
	"errors"
	"fmt"
)

// ErrSkillNotFound is returned when a skill id has no definition.
var ErrSkillNotFound = errors.New("skill not found")

// Trigger is when a skill takes effect.
type Trigger string

const (
	TriggerActive             Trigger = "active"
	TriggerPassive            Trigger = "passive"
	TriggerTurnEnd            Trigger = "turn_end"
	TriggerOnBeingAttacked    Trigger = "on_being_attacked"
	TriggerOnAdjacentUnitMove Trigger = "on_adjacent_unit_move"
)

// EffectKind is what an effect changes.
type EffectKind string

const (
	EffectHPModify        EffectKind = "hp_modify"
	EffectAttributeModify EffectKind = "attribute_modify"
	EffectPush            EffectKind = "push"
)

// MechanicKind is how an effect decides whether it lands.
type MechanicKind string

const (
	MechanicGuaranteed MechanicKind = "guaranteed"
	MechanicHitBased   MechanicKind = "hit_based"
	MechanicDCBased    MechanicKind = "dc_based"
)

// Mechanic parameters; only the fields of Kind are meaningful.
type Mechanic struct {
	Kind     MechanicKind `yaml:"type" json:"type"`
	HitBonus int          `yaml:"hit_bonus,omitempty" json:"hit_bonus,omitempty"`
	CritRate int          `yaml:"crit_rate,omitempty" json:"crit_rate,omitempty"`
	DC       int          `yaml:"dc,omitempty" json:"dc,omitempty"`
	// SaveType is Fortitude, Reflex or Will.
	SaveType Attribute `yaml:"save_type,omitempty" json:"save_type,omitempty"`
}

// Filter restricts which units an effect may select.
type Filter string

const (
	FilterAll                 Filter = "all"
	FilterAllExcludingCaster  Filter = "all_excluding_caster"
	FilterEnemy               Filter = "enemy"
	FilterAlly                Filter = "ally"
	FilterAllyExcludingCaster Filter = "ally_excluding_caster"
	FilterCaster              Filter = "caster"
)

// Allows reports whether a unit passes the filter. sameFaction and isCaster
// describe the candidate relative to the caster.
func (f Filter) Allows(sameFaction, isCaster bool) bool {
	switch f {
	case FilterAll:
		return true
	case FilterAllExcludingCaster:
		return !isCaster
	case FilterEnemy:
		return !sameFaction
	case FilterAlly:
		return sameFaction
	case FilterAllyExcludingCaster:
		return sameFaction && !isCaster
	case FilterCaster:
		return isCaster
	default:
		return false
	}
}

// ShapeKind names an area-of-effect footprint.
type ShapeKind string

const (
	ShapeDiamond   ShapeKind = "diamond"
	ShapeCross     ShapeKind = "cross"
	ShapeLine      ShapeKind = "line"
	ShapeRectangle ShapeKind = "rectangle"
)

// Shape is an area-of-effect footprint. Radius applies to diamonds, Length to
// crosses and lines, Width and Height to rectangles.
type Shape struct {
	Kind   ShapeKind `yaml:"type" json:"type"`
	Radius int       `yaml:"radius,omitempty" json:"radius,omitempty"`
	Length int       `yaml:"length,omitempty" json:"length,omitempty"`
	Width  int       `yaml:"width,omitempty" json:"width,omitempty"`
	Height int       `yaml:"height,omitempty" json:"height,omitempty"`
}

// TargetModeKind is how an effect picks its targets.
type TargetModeKind string

const (
	TargetSingle TargetModeKind = "single"
	TargetMulti  TargetModeKind = "multi"
	TargetArea   TargetModeKind = "area"
)

// TargetMode describes target selection.
type TargetMode struct {
	Mode           TargetModeKind `yaml:"mode" json:"mode"`
	Filter         Filter         `yaml:"filter" json:"filter"`
	Count          int            `yaml:"count,omitempty" json:"count,omitempty"`
	AllowDuplicate bool           `yaml:"allow_duplicate,omitempty" json:"allow_duplicate,omitempty"`
	Shape          *Shape         `yaml:"shape,omitempty" json:"shape,omitempty"`
	// TargetsUnit centres an area on a unit rather than on a tile.
	TargetsUnit bool `yaml:"targets_unit,omitempty" json:"targets_unit,omitempty"`
}

// FormulaKind distinguishes literal and scaled formulas.
type FormulaKind string

const (
	FormulaFixed     FormulaKind = "fixed"
	FormulaAttribute FormulaKind = "attribute"
)

// Source is whose attribute a scaled formula reads.
type Source string

const (
	SourceCaster Source = "caster"
	SourceTarget Source = "target"
)

// Formula computes an effect's magnitude: Value for fixed formulas, or
// Multiplier percent of Source's Attribute for scaled ones.
type Formula struct {
	Kind       FormulaKind `yaml:"type" json:"type"`
	Value      int         `yaml:"value,omitempty" json:"value,omitempty"`
	Source     Source      `yaml:"source,omitempty" json:"source,omitempty"`
	Attribute  Attribute   `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Multiplier int         `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
}

// Fixed returns a literal formula.
func Fixed(v int) Formula { return Formula{Kind: FormulaFixed, Value: v} }

// Scaled returns a formula reading multiplier percent of the caster's attr.
func Scaled(attr Attribute, multiplier int) Formula {
	return Formula{Kind: FormulaAttribute, Source: SourceCaster, Attribute: attr, Multiplier: multiplier}
}

// Evaluate computes the formula against caster and target attributes.
func (f Formula) Evaluate(caster, target *Attributes) int {
	if f.Kind == FormulaFixed {
		return f.Value
	}
	src := caster
	if f.Source == SourceTarget {
		src = target
	}
	return src.Get(f.Attribute) * f.Multiplier / 100
}

// Style is the damage type of an HP effect.
type Style string

const (
	StylePhysical Style = "physical"
	StyleMagical  Style = "magical"
)

// Effect is one thing a skill does.
type Effect struct {
	Kind      EffectKind `yaml:"kind" json:"kind"`
	Mechanic  Mechanic   `yaml:"mechanic" json:"mechanic"`
	Target    TargetMode `yaml:"target" json:"target"`
	Formula   Formula    `yaml:"formula" json:"formula"`
	Attribute Attribute  `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Style     Style      `yaml:"style,omitempty" json:"style,omitempty"`
	// Duration in turns for attribute effects; nil means no duration.
	Duration *int `yaml:"duration,omitempty" json:"duration,omitempty"`
	// Distance in tiles for push effects.
	Distance int `yaml:"distance,omitempty" json:"distance,omitempty"`
}

// IsSelfModifier reports whether e has the exact shape that contributes to
// attribute aggregation: a guaranteed, single-target, caster-only attribute
// modification without a duration.
func (e Effect) IsSelfModifier() bool {
	return e.Kind == EffectAttributeModify &&
		e.Mechanic.Kind == MechanicGuaranteed &&
		e.Target.Mode == TargetSingle &&
		e.Target.Filter == FilterCaster &&
		e.Duration == nil
}

// Skill is the static definition of a skill, loaded from YAML.
type Skill struct {
	ID                  string   `yaml:"id" json:"id"`
	Name                string   `yaml:"name" json:"name"`
	Trigger             Trigger  `yaml:"trigger" json:"trigger"`
	MPChange            int      `yaml:"mp_change" json:"mp_change"`
	MinRange            int      `yaml:"min_range" json:"min_range"`
	MaxRange            int      `yaml:"max_range" json:"max_range"`
	Tags                []string `yaml:"tags" json:"tags,omitempty"`
	AllowsMovementAfter bool     `yaml:"allows_movement_after" json:"allows_movement_after"`
	Effects             []Effect `yaml:"effects" json:"effects"`
}

// HasTag reports whether the skill carries tag.
func (s *Skill) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MPCost returns the MP a cast consumes: the negated MPChange when negative.
func (s *Skill) MPCost() int {
	if s.MPChange < 0 {
		return -s.MPChange
	}
	return 0
}

// Validate checks that the definition is internally consistent.
//
// Postcondition: Returns nil if valid, or an error describing all violations.
func (s *Skill) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch s.Trigger {
	case TriggerActive, TriggerPassive, TriggerTurnEnd, TriggerOnBeingAttacked, TriggerOnAdjacentUnitMove:
	default:
		errs = append(errs, fmt.Errorf("unknown trigger %q", s.Trigger))
	}
	if s.MinRange < 0 || s.MaxRange < s.MinRange {
		errs = append(errs, fmt.Errorf("range [%d,%d] is invalid", s.MinRange, s.MaxRange))
	}
	for i, e := range s.Effects {
		if err := e.validate(); err != nil {
			errs = append(errs, fmt.Errorf("effect %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("skill %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}

func (e Effect) validate() error {
	var errs []error
	switch e.Kind {
	case EffectHPModify, EffectAttributeModify, EffectPush:
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", e.Kind))
	}
	switch e.Mechanic.Kind {
	case MechanicGuaranteed, MechanicHitBased:
	case MechanicDCBased:
		if s := e.Mechanic.SaveType; s != Fortitude && s != Reflex && s != Will {
			errs = append(errs, fmt.Errorf("save_type must be fortitude, reflex or will, got %s", s))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mechanic %q", e.Mechanic.Kind))
	}
	switch e.Target.Mode {
	case TargetSingle:
	case TargetMulti:
		if e.Target.Count < 1 {
			errs = append(errs, errors.New("multi target count must be >= 1"))
		}
	case TargetArea:
		if e.Target.Shape == nil {
			errs = append(errs, errors.New("area target requires a shape"))
		} else if err := e.Target.Shape.validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown target mode %q", e.Target.Mode))
	}
	if !e.Target.Filter.valid() {
		errs = append(errs, fmt.Errorf("unknown filter %q", e.Target.Filter))
	}
	if e.Kind != EffectPush {
		switch e.Formula.Kind {
		case FormulaFixed:
		case FormulaAttribute:
			if e.Formula.Source != SourceCaster && e.Formula.Source != SourceTarget {
				errs = append(errs, fmt.Errorf("unknown formula source %q", e.Formula.Source))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown formula %q", e.Formula.Kind))
		}
	}
	if e.Duration != nil && *e.Duration < 1 {
		errs = append(errs, fmt.Errorf("duration must be >= 1, got %d", *e.Duration))
	}
	if e.Kind == EffectPush && e.Distance < 1 {
		errs = append(errs, errors.New("push distance must be >= 1"))
	}
	return errors.Join(errs...)
}

func (f Filter) valid() bool {
	switch f {
	case FilterAll, FilterAllExcludingCaster, FilterEnemy, FilterAlly, FilterAllyExcludingCaster, FilterCaster:
		return true
	}
	return false
}

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeDiamond:
		if s.Radius < 0 {
			return errors.New("diamond radius must be >= 0")
		}
	case ShapeCross, ShapeLine:
		if s.Length < 0 {
			return fmt.Errorf("%s length must be >= 0", s.Kind)
		}
	case ShapeRectangle:
		if s.Width < 1 || s.Height < 1 {
			return errors.New("rectangle width and height must be >= 1")
		}
	default:
		return fmt.Errorf("unknown shape %q", s.Kind)
	}
	return nil
}
