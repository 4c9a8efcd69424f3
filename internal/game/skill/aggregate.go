package skill

import "fmt"

// Buff is a transient attribute contribution supplied by the caller.
type Buff struct {
	Attribute Attribute `json:"attribute"`
	Formula   Formula   `json:"formula"`
}

type contribution struct {
	attr  Attribute
	value int // literal for fixed, percent for multipliers
}

// CalculateAttributes derives a unit's attributes from its learned skills and
// active buffs.
//
// Only passive skills contribute, and of their effects only those for which
// IsSelfModifier holds. Every buff contributes. Fixed formulas are summed into
// their attribute starting from zero. Caster-sourced scaled formulas are then
// applied in order as attr = attr*multiplier/100, each overwriting the
// attribute. A later multiplier on the same attribute therefore replaces the
// result of an earlier one. Target-sourced formulas are ignored.
//
// Postcondition: Returns ErrSkillNotFound and zero attributes if any id in
// skillIDs is unknown to lookup.
func CalculateAttributes(skillIDs []string, buffs []Buff, lookup Lookup) (Attributes, error) {
	var fixed, multipliers []contribution
	collect := func(attr Attribute, f Formula) {
		switch {
		case f.Kind == FormulaFixed:
			fixed = append(fixed, contribution{attr, f.Value})
		case f.Kind == FormulaAttribute && f.Source == SourceCaster:
			multipliers = append(multipliers, contribution{attr, f.Multiplier})
		}
	}

	for _, id := range skillIDs {
		s, ok := lookup.Skill(id)
		if !ok {
			return Attributes{}, fmt.Errorf("calculating attributes: %w: %q", ErrSkillNotFound, id)
		}
		if s.Trigger != TriggerPassive {
			continue
		}
		for _, e := range s.Effects {
			if e.IsSelfModifier() {
				collect(e.Attribute, e.Formula)
			}
		}
	}
	for _, b := range buffs {
		collect(b.Attribute, b.Formula)
	}

	var out Attributes
	for _, c := range fixed {
		out.Add(c.attr, c.value)
	}
	for _, c := range multipliers {
		out.Set(c.attr, out.Get(c.attr)*c.value/100)
	}
	return out, nil
}
