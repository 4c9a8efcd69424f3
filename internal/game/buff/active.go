// Package buff tracks the temporary attribute modifiers applied to a unit.
package buff

import "github.com/cory-johannsen/gridtactics/internal/game/skill"

// Permanent marks a buff that never expires on its own.
const Permanent = -1

// Active is one applied buff.
type Active struct {
	// Source is the skill id that applied the buff.
	Source    string     `json:"source"`
	Buff      skill.Buff `json:"buff"`
	Remaining int        `json:"remaining"`
}

// Set holds a unit's buffs in application order. Order matters because
// multiplier buffs overwrite each other during aggregation.
//
// Set is not safe for concurrent use; the caller must serialise access.
type Set struct {
	active []*Active
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Apply adds a buff, or refreshes an existing buff from the same source on the
// same attribute to the longer of the two durations. A refreshed buff keeps
// its original position.
//
// Precondition: duration > 0 or duration == Permanent.
// Postcondition: Has(source) is true.
func (s *Set) Apply(source string, b skill.Buff, duration int) {
	for _, a := range s.active {
		if a.Source == source && a.Buff.Attribute == b.Attribute {
			a.Buff = b
			if a.Remaining != Permanent && (duration == Permanent || duration > a.Remaining) {
				a.Remaining = duration
			}
			return
		}
	}
	s.active = append(s.active, &Active{Source: source, Buff: b, Remaining: duration})
}

// Remove drops every buff applied by source. Absent sources are a no-op.
func (s *Set) Remove(source string) {
	kept := s.active[:0]
	for _, a := range s.active {
		if a.Source != source {
			kept = append(kept, a)
		}
	}
	clear(s.active[len(kept):])
	s.active = kept
}

// Tick decrements every timed buff and drops those that reach zero.
//
// Postcondition: Returns the sources of the expired buffs in application order.
func (s *Set) Tick() []string {
	var expired []string
	kept := s.active[:0]
	for _, a := range s.active {
		if a.Remaining != Permanent {
			a.Remaining--
			if a.Remaining <= 0 {
				expired = append(expired, a.Source)
				continue
			}
		}
		kept = append(kept, a)
	}
	clear(s.active[len(kept):])
	s.active = kept
	return expired
}

// Has reports whether any buff from source is active.
func (s *Set) Has(source string) bool {
	for _, a := range s.active {
		if a.Source == source {
			return true
		}
	}
	return false
}

// Len returns the number of active buffs.
func (s *Set) Len() int { return len(s.active) }

// Buffs returns the active modifiers in application order, ready for
// skill.CalculateAttributes.
func (s *Set) Buffs() []skill.Buff {
	out := make([]skill.Buff, len(s.active))
	for i, a := range s.active {
		out[i] = a.Buff
	}
	return out
}

// All returns copies of the active buffs in application order.
func (s *Set) All() []Active {
	out := make([]Active, len(s.active))
	for i, a := range s.active {
		out[i] = *a
	}
	return out
}
