package battle

import (
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/buff"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// Unit is a combatant on the board.
//
// Attributes is recomputed wholesale whenever the unit's skills or buffs
// change. Moved and the cast flags are cleared only when the unit's turn begins.
type Unit struct {
	ID       board.ID
	TypeName string
	Faction  board.Faction
	// Skills holds learned skill ids in learning order.
	Skills     []string
	Attributes skill.Attributes
	CurrentHP  int
	CurrentMP  int
	// Moved is the movement cost spent this turn.
	Moved                int
	HasCastSkillThisTurn bool
	// CastSkillAllowsMove records whether this turn's cast permits further movement.
	CastSkillAllowsMove bool
	Buffs               *buff.Set
}

// MaxHP returns the aggregated HP attribute.
func (u *Unit) MaxHP() int { return u.Attributes.Get(skill.HP) }

// MaxMP returns the aggregated MP attribute.
func (u *Unit) MaxMP() int { return u.Attributes.Get(skill.MP) }

// MovePoints returns the movement allowance of one phase.
func (u *Unit) MovePoints() int { return u.Attributes.Get(skill.Movement) }

// IsPlayer reports whether the unit belongs to the player faction.
func (u *Unit) IsPlayer() bool { return u.Faction == board.PlayerFaction }

// HasSkill reports whether the unit has learned id.
func (u *Unit) HasSkill(id string) bool {
	for _, s := range u.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// CanMove reports whether a cast this turn has locked the unit in place.
func (u *Unit) CanMove() bool {
	return !u.HasCastSkillThisTurn || u.CastSkillAllowsMove
}

// CanCast reports whether the unit may still cast this turn: once per turn,
// and never after moving into its second movement phase.
func (u *Unit) CanCast() bool {
	return !u.HasCastSkillThisTurn && !movement.InSecondPhase(u.MovePoints(), u.Moved)
}

func (u *Unit) resetTurn() {
	u.Moved = 0
	u.HasCastSkillThisTurn = false
	u.CastSkillAllowsMove = false
}

// UnitView is the serialisable snapshot of a unit.
type UnitView struct {
	ID                   board.ID         `json:"id"`
	Type                 string           `json:"type"`
	Faction              board.Faction    `json:"faction"`
	Position             board.Position   `json:"position"`
	Skills               []string         `json:"skills"`
	Attributes           skill.Attributes `json:"attributes"`
	HP                   int              `json:"hp"`
	MP                   int              `json:"mp"`
	Moved                int              `json:"moved"`
	HasCastSkillThisTurn bool             `json:"has_cast_skill_this_turn"`
	Buffs                []buff.Active    `json:"buffs"`
}

func (u *Unit) view(pos board.Position) UnitView {
	skills := make([]string, len(u.Skills))
	copy(skills, u.Skills)
	return UnitView{
		ID:                   u.ID,
		Type:                 u.TypeName,
		Faction:              u.Faction,
		Position:             pos,
		Skills:               skills,
		Attributes:           u.Attributes,
		HP:                   u.CurrentHP,
		MP:                   u.CurrentMP,
		Moved:                u.Moved,
		HasCastSkillThisTurn: u.HasCastSkillThisTurn,
		Buffs:                u.Buffs.All(),
	}
}
