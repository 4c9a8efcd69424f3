package combat

import (
	"sort"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
)

// Contender is a unit entering the initiative roll.
type Contender struct {
	ID         board.ID
	Initiative int // the unit's initiative attribute
}

// InitiativeRoll is one unit's rolled initiative.
type InitiativeRoll struct {
	ID    board.ID        `json:"id"`
	Roll  dice.RollResult `json:"-"`
	Total int             `json:"total"`
}

// RollInitiative rolls expr plus each contender's initiative attribute and
// returns the results sorted by total, highest first. Ties keep the input order.
//
// Precondition: roller must be non-nil.
func RollInitiative(contenders []Contender, expr dice.Expression, roller *dice.Roller) []InitiativeRoll {
	out := make([]InitiativeRoll, len(contenders))
	for i, c := range contenders {
		r := roller.Roll(expr)
		out[i] = InitiativeRoll{ID: c.ID, Roll: r, Total: r.Total() + c.Initiative}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// TurnOrder extracts the ids of rolls in order.
func TurnOrder(rolls []InitiativeRoll) []board.ID {
	ids := make([]board.ID, len(rolls))
	for i, r := range rolls {
		ids[i] = r.ID
	}
	return ids
}
