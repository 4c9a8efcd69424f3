package ai

import (
	"fmt"

	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

// BuildWorldState snapshots b for the unit identified by id.
//
// Postcondition: ws.Actor.ID == id; every unit on the board is represented.
func BuildWorldState(b *battle.Battle, id board.ID) (*WorldState, error) {
	ws := &WorldState{}
	for _, u := range b.Units() {
		pos, _ := b.PositionOf(u.ID)
		s := &UnitState{
			ID:      u.ID,
			Type:    u.TypeName,
			Faction: u.Faction,
			Pos:     pos,
			HP:      u.CurrentHP,
			MaxHP:   u.MaxHP(),
			MP:      u.CurrentMP,
			MaxMP:   u.MaxMP(),
		}
		if u.ID == id {
			ws.Actor = s
		}
		ws.Units = append(ws.Units, s)
	}
	if ws.Actor == nil {
		return nil, fmt.Errorf("world state for unit %d: %w", id, battle.ErrUnitNotFound)
	}
	return ws, nil
}
