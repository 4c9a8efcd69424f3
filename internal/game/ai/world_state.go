package ai

import "github.com/cory-johannsen/gridtactics/internal/game/board"

// UnitState captures a unit's scoring-relevant state at planning time.
type UnitState struct {
	ID      board.ID
	Type    string
	Faction board.Faction
	Pos     board.Position
	HP      int
	MaxHP   int
	MP      int
	MaxMP   int
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (u *UnitState) HPPercent() float64 {
	if u.MaxHP <= 0 {
		return 0
	}
	return float64(u.HP) / float64(u.MaxHP) * 100
}

// WorldState is the snapshot a Scorer sees for one acting unit.
//
// Invariant: Actor is also present in Units.
type WorldState struct {
	Actor *UnitState
	// Units lists every unit on the board in spawn order.
	Units []*UnitState
}

// Unit returns the unit with id, or nil.
func (ws *WorldState) Unit(id board.ID) *UnitState {
	for _, u := range ws.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// Enemies returns every unit of another faction than the actor.
func (ws *WorldState) Enemies() []*UnitState {
	var out []*UnitState
	for _, u := range ws.Units {
		if u.Faction != ws.Actor.Faction {
			out = append(out, u)
		}
	}
	return out
}

// Allies returns the actor's faction, excluding the actor.
func (ws *WorldState) Allies() []*UnitState {
	var out []*UnitState
	for _, u := range ws.Units {
		if u.Faction == ws.Actor.Faction && u.ID != ws.Actor.ID {
			out = append(out, u)
		}
	}
	return out
}

// NearestEnemy returns the enemy closest to from by Manhattan distance and
// that distance.
//
// Postcondition: nil if no enemies exist; ties broken by order in Units.
func (ws *WorldState) NearestEnemy(from board.Position) (*UnitState, int) {
	var best *UnitState
	bestDist := 0
	for _, e := range ws.Enemies() {
		if d := from.Manhattan(e.Pos); best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// WeakestEnemy returns the enemy with the lowest HP percentage, or nil.
//
// Postcondition: nil if no enemies exist; ties broken by order in Units.
func (ws *WorldState) WeakestEnemy() *UnitState {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	weakest := enemies[0]
	for _, e := range enemies[1:] {
		if e.HPPercent() < weakest.HPPercent() {
			weakest = e
		}
	}
	return weakest
}
