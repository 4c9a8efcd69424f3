package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
)

// TerrainCost returns the cost of entering pos: the highest entry cost among
// the objects on it, or movement.BasicCost for a bare tile.
func (b *Battle) TerrainCost(pos board.Position) int {
	cost := movement.BasicCost
	for i, o := range b.ObjectsAt(pos) {
		if c := o.Type.EntryCost(); i == 0 || c > cost {
			cost = c
		}
	}
	return cost
}

// FactionAt reports the faction of the unit standing on pos.
func (b *Battle) FactionAt(pos board.Position) (board.Faction, bool) {
	u, ok := b.UnitAt(pos)
	if !ok {
		return 0, false
	}
	return u.Faction, true
}

// Budget returns the movement budget unit u has left this turn.
func (b *Battle) Budget(u *Unit) int {
	return b.policy.Budget(u.MovePoints(), u.Moved)
}

// Reachable returns the tiles unit id may move to this turn.
//
// Postcondition: Returns ErrUnitNotFound, or ErrMovementLocked when a cast
// this turn forbids further movement.
func (b *Battle) Reachable(id board.ID) (movement.Result, error) {
	u, pos, err := b.unit(id)
	if err != nil {
		return movement.Result{}, err
	}
	if !u.CanMove() {
		return movement.Result{}, fmt.Errorf("unit %d: %w", id, ErrMovementLocked)
	}
	return b.reachableFrom(u, pos, b.Budget(u))
}

func (b *Battle) reachableFrom(u *Unit, pos board.Position, budget int) (movement.Result, error) {
	return movement.Reachable(b.Board, movement.Mover{Pos: pos, Faction: u.Faction}, budget, b.FactionAt, b.TerrainCost)
}

// Path returns the route unit id would take to reach to, both ends included.
func (b *Battle) Path(id board.ID, to board.Position) ([]board.Position, error) {
	reach, err := b.Reachable(id)
	if err != nil {
		return nil, err
	}
	return reach.PathTo(to)
}

// MoveReport describes a completed move.
type MoveReport struct {
	Unit     board.ID         `json:"unit"`
	Path     []board.Position `json:"path"`
	Cost     int              `json:"cost"`
	Moved    int              `json:"moved"`
	HPChange int              `json:"hp_change"`
	Defeated bool             `json:"defeated"`
}

// Move walks unit id to to along its cheapest route. The route's cost is added
// to Moved, and the hp_modify of every object on each tile entered is applied
// once the unit arrives. A unit brought to zero HP is despawned.
//
// Postcondition: Returns movement.ErrNotReachable, ErrUnitNotFound or
// ErrMovementLocked with no state change.
func (b *Battle) Move(id board.ID, to board.Position) (MoveReport, error) {
	reach, err := b.Reachable(id)
	if err != nil {
		return MoveReport{}, err
	}
	path, err := reach.PathTo(to)
	if err != nil {
		return MoveReport{}, fmt.Errorf("moving unit %d: %w", id, err)
	}
	u := b.units[id]
	cost := reach.Tiles[to].Cost

	if err := b.occupancy.Move(board.Unit(id), to); err != nil {
		return MoveReport{}, fmt.Errorf("moving unit %d: %w", id, err)
	}
	u.Moved += cost

	delta := 0
	for _, p := range path[1:] {
		for _, o := range b.ObjectsAt(p) {
			delta += o.Type.HPModify
		}
	}
	rep := MoveReport{Unit: id, Path: path, Cost: cost, Moved: u.Moved}
	rep.HPChange = b.changeHP(u, delta)

	b.logger.Debug("unit moved",
		zap.Uint32("unit_id", uint32(id)),
		zap.Stringer("from", path[0]),
		zap.Stringer("to", to),
		zap.Int("cost", cost),
		zap.Int("moved", u.Moved),
		zap.Int("hp_change", rep.HPChange),
	)
	if u.CurrentHP <= 0 {
		rep.Defeated = true
		b.defeat(u)
	}
	return rep, nil
}

// changeHP adds delta to the unit's HP, capped at its maximum, and returns
// the change actually applied. HP may drop below zero.
func (b *Battle) changeHP(u *Unit, delta int) int {
	before := u.CurrentHP
	u.CurrentHP += delta
	if hi := u.MaxHP(); u.CurrentHP > hi {
		u.CurrentHP = hi
	}
	return u.CurrentHP - before
}

func (b *Battle) defeat(u *Unit) {
	b.logger.Info("unit defeated",
		zap.Uint32("unit_id", uint32(u.ID)),
		zap.String("type", u.TypeName),
		zap.Int("faction", int(u.Faction)),
	)
	b.despawn(u.ID)
}
