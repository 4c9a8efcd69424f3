// Package battle runs a single tactical battle: units and objects on a board,
// movement, skill casting, buffs and turn rotation.
//
// A Battle is not safe for concurrent use. Manager serialises access to the
// battles it owns.
package battle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/buff"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
	"github.com/cory-johannsen/gridtactics/internal/observability"
)

var (
	// ErrUnitTypeNotFound is returned when a unit type name has no definition.
	ErrUnitTypeNotFound = errors.New("unit type not found")
	// ErrObjectTypeNotFound is returned when an object type name has no definition.
	ErrObjectTypeNotFound = errors.New("object type not found")
	// ErrUnitNotFound is returned when a unit id is not on the board.
	ErrUnitNotFound = errors.New("unit not found")

	ErrTileOccupied          = errors.New("tile already holds a unit")
	ErrNoLevel               = errors.New("battle was not created from a level")
	ErrNotDeploymentPosition = errors.New("position is not a deployment position")
	ErrDeploymentFull        = errors.New("maximum number of player units deployed")
	ErrCombatNotStarted      = errors.New("combat has not started")
	ErrCombatStarted         = errors.New("combat has already started")
	ErrTurnVacated           = errors.New("active unit was removed; end the turn")
	ErrMovementLocked        = errors.New("unit cannot move after casting this turn")
	ErrCannotCast            = errors.New("unit cannot cast this turn")
	ErrSkillNotLearned       = errors.New("unit has not learned skill")
	ErrSkillNotActive        = errors.New("skill cannot be cast")
	ErrOutOfRange            = errors.New("target out of skill range")
	ErrInvalidTarget         = errors.New("invalid skill target")
	ErrNoTargets             = errors.New("skill affects no tiles")
	ErrInsufficientMP        = errors.New("not enough MP")
)

// Options configures a Battle. Zero fields take defaults.
type Options struct {
	// Policy derives a unit's movement budget. Default movement.TwoPhase.
	Policy movement.BudgetPolicy
	// Initiative is the dice expression added to the initiative attribute. Default 1d6.
	Initiative *dice.Expression
	// Roller draws hit rolls, saves and initiative. Default a crypto-backed roller.
	Roller *dice.Roller
	// IDSource draws unit and object ids. Default crypto/rand.
	IDSource dice.Source
	// Logger receives battle events. Default zap.NewNop.
	Logger *zap.Logger
}

// Object is a terrain object on the board.
type Object struct {
	ID   board.ID             `json:"id"`
	Type *gamedata.ObjectType `json:"type"`
}

// Battle is the mutable state of one battle.
type Battle struct {
	ID      string
	Board   board.Board
	Level   *gamedata.Level
	catalog *gamedata.Catalog

	occupancy *board.OccupancyIndex
	units     map[board.ID]*Unit
	// spawnOrder lists live unit ids in spawn order for deterministic iteration.
	spawnOrder []board.ID
	objects    map[board.ID]*Object
	turns      *combat.TurnTracker

	policy     movement.BudgetPolicy
	initiative dice.Expression
	roller     *dice.Roller
	ids        *board.IDGenerator
	logger     *zap.Logger
}

// New creates an empty battle on b.
//
// Precondition: cat must be non-nil.
func New(cat *gamedata.Catalog, b board.Board, opts Options) *Battle {
	id := uuid.New().String()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	roller := opts.Roller
	if roller == nil {
		roller = dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	}
	ids := opts.IDSource
	if ids == nil {
		ids = dice.NewCryptoSource()
	}
	initiative := dice.MustParse("1d6")
	if opts.Initiative != nil {
		initiative = *opts.Initiative
	}
	return &Battle{
		ID:         id,
		Board:      b,
		catalog:    cat,
		occupancy:  board.NewOccupancyIndex(),
		units:      make(map[board.ID]*Unit),
		objects:    make(map[board.ID]*Object),
		policy:     opts.Policy,
		initiative: initiative,
		roller:     roller,
		ids:        board.NewIDGenerator(ids),
		logger:     observability.ForBattle(logger, "battle", id),
	}
}

// FromLevel creates a battle on the level's board with its units and objects.
//
// Postcondition: Returns a populated Battle, or an error naming the first
// placement that could not be made.
func FromLevel(cat *gamedata.Catalog, lvl *gamedata.Level, opts Options) (*Battle, error) {
	b := New(cat, lvl.Board, opts)
	b.Level = lvl
	for _, o := range lvl.Objects {
		if _, err := b.PlaceObject(o.Type, o.Position); err != nil {
			return nil, fmt.Errorf("level %q: %w", lvl.Name, err)
		}
	}
	for _, u := range lvl.Units {
		if _, err := b.SpawnUnit(u.Type, u.Faction, u.Position); err != nil {
			return nil, fmt.Errorf("level %q: %w", lvl.Name, err)
		}
	}
	b.logger.Info("battle created from level",
		zap.String("level", lvl.Name),
		zap.Int("units", len(b.units)),
		zap.Int("objects", len(b.objects)),
	)
	return b, nil
}

// Catalog returns the content the battle draws on.
func (b *Battle) Catalog() *gamedata.Catalog { return b.catalog }

// Policy returns the movement budget policy.
func (b *Battle) Policy() movement.BudgetPolicy { return b.policy }

// Unit returns the unit with id.
func (b *Battle) Unit(id board.ID) (*Unit, bool) {
	u, ok := b.units[id]
	return u, ok
}

// Units returns the live units in spawn order.
func (b *Battle) Units() []*Unit {
	out := make([]*Unit, 0, len(b.spawnOrder))
	for _, id := range b.spawnOrder {
		out = append(out, b.units[id])
	}
	return out
}

// PositionOf returns where unit id stands.
func (b *Battle) PositionOf(id board.ID) (board.Position, bool) {
	return b.occupancy.PositionOf(board.Unit(id))
}

// UnitAt returns the unit standing on pos.
func (b *Battle) UnitAt(pos board.Position) (*Unit, bool) {
	id, ok := b.occupancy.UnitAt(pos)
	if !ok {
		return nil, false
	}
	return b.units[id], true
}

// ObjectsAt returns the objects on pos in placement order.
func (b *Battle) ObjectsAt(pos board.Position) []*Object {
	ids := b.occupancy.ObjectsAt(pos)
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.objects[id])
	}
	return out
}

func (b *Battle) unit(id board.ID) (*Unit, board.Position, error) {
	u, ok := b.units[id]
	if !ok {
		return nil, board.Position{}, fmt.Errorf("%w: %d", ErrUnitNotFound, id)
	}
	pos, _ := b.occupancy.PositionOf(board.Unit(id))
	return u, pos, nil
}

// SpawnUnit creates a unit of typeName for faction at pos with attributes
// aggregated from the type's skills and full HP and MP. A unit spawned after
// combat starts joins the end of the turn order.
//
// Postcondition: Returns the unit, or ErrUnitTypeNotFound, board.ErrOutOfBounds,
// ErrTileOccupied or skill.ErrSkillNotFound with no state change.
func (b *Battle) SpawnUnit(typeName string, faction board.Faction, pos board.Position) (*Unit, error) {
	ut, ok := b.catalog.UnitType(typeName)
	if !ok {
		return nil, fmt.Errorf("spawning unit: %w: %q", ErrUnitTypeNotFound, typeName)
	}
	if err := b.Board.Check(pos); err != nil {
		return nil, fmt.Errorf("spawning %q: %w", typeName, err)
	}
	if _, taken := b.occupancy.UnitAt(pos); taken {
		return nil, fmt.Errorf("spawning %q at %s: %w", typeName, pos, ErrTileOccupied)
	}

	skills := make([]string, len(ut.Skills))
	copy(skills, ut.Skills)
	attrs, err := skill.CalculateAttributes(skills, nil, b.catalog)
	if err != nil {
		return nil, fmt.Errorf("spawning %q: %w", typeName, err)
	}

	u := &Unit{
		ID:         b.ids.Next(),
		TypeName:   typeName,
		Faction:    faction,
		Skills:     skills,
		Attributes: attrs,
		Buffs:      buff.NewSet(),
	}
	u.CurrentHP = u.MaxHP()
	u.CurrentMP = u.MaxMP()
	if err := b.occupancy.Insert(pos, board.Unit(u.ID)); err != nil {
		b.ids.Release(u.ID)
		return nil, fmt.Errorf("spawning %q: %w", typeName, err)
	}
	b.units[u.ID] = u
	b.spawnOrder = append(b.spawnOrder, u.ID)
	if b.turns != nil {
		b.turns.Append(u.ID)
	}

	b.logger.Debug("unit spawned",
		zap.Uint32("unit_id", uint32(u.ID)),
		zap.String("type", typeName),
		zap.Int("faction", int(faction)),
		zap.Stringer("position", pos),
	)
	return u, nil
}

// PlaceObject puts an object of typeName on pos. Objects may share tiles with
// units and with each other.
//
// Postcondition: Returns the object id, or ErrObjectTypeNotFound or
// board.ErrOutOfBounds with no state change.
func (b *Battle) PlaceObject(typeName string, pos board.Position) (board.ID, error) {
	ot, ok := b.catalog.ObjectType(typeName)
	if !ok {
		return 0, fmt.Errorf("placing object: %w: %q", ErrObjectTypeNotFound, typeName)
	}
	if err := b.Board.Check(pos); err != nil {
		return 0, fmt.Errorf("placing %q: %w", typeName, err)
	}
	id := b.ids.Next()
	if err := b.occupancy.Insert(pos, board.Object(id)); err != nil {
		b.ids.Release(id)
		return 0, fmt.Errorf("placing %q: %w", typeName, err)
	}
	b.objects[id] = &Object{ID: id, Type: ot}
	return id, nil
}

// Deploy places a player unit on one of the level's deployment positions. A
// player unit already on that tile is replaced; otherwise the level's
// max_player_units cap applies.
func (b *Battle) Deploy(typeName string, pos board.Position) (*Unit, error) {
	if b.Level == nil {
		return nil, ErrNoLevel
	}
	if b.turns != nil {
		return nil, ErrCombatStarted
	}
	if !b.Level.IsDeploymentPosition(pos) {
		return nil, fmt.Errorf("deploying at %s: %w", pos, ErrNotDeploymentPosition)
	}
	if _, ok := b.catalog.UnitType(typeName); !ok {
		return nil, fmt.Errorf("deploying: %w: %q", ErrUnitTypeNotFound, typeName)
	}

	if existing, ok := b.UnitAt(pos); ok {
		if !existing.IsPlayer() {
			return nil, fmt.Errorf("deploying at %s: %w", pos, ErrTileOccupied)
		}
		if err := b.Despawn(existing.ID); err != nil {
			return nil, err
		}
	} else if b.countFaction(board.PlayerFaction) >= b.Level.MaxPlayerUnits {
		return nil, fmt.Errorf("deploying %q: %w (%d)", typeName, ErrDeploymentFull, b.Level.MaxPlayerUnits)
	}
	return b.SpawnUnit(typeName, board.PlayerFaction, pos)
}

func (b *Battle) countFaction(f board.Faction) int {
	n := 0
	for _, u := range b.units {
		if u.Faction == f {
			n++
		}
	}
	return n
}

// Despawn removes unit id from the board and the turn order.
func (b *Battle) Despawn(id board.ID) error {
	if _, ok := b.units[id]; !ok {
		return fmt.Errorf("despawning: %w: %d", ErrUnitNotFound, id)
	}
	b.despawn(id)
	return nil
}

// despawn removes a live unit.
func (b *Battle) despawn(id board.ID) {
	b.occupancy.Remove(board.Unit(id))
	delete(b.units, id)
	for i, sid := range b.spawnOrder {
		if sid == id {
			b.spawnOrder = append(b.spawnOrder[:i], b.spawnOrder[i+1:]...)
			break
		}
	}
	if b.turns != nil {
		// Removing the active unit leaves the turn vacant until EndTurn.
		b.turns.Remove(id)
	}
	b.ids.Release(id)
	b.logger.Debug("unit despawned", zap.Uint32("unit_id", uint32(id)))
}

// Factions returns the distinct factions with live units, ascending.
func (b *Battle) Factions() []board.Faction {
	seen := map[board.Faction]bool{}
	var out []board.Faction
	for _, u := range b.units {
		if !seen[u.Faction] {
			seen[u.Faction] = true
			out = append(out, u.Faction)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsOver reports whether at most one faction remains.
func (b *Battle) IsOver() bool {
	return len(b.Factions()) <= 1
}

// ObjectView is the serialisable snapshot of an object.
type ObjectView struct {
	ID       board.ID       `json:"id"`
	Type     string         `json:"type"`
	Position board.Position `json:"position"`
}

// State is a serialisable snapshot of a battle.
type State struct {
	ID      string         `json:"id"`
	Level   string         `json:"level,omitempty"`
	Board   board.Board    `json:"board"`
	Started bool           `json:"started"`
	Round   int            `json:"round"`
	Active  board.ID       `json:"active,omitempty"`
	Order   []board.ID     `json:"order"`
	Units   []UnitView     `json:"units"`
	Objects []ObjectView   `json:"objects"`
	Winner  *board.Faction `json:"winner,omitempty"`
}

// UnitView returns the snapshot of one unit.
func (b *Battle) UnitView(id board.ID) (UnitView, error) {
	u, pos, err := b.unit(id)
	if err != nil {
		return UnitView{}, err
	}
	return u.view(pos), nil
}

// State returns a snapshot of the battle. Objects are listed in row-major order.
func (b *Battle) State() State {
	s := State{ID: b.ID, Board: b.Board, Units: []UnitView{}, Objects: []ObjectView{}}
	if b.Level != nil {
		s.Level = b.Level.Name
	}
	if b.turns != nil {
		s.Started = true
		s.Round = b.turns.Round()
		s.Order = b.turns.Order()
		s.Active, _ = b.turns.ActiveUnit()
		if f := b.Factions(); len(f) == 1 {
			s.Winner = &f[0]
		}
	}
	for _, id := range b.spawnOrder {
		pos, _ := b.PositionOf(id)
		s.Units = append(s.Units, b.units[id].view(pos))
	}
	for _, pos := range b.Board.Positions() {
		for _, o := range b.ObjectsAt(pos) {
			s.Objects = append(s.Objects, ObjectView{ID: o.ID, Type: o.Type.Name, Position: pos})
		}
	}
	return s
}
