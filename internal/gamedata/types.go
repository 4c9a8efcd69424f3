// Package gamedata loads unit types, object types and levels from YAML and
// bundles them with the skill registry into a Catalog.
package gamedata

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
)

// UnitType is a template for spawning units.
type UnitType struct {
	Name   string   `yaml:"name" json:"name"`
	Skills []string `yaml:"skills" json:"skills"`
}

// Validate checks the unit type.
func (u *UnitType) Validate() error {
	if u.Name == "" {
		return errors.New("unit type name must not be empty")
	}
	return nil
}

// ObjectType is a template for terrain objects.
type ObjectType struct {
	Name string `yaml:"name" json:"name"`
	// MovementCost is the cost of entering the object's tile; zero means
	// movement.BasicCost and movement.Impassable blocks it.
	MovementCost int  `yaml:"movement_cost" json:"movement_cost"`
	BlocksSight  bool `yaml:"blocks_sight" json:"blocks_sight"`
	BlocksSound  bool `yaml:"blocks_sound" json:"blocks_sound"`
	// HPModify is applied to a unit entering the tile: negative damages, positive heals.
	HPModify int `yaml:"hp_modify" json:"hp_modify"`
}

// EntryCost returns the cost of entering the object's tile.
func (o *ObjectType) EntryCost() int {
	if o.MovementCost <= 0 {
		return movement.BasicCost
	}
	return o.MovementCost
}

// Validate checks the object type.
func (o *ObjectType) Validate() error {
	var errs []error
	if o.Name == "" {
		errs = append(errs, errors.New("object type name must not be empty"))
	}
	if o.MovementCost < 0 {
		errs = append(errs, fmt.Errorf("movement_cost must be >= 0, got %d", o.MovementCost))
	}
	return errors.Join(errs...)
}

// UnitPlacement places a unit of Type for Faction at Position.
type UnitPlacement struct {
	Position board.Position `json:"position"`
	Type     string         `json:"type"`
	Faction  board.Faction  `json:"faction"`
}

// ObjectPlacement places an object of Type at Position.
type ObjectPlacement struct {
	Position board.Position `json:"position"`
	Type     string         `json:"type"`
}

// Level is a playable battle map.
type Level struct {
	Name                string            `json:"name"`
	Board               board.Board       `json:"board"`
	MaxPlayerUnits      int               `json:"max_player_units"`
	DeploymentPositions []board.Position  `json:"deployment_positions"`
	Units               []UnitPlacement   `json:"units"`
	Objects             []ObjectPlacement `json:"objects"`
}

// IsDeploymentPosition reports whether players may deploy at pos.
func (l *Level) IsDeploymentPosition(pos board.Position) bool {
	for _, p := range l.DeploymentPositions {
		if p == pos {
			return true
		}
	}
	return false
}

// Validate checks the level's internal consistency.
//
// Postcondition: Returns nil if valid, or an error describing all violations.
func (l *Level) Validate() error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if l.Board.Width < 1 || l.Board.Height < 1 {
		errs = append(errs, fmt.Errorf("board must be at least 1x1, got %dx%d", l.Board.Width, l.Board.Height))
	}
	if l.MaxPlayerUnits < 0 {
		errs = append(errs, fmt.Errorf("max_player_units must be >= 0, got %d", l.MaxPlayerUnits))
	}
	for _, p := range l.DeploymentPositions {
		if !l.Board.Contains(p) {
			errs = append(errs, fmt.Errorf("deployment position %s is off the board", p))
		}
	}
	occupied := map[board.Position]bool{}
	for _, u := range l.Units {
		if !l.Board.Contains(u.Position) {
			errs = append(errs, fmt.Errorf("unit %q at %s is off the board", u.Type, u.Position))
		}
		if occupied[u.Position] {
			errs = append(errs, fmt.Errorf("two units placed at %s", u.Position))
		}
		occupied[u.Position] = true
	}
	for _, o := range l.Objects {
		if !l.Board.Contains(o.Position) {
			errs = append(errs, fmt.Errorf("object %q at %s is off the board", o.Type, o.Position))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("level %q: %w", l.Name, errors.Join(errs...))
	}
	return nil
}
