// Package board models the tactical grid: positions, bounds, directions and
// the bidirectional index of who stands where.
package board

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a position lies outside the board.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrOccupantExists is returned when inserting an occupant that is already on the board.
	ErrOccupantExists = errors.New("occupant already on board")
)

// Position is a tile coordinate. X grows to the right, Y grows downward.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Less orders positions by X, then by Y.
func (p Position) Less(o Position) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Manhattan returns |dx| + |dy| between p and o.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Board holds the grid dimensions.
type Board struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether pos lies on the board.
func (b Board) Contains(pos Position) bool {
	return pos.X >= 0 && pos.X < b.Width && pos.Y >= 0 && pos.Y < b.Height
}

// Check returns ErrOutOfBounds wrapped with the offending position when pos is off the board.
func (b Board) Check(pos Position) error {
	if !b.Contains(pos) {
		return fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, pos, b.Width, b.Height)
	}
	return nil
}

// Positions returns every tile ordered by Y then X (row-major).
func (b Board) Positions() []Position {
	out := make([]Position, 0, b.Width*b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}

// Direction is one of the four orthogonal steps.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions is the fixed neighbour expansion order.
var Directions = [4]Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Step returns the neighbour of pos in direction d and whether it lies on b.
func (b Board) Step(pos Position, d Direction) (Position, bool) {
	next := pos
	switch d {
	case Up:
		next.Y--
	case Down:
		next.Y++
	case Left:
		next.X--
	case Right:
		next.X++
	}
	return next, b.Contains(next)
}

// Faction groups units that may pass through each other. Factions are
// compared by equality only.
type Faction int

// PlayerFaction is the faction assigned to deployed player units.
const PlayerFaction Faction = 0
