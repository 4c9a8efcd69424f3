// Package area computes skill casting ranges and area-of-effect footprints.
package area

import (
	"sort"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// InRange reports whether to lies within [minRange, maxRange] Manhattan
// distance of from.
func InRange(from, to board.Position, minRange, maxRange int) bool {
	d := from.Manhattan(to)
	return d >= minRange && d <= maxRange
}

// Casting returns every on-board tile a skill with the given range can target
// from caster, in row-major order.
func Casting(b board.Board, caster board.Position, minRange, maxRange int) []board.Position {
	var out []board.Position
	for dy := -maxRange; dy <= maxRange; dy++ {
		for dx := -maxRange; dx <= maxRange; dx++ {
			p := board.Position{X: caster.X + dx, Y: caster.Y + dy}
			if b.Contains(p) && InRange(caster, p, minRange, maxRange) {
				out = append(out, p)
			}
		}
	}
	return out
}

// Shape returns the on-board tiles covered by s when cast from caster at
// target, in row-major order. Diamonds, crosses and rectangles are centred on
// target. Lines start next to caster and run toward target for Length tiles,
// stopping at target or the board edge.
func Shape(b board.Board, s skill.Shape, caster, target board.Position) []board.Position {
	var out []board.Position
	add := func(p board.Position) {
		if b.Contains(p) {
			out = append(out, p)
		}
	}

	switch s.Kind {
	case skill.ShapeDiamond:
		for dy := -s.Radius; dy <= s.Radius; dy++ {
			for dx := -s.Radius; dx <= s.Radius; dx++ {
				p := board.Position{X: target.X + dx, Y: target.Y + dy}
				if target.Manhattan(p) <= s.Radius {
					add(p)
				}
			}
		}
	case skill.ShapeCross:
		add(target)
		for i := 1; i <= s.Length; i++ {
			add(board.Position{X: target.X, Y: target.Y - i})
			add(board.Position{X: target.X, Y: target.Y + i})
			add(board.Position{X: target.X - i, Y: target.Y})
			add(board.Position{X: target.X + i, Y: target.Y})
		}
	case skill.ShapeLine:
		out = Line(b, caster, target, s.Length)
	case skill.ShapeRectangle:
		x0 := target.X - s.Width/2
		y0 := target.Y - s.Height/2
		for y := y0; y < y0+s.Height; y++ {
			for x := x0; x < x0+s.Width; x++ {
				add(board.Position{X: x, Y: y})
			}
		}
	}
	sortRowMajor(out)
	return out
}

// Line walks a Bresenham line from from toward to and returns up to length
// tiles after from. The walk stops early at to or at the board edge.
func Line(b board.Board, from, to board.Position, length int) []board.Position {
	if from == to || length <= 0 {
		return nil
	}
	dx, dy := abs(to.X-from.X), abs(to.Y-from.Y)
	sx, sy := sign(to.X-from.X), sign(to.Y-from.Y)
	err := dx - dy
	x, y := from.X, from.Y

	var out []board.Position
	for len(out) < length {
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
		p := board.Position{X: x, Y: y}
		if !b.Contains(p) {
			break
		}
		out = append(out, p)
		if p == to {
			break
		}
	}
	return out
}

func sortRowMajor(ps []board.Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
