// Package movement computes where a unit may walk within a movement budget and
// the cheapest route to each reachable tile.
package movement

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

const (
	// BasicCost is the cost of entering a tile with no terrain modifiers.
	BasicCost = 10
	// Impassable marks a tile that can never be entered.
	Impassable = 10000
)

// ErrNotReachable is returned when a path is requested to a tile that is not
// in the reachable set.
var ErrNotReachable = errors.New("position not reachable")

// Mover is the walker's starting tile and faction.
type Mover struct {
	Pos     board.Position
	Faction board.Faction
}

// FactionAt reports the faction of the unit standing on a tile, if any.
type FactionAt func(board.Position) (board.Faction, bool)

// TerrainCost returns the cost of entering a tile; Impassable blocks it.
type TerrainCost func(board.Position) int

// Info is the cheapest known cost to a tile and the tile it was entered from.
type Info struct {
	Cost int            `json:"cost"`
	Prev board.Position `json:"prev"`
}

// Result is the outcome of a reachability query.
type Result struct {
	Start board.Position
	// Tiles holds every legal destination: reachable within budget, not the
	// start, and not occupied by any unit.
	Tiles map[board.Position]Info
	// tree additionally holds tiles the mover may pass through but not stop
	// on, so routes through allies can be rebuilt.
	tree map[board.Position]Info
}

// Reachable runs Dijkstra from m.Pos over b.
//
// Neighbours are expanded Up, Down, Left, Right. A neighbour is skipped when it
// is off the board, its terrain cost is Impassable, the accumulated cost would
// exceed budget, or a unit of another faction stands on it. Allied units may be
// passed through. Among equal-cost routes the first relaxation wins.
//
// Precondition: factionAt and cost must be non-nil.
// Postcondition: Returns board.ErrOutOfBounds and no result when m.Pos is off the board.
func Reachable(b board.Board, m Mover, budget int, factionAt FactionAt, cost TerrainCost) (Result, error) {
	if err := b.Check(m.Pos); err != nil {
		return Result{}, fmt.Errorf("reachable from %s: %w", m.Pos, err)
	}

	dist := map[board.Position]int{m.Pos: 0}
	prev := map[board.Position]board.Position{}
	q := &frontier{}
	heap.Push(q, entry{cost: 0, pos: m.Pos})

	for q.Len() > 0 {
		cur := heap.Pop(q).(entry)
		if cur.cost > dist[cur.pos] {
			continue
		}
		for _, d := range board.Directions {
			next, ok := b.Step(cur.pos, d)
			if !ok {
				continue
			}
			step := cost(next)
			if step >= Impassable {
				continue
			}
			newCost := cur.cost + step
			if newCost > budget {
				continue
			}
			if f, occupied := factionAt(next); occupied && f != m.Faction {
				continue
			}
			if best, seen := dist[next]; seen && newCost >= best {
				continue
			}
			dist[next] = newCost
			prev[next] = cur.pos
			heap.Push(q, entry{cost: newCost, pos: next})
		}
	}

	res := Result{
		Start: m.Pos,
		Tiles: make(map[board.Position]Info),
		tree:  make(map[board.Position]Info, len(prev)),
	}
	for pos, p := range prev {
		info := Info{Cost: dist[pos], Prev: p}
		res.tree[pos] = info
		if _, occupied := factionAt(pos); occupied {
			continue
		}
		res.Tiles[pos] = info
	}
	return res, nil
}

// Contains reports whether pos is a legal destination.
func (r Result) Contains(pos board.Position) bool {
	_, ok := r.Tiles[pos]
	return ok
}

// PathTo returns the route from the start to a legal destination, both ends included.
//
// Postcondition: Returns ErrNotReachable if to is not in r.Tiles.
func (r Result) PathTo(to board.Position) ([]board.Position, error) {
	if !r.Contains(to) {
		return nil, fmt.Errorf("path to %s: %w", to, ErrNotReachable)
	}
	return ReconstructPath(r.tree, r.Start, to)
}

// ReconstructPath follows Prev links from to back to from and returns the
// route in walking order, both ends included.
//
// Postcondition: Returns ErrNotReachable if to, or any tile on the chain other
// than from, is missing from reach. to == from is never in a reachable set and
// therefore also yields ErrNotReachable.
func ReconstructPath(reach map[board.Position]Info, from, to board.Position) ([]board.Position, error) {
	var path []board.Position
	cur := to
	for {
		info, ok := reach[cur]
		if !ok {
			return nil, fmt.Errorf("path %s -> %s: %w", from, to, ErrNotReachable)
		}
		path = append(path, cur)
		cur = info.Prev
		if cur == from {
			break
		}
		if len(path) > len(reach) {
			return nil, fmt.Errorf("path %s -> %s: predecessor cycle: %w", from, to, ErrNotReachable)
		}
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// entry is a frontier item; seq breaks cost ties in push order.
type entry struct {
	cost int
	seq  int
	pos  board.Position
}

type frontier struct {
	items []entry
	seq   int
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	if f.items[i].cost != f.items[j].cost {
		return f.items[i].cost < f.items[j].cost
	}
	return f.items[i].seq < f.items[j].seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) {
	e := x.(entry)
	e.seq = f.seq
	f.seq++
	f.items = append(f.items, e)
}

func (f *frontier) Pop() any {
	old := f.items
	n := len(old)
	e := old[n-1]
	f.items = old[:n-1]
	return e
}
