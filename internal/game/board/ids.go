package board

import (
	"math"

	"github.com/cory-johannsen/gridtactics/internal/game/dice"
)

// IDGenerator hands out random ids that are unique among the ids it has issued
// or been told about. Zero is never issued.
type IDGenerator struct {
	src  dice.Source
	used map[ID]struct{}
}

// NewIDGenerator creates a generator drawing from src.
//
// Precondition: src must be non-nil.
func NewIDGenerator(src dice.Source) *IDGenerator {
	if src == nil {
		panic("board.NewIDGenerator: src must not be nil")
	}
	return &IDGenerator{src: src, used: make(map[ID]struct{})}
}

// Next draws until it finds an unused id, then marks it used.
func (g *IDGenerator) Next() ID {
	for {
		id := ID(g.src.Intn(math.MaxInt32)) + 1
		if _, taken := g.used[id]; !taken {
			g.used[id] = struct{}{}
			return id
		}
	}
}

// Reserve marks id as used. It reports false if id was already taken.
func (g *IDGenerator) Reserve(id ID) bool {
	if _, taken := g.used[id]; taken {
		return false
	}
	g.used[id] = struct{}{}
	return true
}

// Release makes id available again.
func (g *IDGenerator) Release(id ID) {
	delete(g.used, id)
}
