// Package ai chooses an action for a unit by enumerating every legal
// candidate for its turn and asking a Scorer to rank them.
package ai

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// Kind distinguishes candidate actions.
type Kind int

const (
	// Idle does nothing.
	Idle Kind = iota
	// Move walks to a reachable tile.
	Move
	// MoveAndUseSkill walks (possibly nowhere) and then casts.
	MoveAndUseSkill
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Move:
		return "move"
	case MoveAndUseSkill:
		return "move_and_use_skill"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes k by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Action is one candidate for a unit's turn.
//
// Invariant: Path is non-empty and starts at the actor's tile.
type Action struct {
	Kind Kind             `json:"kind"`
	Path []board.Position `json:"path"`
	// Cost is the movement cost of Path.
	Cost     int            `json:"cost"`
	Skill    string         `json:"skill,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Target   board.Position `json:"target"`
	Affected []board.ID     `json:"affected,omitempty"`
}

// Destination returns the tile the actor ends on.
func (a Action) Destination() board.Position { return a.Path[len(a.Path)-1] }

type stop struct {
	path []board.Position
	cost int
}

// Enumerate lists every candidate action for unit id in a fixed order: Idle,
// then one Move per reachable tile in row-major order, then every cast of
// every learned active skill from the current tile and each reachable tile.
// A cast is offered from a tile only when walking there keeps the unit in its
// first movement phase.
//
// Postcondition: The first action is always Idle; b is left unchanged.
func Enumerate(b *battle.Battle, id board.ID) ([]Action, error) {
	u, ok := b.Unit(id)
	if !ok {
		return nil, fmt.Errorf("enumerating for unit %d: %w", id, battle.ErrUnitNotFound)
	}
	from, _ := b.PositionOf(id)

	actions := []Action{{Kind: Idle, Path: []board.Position{from}, Target: from}}
	stops := []stop{{path: []board.Position{from}}}

	reach, err := b.Reachable(id)
	switch {
	case errors.Is(err, battle.ErrMovementLocked):
	case err != nil:
		return nil, err
	default:
		tiles := make([]board.Position, 0, len(reach.Tiles))
		for pos := range reach.Tiles {
			tiles = append(tiles, pos)
		}
		sort.Slice(tiles, func(i, j int) bool { return rowMajor(tiles[i], tiles[j]) })
		for _, to := range tiles {
			path, err := reach.PathTo(to)
			if err != nil {
				continue
			}
			cost := reach.Tiles[to].Cost
			actions = append(actions, Action{Kind: Move, Path: path, Cost: cost, Target: to})
			stops = append(stops, stop{path: path, cost: cost})
		}
	}

	if !u.CanCast() {
		return actions, nil
	}
	var skills []*skill.Skill
	for _, sid := range u.Skills {
		if sk, ok := b.Catalog().Skill(sid); ok && sk.Trigger == skill.TriggerActive {
			skills = append(skills, sk)
		}
	}
	for _, s := range stops {
		if s.cost+u.Moved > u.MovePoints() {
			continue
		}
		dest := s.path[len(s.path)-1]
		for _, sk := range skills {
			opts, err := b.CastOptionsFrom(id, sk.ID, dest)
			if err != nil {
				continue
			}
			for _, o := range opts {
				actions = append(actions, Action{
					Kind:     MoveAndUseSkill,
					Path:     s.path,
					Cost:     s.cost,
					Skill:    sk.ID,
					Tags:     sk.Tags,
					Target:   o.Target,
					Affected: o.Affected,
				})
			}
		}
	}
	return actions, nil
}

func rowMajor(a, b board.Position) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
