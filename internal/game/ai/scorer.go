package ai

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

// ScoreHook is the Lua global ScriptScorer calls for every candidate.
const ScoreHook = "score_action"

// Scorer rates a candidate action. Higher is better.
type Scorer interface {
	Score(ws *WorldState, a Action) (score float64, reason string, err error)
}

// ZeroScorer rates every action 0, so Decide always picks Idle.
type ZeroScorer struct{}

// Score implements Scorer.
func (ZeroScorer) Score(*WorldState, Action) (float64, string, error) {
	return 0, "unscored", nil
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ws *WorldState, a Action) (float64, string, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ws *WorldState, a Action) (float64, string, error) { return f(ws, a) }

// ScriptCaller is the interface required by ScriptScorer to run Lua hooks.
type ScriptCaller interface {
	// CallHookWith calls a named Lua function in profile's VM with arguments
	// built in that VM. Returns (LNil, nil) if the function is not defined.
	CallHookWith(profile, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error)
}

// ScriptScorer rates actions with the score_action Lua hook. The profile is
// the actor's unit type, so each type may ship its own script.
//
//	score_action(state, action) -> number
//
// A hook that is missing or returns a non-number scores 0.
type ScriptScorer struct {
	caller ScriptCaller
}

// NewScriptScorer constructs a ScriptScorer.
//
// Precondition: caller must not be nil.
func NewScriptScorer(caller ScriptCaller) *ScriptScorer {
	if caller == nil {
		panic("ai.NewScriptScorer: caller must not be nil")
	}
	return &ScriptScorer{caller: caller}
}

// Score implements Scorer.
func (s *ScriptScorer) Score(ws *WorldState, a Action) (float64, string, error) {
	ret, err := s.caller.CallHookWith(ws.Actor.Type, ScoreHook, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{stateTable(L, ws), actionTable(L, ws, a)}
	})
	if err != nil {
		return 0, "", fmt.Errorf("scoring %s for unit %d: %w", a.Kind, ws.Actor.ID, err)
	}
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Sprintf("%s returned %s", ScoreHook, ret.Type()), nil
	}
	return float64(n), "script " + ws.Actor.Type, nil
}

func pointTable(L *lua.LState, p board.Position) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "x", lua.LNumber(p.X))
	L.SetField(t, "y", lua.LNumber(p.Y))
	return t
}

func unitTable(L *lua.LState, u *UnitState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LNumber(u.ID))
	L.SetField(t, "type", lua.LString(u.Type))
	L.SetField(t, "faction", lua.LNumber(u.Faction))
	L.SetField(t, "x", lua.LNumber(u.Pos.X))
	L.SetField(t, "y", lua.LNumber(u.Pos.Y))
	L.SetField(t, "hp", lua.LNumber(u.HP))
	L.SetField(t, "max_hp", lua.LNumber(u.MaxHP))
	L.SetField(t, "mp", lua.LNumber(u.MP))
	L.SetField(t, "max_mp", lua.LNumber(u.MaxMP))
	return t
}

func stateTable(L *lua.LState, ws *WorldState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "actor", unitTable(L, ws.Actor))
	units := L.NewTable()
	for _, u := range ws.Units {
		units.Append(unitTable(L, u))
	}
	L.SetField(t, "units", units)
	return t
}

func actionTable(L *lua.LState, ws *WorldState, a Action) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "kind", lua.LString(a.Kind.String()))
	L.SetField(t, "dest", pointTable(L, a.Destination()))
	L.SetField(t, "cost", lua.LNumber(a.Cost))
	path := L.NewTable()
	for _, p := range a.Path {
		path.Append(pointTable(L, p))
	}
	L.SetField(t, "path", path)
	if a.Kind != MoveAndUseSkill {
		L.SetField(t, "affected", L.NewTable())
		return t
	}
	L.SetField(t, "skill", lua.LString(a.Skill))
	L.SetField(t, "target", pointTable(L, a.Target))
	tags := L.NewTable()
	for _, tag := range a.Tags {
		tags.Append(lua.LString(tag))
	}
	L.SetField(t, "tags", tags)
	affected := L.NewTable()
	for _, id := range a.Affected {
		if u := ws.Unit(id); u != nil {
			affected.Append(unitTable(L, u))
		}
	}
	L.SetField(t, "affected", affected)
	return t
}
