package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
)

// CreateBattleRequest starts a battle on a level.
type CreateBattleRequest struct {
	Level string `json:"level"`
}

// DeployRequest places a player unit on a deployment position.
type DeployRequest struct {
	UnitType string         `json:"unit_type"`
	Position board.Position `json:"position"`
}

// MoveRequest walks a unit to a tile.
type MoveRequest struct {
	To board.Position `json:"to"`
}

// CastRequest casts a skill at a tile.
type CastRequest struct {
	Skill  string         `json:"skill"`
	Target board.Position `json:"target"`
}

// ReachableTile is one legal destination and its cost.
type ReachableTile struct {
	Position board.Position `json:"position"`
	Cost     int            `json:"cost"`
}

// TurnResponse reports the unit whose turn it now is.
type TurnResponse struct {
	Round  int                     `json:"round"`
	Active *battle.UnitView        `json:"active,omitempty"`
	Rolls  []combat.InitiativeRoll `json:"rolls,omitempty"`
}

// AIResponse reports what the AI chose and did.
type AIResponse struct {
	Unit     board.ID        `json:"unit"`
	Decision ai.ScoredAction `json:"decision"`
	Outcome  ai.Outcome      `json:"outcome"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.battles.Catalog().LevelNames())
}

func (h *Handler) listBattles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.battles.IDs())
}

func (h *Handler) createBattle(w http.ResponseWriter, r *http.Request) {
	var req CreateBattleRequest
	if !decode(w, r, &req) {
		return
	}
	if _, ok := h.battles.Catalog().Level(req.Level); !ok {
		writeError(w, http.StatusNotFound, "unknown level "+strconv.Quote(req.Level))
		return
	}
	id, err := h.battles.Create(req.Level)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var state battle.State
	_ = h.battles.With(id, func(b *battle.Battle) error {
		state = b.State()
		return nil
	})
	writeJSON(w, http.StatusCreated, state)
}

func (h *Handler) getBattle(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		return b.State(), nil
	})
}

func (h *Handler) deleteBattle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["battle"]
	if err := h.battles.With(id, func(*battle.Battle) error { return nil }); err != nil {
		h.fail(w, r, err)
		return
	}
	h.battles.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, http.StatusCreated, func(b *battle.Battle) (any, error) {
		u, err := b.Deploy(req.UnitType, req.Position)
		if err != nil {
			return nil, err
		}
		return b.UnitView(u.ID)
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		rolls, err := b.StartCombat()
		if err != nil {
			return nil, err
		}
		return turnResponse(b, rolls), nil
	})
}

func (h *Handler) endTurn(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		if _, err := b.EndTurn(); err != nil {
			return nil, err
		}
		return turnResponse(b, nil), nil
	})
}

func turnResponse(b *battle.Battle, rolls []combat.InitiativeRoll) TurnResponse {
	resp := TurnResponse{Round: b.Round(), Rolls: rolls}
	if u, ok := b.ActiveUnit(); ok {
		if v, err := b.UnitView(u.ID); err == nil {
			resp.Active = &v
		}
	}
	return resp
}

func (h *Handler) aiAct(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		writeError(w, http.StatusNotImplemented, "AI is not configured")
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		u, ok := b.ActiveUnit()
		switch {
		case !b.Started():
			return nil, battle.ErrCombatNotStarted
		case !ok:
			return nil, battle.ErrTurnVacated
		}
		decision, outcome, err := h.planner.Act(b, u.ID)
		if err != nil {
			return nil, err
		}
		return AIResponse{Unit: u.ID, Decision: decision, Outcome: outcome}, nil
	})
}

func (h *Handler) reachable(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		reach, err := b.Reachable(id)
		if err != nil {
			return nil, err
		}
		tiles := make([]ReachableTile, 0, len(reach.Tiles))
		for pos, info := range reach.Tiles {
			tiles = append(tiles, ReachableTile{Position: pos, Cost: info.Cost})
		}
		sort.Slice(tiles, func(i, j int) bool { return tiles[i].Position.Less(tiles[j].Position) })
		return tiles, nil
	})
}

func (h *Handler) path(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		return b.Path(id, board.Position{X: x, Y: y})
	})
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		return b.Move(id, req.To)
	})
}

func (h *Handler) castingArea(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		return b.CastingArea(id, mux.Vars(r)["skill"])
	})
}

func (h *Handler) cast(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	var req CastRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, http.StatusOK, func(b *battle.Battle) (any, error) {
		return b.CastSkill(id, req.Skill, req.Target)
	})
}
