// Package api exposes battles over a JSON HTTP interface for inspection
// tools: range highlighting, path previews, and driving turns by hand or by
// the AI.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// Handler serves the battle API.
type Handler struct {
	battles *battle.Manager
	planner *ai.Planner
	logger  *zap.Logger
}

// NewHandler creates a Handler. planner may be nil, which disables the AI
// endpoint.
//
// Precondition: battles and logger must be non-nil.
func NewHandler(battles *battle.Manager, planner *ai.Planner, logger *zap.Logger) *Handler {
	return &Handler{battles: battles, planner: planner, logger: logger}
}

// Router returns the routes:
//
//	GET    /api/healthz
//	GET    /api/levels
//	GET    /api/battles
//	POST   /api/battles                                   {"level": name}
//	GET    /api/battles/{battle}
//	DELETE /api/battles/{battle}
//	POST   /api/battles/{battle}/deploy                   {"unit_type", "position"}
//	POST   /api/battles/{battle}/start
//	POST   /api/battles/{battle}/turn/end
//	POST   /api/battles/{battle}/ai/act
//	GET    /api/battles/{battle}/units/{unit}/reachable
//	GET    /api/battles/{battle}/units/{unit}/path?x=&y=
//	POST   /api/battles/{battle}/units/{unit}/move        {"to"}
//	GET    /api/battles/{battle}/units/{unit}/skills/{skill}/area
//	POST   /api/battles/{battle}/units/{unit}/cast        {"skill", "target"}
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	// Routes live on r itself: subrouters drop a method mismatch once a later
	// sibling's prefix matches, turning 405 into 404.
	const (
		battlePath = "/api/battles/{battle}"
		unitPath   = battlePath + "/units/{unit:[0-9]+}"
	)
	r.HandleFunc("/api/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/api/levels", h.listLevels).Methods(http.MethodGet)
	r.HandleFunc("/api/battles", h.listBattles).Methods(http.MethodGet)
	r.HandleFunc("/api/battles", h.createBattle).Methods(http.MethodPost)

	r.HandleFunc(battlePath, h.getBattle).Methods(http.MethodGet)
	r.HandleFunc(battlePath, h.deleteBattle).Methods(http.MethodDelete)
	r.HandleFunc(battlePath+"/deploy", h.deploy).Methods(http.MethodPost)
	r.HandleFunc(battlePath+"/start", h.start).Methods(http.MethodPost)
	r.HandleFunc(battlePath+"/turn/end", h.endTurn).Methods(http.MethodPost)
	r.HandleFunc(battlePath+"/ai/act", h.aiAct).Methods(http.MethodPost)

	r.HandleFunc(unitPath+"/reachable", h.reachable).Methods(http.MethodGet)
	r.HandleFunc(unitPath+"/path", h.path).Methods(http.MethodGet).Queries("x", "{x:-?[0-9]+}", "y", "{y:-?[0-9]+}")
	r.HandleFunc(unitPath+"/move", h.move).Methods(http.MethodPost)
	r.HandleFunc(unitPath+"/skills/{skill}/area", h.castingArea).Methods(http.MethodGet)
	r.HandleFunc(unitPath+"/cast", h.cast).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, battle.ErrBattleNotFound),
		errors.Is(err, battle.ErrUnitNotFound),
		errors.Is(err, battle.ErrUnitTypeNotFound),
		errors.Is(err, skill.ErrSkillNotFound):
		return http.StatusNotFound
	case errors.Is(err, battle.ErrCombatNotStarted),
		errors.Is(err, battle.ErrCombatStarted),
		errors.Is(err, battle.ErrTurnVacated),
		errors.Is(err, battle.ErrMovementLocked),
		errors.Is(err, battle.ErrCannotCast),
		errors.Is(err, battle.ErrDeploymentFull),
		errors.Is(err, battle.ErrNoLevel):
		return http.StatusConflict
	case errors.Is(err, board.ErrOutOfBounds),
		errors.Is(err, movement.ErrNotReachable),
		errors.Is(err, battle.ErrTileOccupied),
		errors.Is(err, battle.ErrNotDeploymentPosition),
		errors.Is(err, battle.ErrSkillNotLearned),
		errors.Is(err, battle.ErrSkillNotActive),
		errors.Is(err, battle.ErrOutOfRange),
		errors.Is(err, battle.ErrInvalidTarget),
		errors.Is(err, battle.ErrNoTargets),
		errors.Is(err, battle.ErrInsufficientMP):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, code, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func unitID(w http.ResponseWriter, r *http.Request) (board.ID, bool) {
	n, err := strconv.ParseUint(mux.Vars(r)["unit"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return 0, false
	}
	return board.ID(n), true
}

// with runs fn against the battle named in the route and writes the value it
// returns with status code, or the error.
func (h *Handler) with(w http.ResponseWriter, r *http.Request, code int, fn func(*battle.Battle) (any, error)) {
	var out any
	err := h.battles.With(mux.Vars(r)["battle"], func(b *battle.Battle) error {
		var err error
		out, err = fn(b)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, code, out)
}
