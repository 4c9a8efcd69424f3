package ai

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/battle"
	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

// ScoredAction is a candidate with its rating.
type ScoredAction struct {
	Action Action  `json:"action"`
	Score  float64 `json:"score"`
	// Reason is free-form debugging text from the Scorer.
	Reason string `json:"reason"`
}

// Outcome is what executing an action did to the battle.
type Outcome struct {
	Move *battle.MoveReport `json:"move,omitempty"`
	Cast *battle.CastReport `json:"cast,omitempty"`
}

// Planner picks actions for units.
//
// Invariant: scorer and logger are non-nil.
type Planner struct {
	scorer Scorer
	logger *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: scorer and logger must not be nil.
func NewPlanner(scorer Scorer, logger *zap.Logger) *Planner {
	if scorer == nil {
		panic("ai.NewPlanner: scorer must not be nil")
	}
	if logger == nil {
		panic("ai.NewPlanner: logger must not be nil")
	}
	return &Planner{scorer: scorer, logger: logger}
}

// Rank scores every candidate for unit id, best first. Equal scores keep
// enumeration order.
func (p *Planner) Rank(b *battle.Battle, id board.ID) ([]ScoredAction, error) {
	actions, err := Enumerate(b, id)
	if err != nil {
		return nil, err
	}
	ws, err := BuildWorldState(b, id)
	if err != nil {
		return nil, err
	}
	scored := make([]ScoredAction, 0, len(actions))
	for _, a := range actions {
		s, reason, err := p.scorer.Score(ws, a)
		if err != nil {
			return nil, err
		}
		scored = append(scored, ScoredAction{Action: a, Score: s, Reason: reason})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

// Decide returns the highest-scoring candidate for unit id; the earliest
// candidate wins ties.
//
// Postcondition: Returns Idle when nothing scores above it.
func (p *Planner) Decide(b *battle.Battle, id board.ID) (ScoredAction, error) {
	ranked, err := p.Rank(b, id)
	if err != nil {
		return ScoredAction{}, err
	}
	best := ranked[0]
	p.logger.Debug("action decided",
		zap.Uint32("unit", uint32(id)),
		zap.Stringer("kind", best.Action.Kind),
		zap.String("skill", best.Action.Skill),
		zap.Float64("score", best.Score),
		zap.String("reason", best.Reason),
		zap.Int("candidates", len(ranked)),
	)
	return best, nil
}

// Act decides for unit id and executes the choice.
func (p *Planner) Act(b *battle.Battle, id board.ID) (ScoredAction, Outcome, error) {
	best, err := p.Decide(b, id)
	if err != nil {
		return ScoredAction{}, Outcome{}, err
	}
	out, err := Execute(b, id, best.Action)
	return best, out, err
}

// Execute performs a: the walk, if any, then the cast, if any. A unit
// defeated by terrain on the way does not cast.
func Execute(b *battle.Battle, id board.ID, a Action) (Outcome, error) {
	var out Outcome
	if len(a.Path) > 1 {
		rep, err := b.Move(id, a.Destination())
		if err != nil {
			return out, fmt.Errorf("executing %s: %w", a.Kind, err)
		}
		out.Move = &rep
		if rep.Defeated {
			return out, nil
		}
	}
	if a.Kind == MoveAndUseSkill {
		rep, err := b.CastSkill(id, a.Skill, a.Target)
		if err != nil {
			return out, fmt.Errorf("executing %s: %w", a.Kind, err)
		}
		out.Cast = &rep
	}
	return out, nil
}
