// Package combat resolves attacks and tracks whose turn it is.
package combat

import (
	"fmt"

	"github.com/cory-johannsen/gridtactics/internal/game/dice"
)

// Outcome is the three-stage attack result.
type Outcome int

const (
	Miss Outcome = iota
	Blocked
	Hit
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Miss:
		return "miss"
	case Blocked:
		return "blocked"
	case Hit:
		return "hit"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome label for JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome label.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, v := range []Outcome{Miss, Blocked, Hit} {
		if v.String() == string(text) {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown hit outcome %q", text)
}

// HitContext holds the attacker's accuracy and the defender's evasion and
// block, each already summed from attributes, skill bonuses and buffs.
type HitContext struct {
	Accuracy int
	Evasion  int
	Block    int
}

// HitResult is the audit trail of one resolution.
type HitResult struct {
	Outcome    Outcome `json:"outcome"`
	Roll       int     `json:"roll"`
	EvadeScore int     `json:"evade_score"`
	BlockScore int     `json:"block_score"`
	Trace      string  `json:"trace"`
}

// ResolveHit draws a single value in [0, 100) from src and resolves it.
//
// Precondition: src must be non-nil.
func ResolveHit(ctx HitContext, src dice.Source) HitResult {
	return ResolveHitWithRoll(ctx, dice.Percent(src))
}

// ResolveHitWithRoll resolves an attack for a known roll.
//
// evade = accuracy - evasion + roll; evade <= 0 is a Miss.
// block = accuracy - evasion - block + roll; block <= 0 is Blocked.
// Otherwise the attack Hits. Both scores are always reported.
func ResolveHitWithRoll(ctx HitContext, roll int) HitResult {
	evade := ctx.Accuracy - ctx.Evasion + roll
	block := ctx.Accuracy - ctx.Evasion - ctx.Block + roll

	out := Hit
	switch {
	case evade <= 0:
		out = Miss
	case block <= 0:
		out = Blocked
	}
	return HitResult{
		Outcome:    out,
		Roll:       roll,
		EvadeScore: evade,
		BlockScore: block,
		Trace: fmt.Sprintf("acc %d - eva %d + roll %d = %d; - blk %d = %d -> %s",
			ctx.Accuracy, ctx.Evasion, roll, evade, ctx.Block, block, out),
	}
}
