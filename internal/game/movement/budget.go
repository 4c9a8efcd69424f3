package movement

import "fmt"

// BudgetPolicy derives a unit's remaining movement budget for this turn.
type BudgetPolicy int

const (
	// TwoPhase allows a second movement phase of the same size as the first:
	// budget = 2*movePoints - moved.
	TwoPhase BudgetPolicy = iota
	// Flat allows a single phase: budget = movePoints - moved.
	Flat
)

// ParsePolicy maps a configuration name to a BudgetPolicy.
func ParsePolicy(name string) (BudgetPolicy, error) {
	switch name {
	case "two_phase", "":
		return TwoPhase, nil
	case "flat":
		return Flat, nil
	default:
		return 0, fmt.Errorf("unknown movement policy %q", name)
	}
}

func (p BudgetPolicy) String() string {
	if p == Flat {
		return "flat"
	}
	return "two_phase"
}

// Budget returns the remaining budget, never below zero.
func (p BudgetPolicy) Budget(movePoints, moved int) int {
	total := movePoints
	if p == TwoPhase {
		total = 2 * movePoints
	}
	if rem := total - moved; rem > 0 {
		return rem
	}
	return 0
}

// InSecondPhase reports whether a unit has already spent more than one phase
// of movement. Such units may no longer cast skills this turn.
func InSecondPhase(movePoints, moved int) bool {
	return moved > movePoints
}
