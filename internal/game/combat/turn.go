package combat

import "github.com/cory-johannsen/gridtactics/internal/game/board"

// TurnResetter clears a unit's per-turn state when its turn begins.
type TurnResetter interface {
	ResetTurn(id board.ID)
}

// TurnResetterFunc adapts a function to TurnResetter.
type TurnResetterFunc func(id board.ID)

// ResetTurn calls f(id).
func (f TurnResetterFunc) ResetTurn(id board.ID) { f(id) }

// TurnTracker cycles through units in a fixed order.
//
// TurnTracker is not safe for concurrent use; the caller must serialise access.
type TurnTracker struct {
	order []board.ID
	index int
	round int
	// vacated is set when the active unit was removed mid-turn. index then
	// already points at the successor, whose turn starts on the next Advance.
	vacated bool
}

// NewTurnTracker creates a tracker with order as the turn order, positioned
// on the first unit of round 1.
func NewTurnTracker(order []board.ID) *TurnTracker {
	cp := make([]board.ID, len(order))
	copy(cp, order)
	return &TurnTracker{order: cp, round: 1}
}

// ActiveUnit returns the unit whose turn it is.
//
// Postcondition: Returns (0, false) when the order is empty or the active
// unit was removed and the turn has not been advanced since.
func (t *TurnTracker) ActiveUnit() (board.ID, bool) {
	if len(t.order) == 0 || t.vacated {
		return 0, false
	}
	return t.order[t.index], true
}

// Advance moves to the next unit, wrapping to the first after the last, and
// resets the newly active unit's per-turn state through r. The round counter
// increments on wrap. Advance is a no-op on an empty order.
//
// Precondition: r must be non-nil.
func (t *TurnTracker) Advance(r TurnResetter) {
	if len(t.order) == 0 {
		return
	}
	if t.vacated {
		t.vacated = false
	} else {
		t.index++
	}
	if t.index >= len(t.order) {
		t.index = 0
		t.round++
	}
	r.ResetTurn(t.order[t.index])
}

// Remove drops id from the order. Removing the active unit vacates the turn:
// ActiveUnit reports no unit until the next Advance, which starts the turn of
// the unit that followed id. Removing an absent id is a no-op.
func (t *TurnTracker) Remove(id board.ID) {
	for i, o := range t.order {
		if o != id {
			continue
		}
		t.order = append(t.order[:i], t.order[i+1:]...)
		switch {
		case len(t.order) == 0:
			t.index = 0
			t.vacated = false
		case i < t.index:
			t.index--
		case i == t.index:
			t.vacated = true
		}
		return
	}
}

// Append adds id to the end of the order. Appending a present id is a no-op.
func (t *TurnTracker) Append(id board.ID) {
	for _, o := range t.order {
		if o == id {
			return
		}
	}
	t.order = append(t.order, id)
}

// Order returns a copy of the turn order.
func (t *TurnTracker) Order() []board.ID {
	out := make([]board.ID, len(t.order))
	copy(out, t.order)
	return out
}

// Round returns the current round, starting at 1.
func (t *TurnTracker) Round() int { return t.round }

// Len returns the number of units in the order.
func (t *TurnTracker) Len() int { return len(t.order) }
