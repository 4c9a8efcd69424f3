package movement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gridtactics/internal/game/movement"
)

func TestBudgetPolicy_TwoPhase(t *testing.T) {
	assert.Equal(t, 60, movement.TwoPhase.Budget(30, 0))
	assert.Equal(t, 40, movement.TwoPhase.Budget(30, 20))
	assert.Equal(t, 0, movement.TwoPhase.Budget(30, 70))
}

func TestBudgetPolicy_Flat(t *testing.T) {
	assert.Equal(t, 30, movement.Flat.Budget(30, 0))
	assert.Equal(t, 10, movement.Flat.Budget(30, 20))
	assert.Equal(t, 0, movement.Flat.Budget(30, 40))
}

func TestParsePolicy(t *testing.T) {
	p, err := movement.ParsePolicy("flat")
	require.NoError(t, err)
	assert.Equal(t, movement.Flat, p)

	p, err = movement.ParsePolicy("two_phase")
	require.NoError(t, err)
	assert.Equal(t, movement.TwoPhase, p)
	assert.Equal(t, "two_phase", p.String())

	_, err = movement.ParsePolicy("warp")
	assert.Error(t, err)
}

func TestInSecondPhase(t *testing.T) {
	assert.False(t, movement.InSecondPhase(30, 30))
	assert.True(t, movement.InSecondPhase(30, 31))
}
