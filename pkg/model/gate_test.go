package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateStep(t *testing.T) {
	g := NewAndGate(0, 2, 0, 1, 5)

	state := []bool{true, true, false, false, false}
	g.Step(state)
	assert.True(t, state[2], "both controls set flips the target")

	g.Step(state)
	assert.False(t, state[2], "applying twice restores the target")

	state = []bool{true, false, false, false, false}
	g.Step(state)
	assert.False(t, state[2], "one control unset leaves the target")
}

func TestGateStepPackedMatchesStep(t *testing.T) {
	n := 6
	g := NewAnd3Gate(0, 5, 0, 2, 4)

	for input := uint64(0); input < 1<<n; input++ {
		state := make([]bool, n)
		for w := 0; w < n; w++ {
			state[w] = (input>>w)&1 == 1
		}
		g.Step(state)

		packed := g.StepPacked(input)
		for w := 0; w < n; w++ {
			assert.Equal(t, state[w], (packed>>w)&1 == 1, "input %d wire %d", input, w)
		}
	}
}

func TestCollidesWith(t *testing.T) {
	n := 8
	a := NewAndGate(0, 0, 1, 3, n)
	b := NewAndGate(1, 3, 2, 4, n) // b's target is a's control
	c := NewAndGate(2, 5, 6, 7, n) // disjoint wires

	assert.True(t, a.CollidesWith(b))
	assert.True(t, b.CollidesWith(a), "collision is symmetric")
	assert.False(t, a.CollidesWith(c))
	assert.False(t, c.CollidesWith(b))

	// Target-in-controls in the other direction.
	d := NewAndGate(3, 6, 0, 2, n) // d's control 0 is a's target
	assert.True(t, a.CollidesWith(d))
}

func TestSentinelControlNeverCollides(t *testing.T) {
	n := 8
	// The sentinel slot holds n; a gate targeting a real wire never matches it.
	a := NewAndGate(0, 0, 1, 2, n)
	b := NewAndGate(1, 7, 5, 6, n)
	assert.False(t, a.CollidesWith(b))
}

func TestGateValidate(t *testing.T) {
	n := 5
	require.NoError(t, NewAndGate(0, 0, 1, 2, n).Validate(n))

	assert.Error(t, NewAndGate(1, 0, 0, 2, n).Validate(n), "target among controls")
	assert.Error(t, NewAndGate(2, 0, 2, 2, n).Validate(n), "duplicate controls")
	assert.Error(t, NewAndGate(3, 5, 1, 2, n).Validate(n), "target out of range")
}
