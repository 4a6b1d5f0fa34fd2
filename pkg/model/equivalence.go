package model

import (
	"fmt"
	mathrand "math/rand/v2"
)

// PermutationTable returns the full permutation computed by the circuit:
// out[i] is the packed output state for packed input i. Only valid for
// N <= MaxPackedWires.
func PermutationTable(c *Circuit) ([]uint64, error) {
	if c.N > MaxPackedWires {
		return nil, fmt.Errorf("wire count %d exceeds the packed evaluator limit %d", c.N, MaxPackedWires)
	}
	table := NewPackedInputs(c.N)
	table.Apply(c)
	out := make([]uint64, 1<<c.N)
	for i := range out {
		out[i] = table.Row(i)
	}
	return out, nil
}

// CheckEquivalence tests whether two circuits compute the same permutation.
// For wire counts within the packed-evaluator limit every input is checked;
// beyond it, `samples` random inputs are drawn from rng. Returns the wire
// indices that differ on at least one input (exhaustive case) or on the first
// mismatching sampled input (sampled case), or nil when equivalent.
func CheckEquivalence(c0, c1 *Circuit, samples int, rng *mathrand.Rand) (bool, []int) {
	if c0.N != c1.N {
		return false, nil
	}
	n := c0.N

	if n <= MaxPackedWires {
		t0 := NewPackedInputs(n)
		t0.Apply(c0)
		t1 := NewPackedInputs(n)
		t1.Apply(c1)
		diff := t0.DiffWires(t1)
		return len(diff) == 0, diff
	}

	state0 := make([]bool, n)
	state1 := make([]bool, n)
	for iter := 0; iter < samples; iter++ {
		for w := 0; w < n; w++ {
			bit := rng.Uint64()&1 == 1
			state0[w] = bit
			state1[w] = bit
		}
		c0.Run(state0)
		c1.Run(state1)

		var diff []int
		for w := 0; w < n; w++ {
			if state0[w] != state1[w] {
				diff = append(diff, w)
			}
		}
		if len(diff) > 0 {
			return false, diff
		}
	}
	return true, nil
}
