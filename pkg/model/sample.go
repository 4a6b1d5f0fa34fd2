package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	mathrand "math/rand/v2"
)

// SampleCircuit draws gateCount random two-control AND gates over n wires.
// Each gate's target and controls are three distinct uniform wires. The
// returned trace is a SHA-256 digest of the sampled sequence; the
// replacement search uses it to skip candidate circuits it has already
// evaluated.
func SampleCircuit(gateCount, n int, rng *mathrand.Rand) (*Circuit, string) {
	gates := make([]Gate, 0, gateCount)
	hasher := sha256.New()

	var picks [3]Wire
	for id := 0; id < gateCount; id++ {
		sampleDistinctWires(picks[:], n, rng)
		gates = append(gates, NewAndGate(uint64(id), picks[0], picks[1], picks[2], n))
		fmt.Fprintf(hasher, "TWO%d%d%d", picks[0], picks[1], picks[2])
	}

	return NewCircuit(gates, n), hex.EncodeToString(hasher.Sum(nil))
}

// sampleDistinctWires fills dst with pairwise distinct uniform wires from
// [0, n) by rejection sampling.
func sampleDistinctWires(dst []Wire, n int, rng *mathrand.Rand) {
	for i := range dst {
	redraw:
		for {
			w := Wire(rng.IntN(n))
			for j := 0; j < i; j++ {
				if dst[j] == w {
					continue redraw
				}
			}
			dst[i] = w
			break
		}
	}
}

// SampleCipherCircuit builds a cipher-like seed circuit: `rounds` stages,
// each visiting every wire as a target once (in a fresh shuffled order) with
// two distinct controls drawn from the remaining wires. The result touches
// all n wires densely, which is what the obfuscation experiments start from.
func SampleCipherCircuit(n, rounds int, rng *mathrand.Rand) *Circuit {
	if n < 3 {
		panic(fmt.Sprintf("cipher circuit needs at least 3 wires, got %d", n))
	}
	gates := make([]Gate, 0, n*rounds)
	order := make([]Wire, n)
	for i := range order {
		order[i] = Wire(i)
	}

	var id uint64
	for r := 0; r < rounds; r++ {
		rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, target := range order {
			c0 := sampleWireExcept(n, rng, target, target)
			c1 := sampleWireExcept(n, rng, target, c0)
			gates = append(gates, NewAndGate(id, target, c0, c1, n))
			id++
		}
	}
	return NewCircuit(gates, n)
}

// sampleWireExcept draws a uniform wire distinct from both exclusions.
func sampleWireExcept(n int, rng *mathrand.Rand, a, b Wire) Wire {
	for {
		w := Wire(rng.IntN(n))
		if w != a && w != b {
			return w
		}
	}
}
