package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/pkg/utils"
)

func TestPrettyRoundTrip(t *testing.T) {
	rng := utils.NewSeededRand(utils.SeedFromUint64(2))
	c, _ := SampleCircuit(40, 12, rng)

	data, err := MarshalPretty(c)
	require.NoError(t, err)

	parsed, err := UnmarshalPretty(data)
	require.NoError(t, err)

	assert.Equal(t, c.N, parsed.N)
	assert.True(t, c.SameGates(parsed))

	// Round-tripping the parse is stable byte for byte.
	data2, err := MarshalPretty(parsed)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestPrettyJSONShape(t *testing.T) {
	n := 5
	c := NewCircuit([]Gate{NewAndGate(0, 0, 1, 3, n)}, n)

	data, err := MarshalPretty(c)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "wire_count")
	assert.Contains(t, raw, "gate_count")
	assert.Contains(t, raw, "gates")

	var gates [][4]uint8
	require.NoError(t, json.Unmarshal(raw["gates"], &gates))
	require.Len(t, gates, 1)
	assert.Equal(t, [4]uint8{1, 3, 0, 0}, gates[0], "gate tuple is [c0, c1, target, op]")
}

func TestUnmarshalPrettyRejectsGarbage(t *testing.T) {
	_, err := UnmarshalPretty([]byte("not json"))
	assert.Error(t, err)

	_, err = UnmarshalPretty([]byte(`{"wire_count": 4, "gate_count": 2, "gates": [[0,1,2,0]]}`))
	assert.Error(t, err, "gate_count mismatch")

	_, err = UnmarshalPretty([]byte(`{"wire_count": 4, "gate_count": 1, "gates": [[0,1,9,0]]}`))
	assert.Error(t, err, "target out of range")

	_, err = UnmarshalPretty([]byte(`{"wire_count": 4, "gate_count": 1, "gates": [[0,1,2,7]]}`))
	assert.Error(t, err, "unsupported op code")
}

func TestUnmarshalAssignsSequentialIDs(t *testing.T) {
	data := []byte(`{"wire_count": 5, "gate_count": 2, "gates": [[1,3,0,0],[2,4,3,0]]}`)
	c, err := UnmarshalPretty(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Gates[0].ID)
	assert.Equal(t, uint64(1), c.Gates[1].ID)
}
