package model

import (
	"encoding/json"
	"fmt"

	"github.com/circuit-mixer/pkg/errors"
)

// PrettyCircuit is the JSON interchange form of a two-control circuit:
//
//	{"wire_count": n, "gate_count": m, "gates": [[c0, c1, target, op], ...]}
type PrettyCircuit struct {
	WireCount int        `json:"wire_count"`
	GateCount int        `json:"gate_count"`
	Gates     [][4]uint8 `json:"gates"`
}

// ToPretty converts a circuit to its JSON form. Only two-control gates have
// a pretty encoding.
func ToPretty(c *Circuit) (*PrettyCircuit, error) {
	gates := make([][4]uint8, 0, len(c.Gates))
	for _, g := range c.Gates {
		if g.Op.ControlCount() != 2 {
			return nil, errors.Newf(errors.CodeInvalidInput,
				"gate %d has op %s; only two-control gates have a JSON form", g.ID, g.Op)
		}
		gates = append(gates, [4]uint8{g.Controls[0], g.Controls[1], g.Target, uint8(g.Op)})
	}
	return &PrettyCircuit{
		WireCount: c.N,
		GateCount: len(c.Gates),
		Gates:     gates,
	}, nil
}

// ToCircuit converts the JSON form back to a circuit. Gate ids are assigned
// by position.
func (p *PrettyCircuit) ToCircuit() (*Circuit, error) {
	if p.GateCount != len(p.Gates) {
		return nil, errors.Newf(errors.CodeParseError,
			"gate_count %d does not match %d gates", p.GateCount, len(p.Gates))
	}
	gates := make([]Gate, 0, len(p.Gates))
	for id, enc := range p.Gates {
		g := Gate{
			ID:       uint64(id),
			Target:   enc[2],
			Controls: [MaxControls]Wire{enc[0], enc[1], Wire(p.WireCount)},
			Op:       OpCode(enc[3]),
		}
		if g.Op.ControlCount() != 2 {
			return nil, errors.Newf(errors.CodeParseError, "gate %d: unsupported op code %d", id, enc[3])
		}
		gates = append(gates, g)
	}
	c := NewCircuit(gates, p.WireCount)
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "invalid circuit", err)
	}
	return c, nil
}

// MarshalPretty renders a circuit as indented JSON.
func MarshalPretty(c *Circuit) ([]byte, error) {
	pretty, err := ToPretty(c)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(pretty, "", "  ")
}

// UnmarshalPretty parses an indented or compact JSON circuit.
func UnmarshalPretty(data []byte) (*Circuit, error) {
	var pretty PrettyCircuit
	if err := json.Unmarshal(data, &pretty); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, fmt.Sprintf("parsing circuit JSON (%d bytes)", len(data)), err)
	}
	return pretty.ToCircuit()
}
