package mixer

import (
	"encoding/binary"
	"os"

	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
)

// Binary circuit file framing: a sibling of the job format holding a single
// circuit, used to hand seed circuits between runs and to the JSON
// converter.
var circuitMagic = [4]byte{'C', 'M', 'X', 'C'}

const circuitVersion uint16 = 1

// EncodeCircuitFile renders one circuit in the binary file format.
func EncodeCircuitFile(c *model.Circuit) []byte {
	out := make([]byte, 0, 16+13*len(c.Gates))
	out = append(out, circuitMagic[:]...)
	out = binary.LittleEndian.AppendUint16(out, circuitVersion)
	return encodeCircuit(out, c)
}

// DecodeCircuitFile parses a binary circuit file.
func DecodeCircuitFile(data []byte) (*model.Circuit, error) {
	if len(data) < 6 {
		return nil, errors.New(errors.CodeParseError, "circuit file truncated before header")
	}
	if data[0] != circuitMagic[0] || data[1] != circuitMagic[1] || data[2] != circuitMagic[2] || data[3] != circuitMagic[3] {
		return nil, errors.New(errors.CodeParseError, "not a binary circuit file (bad magic)")
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != circuitVersion {
		return nil, errors.Newf(errors.CodeParseError, "unsupported circuit file version %d", v)
	}

	r := &payloadReader{data: data, off: 6}
	c := decodeCircuit(r)
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		return nil, errors.Newf(errors.CodeParseError, "circuit file has %d trailing bytes", len(data)-r.off)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "invalid circuit", err)
	}
	return c, nil
}

// WriteCircuitFile writes the binary encoding to disk.
func WriteCircuitFile(c *model.Circuit, path string) error {
	if err := os.WriteFile(path, EncodeCircuitFile(c), 0644); err != nil {
		return errors.Wrap(errors.CodeIOError, "writing circuit file", err)
	}
	return nil
}

// ReadCircuitFile reads and parses a binary circuit file.
func ReadCircuitFile(path string) (*model.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIOError, "reading circuit file", err)
	}
	return DecodeCircuitFile(data)
}
