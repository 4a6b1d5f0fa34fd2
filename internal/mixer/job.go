package mixer

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/circuit-mixer/pkg/compression"
	"github.com/circuit-mixer/pkg/config"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
)

// Strategy selects the step scheduling policy.
type Strategy uint8

const (
	// Strategy1 draws ellOut uniformly from {2, 3, 4} each step.
	Strategy1 Strategy = 1
	// Strategy2 runs an inflationary stage (ellOut 2) then a kneading stage
	// (ellOut 4).
	Strategy2 Strategy = 2
)

// JobConfig is the persisted configuration of an obfuscation job.
type JobConfig struct {
	Wires                    int
	Strategy                 Strategy
	TotalSteps               int64
	InflationarySteps        int64
	KneadingSteps            int64
	MaxConvexIterations      int64
	MaxReplacementIterations int64
	CheckpointSteps          int64
	EquivalenceSamples       int64
}

// JobConfigFrom maps the application config onto a job config.
func JobConfigFrom(m *config.MixingConfig) JobConfig {
	return JobConfig{
		Wires:                    m.Wires,
		Strategy:                 Strategy(m.Strategy),
		TotalSteps:               int64(m.TotalSteps),
		InflationarySteps:        int64(m.InflationarySteps),
		KneadingSteps:            int64(m.KneadingSteps),
		MaxConvexIterations:      int64(m.MaxConvexIterations),
		MaxReplacementIterations: int64(m.MaxReplacementIterations),
		CheckpointSteps:          int64(m.CheckpointSteps),
		EquivalenceSamples:       int64(m.EquivalenceSamples),
	}
}

// Job is the persisted state of an obfuscation run: configuration, progress
// counters and both circuits. It round-trips through a versioned binary
// file.
type Job struct {
	Config JobConfig

	// CurrTotalSteps counts strategy 1 steps.
	CurrTotalSteps int64
	// CurrInflationarySteps and CurrKneadingSteps count strategy 2 stages.
	CurrInflationarySteps int64
	CurrKneadingSteps     int64

	Current  *model.Circuit
	Original *model.Circuit
}

// Job file framing.
var jobMagic = [4]byte{'C', 'M', 'X', 'J'}

const jobVersion uint16 = 1

// CircuitDigest returns the hex SHA-256 of a circuit's binary encoding.
// Logged on every load and store so checkpoints can be compared across
// hosts.
func CircuitDigest(c *model.Circuit) string {
	sum := sha256.Sum256(encodeCircuit(nil, c))
	return hex.EncodeToString(sum[:])
}

// Encode renders the job into its binary file format: a magic/version/
// compression header followed by the compressed payload.
func (j *Job) Encode() ([]byte, error) {
	payload := j.encodePayload()

	compressor := compression.Default()
	compressed, err := compressor.Compress(payload)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIOError, "compressing job payload", err)
	}

	out := make([]byte, 0, len(compressed)+7)
	out = append(out, jobMagic[:]...)
	out = binary.LittleEndian.AppendUint16(out, jobVersion)
	out = append(out, byte(compressor.Type()))
	out = append(out, compressed...)
	return out, nil
}

// DecodeJob parses a binary job file.
func DecodeJob(data []byte) (*Job, error) {
	if len(data) < 7 {
		return nil, errors.New(errors.CodeParseError, "job file truncated before header")
	}
	if data[0] != jobMagic[0] || data[1] != jobMagic[1] || data[2] != jobMagic[2] || data[3] != jobMagic[3] {
		return nil, errors.New(errors.CodeParseError, "not a job file (bad magic)")
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != jobVersion {
		return nil, errors.Newf(errors.CodeParseError, "unsupported job file version %d", version)
	}
	compressor, err := compression.ForType(compression.Type(data[6]))
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "job file compression", err)
	}

	payload, err := compressor.Decompress(data[7:])
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "decompressing job payload", err)
	}
	return decodePayload(payload)
}

// Load reads and parses a job file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIOError, "reading job file", err)
	}
	return DecodeJob(data)
}

// Store persists the job atomically: the encoding goes to a temp file in
// the same directory which then replaces the target, so a crash never
// leaves a half-written job behind.
func (j *Job) Store(path string) error {
	data, err := j.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.CodeIOError, "creating job directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.CodeIOError, "creating temp job file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.CodeIOError, "writing job file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.CodeIOError, "closing job file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.CodeIOError, "replacing job file", err)
	}
	return nil
}

// encodePayload lays the job out little-endian: config, progress counters,
// then both circuits.
func (j *Job) encodePayload() []byte {
	out := make([]byte, 0, 64+9*(len(j.Current.Gates)+len(j.Original.Gates)))

	out = binary.LittleEndian.AppendUint32(out, uint32(j.Config.Wires))
	out = append(out, byte(j.Config.Strategy))
	for _, v := range []int64{
		j.Config.TotalSteps,
		j.Config.InflationarySteps,
		j.Config.KneadingSteps,
		j.Config.MaxConvexIterations,
		j.Config.MaxReplacementIterations,
		j.Config.CheckpointSteps,
		j.Config.EquivalenceSamples,
		j.CurrTotalSteps,
		j.CurrInflationarySteps,
		j.CurrKneadingSteps,
	} {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}

	out = encodeCircuit(out, j.Current)
	out = encodeCircuit(out, j.Original)
	return out
}

func encodeCircuit(out []byte, c *model.Circuit) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(c.N))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(c.Gates)))
	for _, g := range c.Gates {
		out = binary.LittleEndian.AppendUint64(out, g.ID)
		out = append(out, byte(g.Op), g.Target, g.Controls[0], g.Controls[1], g.Controls[2])
	}
	return out
}

// payloadReader is a bounds-checked cursor over the decoded payload.
type payloadReader struct {
	data []byte
	off  int
	err  error
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = errors.Newf(errors.CodeParseError, "job payload truncated at offset %d", r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func decodePayload(payload []byte) (*Job, error) {
	r := &payloadReader{data: payload}
	job := &Job{}

	job.Config.Wires = int(r.uint32())
	job.Config.Strategy = Strategy(r.uint8())
	job.Config.TotalSteps = int64(r.uint64())
	job.Config.InflationarySteps = int64(r.uint64())
	job.Config.KneadingSteps = int64(r.uint64())
	job.Config.MaxConvexIterations = int64(r.uint64())
	job.Config.MaxReplacementIterations = int64(r.uint64())
	job.Config.CheckpointSteps = int64(r.uint64())
	job.Config.EquivalenceSamples = int64(r.uint64())
	job.CurrTotalSteps = int64(r.uint64())
	job.CurrInflationarySteps = int64(r.uint64())
	job.CurrKneadingSteps = int64(r.uint64())

	job.Current = decodeCircuit(r)
	job.Original = decodeCircuit(r)
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(payload) {
		return nil, errors.Newf(errors.CodeParseError, "job payload has %d trailing bytes", len(payload)-r.off)
	}

	if job.Config.Strategy != Strategy1 && job.Config.Strategy != Strategy2 {
		return nil, errors.Newf(errors.CodeParseError, "job has unknown strategy %d", job.Config.Strategy)
	}
	for _, c := range []*model.Circuit{job.Current, job.Original} {
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(errors.CodeParseError, "job circuit invalid", err)
		}
	}
	return job, nil
}

func decodeCircuit(r *payloadReader) *model.Circuit {
	n := int(r.uint32())
	count := r.uint64()
	if r.err != nil {
		return model.NewCircuit(nil, 0)
	}
	if count > uint64(len(r.data)-r.off)/13 {
		r.err = errors.Newf(errors.CodeParseError, "gate count %d exceeds remaining payload", count)
		return model.NewCircuit(nil, 0)
	}
	gates := make([]model.Gate, 0, count)
	for i := uint64(0); i < count; i++ {
		id := r.uint64()
		op := model.OpCode(r.uint8())
		target := r.uint8()
		c0 := r.uint8()
		c1 := r.uint8()
		c2 := r.uint8()
		gates = append(gates, model.Gate{
			ID:       id,
			Op:       op,
			Target:   target,
			Controls: [model.MaxControls]model.Wire{c0, c1, c2},
		})
	}
	return model.NewCircuit(gates, n)
}
