package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/internal/mixer"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/utils"
)

// execute runs the CLI with the given args, capturing stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), execErr
}

func sampleFiles(t *testing.T) (dir string, circuit *model.Circuit, binPath string) {
	t.Helper()
	dir = t.TempDir()
	rng := utils.NewSeededRand(utils.SeedFromUint64(5))
	circuit, _ = model.SampleCircuit(20, 8, rng)

	binPath = filepath.Join(dir, "circuit.bin")
	require.NoError(t, mixer.WriteCircuitFile(circuit, binPath))
	return dir, circuit, binPath
}

func TestConvertCircuitAndEval(t *testing.T) {
	dir, circuit, binPath := sampleFiles(t)
	jsonPath := filepath.Join(dir, "circuit.json")

	_, err := execute(t, "convert-circuit", binPath, jsonPath)
	require.NoError(t, err)

	// The exported JSON evaluated on 0...0 must reproduce the native
	// evaluator's output.
	zeros := strings.TrimSuffix(strings.Repeat("0,", circuit.N), ",")
	out, err := execute(t, "eval", jsonPath, zeros)
	require.NoError(t, err)

	state := make([]bool, circuit.N)
	circuit.Run(state)
	want := make([]string, circuit.N)
	for i, bit := range state {
		if bit {
			want[i] = "1"
		} else {
			want[i] = "0"
		}
	}
	assert.Equal(t, strings.Join(want, ","), strings.TrimSpace(out))
}

func TestEvalRejectsBadInput(t *testing.T) {
	dir, _, binPath := sampleFiles(t)
	jsonPath := filepath.Join(dir, "c.json")
	_, err := execute(t, "3", binPath, jsonPath) // numeric alias
	require.NoError(t, err)

	_, err = execute(t, "eval", jsonPath, "0,1")
	assert.Error(t, err, "wrong input width")

	_, err = execute(t, "eval", jsonPath, strings.TrimSuffix(strings.Repeat("2,", 8), ","))
	assert.Error(t, err, "non-binary digit")

	_, err = execute(t, "eval", binPath, strings.TrimSuffix(strings.Repeat("0,", 8), ","))
	assert.Error(t, err, "binary file where JSON expected")
}

func TestEquivCommand(t *testing.T) {
	dir, circuit, _ := sampleFiles(t)

	aPath := filepath.Join(dir, "a.json")
	bPath := filepath.Join(dir, "b.json")
	require.NoError(t, writePrettyCircuit(circuit, aPath))
	require.NoError(t, writePrettyCircuit(circuit.Clone(), bPath))

	out, err := execute(t, "equiv", aPath, bPath, "50")
	require.NoError(t, err)
	assert.Contains(t, out, "success")

	// A truncated copy is not equivalent.
	broken := circuit.Clone()
	broken.Gates = broken.Gates[:len(broken.Gates)-1]
	cPath := filepath.Join(dir, "c.json")
	require.NoError(t, writePrettyCircuit(broken, cPath))

	_, err = execute(t, "5", aPath, cPath)
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	dir, circuit, _ := sampleFiles(t)

	job := &mixer.Job{
		Config: mixer.JobConfig{
			Wires:    8,
			Strategy: mixer.Strategy1,
		},
		Current:  circuit.Clone(),
		Original: circuit,
	}
	jobPath := filepath.Join(dir, "job.bin")
	require.NoError(t, job.Store(jobPath))

	out, err := execute(t, "verify", jobPath, "100")
	require.NoError(t, err)
	assert.Contains(t, out, "success")

	jsonOut := filepath.Join(dir, "from-job.json")
	_, err = execute(t, "convert-job", jobPath, jsonOut)
	require.NoError(t, err)

	parsed, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Contains(t, string(parsed), `"wire_count": 8`)
}

func TestUnknownSelectorFails(t *testing.T) {
	_, err := execute(t, "99")
	assert.Error(t, err)
}
