package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	WireCount int    `json:"wire_count"`
	Name      string `json:"name"`
}

func TestWriteCompactAndPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter[sample]().Write(sample{WireCount: 8, Name: "seed"}, &buf))
	assert.Equal(t, `{"wire_count":8,"name":"seed"}`, strings.TrimSpace(buf.String()))

	buf.Reset()
	require.NoError(t, NewPrettyJSONWriter[sample]().Write(sample{WireCount: 8, Name: "seed"}, &buf))
	assert.Contains(t, buf.String(), "\n  \"wire_count\": 8")
}

func TestWriteToFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "circuit.json")
	require.NoError(t, NewPrettyJSONWriter[sample]().WriteToFile(sample{WireCount: 4}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"wire_count": 4`)
}
