package pprof

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileTypes(), types)

	types, err = ParseProfileTypes("heap, goroutine")
	require.NoError(t, err)
	assert.Equal(t, []ProfileType{ProfileHeap, ProfileGoroutine}, types)

	_, err = ParseProfileTypes("heapdump")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(), "disabled config always validates")

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.CPUDuration = cfg.Interval
	assert.Error(t, cfg.Validate(), "CPU window must fit inside the interval")

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.Mode = "weird"
	assert.Error(t, cfg.Validate())
}

func TestSnapshotWritesParsableProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = dir
	cfg.Profiles = []ProfileType{ProfileHeap, ProfileGoroutine}

	collector, err := NewCollector(cfg)
	require.NoError(t, err)
	require.NoError(t, collector.Snapshot(context.Background()))

	rounds, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, rounds, 1)

	// The runtime writes gzipped protobuf; at minimum each file must be a
	// valid non-empty gzip stream.
	for _, name := range []string{"heap.pb.gz", "goroutine.pb.gz"} {
		path := filepath.Join(dir, rounds[0].Name(), name)
		f, err := os.Open(path)
		require.NoError(t, err, name)
		zr, err := gzip.NewReader(f)
		require.NoError(t, err, "%s is not gzip", name)
		zr.Close()
		f.Close()
	}
}

func TestCollectorStartStopFileMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = t.TempDir()
	cfg.Interval = 50 * time.Millisecond
	cfg.CPUDuration = 10 * time.Millisecond
	cfg.Profiles = []ProfileType{ProfileGoroutine}

	collector, err := NewCollector(cfg)
	require.NoError(t, err)
	require.NoError(t, collector.Start())

	time.Sleep(120 * time.Millisecond)
	require.NoError(t, collector.Stop())

	rounds, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.NotEmpty(t, rounds, "at least one snapshot round fired")
}
