// Package pprof collects runtime profiles of the mixer itself. Long mixing
// runs are CPU-bound for hours; file mode snapshots profiles periodically,
// http mode exposes the standard endpoints for on-demand grabs.
package pprof

import (
	"fmt"
	"strings"
	"time"
)

// ModeType defines the collection mode.
type ModeType string

const (
	// ModeFile writes profile snapshots to files at regular intervals.
	ModeFile ModeType = "file"
	// ModeHTTP serves the standard /debug/pprof endpoints.
	ModeHTTP ModeType = "http"
)

// ProfileType defines the type of profile to collect.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns every supported profile type.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs}
}

// DefaultProfileTypes returns the default collection set.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine}
}

// ParseProfileTypes parses a comma-separated list of profile types.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if s == "" {
		return DefaultProfileTypes(), nil
	}
	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	var types []ProfileType
	for _, p := range strings.Split(s, ",") {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		types = append(types, pt)
	}
	return types, nil
}

// Config holds the collector configuration.
type Config struct {
	Enabled   bool
	Mode      ModeType
	Profiles  []ProfileType
	OutputDir string

	// Interval between snapshots in file mode.
	Interval time.Duration
	// CPUDuration is how long each CPU profile samples.
	CPUDuration time.Duration

	// Addr is the HTTP listen address in http mode.
	Addr string
}

// DefaultConfig returns a config suitable for CLI runs.
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeFile,
		Profiles:    DefaultProfileTypes(),
		OutputDir:   "./pprof",
		Interval:    30 * time.Second,
		CPUDuration: 10 * time.Second,
		Addr:        ":6060",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Mode {
	case ModeFile:
		if c.OutputDir == "" {
			return fmt.Errorf("pprof output directory is required in file mode")
		}
		if c.Interval <= 0 {
			return fmt.Errorf("pprof interval must be positive")
		}
		if c.CPUDuration <= 0 || c.CPUDuration >= c.Interval {
			return fmt.Errorf("pprof CPU duration must be positive and below the interval")
		}
	case ModeHTTP:
		if c.Addr == "" {
			return fmt.Errorf("pprof HTTP address is required in http mode")
		}
	default:
		return fmt.Errorf("unknown pprof mode: %q", c.Mode)
	}
	return nil
}
