package pprof

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	runtimepprof "runtime/pprof"
	"sync"
	"time"
)

// Collector runs profile collection in the configured mode.
type Collector struct {
	cfg    *Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
	server *http.Server
}

// NewCollector validates the config and builds a collector.
func NewCollector(cfg *Config) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg}, nil
}

// OutputDir returns the snapshot directory (file mode).
func (c *Collector) OutputDir() string {
	return c.cfg.OutputDir
}

// Start begins collection. In file mode a background goroutine snapshots
// the configured profiles every interval; in http mode a server exposes
// /debug/pprof.
func (c *Collector) Start() error {
	if !c.cfg.Enabled {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	switch c.cfg.Mode {
	case ModeFile:
		if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating pprof output dir: %w", err)
		}
		c.wg.Add(1)
		go c.fileLoop(ctx)
	case ModeHTTP:
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		c.server = &http.Server{Addr: c.cfg.Addr, Handler: mux}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "pprof server: %v\n", err)
			}
		}()
	}
	return nil
}

// Stop halts collection and waits for in-flight snapshots.
func (c *Collector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = c.server.Shutdown(shutdownCtx)
	}
	c.wg.Wait()
	return err
}

// fileLoop snapshots the configured profiles once per interval until
// cancelled. Each round gets its own timestamped subdirectory.
func (c *Collector) fileLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	round := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			round++
			c.snapshot(ctx, round)
		}
	}
}

// Snapshot collects one round of profiles immediately. Exposed so tests and
// shutdown paths can force a capture.
func (c *Collector) Snapshot(ctx context.Context) error {
	return c.snapshot(ctx, 0)
}

func (c *Collector) snapshot(ctx context.Context, round int) error {
	dir := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s-r%d", time.Now().Format("20060102-150405"), round))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, pt := range c.cfg.Profiles {
		switch pt {
		case ProfileCPU:
			record(c.cpuProfile(ctx, filepath.Join(dir, "cpu.pb.gz")))
		case ProfileHeap:
			runtime.GC()
			record(writeNamedProfile("heap", filepath.Join(dir, "heap.pb.gz")))
		case ProfileGoroutine:
			record(writeNamedProfile("goroutine", filepath.Join(dir, "goroutine.pb.gz")))
		case ProfileBlock:
			record(writeNamedProfile("block", filepath.Join(dir, "block.pb.gz")))
		case ProfileMutex:
			record(writeNamedProfile("mutex", filepath.Join(dir, "mutex.pb.gz")))
		case ProfileAllocs:
			record(writeNamedProfile("allocs", filepath.Join(dir, "allocs.pb.gz")))
		}
	}
	return firstErr
}

func (c *Collector) cpuProfile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := runtimepprof.StartCPUProfile(f); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.CPUDuration):
	}
	runtimepprof.StopCPUProfile()
	return nil
}

func writeNamedProfile(name, path string) error {
	p := runtimepprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("unknown runtime profile %q", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteTo(f, 0)
}
