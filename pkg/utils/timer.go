package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// StepTimer times the phases of a single mixing step (convex search,
// replacement search, splice, checkpoint). Phases are reported in the order
// they were started.
type StepTimer struct {
	mu     sync.Mutex
	name   string
	start  time.Time
	clock  Clock
	order  []string
	phases map[string]time.Duration
	open   map[string]time.Time
}

// NewStepTimer creates a timer named after the mixing step it measures.
func NewStepTimer(name string) *StepTimer {
	return NewStepTimerWithClock(name, NewRealClock())
}

// NewStepTimerWithClock creates a timer with a custom clock for tests.
func NewStepTimerWithClock(name string, clock Clock) *StepTimer {
	return &StepTimer{
		name:   name,
		start:  clock.Now(),
		clock:  clock,
		phases: make(map[string]time.Duration),
		open:   make(map[string]time.Time),
	}
}

// Start begins timing the named phase. The returned function stops it and is
// safe to defer.
func (t *StepTimer) Start(phase string) func() {
	t.mu.Lock()
	if _, seen := t.phases[phase]; !seen {
		if _, running := t.open[phase]; !running {
			t.order = append(t.order, phase)
		}
	}
	t.open[phase] = t.clock.Now()
	t.mu.Unlock()

	return func() { t.Stop(phase) }
}

// Stop ends the named phase and returns its duration. Stopping a phase that
// was never started returns zero.
func (t *StepTimer) Stop(phase string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	started, ok := t.open[phase]
	if !ok {
		return 0
	}
	delete(t.open, phase)
	d := t.clock.Since(started)
	t.phases[phase] += d
	return d
}

// Phase returns the accumulated duration of the named phase.
func (t *StepTimer) Phase(phase string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phases[phase]
}

// Elapsed returns the total time since the timer was created.
func (t *StepTimer) Elapsed() time.Duration {
	return t.clock.Since(t.start)
}

// Summary renders a one-line report suitable for the per-step TRACE log.
func (t *StepTimer) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s total=%v", t.name, t.clock.Since(t.start).Round(time.Microsecond))
	for _, phase := range t.order {
		fmt.Fprintf(&sb, " %s=%v", phase, t.phases[phase].Round(time.Microsecond))
	}
	return sb.String()
}
