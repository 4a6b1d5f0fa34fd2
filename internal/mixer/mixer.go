// Package mixer drives the obfuscation: repeated local mixing steps, each
// one cutting a random convex subcircuit out of the skeleton and splicing a
// random functionally equivalent replacement back in, plus the job
// bookkeeping around them.
package mixer

import (
	"context"
	mathrand "math/rand/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/circuit-mixer/internal/convex"
	"github.com/circuit-mixer/internal/replace"
	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/internal/splice"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// tracerName labels the mixer's OpenTelemetry spans.
const tracerName = "circuit-mixer/mixer"

// StepParams are the knobs of a single mixing step.
type StepParams struct {
	// EllOut is the convex subcircuit size to cut out.
	EllOut int
	// EllIn is the replacement size; must be >= EllOut.
	EllIn int
	// ConvexIterations budgets the convex-set search.
	ConvexIterations int
	// ReplacementIterations budgets the replacement search.
	ReplacementIterations int
}

// Mixer owns the skeleton graph between steps. The graph is borrowed
// immutably by the searches and mutably by the splice; ownership never
// leaves the mixer.
type Mixer struct {
	n        int
	graph    *skeleton.Graph
	latestID uint64
	pool     parallel.PoolConfig
	log      utils.Logger
	tracer   trace.Tracer
}

// New builds a mixer over the circuit's skeleton.
func New(c *model.Circuit, logger utils.Logger, pool parallel.PoolConfig) *Mixer {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	var latest uint64
	for _, g := range c.Gates {
		if g.ID > latest {
			latest = g.ID
		}
	}
	return &Mixer{
		n:        c.N,
		graph:    skeleton.Build(c),
		latestID: latest,
		pool:     pool,
		log:      logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Wires returns the circuit width.
func (m *Mixer) Wires() int {
	return m.n
}

// GateCount returns the current gate count.
func (m *Mixer) GateCount() int {
	return m.graph.NodeCount()
}

// Circuit materialises the current circuit from a topological sort of the
// skeleton. A cycle is a fatal invariant violation surfaced as
// ErrCycleDetected.
func (m *Mixer) Circuit() (*model.Circuit, error) {
	order, err := skeleton.TopoSort(m.graph)
	if err != nil {
		return nil, err
	}
	return skeleton.ToCircuit(m.graph, order, m.n), nil
}

func (m *Mixer) nextID() uint64 {
	m.latestID++
	return m.latestID
}

// Step performs one local mixing step. A nil return means the skeleton was
// rewritten. Budget-exhaustion returns carry CodeBudgetExhausted and are
// retried by the driver without advancing the step counter; any other error
// is fatal.
func (m *Mixer) Step(ctx context.Context, params StepParams, rng *mathrand.Rand) error {
	if params.EllOut > params.EllIn {
		return errors.Newf(errors.CodeInvalidInput, "ellOut %d exceeds ellIn %d", params.EllOut, params.EllIn)
	}

	ctx, span := m.tracer.Start(ctx, "mixing-step",
		trace.WithAttributes(
			attribute.Int("ell_out", params.EllOut),
			attribute.Int("ell_in", params.EllIn),
		))
	defer span.End()

	timer := utils.NewStepTimer("step")

	// The level oracle is recomputed per step and read-only afterwards.
	stop := timer.Start("levels")
	snap := m.graph.Snapshot()
	levels := skeleton.Levels(snap, m.pool)
	stop()

	convexCtx, convexSpan := m.tracer.Start(ctx, "find-convex")
	stop = timer.Start("convex")
	finder := convex.NewFinder(snap, levels, m.pool)
	found := finder.Find(convexCtx, params.EllOut, params.ConvexIterations, rng)
	stop()
	convexSpan.End()
	if found == nil {
		return errors.Wrap(errors.CodeBudgetExhausted, "convex search", errors.ErrBudgetExhausted)
	}

	members := make([]uint64, len(found.Nodes))
	for i, idx := range found.Nodes {
		members[i] = snap.IDs[idx]
	}

	order, err := skeleton.TopoSort(m.graph)
	if err != nil {
		return err
	}
	ordered := splice.OrderedSubset(order, members)

	gates := make([]model.Gate, 0, len(ordered))
	for _, id := range ordered {
		gate, ok := m.graph.Gate(id)
		if !ok {
			panic("mixer: convex member vanished from the graph")
		}
		gates = append(gates, gate)
	}

	cOut, denseToOrig := splice.RemapToDense(gates, m.n)
	if cOut.N < replace.MinActiveWires {
		// Too few active wires to admit a non-trivial replacement; the step
		// fails and the driver draws a new convex set.
		return errors.Wrap(errors.CodeBudgetExhausted, "active wire span too narrow", errors.ErrBudgetExhausted)
	}

	replaceCtx, replaceSpan := m.tracer.Start(ctx, "find-replacement",
		trace.WithAttributes(attribute.Int("omega", cOut.N)))
	stop = timer.Start("replace")
	searcher := replace.NewSearcher(m.pool)
	cIn := searcher.Find(replaceCtx, cOut, params.EllIn, params.ReplacementIterations, rng)
	stop()
	replaceSpan.End()
	if cIn == nil {
		return errors.Wrap(errors.CodeBudgetExhausted, "replacement search", errors.ErrBudgetExhausted)
	}

	_, spliceSpan := m.tracer.Start(ctx, "splice")
	stop = timer.Start("splice")
	replacement := splice.RemapToOriginal(cIn, denseToOrig, m.n, m.nextID)
	newIDs := splice.Apply(m.graph, ordered, replacement, m.pool)
	stop()
	spliceSpan.End()

	m.log.Trace("spliced %d gates out, %d in (new ids %d..%d); %s",
		len(ordered), len(newIDs), newIDs[0], newIDs[len(newIDs)-1], timer.Summary())
	return nil
}
