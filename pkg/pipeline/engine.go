package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultWorkers = 4

// Engine drives one execution pass over a Pipeline: it schedules nodes in
// dependency order, runs independent nodes on a pool of workers, and
// propagates output port values through connections into downstream input
// ports. Per-node failures are contained and recorded in the Report; only
// structural errors abort the pass.
type Engine struct {
	pipeline *Pipeline
	workers  int
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the worker pool size. With a single worker, node
// execution order is exactly the Schedule order.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithObserver attaches an event observer called after every node
// transition.
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithLogger overrides the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine after validating the pipeline's structure.
func NewEngine(p *Pipeline, opts ...Option) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline must not be nil")
	}
	if err := ValidateErr(p); err != nil {
		return nil, err
	}
	e := &Engine{
		pipeline: p,
		workers:  defaultWorkers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// execState is the shared coordination state of one pass. A single mutex
// guards the remaining-dependency counters, the report, propagation, and
// observer delivery; each node's ports are private to it until explicit
// propagation, so no other shared mutable state exists.
type execState struct {
	mu        sync.Mutex
	remaining map[string]int
	index     map[string]int // node id -> insertion index, for the tie-break
	report    *Report
	ready     chan string
	observer  Observer
}

// Execute runs one pass. A *CycleError is returned before any node runs if
// the graph is not acyclic; otherwise the pass always completes and
// returns a report, even if every node fails.
func (e *Engine) Execute(ctx context.Context) (*Report, error) {
	order, err := Schedule(e.pipeline)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sessionID := uuid.NewString()[:12]
	e.logger.Info("pipeline started",
		"pipeline", e.pipeline.Name,
		"session_id", sessionID,
		"nodes", e.pipeline.NodeCount(),
	)

	// Fresh pass: every port cleared, every node Pending.
	report := &Report{
		SessionID: sessionID,
		Order:     order,
		Results:   make(map[string]*NodeResult, len(order)),
	}
	for _, n := range e.pipeline.Nodes() {
		for _, p := range n.Inputs() {
			p.Clear()
		}
		for _, p := range n.Outputs() {
			p.Clear()
		}
		report.Results[n.ID()] = &NodeResult{Status: StatusPending}
	}

	st := &execState{
		remaining: make(map[string]int, len(order)),
		index:     make(map[string]int, len(order)),
		report:    report,
		ready:     make(chan string, len(order)),
		observer:  e.observer,
	}
	for i, n := range e.pipeline.Nodes() {
		st.index[n.ID()] = i
	}
	for _, id := range order {
		st.remaining[id] = len(predecessors(e.pipeline, id))
	}
	for _, id := range order {
		if st.remaining[id] == 0 {
			st.ready <- id
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(order))
	workers := e.workers
	if workers > len(order) {
		workers = len(order)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for id := range st.ready {
				e.runNode(ctx, id, st)
				wg.Done()
			}
		}()
	}

	wg.Wait()
	close(st.ready)

	report.Duration = time.Since(start)
	st.emit(Event{Type: EventPassComplete})
	e.logger.Info("pipeline completed",
		"session_id", sessionID,
		"duration", report.Duration,
		"succeeded", report.Count(StatusSucceeded),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped),
	)
	return report, nil
}

// runNode takes a node through its pass states and then unlocks its
// successors. Every node reaches a terminal state exactly once, so
// downstream nodes are always dispatched; a node whose inputs never
// arrived skips itself via its own readiness check.
func (e *Engine) runNode(ctx context.Context, id string, st *execState) {
	node, ok := e.pipeline.Node(id)
	if !ok {
		st.finish(e, id, StatusFailed, nil, 0, "node not found in pipeline")
		return
	}

	// Cooperative cancellation between node executions: a running
	// Process is never interrupted, but no new node starts.
	if ctx.Err() != nil {
		st.finish(e, id, StatusSkipped, nil, 0, fmt.Sprintf("cancelled: %v", ctx.Err()))
		return
	}

	if !node.CanExecute() {
		e.logger.Debug("skipping node", "node", id, "reason", "missing input values")
		st.finish(e, id, StatusSkipped, nil, 0, "required input value missing")
		return
	}

	st.emit(Event{Type: EventNodeStarted, NodeID: id})
	e.logger.Info("executing node", "node", id, "type", node.Type())
	started := time.Now()
	succeeded := processSafely(ctx, node, e.logger)
	elapsed := time.Since(started)

	if !succeeded {
		e.logger.Warn("node failed", "node", id, "type", node.Type(), "duration", elapsed)
		st.finish(e, id, StatusFailed, nil, elapsed, "process produced no output")
		return
	}

	outputs := make(map[string]any, len(node.Outputs()))
	for _, p := range node.Outputs() {
		if v, set := p.Value(); set {
			outputs[p.Name] = v
		}
	}
	st.finish(e, id, StatusSucceeded, outputs, elapsed, "")
}

// processSafely calls Process and converts an unexpected panic into a
// contained per-node failure.
func processSafely(ctx context.Context, node Node, logger *slog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("node panicked", "node", node.ID(), "panic", r)
			ok = false
		}
	}()
	return node.Process(ctx)
}

// finish records a terminal state, propagates outputs on success, and
// enqueues any successors whose dependency count reaches zero. Propagation
// happens under the coordinator lock and strictly before the successor is
// enqueued, so it happens-before the downstream readiness check.
func (st *execState) finish(e *Engine, id string, status Status, outputs map[string]any, elapsed time.Duration, reason string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	res := st.report.Results[id]
	res.Status = status
	res.Outputs = outputs
	res.Duration = elapsed
	res.Reason = reason

	if status == StatusSucceeded {
		node, _ := e.pipeline.Node(id)
		for _, c := range e.pipeline.OutgoingConnections(id) {
			out := node.Output(c.SourcePort)
			if out == nil {
				continue
			}
			v, set := out.Value()
			if !set {
				continue
			}
			if target, ok := e.pipeline.Node(c.TargetNode); ok {
				if in := target.Input(c.TargetPort); in != nil {
					in.SetValue(v)
				}
			}
		}
	}

	switch status {
	case StatusSucceeded:
		st.emitLocked(Event{Type: EventNodeSucceeded, NodeID: id})
	case StatusFailed:
		st.emitLocked(Event{Type: EventNodeFailed, NodeID: id, Reason: reason})
	case StatusSkipped:
		st.emitLocked(Event{Type: EventNodeSkipped, NodeID: id, Reason: reason})
	}

	var newlyReady []string
	for _, succ := range successors(e.pipeline, id) {
		st.remaining[succ]--
		if st.remaining[succ] == 0 {
			newlyReady = append(newlyReady, succ)
		}
	}
	insertionSort(newlyReady, st.index)
	for _, succ := range newlyReady {
		st.ready <- succ
	}
}

func (st *execState) emit(ev Event) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.emitLocked(ev)
}

func (st *execState) emitLocked(ev Event) {
	if st.observer != nil {
		st.observer(ev)
	}
}
