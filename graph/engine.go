package graph

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/internal/metrics"
)

// NodeFunc executes one node: it reads and mutates the state.
type NodeFunc func(ctx context.Context, s *State) error

// RouteFunc picks the next node from the state after a node ran.
type RouteFunc func(s *State) string

// maxSteps bounds one conversation so a routing bug can never spin forever.
const maxSteps = 25

// StateGraph wires named nodes with static and conditional edges into one
// conversation loop. Build it once at startup; Invoke is safe for
// concurrent use because all per-request data lives in the State.
type StateGraph struct {
	name        string
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]RouteFunc
	entry       string
	logger      *zap.Logger
	tracer      trace.Tracer
	collector   *metrics.Collector
}

// NewStateGraph creates an empty graph.
func NewStateGraph(name string, logger *zap.Logger, collector *metrics.Collector) *StateGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateGraph{
		name:        name,
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]RouteFunc),
		logger:      logger.With(zap.String("component", "graph"), zap.String("graph", name)),
		tracer:      otel.Tracer("cafemesh/graph"),
		collector:   collector,
	}
}

// AddNode registers a node handler. Registration is explicit and happens
// once at startup.
func (g *StateGraph) AddNode(name string, fn NodeFunc) *StateGraph {
	g.nodes[name] = fn
	return g
}

// SetEntryPoint declares the node every invocation starts at.
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	g.entry = name
	return g
}

// AddEdge declares a static edge.
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges[from] = to
	return g
}

// AddConditionalEdges declares a routing function evaluated after the node.
func (g *StateGraph) AddConditionalEdges(from string, route RouteFunc) *StateGraph {
	g.conditional[from] = route
	return g
}

// Invoke runs the conversation loop until End or the step budget.
func (g *StateGraph) Invoke(ctx context.Context, s *State) error {
	if g.entry == "" {
		return fmt.Errorf("graph %s: no entry point", g.name)
	}
	current := g.entry
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("graph %s: unknown node %q", g.name, current)
		}

		nodeCtx, span := g.tracer.Start(ctx, g.name+"."+current,
			trace.WithAttributes(attribute.String("graph.node", current)))
		start := time.Now()
		err := fn(nodeCtx, s)
		g.collector.RecordNodeExecution(g.name, current, time.Since(start), err == nil)
		span.End()
		if err != nil {
			g.logger.Error("node failed", zap.String("node", current), zap.Error(err))
			return err
		}

		next := g.route(current, s)
		g.logger.Debug("node complete",
			zap.String("node", current),
			zap.String("next", next),
			zap.Int("messages", len(s.Messages)),
		)
		if next == End || next == "" {
			return nil
		}
		current = next
	}
	return fmt.Errorf("graph %s: step budget exhausted", g.name)
}

func (g *StateGraph) route(current string, s *State) string {
	if route, ok := g.conditional[current]; ok {
		return route(s)
	}
	if to, ok := g.edges[current]; ok {
		return to
	}
	return End
}
