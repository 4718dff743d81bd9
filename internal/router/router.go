// Package router selects and orchestrates agents for natural-language
// queries. It ranks all registered agents, dispatches to one (SINGLE) or
// several close-scoring agents (ORCHESTRATED), and merges responses. Every
// routing decision, successful or failed, is forwarded to the report sink
// best-effort.
package router

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phxagent/internal/agent"
	"phxagent/internal/registry"
	"phxagent/internal/rules"
	"phxagent/internal/scoring"
)

// DefaultAgentTimeout bounds a single agent invocation so one hanging
// collaborator cannot stall orchestrated aggregation.
const DefaultAgentTimeout = 30 * time.Second

// Sink receives routing activity records. The report service satisfies it.
type Sink interface {
	LogActivity(agentName, activityType, description string, fields map[string]any) error
}

// Router routes queries to agents. All collaborators are injected; the
// router holds no global state.
type Router struct {
	registry *registry.Registry
	gate     *rules.Gate
	sink     Sink
	weights  scoring.Weights
	timeout  time.Duration
	log      *zap.Logger
}

// Option tunes a Router.
type Option func(*Router)

// WithAgentTimeout overrides the per-agent invocation timeout.
func WithAgentTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWeights overrides the scoring thresholds used for routing decisions
// (threshold, margin, fan-out cap). Scores themselves come from the registry
// scorer; keep the two weight sets in sync via config.
func WithWeights(w scoring.Weights) Option {
	return func(r *Router) {
		r.weights = scoring.NewScorer(w).Weights()
	}
}

// New creates a router. sink may be nil.
func New(reg *registry.Registry, gate *rules.Gate, sink Sink, log *zap.Logger, opts ...Option) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		registry: reg,
		gate:     gate,
		sink:     sink,
		weights:  scoring.DefaultWeights(),
		timeout:  DefaultAgentTimeout,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route is the main entry point. It fails with *agent.PermissionDeniedError
// before any scoring or dispatch when the query is restricted and not
// granted, with *agent.NoCompetentAgentError when nothing scores above the
// threshold, and otherwise dispatches and returns the merged decision.
func (r *Router) Route(ctx context.Context, query string, queryContext map[string]any) (*agent.RoutingDecision, error) {
	// Permission check runs first: a denied query must invoke zero agents.
	if class, restricted := r.gate.IsRestricted(query); restricted {
		decision := r.gate.Check(class)
		if !decision.Permitted {
			err := &agent.PermissionDeniedError{Class: string(class), Message: decision.Message}
			r.recordRouting("", "routing_denied", query, false, map[string]any{"class": string(class)})
			r.log.Warn("routing denied by permission gate",
				zap.String("class", string(class)), zap.String("query", query))
			return nil, err
		}
	}

	ranked := r.registry.Rank(query, queryContext)

	qualifying := ranked[:0:0]
	for _, cs := range ranked {
		if cs.Score >= r.weights.MinCompetence {
			qualifying = append(qualifying, cs)
		}
	}
	if len(qualifying) == 0 {
		err := &agent.NoCompetentAgentError{Query: query, Available: r.registry.Names()}
		r.recordRouting("", "routing_failed", query, false, map[string]any{"reason": "no_competent_agent"})
		return nil, err
	}

	// Orchestrate only the agents within the margin of the top scorer,
	// bounded by the fan-out cap.
	top := qualifying[0].Score
	selected := qualifying[:1]
	for _, cs := range qualifying[1:] {
		if top-cs.Score <= r.weights.MultiAgentMargin {
			selected = append(selected, cs)
		}
	}
	if len(selected) > r.weights.MaxOrchestrated {
		selected = selected[:r.weights.MaxOrchestrated]
	}

	var decision *agent.RoutingDecision
	if len(selected) == 1 {
		decision = r.routeSingle(ctx, selected[0], query, queryContext)
	} else {
		decision = r.orchestrate(ctx, selected, query, queryContext)
	}

	for _, name := range decision.AgentsUsed {
		r.recordRouting(name, "routing", fmt.Sprintf("Routed query: %s", truncate(query, 100)), decision.Success,
			map[string]any{"routing_type": string(decision.Type), "primary": decision.PrimaryAgent})
	}
	return decision, nil
}

func (r *Router) routeSingle(ctx context.Context, cs scoring.CompetenceScore, query string, queryContext map[string]any) *agent.RoutingDecision {
	result := r.dispatch(ctx, cs, query, queryContext)

	return &agent.RoutingDecision{
		Type:         agent.RoutingSingle,
		Query:        query,
		AgentsUsed:   []string{cs.AgentName},
		PrimaryAgent: cs.AgentName,
		Results:      []agent.AgentResult{result},
		Combined: agent.CombinedResponse{
			Combined:     false,
			PrimaryAgent: cs.AgentName,
			Primary:      result.Response,
		},
		Success: result.Success,
	}
}

// orchestrate dispatches to each selected agent independently. Invocations
// run concurrently but each failure is isolated; aggregation sorts by score,
// not completion order, so the result is deterministic either way.
func (r *Router) orchestrate(ctx context.Context, selected []scoring.CompetenceScore, query string, queryContext map[string]any) *agent.RoutingDecision {
	results := make([]agent.AgentResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.weights.MaxOrchestrated)
	for i, cs := range selected {
		i, cs := i, cs
		g.Go(func() error {
			results[i] = r.dispatch(gctx, cs, query, queryContext)
			return nil // fail-soft per agent: errors live in the result
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	names := make([]string, len(results))
	for i, res := range results {
		names[i] = res.Agent
	}

	combined := r.combine(results, query)

	anySuccess := false
	for _, res := range results {
		if res.Success {
			anySuccess = true
			break
		}
	}

	return &agent.RoutingDecision{
		Type:         agent.RoutingOrchestrated,
		Query:        query,
		AgentsUsed:   names,
		PrimaryAgent: combined.PrimaryAgent,
		Results:      results,
		Combined:     combined,
		Success:      anySuccess,
	}
}

// dispatch invokes one agent with the per-agent timeout, converting panics
// and timeouts into failed results.
func (r *Router) dispatch(ctx context.Context, cs scoring.CompetenceScore, query string, queryContext map[string]any) agent.AgentResult {
	a, ok := r.registry.Get(cs.AgentName)
	if !ok {
		return agent.AgentResult{Agent: cs.AgentName, Score: cs.Score, Err: "agent no longer registered"}
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		resp *agent.Response
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("agent %s panicked: %v", cs.AgentName, rec)}
			}
		}()
		resp, err := a.Consult(actx, query, queryContext)
		done <- outcome{resp: resp, err: err}
	}()

	var o outcome
	select {
	case <-actx.Done():
		o = outcome{err: fmt.Errorf("agent %s timed out: %w", cs.AgentName, actx.Err())}
	case o = <-done:
	}
	elapsed := time.Since(start)

	if o.err != nil {
		r.log.Warn("agent invocation failed",
			zap.String("agent", cs.AgentName), zap.Error(o.err))
		return agent.AgentResult{
			Agent:    cs.AgentName,
			Score:    cs.Score,
			Success:  false,
			Err:      o.err.Error(),
			Duration: elapsed,
		}
	}
	return agent.AgentResult{
		Agent:    cs.AgentName,
		Score:    cs.Score,
		Response: o.resp,
		Success:  true,
		Duration: elapsed,
	}
}

// combine merges orchestrated results: primary = highest-scoring success,
// the rest become supplementary entries.
func (r *Router) combine(results []agent.AgentResult, query string) agent.CombinedResponse {
	var successes []agent.AgentResult
	for _, res := range results {
		if res.Success {
			successes = append(successes, res)
		}
	}

	if len(successes) == 0 {
		return agent.CombinedResponse{
			Combined: false,
			Summary:  "no successful agent responses to combine",
		}
	}

	primary := successes[0]
	return agent.CombinedResponse{
		Combined:      len(successes) > 1,
		PrimaryAgent:  primary.Agent,
		Primary:       primary.Response,
		Supplementary: successes[1:],
		Summary:       fmt.Sprintf("combined responses from %d agent(s) for query: %s", len(successes), truncate(query, 80)),
	}
}

// recordRouting forwards an activity record to the sink. Best-effort: sink
// failures are logged and swallowed, never surfaced to the routing caller.
func (r *Router) recordRouting(agentName, activityType, description string, success bool, fields map[string]any) {
	if r.sink == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = success
	name := agentName
	if name == "" {
		name = "AgentRouter"
	}
	if err := r.sink.LogActivity(name, activityType, description, fields); err != nil {
		r.log.Warn("failed to record routing activity", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
