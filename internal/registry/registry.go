// Package registry maintains the set of known agents and exposes lookup,
// enumeration and best-agent selection. Agents are held in insertion order so
// routing tiebreaks stay deterministic.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"phxagent/internal/agent"
	"phxagent/internal/scoring"
)

// Registry is the process-wide agent set. It is an explicit, injectable
// object rather than a package-level singleton so tests can construct
// isolated instances. Safe for concurrent use; a single mutex guards the
// agent set.
type Registry struct {
	mu     sync.RWMutex
	agents []agent.Agent
	index  map[string]int

	scorer *scoring.Scorer
	log    *zap.Logger
}

// New creates a registry backed by the given scorer. A nil logger is
// replaced with a no-op logger.
func New(scorer *scoring.Scorer, log *zap.Logger) *Registry {
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultWeights())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		index:  make(map[string]int),
		scorer: scorer,
		log:    log,
	}
}

// Register adds an agent. Registering an already-present name fails with
// *agent.DuplicateAgentError.
func (r *Registry) Register(a agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.index[name]; exists {
		return &agent.DuplicateAgentError{Name: name}
	}
	r.index[name] = len(r.agents)
	r.agents = append(r.agents, a)
	r.log.Info("registered agent", zap.String("agent", name), zap.Strings("keywords", a.Keywords()))
	return nil
}

// Unregister removes an agent by name. Removing an absent name is a no-op;
// that choice (over an error) keeps teardown paths idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[name]
	if !exists {
		return
	}
	r.agents = append(r.agents[:i], r.agents[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.agents); j++ {
		r.index[r.agents[j].Name()] = j
	}
	r.log.Info("unregistered agent", zap.String("agent", name))
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.agents[i], true
}

// AllAgents returns the registered agents in insertion order.
func (r *Registry) AllAgents() []agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Names returns the registered agent names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Name()
	}
	return names
}

// Rank scores all registered agents against the query and returns the scores
// sorted by descending competence, registration order as tiebreak.
func (r *Registry) Rank(query string, queryContext map[string]any) []scoring.CompetenceScore {
	return r.scorer.Rank(r.AllAgents(), query, queryContext)
}

// FindBest returns the single highest-scoring agent for the query, or false
// when no agent reaches scoring.MinCompetence (as configured).
func (r *Registry) FindBest(query string, queryContext map[string]any) (agent.Agent, bool) {
	ranked := r.Rank(query, queryContext)
	if len(ranked) == 0 || ranked[0].Score < r.scorer.Weights().MinCompetence {
		return nil, false
	}
	a, ok := r.Get(ranked[0].AgentName)
	return a, ok
}
