// Package agent defines the contract every agent in the routing layer must
// satisfy, plus the shared value types that flow between the registry, the
// scorer and the router. The router and registry depend only on the Agent
// interface, never on a concrete agent's internals.
package agent

import (
	"context"
	"time"
)

// Agent is the collaborator contract for all routable agents.
type Agent interface {
	// Name returns the unique agent name used for registration and routing.
	Name() string

	// Keywords returns the lowercase keyword set describing this agent's
	// competence area. Used by the scorer for keyword overlap.
	Keywords() []string

	// Capabilities returns human-readable capability labels, in a fixed order.
	Capabilities() []string

	// CanHelpWith reports whether the agent believes it can handle the query.
	CanHelpWith(query string, queryContext map[string]any) bool

	// Consult asks the agent for advice or information without side effects.
	Consult(ctx context.Context, query string, queryContext map[string]any) (*Response, error)

	// ExecuteTask performs the agent's primary work for the given task.
	ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*Response, error)
}

// Response is the structured result an agent returns from Consult or
// ExecuteTask. Data carries agent-specific payloads (endpoint info, test
// results, access plans) the caller can inspect without knowing the agent.
type Response struct {
	Agent   string         `json:"agent"`
	Summary string         `json:"summary"`
	Data    map[string]any `json:"data,omitempty"`
}

// RoutingType distinguishes single-agent dispatch from orchestrated dispatch.
type RoutingType string

const (
	RoutingSingle       RoutingType = "single"
	RoutingOrchestrated RoutingType = "orchestrated"
)

// AgentResult is one agent's outcome inside a routing decision.
// Failed invocations are kept (Success=false) so orchestrated aggregation can
// report them without letting one failure hide the others.
type AgentResult struct {
	Agent    string        `json:"agent"`
	Score    float64       `json:"score"`
	Response *Response     `json:"response,omitempty"`
	Success  bool          `json:"success"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CombinedResponse merges the responses of an orchestrated dispatch.
// For single routing it simply wraps the one raw response.
type CombinedResponse struct {
	Combined      bool          `json:"combined"`
	PrimaryAgent  string        `json:"primary_agent"`
	Primary       *Response     `json:"primary_response,omitempty"`
	Supplementary []AgentResult `json:"supplementary_responses,omitempty"`
	Summary       string        `json:"summary,omitempty"`
}

// RoutingDecision is the result of one routing call. It is returned to the
// caller and forwarded to the report sink; the core never persists it.
type RoutingDecision struct {
	Type         RoutingType      `json:"routing_type"`
	Query        string           `json:"query"`
	AgentsUsed   []string         `json:"agents_used"`
	PrimaryAgent string           `json:"primary_agent"`
	Results      []AgentResult    `json:"agent_results"`
	Combined     CombinedResponse `json:"combined_response"`
	Success      bool             `json:"success"`
}
