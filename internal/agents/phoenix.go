// Package agents holds the concrete agents the routing layer ships with:
// a knowledge agent for the Phoenix backend, a test executor, an environment
// access agent, a GitLab update agent, a bug report validator and a Postman
// collection generator. Each satisfies agent.Agent and is registered at
// startup in a fixed order.
package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"phxagent/internal/agent"
)

// EndpointInfo describes one REST endpoint of the Phoenix backend.
type EndpointInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Controller  string `json:"controller"`
	Description string `json:"description"`
}

// DomainInfo describes one business domain.
type DomainInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Controllers []string `json:"controllers"`
}

// ControllerInfo describes one REST controller.
type ControllerInfo struct {
	Name    string `json:"name"`
	Package string `json:"package"`
	Domain  string `json:"domain"`
}

// KnowledgeBase is the indexed architecture knowledge PhoenixExpert answers
// from. Endpoints are an ordered slice so searches return stable results;
// domains and controllers are looked up by key only.
type KnowledgeBase struct {
	Endpoints   []EndpointInfo
	Domains     map[string]DomainInfo
	Controllers map[string]ControllerInfo
}

// DefaultKnowledgeBase seeds the knowledge base with the core Phoenix
// domains. Real deployments replace this with an export of the indexed
// backend; the shape stays the same.
func DefaultKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		Endpoints: []EndpointInfo{
			{Method: "GET", Path: "/api/customer", Controller: "customer-controller", Description: "List customers"},
			{Method: "GET", Path: "/api/customer/{id}", Controller: "customer-controller", Description: "Get customer by id"},
			{Method: "POST", Path: "/api/customer", Controller: "customer-controller", Description: "Create customer"},
			{Method: "PUT", Path: "/api/customer/{id}", Controller: "customer-controller", Description: "Update customer"},
			{Method: "DELETE", Path: "/api/customer/{id}", Controller: "customer-controller", Description: "Delete customer"},
			{Method: "GET", Path: "/api/billing", Controller: "billing-controller", Description: "List billing runs"},
			{Method: "POST", Path: "/api/billing", Controller: "billing-controller", Description: "Start billing run"},
			{Method: "GET", Path: "/api/contract", Controller: "contract-controller", Description: "List contracts"},
			{Method: "POST", Path: "/api/contract", Controller: "contract-controller", Description: "Create contract"},
			{Method: "PUT", Path: "/api/contract/{id}", Controller: "contract-controller", Description: "Update contract"},
		},
		Domains: map[string]DomainInfo{
			"customer": {Name: "customer", Description: "Customer master data and lifecycle", Controllers: []string{"customer-controller"}},
			"billing":  {Name: "billing", Description: "Billing runs and invoicing", Controllers: []string{"billing-controller"}},
			"contract": {Name: "contract", Description: "Contract management", Controllers: []string{"contract-controller"}},
		},
		Controllers: map[string]ControllerInfo{
			"customer-controller": {Name: "customer-controller", Package: "bg.energo.phoenix.customer", Domain: "customer"},
			"billing-controller":  {Name: "billing-controller", Package: "bg.energo.phoenix.billing", Domain: "billing"},
			"contract-controller": {Name: "contract-controller", Package: "bg.energo.phoenix.contract", Domain: "contract"},
		},
	}
}

// EndpointsFor returns the endpoints whose path contains the given fragment,
// optionally filtered by HTTP method. Result order follows the index order.
func (kb *KnowledgeBase) EndpointsFor(path, method string) []EndpointInfo {
	var out []EndpointInfo
	for _, ep := range kb.Endpoints {
		if !strings.Contains(ep.Path, path) {
			continue
		}
		if method != "" && !strings.EqualFold(ep.Method, method) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// phoenixKeywords is the competence keyword set for the knowledge agent.
var phoenixKeywords = []string{
	"phoenix", "endpoint", "api", "controller", "domain",
	"billing", "customer", "contract", "architecture",
	"codebase", "java", "service", "repository",
}

// PhoenixExpert is the read-only knowledge agent for the Phoenix backend.
// It never mutates anything; Consult and ExecuteTask both answer questions
// from the knowledge base.
type PhoenixExpert struct {
	kb  *KnowledgeBase
	log *zap.Logger
}

// NewPhoenixExpert creates the knowledge agent. A nil knowledge base gets
// the built-in default.
func NewPhoenixExpert(kb *KnowledgeBase, log *zap.Logger) *PhoenixExpert {
	if kb == nil {
		kb = DefaultKnowledgeBase()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PhoenixExpert{kb: kb, log: log}
}

func (p *PhoenixExpert) Name() string { return "PhoenixExpert" }

func (p *PhoenixExpert) Keywords() []string { return phoenixKeywords }

func (p *PhoenixExpert) Capabilities() []string {
	return []string{
		"Phoenix project Q&A",
		"Endpoint information",
		"Domain information",
		"Controller information",
		"Architecture information",
	}
}

// CanHelpWith matches any query touching the knowledge keyword set.
func (p *PhoenixExpert) CanHelpWith(query string, _ map[string]any) bool {
	lower := strings.ToLower(query)
	for _, kw := range phoenixKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Consult answers a question using the knowledge base, enriching the answer
// with any structured hints present in the query context (endpoint path,
// domain, controller, operation).
func (p *PhoenixExpert) Consult(ctx context.Context, query string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := make(map[string]any)

	var method string
	if m, ok := queryContext["method"].(string); ok {
		method = m
	}
	if path, ok := queryContext["endpoint_path"].(string); ok && path != "" {
		if eps := p.kb.EndpointsFor(path, method); len(eps) > 0 {
			data["endpoints"] = eps
		}
	}
	if name, ok := queryContext["domain"].(string); ok && name != "" {
		if d, found := p.kb.Domains[name]; found {
			data["domain"] = d
		}
	}
	if name, ok := queryContext["controller"].(string); ok && name != "" {
		if c, found := p.kb.Controllers[name]; found {
			data["controller"] = c
		}
	}
	if op, ok := queryContext["operation"].(string); ok && op != "" {
		data["operation"] = op
	}

	answer := p.AnswerQuestion(query)
	data["answer"] = answer

	p.log.Debug("answered consultation",
		zap.String("query", query), zap.Int("data_keys", len(data)))

	return &agent.Response{
		Agent:   p.Name(),
		Summary: answer.Summary,
		Data:    data,
	}, nil
}

// ExecuteTask is an alias for Consult: the knowledge agent's only task is
// answering questions.
func (p *PhoenixExpert) ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*agent.Response, error) {
	return p.Consult(ctx, task, queryContext)
}

// Answer is the result of a free-text question over the knowledge base.
type Answer struct {
	Summary     string           `json:"summary"`
	Endpoints   []EndpointInfo   `json:"endpoints,omitempty"`
	Domains     []DomainInfo     `json:"domains,omitempty"`
	Controllers []ControllerInfo `json:"controllers,omitempty"`
}

// AnswerQuestion searches the knowledge base for everything mentioned in the
// question. Matching is token-based; results keep index order so repeated
// questions give identical answers.
func (p *PhoenixExpert) AnswerQuestion(question string) Answer {
	lower := strings.ToLower(question)
	var ans Answer

	for _, ep := range p.kb.Endpoints {
		if strings.Contains(lower, strings.ToLower(ep.Path)) ||
			(strings.Contains(lower, ep.Controller) && strings.Contains(lower, strings.ToLower(ep.Method))) {
			ans.Endpoints = append(ans.Endpoints, ep)
		}
	}

	domainNames := make([]string, 0, len(p.kb.Domains))
	for name := range p.kb.Domains {
		domainNames = append(domainNames, name)
	}
	sort.Strings(domainNames)
	for _, name := range domainNames {
		if strings.Contains(lower, name) {
			ans.Domains = append(ans.Domains, p.kb.Domains[name])
		}
	}

	controllerNames := make([]string, 0, len(p.kb.Controllers))
	for name := range p.kb.Controllers {
		controllerNames = append(controllerNames, name)
	}
	sort.Strings(controllerNames)
	for _, name := range controllerNames {
		if strings.Contains(lower, name) || strings.Contains(lower, strings.TrimSuffix(name, "-controller")+" controller") {
			ans.Controllers = append(ans.Controllers, p.kb.Controllers[name])
		}
	}

	total := len(ans.Endpoints) + len(ans.Domains) + len(ans.Controllers)
	if total == 0 {
		ans.Summary = "no matching information in the knowledge base"
	} else {
		ans.Summary = fmt.Sprintf("found %d relevant item(s) in the knowledge base", total)
	}
	return ans
}
