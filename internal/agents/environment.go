package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phxagent/internal/agent"
)

// EnvironmentTarget identifies a reachable environment.
type EnvironmentTarget string

const (
	EnvDev  EnvironmentTarget = "dev"
	EnvDev2 EnvironmentTarget = "dev-2"
)

// environmentAliases maps free-text phrasings onto targets. "dev-2" aliases
// are checked first so "dev" never shadows them.
var environmentAliases = []struct {
	aliases []string
	target  EnvironmentTarget
}{
	{[]string{"dev-2", "dev2", "dev 2"}, EnvDev2},
	{[]string{"dev-1", "dev"}, EnvDev},
}

// ResolveEnvironment maps a query onto an environment target.
func ResolveEnvironment(query string) (EnvironmentTarget, bool) {
	lower := strings.ToLower(query)
	for _, e := range environmentAliases {
		for _, alias := range e.aliases {
			if strings.Contains(lower, alias) {
				return e.target, true
			}
		}
	}
	return "", false
}

// AccessPlan is the ordered login-and-navigate plan for one environment.
type AccessPlan struct {
	AccessID    string            `json:"access_id"`
	Environment EnvironmentTarget `json:"environment"`
	LoginURL    string            `json:"login_url"`
	Steps       []string          `json:"steps"`
}

// EnvironmentAccessAgent resolves environment access requests into plans.
// It does not drive a browser itself; the plan is what an automation runner
// executes.
type EnvironmentAccessAgent struct {
	loginURL string
	log      *zap.Logger
}

// NewEnvironmentAccessAgent creates the agent. An empty loginURL keeps the
// portal default.
func NewEnvironmentAccessAgent(loginURL string, log *zap.Logger) *EnvironmentAccessAgent {
	if loginURL == "" {
		loginURL = "https://portal.example.internal/login"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EnvironmentAccessAgent{loginURL: loginURL, log: log}
}

func (e *EnvironmentAccessAgent) Name() string { return "EnvironmentAccessAgent" }

func (e *EnvironmentAccessAgent) Keywords() []string {
	return []string{"environment", "dev", "login", "portal", "access", "navigate"}
}

func (e *EnvironmentAccessAgent) Capabilities() []string {
	return []string{
		"Login to portal",
		"Navigate to DEV environment",
		"Navigate to DEV-2 environment",
		"Explore application menus",
	}
}

func (e *EnvironmentAccessAgent) CanHelpWith(query string, _ map[string]any) bool {
	if _, ok := ResolveEnvironment(query); ok {
		return true
	}
	lower := strings.ToLower(query)
	return strings.Contains(lower, "environment") || strings.Contains(lower, "portal")
}

func (e *EnvironmentAccessAgent) Consult(ctx context.Context, query string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, ok := ResolveEnvironment(query)
	if !ok {
		return &agent.Response{
			Agent:   e.Name(),
			Summary: "no environment named in the query; supported: dev, dev-2",
		}, nil
	}
	return &agent.Response{
		Agent:   e.Name(),
		Summary: fmt.Sprintf("can access environment %s via portal login", target),
		Data:    map[string]any{"environment": string(target)},
	}, nil
}

// ExecuteTask builds the access plan for the requested environment. An
// unknown environment is an error; there is nothing to degrade to.
func (e *EnvironmentAccessAgent) ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, ok := ResolveEnvironment(task)
	if !ok {
		return nil, fmt.Errorf("unknown environment in task %q: supported targets are dev, dev-2", task)
	}

	plan := AccessPlan{
		AccessID:    "ENV_" + uuid.NewString(),
		Environment: target,
		LoginURL:    e.loginURL,
		Steps: []string{
			"navigate to login page",
			"fill credentials",
			"submit login form",
			"open application card",
			"expand other frontends",
			fmt.Sprintf("select %s environment", target),
			"verify navigation",
		},
	}

	e.log.Info("built environment access plan",
		zap.String("access_id", plan.AccessID),
		zap.String("environment", string(target)))

	return &agent.Response{
		Agent:   e.Name(),
		Summary: fmt.Sprintf("access plan for environment %s ready", target),
		Data:    map[string]any{"plan": plan},
	}, nil
}
