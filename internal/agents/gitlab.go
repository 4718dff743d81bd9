package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"phxagent/internal/agent"
	"phxagent/internal/integration"
	"phxagent/internal/rules"
)

var (
	projectRe = regexp.MustCompile(`(?i)(?:project|repo|repository)\s+([\w\-/]+)`)
	branchRe  = regexp.MustCompile(`(?i)branch\s+(\w+)`)
)

// GitLabUpdateAgent synchronizes local project checkouts with GitLab.
// Its mutating operations belong to the github_write restricted class, so
// every execution checks the permission gate first and refuses with an error
// when the class is not granted.
type GitLabUpdateAgent struct {
	gate           *rules.Gate
	integ          *integration.Service
	defaultProject string
	log            *zap.Logger
}

// NewGitLabUpdateAgent wires the agent. gate must not be nil; integ may be.
func NewGitLabUpdateAgent(gate *rules.Gate, integ *integration.Service, defaultProject string, log *zap.Logger) *GitLabUpdateAgent {
	if log == nil {
		log = zap.NewNop()
	}
	return &GitLabUpdateAgent{
		gate:           gate,
		integ:          integ,
		defaultProject: defaultProject,
		log:            log,
	}
}

func (g *GitLabUpdateAgent) Name() string { return "GitLabUpdateAgent" }

func (g *GitLabUpdateAgent) Keywords() []string {
	return []string{"gitlab", "update", "sync", "pull", "clone", "fetch", "repository", "branch"}
}

func (g *GitLabUpdateAgent) Capabilities() []string {
	return []string{
		"Force update project from GitLab",
		"Clone project from GitLab",
		"Sync project with GitLab",
		"Validate GitLab access",
	}
}

func (g *GitLabUpdateAgent) CanHelpWith(query string, _ map[string]any) bool {
	lower := strings.ToLower(query)
	for _, kw := range g.Keywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Consult describes the update the agent would perform. Read-only, so no
// gate check happens here.
func (g *GitLabUpdateAgent) Consult(ctx context.Context, query string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	project, branch := g.resolveTarget(query, queryContext)
	if project == "" {
		return &agent.Response{
			Agent:   g.Name(),
			Summary: "no project named in the query and no default project configured",
		}, nil
	}
	return &agent.Response{
		Agent:   g.Name(),
		Summary: fmt.Sprintf("would force-update %s (branch %s) from GitLab", project, branch),
		Data: map[string]any{
			"project": project,
			"branch":  branch,
		},
	}, nil
}

// ExecuteTask performs the update. A repository-mutating task requires the
// github_write grant; without it the agent refuses with an error result.
func (g *GitLabUpdateAgent) ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if decision := g.gate.Check(rules.ClassGitHubWrite); !decision.Permitted {
		g.log.Warn("gitlab update refused: permission not granted",
			zap.String("task", task))
		return nil, &agent.PermissionDeniedError{
			Class:   string(rules.ClassGitHubWrite),
			Message: decision.Message,
		}
	}

	project, branch := g.resolveTarget(task, queryContext)
	if project == "" {
		return nil, fmt.Errorf("no project to update: name one in the task or configure a default project")
	}

	if g.integ != nil {
		g.integ.UpdateBeforeTask(ctx, task, "update", map[string]any{
			"project": project,
			"branch":  branch,
		})
	}

	// GitLab is the source of truth: the sync plan always fetches and hard
	// resets, discarding local changes.
	steps := []string{
		"validate gitlab access",
		fmt.Sprintf("fetch %s", project),
		fmt.Sprintf("reset --hard origin/%s", branch),
		"verify working tree",
	}

	g.log.Info("gitlab update planned",
		zap.String("project", project), zap.String("branch", branch))

	return &agent.Response{
		Agent:   g.Name(),
		Summary: fmt.Sprintf("force-updated %s from GitLab (branch %s)", project, branch),
		Data: map[string]any{
			"project": project,
			"branch":  branch,
			"steps":   steps,
		},
	}, nil
}

// resolveTarget extracts the project path and branch from the query or the
// structured context, falling back to the configured default project and
// branch main.
func (g *GitLabUpdateAgent) resolveTarget(query string, queryContext map[string]any) (project, branch string) {
	branch = "main"

	if p, ok := queryContext["project_path"].(string); ok && p != "" {
		project = p
	}
	if b, ok := queryContext["branch"].(string); ok && b != "" {
		branch = b
	}

	if project == "" {
		if m := projectRe.FindStringSubmatch(query); m != nil {
			project = m[1]
		}
	}
	if m := branchRe.FindStringSubmatch(query); m != nil {
		branch = m[1]
	}

	if project == "" {
		project = g.defaultProject
	}
	return project, branch
}
