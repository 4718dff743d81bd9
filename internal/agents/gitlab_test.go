package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phxagent/internal/agent"
	"phxagent/internal/integration"
	"phxagent/internal/rules"
)

func newTestGate() *rules.Gate {
	return rules.NewGate(rules.NewClassifier(rules.DefaultPatterns()), nil)
}

func TestGitLabAgentExecuteTaskDeniedWithoutGrant(t *testing.T) {
	t.Parallel()

	g := NewGitLabUpdateAgent(newTestGate(), nil, "phoenix/backend", nil)

	resp, err := g.ExecuteTask(context.Background(), "update project phoenix/backend", nil)

	assert.Nil(t, resp)
	var denied *agent.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, string(rules.ClassGitHubWrite), denied.Class)
}

func TestGitLabAgentExecuteTaskAfterGrant(t *testing.T) {
	t.Parallel()

	gate := newTestGate()
	gate.Grant(rules.ClassGitHubWrite)
	gitlab := &trackerRecorder{}
	integ := integration.NewService(gitlab, nil, nil)
	g := NewGitLabUpdateAgent(gate, integ, "", nil)

	resp, err := g.ExecuteTask(context.Background(), "update project phoenix/backend branch develop", nil)

	require.NoError(t, err)
	assert.Equal(t, "phoenix/backend", resp.Data["project"])
	assert.Equal(t, "develop", resp.Data["branch"])

	steps, ok := resp.Data["steps"].([]string)
	require.True(t, ok)
	assert.Contains(t, steps, "fetch phoenix/backend")
	assert.Contains(t, steps, "reset --hard origin/develop")

	require.Len(t, gitlab.notes, 1)
}

func TestGitLabAgentExecuteTaskNoProject(t *testing.T) {
	t.Parallel()

	gate := newTestGate()
	gate.Grant(rules.ClassGitHubWrite)
	g := NewGitLabUpdateAgent(gate, nil, "", nil)

	resp, err := g.ExecuteTask(context.Background(), "update from gitlab", nil)

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project to update")
}

func TestGitLabAgentResolveTarget(t *testing.T) {
	t.Parallel()

	g := NewGitLabUpdateAgent(newTestGate(), nil, "phoenix/backend", nil)

	cases := []struct {
		name        string
		query       string
		ctx         map[string]any
		wantProject string
		wantBranch  string
	}{
		{
			name:        "project and branch from query",
			query:       "update repo phoenix/frontend branch develop",
			wantProject: "phoenix/frontend",
			wantBranch:  "develop",
		},
		{
			name:        "default project and main branch",
			query:       "sync with gitlab",
			wantProject: "phoenix/backend",
			wantBranch:  "main",
		},
		{
			name:        "structured context wins over query",
			query:       "update project phoenix/frontend",
			ctx:         map[string]any{"project_path": "phoenix/api", "branch": "release"},
			wantProject: "phoenix/api",
			wantBranch:  "release",
		},
		{
			name:        "repository keyword",
			query:       "pull the repository tools/ci-images",
			wantProject: "tools/ci-images",
			wantBranch:  "main",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			project, branch := g.resolveTarget(tc.query, tc.ctx)
			assert.Equal(t, tc.wantProject, project)
			assert.Equal(t, tc.wantBranch, branch)
		})
	}
}

func TestGitLabAgentConsultIsReadOnly(t *testing.T) {
	t.Parallel()

	// No grant, but Consult only describes the update.
	g := NewGitLabUpdateAgent(newTestGate(), nil, "phoenix/backend", nil)

	resp, err := g.Consult(context.Background(), "sync with gitlab", nil)

	require.NoError(t, err)
	assert.Contains(t, resp.Summary, "would force-update phoenix/backend")
}
