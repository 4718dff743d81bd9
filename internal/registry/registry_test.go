package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phxagent/internal/agent"
	"phxagent/internal/scoring"
)

type stubAgent struct {
	name     string
	keywords []string
	capable  bool
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Keywords() []string { return s.keywords }

func (s *stubAgent) Capabilities() []string { return nil }

func (s *stubAgent) CanHelpWith(string, map[string]any) bool { return s.capable }

func (s *stubAgent) Consult(context.Context, string, map[string]any) (*agent.Response, error) {
	return &agent.Response{Agent: s.name}, nil
}

func (s *stubAgent) ExecuteTask(context.Context, string, map[string]any) (*agent.Response, error) {
	return &agent.Response{Agent: s.name}, nil
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	r := New(nil, nil)
	require.NoError(t, r.Register(&stubAgent{name: "A"}))

	err := r.Register(&stubAgent{name: "A"})
	var dup *agent.DuplicateAgentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "A", dup.Name)
}

func TestUnregisterAbsentIsNoop(t *testing.T) {
	t.Parallel()

	r := New(nil, nil)
	require.NoError(t, r.Register(&stubAgent{name: "A"}))

	r.Unregister("missing")
	assert.Equal(t, []string{"A"}, r.Names())

	r.Unregister("A")
	assert.Empty(t, r.Names())
	r.Unregister("A") // second removal is still a no-op
}

func TestUnregisterReindexes(t *testing.T) {
	t.Parallel()

	r := New(nil, nil)
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, r.Register(&stubAgent{name: name}))
	}

	r.Unregister("B")
	assert.Equal(t, []string{"A", "C"}, r.Names())

	got, ok := r.Get("C")
	require.True(t, ok)
	assert.Equal(t, "C", got.Name())
}

func TestFindBestThreshold(t *testing.T) {
	t.Parallel()

	r := New(scoring.NewScorer(scoring.DefaultWeights()), nil)
	// Neither keyword overlap nor capability: score 0, below MinCompetence.
	require.NoError(t, r.Register(&stubAgent{name: "Weak", keywords: []string{"unrelated"}}))

	_, ok := r.FindBest("deploy the satellite", nil)
	assert.False(t, ok)

	require.NoError(t, r.Register(&stubAgent{name: "Strong", keywords: []string{"satellite"}, capable: true}))
	best, ok := r.FindBest("deploy the satellite", nil)
	require.True(t, ok)
	assert.Equal(t, "Strong", best.Name())
}

func TestFindBestDeterministic(t *testing.T) {
	t.Parallel()

	r := New(scoring.NewScorer(scoring.DefaultWeights()), nil)
	require.NoError(t, r.Register(&stubAgent{name: "First", keywords: []string{"alpha"}, capable: true}))
	require.NoError(t, r.Register(&stubAgent{name: "Second", keywords: []string{"alpha"}, capable: true}))

	for i := 0; i < 50; i++ {
		best, ok := r.FindBest("alpha", nil)
		require.True(t, ok)
		assert.Equal(t, "First", best.Name(), "registration order must break ties")
	}
}

func TestRankIncludesAllAgents(t *testing.T) {
	t.Parallel()

	r := New(scoring.NewScorer(scoring.DefaultWeights()), nil)
	require.NoError(t, r.Register(&stubAgent{name: "A", keywords: []string{"alpha"}, capable: true}))
	require.NoError(t, r.Register(&stubAgent{name: "B", keywords: []string{"beta"}}))

	ranked := r.Rank("alpha", nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].AgentName)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}
