package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointsFor(t *testing.T) {
	t.Parallel()

	kb := DefaultKnowledgeBase()

	cases := []struct {
		name      string
		path      string
		method    string
		wantPaths []string
	}{
		{
			name:      "path fragment matches all customer endpoints",
			path:      "/api/customer",
			wantPaths: []string{"/api/customer", "/api/customer/{id}", "/api/customer", "/api/customer/{id}", "/api/customer/{id}"},
		},
		{
			name:      "method filter",
			path:      "/api/customer",
			method:    "post",
			wantPaths: []string{"/api/customer"},
		},
		{
			name:   "unknown path",
			path:   "/api/orders",
			method: "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := kb.EndpointsFor(tc.path, tc.method)
			require.Len(t, got, len(tc.wantPaths))
			for i, ep := range got {
				assert.Equal(t, tc.wantPaths[i], ep.Path)
			}
		})
	}
}

func TestPhoenixExpertAnswerQuestion(t *testing.T) {
	t.Parallel()

	p := NewPhoenixExpert(nil, nil)

	t.Run("domain mention", func(t *testing.T) {
		t.Parallel()
		ans := p.AnswerQuestion("how does the billing domain work")
		require.Len(t, ans.Domains, 1)
		assert.Equal(t, "billing", ans.Domains[0].Name)
		assert.Contains(t, ans.Summary, "relevant item")
	})

	t.Run("endpoint path mention", func(t *testing.T) {
		t.Parallel()
		ans := p.AnswerQuestion("what does /api/contract return")
		require.NotEmpty(t, ans.Endpoints)
		for _, ep := range ans.Endpoints {
			assert.Contains(t, ep.Path, "/api/contract")
		}
	})

	t.Run("controller mention", func(t *testing.T) {
		t.Parallel()
		ans := p.AnswerQuestion("which package holds the customer controller")
		require.NotEmpty(t, ans.Controllers)
		assert.Equal(t, "bg.energo.phoenix.customer", ans.Controllers[0].Package)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()
		ans := p.AnswerQuestion("weather forecast")
		assert.Empty(t, ans.Endpoints)
		assert.Empty(t, ans.Domains)
		assert.Empty(t, ans.Controllers)
		assert.Equal(t, "no matching information in the knowledge base", ans.Summary)
	})
}

func TestPhoenixExpertAnswerQuestionDeterministic(t *testing.T) {
	t.Parallel()

	p := NewPhoenixExpert(nil, nil)
	first := p.AnswerQuestion("billing and customer and contract")
	for i := 0; i < 25; i++ {
		assert.Equal(t, first, p.AnswerQuestion("billing and customer and contract"))
	}
}

func TestPhoenixExpertConsultUsesContextHints(t *testing.T) {
	t.Parallel()

	p := NewPhoenixExpert(nil, nil)

	resp, err := p.Consult(context.Background(), "create a customer", map[string]any{
		"method":        "POST",
		"endpoint_path": "/api/customer",
		"domain":        "customer",
		"controller":    "customer-controller",
		"operation":     "create",
	})

	require.NoError(t, err)
	assert.Equal(t, "PhoenixExpert", resp.Agent)

	eps, ok := resp.Data["endpoints"].([]EndpointInfo)
	require.True(t, ok)
	require.Len(t, eps, 1)
	assert.Equal(t, "POST", eps[0].Method)

	d, ok := resp.Data["domain"].(DomainInfo)
	require.True(t, ok)
	assert.Equal(t, "customer", d.Name)

	c, ok := resp.Data["controller"].(ControllerInfo)
	require.True(t, ok)
	assert.Equal(t, "customer-controller", c.Name)

	assert.Equal(t, "create", resp.Data["operation"])
}

func TestPhoenixExpertConsultHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	p := NewPhoenixExpert(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := p.Consult(ctx, "billing", nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPhoenixExpertCanHelpWith(t *testing.T) {
	t.Parallel()

	p := NewPhoenixExpert(nil, nil)
	assert.True(t, p.CanHelpWith("explain the billing endpoint", nil))
	assert.True(t, p.CanHelpWith("PHOENIX architecture", nil))
	assert.False(t, p.CanHelpWith("book a flight", nil))
}
