package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "phxagent", cfg.Name)
	assert.Equal(t, 0.25, cfg.Routing.MinCompetence)
	assert.Equal(t, 3, cfg.Routing.MaxOrchestrated)
	assert.Equal(t, "reports", cfg.Report.Dir)
	assert.Equal(t, ".phxagent/activity.db", cfg.Report.DatabasePath)
	assert.True(t, cfg.Rules.Watch)
	assert.Equal(t, "console", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
routing:
  min_competence: 0.4
  agent_timeout: 5s
report:
  dir: out
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Routing.MinCompetence)
	assert.Equal(t, 5*time.Second, cfg.AgentTimeout())
	assert.Equal(t, "out", cfg.Report.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched settings keep their defaults.
	assert.Equal(t, 0.10, cfg.Routing.MultiAgentMargin)
	assert.Equal(t, "http://localhost:8080", cfg.Agents.TestBaseURL)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routing: ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PHXAGENT_REPORT_DIR", "/tmp/reps")
	t.Setenv("PHXAGENT_GITLAB_URL", "https://gitlab.example.internal")
	t.Setenv("PHXAGENT_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: custom\n"), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, "/tmp/reps", cfg.Report.Dir)
	assert.Equal(t, "https://gitlab.example.internal", cfg.Integrations.GitLabURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Routing.MinCompetence = 0.33
	cfg.Integrations.JiraURL = "https://jira.example.internal"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(*Config) {}, ""},
		{"negative competence", func(c *Config) { c.Routing.MinCompetence = -0.1 }, "min_competence"},
		{"competence above one", func(c *Config) { c.Routing.MinCompetence = 1.5 }, "min_competence"},
		{"negative margin", func(c *Config) { c.Routing.MultiAgentMargin = -1 }, "multi_agent_margin"},
		{"zero fan-out", func(c *Config) { c.Routing.MaxOrchestrated = 0 }, "max_orchestrated"},
		{"empty report dir", func(c *Config) { c.Report.Dir = "" }, "report.dir"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestTimeouts(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.AgentTimeout())
	assert.Equal(t, 30*time.Second, cfg.ConsultTimeout())

	cfg.Routing.AgentTimeout = "2m"
	assert.Equal(t, 2*time.Minute, cfg.AgentTimeout())

	cfg.Routing.AgentTimeout = "not-a-duration"
	assert.Equal(t, 30*time.Second, cfg.AgentTimeout())

	cfg.Routing.ConsultTimeout = "-5s"
	assert.Equal(t, 30*time.Second, cfg.ConsultTimeout())
}
