// Package config holds all phxagent configuration: routing weights, report
// and database paths, permission rule file, tracker endpoints and logging.
// Configuration loads from a YAML file with environment overrides; a missing
// file yields the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all phxagent configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Routing RoutingConfig `yaml:"routing"`

	Agents AgentsConfig `yaml:"agents"`

	Report ReportConfig `yaml:"report"`

	Rules RulesConfig `yaml:"rules"`

	Integrations IntegrationsConfig `yaml:"integrations"`

	Logging LoggingConfig `yaml:"logging"`
}

// RoutingConfig holds the competence scoring weights and routing thresholds.
type RoutingConfig struct {
	KeywordWeight    float64 `yaml:"keyword_weight"`
	IntentWeight     float64 `yaml:"intent_weight"`
	CapableWeight    float64 `yaml:"capable_weight"`
	MinCompetence    float64 `yaml:"min_competence"`
	MultiAgentMargin float64 `yaml:"multi_agent_margin"`
	MaxOrchestrated  int     `yaml:"max_orchestrated"`
	AgentTimeout     string  `yaml:"agent_timeout"`
	ConsultTimeout   string  `yaml:"consult_timeout"`
}

// AgentsConfig holds per-agent settings.
type AgentsConfig struct {
	TestBaseURL    string `yaml:"test_base_url"`
	PortalLoginURL string `yaml:"portal_login_url"`
	DefaultProject string `yaml:"default_gitlab_project"`
	CollectionsDir string `yaml:"collections_dir"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Dir          string `yaml:"dir"`
	DatabasePath string `yaml:"database_path"`
}

// RulesConfig holds the permission rule file settings.
type RulesConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

// IntegrationsConfig holds tracker endpoints. An empty URL disables that
// tracker.
type IntegrationsConfig struct {
	GitLabURL string `yaml:"gitlab_url"`
	JiraURL   string `yaml:"jira_url"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "phxagent",
		Version: "1.0.0",

		Routing: RoutingConfig{
			KeywordWeight:    0.5,
			IntentWeight:     0.3,
			CapableWeight:    0.2,
			MinCompetence:    0.25,
			MultiAgentMargin: 0.10,
			MaxOrchestrated:  3,
			AgentTimeout:     "30s",
			ConsultTimeout:   "30s",
		},

		Agents: AgentsConfig{
			TestBaseURL:    "http://localhost:8080",
			CollectionsDir: "collections",
		},

		Report: ReportConfig{
			Dir:          "reports",
			DatabasePath: ".phxagent/activity.db",
		},

		Rules: RulesConfig{
			File:  ".phxagent/rules.yaml",
			Watch: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration back to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides for the settings
// that commonly differ per machine.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PHXAGENT_REPORT_DIR"); v != "" {
		c.Report.Dir = v
	}
	if v := os.Getenv("PHXAGENT_DB_PATH"); v != "" {
		c.Report.DatabasePath = v
	}
	if v := os.Getenv("PHXAGENT_RULES_FILE"); v != "" {
		c.Rules.File = v
	}
	if v := os.Getenv("PHXAGENT_GITLAB_URL"); v != "" {
		c.Integrations.GitLabURL = v
	}
	if v := os.Getenv("PHXAGENT_JIRA_URL"); v != "" {
		c.Integrations.JiraURL = v
	}
	if v := os.Getenv("PHXAGENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PHXAGENT_TEST_BASE_URL"); v != "" {
		c.Agents.TestBaseURL = v
	}
}

// Validate checks the configuration for values the rest of the system cannot
// work with.
func (c *Config) Validate() error {
	r := c.Routing
	if r.MinCompetence < 0 || r.MinCompetence > 1 {
		return fmt.Errorf("routing.min_competence must be in [0,1], got %v", r.MinCompetence)
	}
	if r.MultiAgentMargin < 0 {
		return fmt.Errorf("routing.multi_agent_margin must be >= 0, got %v", r.MultiAgentMargin)
	}
	if r.MaxOrchestrated < 1 {
		return fmt.Errorf("routing.max_orchestrated must be >= 1, got %d", r.MaxOrchestrated)
	}
	if c.Report.Dir == "" {
		return fmt.Errorf("report.dir must not be empty")
	}
	return nil
}
