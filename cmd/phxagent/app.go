package main

import (
	"fmt"

	"go.uber.org/zap"

	"phxagent/internal/agent"
	"phxagent/internal/agents"
	"phxagent/internal/config"
	"phxagent/internal/consult"
	"phxagent/internal/integration"
	"phxagent/internal/logging"
	"phxagent/internal/registry"
	"phxagent/internal/report"
	"phxagent/internal/router"
	"phxagent/internal/rules"
	"phxagent/internal/scoring"
)

// app is the wired object graph behind every command.
type app struct {
	registry *registry.Registry
	router   *router.Router
	gate     *rules.Gate
	reports  *report.Service
	watcher  *rules.Watcher
}

// buildApp constructs the full system from configuration: scorer, registry,
// permission gate (with optional rules watcher), report service with SQLite
// store, consultation protocol, integration side-channel and the built-in
// agents. Registration order is fixed; it is the routing tiebreak.
func buildApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	scorer := scoring.NewScorer(scoring.Weights{
		Keyword:          cfg.Routing.KeywordWeight,
		Intent:           cfg.Routing.IntentWeight,
		Capable:          cfg.Routing.CapableWeight,
		MinCompetence:    cfg.Routing.MinCompetence,
		MultiAgentMargin: cfg.Routing.MultiAgentMargin,
		MaxOrchestrated:  cfg.Routing.MaxOrchestrated,
	})
	reg := registry.New(scorer, logging.Component(log, "registry"))

	classifier := rules.NewClassifier(rules.DefaultPatterns())
	if patterns, err := rules.LoadPatterns(cfg.Rules.File); err == nil {
		classifier.Replace(patterns)
	}
	gate := rules.NewGate(classifier, logging.Component(log, "rules"))

	var watcher *rules.Watcher
	if cfg.Rules.Watch {
		w, err := rules.NewWatcher(cfg.Rules.File, classifier, logging.Component(log, "rules.watcher"))
		if err != nil {
			log.Warn("rules watcher unavailable", zap.Error(err))
		} else if err := w.Start(); err != nil {
			log.Warn("rules watcher failed to start", zap.Error(err))
		} else {
			watcher = w
		}
	}

	store, err := report.OpenStore(cfg.Report.DatabasePath)
	if err != nil {
		// Reports degrade to in-memory only.
		log.Warn("activity store unavailable, reports are in-memory only", zap.Error(err))
		store = nil
	}
	reports := report.NewService(cfg.Report.Dir, store, logging.Component(log, "report"))

	var gitlab integration.GitLabClient
	var jira integration.JiraClient
	if cfg.Integrations.GitLabURL != "" {
		gitlab = integration.NewGitLabREST(cfg.Integrations.GitLabURL, logging.Component(log, "gitlab"))
	}
	if cfg.Integrations.JiraURL != "" {
		jira = integration.NewJiraREST(cfg.Integrations.JiraURL, logging.Component(log, "jira"))
	}
	integ := integration.NewService(gitlab, jira, logging.Component(log, "integration"))

	protocol := consult.NewProtocol(reg, reports, cfg.ConsultTimeout(), logging.Component(log, "consult"))

	postman := integration.NewPostmanAPI("", logging.Component(log, "postman"))

	agentLog := logging.Component(log, "agents")
	kb := agents.DefaultKnowledgeBase()
	builtins := []agent.Agent{
		agents.NewPhoenixExpert(kb, agentLog),
		agents.NewTestAgent(protocol, integ, reports, cfg.Agents.TestBaseURL, agentLog),
		agents.NewEnvironmentAccessAgent(cfg.Agents.PortalLoginURL, agentLog),
		agents.NewGitLabUpdateAgent(gate, integ, cfg.Agents.DefaultProject, agentLog),
		agents.NewBugFinderAgent(kb, protocol, integ, reports, agentLog),
		agents.NewPostmanCollectionAgent(postman, reports, cfg.Agents.TestBaseURL, cfg.Agents.CollectionsDir, agentLog),
	}
	for _, a := range builtins {
		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", a.Name(), err)
		}
	}

	rtr := router.New(reg, gate, reports, logging.Component(log, "router"),
		router.WithWeights(scorer.Weights()),
		router.WithAgentTimeout(cfg.AgentTimeout()))

	return &app{
		registry: reg,
		router:   rtr,
		gate:     gate,
		reports:  reports,
		watcher:  watcher,
	}, nil
}

// close stops background helpers.
func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}
