// Package integration is the GitLab/Jira pre-task update side-channel.
// Executor agents notify both trackers before running a task; any failure
// here is logged and swallowed so the primary task always runs.
package integration

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GitLabClient is the opaque REST collaborator for GitLab. Only the behavior
// the agents need is modeled; transport lives behind the interface.
type GitLabClient interface {
	CreateTaskNote(ctx context.Context, task, taskType string, meta map[string]any) error
}

// JiraClient is the opaque REST collaborator for Jira.
type JiraClient interface {
	AddTaskComment(ctx context.Context, task, taskType string, meta map[string]any) error
}

// UpdateResult reports which trackers were updated. It never carries a fatal
// error; per-target failures are recorded as messages.
type UpdateResult struct {
	GitLabUpdated bool
	JiraUpdated   bool
	Errors        []string
	Skipped       bool
}

// clientTimeout bounds each tracker call independently.
const clientTimeout = 15 * time.Second

// Service performs best-effort pre-task updates.
type Service struct {
	gitlab GitLabClient
	jira   JiraClient
	log    *zap.Logger
}

// NewService wires the side-channel. Either client may be nil, in which case
// that tracker is skipped.
func NewService(gitlab GitLabClient, jira JiraClient, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gitlab: gitlab, jira: jira, log: log}
}

// UpdateBeforeTask notifies GitLab and Jira that a task is about to run.
// Never returns an error: the caller proceeds regardless of the outcome.
func (s *Service) UpdateBeforeTask(ctx context.Context, task, taskType string, meta map[string]any) UpdateResult {
	if s.gitlab == nil && s.jira == nil {
		return UpdateResult{Skipped: true}
	}

	var result UpdateResult

	if s.gitlab != nil {
		cctx, cancel := context.WithTimeout(ctx, clientTimeout)
		if err := s.gitlab.CreateTaskNote(cctx, task, taskType, meta); err != nil {
			s.log.Warn("gitlab pre-task update failed", zap.Error(err))
			result.Errors = append(result.Errors, "gitlab: "+err.Error())
		} else {
			result.GitLabUpdated = true
		}
		cancel()
	}

	if s.jira != nil {
		cctx, cancel := context.WithTimeout(ctx, clientTimeout)
		if err := s.jira.AddTaskComment(cctx, task, taskType, meta); err != nil {
			s.log.Warn("jira pre-task update failed", zap.Error(err))
			result.Errors = append(result.Errors, "jira: "+err.Error())
		} else {
			result.JiraUpdated = true
		}
		cancel()
	}

	return result
}
