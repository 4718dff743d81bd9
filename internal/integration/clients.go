package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// GitLabREST posts task notes to a GitLab instance. Token comes from the
// PHXAGENT_GITLAB_TOKEN environment variable so it never lives in config
// files.
type GitLabREST struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

// NewGitLabREST creates the GitLab collaborator.
func NewGitLabREST(baseURL string, log *zap.Logger) *GitLabREST {
	if log == nil {
		log = zap.NewNop()
	}
	return &GitLabREST{
		baseURL: baseURL,
		token:   os.Getenv("PHXAGENT_GITLAB_TOKEN"),
		client:  &http.Client{},
		log:     log,
	}
}

// CreateTaskNote posts a pre-task note. The service layer bounds ctx.
func (g *GitLabREST) CreateTaskNote(ctx context.Context, task, taskType string, meta map[string]any) error {
	body := map[string]any{
		"body":      fmt.Sprintf("[%s] %s", taskType, task),
		"task_type": taskType,
		"metadata":  meta,
	}
	return g.post(ctx, g.baseURL+"/api/v4/task_notes", body)
}

func (g *GitLabREST) post(ctx context.Context, url string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gitlab payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("PRIVATE-TOKEN", g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gitlab returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// JiraREST adds task comments to a Jira instance. Token comes from
// PHXAGENT_JIRA_TOKEN.
type JiraREST struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

// NewJiraREST creates the Jira collaborator.
func NewJiraREST(baseURL string, log *zap.Logger) *JiraREST {
	if log == nil {
		log = zap.NewNop()
	}
	return &JiraREST{
		baseURL: baseURL,
		token:   os.Getenv("PHXAGENT_JIRA_TOKEN"),
		client:  &http.Client{},
		log:     log,
	}
}

// AddTaskComment posts a pre-task comment.
func (j *JiraREST) AddTaskComment(ctx context.Context, task, taskType string, meta map[string]any) error {
	body := map[string]any{
		"comment":   fmt.Sprintf("[%s] %s", taskType, task),
		"task_type": taskType,
		"metadata":  meta,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal jira payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/rest/api/2/task_comments", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if j.token != "" {
		req.Header.Set("Authorization", "Bearer "+j.token)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("jira returned HTTP %d", resp.StatusCode)
	}
	return nil
}
