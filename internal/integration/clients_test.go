package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitLabRESTCreateTaskNote(t *testing.T) {
	t.Setenv("PHXAGENT_GITLAB_TOKEN", "glpat-test")

	var gotPath, gotToken string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("PRIVATE-TOKEN")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := NewGitLabREST(srv.URL, nil)
	err := g.CreateTaskNote(context.Background(), "test customer creation", "api", map[string]any{"execution_id": "TEST_1"})

	require.NoError(t, err)
	assert.Equal(t, "/api/v4/task_notes", gotPath)
	assert.Equal(t, "glpat-test", gotToken)
	assert.Equal(t, "[api] test customer creation", gotBody["body"])
	assert.Equal(t, "api", gotBody["task_type"])
}

func TestGitLabRESTErrorStatus(t *testing.T) {
	t.Setenv("PHXAGENT_GITLAB_TOKEN", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGitLabREST(srv.URL, nil)
	err := g.CreateTaskNote(context.Background(), "task", "api", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestJiraRESTAddTaskComment(t *testing.T) {
	t.Setenv("PHXAGENT_JIRA_TOKEN", "jira-test")

	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	j := NewJiraREST(srv.URL, nil)
	err := j.AddTaskComment(context.Background(), "test billing run", "integration", nil)

	require.NoError(t, err)
	assert.Equal(t, "/rest/api/2/task_comments", gotPath)
	assert.Equal(t, "Bearer jira-test", gotAuth)
	assert.Equal(t, "[integration] test billing run", gotBody["comment"])
}

func TestJiraRESTServerDown(t *testing.T) {
	t.Setenv("PHXAGENT_JIRA_TOKEN", "")

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	j := NewJiraREST(srv.URL, nil)
	err := j.AddTaskComment(context.Background(), "task", "api", nil)

	require.Error(t, err)
}
