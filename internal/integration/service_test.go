package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitLab struct {
	calls int
	err   error
}

func (f *fakeGitLab) CreateTaskNote(_ context.Context, task, taskType string, meta map[string]any) error {
	f.calls++
	return f.err
}

type fakeJira struct {
	calls int
	err   error
}

func (f *fakeJira) AddTaskComment(_ context.Context, task, taskType string, meta map[string]any) error {
	f.calls++
	return f.err
}

func TestUpdateBeforeTaskBothClients(t *testing.T) {
	t.Parallel()

	gitlab := &fakeGitLab{}
	jira := &fakeJira{}
	s := NewService(gitlab, jira, nil)

	result := s.UpdateBeforeTask(context.Background(), "test customer creation", "api", nil)

	assert.True(t, result.GitLabUpdated)
	assert.True(t, result.JiraUpdated)
	assert.False(t, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, gitlab.calls)
	assert.Equal(t, 1, jira.calls)
}

func TestUpdateBeforeTaskNoClients(t *testing.T) {
	t.Parallel()

	s := NewService(nil, nil, nil)

	result := s.UpdateBeforeTask(context.Background(), "test customer creation", "api", nil)

	assert.True(t, result.Skipped)
	assert.False(t, result.GitLabUpdated)
	assert.False(t, result.JiraUpdated)
}

func TestUpdateBeforeTaskOneClientFails(t *testing.T) {
	t.Parallel()

	gitlab := &fakeGitLab{err: errors.New("503 service unavailable")}
	jira := &fakeJira{}
	s := NewService(gitlab, jira, nil)

	result := s.UpdateBeforeTask(context.Background(), "test customer creation", "api", nil)

	assert.False(t, result.GitLabUpdated)
	assert.True(t, result.JiraUpdated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "gitlab: 503 service unavailable")
	assert.Equal(t, 1, jira.calls)
}

func TestUpdateBeforeTaskSingleClient(t *testing.T) {
	t.Parallel()

	gitlab := &fakeGitLab{}
	s := NewService(gitlab, nil, nil)

	result := s.UpdateBeforeTask(context.Background(), "sync", "update", nil)

	assert.True(t, result.GitLabUpdated)
	assert.False(t, result.JiraUpdated)
	assert.False(t, result.Skipped)
}
