package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phxagent/internal/agent"
	"phxagent/internal/consult"
	"phxagent/internal/integration"
)

func validationFrom(t *testing.T, resp *agent.Response) BugValidation {
	t.Helper()
	v, ok := resp.Data["validation"].(BugValidation)
	require.True(t, ok, "response should carry the validation record")
	return v
}

func TestBugFinderConfirmsDocumentedEndpoint(t *testing.T) {
	t.Parallel()

	bf := NewBugFinderAgent(nil, nil, nil, nil, nil)

	resp, err := bf.ExecuteTask(context.Background(), "bug: creating a customer via POST /api/customer returns 500", nil)

	require.NoError(t, err)
	v := validationFrom(t, resp)
	assert.Equal(t, DocStatusCorrect, v.Documentation.Status)
	require.NotEmpty(t, v.Documentation.Sources)
	assert.Contains(t, v.Documentation.Sources[0], "/api/customer")
	assert.Equal(t, CodeStatusSatisfies, v.Code.Status)
	require.NotEmpty(t, v.Code.References)
	assert.Contains(t, v.Code.References[0], "bg.energo.phoenix.customer")
	assert.True(t, v.Conclusion.Valid)
	assert.Equal(t, "bug report confirmed against documented behavior", resp.Summary)
}

func TestBugFinderRejectsUnknownBehavior(t *testing.T) {
	t.Parallel()

	bf := NewBugFinderAgent(nil, nil, nil, nil, nil)

	resp, err := bf.ExecuteTask(context.Background(), "bug: the flux capacitor crashes on startup", nil)

	require.NoError(t, err)
	v := validationFrom(t, resp)
	assert.Equal(t, DocStatusIncorrect, v.Documentation.Status)
	assert.Equal(t, CodeStatusDoesNotSatisfy, v.Code.Status)
	assert.False(t, v.Conclusion.Valid)
}

func TestBugFinderDomainOnlyIsPartial(t *testing.T) {
	t.Parallel()

	bf := NewBugFinderAgent(nil, nil, nil, nil, nil)

	// Names the billing domain but no verb, so no endpoint is inferred.
	resp, err := bf.ExecuteTask(context.Background(), "bug: billing totals look wrong", nil)

	require.NoError(t, err)
	v := validationFrom(t, resp)
	assert.Equal(t, DocStatusPartial, v.Documentation.Status)
	assert.Equal(t, CodeStatusSatisfies, v.Code.Status)
	require.NotEmpty(t, v.Code.References)
	assert.Contains(t, v.Code.References[0], "bg.energo.phoenix.billing")
	assert.False(t, v.Conclusion.Valid)
	assert.Contains(t, v.Conclusion.Details, "name the affected endpoint")
}

func TestBugFinderExecuteTaskFullPipeline(t *testing.T) {
	t.Parallel()

	finder := &singleAgentFinder{target: NewPhoenixExpert(nil, nil)}
	protocol := consult.NewProtocol(finder, nil, time.Second, nil)
	gitlab := &trackerRecorder{}
	jira := &trackerRecorder{}
	integ := integration.NewService(gitlab, jira, nil)
	sink := &taskSinkRecorder{}
	bf := NewBugFinderAgent(nil, protocol, integ, sink, nil)

	resp, err := bf.ExecuteTask(context.Background(), "bug: updating a contract via PUT /api/contract/{id} drops the end date", nil)

	require.NoError(t, err)
	v := validationFrom(t, resp)
	assert.Equal(t, "PhoenixExpert", v.Consulted)
	assert.True(t, v.Integrations.GitLabUpdated)
	assert.True(t, v.Integrations.JiraUpdated)
	assert.True(t, v.Conclusion.Valid)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "BugFinderAgent", sink.records[0].Agent)
	assert.Equal(t, "bug_validation", sink.records[0].TaskType)
	assert.True(t, sink.records[0].Success)
	assert.Len(t, gitlab.notes, 1)
	assert.Len(t, jira.notes, 1)
}

func TestBugFinderConsultationFailureNeverBlocks(t *testing.T) {
	t.Parallel()

	// No knowledge agent available: the consultation is skipped and the
	// validation still completes.
	protocol := consult.NewProtocol(&singleAgentFinder{}, nil, time.Second, nil)
	bf := NewBugFinderAgent(nil, protocol, nil, nil, nil)

	resp, err := bf.ExecuteTask(context.Background(), "bug: deleting a customer leaves its contracts behind", nil)

	require.NoError(t, err)
	v := validationFrom(t, resp)
	assert.Empty(t, v.Consulted)
	assert.NotEmpty(t, v.Conclusion.Summary)
}

func TestFormatValidationReportSections(t *testing.T) {
	t.Parallel()

	v := BugValidation{
		Description: "POST /api/customer returns 500",
		Documentation: DocumentationCheck{
			Status:      DocStatusCorrect,
			Explanation: "the documentation describes /api/customer",
			Sources:     []string{"POST /api/customer (customer-controller)"},
		},
		Code: CodeCheck{
			Status:      CodeStatusSatisfies,
			Explanation: "the implementation behind the documented behavior was located",
			References:  []string{"bg.energo.phoenix.customer (customer-controller)"},
		},
		Conclusion: BugConclusion{Valid: true, Summary: "confirmed", Details: "details"},
	}

	report := FormatValidationReport(v)

	assert.Contains(t, report, "## Bug Validation Analysis")
	assert.Contains(t, report, "### 1. Documentation Validation")
	assert.Contains(t, report, "### 2. Code Validation")
	assert.Contains(t, report, "### 3. Conclusion")
	assert.Contains(t, report, "Bug VALID")
	assert.Contains(t, report, "- POST /api/customer (customer-controller)")
}

func TestBugFinderConsultDescribesChecks(t *testing.T) {
	t.Parallel()

	bf := NewBugFinderAgent(nil, nil, nil, nil, nil)

	resp, err := bf.Consult(context.Background(), "bug: GET /api/billing times out", nil)

	require.NoError(t, err)
	assert.Equal(t, "/api/billing", resp.Data["endpoint"])
	assert.Equal(t, []string{"documentation validation", "code validation", "conclusion"}, resp.Data["stages"])
}

func TestBugFinderCanHelpWith(t *testing.T) {
	t.Parallel()

	bf := NewBugFinderAgent(nil, nil, nil, nil, nil)

	assert.True(t, bf.CanHelpWith("validate this bug report", nil))
	assert.True(t, bf.CanHelpWith("the invoice total is wrong", nil))
	assert.False(t, bf.CanHelpWith("open the dev portal", nil))
}
