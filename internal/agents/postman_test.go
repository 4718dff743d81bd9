package agents

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phxagent/internal/scoring"
)

type stubUploader struct {
	configured bool
	uid        string
	err        error
	calls      int
}

func (s *stubUploader) Configured() bool { return s.configured }

func (s *stubUploader) UploadCollection(context.Context, any) (string, error) {
	s.calls++
	return s.uid, s.err
}

func podBody(t *testing.T, item CollectionItem) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(item.Request.Body.Raw), &body))
	return body
}

func TestGeneratePODCreateCollectionShape(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	col := GeneratePODCreateCollection("http://qa.example.internal", "", now)

	assert.Equal(t, CollectionSchema, col.Info.Schema)
	assert.Equal(t, "POD Create - Test Cases - 20260102_150405", col.Info.Name)
	require.Len(t, col.Variable, 1)
	assert.Equal(t, "base_url", col.Variable[0].Key)
	assert.Equal(t, "http://qa.example.internal", col.Variable[0].Value)

	require.Len(t, col.Items, 11)
	for _, item := range col.Items {
		assert.Equal(t, "POST", item.Request.Method)
		assert.Equal(t, "{{base_url}}/api/pod", item.Request.URL.Raw)
		require.Len(t, item.Events, 1)
		assert.Equal(t, "test", item.Events[0].Listen)
	}

	body := podBody(t, col.Items[0])
	id, ok := body["identifier"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(id, "32XAUTOMATION"))
	assert.Equal(t, "CONSUMER", body["type"])
	assert.Equal(t, "LOW", body["voltageLevel"])
}

func TestPODCreateCollectionBoundaryCases(t *testing.T) {
	t.Parallel()

	col := GeneratePODCreateCollection("", "", time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))
	require.Len(t, col.Items, 11)

	// Missing required fields sends the deliberately empty body.
	missing := podBody(t, col.Items[2])
	assert.Equal(t, map[string]any{"name": ""}, missing)

	// Identifier one character past the 33 maximum.
	tooLong := podBody(t, col.Items[4])
	assert.Len(t, tooLong["identifier"], 34)
	assert.Contains(t, col.Items[4].Events[0].Script.Exec[0], "400")

	// Consumption out of range.
	overflow := podBody(t, col.Items[5])
	assert.Equal(t, float64(999999999), overflow["estimatedMonthlyAvgConsumption"])

	// SLP case carries the optional measurement fields.
	slp := podBody(t, col.Items[6])
	assert.Equal(t, true, slp["slp"])
	assert.Equal(t, float64(1), slp["measurementTypeId"])

	// The duplicate pair reuses one identifier: first create succeeds, the
	// retry is rejected.
	first := podBody(t, col.Items[9])
	second := podBody(t, col.Items[10])
	assert.Equal(t, first["identifier"], second["identifier"])
	assert.Contains(t, col.Items[9].Events[0].Script.Exec[0], "200")
	assert.Contains(t, col.Items[10].Events[0].Script.Exec[0], "400")
}

func TestPODTestScriptAssertsResponseShape(t *testing.T) {
	t.Parallel()

	success := podTestScript(200, true, "32XAUTOMATION01")
	assert.Contains(t, strings.Join(success, "\n"), "pm.expect(jsonData.identifier).to.eql('32XAUTOMATION01');")

	failure := podTestScript(400, false, "")
	assert.Contains(t, strings.Join(failure, "\n"), "Response contains error message")
}

func TestSaveCollectionWritesSanitizedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	col := GeneratePODCreateCollection("", "POD Create - Test Cases - 20260102_150405", time.Now())

	path, err := SaveCollection(col, filepath.Join(dir, "collections"))

	require.NoError(t, err)
	assert.Equal(t, "POD_Create_-_Test_Cases_-_20260102_150405.postman_collection.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded Collection
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, col.Info.Name, loaded.Info.Name)
	assert.Len(t, loaded.Items, 11)
}

func TestPostmanAgentExecuteTaskGeneratesAndUploads(t *testing.T) {
	t.Parallel()

	uploader := &stubUploader{configured: true, uid: "ws-123"}
	sink := &taskSinkRecorder{}
	pa := NewPostmanCollectionAgent(uploader, sink, "", t.TempDir(), nil)

	resp, err := pa.ExecuteTask(context.Background(), "generate a postman collection for pod create", nil)

	require.NoError(t, err)
	assert.Equal(t, 11, resp.Data["case_count"])
	assert.Equal(t, true, resp.Data["uploaded"])
	assert.Equal(t, "ws-123", resp.Data["collection_uid"])
	assert.Equal(t, 1, uploader.calls)

	file, ok := resp.Data["file"].(string)
	require.True(t, ok)
	assert.FileExists(t, file)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "PostmanCollectionAgent", sink.records[0].Agent)
	assert.Equal(t, "postman_collection_generation", sink.records[0].TaskType)
	assert.True(t, sink.records[0].Success)
}

func TestPostmanAgentUploadFailureIsAdvisory(t *testing.T) {
	t.Parallel()

	uploader := &stubUploader{configured: true, err: errors.New("workspace unreachable")}
	pa := NewPostmanCollectionAgent(uploader, nil, "", t.TempDir(), nil)

	resp, err := pa.ExecuteTask(context.Background(), "export the api collection", nil)

	require.NoError(t, err)
	assert.Equal(t, false, resp.Data["uploaded"])
	assert.NotContains(t, resp.Data, "collection_uid")
}

func TestPostmanAgentSkipsUnconfiguredUploader(t *testing.T) {
	t.Parallel()

	uploader := &stubUploader{}
	pa := NewPostmanCollectionAgent(uploader, nil, "", t.TempDir(), nil)

	resp, err := pa.ExecuteTask(context.Background(), "generate the postman collection", nil)

	require.NoError(t, err)
	assert.Equal(t, false, resp.Data["uploaded"])
	assert.Zero(t, uploader.calls)
}

func TestPostmanAgentCollectionNameFromContext(t *testing.T) {
	t.Parallel()

	pa := NewPostmanCollectionAgent(nil, nil, "", t.TempDir(), nil)

	resp, err := pa.ExecuteTask(context.Background(), "generate a collection", map[string]any{
		"collection_name": "POD Smoke",
	})

	require.NoError(t, err)
	assert.Equal(t, "POD Smoke", resp.Data["collection_name"])
	file, ok := resp.Data["file"].(string)
	require.True(t, ok)
	assert.Equal(t, "POD_Smoke.postman_collection.json", filepath.Base(file))
}

func TestPostmanAgentConsultIsReadOnly(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "collections")
	pa := NewPostmanCollectionAgent(nil, nil, "", dir, nil)

	resp, err := pa.Consult(context.Background(), "what would a postman collection contain", nil)

	require.NoError(t, err)
	assert.Equal(t, 11, resp.Data["case_count"])
	assert.NoDirExists(t, dir)
}

func TestCollectionIntentRoutesToPostmanAgent(t *testing.T) {
	t.Parallel()

	pa := NewPostmanCollectionAgent(nil, nil, "", "", nil)

	analysis := scoring.DetectIntent("generate a postman collection for pod create")
	assert.Equal(t, scoring.IntentCollection, analysis.Primary)
	assert.True(t, analysis.MatchesAgentName(pa.Name()))
	assert.True(t, pa.CanHelpWith("generate a postman collection for pod create", nil))
}
