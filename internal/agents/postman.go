package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"phxagent/internal/agent"
)

// CollectionSchema is the Postman collection format the generator emits.
const CollectionSchema = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman collection in the v2.1.0 wire format.
type Collection struct {
	Info     CollectionInfo       `json:"info"`
	Items    []CollectionItem     `json:"item"`
	Variable []CollectionVariable `json:"variable,omitempty"`
}

// CollectionInfo is the collection header block.
type CollectionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
	ExporterID  string `json:"_exporter_id,omitempty"`
}

// CollectionVariable is one collection-level variable, e.g. base_url.
type CollectionVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// CollectionItem is one request plus its test script.
type CollectionItem struct {
	Name     string      `json:"name"`
	Request  ItemRequest `json:"request"`
	Response []any       `json:"response"`
	Events   []ItemEvent `json:"event,omitempty"`
}

// ItemRequest describes the HTTP request of a collection item.
type ItemRequest struct {
	Method      string          `json:"method"`
	Header      []RequestHeader `json:"header"`
	Body        RequestBody     `json:"body"`
	URL         RequestURL      `json:"url"`
	Description string          `json:"description,omitempty"`
}

// RequestHeader is one request header pair.
type RequestHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RequestBody carries the raw JSON payload of a request.
type RequestBody struct {
	Mode string `json:"mode"`
	Raw  string `json:"raw"`
}

// RequestURL is the split request URL Postman expects.
type RequestURL struct {
	Raw  string   `json:"raw"`
	Host []string `json:"host"`
	Path []string `json:"path"`
}

// ItemEvent attaches a script to a request lifecycle phase.
type ItemEvent struct {
	Listen string      `json:"listen"`
	Script EventScript `json:"script"`
}

// EventScript is the script body of an item event.
type EventScript struct {
	Exec []string `json:"exec"`
	Type string   `json:"type"`
}

// podCase describes one POD create scenario before it becomes a collection
// item. POD is a Point of Delivery, the metering point the backend manages.
type podCase struct {
	name          string
	description   string
	identifier    string
	podType       string
	purpose       string
	consumption   int
	slp           bool
	settlement    bool
	dropRequired  bool
	expectedCode  int
	expectSuccess bool
}

// podCreateCases is the scenario table for the POD create endpoint: the happy
// paths, the validation rejections and the duplicate-identifier pair. stamp
// keeps identifiers unique per generated collection.
func podCreateCases(stamp string) []podCase {
	base := "32XAUTOMATION" + stamp
	duplicate := base + "DUP"
	return []podCase{
		{
			name:          "1. POD Create - Success - Basic Consumer",
			description:   "Successful POD creation with minimal required fields for CONSUMER type",
			identifier:    base,
			podType:       "CONSUMER",
			purpose:       "HOUSEHOLD",
			consumption:   1000,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:          "2. POD Create - Success - Generator",
			description:   "Successful POD creation for GENERATOR type",
			identifier:    base + "GEN",
			podType:       "GENERATOR",
			purpose:       "NON_HOUSEHOLD",
			consumption:   1000,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:         "3. POD Create - Validation Error - Missing Required Fields",
			description:  "Should fail with 400 when required fields are missing",
			dropRequired: true,
			expectedCode: 400,
		},
		{
			name:         "4. POD Create - Validation Error - Invalid Identifier Format",
			description:  "Should fail with 400 when identifier contains invalid characters",
			identifier:   "INVALID-IDENTIFIER-123!@#",
			podType:      "CONSUMER",
			purpose:      "HOUSEHOLD",
			consumption:  1000,
			expectedCode: 400,
		},
		{
			name:         "5. POD Create - Validation Error - Identifier Too Long",
			description:  "Should fail with 400 when identifier exceeds max length (33)",
			identifier:   strings.Repeat("A", 34),
			podType:      "CONSUMER",
			purpose:      "HOUSEHOLD",
			consumption:  1000,
			expectedCode: 400,
		},
		{
			name:         "6. POD Create - Validation Error - Invalid Consumption Value",
			description:  "Should fail with 400 when estimatedMonthlyAvgConsumption is out of range",
			identifier:   base + "INV",
			podType:      "CONSUMER",
			purpose:      "HOUSEHOLD",
			consumption:  999999999,
			expectedCode: 400,
		},
		{
			name:          "7. POD Create - Success - With SLP",
			description:   "Successful POD creation with SLP enabled",
			identifier:    base + "SLP",
			podType:       "CONSUMER",
			purpose:       "HOUSEHOLD",
			consumption:   1000,
			slp:           true,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:          "8. POD Create - Success - With Settlement Period",
			description:   "Successful POD creation with settlement period enabled",
			identifier:    base + "SET",
			podType:       "CONSUMER",
			purpose:       "HOUSEHOLD",
			consumption:   1000,
			settlement:    true,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:          "9. POD Create - Success - Non-Household Consumer",
			description:   "Successful POD creation for NON_HOUSEHOLD consumption purpose",
			identifier:    base + "NH",
			podType:       "CONSUMER",
			purpose:       "NON_HOUSEHOLD",
			consumption:   1000,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:          "10a. POD Create - Success - For Duplicate Test",
			description:   "Create POD for duplicate identifier test",
			identifier:    duplicate,
			podType:       "CONSUMER",
			purpose:       "HOUSEHOLD",
			consumption:   1000,
			expectedCode:  200,
			expectSuccess: true,
		},
		{
			name:         "10b. POD Create - Validation Error - Duplicate Identifier",
			description:  "Should fail with 400 when identifier already exists",
			identifier:   duplicate,
			podType:      "CONSUMER",
			purpose:      "HOUSEHOLD",
			consumption:  1000,
			expectedCode: 400,
		},
	}
}

// GeneratePODCreateCollection builds the POD create test collection. An empty
// name gets the timestamped default.
func GeneratePODCreateCollection(baseURL, name string, now time.Time) *Collection {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if name == "" {
		name = "POD Create - Test Cases - " + now.Format("20060102_150405")
	}

	stamp := now.Format("20060102150405")
	cases := podCreateCases(stamp)
	items := make([]CollectionItem, 0, len(cases))
	for _, c := range cases {
		items = append(items, podItem(c, stamp))
	}

	return &Collection{
		Info: CollectionInfo{
			Name:        name,
			Description: "Automated test cases for POD (Point of Delivery) Create endpoint with various scenarios",
			Schema:      CollectionSchema,
			ExporterID:  "automation-agent",
		},
		Items: items,
		Variable: []CollectionVariable{
			{Key: "base_url", Value: baseURL, Type: "string"},
		},
	}
}

func podItem(c podCase, stamp string) CollectionItem {
	raw, _ := json.MarshalIndent(podRequestBody(c, stamp), "", "  ")
	return CollectionItem{
		Name: c.name,
		Request: ItemRequest{
			Method: "POST",
			Header: []RequestHeader{{Key: "Content-Type", Value: "application/json"}},
			Body:   RequestBody{Mode: "raw", Raw: string(raw)},
			URL: RequestURL{
				Raw:  "{{base_url}}/api/pod",
				Host: []string{"{{base_url}}"},
				Path: []string{"api", "pod"},
			},
			Description: c.description,
		},
		Response: []any{},
		Events: []ItemEvent{
			{
				Listen: "test",
				Script: EventScript{
					Exec: podTestScript(c.expectedCode, c.expectSuccess, c.identifier),
					Type: "text/javascript",
				},
			},
		},
	}
}

// podRequestBody builds the POST payload. The missing-required-fields case
// sends a deliberately empty body so the backend rejects it.
func podRequestBody(c podCase, stamp string) map[string]any {
	if c.dropRequired {
		return map[string]any{"name": ""}
	}
	body := map[string]any{
		"identifier":                     c.identifier,
		"name":                           "POD AUTOMATION" + stamp,
		"additionalIdentifier":           "ADD" + stamp[:10],
		"type":                           c.podType,
		"estimatedMonthlyAvgConsumption": c.consumption,
		"consumptionPurpose":             c.purpose,
		"gridOperatorId":                 1,
		"balancingGroupCoordinatorId":    1,
		"userTypeId":                     1,
		"voltageLevel":                   "LOW",
		"addressRequest": map[string]any{
			"localAddressData": map[string]any{
				"countryId":      1,
				"regionId":       1,
				"municipalityId": 1,
				"settlementId":   1,
				"street":         "Test Street",
				"streetNumber":   "1",
			},
			"foreign": false,
		},
	}
	if c.slp {
		body["slp"] = true
		body["measurementTypeId"] = 1
	}
	if c.settlement {
		body["settlementPeriod"] = true
	}
	return body
}

// podTestScript builds the Postman assertion script for one item: status code
// first, then either the created-POD shape or the error message shape.
func podTestScript(expectedStatus int, success bool, identifier string) []string {
	script := []string{
		fmt.Sprintf("pm.test('Status code is %d', function () {", expectedStatus),
		fmt.Sprintf("    pm.response.to.have.status(%d);", expectedStatus),
		"});",
	}
	if success && expectedStatus == 200 {
		script = append(script,
			"",
			"pm.test('Response has POD data', function () {",
			"    const jsonData = pm.response.json();",
			"    pm.expect(jsonData).to.have.property('id');",
			"    pm.expect(jsonData).to.have.property('identifier');",
			fmt.Sprintf("    pm.expect(jsonData.identifier).to.eql('%s');", identifier),
			"});",
			"",
			"pm.test('Response time is less than 5000ms', function () {",
			"    pm.expect(pm.response.responseTime).to.be.below(5000);",
			"});",
		)
	} else {
		script = append(script,
			"",
			"pm.test('Response contains error message', function () {",
			"    const jsonData = pm.response.json();",
			"    pm.expect(jsonData).to.have.property('message');",
			"    pm.expect(jsonData.message).to.be.a('string');",
			"});",
		)
	}
	return script
}

// SaveCollection writes the collection under dir as
// <name>.postman_collection.json with spaces and slashes sanitized.
func SaveCollection(col *Collection, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create collections directory: %w", err)
	}
	name := strings.ReplaceAll(col.Info.Name, " ", "_")
	name = strings.ReplaceAll(name, "/", "-")
	path := filepath.Join(dir, name+".postman_collection.json")

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal collection: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write collection: %w", err)
	}
	return path, nil
}

// CollectionUploader publishes a collection to a Postman workspace.
// integration.PostmanAPI satisfies it.
type CollectionUploader interface {
	Configured() bool
	UploadCollection(ctx context.Context, collection any) (string, error)
}

// PostmanCollectionAgent generates Postman collections for the backend's REST
// endpoints, saves them locally and, when an uploader is configured, publishes
// them to the workspace. The upload is advisory; generation succeeds without
// it.
type PostmanCollectionAgent struct {
	uploader CollectionUploader
	sink     TaskSink
	baseURL  string
	outDir   string
	now      func() time.Time
	log      *zap.Logger
}

// NewPostmanCollectionAgent wires the generator agent. uploader and sink may
// be nil; the corresponding step is skipped.
func NewPostmanCollectionAgent(uploader CollectionUploader, sink TaskSink, baseURL, outDir string, log *zap.Logger) *PostmanCollectionAgent {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if outDir == "" {
		outDir = "collections"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostmanCollectionAgent{
		uploader: uploader,
		sink:     sink,
		baseURL:  baseURL,
		outDir:   outDir,
		now:      time.Now,
		log:      log,
	}
}

func (p *PostmanCollectionAgent) Name() string { return "PostmanCollectionAgent" }

func (p *PostmanCollectionAgent) Keywords() []string {
	return []string{"postman", "collection", "export", "import", "generate", "api"}
}

func (p *PostmanCollectionAgent) Capabilities() []string {
	return []string{
		"Generate POD create Postman collections",
		"Save collections locally",
		"Upload collections to a Postman workspace",
	}
}

func (p *PostmanCollectionAgent) CanHelpWith(query string, _ map[string]any) bool {
	lower := strings.ToLower(query)
	for _, kw := range p.Keywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Consult describes the collection that would be generated without touching
// the filesystem or the workspace.
func (p *PostmanCollectionAgent) Consult(ctx context.Context, query string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cases := podCreateCases(p.now().Format("20060102150405"))
	return &agent.Response{
		Agent:   p.Name(),
		Summary: fmt.Sprintf("would generate a POD create collection with %d test case(s) against %s", len(cases), p.baseURL),
		Data: map[string]any{
			"case_count": len(cases),
			"base_url":   p.baseURL,
			"schema":     CollectionSchema,
		},
	}, nil
}

// ExecuteTask generates the collection, saves it locally and uploads it when
// the workspace is configured. Upload and sink failures are advisory.
func (p *PostmanCollectionAgent) ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := p.now()

	var name string
	if n, ok := queryContext["collection_name"].(string); ok {
		name = n
	}
	col := GeneratePODCreateCollection(p.baseURL, name, started)

	path, err := SaveCollection(col, p.outDir)
	if err != nil {
		return nil, err
	}
	p.log.Info("saved postman collection",
		zap.String("collection", col.Info.Name), zap.String("path", path))

	uploaded := false
	var uid string
	if p.uploader != nil && p.uploader.Configured() {
		uid, err = p.uploader.UploadCollection(ctx, col)
		if err != nil {
			p.log.Warn("collection upload failed", zap.Error(err))
		} else {
			uploaded = true
		}
	}

	if p.sink != nil {
		result := fmt.Sprintf("%d case(s), saved to %s, uploaded=%t", len(col.Items), path, uploaded)
		if err := p.sink.LogTaskExecution(p.Name(), task, "postman_collection_generation", true, p.now().Sub(started), result); err != nil {
			p.log.Warn("failed to record collection generation", zap.Error(err))
		}
	}

	data := map[string]any{
		"collection_name": col.Info.Name,
		"file":            path,
		"case_count":      len(col.Items),
		"uploaded":        uploaded,
	}
	if uid != "" {
		data["collection_uid"] = uid
	}
	return &agent.Response{
		Agent:   p.Name(),
		Summary: fmt.Sprintf("generated %s with %d test case(s)", col.Info.Name, len(col.Items)),
		Data:    data,
	}, nil
}
