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

// PostmanAPI uploads generated collections to a Postman workspace. The API
// key comes from PHXAGENT_POSTMAN_API_KEY and the workspace from
// PHXAGENT_POSTMAN_WORKSPACE, so neither ever lives in config files.
type PostmanAPI struct {
	baseURL   string
	apiKey    string
	workspace string
	client    *http.Client
	log       *zap.Logger
}

// NewPostmanAPI creates the Postman collaborator. An empty baseURL targets
// the public Postman API.
func NewPostmanAPI(baseURL string, log *zap.Logger) *PostmanAPI {
	if baseURL == "" {
		baseURL = "https://api.getpostman.com"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostmanAPI{
		baseURL:   baseURL,
		apiKey:    os.Getenv("PHXAGENT_POSTMAN_API_KEY"),
		workspace: os.Getenv("PHXAGENT_POSTMAN_WORKSPACE"),
		client:    &http.Client{},
		log:       log,
	}
}

// Configured reports whether an API key is present.
func (p *PostmanAPI) Configured() bool { return p.apiKey != "" }

// UploadCollection publishes the collection and returns its workspace UID.
func (p *PostmanAPI) UploadCollection(ctx context.Context, collection any) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("postman api key not configured: set PHXAGENT_POSTMAN_API_KEY")
	}

	body := map[string]any{"collection": collection}
	if p.workspace != "" {
		body["workspace"] = p.workspace
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal postman payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/collections", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("postman returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Collection struct {
			UID string `json:"uid"`
		} `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode postman response: %w", err)
	}
	p.log.Info("uploaded postman collection", zap.String("uid", result.Collection.UID))
	return result.Collection.UID, nil
}
