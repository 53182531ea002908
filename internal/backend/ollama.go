package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cxterm/internal/config"
)

// OllamaClient queries a local or remote Ollama server.
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient creates a client from backend configuration.
func NewOllamaClient(cfg config.BackendConfig) *OllamaClient {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 120 * time.Second
	}
	host := strings.TrimSuffix(cfg.OllamaHost, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		host:  host,
		model: cfg.OllamaModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies this backend in logs.
func (c *OllamaClient) Name() string { return "ollama" }

// Query generates a completion, auto-detecting a model when none is
// configured, and returns a success envelope around the model text.
func (c *OllamaClient) Query(ctx context.Context, query string) (string, error) {
	model := c.model
	if model == "" {
		model = c.detectModel(ctx)
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		System: BuildSystemPrompt(DetectContext()),
		Prompt: query,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama unreachable: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API status %d: %s", resp.StatusCode, data)
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parsing ollama response: %w", err)
	}
	if parsed.Response == "" {
		return "", fmt.Errorf("empty ollama response")
	}

	return successEnvelope("ollama", parsed.Response)
}

// detectModel asks the server which models are installed, preferring the
// larger general-purpose ones. Falls back to llama3 when the listing is
// unavailable.
func (c *OllamaClient) detectModel(ctx context.Context) string {
	const fallback = "llama3"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fallback
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fallback
	}

	for _, m := range tags.Models {
		name := m.Name
		if strings.Contains(name, "7b") || strings.Contains(name, "8b") || strings.Contains(name, "13b") {
			return name
		}
	}
	if len(tags.Models) > 0 {
		return tags.Models[0].Name
	}
	return fallback
}
