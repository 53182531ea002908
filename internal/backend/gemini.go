package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"cxterm/internal/config"
)

// GeminiClient queries Google Gemini through the genai SDK.
type GeminiClient struct {
	apiKey string
	model  string
}

// NewGeminiClient creates a client from backend configuration.
func NewGeminiClient(cfg config.BackendConfig) *GeminiClient {
	model := cfg.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{apiKey: cfg.GeminiAPIKey, model: model}
}

// Name identifies this backend in logs.
func (c *GeminiClient) Name() string { return "gemini" }

// Query sends the question with the agent system prompt and returns a
// success envelope around the model text.
func (c *GeminiClient) Query(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured: %w", ErrUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(query),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(DetectContext()), genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}

	return successEnvelope("gemini", text)
}
