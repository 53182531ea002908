// Package backend queries AI backends for responses to user questions.
//
// Backends are tried in a fixed order: the local cx daemon, the Anthropic
// API, Google Gemini, then Ollama. The first one that answers wins. When
// none is reachable the chain returns a sentinel envelope instead of an
// error, so the caller can render an informational message rather than
// fail the invocation.
package backend

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"cxterm/internal/config"
)

// StatusNoAI marks the sentinel envelope produced when no backend answered.
const StatusNoAI = "no_ai"

// ErrUnavailable reports that a backend is not configured or not reachable.
// The chain treats it as "try the next one".
var ErrUnavailable = errors.New("backend unavailable")

// Envelope is the JSON shape backends wrap their answers in. Plain-text
// responses (from older daemons) bypass it entirely.
type Envelope struct {
	Status   string `json:"status,omitempty"`
	Source   string `json:"source,omitempty"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// ParseEnvelope attempts to read response text as a JSON envelope. The
// second return is false for plain text.
func ParseEnvelope(text string) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, false
	}
	return &env, true
}

// Unavailable reports whether the envelope is the no-backend sentinel.
func (e *Envelope) Unavailable() bool {
	return e.Status == StatusNoAI
}

// Backend answers a single query with response text (usually an Envelope in
// JSON form).
type Backend interface {
	Name() string
	Query(ctx context.Context, query string) (string, error)
}

// Chain tries backends in order.
type Chain struct {
	backends []Backend
	logger   *zap.Logger
}

// NewChain assembles the standard fallback chain from configuration.
// localOnly drops the cloud backends, keeping the daemon and Ollama.
func NewChain(cfg *config.Config, localOnly bool, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}

	var backends []Backend
	backends = append(backends, NewDaemonClient(cfg.Backend.DaemonSocket, localOnly))

	if !localOnly {
		if cfg.Backend.AnthropicAPIKey != "" {
			backends = append(backends, NewAnthropicClient(cfg.Backend))
		}
		if cfg.Backend.GeminiAPIKey != "" {
			backends = append(backends, NewGeminiClient(cfg.Backend))
		}
	}

	backends = append(backends, NewOllamaClient(cfg.Backend))

	return &Chain{backends: backends, logger: logger}
}

// NewChainOf builds a chain from explicit backends.
func NewChainOf(logger *zap.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger}
}

// Query asks each backend in order and returns the first answer. When every
// backend fails it returns the no_ai sentinel envelope; the error return is
// reserved for context cancellation.
func (c *Chain) Query(ctx context.Context, query string) (string, error) {
	for _, b := range c.backends {
		response, err := b.Query(ctx, query)
		if err == nil {
			c.logger.Debug("backend answered", zap.String("backend", b.Name()))
			return response, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Debug("backend failed",
			zap.String("backend", b.Name()), zap.Error(err))
	}

	sentinel, err := json.MarshalIndent(Envelope{
		Status:  StatusNoAI,
		Message: "No AI backend available.",
		Hint:    "Set ANTHROPIC_API_KEY or GEMINI_API_KEY, or start Ollama (OLLAMA_HOST)",
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(sentinel), nil
}

// successEnvelope wraps backend text in the standard success envelope.
func successEnvelope(source, response string) (string, error) {
	data, err := json.Marshal(Envelope{
		Status:   "success",
		Source:   source,
		Response: response,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
