// Package llm provides the chat-completion transport used by the remote
// analyzer. Two backends are supported: OpenAI-compatible APIs and Ollama.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoCredential is returned by NewProvider when the selected backend
// needs a credential that was not configured.
var ErrNoCredential = errors.New("no credential configured")

// Provider sends chat requests to a text-generation backend.
type Provider interface {
	// Chat sends a conversation and returns the assistant reply.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse contains the chat completion response.
type ChatResponse struct {
	Message      Message       `json:"message"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// Config holds configuration for creating providers.
type Config struct {
	// Provider type: "openai", "ollama"
	Type string

	// BaseURL for the API endpoint
	BaseURL string

	// APIKey for authenticated providers
	APIKey string

	// Model to use when a request does not name one
	Model string

	// Timeout for API requests; zero means no timeout
	Timeout time.Duration
}

// NewProvider creates a Provider based on configuration. An OpenAI provider
// without an API key yields ErrNoCredential so callers can fall back to
// offline analysis.
func NewProvider(cfg Config) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch strings.ToLower(cfg.Type) {
	case "openai", "openai-compatible", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrNoCredential)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &openaiProvider{
			baseURL: strings.TrimSuffix(baseURL, "/"),
			apiKey:  cfg.APIKey,
			model:   model,
			client:  client,
		}, nil
	case "ollama", "local":
		if cfg.Model == "" {
			return nil, fmt.Errorf("ollama: model not specified: %w", ErrNoCredential)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return &ollamaProvider{
			baseURL: strings.TrimSuffix(baseURL, "/"),
			model:   cfg.Model,
			client:  client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s (supported: openai, ollama)", cfg.Type)
	}
}

// postJSON sends payload to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// OPENAI PROVIDER

type openaiProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	payload := map[string]any{
		"model":    model,
		"messages": req.Messages,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}

	var result struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	start := time.Now()
	if err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", p.apiKey, payload, &result); err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: no choices returned")
	}

	return &ChatResponse{
		Message:      result.Choices[0].Message,
		Model:        result.Model,
		PromptTokens: result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}

// OLLAMA PROVIDER

type ollamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	options := map[string]any{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	payload := map[string]any{
		"model":    model,
		"messages": req.Messages,
		"stream":   false,
		"options":  options,
	}

	var result struct {
		Message         Message `json:"message"`
		Model           string  `json:"model"`
		PromptEvalCount int     `json:"prompt_eval_count"`
		EvalCount       int     `json:"eval_count"`
	}

	start := time.Now()
	if err := postJSON(ctx, p.client, p.baseURL+"/api/chat", "", payload, &result); err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &ChatResponse{
		Message:      result.Message,
		Model:        result.Model,
		PromptTokens: result.PromptEvalCount,
		OutputTokens: result.EvalCount,
		Duration:     time.Since(start),
	}, nil
}

// BuildChatMessages creates a system + user message pair.
func BuildChatMessages(systemPrompt, userPrompt string) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

// MockProvider is a test provider that returns predictable responses.
type MockProvider struct {
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Calls    []ChatRequest
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.Calls = append(p.Calls, req)
	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	return &ChatResponse{
		Message: Message{Role: "assistant", Content: "[mock] response"},
		Model:   "mock-model",
	}, nil
}
