// Package openai is the llm dialect for OpenAI-compatible chat completion
// APIs. It is the external name-extraction backend.
//
// Importing the package registers the "openai" dialect.
package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/llm"
)

const (
	// DialectName is the registered name for the OpenAI dialect.
	DialectName = "openai"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// New creates an adapter for an OpenAI-compatible endpoint.
func New(cfg llm.Config) (*llm.Adapter, error) {
	cfg.Dialect = DialectName
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return llm.NewWithDialect(Dialect{}, cfg)
}

// Dialect maps requests onto /v1/chat/completions.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

// Name implements llm.Dialect.
func (Dialect) Name() string { return DialectName }

// ChatPath implements llm.Dialect.
func (Dialect) ChatPath() string { return "/v1/chat/completions" }

// HealthPath implements llm.Dialect.
func (Dialect) HealthPath() string { return "/v1/models" }

// BuildRequest implements llm.Dialect.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	msgs := req.AllMessages()
	out := chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(msgs)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, chatMessage(m))
	}
	if req.JSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out, nil
}

// ParseResponse implements llm.Dialect.
func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
