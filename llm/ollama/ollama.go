// Package ollama is the llm dialect for a local Ollama server.
//
// Importing the package registers the "ollama" dialect.
package ollama

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/llm"
)

const (
	// DialectName is the registered name for the Ollama dialect.
	DialectName = "ollama"

	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
	defaultTimeout     = 120 * time.Second
)

func init() {
	llm.RegisterDialect(DialectName, Dialect{})
}

// New creates an adapter for an Ollama server, filling in local defaults.
func New(cfg llm.Config) (*llm.Adapter, error) {
	cfg.Dialect = DialectName
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return llm.NewWithDialect(Dialect{}, cfg)
}

// Dialect maps requests onto Ollama's /api/chat.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

// Name implements llm.Dialect.
func (Dialect) Name() string { return DialectName }

// ChatPath implements llm.Dialect.
func (Dialect) ChatPath() string { return "/api/chat" }

// HealthPath implements llm.Dialect.
func (Dialect) HealthPath() string { return "/api/tags" }

// BuildRequest implements llm.Dialect.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	msgs := req.AllMessages()
	out := chatRequest{
		Model:    req.Model,
		Messages: make([]chatMessage, 0, len(msgs)),
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, chatMessage(m))
	}
	if req.JSON {
		out.Format = "json"
	}
	return out, nil
}

// ParseResponse implements llm.Dialect.
func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	return &llm.CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// --- internal Ollama API types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}
