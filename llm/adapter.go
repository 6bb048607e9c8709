package llm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/ocobra/meeting-minutes-sub000/httpclient"
)

// ErrNoDialect is returned when an adapter is created without a dialect.
var ErrNoDialect = stderrors.New("llm: dialect is required")

// Adapter is a config-driven LLM client that works with any provider via
// the Dialect pattern, similar to how database/sql works with drivers.
//
// Transport failures, 429 and 5xx answers surface as transient backend
// errors; other non-2xx answers are permanent.
type Adapter struct {
	name      string
	client    *httpclient.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
}

var _ Provider = (*Adapter)(nil)

// New creates an LLM adapter from config using the global dialect registry.
// The config's Dialect field must match a registered dialect name.
func New(cfg Config) (*Adapter, error) {
	cfg.applyDefaults()

	dialect, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return newAdapter(dialect, cfg)
}

// NewWithDialect creates an LLM adapter with an explicit dialect instance.
func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	cfg.applyDefaults()
	if cfg.Name == "" {
		cfg.Name = dialect.Name() + "-llm"
	}
	return newAdapter(dialect, cfg)
}

func newAdapter(dialect Dialect, cfg Config) (*Adapter, error) {
	client, err := httpclient.New(httpclient.Config{
		Name:    cfg.Name,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: cfg.Headers,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &Adapter{
		name:      cfg.Name,
		client:    client,
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.name }

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// IsAvailable checks if the LLM provider is reachable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	path := a.dialect.HealthPath()
	if path == "" {
		path = "/"
	}
	return a.client.Probe(ctx, path, func(status int) bool {
		return status < http.StatusInternalServerError && status != http.StatusUnauthorized
	})
}

// Close releases idle connections.
func (a *Adapter) Close(context.Context) error {
	a.client.CloseIdleConnections()
	return nil
}

// Execute sends a completion request and returns the full response.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	a.applyDefaults(&req)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build request: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   a.dialect.ChatPath(),
		Body:   payload,
	})
	if err != nil {
		return CompletionResponse{}, err
	}
	result, err := a.dialect.ParseResponse(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse response: %w", err)
	}
	return *result, nil
}

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}
