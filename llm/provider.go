package llm

import (
	"context"

	"github.com/ocobra/meeting-minutes-sub000/provider"
)

// Provider is the interface LLM backends implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Execute sends a completion request and returns the full response.
	Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
