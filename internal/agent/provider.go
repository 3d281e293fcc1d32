package agent

import (
	"context"
	"fmt"
)

// Provider is a hosted chat-completion API with tool calling.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
	Name() string
}

// NewProvider returns the provider registered under name.
func NewProvider(name, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key for provider %q", name)
	}

	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
