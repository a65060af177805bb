// Package generate wraps the external completion endpoint behind a uniform
// contract: one chat request in, the first completion's text out.
//
// Providers hide:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error shapes, normalized to *UpstreamError
//
// No provider retries. A failed call surfaces immediately.
package generate

import (
	"context"
	"fmt"
	"strings"
)

// Roles used in Message
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Provider sends one completion request. It returns "" without error when
// the response carries no completion text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderType represents supported completion providers
type ProviderType int

const (
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint
	// (Cerebras by default).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic
	// ProviderGemini is the Google Gemini API.
	ProviderGemini
)

func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// ParseProviderType converts a config string into a ProviderType
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "cerebras", "":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %q", s)
	}
}

// ProviderConfig holds what every provider needs to connect
type ProviderConfig struct {
	Type    ProviderType
	APIKey  string
	BaseURL string // only honored by ProviderOpenAI and ProviderAnthropic
}

// NewProvider builds the provider selected by cfg.Type
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Type)
	}
}

// splitSystem separates system turns from the conversation, for APIs that
// take the system prompt out of band.
func splitSystem(messages []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}
