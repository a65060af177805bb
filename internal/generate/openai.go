// OpenAI-compatible provider using the go-openai library.
//
// Information Hiding:
// - Base URL override for compatible vendors (Cerebras, Groq, local gateways)
// - Detection of error objects returned with a 2xx status
// - Mapping of go-openai error types to *UpstreamError

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for any chat completions endpoint
type OpenAIProvider struct {
	client *openai.Client
}

// DefaultOpenAIBaseURL is used when no base URL is configured
const DefaultOpenAIBaseURL = "https://api.cerebras.ai/v1"

// NewOpenAIProvider creates a provider. An empty baseURL targets
// DefaultOpenAIBaseURL.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	return NewOpenAIProviderWithHTTPClient(apiKey, baseURL, http.DefaultClient)
}

// NewOpenAIProviderWithHTTPClient lets callers supply the transport
func NewOpenAIProviderWithHTTPClient(apiKey, baseURL string, hc openai.HTTPDoer) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = DefaultOpenAIBaseURL
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = errorBodyDoer{next: hc}

	return &OpenAIProvider{client: openai.NewClientWithConfig(config)}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends a single chat completion request
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    convertToOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", toUpstreamError(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// toUpstreamError normalizes go-openai failures. Transport errors and
// context cancellation pass through unchanged.
func toUpstreamError(err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	return fmt.Errorf("completion request failed: %w", err)
}

// errorBodyDoer turns a 2xx response whose body carries an "error" object
// into an *UpstreamError. Some compatible vendors report failures that way.
type errorBodyDoer struct {
	next openai.HTTPDoer
}

func (d errorBodyDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading completion body: %w", err)
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &probe) == nil && len(probe.Error) > 0 && string(probe.Error) != "null" {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: errorMessage(probe.Error)}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// errorMessage pulls a readable message out of an error object or string
func errorMessage(raw json.RawMessage) string {
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return string(raw)
}
