// Google Gemini provider using google.golang.org/genai.
//
// Information Hiding:
// - Client creation deferred error, reported on first use
// - System instruction passed via config
// - Errors wrapped as text; Classify reads the status from the message

package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client  *genai.Client
	initErr error
}

// NewGeminiProvider creates a provider. If client initialization fails the
// error is returned on first use.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{initErr: fmt.Errorf("failed to initialize Gemini client: %w", err)}
	}
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete sends a single GenerateContent request
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.initErr != nil {
		return "", p.initErr
	}

	system, turns := splitSystem(req.Messages)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.TopP > 0 {
		config.TopP = genai.Ptr(req.TopP)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	return resp.Text(), nil
}
