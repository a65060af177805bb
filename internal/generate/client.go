package generate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
)

// Defaults applied when a Request leaves sampling unset
const (
	DefaultTemperature float32 = 1
	DefaultTopP        float32 = 0.95
)

// Options configures the two generation calls the service makes
type Options struct {
	APIKey              string
	BuildModel          string
	BuildMaxTokens      int
	SurpriseModel       string
	SurpriseMaxTokens   int
	SurpriseTemperature float32
}

// DefaultOptions returns the production models and limits
func DefaultOptions() Options {
	return Options{
		BuildModel:          "zai-glm-4.7",
		BuildMaxTokens:      16000,
		SurpriseModel:       "gpt-oss-120b",
		SurpriseMaxTokens:   400,
		SurpriseTemperature: 1.2,
	}
}

// Client issues build and surprise completions through a Provider
type Client struct {
	provider Provider
	opts     Options
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewClient creates a client. m may be nil.
func NewClient(p Provider, opts Options, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		provider: p,
		opts:     opts,
		log:      log.Component("generate"),
		metrics:  m,
	}
}

// ErrNoAPIKey is wrapped in the *UpstreamError returned without a key
var ErrNoAPIKey = errors.New("API key not configured")

// Complete sends req with defaults applied. It fails without a network call
// when no API key is configured.
func (c *Client) Complete(ctx context.Context, kind string, req Request) (string, error) {
	if c.opts.APIKey == "" {
		return "", &UpstreamError{Message: ErrNoAPIKey.Error()}
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.TopP == 0 {
		req.TopP = DefaultTopP
	}

	c.log.Debug("starting completion",
		"provider", c.provider.Name(),
		"kind", kind,
		"model", req.Model,
		"max_tokens", req.MaxTokens,
	)

	start := time.Now()
	text, err := c.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
		c.log.Error("completion failed", "kind", kind, "model", req.Model, "error", err.Error())
	} else {
		c.log.Debug("completion received", "kind", kind, "length", len(text), "duration", elapsed)
	}
	if c.metrics != nil {
		c.metrics.Generations.WithLabelValues(kind, outcome).Inc()
		c.metrics.GenerationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
	return text, err
}

// Build asks for a complete HTML document for the brief and returns the raw
// completion text.
func (c *Client) Build(ctx context.Context, prompt string) (string, error) {
	return c.Complete(ctx, metrics.KindBuild, Request{
		Model: c.opts.BuildModel,
		Messages: []Message{
			{Role: RoleSystem, Content: BuildSystemPrompt},
			{Role: RoleUser, Content: "Brief: " + prompt + "\n\nProduce the final HTML document now."},
		},
		MaxTokens: c.opts.BuildMaxTokens,
	})
}

// Surprise asks for one short website idea, trimmed
func (c *Client) Surprise(ctx context.Context) (string, error) {
	idea, err := c.Complete(ctx, metrics.KindSurprise, Request{
		Model: c.opts.SurpriseModel,
		Messages: []Message{
			{Role: RoleSystem, Content: SurpriseSystemPrompt},
			{Role: RoleUser, Content: "Generate a fresh, creative website idea for me to build right now."},
		},
		MaxTokens:   c.opts.SurpriseMaxTokens,
		Temperature: c.opts.SurpriseTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(idea), nil
}
