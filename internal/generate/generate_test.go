package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
)

// completionServer answers chat completion calls with a canned status and body
// and records the last request it saw.
type completionServer struct {
	*httptest.Server
	calls atomic.Int32

	mu   sync.Mutex
	last map[string]any
}

func (cs *completionServer) lastRequest() map[string]any {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.last
}

func newCompletionServer(t *testing.T, status int, body string) *completionServer {
	t.Helper()
	cs := &completionServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		cs.mu.Lock()
		cs.last = req
		cs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestClient(t *testing.T, url string) (*Client, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	opts := DefaultOptions()
	opts.APIKey = "test-key"
	return NewClient(NewOpenAIProvider("test-key", url), opts, logger.Nop(), m), m
}

func TestClient_Build(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK,
		`{"choices":[{"index":0,"message":{"role":"assistant","content":"<!DOCTYPE html><html></html>"}}]}`)
	client, m := newTestClient(t, srv.URL)

	text, err := client.Build(context.Background(), "a bakery")
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", text)

	last := srv.lastRequest()
	assert.Equal(t, "zai-glm-4.7", last["model"])
	assert.EqualValues(t, 16000, last["max_tokens"])
	assert.InDelta(t, 1.0, last["temperature"], 0.001)
	assert.InDelta(t, 0.95, last["top_p"], 0.001)

	msgs := last["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, BuildSystemPrompt, msgs[0].(map[string]any)["content"])
	assert.Equal(t, "Brief: a bakery\n\nProduce the final HTML document now.", msgs[1].(map[string]any)["content"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(metrics.KindBuild, metrics.OutcomeSuccess)))
}

func TestClient_Surprise(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK,
		`{"choices":[{"index":0,"message":{"role":"assistant","content":"  A museum of lost socks.\n"}}]}`)
	client, _ := newTestClient(t, srv.URL)

	idea, err := client.Surprise(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A museum of lost socks.", idea)
	last := srv.lastRequest()
	assert.Equal(t, "gpt-oss-120b", last["model"])
	assert.EqualValues(t, 400, last["max_tokens"])
	assert.InDelta(t, 1.2, last["temperature"], 0.001)
}

func TestClient_EmptyChoices(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK, `{"choices":[]}`)
	client, _ := newTestClient(t, srv.URL)

	text, err := client.Build(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClient_MissingAPIKey(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK, `{}`)
	client := NewClient(NewOpenAIProvider("", srv.URL), DefaultOptions(), logger.Nop(), nil)

	_, err := client.Build(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
	assert.Zero(t, srv.calls.Load())
}

func TestClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantClass  string
	}{
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Too many requests","type":"rate_limit"}}`,
			wantStatus: 429,
			wantClass:  MessageBusy,
		},
		{
			name:       "service unavailable",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":{"message":"overloaded","type":"server_error"}}`,
			wantStatus: 503,
			wantClass:  MessageUnavailable,
		},
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			body:       `{"error":{"message":"model not found","type":"invalid_request_error"}}`,
			wantStatus: 400,
			wantClass:  MessageGeneric,
		},
		{
			name:       "error object with success status",
			status:     http.StatusOK,
			body:       `{"error":{"message":"quota exhausted","type":"quota"}}`,
			wantStatus: 200,
			wantClass:  MessageGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCompletionServer(t, tt.status, tt.body)
			client, m := newTestClient(t, srv.URL)

			_, err := client.Build(context.Background(), "x")
			require.Error(t, err)

			var ue *UpstreamError
			require.True(t, errors.As(err, &ue), "got %T: %v", err, err)
			assert.Equal(t, tt.wantStatus, ue.StatusCode)
			assert.Equal(t, tt.wantClass, Classify(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(metrics.KindBuild, metrics.OutcomeFailure)))
		})
	}
}

func TestAnthropicProvider(t *testing.T) {
	var (
		mu  sync.Mutex
		got map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		mu.Lock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude","content":[{"type":"text","text":"<html></html>"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL)
	text, err := p.Complete(context.Background(), Request{
		Model: "claude",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
		},
		MaxTokens:   100,
		Temperature: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", text)

	mu.Lock()
	defer mu.Unlock()
	system := got["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])
	assert.Len(t, got["messages"].([]any), 1)
}

func TestAnthropicProvider_StatusError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL)
	_, err := p.Complete(context.Background(), Request{
		Model:     "claude",
		Messages:  []Message{{Role: RoleUser, Content: "hi"}},
		MaxTokens: 10,
	})

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue), "got %T: %v", err, err)
	assert.Equal(t, 503, ue.StatusCode)
	assert.Equal(t, MessageUnavailable, Classify(err))
	assert.EqualValues(t, 1, calls.Load(), "provider must not retry")
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "gemini"} {
		typ, err := ParseProviderType(name)
		require.NoError(t, err)

		p, err := NewProvider(ProviderConfig{Type: typ, APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := ParseProviderType("mistral")
	assert.Error(t, err)
}
