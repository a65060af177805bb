package generate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"status 429", &UpstreamError{StatusCode: 429, Message: "slow down"}, MessageBusy},
		{"status 500", &UpstreamError{StatusCode: 500, Message: "boom"}, MessageUnavailable},
		{"status 502", &UpstreamError{StatusCode: 502, Message: "bad gateway"}, MessageUnavailable},
		{"status 401", &UpstreamError{StatusCode: 401, Message: "invalid key"}, MessageGeneric},
		{"wrapped status", fmt.Errorf("build: %w", &UpstreamError{StatusCode: 429}), MessageBusy},
		{"rate limit text", errors.New("Rate limit reached for model"), MessageBusy},
		{"429 in text", errors.New("Error 429, RESOURCE_EXHAUSTED"), MessageBusy},
		{"503 in text", errors.New("Error 503, UNAVAILABLE"), MessageUnavailable},
		{"busy text", errors.New("server is busy"), MessageUnavailable},
		{"overloaded text", errors.New("model Overloaded"), MessageUnavailable},
		{"generate is not rate", errors.New("generate content failed: bad schema"), MessageGeneric},
		{"no key", &UpstreamError{Message: "API key not configured"}, MessageGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestUpstreamError_Error(t *testing.T) {
	assert.Equal(t, "upstream error 503: down", (&UpstreamError{StatusCode: 503, Message: "down"}).Error())
	assert.Equal(t, "API key not configured", (&UpstreamError{Message: "API key not configured"}).Error())
}
