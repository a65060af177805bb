package generate

import (
	"errors"
	"fmt"
	"strings"
)

// UpstreamError is returned when the completion endpoint answers with a
// non-2xx status or with an error object in the body.
type UpstreamError struct {
	StatusCode int // 0 when the status is unknown
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Message)
}

// User-facing messages produced by Classify
const (
	MessageBusy        = "The builder is busy. Please try again in a moment."
	MessageUnavailable = "The AI service is temporarily unavailable. Please try again shortly."
	MessageGeneric     = "AI service error"
)

// Classify maps a generation failure to a message safe to show end users
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.StatusCode == 429:
			return MessageBusy
		case ue.StatusCode >= 500:
			return MessageUnavailable
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "429") || containsAny(lower, "rate limit", "rate_limit", "ratelimit", "too many requests"):
		return MessageBusy
	case containsAny(msg, "502", "503") || containsAny(lower, "busy", "overloaded", "unavailable"):
		return MessageUnavailable
	default:
		return MessageGeneric
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
