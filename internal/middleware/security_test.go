package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy_Allowed(t *testing.T) {
	p := NewOriginPolicy([]string{"https://adamcbloom.com", "https://www.adamcbloom.com/"})

	tests := []struct {
		origin   string
		expected bool
	}{
		{"", true},
		{"https://adamcbloom.com", true},
		{"https://www.adamcbloom.com", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1", true},
		{"https://localhost.evil.com", false},
		{"https://evil.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Allowed(tt.origin))
		})
	}
}

func TestOriginPolicy_CORS(t *testing.T) {
	p := NewOriginPolicy([]string{"https://adamcbloom.com"})
	reached := false
	h := SecurityHeaders(p.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("disallowed api call", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/api/build", nil)
		req.Header.Set("Origin", "https://evil.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Forbidden", rec.Body.String())
		assert.False(t, reached)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("disallowed origin may still view sites", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/site/abc", nil)
		req.Header.Set("Origin", "https://evil.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, reached)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed api call", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
		req.Header.Set("Origin", "https://adamcbloom.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://adamcbloom.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		assert.Equal(t, "max-age=31536000; includeSubDomains; preload", rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("preflight", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodOptions, "/api/build", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, reached)
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
