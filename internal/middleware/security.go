package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

var localDevOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

// SecurityHeaders sets the headers every response carries
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=(), usb=()")
		h.Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// OriginPolicy decides which browser origins may call the API
type OriginPolicy struct {
	allowed map[string]bool
}

// NewOriginPolicy allows the listed origins plus any localhost origin
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]bool, len(origins))}
	for _, o := range origins {
		p.allowed[strings.TrimRight(o, "/")] = true
	}
	return p
}

// Allowed reports whether origin may make API calls. An absent origin
// (same-origin or non-browser caller) is allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	return localDevOrigin.MatchString(origin) || p.allowed[origin]
}

// CORS rejects disallowed cross-origin API calls and preflights with 403,
// answers preflights directly, and echoes allowed origins on API responses.
func (p *OriginPolicy) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		isAPI := strings.HasPrefix(r.URL.Path, "/api/")
		preflight := r.Method == http.MethodOptions

		if !p.Allowed(origin) && (isAPI || preflight) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Forbidden"))
			return
		}

		if isAPI || preflight {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			if origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
		}

		if preflight {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
