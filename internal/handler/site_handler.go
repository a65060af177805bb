package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/darkodi/sitebuilder/internal/errors"
	"github.com/darkodi/sitebuilder/internal/generate"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/middleware"
	"github.com/darkodi/sitebuilder/internal/model"
	"github.com/darkodi/sitebuilder/internal/service"
	"github.com/darkodi/sitebuilder/internal/store"
	"github.com/darkodi/sitebuilder/internal/validator"
)

// maxBodyBytes bounds request bodies; a prompt is at most a few KB
const maxBodyBytes = 64 << 10

// SiteCSP is served with every generated site. Inline script and style are
// allowed; everything else is limited to an enumerated set of CDNs.
var SiteCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com https://unpkg.com https://ajax.googleapis.com https://code.jquery.com https://cdn.tailwindcss.com https://www.googletagmanager.com https://www.google-analytics.com",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com https://cdn.jsdelivr.net https://cdnjs.cloudflare.com https://unpkg.com https://ajax.googleapis.com https://cdn.tailwindcss.com",
	"font-src 'self' https://fonts.gstatic.com data:",
	"img-src 'self' data: blob: https://images.unsplash.com https://*.unsplash.com https://images.pexels.com https://*.pexels.com https://images.ctfassets.net https://i.imgur.com https://*.imgur.com https://lh3.googleusercontent.com https://*.googleusercontent.com https://upload.wikimedia.org https://*.wikimedia.org https://staticflickr.com https://*.staticflickr.com https://live.staticflickr.com https://*.giphy.com https://media.giphy.com",
	"connect-src 'self' https://www.google-analytics.com https://analytics.google.com https://region1.google-analytics.com https://stats.g.doubleclick.net https://cdn.jsdelivr.net https://cdnjs.cloudflare.com https://unpkg.com https://ajax.googleapis.com https://code.jquery.com",
	"media-src 'self' https://www.youtube.com https://*.youtube.com https://youtube-nocookie.com https://*.youtube-nocookie.com https://player.vimeo.com https://*.vimeo.com https://media.giphy.com",
	"frame-src 'self' https://www.youtube.com https://*.youtube.com https://youtube-nocookie.com https://*.youtube-nocookie.com https://player.vimeo.com https://*.vimeo.com",
	"frame-ancestors 'self'",
	"base-uri 'self'",
	"form-action 'self'",
}, "; ")

// SiteHandler handles HTTP requests for site operations
type SiteHandler struct {
	service      *service.SiteService
	validator    *validator.PromptValidator
	publicOrigin string
	log          *logger.Logger
}

// NewSiteHandler creates a new handler instance. publicOrigin, when set,
// is the externally reachable origin used for screenshots; otherwise it is
// derived from each request.
func NewSiteHandler(svc *service.SiteService, publicOrigin string, log *logger.Logger) *SiteHandler {
	return &SiteHandler{
		service:      svc,
		validator:    validator.NewPromptValidator(),
		publicOrigin: strings.TrimRight(publicOrigin, "/"),
		log:          log.Component("http"),
	}
}

// ============ HANDLERS ============

// HandleBuild generates and stores a site
// POST /api/build
func (h *SiteHandler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	prompt, appErr := h.decodePrompt(w, r)
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	resp, err := h.service.Build(r.Context(), prompt, h.origin(r), nil)
	if err != nil {
		h.buildError(r, err).WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleBuildStream generates and stores a site, streaming progress as
// server-sent events. The stream ends after one complete or error event.
// POST /api/build-stream
func (h *SiteHandler) HandleBuildStream(w http.ResponseWriter, r *http.Request) {
	prompt, appErr := h.decodePrompt(w, r)
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		apperrors.Internal("streaming unsupported").WriteJSON(w)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		// A departed client only loses the stream; the build carries on
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
		flusher.Flush()
	}

	resp, err := h.service.Build(r.Context(), prompt, h.origin(r), func(ev model.ProgressEvent) {
		send("progress", ev)
	})
	if err != nil {
		send("error", h.buildError(r, err))
		return
	}
	send("complete", resp)
}

// HandleSurprise returns one generated website idea
// POST /api/surprise
func (h *SiteHandler) HandleSurprise(w http.ResponseWriter, r *http.Request) {
	idea, err := h.service.Surprise(r.Context())
	if err != nil {
		h.log.Error("surprise generation failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		apperrors.SurpriseFailed().WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, model.SurpriseResponse{Idea: idea})
}

// HandleGallery lists recent generations
// GET /api/gallery
func (h *SiteHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, model.GalleryResponse{Sites: h.service.Gallery(r.Context())})
}

// HandleScreenshotStatus reports whether a site's screenshot is ready
// GET /api/screenshot-status/{id}
func (h *SiteHandler) HandleScreenshotStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if appErr := h.validator.ValidateSiteID(id); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, h.service.ScreenshotStatus(r.Context(), id))
}

// HandleSite serves a stored site, or an expiry page offering to rebuild it
// GET /site/{id}
func (h *SiteHandler) HandleSite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	valid := h.validator.ValidateSiteID(id) == nil

	var prompt string
	if valid {
		html, err := h.service.Site(r.Context(), id)
		if err == nil {
			hdr := w.Header()
			hdr.Set("Content-Type", "text/html; charset=utf-8")
			hdr.Set("Content-Security-Policy", SiteCSP)
			hdr.Set("X-Frame-Options", "SAMEORIGIN")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(html))
			return
		}
		if !errors.Is(err, service.ErrSiteNotFound) {
			h.log.Error("site lookup failed", "site_id", id, "error", err.Error())
		}
		prompt = h.service.Prompt(r.Context(), id)
	}

	var page bytes.Buffer
	if err := renderExpired(&page, prompt, h.service.SiteTTL()); err != nil {
		h.log.Error("rendering expired page failed", "error", err.Error())
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(page.Bytes())
}

// HandleScreenshot serves a stored screenshot image
// GET /screenshot/{key}
func (h *SiteHandler) HandleScreenshot(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if h.validator.ValidateScreenshotKey(key) != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	obj, err := h.service.Screenshot(r.Context(), key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, service.ErrNoBlobStore) {
			h.log.Error("screenshot lookup failed", "key", key, "error", err.Error())
		}
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=2592000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

// HandleHealth returns service health status
// GET /api/health
func (h *SiteHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ============ HELPERS ============

// decodePrompt reads {prompt} from the body and validates it
func (h *SiteHandler) decodePrompt(w http.ResponseWriter, r *http.Request) (string, *apperrors.AppError) {
	var req model.BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return "", apperrors.InvalidJSON("")
	}
	return h.validator.ValidatePrompt(req.Prompt)
}

// buildError maps a build failure to the response the caller sees
func (h *SiteHandler) buildError(r *http.Request, err error) *apperrors.AppError {
	h.log.Error("generation failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err.Error(),
	)
	if errors.Is(err, service.ErrEmptyGeneration) {
		return apperrors.EmptyGeneration()
	}
	return apperrors.Upstream(generate.Classify(err), err.Error())
}

// origin is the public origin the screenshot service should fetch from
func (h *SiteHandler) origin(r *http.Request) string {
	if h.publicOrigin != "" {
		return h.publicOrigin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ============ ROUTER SETUP ============

// RouteOptions configures SetupRoutes
type RouteOptions struct {
	RateLimit   middleware.Middleware // wraps build and surprise; may be nil
	Metrics     *metrics.Metrics      // may be nil
	MetricsPath string
	StaticDir   string // serves the UI on non-API paths when set
}

// SetupRoutes configures all HTTP routes
func (h *SiteHandler) SetupRoutes(opts RouteOptions) http.Handler {
	router := mux.NewRouter()

	if opts.Metrics != nil {
		router.Use(mux.MiddlewareFunc(middleware.Instrument(opts.Metrics)))
		if opts.MetricsPath != "" {
			router.Handle(opts.MetricsPath, opts.Metrics.Handler()).Methods(http.MethodGet)
		}
	}

	limited := func(fn http.HandlerFunc) http.Handler {
		if opts.RateLimit == nil {
			return fn
		}
		return opts.RateLimit(fn)
	}

	router.HandleFunc("/site/{id:[a-zA-Z0-9]+}", h.HandleSite).Methods(http.MethodGet)
	router.HandleFunc("/screenshot/{key:[a-zA-Z0-9\\-_.]+}", h.HandleScreenshot).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	api.HandleFunc("/gallery", h.HandleGallery).Methods(http.MethodGet)
	api.HandleFunc("/screenshot-status/{id:[a-zA-Z0-9]+}", h.HandleScreenshotStatus).Methods(http.MethodGet)
	api.Handle("/build", limited(h.HandleBuild)).Methods(http.MethodPost)
	api.Handle("/build-stream", limited(h.HandleBuildStream)).Methods(http.MethodPost)
	api.Handle("/surprise", limited(h.HandleSurprise)).Methods(http.MethodPost)

	var static http.Handler
	if opts.StaticDir != "" {
		static = http.FileServer(http.Dir(opts.StaticDir))
	}
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/"):
			apperrors.NotFound().WriteJSON(w)
		case static != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead):
			static.ServeHTTP(w, r)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = notFound

	return router
}
