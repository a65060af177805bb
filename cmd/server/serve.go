package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darkodi/sitebuilder/internal/background"
	"github.com/darkodi/sitebuilder/internal/config"
	"github.com/darkodi/sitebuilder/internal/gallery"
	"github.com/darkodi/sitebuilder/internal/handler"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/middleware"
	"github.com/darkodi/sitebuilder/internal/repository"
	"github.com/darkodi/sitebuilder/internal/screenshot"
	"github.com/darkodi/sitebuilder/internal/service"
)

func runServe(cmd *cobra.Command, _ []string) error {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %d\n", cfg.Server.Port)
		fmt.Printf("   Store: %s\n", cfg.Store.Driver)
		fmt.Printf("   Blob: %s\n", cfg.Blob.Driver)
		fmt.Printf("   Provider: %s\n", cfg.LLM.Provider)
	}

	// ============================================================
	// Initialize logger
	// ============================================================
	fmt.Println("📝 Initializing logger...")
	log := logger.New(cfg.Log)

	log.Info("starting sitebuilder",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// ============================================================
	// INITIALIZE STORAGE
	// ============================================================
	fmt.Println("🗄️  Connecting to storage...")
	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err.Error())
		return err
	}
	defer stores.Close(log)
	log.Info("storage ready", "store", cfg.Store.Driver, "blob", cfg.Blob.Driver)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	fmt.Println("⚙️  Initializing service...")
	client, err := newGenerateClient(cfg, log, m)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("no LLM API key configured; generation requests will fail")
	}

	repo := repository.NewSiteRepository(stores.kv, cfg.Site.TTL, cfg.PromptTTL())
	idx := gallery.New(stores.kv, repo, gallery.Options{
		MaxEntries:  cfg.Site.GalleryMax,
		VerifyLimit: cfg.Site.GalleryVerifyLimit,
		TTL:         cfg.Site.TTL,
	}, log)

	runner := background.NewRunner(log, m)

	shots := screenshot.NewPipeline(
		screenshot.NewRenderClient(cfg.Screenshot.APIBase, cfg.Screenshot.AccountID, cfg.Screenshot.APIToken),
		stores.blob, repo, idx,
		screenshot.Options{
			Enabled:        cfg.Screenshot.AccountID != "" && cfg.Screenshot.APIToken != "",
			Prefix:         cfg.Blob.Prefix,
			Delay:          cfg.Screenshot.Delay,
			MaxAttempts:    cfg.Screenshot.MaxAttempts,
			InitialBackoff: cfg.Screenshot.Backoff,
		},
		log, m,
	)

	svc := service.NewSiteService(service.Deps{
		Generator:  client,
		Repo:       repo,
		Gallery:    idx,
		Blob:       stores.blob,
		BlobPrefix: cfg.Blob.Prefix,
		Screenshot: shots,
		Scheduler:  runner,
		Timeout:    cfg.LLM.Timeout,
		Log:        log,
	})

	fmt.Println("🌐 Setting up HTTP handlers...")
	h := handler.NewSiteHandler(svc, cfg.App.PublicOrigin, log)

	routeOpts := handler.RouteOptions{
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		StaticDir:   cfg.App.StaticDir,
	}
	// Add rate limiter if enabled
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(stores.kv,
			middleware.RateLimiterConfig{
				MaxRequests:    cfg.RateLimit.MaxRequests,
				Window:         cfg.RateLimit.Window,
				KeyPrefix:      cfg.RateLimit.KeyPrefix,
				ClientIPHeader: cfg.RateLimit.ClientIPHeader,
			},
			log, m,
		)
		routeOpts.RateLimit = rateLimiter.Middleware()
		log.Info("rate limiter enabled",
			"max", cfg.RateLimit.MaxRequests,
			"window", cfg.RateLimit.Window,
		)
	}
	router := h.SetupRoutes(routeOpts)

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	origins := middleware.NewOriginPolicy(cfg.App.AllowedOrigins)
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
		middleware.SecurityHeaders,
		origins.CORS,
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST /api/build                  - Generate a site")
			fmt.Println("  POST /api/build-stream           - Generate with progress events")
			fmt.Println("  POST /api/surprise               - Suggest an idea")
			fmt.Println("  GET  /api/gallery                - Recent sites")
			fmt.Println("  GET  /api/screenshot-status/{id} - Screenshot readiness")
			fmt.Println("  GET  /site/{id}                  - View a site")
			fmt.Println("  GET  /screenshot/{id}.png        - View a screenshot")
			fmt.Println("  GET  /api/health                 - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("server error", "error", err.Error())
		runner.Shutdown(context.Background())
		return err

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			// force close if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		// Screenshots still in flight get the rest of the budget
		log.Info("draining background tasks", "in_flight", runner.InFlight())
		if err := runner.Shutdown(shutdownCtx); err != nil {
			log.Warn("background tasks cancelled", "error", err.Error())
		}

		log.Info("server stopped")
	}
	return nil
}
