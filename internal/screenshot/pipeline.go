// Package screenshot captures a preview image of a freshly built site and
// back-fills it into the gallery.
//
// The pipeline is best effort. Every failure is logged and absorbed; a
// missing screenshot is an acceptable end state.
package screenshot

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/store"
)

// ContentType of every stored screenshot
const ContentType = "image/png"

// SiteChecker reports whether a site record is still live
type SiteChecker interface {
	SiteExists(ctx context.Context, id string) (bool, error)
}

// GalleryUpdater back-fills the screenshot URL on a gallery entry
type GalleryUpdater interface {
	AttachScreenshot(ctx context.Context, siteID, url string) error
}

// Options tunes the pipeline
type Options struct {
	Enabled        bool          // false when render credentials are missing
	Prefix         string        // blob key prefix, e.g. "screenshots/"
	Delay          time.Duration // wait before the first attempt
	MaxAttempts    int
	InitialBackoff time.Duration // doubled after every failed attempt
}

// Pipeline runs capture, store and gallery back-fill for one site at a time
type Pipeline struct {
	capturer Capturer
	blob     store.Blob
	sites    SiteChecker
	gallery  GalleryUpdater
	opts     Options
	timer    backoff.Timer
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewPipeline(c Capturer, blob store.Blob, sites SiteChecker, gallery GalleryUpdater, opts Options, log *logger.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		capturer: c,
		blob:     blob,
		sites:    sites,
		gallery:  gallery,
		opts:     opts,
		log:      log.Component("screenshot"),
		metrics:  m,
	}
}

// WithTimer replaces the timer used between retries, for tests
func (p *Pipeline) WithTimer(t backoff.Timer) *Pipeline {
	p.timer = t
	return p
}

// Key is the blob key for siteID's screenshot
func (p *Pipeline) Key(siteID string) string {
	return p.opts.Prefix + siteID + ".png"
}

// URL is the public path serving siteID's screenshot
func URL(siteID string) string {
	return "/screenshot/" + siteID + ".png"
}

// Run captures siteID as served under origin. It returns once the
// screenshot is stored or every attempt has failed.
func (p *Pipeline) Run(ctx context.Context, siteID, origin string) {
	log := p.log.With("site_id", siteID)

	if isLocalOrigin(origin) {
		log.Info("skipping, local origin is not reachable by the render service", "origin", origin)
		p.outcome(metrics.OutcomeSkipped)
		return
	}
	if !p.opts.Enabled || p.blob == nil {
		log.Warn("skipping, render credentials or blob storage not configured")
		p.outcome(metrics.OutcomeSkipped)
		return
	}

	if p.opts.Delay > 0 {
		select {
		case <-time.After(p.opts.Delay):
		case <-ctx.Done():
			return
		}
	}

	exists, err := p.sites.SiteExists(ctx, siteID)
	if err != nil || !exists {
		log.Error("site not found, skipping screenshot", "error", errString(err))
		p.outcome(metrics.OutcomeSkipped)
		return
	}

	image, err := p.captureWithRetry(ctx, log, origin+"/site/"+siteID)
	if err != nil {
		log.Error("failed to capture screenshot", "error", err.Error())
		p.outcome(metrics.OutcomeFailure)
		return
	}

	log.Info("storing screenshot", "size", len(image))
	if err := p.blob.Put(ctx, p.Key(siteID), image, ContentType); err != nil {
		log.Error("failed to store screenshot", "error", err.Error())
		p.outcome(metrics.OutcomeFailure)
		return
	}

	if err := p.gallery.AttachScreenshot(ctx, siteID, URL(siteID)); err != nil {
		log.Error("failed to update gallery screenshot", "error", err.Error())
	}
	p.outcome(metrics.OutcomeSuccess)
}

// captureWithRetry makes up to MaxAttempts calls, waiting InitialBackoff,
// then twice that, between them. A 4xx answer stops immediately.
func (p *Pipeline) captureWithRetry(ctx context.Context, log *logger.Logger, target string) ([]byte, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.opts.InitialBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(max(0, p.opts.MaxAttempts-1)))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	var image []byte
	operation := func() error {
		attempt++
		log.Info("capture attempt", "attempt", attempt, "max_attempts", p.opts.MaxAttempts, "url", target)

		data, err := p.capturer.Capture(ctx, target)
		if err == nil {
			p.attempt(metrics.OutcomeSuccess)
			image = data
			return nil
		}

		var re *RenderError
		if errors.As(err, &re) && !re.Retryable() {
			log.Error("non-retryable render error", "status", re.StatusCode)
			p.attempt(metrics.OutcomeFailure)
			return backoff.Permanent(err)
		}
		p.attempt(metrics.OutcomeRetry)
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("capture attempt failed, retrying", "attempt", attempt, "error", err.Error(), "retry_in", wait)
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, p.timer); err != nil {
		return nil, err
	}
	return image, nil
}

func (p *Pipeline) attempt(outcome string) {
	if p.metrics != nil {
		p.metrics.ScreenshotAttempts.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) outcome(outcome string) {
	if p.metrics != nil {
		p.metrics.Screenshots.WithLabelValues(outcome).Inc()
	}
}

// isLocalOrigin reports whether origin points at this machine
func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
