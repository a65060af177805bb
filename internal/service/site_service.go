package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/sitebuilder/internal/encoder"
	"github.com/darkodi/sitebuilder/internal/gallery"
	"github.com/darkodi/sitebuilder/internal/generate"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/model"
	"github.com/darkodi/sitebuilder/internal/repository"
	"github.com/darkodi/sitebuilder/internal/sanitize"
	"github.com/darkodi/sitebuilder/internal/screenshot"
	"github.com/darkodi/sitebuilder/internal/store"
)

// Custom errors for the service layer
var (
	ErrEmptyGeneration = errors.New("empty response from AI")
	ErrSiteNotFound    = errors.New("site not found")
	ErrNoBlobStore     = errors.New("screenshot storage unavailable")
)

// galleryPromptLength is how much of the brief a gallery entry keeps
const galleryPromptLength = 150

// Generator produces raw completions for builds and surprise ideas
type Generator interface {
	Build(ctx context.Context, prompt string) (string, error)
	Surprise(ctx context.Context) (string, error)
}

// Scheduler runs work after the request that started it has returned
type Scheduler interface {
	Go(name string, fn func(ctx context.Context)) bool
}

// ScreenshotTaker captures and stores a preview of a stored site
type ScreenshotTaker interface {
	Run(ctx context.Context, siteID, origin string)
}

// ProgressFunc receives build progress. It may be nil.
type ProgressFunc func(model.ProgressEvent)

// SiteService handles business logic for building and serving sites
type SiteService struct {
	generator  Generator
	repo       *repository.SiteRepository
	gallery    *gallery.Index
	blob       store.Blob // nil when screenshots are disabled
	blobPrefix string
	screenshot ScreenshotTaker
	scheduler  Scheduler
	timeout    time.Duration
	now        func() time.Time
	log        *logger.Logger
}

// Deps groups the collaborators of SiteService
type Deps struct {
	Generator  Generator
	Repo       *repository.SiteRepository
	Gallery    *gallery.Index
	Blob       store.Blob
	BlobPrefix string // screenshot key prefix, e.g. "screenshots/"
	Screenshot ScreenshotTaker
	Scheduler  Scheduler
	Timeout    time.Duration // generation timeout; zero means none
	Log        *logger.Logger
}

// NewSiteService creates a new service instance
func NewSiteService(d Deps) *SiteService {
	return &SiteService{
		generator:  d.Generator,
		repo:       d.Repo,
		gallery:    d.Gallery,
		blob:       d.Blob,
		blobPrefix: d.BlobPrefix,
		screenshot: d.Screenshot,
		scheduler:  d.Scheduler,
		timeout:    d.Timeout,
		now:        time.Now,
		log:        d.Log.Component("build"),
	}
}

// Build generates, cleans and stores a site for an already-validated
// prompt. A generation failure is returned as-is; a storage failure after
// generation returns the document without a share link. origin is the
// public origin the screenshot service should render from.
func (s *SiteService) Build(ctx context.Context, prompt, origin string, progress ProgressFunc) (*model.BuildResponse, error) {
	emit := func(ev model.ProgressEvent) {
		if progress != nil {
			progress(ev)
		}
	}

	// ============ STEP 1: Generate ============
	emit(model.ProgressEvent{Stage: model.StageStarted, Message: "Starting generation...", EstimatedTime: 15})
	emit(model.ProgressEvent{Stage: model.StageGenerating, Message: "AI is generating your site...", Progress: 20})

	s.log.Info("starting generation", "prompt_preview", truncate(prompt, 100))
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// ============ STEP 2: Parse and clean ============
	emit(model.ProgressEvent{Stage: model.StageProcessing, Message: "Processing generated content...", Progress: 70})

	html := generate.ParseHTML(raw)
	if html == "" {
		s.log.Error("empty response from AI after parsing")
		return nil, ErrEmptyGeneration
	}
	html = sanitize.Normalize(html)
	s.log.Info("generated document", "length", len(html))

	// ============ STEP 3: Persist ============
	emit(model.ProgressEvent{Stage: model.StageStoring, Message: "Storing your site...", Progress: 85})

	siteID := encoder.NewSiteID()
	if err := s.persist(ctx, siteID, prompt, html); err != nil {
		s.log.Error("storage failed, returning document without share link", "site_id", siteID, "error", err.Error())
		emit(model.ProgressEvent{Stage: model.StageComplete, Message: "Site ready!", Progress: 100})
		return &model.BuildResponse{HTML: html}, nil
	}

	// ============ STEP 4: Screenshot, off the request path ============
	s.scheduleScreenshot(siteID, origin)

	emit(model.ProgressEvent{Stage: model.StageComplete, Message: "Site ready!", Progress: 100})
	return &model.BuildResponse{
		HTML:     html,
		ShareURL: "/site/" + siteID,
		SiteID:   siteID,
	}, nil
}

// Surprise returns one generated website idea. An empty completion is
// returned as an empty idea, not an error.
func (s *SiteService) Surprise(ctx context.Context) (string, error) {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	return s.generator.Surprise(ctx)
}

// Gallery lists recent generations. Failures yield an empty list.
func (s *SiteService) Gallery(ctx context.Context) []model.GalleryEntry {
	entries, err := s.gallery.List(ctx)
	if err != nil {
		s.log.Warn("gallery listing failed", "error", err.Error())
		return []model.GalleryEntry{}
	}
	if entries == nil {
		entries = []model.GalleryEntry{}
	}
	return entries
}

// Site returns a stored document
func (s *SiteService) Site(ctx context.Context, id string) (string, error) {
	html, err := s.repo.GetSite(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrSiteNotFound
	}
	return html, err
}

// Prompt returns the brief a site was built from, or "" when none is on
// record.
func (s *SiteService) Prompt(ctx context.Context, id string) string {
	prompt, err := s.repo.GetPrompt(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("prompt lookup failed", "site_id", id, "error", err.Error())
		}
		return ""
	}
	return prompt
}

// SiteTTL is how long built sites stay available
func (s *SiteService) SiteTTL() time.Duration {
	return s.repo.SiteTTL()
}

// Screenshot returns a stored screenshot by file name (e.g. "abcd1234.png")
func (s *SiteService) Screenshot(ctx context.Context, name string) (*store.Object, error) {
	if s.blob == nil {
		return nil, ErrNoBlobStore
	}
	return s.blob.Get(ctx, s.blobPrefix+name)
}

// ScreenshotStatus reports whether siteID's screenshot has been stored,
// without transferring it.
func (s *SiteService) ScreenshotStatus(ctx context.Context, siteID string) model.ScreenshotStatus {
	if s.blob == nil {
		s.log.Info("screenshot storage not available")
		return model.ScreenshotStatus{Ready: false, Reason: "storage_unavailable"}
	}

	ok, err := s.blob.Head(ctx, s.blobPrefix+siteID+".png")
	if err != nil {
		s.log.Error("error checking screenshot status", "site_id", siteID, "error", err.Error())
		return model.ScreenshotStatus{Ready: false, Error: err.Error()}
	}
	if !ok {
		return model.ScreenshotStatus{Ready: false}
	}
	return model.ScreenshotStatus{Ready: true, ScreenshotURL: screenshot.URL(siteID)}
}

// ============ HELPERS ============

// generate runs the completion detached from the caller's cancellation but
// bounded by the configured timeout.
func (s *SiteService) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := s.detached(ctx)
	defer cancel()
	return s.generator.Build(ctx, prompt)
}

func (s *SiteService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// persist writes the site, then its prompt, then the gallery entry. Only
// site and prompt failures count; the gallery is best effort.
func (s *SiteService) persist(ctx context.Context, siteID, prompt, html string) error {
	if err := s.repo.SaveSite(ctx, siteID, html); err != nil {
		return fmt.Errorf("saving site: %w", err)
	}
	if err := s.repo.SavePrompt(ctx, siteID, prompt); err != nil {
		return fmt.Errorf("saving prompt: %w", err)
	}

	entry := model.GalleryEntry{
		SiteID:    siteID,
		Prompt:    truncate(prompt, galleryPromptLength),
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.gallery.Add(ctx, entry); err != nil {
		s.log.Warn("gallery update failed", "site_id", siteID, "error", err.Error())
	}
	return nil
}

func (s *SiteService) scheduleScreenshot(siteID, origin string) {
	if s.screenshot == nil || s.scheduler == nil {
		return
	}
	s.scheduler.Go("screenshot", func(ctx context.Context) {
		s.screenshot.Run(ctx, siteID, origin)
	})
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
