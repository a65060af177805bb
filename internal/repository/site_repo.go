package repository

import (
	"context"
	"errors"
	"time"

	"github.com/darkodi/sitebuilder/internal/store"
)

var ErrNotFound = errors.New("site not found")

const promptKeyPrefix = "prompt:"

// SiteRepository stores generated documents and the briefs behind them.
// Both records expire; the prompt outlives its site so an expired page can
// still offer to regenerate it.
type SiteRepository struct {
	kv        store.KV
	siteTTL   time.Duration
	promptTTL time.Duration
}

func NewSiteRepository(kv store.KV, siteTTL, promptTTL time.Duration) *SiteRepository {
	return &SiteRepository{kv: kv, siteTTL: siteTTL, promptTTL: promptTTL}
}

// SiteTTL is how long a stored document stays servable
func (r *SiteRepository) SiteTTL() time.Duration {
	return r.siteTTL
}

func (r *SiteRepository) SaveSite(ctx context.Context, id, html string) error {
	return r.kv.Set(ctx, id, html, r.siteTTL)
}

func (r *SiteRepository) SavePrompt(ctx context.Context, id, prompt string) error {
	return r.kv.Set(ctx, promptKeyPrefix+id, prompt, r.promptTTL)
}

func (r *SiteRepository) GetSite(ctx context.Context, id string) (string, error) {
	html, err := r.kv.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFound
	}
	return html, err
}

func (r *SiteRepository) GetPrompt(ctx context.Context, id string) (string, error) {
	prompt, err := r.kv.Get(ctx, promptKeyPrefix+id)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFound
	}
	return prompt, err
}

func (r *SiteRepository) SiteExists(ctx context.Context, id string) (bool, error) {
	return r.kv.Exists(ctx, id)
}
