// Package gallery maintains the public list of recent generations.
//
// The whole list lives under one KV key and every operation rewrites it.
// There is no compare-and-swap: concurrent writers race and the last write
// wins, which is acceptable at the expected write rate.
package gallery

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/model"
	"github.com/darkodi/sitebuilder/internal/store"
)

// IndexKey is where the serialized entries are stored
const IndexKey = "gallery:index"

// SiteChecker reports whether a site record is still live
type SiteChecker interface {
	SiteExists(ctx context.Context, id string) (bool, error)
}

// Options bounds the index
type Options struct {
	MaxEntries  int           // entries kept after each write
	VerifyLimit int           // newest entries checked and returned by List
	TTL         time.Duration // entry lifetime, also the index key TTL
}

// Index is the bounded, newest-first gallery
type Index struct {
	kv    store.KV
	sites SiteChecker
	opts  Options
	now   func() time.Time
	log   *logger.Logger
}

func New(kv store.KV, sites SiteChecker, opts Options, log *logger.Logger) *Index {
	return &Index{
		kv:    kv,
		sites: sites,
		opts:  opts,
		now:   time.Now,
		log:   log.Component("gallery"),
	}
}

// WithClock overrides the time source, for tests
func (g *Index) WithClock(now func() time.Time) *Index {
	g.now = now
	return g
}

// Add prepends entry, prunes expired entries and truncates to MaxEntries
func (g *Index) Add(ctx context.Context, entry model.GalleryEntry) error {
	entries, err := g.load(ctx)
	if err != nil {
		return err
	}

	entries = append([]model.GalleryEntry{entry}, entries...)
	entries = g.live(entries)
	slices.SortStableFunc(entries, func(a, b model.GalleryEntry) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
	if len(entries) > g.opts.MaxEntries {
		entries = entries[:g.opts.MaxEntries]
	}

	return g.save(ctx, entries)
}

// List returns unexpired entries among the newest VerifyLimit whose site
// still exists. Existence checks run in parallel; any failure fails the call.
func (g *Index) List(ctx context.Context) ([]model.GalleryEntry, error) {
	entries, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	entries = g.live(entries)
	if len(entries) > g.opts.VerifyLimit {
		entries = entries[:g.opts.VerifyLimit]
	}

	exists := make([]bool, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, e := range entries {
		eg.Go(func() error {
			ok, err := g.sites.SiteExists(egCtx, e.SiteID)
			if err != nil {
				return fmt.Errorf("checking site %s: %w", e.SiteID, err)
			}
			exists[i] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.GalleryEntry, 0, len(entries))
	for i, e := range entries {
		if exists[i] {
			out = append(out, e)
		}
	}
	return out, nil
}

// AttachScreenshot sets the screenshot URL on the entry for siteID. A
// missing index or entry is not an error.
func (g *Index) AttachScreenshot(ctx context.Context, siteID, url string) error {
	entries, err := g.load(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		g.log.Info("no index found when attaching screenshot", "site_id", siteID)
		return nil
	}

	for i := range entries {
		if entries[i].SiteID == siteID {
			entries[i].ScreenshotURL = url
		}
	}

	if err := g.save(ctx, entries); err != nil {
		return err
	}
	g.log.Info("attached screenshot", "site_id", siteID)
	return nil
}

func (g *Index) load(ctx context.Context) ([]model.GalleryEntry, error) {
	raw, err := g.kv.Get(ctx, IndexKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading gallery index: %w", err)
	}

	var entries []model.GalleryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding gallery index: %w", err)
	}
	return entries, nil
}

func (g *Index) save(ctx context.Context, entries []model.GalleryEntry) error {
	if entries == nil {
		entries = []model.GalleryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := g.kv.Set(ctx, IndexKey, string(data), g.opts.TTL); err != nil {
		return fmt.Errorf("writing gallery index: %w", err)
	}
	return nil
}

// live drops entries created at or before now-TTL
func (g *Index) live(entries []model.GalleryEntry) []model.GalleryEntry {
	cutoff := g.now().Add(-g.opts.TTL).UnixMilli()
	return slices.DeleteFunc(entries, func(e model.GalleryEntry) bool {
		return e.CreatedAt <= cutoff
	})
}
