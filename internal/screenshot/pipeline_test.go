package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/store"
)

// fakeTimer fires immediately and records every requested wait
type fakeTimer struct {
	mu     sync.Mutex
	c      chan time.Time
	delays []time.Duration
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop()                  {}
func (t *fakeTimer) C() <-chan time.Time    { return t.c }
func (t *fakeTimer) waits() []time.Duration { t.mu.Lock(); defer t.mu.Unlock(); return t.delays }

type stubSites struct{ live bool }

func (s stubSites) SiteExists(context.Context, string) (bool, error) { return s.live, nil }

type recordingGallery struct {
	siteID, url string
}

func (g *recordingGallery) AttachScreenshot(_ context.Context, siteID, url string) error {
	g.siteID, g.url = siteID, url
	return nil
}

// renderServer answers with the given statuses in order, then 200 with a PNG
type renderServer struct {
	*httptest.Server
	calls    atomic.Int32
	statuses []int

	mu       sync.Mutex
	lastBody map[string]any
}

func (rs *renderServer) body() map[string]any {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastBody
}

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

func newRenderServer(t *testing.T, statuses ...int) *renderServer {
	t.Helper()
	rs := &renderServer{statuses: statuses}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(rs.calls.Add(1))
		assert.Equal(t, "/accounts/acct/browser-rendering/screenshot", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rs.mu.Lock()
		rs.lastBody = body
		rs.mu.Unlock()

		if n <= len(rs.statuses) {
			w.WriteHeader(rs.statuses[n-1])
			w.Write([]byte("render failed"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(fakePNG)
	}))
	t.Cleanup(rs.Close)
	return rs
}

type harness struct {
	pipeline *Pipeline
	blob     *store.MemoryBlob
	gallery  *recordingGallery
	timer    *fakeTimer
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, c Capturer, live bool) *harness {
	t.Helper()
	h := &harness{
		blob:    store.NewMemoryBlob(),
		gallery: &recordingGallery{},
		timer:   newFakeTimer(),
		metrics: metrics.New(),
	}
	opts := Options{
		Enabled:        true,
		Prefix:         "screenshots/",
		MaxAttempts:    3,
		InitialBackoff: time.Second,
	}
	h.pipeline = NewPipeline(c, h.blob, stubSites{live: live}, h.gallery, opts, logger.Nop(), h.metrics).WithTimer(h.timer)
	return h
}

func (h *harness) stored(t *testing.T) bool {
	t.Helper()
	ok, err := h.blob.Head(context.Background(), "screenshots/abcd1234.png")
	require.NoError(t, err)
	return ok
}

func TestRun_Success(t *testing.T) {
	rs := newRenderServer(t)
	h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), true)

	h.pipeline.Run(context.Background(), "abcd1234", "https://sites.example.com")

	assert.EqualValues(t, 1, rs.calls.Load())
	assert.Empty(t, h.timer.waits())

	obj, err := h.blob.Get(context.Background(), "screenshots/abcd1234.png")
	require.NoError(t, err)
	assert.Equal(t, fakePNG, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)

	assert.Equal(t, "abcd1234", h.gallery.siteID)
	assert.Equal(t, "/screenshot/abcd1234.png", h.gallery.url)

	body := rs.body()
	assert.Equal(t, "https://sites.example.com/site/abcd1234", body["url"])
	assert.Equal(t, map[string]any{"width": 720.0, "height": 450.0}, body["viewport"])
	assert.Equal(t, map[string]any{"fullPage": false}, body["screenshotOptions"])
	assert.Equal(t, map[string]any{"waitUntil": "networkidle0"}, body["gotoOptions"])
	assert.Equal(t, 300.0, body["waitForTimeout"])

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Screenshots.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestRun_RetriesServerErrors(t *testing.T) {
	rs := newRenderServer(t, 500, 500)
	h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), true)

	h.pipeline.Run(context.Background(), "abcd1234", "https://sites.example.com")

	assert.EqualValues(t, 3, rs.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.timer.waits())
	assert.True(t, h.stored(t))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.ScreenshotAttempts.WithLabelValues(metrics.OutcomeRetry)))
}

func TestRun_ClientErrorIsPermanent(t *testing.T) {
	rs := newRenderServer(t, 404)
	h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), true)

	h.pipeline.Run(context.Background(), "abcd1234", "https://sites.example.com")

	assert.EqualValues(t, 1, rs.calls.Load())
	assert.Empty(t, h.timer.waits())
	assert.False(t, h.stored(t))
	assert.Empty(t, h.gallery.siteID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Screenshots.WithLabelValues(metrics.OutcomeFailure)))
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	rs := newRenderServer(t, 503, 503, 503, 503)
	h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), true)

	h.pipeline.Run(context.Background(), "abcd1234", "https://sites.example.com")

	assert.EqualValues(t, 3, rs.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.timer.waits())
	assert.False(t, h.stored(t))
}

type flakyCapturer struct {
	calls int
}

func (f *flakyCapturer) Capture(context.Context, string) ([]byte, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("connection reset by peer")
	}
	return fakePNG, nil
}

func TestRun_RetriesTransportErrors(t *testing.T) {
	c := &flakyCapturer{}
	h := newHarness(t, c, true)

	h.pipeline.Run(context.Background(), "abcd1234", "https://sites.example.com")

	assert.Equal(t, 2, c.calls)
	assert.Equal(t, []time.Duration{time.Second}, h.timer.waits())
	assert.True(t, h.stored(t))
}

func TestRun_Skips(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		live   bool
		mutate func(*Pipeline)
	}{
		{name: "localhost", origin: "http://localhost:8787", live: true},
		{name: "loopback", origin: "http://127.0.0.1:8080", live: true},
		{name: "ipv6 loopback", origin: "http://[::1]:8080", live: true},
		{name: "site gone", origin: "https://sites.example.com", live: false},
		{name: "not configured", origin: "https://sites.example.com", live: true, mutate: func(p *Pipeline) { p.opts.Enabled = false }},
		{name: "no blob store", origin: "https://sites.example.com", live: true, mutate: func(p *Pipeline) { p.blob = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newRenderServer(t)
			h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), tt.live)
			if tt.mutate != nil {
				tt.mutate(h.pipeline)
			}

			h.pipeline.Run(context.Background(), "abcd1234", tt.origin)

			assert.Zero(t, rs.calls.Load())
			assert.False(t, h.stored(t))
			assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Screenshots.WithLabelValues(metrics.OutcomeSkipped)))
		})
	}
}

func TestRun_CancelledDuringDelay(t *testing.T) {
	rs := newRenderServer(t)
	h := newHarness(t, NewRenderClient(rs.URL, "acct", "tok"), true)
	h.pipeline.opts.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.pipeline.Run(ctx, "abcd1234", "https://sites.example.com")

	assert.Zero(t, rs.calls.Load())
}

func TestIsLocalOrigin(t *testing.T) {
	assert.True(t, isLocalOrigin("http://localhost"))
	assert.True(t, isLocalOrigin("http://0.0.0.0:8080"))
	assert.False(t, isLocalOrigin("https://adamcbloom.com"))
	assert.False(t, isLocalOrigin("https://localhost.example.com"))
}
