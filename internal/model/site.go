package model

// BuildRequest is the body of /api/build and /api/build-stream
type BuildRequest struct {
	Prompt string `json:"prompt"`
}

// BuildResponse is returned by a successful build. ShareURL and SiteID are
// empty when the document could not be persisted.
type BuildResponse struct {
	HTML     string `json:"html"`
	ShareURL string `json:"shareUrl,omitempty"`
	SiteID   string `json:"siteId,omitempty"`
}

// SurpriseResponse carries a single generated website idea
type SurpriseResponse struct {
	Idea string `json:"idea"`
}

// GalleryEntry is one public listing of a past generation
type GalleryEntry struct {
	SiteID        string `json:"siteId"`
	Prompt        string `json:"prompt"`    // truncated brief
	CreatedAt     int64  `json:"createdAt"` // epoch millis
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
}

// GalleryResponse is the body of GET /api/gallery
type GalleryResponse struct {
	Sites []GalleryEntry `json:"sites"`
}

// ScreenshotStatus is the body of GET /api/screenshot-status/{id}
type ScreenshotStatus struct {
	Ready         bool   `json:"ready"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Build pipeline stages, in emission order
const (
	StageStarted    = "started"
	StageGenerating = "generating"
	StageProcessing = "processing"
	StageStoring    = "storing"
	StageComplete   = "complete"
)

// ProgressEvent is streamed to the caller while a build advances
type ProgressEvent struct {
	Stage         string `json:"stage"`
	Message       string `json:"message"`
	Progress      int    `json:"progress,omitempty"`
	EstimatedTime int    `json:"estimatedTime,omitempty"` // seconds
}

// RateLimitResult is the outcome of one limiter check
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64 // epoch seconds, 0 when unknown
}
