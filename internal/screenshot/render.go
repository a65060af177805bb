package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RenderError is a non-2xx answer from the render API
type RenderError struct {
	StatusCode int
	Body       string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render API error %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another attempt could succeed
func (e *RenderError) Retryable() bool {
	return e.StatusCode >= 500
}

// Capturer takes a screenshot of a public URL
type Capturer interface {
	Capture(ctx context.Context, targetURL string) ([]byte, error)
}

// RenderClient calls a browser-rendering screenshot endpoint
type RenderClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewRenderClient targets <apiBase>/accounts/<accountID>/browser-rendering/screenshot
func NewRenderClient(apiBase, accountID, token string) *RenderClient {
	return &RenderClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   strings.TrimRight(apiBase, "/") + "/accounts/" + accountID + "/browser-rendering/screenshot",
		token:      token,
	}
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type renderRequest struct {
	URL               string   `json:"url"`
	Viewport          viewport `json:"viewport"`
	ScreenshotOptions struct {
		FullPage bool `json:"fullPage"`
	} `json:"screenshotOptions"`
	GotoOptions struct {
		WaitUntil string `json:"waitUntil"`
	} `json:"gotoOptions"`
	WaitForTimeout int `json:"waitForTimeout"` // ms
}

// Capture renders targetURL at a 720x450 viewport, sized for gallery
// thumbnails at 2x, once the network has gone idle.
func (c *RenderClient) Capture(ctx context.Context, targetURL string) ([]byte, error) {
	reqBody := renderRequest{
		URL:            targetURL,
		Viewport:       viewport{Width: 720, Height: 450},
		WaitForTimeout: 300,
	}
	reqBody.GotoOptions.WaitUntil = "networkidle0"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &RenderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
