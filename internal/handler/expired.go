package handler

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"time"
	"unicode/utf8"
)

// promptPreviewLength is how much of the brief the expired page shows
const promptPreviewLength = 200

var expiredPage = template.Must(template.New("expired").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Site Expired</title>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body {
      font-family: system-ui, -apple-system, sans-serif;
      background: #0b0d24;
      color: #e5e7eb;
      display: flex;
      align-items: center;
      justify-content: center;
      min-height: 100vh;
      margin: 0;
      text-align: center;
    }
    .container { max-width: 450px; padding: 2rem; }
    h1 { margin-bottom: 1rem; font-size: 1.5rem; }
    p { margin-bottom: 1rem; opacity: 0.8; }
    .prompt-preview {
      background: rgba(255,255,255,0.1);
      padding: 1rem;
      border-radius: 8px;
      margin: 1.5rem 0;
      font-size: 0.9rem;
      text-align: left;
    }
    .prompt-preview strong { display: block; margin-bottom: 0.5rem; opacity: 0.7; }
    a { color: #74b0ff; text-decoration: none; }
    a:hover { text-decoration: underline; }
    .btn {
      display: inline-block;
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      color: white;
      padding: 0.75rem 1.5rem;
      border-radius: 8px;
      text-decoration: none;
      margin-top: 0.5rem;
    }
    .btn:hover { opacity: 0.9; text-decoration: none; }
  </style>
</head>
<body>
  <div class="container">
    <h1>This site has expired</h1>
    <p>Generated sites are available for {{.Availability}}.</p>
    {{- if .HasPrompt}}
    <div class="prompt-preview">
      <strong>Original prompt:</strong>
      {{.Preview}}
    </div>
    <a href="{{.RegenerateURL}}" class="btn">Regenerate with same prompt →</a>
    <p style="margin-top: 1.5rem;"><a href="/">Or create something new</a></p>
    {{- else}}
    <p><a href="/">Create a new one →</a></p>
    {{- end}}
  </div>
</body>
</html>
`))

type expiredView struct {
	Availability  string
	HasPrompt     bool
	Preview       string
	RegenerateURL template.URL
}

// renderExpired writes the page shown for a missing or expired site.
// prompt is the stored brief, or "" when none survives.
func renderExpired(w io.Writer, prompt string, ttl time.Duration) error {
	view := expiredView{Availability: humanizeTTL(ttl)}
	if prompt != "" {
		view.HasPrompt = true
		view.Preview = preview(prompt, promptPreviewLength)
		view.RegenerateURL = template.URL("/?prompt=" + url.QueryEscape(prompt))
	}
	return expiredPage.Execute(w, view)
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// humanizeTTL renders whole days or hours the way the page copy reads
func humanizeTTL(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d >= 2*day && d%day == 0:
		return fmt.Sprintf("%d days", d/day)
	case d == time.Hour:
		return "1 hour"
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return d.String()
	}
}
