// Package sanitize strips active-content vectors from generated markup and
// normalizes it into a complete document.
//
// The pass walks the token stream instead of building a tree. Tokens that
// need no change are copied byte for byte, so inline scripts and styles
// survive untouched and sanitizing twice changes nothing.
package sanitize

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// dropWithContent lists elements removed together with everything inside them
var dropWithContent = map[string]bool{
	"iframe": true,
	"object": true,
}

// dropTag lists void or standalone elements removed on their own
var dropTag = map[string]bool{
	"embed": true,
	"base":  true,
}

// urlAttrs are attributes whose javascript: value is replaced with "#"
var urlAttrs = map[string]bool{
	"href":       true,
	"xlink:href": true,
	"action":     true,
	"formaction": true,
}

// foreignRoots open foreign content, where raw-text elements such as style
// hold real child elements
var foreignRoots = map[string]bool{
	"svg":  true,
	"math": true,
}

// rawText lists elements the tokenizer reads as raw text in HTML content
var rawText = map[string]bool{
	"style":    true,
	"script":   true,
	"title":    true,
	"textarea": true,
	"xmp":      true,
	"noembed":  true,
	"noframes": true,
	"noscript": true,
}

// HTML removes event-handler attributes, script-scheme URLs, non-image
// data: sources, external scripts, iframe, object, embed, base and
// meta refresh from doc.
func HTML(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var out bytes.Buffer
	out.Grow(len(doc))

	// skipping names the element whose content is being discarded
	skipping := ""
	depth := 0
	var skipped bytes.Buffer
	// foreign counts open svg and math elements
	foreign := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// tokenizer gave up; keep whatever it did not consume as text
				if skipping != "" {
					skipped.Write(z.Raw())
				} else {
					out.Write(z.Raw())
				}
			}
			break
		}
		// TagName and Token lower-case the buffer in place; keep the original bytes
		raw := append([]byte(nil), z.Raw()...)

		if skipping != "" {
			skipped.Write(raw)
			switch tt {
			case html.StartTagToken:
				if name, _ := z.TagName(); string(name) == skipping {
					depth++
				}
			case html.EndTagToken:
				if name, _ := z.TagName(); string(name) == skipping {
					depth--
					if depth == 0 {
						skipping = ""
						skipped.Reset()
					}
				}
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch {
			case dropWithContent[tok.Data] || (tok.Data == "script" && hasSource(tok)):
				// the tokenizer reads script and iframe bodies as raw text even
				// after a self-closing slash, so those always open a skip
				if tt == html.StartTagToken || tok.Data != "object" {
					skipping, depth = tok.Data, 1
				}
				continue
			case dropTag[tok.Data] || (tok.Data == "meta" && isRefresh(tok)):
				continue
			}
			if tt == html.StartTagToken && foreignRoots[tok.Data] {
				foreign++
			}
			if foreign > 0 && rawText[tok.Data] {
				// foreign content parses these as ordinary elements, even self-closed
				z.NextIsNotRawText()
			}
			if cleanAttrs(&tok) {
				out.WriteString(tok.String())
				continue
			}
			out.Write(raw)

		case html.EndTagToken:
			name, _ := z.TagName()
			n := string(name)
			if foreignRoots[n] && foreign > 0 {
				foreign--
			}
			if dropWithContent[n] || dropTag[n] {
				continue
			}
			out.Write(raw)

		default:
			out.Write(raw)
		}
	}

	// an unclosed object only drops its own tag; what followed it survives
	if skipping == "object" {
		out.WriteString(HTML(skipped.String()))
	}

	return out.String()
}

// cleanAttrs rewrites tok's attributes in place and reports whether anything changed
func cleanAttrs(tok *html.Token) bool {
	changed := false
	kept := tok.Attr[:0]
	for _, a := range tok.Attr {
		key := strings.ToLower(a.Key)
		switch {
		case strings.HasPrefix(key, "on"):
			changed = true
			continue
		case urlAttrs[key] && isScriptURL(a.Val):
			a.Val = "#"
			changed = true
		case key == "src" && (isScriptURL(a.Val) || isNonImageData(a.Val)):
			changed = true
			continue
		}
		kept = append(kept, a)
	}
	tok.Attr = kept
	return changed
}

func hasSource(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "src" && strings.TrimSpace(a.Val) != "" {
			return true
		}
	}
	return false
}

func isRefresh(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "http-equiv" && strings.EqualFold(strings.TrimSpace(a.Val), "refresh") {
			return true
		}
	}
	return false
}

// scheme lowercases v and drops the whitespace and control characters
// browsers ignore inside a URL scheme.
func scheme(v string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v))
}

func isScriptURL(v string) bool {
	s := scheme(v)
	return strings.HasPrefix(s, "javascript:") || strings.HasPrefix(s, "vbscript:")
}

func isNonImageData(v string) bool {
	s := scheme(v)
	return strings.HasPrefix(s, "data:") && !strings.HasPrefix(s, "data:image/")
}
