package sanitize

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const shell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Generated Site</title>
</head>
<body>
%s
</body>
</html>`

// Normalize sanitizes doc and guarantees the result begins with a doctype.
// A leading doctype may follow only text or comments, which are dropped;
// anything else is wrapped in a minimal document shell.
func Normalize(doc string) string {
	clean := HTML(doc)
	if at := leadingDoctype(clean); at >= 0 {
		return clean[at:]
	}
	return fmt.Sprintf(shell, clean)
}

// leadingDoctype returns the byte offset of an html doctype that is the
// first markup token in doc, or -1.
func leadingDoctype(doc string) int {
	z := html.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		switch tt {
		case html.TextToken, html.CommentToken:
			offset += len(z.Raw())
		case html.DoctypeToken:
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(z.Text()))), "html") {
				return offset
			}
			return -1
		default:
			return -1
		}
	}
}
