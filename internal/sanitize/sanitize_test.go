package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"inline event handler",
			`<button class="cta" onclick="steal()">Go</button>`,
			`<button class="cta">Go</button>`,
		},
		{
			"mixed case handler",
			`<img src="a.png" ONLOAD="x()" alt="a">`,
			`<img src="a.png" alt="a">`,
		},
		{
			"javascript href",
			`<a href="javascript:alert(1)">x</a>`,
			`<a href="#">x</a>`,
		},
		{
			"obfuscated javascript href",
			"<a href=\" java\tscript:alert(1)\">x</a>",
			`<a href="#">x</a>`,
		},
		{
			"javascript src",
			`<img src="javascript:alert(1)" alt="x">`,
			`<img alt="x">`,
		},
		{
			"non image data src",
			`<img src="data:text/html;base64,PHNjcmlwdD4=">`,
			`<img>`,
		},
		{
			"external script",
			`<p>a</p><script src="https://evil.example/x.js">ignored()</script><p>b</p>`,
			`<p>a</p><p>b</p>`,
		},
		{
			"iframe with content",
			`<div><iframe src="https://x.example">fallback</iframe></div>`,
			`<div></div>`,
		},
		{
			"nested object",
			`<object data="a"><object data="b"></object><p>x</p></object><p>kept</p>`,
			`<p>kept</p>`,
		},
		{
			"unclosed object keeps what follows",
			`<p>a</p><object data="x.swf"><p onclick="x()">tail content</p></body></html>`,
			`<p>a</p><p>tail content</p></body></html>`,
		},
		{
			"unclosed outer object",
			`<object data="a"><object data="b"></object><p>x</p>`,
			`<p>x</p>`,
		},
		{
			"handlers inside svg style",
			`<svg><style><a onclick="alert(1)">x</a></style></svg>`,
			`<svg><style><a>x</a></style></svg>`,
		},
		{
			"handlers inside math title",
			`<math><title><img src="a.png" onerror="x()"></title></math><style>p { color: red; }</style>`,
			`<math><title><img src="a.png"></title></math><style>p { color: red; }</style>`,
		},
		{
			"embed and base",
			`<base href="https://evil.example/"><embed src="x.swf"><p>ok</p>`,
			`<p>ok</p>`,
		},
		{
			"meta refresh",
			`<meta http-equiv="Refresh" content="0;url=https://evil.example"><meta charset="UTF-8">`,
			`<meta charset="UTF-8">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTML(tt.input))
		})
	}
}

func TestHTML_PreservesInlineContent(t *testing.T) {
	doc := `<!DOCTYPE html>
<html lang="en">
<head>
<style>
  :root { --brand: #ff6b35; }
  .card:hover > a[href^="https"] { transform: translateY(-2px); }
</style>
</head>
<body>
<h1 class="Hero" data-x='1'>Fresh Bread &amp; Coffee</h1>
<img src="data:image/png;base64,iVBORw0KGgo=" alt="dot">
<script>
  document.querySelectorAll('.card').forEach(el => { if (1 < 2 && el) el.classList.add("in"); });
</script>
</body>
</html>`

	assert.Equal(t, doc, HTML(doc))
}

func TestHTML_NoEventHandlersRemain(t *testing.T) {
	inputs := []string{
		`<div onclick="a()" onmouseover='b()'>x</div>`,
		`<svg onload="x()"><circle onclick="y()"/></svg>`,
		`<body onload="init()"><input onfocus="z()" autofocus></body>`,
		`<svg><style><a onclick="alert(1)">x</a></style></svg>`,
		`<svg><g><noscript><b onmouseover="m()">b</b></noscript></g></svg>`,
		`<svg><style/><a onclick="alert(1)">x</a></svg>`,
	}

	for _, in := range inputs {
		out := HTML(in)
		assert.NotRegexp(t, `(?i)\son\w+\s*=`, out, "input: %s", in)
	}
}

func TestHTML_Idempotent(t *testing.T) {
	inputs := []string{
		`<a href="javascript:x()" onclick="y()">a</a><iframe src="z"></iframe>`,
		`<p title='It&#39;s "quoted"'>t</p><img src="data:text/plain,hi" onerror="e()">`,
		`<script src="a.js"></script><script>var s = "<p>";</script>`,
		`<DIV CLASS="x"><P>Upper</P></DIV>`,
		`<svg><style><a onclick="alert(1)">x</a></style></svg>`,
		`<p>a</p><object data="x.swf"><p>tail</p>`,
	}

	for _, in := range inputs {
		once := HTML(in)
		assert.Equal(t, once, HTML(once), "input: %s", in)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("wraps fragments", func(t *testing.T) {
		out := Normalize(`<h1 onclick="x()">Hi</h1>`)
		assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
		assert.Contains(t, out, "<body>\n<h1>Hi</h1>\n</body>")
		assert.Contains(t, out, `<meta name="viewport" content="width=device-width, initial-scale=1">`)
		assert.Contains(t, out, "<title>Generated Site</title>")
	})

	t.Run("keeps full documents", func(t *testing.T) {
		doc := "<!DOCTYPE html>\n<html><body><p>x</p></body></html>"
		assert.Equal(t, doc, Normalize(doc))
	})

	t.Run("drops preamble before doctype", func(t *testing.T) {
		out := Normalize("Here you go:\n<!doctype html><html></html>")
		assert.Equal(t, "<!doctype html><html></html>", out)
	})

	t.Run("doctype inside content is not a document start", func(t *testing.T) {
		in := `<h1>Hello bakery</h1><script>const tpl = "<!DOCTYPE html><p>x</p>";</script>`
		out := Normalize(in)
		assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>\n<html lang=\"en\">"))
		assert.Contains(t, out, "<body>\n"+in+"\n</body>")
	})

	t.Run("doctype after a comment", func(t *testing.T) {
		out := Normalize("<!-- generated -->\n<!DOCTYPE html><html><body><p>x</p></body></html>")
		assert.Equal(t, "<!DOCTYPE html><html><body><p>x</p></body></html>", out)
	})

	t.Run("doctype after markup", func(t *testing.T) {
		out := Normalize("<p>intro</p><!DOCTYPE html><p>x</p>")
		assert.Contains(t, out, "<body>\n<p>intro</p>")
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Normalize(`<p onclick="x">a</p>`)
		assert.Equal(t, once, Normalize(once))
	})
}
