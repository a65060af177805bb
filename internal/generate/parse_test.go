package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "  \n\t ", ""},
		{"raw document", "  <!DOCTYPE html><html></html>\n", "<!DOCTYPE html><html></html>"},
		{"json wrapper", `{"html":"<p>hi</p>"}`, "<p>hi</p>"},
		{"json without html", `{"title":"x"}`, `{"title":"x"}`},
		{"json with empty html", `{"html":""}`, `{"html":""}`},
		{"json with blank html", `{"html":"   \n  "}`, ""},
		{"json html is trimmed", `{"html":"\n<p>hi</p>\n"}`, "<p>hi</p>"},
		{"html fence", "```html\n<!DOCTYPE html><html></html>\n```", "<!DOCTYPE html><html></html>"},
		{"bare fence", "```\n<p>x</p>\n```", "<p>x</p>"},
		{"fenced json", "```json\n{\"html\":\"<b>x</b>\"}\n```", "<b>x</b>"},
		{"fence without newline", "```<p>x</p>```", "<p>x</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHTML(tt.in))
		})
	}
}
