package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

func TestComposeDeterministic(t *testing.T) {
	inputs := [][3]string{
		{"<p>hi</p>", "p{color:red}", "console.log(1)"},
		{"", "", ""},
		{"<div><span>", "}{", "function ("},
		{"ünï©ødé", "/* ☃ */", "let x = '\\u00e9'"},
	}

	for _, in := range inputs {
		a := Compose(in[0], in[1], in[2])
		b := Compose(in[0], in[1], in[2])
		assert.Equal(t, a, b)
	}
}

func TestComposeTotal(t *testing.T) {
	inputs := []string{"", "<", "</script>", "<!--", "\x00", strings.Repeat("{", 1000)}

	for _, m := range inputs {
		for _, s := range inputs {
			for _, j := range inputs {
				assert.NotPanics(t, func() {
					doc := Compose(m, s, j)
					assert.NotEmpty(t, doc)
				})
			}
		}
	}
}

func TestComposeLayout(t *testing.T) {
	doc := Compose("<p>hi</p>", "p{color:red}", "console.log(1)")

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Equal(t, 1, strings.Count(doc, "<style>"))
	assert.Equal(t, 1, strings.Count(doc, "<script>"))
	assert.Contains(t, doc, "<style>p{color:red}</style>")
	assert.Contains(t, doc, "(function() {\nconsole.log(1)\n})();")

	// style in head, markup before script, script before end of body
	styleAt := strings.Index(doc, "p{color:red}")
	headEnd := strings.Index(doc, "</head>")
	markupAt := strings.Index(doc, "<p>hi</p>")
	scriptAt := strings.Index(doc, "console.log(1)")
	bodyEnd := strings.Index(doc, "</body>")

	assert.Less(t, styleAt, headEnd)
	assert.Less(t, headEnd, markupAt)
	assert.Less(t, markupAt, scriptAt)
	assert.Less(t, scriptAt, bodyEnd)
}

func TestComposeNoEscaping(t *testing.T) {
	markup := `<a href="x?a=1&b=2">&amp;</a>`
	script := `if (a < b && c > d) { alert("<b>") }`

	doc := Compose(markup, "", script)

	assert.Contains(t, doc, markup)
	assert.Contains(t, doc, script)
}

func TestSnapshot(t *testing.T) {
	snap := buffer.Snapshot{
		buffer.Markup: "<h1>x</h1>",
		buffer.Style:  "h1{}",
		buffer.Script: "1",
	}

	assert.Equal(t, Compose("<h1>x</h1>", "h1{}", "1"), Snapshot(snap))
}

func TestSplit(t *testing.T) {
	doc := Compose("<p>bye</p>", "p{color:red}", "console.log(1)")

	r, ok := Split(doc)
	require.True(t, ok)
	assert.Equal(t, "<p>bye</p>", r.Markup)
	assert.Equal(t, "p{color:red}", r.Style)
	assert.Equal(t, "console.log(1)", r.Script)
}

func TestSplitEmpty(t *testing.T) {
	r, ok := Split(Compose("", "", ""))
	require.True(t, ok)
	assert.Equal(t, Regions{}, r)
}

func TestSplitForeignDocument(t *testing.T) {
	_, ok := Split("<html><body>hi</body></html>")
	assert.False(t, ok)
}

func TestSplitRefusesAmbiguousDocument(t *testing.T) {
	tests := []struct {
		name                  string
		markup, style, script string
	}{
		{"script holds script opener", "<p>a</p>", "", "x()" + scriptOpen + "y()"},
		{"markup holds script opener", "<p>a</p>" + scriptOpen, "", "x()"},
		{"style holds body opener", "", "p{}" + bodyOpen, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Split(Compose(tt.markup, tt.style, tt.script))
			assert.False(t, ok)
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Compose("<p>a</p>", "", "")
	b := Compose("<p>b</p>", "", "")

	assert.Len(t, Fingerprint(a), 32)
	assert.Equal(t, Fingerprint(a), Fingerprint(Compose("<p>a</p>", "", "")))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
