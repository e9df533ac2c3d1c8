// Package compose turns the three source buffers into one executable page.
//
// Composition is plain template expansion over trusted input: the style
// buffer lands verbatim in a single <style> block in the head, the markup
// buffer lands verbatim in the body, and the script buffer is wrapped in an
// immediately invoked function appended after the markup. The wrapper gives
// every render a fresh scope, so top-level declarations never collide with a
// previous run and a thrown error stays inside the script region.
//
// Compose never fails and never executes anything.
package compose

import (
	"strings"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

const (
	head = "<!DOCTYPE html>\n" +
		"<html>\n" +
		"<head>\n" +
		"<meta charset=\"UTF-8\">\n" +
		"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n" +
		"<style>"
	bodyOpen    = "</style>\n</head>\n<body>\n"
	scriptOpen  = "\n<script>\n(function() {\n"
	scriptClose = "\n})();\n</script>\n"
	tail        = "</body>\n</html>\n"
)

// Compose builds the document for the given buffer contents
func Compose(markup, style, script string) string {
	var sb strings.Builder
	sb.Grow(len(head) + len(bodyOpen) + len(scriptOpen) + len(scriptClose) + len(tail) +
		len(markup) + len(style) + len(script))

	sb.WriteString(head)
	sb.WriteString(style)
	sb.WriteString(bodyOpen)
	sb.WriteString(markup)
	sb.WriteString(scriptOpen)
	sb.WriteString(script)
	sb.WriteString(scriptClose)
	sb.WriteString(tail)

	return sb.String()
}

// Snapshot composes a buffer snapshot
func Snapshot(s buffer.Snapshot) string {
	return Compose(s[buffer.Markup], s[buffer.Style], s[buffer.Script])
}

// Regions holds the three embedded regions of a composed document
type Regions struct {
	Markup string
	Style  string
	Script string
}

// Split recovers the regions from a document produced by Compose.
// It reports false for any other document, and for a composed document
// whose buffers themselves contain a region delimiter: the boundaries of
// such a document cannot be placed unambiguously.
func Split(doc string) (Regions, bool) {
	if !strings.HasPrefix(doc, head) || !strings.HasSuffix(doc, scriptClose+tail) {
		return Regions{}, false
	}
	rest := strings.TrimPrefix(doc, head)
	rest = strings.TrimSuffix(rest, scriptClose+tail)

	if strings.Count(rest, bodyOpen) != 1 || strings.Count(rest, scriptOpen) != 1 {
		return Regions{}, false
	}

	styleEnd := strings.Index(rest, bodyOpen)
	r := Regions{Style: rest[:styleEnd]}
	rest = rest[styleEnd+len(bodyOpen):]

	scriptStart := strings.Index(rest, scriptOpen)
	if scriptStart < 0 {
		return Regions{}, false
	}
	r.Markup = rest[:scriptStart]
	r.Script = rest[scriptStart+len(scriptOpen):]
	return r, true
}
