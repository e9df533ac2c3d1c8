package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
)

var ErrInvalidXPath = errors.New("invalid xpath expression")

// MaxMatches caps the nodes returned by one query
const MaxMatches = 200

// Match is one node selected by an XPath query. Attribute selections
// carry the attribute value as Text.
type Match struct {
	Name string `json:"name"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// QueryResult is the outcome of an XPath query
type QueryResult struct {
	Matches   []Match `json:"matches"`
	Total     int     `json:"total"`
	Truncated bool    `json:"truncated"`
}

// Query selects nodes of document with an XPath expression
func Query(document, expr string) (*QueryResult, error) {
	root, err := htmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXPath, err)
	}

	out := &QueryResult{Total: len(nodes), Matches: make([]Match, 0, min(len(nodes), MaxMatches))}
	for i, n := range nodes {
		if i == MaxMatches {
			out.Truncated = true
			break
		}
		out.Matches = append(out.Matches, Match{
			Name: n.Data,
			Text: htmlquery.InnerText(n),
			HTML: htmlquery.OutputHTML(n, true),
		})
	}
	return out, nil
}

// Query runs an XPath expression against the DOM left by the last present
func (t *Target) Query(expr string) (*QueryResult, error) {
	t.mu.Lock()
	closed := t.closed
	var html string
	if t.last != nil {
		html = t.last.HTML
	}
	t.mu.Unlock()

	if closed {
		return nil, ErrRuntimeClosed
	}
	return Query(html, expr)
}
