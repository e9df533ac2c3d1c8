package sandbox

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DOM is a parsed document that scripts read and mutate through proxies
type DOM struct {
	doc *goquery.Document
}

// Element is a single node of the DOM
type Element struct {
	sel *goquery.Selection
}

// NewDOM parses an HTML document
func NewDOM(document string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &DOM{doc: doc}, nil
}

// Query returns every element matching a CSS selector. Invalid selectors
// match nothing.
func (d *DOM) Query(selector string) []*Element {
	return wrap(d.doc.Find(selector))
}

// First returns the first element matching selector, or nil
func (d *DOM) First(selector string) *Element {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return &Element{sel: sel}
}

// ByID finds an element by exact id, without selector escaping issues
func (d *DOM) ByID(id string) *Element {
	sel := d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if sel.Length() == 0 {
		return nil
	}
	return &Element{sel: sel}
}

// ByClass returns elements carrying every class in names
func (d *DOM) ByClass(names string) []*Element {
	classes := strings.Fields(names)
	if len(classes) == 0 {
		return nil
	}
	return wrap(d.doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, c := range classes {
			if !s.HasClass(c) {
				return false
			}
		}
		return true
	}))
}

// Create returns a detached element with the given tag
func (d *DOM) Create(tag string) *Element {
	node := &html.Node{Type: html.ElementNode, Data: strings.ToLower(tag)}
	return &Element{sel: goquery.NewDocumentFromNode(node).Selection}
}

// Scripts returns the source of each inline script in document order.
// External scripts are skipped; nothing is fetched.
func (d *DOM) Scripts() []string {
	var out []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		if !isJavaScript(s.AttrOr("type", "")) {
			return
		}
		out = append(out, s.Text())
	})
	return out
}

// Title returns the text of the first <title>
func (d *DOM) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// SetTitle replaces the title text, creating <title> in <head> if needed
func (d *DOM) SetTitle(title string) {
	t := d.doc.Find("title").First()
	if t.Length() == 0 {
		d.doc.Find("head").First().AppendHtml("<title></title>")
		t = d.doc.Find("title").First()
	}
	t.SetText(title)
}

// HTML serializes the whole document
func (d *DOM) HTML() (string, error) {
	return d.doc.Html()
}

func wrap(sel *goquery.Selection) []*Element {
	out := make([]*Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{sel: s})
	})
	return out
}

func isJavaScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

// TagName returns the upper-case tag name, as browsers report it
func (e *Element) TagName() string {
	return strings.ToUpper(goquery.NodeName(e.sel))
}

// GetAttribute retrieves an attribute value
func (e *Element) GetAttribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

// SetAttribute sets an attribute value
func (e *Element) SetAttribute(name, value string) {
	e.sel.SetAttr(name, value)
}

// RemoveAttribute deletes an attribute
func (e *Element) RemoveAttribute(name string) {
	e.sel.RemoveAttr(name)
}

// Text returns the concatenated text content
func (e *Element) Text() string {
	return e.sel.Text()
}

// SetText replaces all children with a text node
func (e *Element) SetText(text string) {
	e.sel.SetText(text)
}

// InnerHTML serializes the children
func (e *Element) InnerHTML() string {
	h, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

// SetInnerHTML replaces the children with parsed markup
func (e *Element) SetInnerHTML(markup string) {
	e.sel.SetHtml(markup)
}

// Append moves child under e
func (e *Element) Append(child *Element) {
	e.sel.AppendSelection(child.sel)
}

// Remove detaches the element from its parent
func (e *Element) Remove() {
	e.sel.Remove()
}

// Query finds descendants matching selector
func (e *Element) Query(selector string) []*Element {
	return wrap(e.sel.Find(selector))
}

// Same reports whether both wrap the same node
func (e *Element) Same(other *Element) bool {
	return other != nil && e.sel.Get(0) == other.sel.Get(0)
}

// HasClass reports whether the element carries class
func (e *Element) HasClass(class string) bool {
	return e.sel.HasClass(class)
}

// AddClass adds classes to the element
func (e *Element) AddClass(classes ...string) {
	e.sel.AddClass(classes...)
}

// RemoveClass removes classes from the element
func (e *Element) RemoveClass(classes ...string) {
	e.sel.RemoveClass(classes...)
}
