// Package dom adapts parsed HTML edit pages to prismlate fields.
package dom

import (
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/prismlate"
	"golang.org/x/net/html"
)

// Structural selectors for fields of a structured content model. Inputs
// and editors whose id holds "." or "[" belong to a document field path.
var fieldSelectors = []string{
	`input[id*="."], textarea[id*="."], div[contenteditable="true"][id*="."]`,
	`input[id*="["], textarea[id*="["], div[contenteditable="true"][id*="["]`,
	`div[contenteditable="true"].tiptap.ProseMirror`,
	`input[placeholder*="Alt text"]`,
	`input[placeholder*="Short description for the visually impaired"]`,
	`input[placeholder*="Add new tag"]`,
	`input[data-testid*="field"], textarea[data-testid*="field"]`,
	`input[data-testid*="title"], textarea[data-testid*="title"]`,
	`div[data-testid*="rich-text"] [contenteditable="true"]`,
	`[data-field-type="StructuredText"] [contenteditable]`,
	`[data-field-type="Text"] input, [data-field-type="Text"] textarea`,
	`[data-field-type="Title"] input, [data-field-type="Title"] textarea`,
	`.rich-text-editor [contenteditable="true"]`,
}

const (
	groupItemSelector  = `ul[aria-label="Group"] > li`
	groupFieldSelector = `input, textarea, div[contenteditable="true"]`
)

// Event is a change notification recorded by the document.
type Event struct {
	FieldID string
	Type    prismlate.EventType
}

// Listener is called for every notification a field dispatches.
type Listener func(f *Field, ev prismlate.EventType)

// Document is a parsed edit page. It is not safe for concurrent use
// apart from its selection guard.
type Document struct {
	doc    *goquery.Document
	fields map[*html.Node]*Field
	guard  prismlate.SelectionGuard

	mu        sync.Mutex
	events    []Event
	listeners []Listener
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &prismlate.TranslationError{Message: "failed to parse HTML", Cause: err}
	}
	return &Document{
		doc:    doc,
		fields: make(map[*html.Node]*Field),
	}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// HTML serializes the whole document.
func (d *Document) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", &prismlate.TranslationError{Message: "failed to serialize HTML", Cause: err}
	}
	return out, nil
}

// BodyHTML serializes the contents of <body>, which is what a fragment
// input turns back into.
func (d *Document) BodyHTML() (string, error) {
	out, err := d.doc.Find("body").First().Html()
	if err != nil {
		return "", &prismlate.TranslationError{Message: "failed to serialize HTML", Cause: err}
	}
	return out, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.doc.Nodes[0]
}

// Find returns the nodes matching a CSS selector.
func (d *Document) Find(selector string) []*html.Node {
	return d.doc.Find(selector).Nodes
}

// Candidates returns every candidate field of the page in document order:
// the structural selector matches, the fields nested in repeating group
// items and the image alt-text inputs. Each element appears once.
func (d *Document) Candidates() []prismlate.Field {
	matched := make(map[*html.Node]bool)

	for _, sel := range fieldSelectors {
		for _, n := range d.doc.Find(sel).Nodes {
			matched[n] = true
		}
	}

	d.doc.Find(groupItemSelector).Each(func(_ int, li *goquery.Selection) {
		for _, n := range li.Find(groupFieldSelector).Nodes {
			matched[n] = true
		}
	})

	d.doc.Find(`input[type="text"]`).Each(func(_ int, s *goquery.Selection) {
		if d.isAltTextInput(s) {
			matched[s.Nodes[0]] = true
		}
	})

	var out []prismlate.Field
	walk(d.Root(), func(n *html.Node) {
		if matched[n] {
			out = append(out, d.Field(n))
		}
	})
	return out
}

// Field returns the field for an element. The same element always yields
// the same *Field.
func (d *Document) Field(n *html.Node) *Field {
	if f, ok := d.fields[n]; ok {
		return f
	}
	f := &Field{doc: d, node: n}
	d.fields[n] = f
	return f
}

// FieldByID returns the field for the element with the given id.
func (d *Document) FieldByID(id string) (*Field, bool) {
	var found *html.Node
	walk(d.Root(), func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
		}
	})
	if found == nil {
		return nil, false
	}
	return d.Field(found), true
}

// OnChange registers a listener for field notifications.
func (d *Document) OnChange(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Events returns the notifications dispatched so far.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// SelectionGuard returns the guard used by TranslateSelection.
func (d *Document) SelectionGuard() *prismlate.SelectionGuard {
	return &d.guard
}

func (d *Document) dispatch(f *Field, ev prismlate.EventType) {
	d.mu.Lock()
	d.events = append(d.events, Event{FieldID: f.ID(), Type: ev})
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, l := range listeners {
		l(f, ev)
	}
}

func (d *Document) isAltTextInput(s *goquery.Selection) bool {
	placeholder := strings.ToLower(s.AttrOr("placeholder", ""))
	if strings.Contains(placeholder, "visually impaired") {
		return true
	}
	id := s.AttrOr("id", "")
	if id == "" {
		return false
	}
	label := strings.ToLower(d.labelFor(id))
	return strings.Contains(label, "alt text")
}

// labelFor returns the text of the first <label for=id>.
func (d *Document) labelFor(id string) string {
	text := ""
	d.doc.Find("label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.AttrOr("for", "") == id {
			text = s.Text()
			return false
		}
		return true
	})
	return text
}

// walk visits n and its descendants in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

var _ prismlate.CandidateSource = (*Document)(nil)
