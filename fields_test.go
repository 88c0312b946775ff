package prismlate

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeField is an in-memory Field for tests.
type fakeField struct {
	attrs     Attributes
	text      string
	hidden    bool
	readOnly  bool
	events    []EventType
	highlight HighlightState
}

func newInput(id, value string) *fakeField {
	return &fakeField{
		attrs: Attributes{ID: id, Tag: "input", Type: "text", Element: ElementInput},
		text:  value,
	}
}

func newRichText(id, html string) *fakeField {
	return &fakeField{
		attrs: Attributes{ID: id, Tag: "div", Element: ElementRichText, Classes: []string{"ProseMirror"}},
		text:  html,
	}
}

func (f *fakeField) Text() string        { return f.text }
func (f *fakeField) SetText(text string) { f.text = text }
func (f *fakeField) IsVisible() bool     { return !f.hidden }
func (f *fakeField) IsEditable() bool    { return !f.readOnly }

func (f *fakeField) Attributes() Attributes {
	a := f.attrs
	a.Value = f.text
	return a
}

func (f *fakeField) Dispatch(event EventType) {
	f.events = append(f.events, event)
}

func (f *fakeField) Highlight(state HighlightState) {
	f.highlight = state
}

// fieldList is a CandidateSource over a fixed slice.
type fieldList []Field

func (l fieldList) Candidates() []Field { return l }

func fields(ff ...*fakeField) fieldList {
	out := make(fieldList, len(ff))
	for i, f := range ff {
		out[i] = f
	}
	return out
}

// fakeGateway records requests and answers with a prefix, failing on
// texts listed in fail.
type fakeGateway struct {
	mu       sync.Mutex
	requests []Request
	fail     map[string]error
	answer   func(Request) string
}

func (g *fakeGateway) Translate(ctx context.Context, req Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if err, ok := g.fail[req.Text]; ok {
		return "", err
	}
	if g.answer != nil {
		return g.answer(req), nil
	}
	if req.HTML {
		return strings.ReplaceAll(req.Text, "Hello", "Hola"), nil
	}
	return "[" + req.TargetLang + "] " + req.Text, nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

var errUnavailable = errors.New("service unavailable")

// mapCache is a TranslationCache backed by a map.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]string)} }

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}
