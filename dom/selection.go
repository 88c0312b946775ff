package dom

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/prismlate"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Point is a boundary point. In a text node Offset counts characters;
// in an element it is a child index.
type Point struct {
	Node   *html.Node
	Offset int
}

// Range is a span of a document between two boundary points.
type Range struct {
	doc   *Document
	Start Point
	End   Point
}

// NewRange creates a range. Start must not come after End.
func (d *Document) NewRange(start, end Point) (*Range, error) {
	r := &Range{doc: d, Start: start, End: end}
	if !r.IsAttached() {
		return nil, prismlate.ErrRangeDetached
	}
	return r, nil
}

// SelectText returns a range over the first occurrence of needle in the
// text of the subtree rooted at n (the whole document when n is nil).
// The match may span several text nodes.
func (d *Document) SelectText(n *html.Node, needle string) (*Range, error) {
	if n == nil {
		n = d.Root()
	}
	if needle == "" {
		return nil, &prismlate.SelectionError{Message: "empty selection"}
	}

	type segment struct {
		node  *html.Node
		start int // rune offset of the node in the joined text
		runes int
	}
	var segs []segment
	var b strings.Builder
	total := 0
	walk(n, func(c *html.Node) {
		if c.Type != html.TextNode {
			return
		}
		cnt := utf8.RuneCountInString(c.Data)
		segs = append(segs, segment{node: c, start: total, runes: cnt})
		b.WriteString(c.Data)
		total += cnt
	})

	joined := b.String()
	i := strings.Index(joined, needle)
	if i < 0 {
		return nil, &prismlate.SelectionError{Message: "text not found: " + needle}
	}
	from := utf8.RuneCountInString(joined[:i])
	to := from + utf8.RuneCountInString(needle)

	var start, end Point
	for _, s := range segs {
		if start.Node == nil && from < s.start+s.runes {
			start = Point{Node: s.node, Offset: from - s.start}
		}
		if end.Node == nil && to <= s.start+s.runes && to > s.start {
			end = Point{Node: s.node, Offset: to - s.start}
		}
	}
	return d.NewRange(start, end)
}

// Collapsed reports whether the range is empty.
func (r *Range) Collapsed() bool {
	return comparePoints(r.Start, r.End) == 0
}

// IsAttached reports whether both boundary points still lie in the
// document, are in bounds and are in order.
func (r *Range) IsAttached() bool {
	root := r.doc.Root()
	for _, p := range []Point{r.Start, r.End} {
		if p.Node == nil || !isInclusiveAncestor(root, p.Node) {
			return false
		}
		if p.Offset < 0 || p.Offset > nodeLength(p.Node) {
			return false
		}
	}
	return comparePoints(r.Start, r.End) <= 0
}

// Text returns the text content of the range.
func (r *Range) Text() string {
	var b strings.Builder
	for _, n := range r.cloneNodes() {
		walk(n, func(c *html.Node) {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		})
	}
	return b.String()
}

// CloneHTML serializes the contents of the range without modifying the
// document. Partially selected elements are cloned shallowly around
// their selected content.
func (r *Range) CloneHTML() (string, error) {
	var b strings.Builder
	for _, n := range r.cloneNodes() {
		if err := html.Render(&b, n); err != nil {
			return "", &prismlate.SelectionError{Message: "failed to render selection", Cause: err}
		}
	}
	return b.String(), nil
}

func (r *Range) cloneNodes() []*html.Node {
	if r.Collapsed() {
		return nil
	}
	if r.Start.Node == r.End.Node && r.Start.Node.Type == html.TextNode {
		return []*html.Node{textNode(runeSlice(r.Start.Node.Data, r.Start.Offset, r.End.Offset))}
	}

	c := commonAncestor(r.Start.Node, r.End.Node)
	var clone func(parent *html.Node) []*html.Node
	clone = func(parent *html.Node) []*html.Node {
		var out []*html.Node
		for child := parent.FirstChild; child != nil; child = child.NextSibling {
			switch r.relation(child) {
			case contained:
				out = append(out, deepClone(child))
			case partial:
				if child.Type == html.TextNode {
					from, to := r.textBounds(child)
					out = append(out, textNode(runeSlice(child.Data, from, to)))
					continue
				}
				shallow := shallowClone(child)
				for _, n := range clone(child) {
					shallow.AppendChild(n)
				}
				out = append(out, shallow)
			}
		}
		return out
	}
	return clone(c)
}

// DeleteContents removes the contents of the range from the document and
// returns the point where they were.
func (r *Range) DeleteContents() (Point, error) {
	if !r.IsAttached() {
		return Point{}, prismlate.ErrRangeDetached
	}
	if r.Collapsed() {
		return r.Start, nil
	}

	start, end := r.Start, r.End
	if start.Node == end.Node && start.Node.Type == html.TextNode {
		n := start.Node
		n.Data = runeSlice(n.Data, 0, start.Offset) + runeSlice(n.Data, end.Offset, -1)
		return start, nil
	}

	c := commonAncestor(start.Node, end.Node)

	// Insertion point: the start itself when it holds the end, otherwise
	// just after the child of the common ancestor that holds the start.
	var after *html.Node
	if !isInclusiveAncestor(start.Node, end.Node) {
		after = start.Node
		for after.Parent != c {
			after = after.Parent
		}
	}

	var remove []*html.Node
	var trim func(parent *html.Node)
	trim = func(parent *html.Node) {
		for child := parent.FirstChild; child != nil; child = child.NextSibling {
			switch r.relation(child) {
			case contained:
				remove = append(remove, child)
			case partial:
				if child.Type == html.TextNode {
					from, to := r.textBounds(child)
					child.Data = runeSlice(child.Data, 0, from) + runeSlice(child.Data, to, -1)
					continue
				}
				trim(child)
			}
		}
	}
	trim(c)

	for _, n := range remove {
		n.Parent.RemoveChild(n)
	}

	if after != nil {
		return Point{Node: c, Offset: childIndex(after) + 1}, nil
	}
	return start, nil
}

// InsertHTML parses fragment and inserts it at p. A text point is split
// so that the fragment lands between the two halves.
func (r *Range) InsertHTML(p Point, fragment string) ([]*html.Node, error) {
	parent, before := p.Node, (*html.Node)(nil)
	if p.Node.Type == html.TextNode {
		parent = p.Node.Parent
		if parent == nil {
			return nil, prismlate.ErrRangeDetached
		}
		switch {
		case p.Offset == 0:
			before = p.Node
		case p.Offset >= utf8.RuneCountInString(p.Node.Data):
			before = p.Node.NextSibling
		default:
			tail := textNode(runeSlice(p.Node.Data, p.Offset, -1))
			p.Node.Data = runeSlice(p.Node.Data, 0, p.Offset)
			parent.InsertBefore(tail, p.Node.NextSibling)
			before = tail
		}
	} else {
		before = childAt(parent, p.Offset)
	}

	ctxNode := parent
	if ctxNode.Type != html.ElementNode {
		ctxNode = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return nil, &prismlate.SelectionError{Message: "failed to parse translation", Cause: err}
	}
	for _, n := range nodes {
		parent.InsertBefore(n, before)
	}
	return nodes, nil
}

// Selection is what TranslateSelection operates on: an *InputSelection
// or a *RangeSelection.
type Selection interface {
	selection()
}

// InputSelection selects characters [Start, End) of a plain field.
type InputSelection struct {
	Field *Field
	Start int
	End   int
}

// RangeSelection selects a range of rich content.
type RangeSelection struct {
	Range *Range
}

func (*InputSelection) selection() {}
func (*RangeSelection) selection() {}

// SelectionResult reports the outcome of a selection translation.
type SelectionResult struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
	// Discarded is set when the range left the document before the
	// translation arrived. The document is unchanged.
	Discarded bool `json:"discarded,omitempty"`
}

// TranslateSelection translates the selected part of the document and
// writes it back in place. Only one selection translation runs at a time
// per document; a call made while another is in flight returns
// prismlate.ErrSelectionBusy without doing anything.
func (d *Document) TranslateSelection(ctx context.Context, gw prismlate.Gateway, req prismlate.Request, sel Selection) (*SelectionResult, error) {
	if !d.guard.TryAcquire() {
		return nil, prismlate.ErrSelectionBusy
	}
	defer d.guard.Release()

	switch s := sel.(type) {
	case *InputSelection:
		return d.translateInput(ctx, gw, req, s)
	case *RangeSelection:
		return d.translateRange(ctx, gw, req, s)
	default:
		return nil, &prismlate.SelectionError{Message: "no selection"}
	}
}

func (d *Document) translateInput(ctx context.Context, gw prismlate.Gateway, req prismlate.Request, s *InputSelection) (*SelectionResult, error) {
	if s.Field == nil || s.Field.Kind() == prismlate.ElementRichText {
		return nil, &prismlate.SelectionError{Message: "input selection needs a plain field"}
	}
	runes := []rune(s.Field.Text())
	if s.Start < 0 || s.End > len(runes) || s.Start >= s.End {
		return nil, &prismlate.SelectionError{Message: "selection out of range"}
	}

	selected := string(runes[s.Start:s.End])
	if strings.TrimSpace(selected) == "" {
		return nil, &prismlate.SelectionError{Message: "empty selection"}
	}

	req.Text = selected
	req.HTML = false
	translated, err := gw.Translate(ctx, req)
	if err != nil {
		return nil, &prismlate.SelectionError{Message: "translation failed", Cause: err}
	}
	if strings.TrimSpace(translated) == "" || translated == selected {
		return nil, &prismlate.SelectionError{Message: "nothing to write", Cause: prismlate.ErrEmptyTranslation}
	}
	translated = prismlate.RewriteLocalePaths(translated, req.TargetLang)

	// Re-read: the value may have changed while the translation was in flight.
	current := []rune(s.Field.Text())
	if s.End > len(current) || string(current[s.Start:s.End]) != selected {
		return &SelectionResult{Original: selected, Translated: translated, Discarded: true}, nil
	}

	s.Field.SetText(string(current[:s.Start]) + translated + string(current[s.End:]))
	s.Field.Dispatch(prismlate.EventInput)
	s.Field.Dispatch(prismlate.EventChange)

	return &SelectionResult{Original: selected, Translated: translated}, nil
}

func (d *Document) translateRange(ctx context.Context, gw prismlate.Gateway, req prismlate.Request, s *RangeSelection) (*SelectionResult, error) {
	r := s.Range
	if r == nil || r.Collapsed() {
		return nil, &prismlate.SelectionError{Message: "empty selection"}
	}

	original, err := r.CloneHTML()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Text()) == "" {
		return nil, &prismlate.SelectionError{Message: "empty selection"}
	}

	req.Text = original
	translated, err := prismlate.TranslateRichText(ctx, gw, req)
	if err != nil {
		return nil, &prismlate.SelectionError{Message: "translation failed", Cause: err}
	}

	if !r.IsAttached() {
		return &SelectionResult{Original: original, Translated: translated, Discarded: true}, nil
	}
	if strings.TrimSpace(translated) == "" || translated == original {
		return nil, &prismlate.SelectionError{Message: "nothing to write", Cause: prismlate.ErrEmptyTranslation}
	}
	translated = prismlate.RewriteLocalePaths(translated, req.TargetLang)

	scope := commonAncestor(r.Start.Node, r.End.Node)
	if scope.Type == html.TextNode {
		scope = scope.Parent
	}
	editor := d.editorOf(scope)
	affected := append(ancestorsBelow(r.Start.Node, scope), ancestorsBelow(r.End.Node, scope)...)

	at, err := r.DeleteContents()
	if err != nil {
		if errors.Is(err, prismlate.ErrRangeDetached) {
			return &SelectionResult{Original: original, Translated: translated, Discarded: true}, nil
		}
		return nil, err
	}
	inserted, err := r.InsertHTML(at, translated)
	if err != nil {
		return nil, err
	}
	prune(scope, affected, inserted)

	if editor != nil {
		editor.Dispatch(prismlate.EventInput)
		editor.Dispatch(prismlate.EventChange)
	}

	return &SelectionResult{Original: original, Translated: translated}, nil
}

// editorOf returns the content-editable field holding n, if any.
func (d *Document) editorOf(n *html.Node) *Field {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && hasAttr(p, "contenteditable") &&
			!strings.EqualFold(attr(p, "contenteditable"), "false") {
			return d.Field(p)
		}
	}
	return nil
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true,
}

var contentElements = map[atom.Atom]bool{
	atom.Img: true, atom.Iframe: true, atom.Video: true, atom.Audio: true,
	atom.Embed: true, atom.Object: true, atom.Input: true, atom.Textarea: true, atom.Hr: true,
}

// ancestorsBelow returns the elements from n up to, but excluding, scope,
// deepest first.
func ancestorsBelow(n, scope *html.Node) []*html.Node {
	var out []*html.Node
	for p := n; p != nil && p != scope; p = p.Parent {
		if p.Type == html.ElementNode {
			out = append(out, p)
		}
	}
	return out
}

// prune cleans up after a selection write. Elements on the range
// boundaries that were emptied are removed; inserted markup is pruned as
// a whole. Content elsewhere under scope is left alone, blank paragraphs
// included. scope itself and editor roots are never removed.
func prune(scope *html.Node, touched, inserted []*html.Node) {
	for _, n := range touched {
		if !prunable(scope, n) {
			continue
		}
		tidy(n)
		if blockElements[n.DataAtom] && !hasAttr(n, "contenteditable") && isEmpty(n) {
			n.Parent.RemoveChild(n)
		}
	}

	var neighbours []*html.Node
	for _, n := range inserted {
		neighbours = append(neighbours, n.PrevSibling, n.NextSibling)
		if !prunable(scope, n) {
			continue
		}
		pruneEmpty(n)
		if blockElements[n.DataAtom] && isEmpty(n) {
			n.Parent.RemoveChild(n)
		}
	}

	// Text nodes emptied by the delete may sit next to the inserted markup.
	for _, n := range neighbours {
		if n != nil && n.Parent != nil && n.Type == html.TextNode && n.Data == "" {
			n.Parent.RemoveChild(n)
		}
	}
	removeEmptyText(scope)
	if !hasAttr(scope, "contenteditable") {
		dropTrailingBreak(scope)
	}
}

func prunable(scope, n *html.Node) bool {
	return n != nil && n != scope && n.Parent != nil && n.Type == html.ElementNode &&
		isInclusiveAncestor(scope, n)
}

// tidy removes the empty text children of n and, for a block, a line
// break trailing its content.
func tidy(n *html.Node) {
	removeEmptyText(n)
	dropTrailingBreak(n)
}

func removeEmptyText(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && c.Data == "" {
			n.RemoveChild(c)
		}
		c = next
	}
}

// pruneEmpty removes, below root, empty text nodes, block elements left
// without content and line breaks trailing a block's content.
func pruneEmpty(root *html.Node) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode && c.Data == "":
			root.RemoveChild(c)
		case c.Type == html.ElementNode:
			pruneEmpty(c)
			if blockElements[c.DataAtom] && isEmpty(c) {
				root.RemoveChild(c)
			}
		}
		c = next
	}

	dropTrailingBreak(root)
}

// dropTrailingBreak removes a <br> ending a block that has other content.
func dropTrailingBreak(n *html.Node) {
	if n.Type != html.ElementNode || !blockElements[n.DataAtom] {
		return
	}
	last := n.LastChild
	for last != nil && last.Type == html.TextNode && strings.TrimSpace(last.Data) == "" {
		last = last.PrevSibling
	}
	if last != nil && last.DataAtom == atom.Br && last.PrevSibling != nil {
		n.RemoveChild(last)
	}
}

// isEmpty reports whether n holds no text and no embedded content.
func isEmpty(n *html.Node) bool {
	empty := true
	walk(n, func(c *html.Node) {
		switch {
		case c == n:
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) != "":
			empty = false
		case c.Type == html.ElementNode && contentElements[c.DataAtom]:
			empty = false
		}
	})
	return empty
}

type relation int

const (
	outside relation = iota
	contained
	partial
)

// relation classifies a node against the range.
func (r *Range) relation(n *html.Node) relation {
	before := Point{Node: n.Parent, Offset: childIndex(n)}
	after := Point{Node: n.Parent, Offset: before.Offset + 1}

	if comparePoints(after, r.Start) <= 0 || comparePoints(before, r.End) >= 0 {
		return outside
	}
	if comparePoints(before, r.Start) >= 0 && comparePoints(after, r.End) <= 0 {
		return contained
	}
	return partial
}

// textBounds returns the selected character span of a partially
// selected text node.
func (r *Range) textBounds(n *html.Node) (int, int) {
	from, to := 0, utf8.RuneCountInString(n.Data)
	if r.Start.Node == n {
		from = r.Start.Offset
	}
	if r.End.Node == n {
		to = r.End.Offset
	}
	return from, to
}

// comparePoints returns -1, 0 or 1 as a is before, equal to or after b.
func comparePoints(a, b Point) int {
	if a.Node == b.Node {
		return compareInt(a.Offset, b.Offset)
	}
	if isInclusiveAncestor(a.Node, b.Node) {
		child := b.Node
		for child.Parent != a.Node {
			child = child.Parent
		}
		if a.Offset <= childIndex(child) {
			return -1
		}
		return 1
	}
	if isInclusiveAncestor(b.Node, a.Node) {
		return -comparePoints(b, a)
	}
	return compareTreeOrder(a.Node, b.Node)
}

func compareTreeOrder(a, b *html.Node) int {
	pa, pb := pathTo(a), pathTo(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return compareInt(pa[i], pb[i])
		}
	}
	return compareInt(len(pa), len(pb))
}

// pathTo returns the child indexes leading from the root to n.
func pathTo(n *html.Node) []int {
	var path []int
	for ; n.Parent != nil; n = n.Parent {
		path = append(path, childIndex(n))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isInclusiveAncestor(a, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == a {
			return true
		}
	}
	return false
}

func commonAncestor(a, b *html.Node) *html.Node {
	for p := a; p != nil; p = p.Parent {
		if isInclusiveAncestor(p, b) {
			return p
		}
	}
	return nil
}

func childIndex(n *html.Node) int {
	i := 0
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		i++
	}
	return i
}

func childAt(n *html.Node, i int) *html.Node {
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

// nodeLength is the number of characters of a text node or the number
// of children of an element.
func nodeLength(n *html.Node) int {
	if n.Type == html.TextNode {
		return utf8.RuneCountInString(n.Data)
	}
	cnt := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cnt++
	}
	return cnt
}

// runeSlice returns the characters [from, to) of s; to < 0 means the end.
func runeSlice(s string, from, to int) string {
	runes := []rune(s)
	if to < 0 || to > len(runes) {
		to = len(runes)
	}
	if from > to {
		from = to
	}
	return string(runes[from:to])
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func shallowClone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	return c
}

func deepClone(n *html.Node) *html.Node {
	c := shallowClone(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(deepClone(child))
	}
	return c
}
