package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/prismlate"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// labelContainerClass marks the wrapper the CMS puts around a field and
// its label.
const labelContainerClass = "_root_1yilc_1"

// highlightClassPrefix prefixes the class applied by Highlight.
const highlightClassPrefix = "prismlate-"

// Field is an editable element of a Document.
type Field struct {
	doc  *Document
	node *html.Node
}

// Node returns the underlying element.
func (f *Field) Node() *html.Node {
	return f.node
}

// ID returns the element id, or its name, or its tag.
func (f *Field) ID() string {
	if id := attr(f.node, "id"); id != "" {
		return id
	}
	if name := attr(f.node, "name"); name != "" {
		return name
	}
	return f.node.Data
}

// Kind returns the kind of element backing the field.
func (f *Field) Kind() prismlate.ElementKind {
	switch f.node.DataAtom {
	case atom.Input:
		return prismlate.ElementInput
	case atom.Textarea:
		return prismlate.ElementTextarea
	default:
		return prismlate.ElementRichText
	}
}

// Text returns the value of an input, the text of a textarea or the
// inner HTML of a content-editable element.
func (f *Field) Text() string {
	sel := goquery.NewDocumentFromNode(f.node).Selection
	switch f.Kind() {
	case prismlate.ElementInput:
		return attr(f.node, "value")
	case prismlate.ElementTextarea:
		return sel.Text()
	default:
		out, err := sel.Html()
		if err != nil {
			return ""
		}
		return out
	}
}

// SetText replaces the field value. For content-editable elements text
// is parsed as HTML in the context of the element.
func (f *Field) SetText(text string) {
	switch f.Kind() {
	case prismlate.ElementInput:
		setAttr(f.node, "value", text)
	case prismlate.ElementTextarea:
		removeChildren(f.node)
		f.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	default:
		nodes, err := html.ParseFragment(strings.NewReader(text), f.node)
		removeChildren(f.node)
		if err != nil {
			f.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
			return
		}
		for _, n := range nodes {
			f.node.AppendChild(n)
		}
	}
}

// Attributes returns a snapshot of the attributes used for skipping and
// classification.
func (f *Field) Attributes() prismlate.Attributes {
	n := f.node
	id := attr(n, "id")
	return prismlate.Attributes{
		ID:          id,
		Name:        attr(n, "name"),
		AriaLabel:   attr(n, "aria-label"),
		DataLabel:   attr(n, "data-label"),
		Placeholder: attr(n, "placeholder"),
		Label:       f.Label(),
		Type:        attr(n, "type"),
		InputMode:   attr(n, "inputmode"),
		TestID:      closestAttr(n, "data-testid"),
		FieldType:   closestAttr(n, "data-field-type"),
		Classes:     strings.Fields(attr(n, "class")),
		Tag:         n.Data,
		Element:     f.Kind(),
		Value:       f.Text(),
		InGroup:     f.InGroup(),
	}
}

// Label returns the text of the label bound to the field, or of the
// first label in its container.
func (f *Field) Label() string {
	if id := attr(f.node, "id"); id != "" {
		if text := f.doc.labelFor(id); text != "" {
			return text
		}
	}

	container := f.node.Parent
	for p := f.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && hasClass(p, labelContainerClass) {
			container = p
			break
		}
	}
	if container == nil {
		return ""
	}
	return goquery.NewDocumentFromNode(container).Find("label").First().Text()
}

// InGroup reports whether the field belongs to a repeating group item.
func (f *Field) InGroup() bool {
	id := attr(f.node, "id")
	if strings.Contains(id, "[") && strings.Contains(id, "]") {
		return true
	}
	for p := f.node.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Li && p.Parent != nil &&
			p.Parent.DataAtom == atom.Ul && attr(p.Parent, "aria-label") == "Group" {
			return true
		}
	}
	return false
}

// IsVisible reports whether neither the field nor an ancestor is hidden
// by attribute or inline style.
func (f *Field) IsVisible() bool {
	if f.node.DataAtom == atom.Input && strings.EqualFold(attr(f.node, "type"), "hidden") {
		return false
	}
	for n := f.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if hasAttr(n, "hidden") || attr(n, "aria-hidden") == "true" {
			return false
		}
		if hiddenByStyle(attr(n, "style")) {
			return false
		}
	}
	return true
}

// IsEditable reports whether the field is neither disabled nor read-only.
func (f *Field) IsEditable() bool {
	n := f.node
	if hasAttr(n, "disabled") || hasAttr(n, "readonly") {
		return false
	}
	if f.Kind() == prismlate.ElementRichText && strings.EqualFold(attr(n, "contenteditable"), "false") {
		return false
	}
	return true
}

// Dispatch records the notification on the document and calls its listeners.
func (f *Field) Dispatch(ev prismlate.EventType) {
	f.doc.dispatch(f, ev)
}

// Highlight marks the element with a "prismlate-<state>" class,
// replacing any earlier highlight.
func (f *Field) Highlight(state prismlate.HighlightState) {
	var classes []string
	for _, c := range strings.Fields(attr(f.node, "class")) {
		if !strings.HasPrefix(c, highlightClassPrefix) {
			classes = append(classes, c)
		}
	}
	classes = append(classes, highlightClassPrefix+string(state))
	setAttr(f.node, "class", strings.Join(classes, " "))
}

// hiddenByStyle reports whether an inline style hides the element.
func hiddenByStyle(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		switch prop {
		case "display":
			if val == "none" {
				return true
			}
		case "visibility":
			if val == "hidden" || val == "collapse" {
				return true
			}
		case "opacity":
			if val == "0" || val == "0.0" {
				return true
			}
		case "width", "height":
			if val == "0" || val == "0px" {
				return true
			}
		}
	}
	return false
}

func closestAttr(n *html.Node, key string) string {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if v := attr(p, key); v != "" {
				return v
			}
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

var (
	_ prismlate.Field       = (*Field)(nil)
	_ prismlate.Highlighter = (*Field)(nil)
)
