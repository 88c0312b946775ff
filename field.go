package prismlate

// Field is a single editable unit of content in a host page.
//
// Implementations must hand out one value per underlying element so that
// fields can be deduplicated by identity. Pointer receivers satisfy this.
type Field interface {
	// Text returns the current plain value, or the inner HTML for rich text.
	Text() string
	// SetText replaces the current value (or inner HTML for rich text).
	SetText(text string)
	// Attributes returns a snapshot of the field's attributes.
	Attributes() Attributes
	// IsVisible reports whether the field is rendered.
	IsVisible() bool
	// IsEditable reports whether the field is neither disabled nor read-only.
	IsEditable() bool
	// Dispatch notifies host-page logic that the value changed.
	Dispatch(event EventType)
}

// Highlighter is implemented by fields that can show visual feedback.
type Highlighter interface {
	Highlight(state HighlightState)
}

// CandidateSource yields candidate fields in document order.
// Candidates may contain duplicates; Locate removes them.
type CandidateSource interface {
	Candidates() []Field
}

// highlight applies state when the field supports it.
func highlight(f Field, state HighlightState) {
	if h, ok := f.(Highlighter); ok {
		h.Highlight(state)
	}
}

// fieldID returns a printable identifier for logs and reports.
func fieldID(f Field) string {
	a := f.Attributes()
	switch {
	case a.ID != "":
		return a.ID
	case a.Name != "":
		return a.Name
	default:
		return a.Tag
	}
}
