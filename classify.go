package prismlate

import "strings"

// Classify returns the kind of a field. Rich-text markers are checked
// first, then title, alt-text and tag markers; anything else is text.
func Classify(a Attributes) FieldKind {
	testID := strings.ToLower(a.TestID)
	placeholder := strings.ToLower(a.Placeholder)
	id := strings.ToLower(a.ID)
	label := strings.ToLower(a.Label)

	if a.HasClass("tiptap") || a.HasClass("ProseMirror") ||
		strings.Contains(testID, "rich-text") ||
		a.FieldType == "StructuredText" ||
		(a.Element == ElementRichText && a.Tag == "div") {
		return KindRichText
	}

	if strings.Contains(testID, "title") || a.FieldType == "Title" ||
		strings.Contains(id, "title") || strings.Contains(label, "title") {
		return KindTitle
	}

	if isAltTextHint(placeholder, label) {
		return KindAltText
	}

	if strings.Contains(placeholder, "tag") || strings.Contains(id, "tag") ||
		strings.Contains(label, "tag") {
		return KindTag
	}

	return KindText
}
