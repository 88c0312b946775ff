package prismlate

import (
	"regexp"
	"strings"
)

// SkipReason names the rule that excluded a field.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipForbiddenKeyword SkipReason = "forbidden_keyword"
	SkipLink             SkipReason = "link"
	SkipEmail            SkipReason = "email"
	SkipNumeric          SkipReason = "numeric"
	SkipTooShort         SkipReason = "too_short"
	SkipIdentifier       SkipReason = "identifier"
	SkipNameField        SkipReason = "name_field"
)

// SkipDecision is the result of evaluating the skip rules.
type SkipDecision struct {
	Skip   bool
	Reason SkipReason
}

// ForbiddenKeywords mark technical fields that must never be translated.
var ForbiddenKeywords = []string{
	"uid",
	"youtube",
	"video id",
	"slug",
	"guid",
	"vimeo",
	"wistia",
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ShouldSkip reports whether a field must be left untranslated.
// Rules are evaluated in order and the first match wins; alt-text
// fields are never skipped.
func ShouldSkip(a Attributes) SkipDecision {
	id := strings.ToLower(a.ID)
	name := strings.ToLower(a.Name)
	ariaLabel := strings.ToLower(a.AriaLabel)
	dataLabel := strings.ToLower(a.DataLabel)
	placeholder := strings.ToLower(a.Placeholder)
	label := strings.ToLower(strings.TrimSpace(a.Label))
	value := a.Value

	if isAltTextHint(placeholder, label) {
		return SkipDecision{}
	}

	for _, kw := range ForbiddenKeywords {
		if strings.Contains(id, kw) || strings.Contains(name, kw) ||
			strings.Contains(ariaLabel, kw) || strings.Contains(dataLabel, kw) ||
			strings.Contains(label, kw) {
			return skip(SkipForbiddenKeyword)
		}
	}

	if strings.Contains(id, "link") || strings.Contains(id, "url") ||
		strings.Contains(label, "link") || strings.Contains(label, "url") ||
		strings.Contains(placeholder, "http") ||
		(!a.InGroup && (strings.HasPrefix(value, "http") || strings.HasPrefix(value, "/"))) {
		return skip(SkipLink)
	}

	if strings.EqualFold(a.Type, "email") ||
		strings.Contains(placeholder, "email") || strings.Contains(label, "email") {
		return skip(SkipEmail)
	}

	if strings.EqualFold(a.Type, "number") || strings.EqualFold(a.InputMode, "numeric") {
		return skip(SkipNumeric)
	}

	if n := len([]rune(value)); n > 0 && n < 3 && !a.InGroup {
		return skip(SkipTooShort)
	}

	if len(value) < 20 && !a.InGroup && identifierPattern.MatchString(value) {
		return skip(SkipIdentifier)
	}

	if label == "name" || strings.TrimSpace(placeholder) == "name" {
		return skip(SkipNameField)
	}

	return SkipDecision{}
}

func skip(reason SkipReason) SkipDecision {
	return SkipDecision{Skip: true, Reason: reason}
}

// isAltTextHint reports whether placeholder or label text marks an
// image alt-text field.
func isAltTextHint(placeholder, label string) bool {
	return strings.Contains(placeholder, "alt text") ||
		strings.Contains(placeholder, "alt-text") ||
		strings.Contains(placeholder, "short description for the visually impaired") ||
		strings.Contains(label, "alt text")
}
