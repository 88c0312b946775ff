// Package prismlate translates the editable fields of CMS edit pages.
package prismlate

// ElementKind is the kind of editable element backing a field.
type ElementKind string

const (
	// ElementInput is a single-line <input>.
	ElementInput ElementKind = "input"
	// ElementTextarea is a multi-line <textarea>.
	ElementTextarea ElementKind = "textarea"
	// ElementRichText is a content-editable container holding HTML.
	ElementRichText ElementKind = "richtext"
)

// FieldKind classifies a field for the user-facing translation toggles.
type FieldKind string

const (
	KindRichText FieldKind = "richtext"
	KindTitle    FieldKind = "title"
	KindAltText  FieldKind = "alttext"
	KindTag      FieldKind = "tag"
	KindText     FieldKind = "text"
)

// EventType is a change notification dispatched after a write.
type EventType string

const (
	// EventInput mirrors the DOM "input" event.
	EventInput EventType = "input"
	// EventChange mirrors the DOM "change" event.
	EventChange EventType = "change"
)

// HighlightState is the visual feedback applied to a field.
type HighlightState string

const (
	HighlightSuccess HighlightState = "success"
	HighlightError   HighlightState = "error"
	HighlightPreview HighlightState = "preview"
)

// Attributes is a snapshot of the attributes a field exposes to the
// skip rules and the classifier. All string values are as found in the
// document; the rules lower-case them as needed.
type Attributes struct {
	ID          string
	Name        string
	AriaLabel   string
	DataLabel   string
	Placeholder string
	Label       string // Text of the bound or nearest label
	Type        string // Input type attribute ("text", "email", "number", ...)
	InputMode   string
	TestID      string // data-testid
	FieldType   string // data-field-type
	Classes     []string
	Tag         string // Lower-case element name
	Element     ElementKind
	Value       string // Current text (plain value or HTML)
	InGroup     bool   // Field lives inside a repeating group item
}

// HasClass reports whether the snapshot carries the given CSS class.
func (a Attributes) HasClass(class string) bool {
	for _, c := range a.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// FieldOptions are the per-kind translation toggles.
type FieldOptions struct {
	TranslateRichText  bool `json:"translateRichText" yaml:"translateRichText" mapstructure:"translate_rich_text"`
	TranslateTitles    bool `json:"translateTitles" yaml:"translateTitles" mapstructure:"translate_titles"`
	TranslateAltText   bool `json:"translateAltText" yaml:"translateAltText" mapstructure:"translate_alt_text"`
	TranslateTags      bool `json:"translateTags" yaml:"translateTags" mapstructure:"translate_tags"`
	PreserveFormatting bool `json:"preserveFormatting" yaml:"preserveFormatting" mapstructure:"preserve_formatting"`
}

// DefaultFieldOptions enables every toggle except tags.
func DefaultFieldOptions() FieldOptions {
	return FieldOptions{
		TranslateRichText:  true,
		TranslateTitles:    true,
		TranslateAltText:   true,
		PreserveFormatting: true,
	}
}

// Allows reports whether fields of the given kind may be translated.
func (o FieldOptions) Allows(kind FieldKind) bool {
	switch kind {
	case KindRichText:
		return o.TranslateRichText
	case KindTitle:
		return o.TranslateTitles
	case KindAltText:
		return o.TranslateAltText
	case KindTag:
		return o.TranslateTags
	default:
		return true
	}
}

// Progress is emitted as a run advances through its fields.
type Progress struct {
	Percent int    `json:"percent"`
	Status  string `json:"statusText"`
}

// ProgressFunc receives progress events. It must not block.
type ProgressFunc func(Progress)

// RunResult is the outcome of a whole-document translation run.
type RunResult struct {
	RunID            string        `json:"runId"`
	Success          bool          `json:"success"`
	FieldsTranslated int           `json:"fieldsTranslated"`
	TotalFields      int           `json:"totalFields"`
	PathsRewritten   int           `json:"pathsRewritten"`
	CachedCount      int           `json:"cachedCount"`
	Errors           []string      `json:"errors"`
	Warning          string        `json:"warning,omitempty"`
	Cancelled        bool          `json:"cancelled,omitempty"`
	Changes          *ChangeSet    `json:"-"`
	FieldErrors      []*FieldError `json:"-"`
}
