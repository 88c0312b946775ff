package prismlate

// WriteOutcome describes what a write did to a field.
type WriteOutcome struct {
	// PathOnly is set when the field held a localized link and only its
	// prefix was rewritten.
	PathOnly bool
	// Changed is set when the field value differs from before the write.
	Changed bool
	Before  string
	After   string
}

// Write stores translated into f for the target language and dispatches
// input and change notifications, as if a user had typed the value.
//
// Localized-path segments are rewritten to the target's code in both
// plain values and rich-text HTML. A plain field whose current value is a
// localized link keeps its value apart from the rewritten prefix;
// translated is ignored for it.
func Write(f Field, translated, target string) WriteOutcome {
	before := f.Text()
	out := WriteOutcome{Before: before}

	var value string
	if f.Attributes().Element != ElementRichText && IsLocalePath(before) {
		value = RewriteLocalePaths(before, target)
		out.PathOnly = true
	} else {
		value = RewriteLocalePaths(translated, target)
	}

	f.SetText(value)
	f.Dispatch(EventInput)
	f.Dispatch(EventChange)

	out.After = f.Text()
	out.Changed = out.After != before
	return out
}

// RewritePaths rewrites the localized-path segments of the field's
// current value without translating it.
func RewritePaths(f Field, target string) WriteOutcome {
	return Write(f, f.Text(), target)
}
