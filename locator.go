package prismlate

import "go.uber.org/zap"

// LocateOptions controls field discovery.
type LocateOptions struct {
	Fields FieldOptions
	// KeepHidden disables the visibility filter. Documents parsed from
	// static HTML carry no layout, so callers may opt out.
	KeepHidden bool
	Logger     *zap.Logger
}

// Locate returns the translatable fields of src in document order of
// first appearance. Candidates are deduplicated by identity before the
// visibility, interactability, skip and kind filters run.
func Locate(src CandidateSource, opts LocateOptions) []Field {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	seen := make(map[Field]struct{})
	var fields []Field
	for _, f := range src.Candidates() {
		if f == nil {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}

		if !opts.KeepHidden && !f.IsVisible() {
			log.Debug("field not visible", zap.String("field", fieldID(f)))
			continue
		}
		if !f.IsEditable() {
			log.Debug("field not editable", zap.String("field", fieldID(f)))
			continue
		}

		attrs := f.Attributes()
		if d := ShouldSkip(attrs); d.Skip {
			log.Debug("field skipped",
				zap.String("field", fieldID(f)),
				zap.String("reason", string(d.Reason)),
			)
			continue
		}

		kind := Classify(attrs)
		if !opts.Fields.Allows(kind) {
			log.Debug("field kind disabled",
				zap.String("field", fieldID(f)),
				zap.String("kind", string(kind)),
			)
			continue
		}

		fields = append(fields, f)
	}
	return fields
}
