package prismlate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Runner translates the fields of a document one at a time.
type Runner struct {
	targetLang   string
	sourceLang   string
	gateway      Gateway
	cache        TranslationCache
	context      string
	service      string
	fieldOptions FieldOptions
	charLimit    int
	fieldDelay   time.Duration
	keepHidden   bool
	logger       *zap.Logger
	observer     Observer
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Observer receives run events, typically to record metrics.
type Observer interface {
	FieldTranslated(kind FieldKind)
	FieldFailed(kind FieldKind)
	FieldRewritten(kind FieldKind)
	RunFinished(result *RunResult, elapsed time.Duration)
}

// RunnerOption is a functional option for configuring the Runner.
type RunnerOption func(*Runner)

// WithSourceLang sets the source language ("auto" detects it per run).
func WithSourceLang(lang string) RunnerOption {
	return func(r *Runner) {
		r.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) RunnerOption {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithContext sets the user context passed to the gateway with every request.
func WithContext(ctx string) RunnerOption {
	return func(r *Runner) {
		r.context = ctx
	}
}

// WithServiceName names the translation service. It scopes cache keys.
func WithServiceName(name string) RunnerOption {
	return func(r *Runner) {
		r.service = name
	}
}

// WithFieldOptions sets the per-kind translation toggles.
func WithFieldOptions(opts FieldOptions) RunnerOption {
	return func(r *Runner) {
		r.fieldOptions = opts
	}
}

// WithCharLimit sets the character budget for a single request.
func WithCharLimit(limit int) RunnerOption {
	return func(r *Runner) {
		if limit > 0 {
			r.charLimit = limit
		}
	}
}

// WithFieldDelay sets a pause between fields to spare the provider.
func WithFieldDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.fieldDelay = d
	}
}

// WithHiddenFields keeps fields the visibility filter would drop.
func WithHiddenFields(keep bool) RunnerOption {
	return func(r *Runner) {
		r.keepHidden = keep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the run observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// NewRunner creates a Runner translating into targetLang through gw.
func NewRunner(targetLang string, gw Gateway, opts ...RunnerOption) *Runner {
	r := &Runner{
		targetLang:   targetLang,
		sourceLang:   AutoLang,
		gateway:      gw,
		fieldOptions: DefaultFieldOptions(),
		charLimit:    DefaultCharLimit,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// TargetLang returns the target language.
func (r *Runner) TargetLang() string {
	return r.targetLang
}

// SourceLang returns the configured source language.
func (r *Runner) SourceLang() string {
	return r.sourceLang
}

// Locate returns the fields the runner would translate in src.
func (r *Runner) Locate(src CandidateSource) []Field {
	return Locate(src, LocateOptions{
		Fields:     r.fieldOptions,
		KeepHidden: r.keepHidden,
		Logger:     r.logger,
	})
}

// Translate runs a whole-document pass over src. Fields are processed
// strictly in order, each translation awaited before the next field is
// read. A failing field is recorded and left untouched; only an empty
// discovery fails the run. If run is nil a fresh one is created.
func (r *Runner) Translate(ctx context.Context, run *Run, src CandidateSource, progress ProgressFunc) (*RunResult, error) {
	start := time.Now()
	if run == nil {
		run = NewRun()
	}
	log := r.logger.With(zap.String("run_id", run.ID()))

	fields := r.Locate(src)
	if len(fields) == 0 {
		log.Warn("no translatable fields found")
		return nil, ErrNoFields
	}

	source := ResolveSourceLang(r.sourceLang, sampleText(fields))
	log.Info("translation started",
		zap.Int("fields", len(fields)),
		zap.String("source", source),
		zap.String("target", r.targetLang),
	)

	result := &RunResult{
		RunID:       run.ID(),
		TotalFields: len(fields),
		Errors:      []string{},
		Changes:     &ChangeSet{},
	}

	for i, f := range fields {
		if run.Cancelled() || ctx.Err() != nil {
			result.Cancelled = true
			log.Info("translation stopped", zap.Int("field", i+1))
			break
		}

		r.translateField(ctx, i+1, f, source, result, log)

		if progress != nil {
			progress(Progress{
				Percent: (i + 1) * 100 / len(fields),
				Status:  fmt.Sprintf("Translated %d of %d fields", i+1, len(fields)),
			})
		}

		if r.fieldDelay > 0 && i < len(fields)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(r.fieldDelay):
			}
		}
	}

	result.Success = true
	if n := len(result.Errors); n > 0 {
		result.Warning = fmt.Sprintf("%d fields failed to translate", n)
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.RunFinished(result, elapsed)
	}
	log.Info("translation finished",
		zap.Int("translated", result.FieldsTranslated),
		zap.Int("failed", len(result.Errors)),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// translateField translates and writes a single field, recording the
// outcome on result.
func (r *Runner) translateField(ctx context.Context, index int, f Field, source string, result *RunResult, log *zap.Logger) {
	original := f.Text()
	if strings.TrimSpace(original) == "" {
		return
	}

	attrs := f.Attributes()
	kind := Classify(attrs)
	id := fieldID(f)

	if attrs.Element != ElementRichText && IsLocalePath(original) {
		r.rewriteOnly(index, f, kind, result)
		return
	}

	req := Request{
		Text:       original,
		SourceLang: source,
		TargetLang: r.targetLang,
		Context:    r.context,
		FieldHint:  strings.TrimSpace(attrs.Label),
	}

	translated, cached, err := r.translateText(ctx, req, attrs.Element == ElementRichText)
	if err != nil {
		fe := &FieldError{Index: index, FieldID: id, Cause: err}
		result.Errors = append(result.Errors, fe.Error())
		result.FieldErrors = append(result.FieldErrors, fe)
		result.Changes.Failed = append(result.Changes.Failed, index)
		highlight(f, HighlightError)
		if r.observer != nil {
			r.observer.FieldFailed(kind)
		}
		log.Warn("field translation failed", zap.Int("field", index), zap.String("id", id), zap.Error(err))
		return
	}
	result.CachedCount += cached

	if strings.TrimSpace(translated) == "" || translated == original {
		log.Debug("translation unchanged", zap.Int("field", index), zap.String("id", id))
		if RewriteLocalePaths(original, r.targetLang) != original {
			r.rewriteOnly(index, f, kind, result)
		}
		return
	}

	if attrs.Element != ElementRichText && r.fieldOptions.PreserveFormatting {
		translated = preserveWhitespace(original, strings.TrimSpace(translated))
	}

	out := Write(f, translated, r.targetLang)
	result.FieldsTranslated++
	result.Changes.record(FieldChange{Index: index, FieldID: id, Kind: kind, Before: out.Before, After: out.After})
	highlight(f, HighlightSuccess)
	if r.observer != nil {
		r.observer.FieldTranslated(kind)
	}
	log.Debug("field translated", zap.Int("field", index), zap.String("id", id))
}

func (r *Runner) rewriteOnly(index int, f Field, kind FieldKind, result *RunResult) {
	out := RewritePaths(f, r.targetLang)
	if !out.Changed {
		return
	}
	result.PathsRewritten++
	result.Changes.record(FieldChange{
		Index:    index,
		FieldID:  fieldID(f),
		Kind:     kind,
		Before:   out.Before,
		After:    out.After,
		PathOnly: true,
	})
	if r.observer != nil {
		r.observer.FieldRewritten(kind)
	}
}

// translateText translates a field's text, splitting it into chunks when
// it exceeds the character budget. Plain chunks are joined with a blank
// line; rich-text chunks are split and joined on top-level node boundaries.
func (r *Runner) translateText(ctx context.Context, req Request, rich bool) (string, int, error) {
	cached := 0
	gw := r.cachingGateway(&cached)

	if rich {
		if utf8.RuneCountInString(req.Text) <= r.charLimit {
			out, err := TranslateRichText(ctx, gw, req)
			return out, cached, err
		}
		blocks, err := SplitHTMLBlocks(req.Text, r.charLimit)
		if err != nil {
			return "", cached, err
		}
		var b strings.Builder
		anyChanged := false
		for _, block := range blocks {
			chunkReq := req
			chunkReq.Text = block
			out, changed, err := translateRichText(ctx, gw, chunkReq)
			if err != nil {
				return "", cached, err
			}
			anyChanged = anyChanged || changed
			b.WriteString(out)
		}
		if !anyChanged {
			// Re-rendered blocks may differ from the field's markup.
			return req.Text, cached, nil
		}
		return b.String(), cached, nil
	}

	chunks := []string{req.Text}
	if utf8.RuneCountInString(req.Text) > r.charLimit {
		chunks = SplitLargeText(req.Text, r.charLimit)
	}
	translated := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkReq := req
		chunkReq.Text = chunk
		out, err := gw.Translate(ctx, chunkReq)
		if err != nil {
			return "", cached, err
		}
		translated[i] = out
	}
	return JoinChunks(translated), cached, nil
}

// cachingGateway wraps the gateway with the runner's cache, counting hits.
func (r *Runner) cachingGateway(hits *int) Gateway {
	return GatewayFunc(func(ctx context.Context, req Request) (string, error) {
		if r.gateway == nil {
			return "", &TranslationError{Message: "no translation gateway configured"}
		}

		key := CacheKey(HashText(req.Text), req.SourceLang, req.TargetLang, r.service)
		if r.cache != nil {
			if v, ok := r.cache.Get(key); ok {
				*hits++
				return v, nil
			}
		}

		out, err := r.gateway.Translate(ctx, req)
		if err != nil {
			return "", err
		}

		if r.cache != nil && strings.TrimSpace(out) != "" {
			_ = r.cache.Set(key, out) // Ignore cache set errors
		}
		return out, nil
	})
}

// FieldSummary describes a field found by Preview.
type FieldSummary struct {
	Index int       `json:"index"`
	ID    string    `json:"id"`
	Kind  FieldKind `json:"kind"`
	Label string    `json:"label,omitempty"`
	Chars int       `json:"chars"`
}

// PreviewResult lists the fields a run would translate.
type PreviewResult struct {
	FieldsFound int            `json:"fieldsFound"`
	Batches     int            `json:"batches"`
	Fields      []FieldSummary `json:"fields"`
}

// Preview highlights and lists the fields a run would translate without
// calling the gateway.
func (r *Runner) Preview(src CandidateSource) (*PreviewResult, error) {
	fields := r.Locate(src)
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	res := &PreviewResult{FieldsFound: len(fields)}
	for i, f := range fields {
		highlight(f, HighlightPreview)
		attrs := f.Attributes()
		res.Fields = append(res.Fields, FieldSummary{
			Index: i + 1,
			ID:    fieldID(f),
			Kind:  Classify(attrs),
			Label: strings.TrimSpace(attrs.Label),
			Chars: utf8.RuneCountInString(f.Text()),
		})
	}
	res.Batches = len(CreateBatches(fields, r.charLimit))
	return res, nil
}

// sampleText collects up to a few hundred characters of plain text from
// fields for language detection.
func sampleText(fields []Field) string {
	const max = 400
	var b strings.Builder
	for _, f := range fields {
		if b.Len() >= max {
			break
		}
		text := f.Text()
		if f.Attributes().Element == ElementRichText {
			text = stripTags(text)
		}
		if IsLocalePath(text) {
			continue
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteByte(' ')
	}
	return b.String()
}

// stripTags returns the text content of an HTML fragment.
func stripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}

// preserveWhitespace preserves the original leading/trailing whitespace.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r"))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, " \t\n\r"))
	trailing := ""
	if trailingLen > 0 {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}
