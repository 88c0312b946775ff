package prismlate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu         sync.Mutex
	translated int
	failed     int
	rewritten  int
	finished   *RunResult
}

func (o *recordingObserver) FieldTranslated(FieldKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.translated++
}

func (o *recordingObserver) FieldFailed(FieldKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func (o *recordingObserver) FieldRewritten(FieldKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rewritten++
}

func (o *recordingObserver) RunFinished(r *RunResult, _ time.Duration) {
	o.mu.Lock()
	o.finished = r
	o.mu.Unlock()
}

func fiveFields() []*fakeField {
	return []*fakeField{
		newInput("f.one", "First field text"),
		newInput("f.two", "Second field text"),
		newInput("f.three", "Third field text"),
		newInput("f.four", "Fourth field text"),
		newInput("f.five", "Fifth field text"),
	}
}

func TestRunner_FieldFailureDoesNotStopRun(t *testing.T) {
	ff := fiveFields()
	gw := &fakeGateway{fail: map[string]error{"Third field text": &ProviderError{Provider: "google", Message: "HTTP 500"}}}
	obs := &recordingObserver{}

	var events []Progress
	r := NewRunner("es", gw, WithSourceLang("en"), WithObserver(obs))
	res, err := r.Translate(context.Background(), nil, fields(ff...), func(p Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Success {
		t.Error("run should succeed")
	}
	if res.FieldsTranslated != 4 || res.TotalFields != 5 {
		t.Errorf("translated %d of %d, want 4 of 5", res.FieldsTranslated, res.TotalFields)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Field 3: ") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	if res.Warning != "1 fields failed to translate" {
		t.Errorf("warning = %q", res.Warning)
	}
	if ff[2].text != "Third field text" {
		t.Errorf("failed field was modified: %q", ff[2].text)
	}
	if ff[2].highlight != HighlightError || ff[0].highlight != HighlightSuccess {
		t.Error("unexpected highlights")
	}
	if ff[0].text != "[es] First field text" {
		t.Errorf("field 1 = %q", ff[0].text)
	}

	if len(events) != 5 || events[4].Percent != 100 || events[0].Percent != 20 {
		t.Errorf("unexpected progress: %+v", events)
	}
	if obs.translated != 4 || obs.failed != 1 || obs.finished != res {
		t.Errorf("observer saw %d/%d", obs.translated, obs.failed)
	}
	if res.Changes.Stats().Failed != 1 {
		t.Error("failed field not recorded in change set")
	}
}

func TestRunner_NoFields(t *testing.T) {
	r := NewRunner("es", &fakeGateway{})
	res, err := r.Translate(context.Background(), nil, fieldList{}, nil)
	if !errors.Is(err, ErrNoFields) || res != nil {
		t.Errorf("expected ErrNoFields, got %v, %v", res, err)
	}
}

func TestRunner_LocalePathWithoutGatewayCall(t *testing.T) {
	link := newInput("group.href", "/en-us/pricing")
	link.attrs.InGroup = true
	gw := &fakeGateway{}

	res, err := NewRunner("fr", gw, WithSourceLang("en")).Translate(context.Background(), nil, fields(link), nil)
	if err != nil {
		t.Fatal(err)
	}
	if gw.count() != 0 {
		t.Errorf("expected no gateway calls, got %d", gw.count())
	}
	if link.text != "/fr-fr/pricing" {
		t.Errorf("value = %q", link.text)
	}
	if res.PathsRewritten != 1 || res.FieldsTranslated != 0 {
		t.Errorf("unexpected counts: %+v", res)
	}
}

func TestRunner_IdenticalTranslationRewritesPathsOnly(t *testing.T) {
	f := newInput("body.text", "Docs at /en-us/docs today")
	gw := &fakeGateway{answer: func(r Request) string { return r.Text }}

	res, err := NewRunner("de", gw, WithSourceLang("en")).Translate(context.Background(), nil, fields(f), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FieldsTranslated != 0 {
		t.Errorf("identical translation counted: %d", res.FieldsTranslated)
	}
	if f.text != "Docs at /de-de/docs today" {
		t.Errorf("value = %q", f.text)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestRunner_EmptyTranslationLeavesField(t *testing.T) {
	f := newInput("body.text", "Keep me as I am")
	gw := &fakeGateway{answer: func(Request) string { return "   " }}

	res, err := NewRunner("de", gw, WithSourceLang("en")).Translate(context.Background(), nil, fields(f), nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.text != "Keep me as I am" || res.FieldsTranslated != 0 || len(f.events) != 0 {
		t.Errorf("field changed: %q (%d events)", f.text, len(f.events))
	}
}

func TestRunner_CancelStopsBeforeNextField(t *testing.T) {
	ff := fiveFields()
	run := NewRun()
	gw := &fakeGateway{}
	gw.answer = func(r Request) string {
		if r.Text == "Second field text" {
			run.Cancel()
		}
		return "x " + r.Text
	}

	res, err := NewRunner("es", gw, WithSourceLang("en")).Translate(context.Background(), run, fields(ff...), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled || res.FieldsTranslated != 2 {
		t.Errorf("cancelled=%v translated=%d", res.Cancelled, res.FieldsTranslated)
	}
	if ff[1].text != "x Second field text" {
		t.Error("field written before cancel must stay")
	}
	if ff[2].text != "Third field text" {
		t.Error("field after cancel must be untouched")
	}
	if res.RunID != run.ID() {
		t.Errorf("run ID = %q", res.RunID)
	}
}

func TestRunner_CacheHits(t *testing.T) {
	c := newMapCache()
	gw := &fakeGateway{}
	r := NewRunner("es", gw, WithSourceLang("en"), WithCache(c), WithServiceName("google"))

	if _, err := r.Translate(context.Background(), nil, fields(newInput("a.b", "Cached sentence here")), nil); err != nil {
		t.Fatal(err)
	}
	res, err := r.Translate(context.Background(), nil, fields(newInput("a.b", "Cached sentence here")), nil)
	if err != nil {
		t.Fatal(err)
	}
	if gw.count() != 1 || res.CachedCount != 1 || res.FieldsTranslated != 1 {
		t.Errorf("calls=%d cached=%d translated=%d", gw.count(), res.CachedCount, res.FieldsTranslated)
	}
	if _, ok := c.Get(CacheKey(HashText("Cached sentence here"), "en", "es", "google")); !ok {
		t.Error("expected entry under the service-scoped key")
	}
}

func TestRunner_OversizedPlainFieldIsChunked(t *testing.T) {
	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	f := newInput("body.long", text)
	gw := &fakeGateway{answer: func(r Request) string { return strings.ToUpper(r.Text) }}

	_, err := NewRunner("es", gw, WithSourceLang("en"), WithCharLimit(40)).Translate(context.Background(), nil, fields(f), nil)
	if err != nil {
		t.Fatal(err)
	}
	if gw.count() != 2 {
		t.Errorf("expected 2 chunk requests, got %d", gw.count())
	}
	if f.text != strings.ToUpper(text) {
		t.Errorf("chunks not reassembled: %q", f.text)
	}
}

func TestRunner_RichTextField(t *testing.T) {
	rt := newRichText("body", `<p>Hello <a href="/en-us/x">link</a></p><img src="/i.png" alt="pic">`)
	gw := &fakeGateway{answer: func(r Request) string {
		if r.HTML {
			return strings.ReplaceAll(r.Text, "Hello", "Hola")
		}
		return "foto"
	}}

	res, err := NewRunner("es", gw, WithSourceLang("en")).Translate(context.Background(), nil, fields(rt), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FieldsTranslated != 1 {
		t.Fatalf("translated = %d", res.FieldsTranslated)
	}
	for _, want := range []string{"Hola", `href="/es-es/x"`, `alt="foto"`, `src="/i.png"`} {
		if !strings.Contains(rt.text, want) {
			t.Errorf("missing %q in %s", want, rt.text)
		}
	}
}

func TestRunner_RichTextEchoIsNotCounted(t *testing.T) {
	original := `<p>Hello there <img src="/i.png"></p>`
	rt := newRichText("body", original)
	echo := GatewayFunc(func(ctx context.Context, req Request) (string, error) {
		return req.Text, nil
	})

	res, err := NewRunner("es", echo, WithSourceLang("en")).Translate(context.Background(), nil, fields(rt), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FieldsTranslated != 0 {
		t.Errorf("translated = %d, want 0", res.FieldsTranslated)
	}
	if rt.text != original {
		t.Errorf("field rewritten to %s", rt.text)
	}
	if len(rt.events) != 0 {
		t.Errorf("unexpected events %v", rt.events)
	}
}

func TestRunner_OversizedRichTextEchoIsNotCounted(t *testing.T) {
	original := strings.Repeat(`<p>Some paragraph text <img src="/i.png"></p>`, 4)
	rt := newRichText("body", original)
	echo := GatewayFunc(func(ctx context.Context, req Request) (string, error) {
		return req.Text, nil
	})

	res, err := NewRunner("es", echo, WithSourceLang("en"), WithCharLimit(60)).Translate(context.Background(), nil, fields(rt), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.FieldsTranslated != 0 || rt.text != original {
		t.Errorf("translated = %d, text = %s", res.FieldsTranslated, rt.text)
	}
}

func TestRunner_PreserveFormattingKeepsWhitespace(t *testing.T) {
	f := newInput("body.text", "  Padded value here\n")
	gw := &fakeGateway{answer: func(Request) string { return "Valor con relleno" }}

	if _, err := NewRunner("es", gw, WithSourceLang("en")).Translate(context.Background(), nil, fields(f), nil); err != nil {
		t.Fatal(err)
	}
	if f.text != "  Valor con relleno\n" {
		t.Errorf("value = %q", f.text)
	}
}

func TestRunner_Preview(t *testing.T) {
	ff := fiveFields()
	gw := &fakeGateway{}
	res, err := NewRunner("es", gw).Preview(fields(ff...))
	if err != nil {
		t.Fatal(err)
	}
	if res.FieldsFound != 5 || res.Batches != 1 || len(res.Fields) != 5 {
		t.Errorf("unexpected preview: %+v", res)
	}
	if res.Fields[2].ID != "f.three" || res.Fields[2].Kind != KindText || res.Fields[2].Index != 3 {
		t.Errorf("unexpected summary: %+v", res.Fields[2])
	}
	if ff[0].highlight != HighlightPreview {
		t.Error("preview highlight missing")
	}
	if gw.count() != 0 {
		t.Error("preview must not call the gateway")
	}
}

func TestRunAll(t *testing.T) {
	gw := &fakeGateway{}
	r := NewRunner("es", gw, WithSourceLang("en"))

	jobs := []Job{
		{Name: "one", Source: fields(newInput("a.a", "Document one text"))},
		{Name: "empty", Source: fieldList{}},
		{Name: "two", Source: fields(newInput("b.b", "Document two text"), newInput("b.c", "More text here"))},
	}

	results, err := RunAll(context.Background(), r, jobs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Name != "one" || results[0].Result.FieldsTranslated != 1 {
		t.Errorf("job one: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrNoFields) {
		t.Errorf("job empty: %v", results[1].Err)
	}
	if results[2].Result.FieldsTranslated != 2 {
		t.Errorf("job two: %+v", results[2].Result)
	}
}
