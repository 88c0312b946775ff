package prismlate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/cache"
	"github.com/ZaguanLabs/prismlate/dom"
	"github.com/ZaguanLabs/prismlate/provider"
)

// Integration tests using all real components

const articlePage = `<form>
<label for="fields.title">Title</label>
<input id="fields.title" type="text" value="Ten quiet beaches in Portugal">
<label for="fields.slug">Slug</label>
<input id="fields.slug" type="text" value="ten-quiet-beaches">
<div id="fields.body" contenteditable="true" class="tiptap ProseMirror"><p>Skip the crowds this summer. <a href="/en-us/guides/algarve">Read the guide</a>.</p><img src="/img/praia.jpg" alt="Empty beach at sunrise"></div>
<ul aria-label="Group"><li><input id="items[0].target" type="text" value="/en-us/contact"></li></ul>
</form>`

func parse(t *testing.T, page string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return doc
}

func TestIntegration_TranslatePage(t *testing.T) {
	p := provider.NewMockProvider()
	runner := prismlate.NewRunner("es", p,
		prismlate.WithCache(cache.NewInMemoryCache(time.Hour, 0)),
	)

	doc := parse(t, articlePage)
	result, err := runner.Translate(context.Background(), nil, doc, nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
	if result.FieldsTranslated != 2 {
		t.Errorf("expected 2 fields translated, got %d", result.FieldsTranslated)
	}
	if result.PathsRewritten != 1 {
		t.Errorf("expected 1 path rewritten, got %d", result.PathsRewritten)
	}

	out, err := doc.BodyHTML()
	if err != nil {
		t.Fatalf("BodyHTML failed: %v", err)
	}

	for _, want := range []string{
		`value="[es] Ten quiet beaches in Portugal"`,
		`value="ten-quiet-beaches"`,
		`href="/es-es/guides/algarve"`,
		`alt="[es] Empty beach at sunrise"`,
		`src="/img/praia.jpg"`,
		`value="/es-es/contact"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
	if strings.Contains(out, "[[IMG_") {
		t.Errorf("image placeholder leaked into output: %s", out)
	}
}

func TestIntegration_CacheHit(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewInMemoryCache(time.Hour, 0)
	runner := prismlate.NewRunner("fr", p, prismlate.WithCache(c))

	page := `<input id="fields.title" value="Hello world again">`

	result1, err := runner.Translate(context.Background(), nil, parse(t, page), nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if result1.FieldsTranslated != 1 || result1.CachedCount != 0 {
		t.Errorf("first run: expected 1 translated, 0 cached; got %d, %d",
			result1.FieldsTranslated, result1.CachedCount)
	}

	result2, err := runner.Translate(context.Background(), nil, parse(t, page), nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result2.FieldsTranslated != 1 || result2.CachedCount != 1 {
		t.Errorf("second run: expected 1 translated, 1 cached; got %d, %d",
			result2.FieldsTranslated, result2.CachedCount)
	}
	if p.CallCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.CallCount())
	}
}

func TestIntegration_FieldFailureKeepsOriginal(t *testing.T) {
	p := provider.NewMockProvider()
	p.SetError(&prismlate.ProviderError{Provider: "mock", Message: "quota exhausted"})
	runner := prismlate.NewRunner("de", p)

	doc := parse(t, `<input id="fields.title" value="Hello world again">`)
	result, err := runner.Translate(context.Background(), nil, doc, nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !result.Success || len(result.Errors) != 1 {
		t.Errorf("expected success with 1 error, got %+v", result)
	}
	if result.Warning == "" {
		t.Error("expected a warning")
	}

	out, _ := doc.BodyHTML()
	if !strings.Contains(out, `value="Hello world again"`) {
		t.Errorf("expected original value kept, got: %s", out)
	}
	if !strings.Contains(out, "prismlate-error") {
		t.Errorf("expected error highlight, got: %s", out)
	}
}

func TestIntegration_NoFields(t *testing.T) {
	runner := prismlate.NewRunner("es", provider.NewMockProvider())

	_, err := runner.Translate(context.Background(), nil, parse(t, `<p>Read only</p>`), nil)
	if !errors.Is(err, prismlate.ErrNoFields) {
		t.Errorf("expected ErrNoFields, got %v", err)
	}
}

func TestIntegration_RunAll(t *testing.T) {
	p := provider.NewMockProvider()
	runner := prismlate.NewRunner("it", p)

	jobs := []prismlate.Job{
		{Name: "a", Source: parse(t, `<input id="fields.title" value="First page title">`)},
		{Name: "b", Source: parse(t, `<p>nothing</p>`)},
		{Name: "c", Source: parse(t, `<textarea id="fields.intro">Third page intro text</textarea>`)},
	}

	results, err := prismlate.RunAll(context.Background(), runner, jobs, 2)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[0].Result.FieldsTranslated != 1 {
		t.Errorf("unexpected result for a: %+v", results[0])
	}
	if !errors.Is(results[1].Err, prismlate.ErrNoFields) {
		t.Errorf("expected ErrNoFields for b, got %v", results[1].Err)
	}
	if results[2].Result == nil || results[2].Result.FieldsTranslated != 1 {
		t.Errorf("unexpected result for c: %+v", results[2])
	}
}

func TestIntegration_SelectionInInput(t *testing.T) {
	p := provider.NewMockProvider()
	doc := parse(t, `<input id="fields.title" value="Welcome to the harbour">`)

	f, ok := doc.FieldByID("fields.title")
	if !ok {
		t.Fatal("field not found")
	}

	req := prismlate.Request{SourceLang: "en", TargetLang: "es"}
	res, err := doc.TranslateSelection(context.Background(), p, req, &dom.InputSelection{Field: f, Start: 15, End: 22})
	if err != nil {
		t.Fatalf("TranslateSelection failed: %v", err)
	}
	if res.Original != "harbour" {
		t.Errorf("expected original 'harbour', got %q", res.Original)
	}
	if f.Text() != "Welcome to the [es] harbour" {
		t.Errorf("unexpected field value %q", f.Text())
	}
}
