package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ZaguanLabs/prismlate"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Service: ServiceGoogle}, false},
		{Config{Service: ServiceDeepL, APIKey: "k:fx"}, false},
		{Config{Service: ServiceDeepL}, true},
		{Config{Service: ServiceAzure, APIKey: "k"}, false},
		{Config{Service: ServiceDeepSeek, APIKey: "k"}, false},
		{Config{Service: ServiceOpenAI, APIKey: "k"}, false},
		{Config{Service: "babelfish"}, true},
	}
	for _, tt := range tests {
		gw, err := New(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.cfg.Service, err, tt.wantErr)
		}
		if err == nil && gw == nil {
			t.Errorf("New(%q) returned nil gateway", tt.cfg.Service)
		}
	}
}

func TestDeepLEndpointSelection(t *testing.T) {
	if p := NewDeepLProvider(Config{APIKey: "abc:fx"}); p.baseURL != DeepLFreeURL {
		t.Errorf("free key should use %s, got %s", DeepLFreeURL, p.baseURL)
	}
	if p := NewDeepLProvider(Config{APIKey: "abc"}); p.baseURL != DeepLProURL {
		t.Errorf("pro key should use %s, got %s", DeepLProURL, p.baseURL)
	}
}

func TestGoogleProvider_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("dt") != "t" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("sl") != "auto" || q.Get("tl") != "zh-TW" {
			t.Errorf("unexpected languages sl=%s tl=%s", q.Get("sl"), q.Get("tl"))
		}
		if q.Get("q") != "Hello. World." {
			t.Errorf("unexpected text %q", q.Get("q"))
		}
		w.Write([]byte(`[[["你好。","Hello.",null],["世界。","World.",null]],null,"en"]`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(Config{BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), prismlate.Request{
		Text: "Hello. World.", SourceLang: "auto", TargetLang: "hk",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "你好。世界。" {
		t.Errorf("got %q", got)
	}
}

func TestGoogleProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewGoogleProvider(Config{BaseURL: srv.URL})
	_, err := p.Translate(context.Background(), prismlate.Request{Text: "Hi", TargetLang: "es"})

	var perr *prismlate.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusServiceUnavailable || !perr.Retryable {
		t.Errorf("expected retryable 503, got %+v", perr)
	}
}

func TestGoogleProvider_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[["x","y"]]]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewGoogleProvider(Config{BaseURL: srv.URL})
	_, err := p.Translate(ctx, prismlate.Request{Text: "Hi", TargetLang: "es"})

	var perr *prismlate.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Retryable {
		t.Error("cancelled request should not be retryable")
	}
}

func TestDeepLProvider_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key secret" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("target_lang") != "ES" {
			t.Errorf("target_lang = %q", form.Get("target_lang"))
		}
		if _, ok := form["source_lang"]; ok {
			t.Error("source_lang should be omitted for auto")
		}
		if form.Get("tag_handling") != "html" {
			t.Errorf("tag_handling = %q", form.Get("tag_handling"))
		}
		if !strings.Contains(form.Get("ignore_tags"), "img") {
			t.Errorf("ignore_tags = %q", form.Get("ignore_tags"))
		}
		if form.Get("context") != "Cooking blog" {
			t.Errorf("context = %q", form.Get("context"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]string{{"detected_source_language": "EN", "text": "<p>Hola</p>"}},
		})
	}))
	defer srv.Close()

	p := NewDeepLProvider(Config{APIKey: "secret", BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), prismlate.Request{
		Text: "<p>Hello</p>", SourceLang: "auto", TargetLang: "es", Context: "Cooking blog", HTML: true,
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "<p>Hola</p>" {
		t.Errorf("got %q", got)
	}
}

func TestDeepLProvider_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Wrong endpoint"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewDeepLProvider(Config{APIKey: "secret", BaseURL: srv.URL})
	_, err := p.Translate(context.Background(), prismlate.Request{Text: "Hello", TargetLang: "es"})

	var perr *prismlate.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Retryable {
		t.Error("403 should not be retryable")
	}
	if !strings.Contains(perr.Error(), "Wrong endpoint") {
		t.Errorf("error should include response body: %v", perr)
	}
}

func TestAzureProvider_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api-version") != "3.0" || q.Get("from") != "en" || q.Get("to") != "fr" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("textType") != "" {
			t.Error("plain text should not set textType")
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "key" || r.Header.Get("Ocp-Apim-Subscription-Region") != "westeurope" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		var items []azureItem
		json.NewDecoder(r.Body).Decode(&items)
		if len(items) != 1 || items[0].Text != "Good morning" {
			t.Errorf("unexpected body %+v", items)
		}
		w.Write([]byte(`[{"translations":[{"text":"Bonjour","to":"fr"}]}]`))
	}))
	defer srv.Close()

	p := NewAzureProvider(Config{APIKey: "key", Region: "westeurope", BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), prismlate.Request{
		Text: "Good morning", SourceLang: "en", TargetLang: "fr",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "Bonjour" {
		t.Errorf("got %q", got)
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()
	m.SetResponse("Hello", "Hola")

	got, _ := m.Translate(context.Background(), prismlate.Request{Text: "Hello", TargetLang: "es"})
	if got != "Hola" {
		t.Errorf("got %q", got)
	}
	got, _ = m.Translate(context.Background(), prismlate.Request{Text: "Bye", TargetLang: "es"})
	if got != "[es] Bye" {
		t.Errorf("got %q", got)
	}

	boom := errors.New("boom")
	m.SetError(boom)
	if _, err := m.Translate(context.Background(), prismlate.Request{Text: "x"}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if m.CallCount() != 3 || len(m.Requests()) != 3 {
		t.Errorf("CallCount = %d", m.CallCount())
	}
}
