package prismlate

import "testing"

func TestLocaleCode(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"en", "en-us"},
		{"es", "es-es"},
		{"zh", "zh-cn"},
		{"zh-Hant", "zh-hk"},
		{"hk", "zh-hk"},
		{"nl-be", "nl-be"},
		{"nl", "en-us"},
		{"", "en-us"},
		{"xx-toolong", "en-us"},
	}
	for _, tt := range tests {
		if got := LocaleCode(tt.target); got != tt.want {
			t.Errorf("LocaleCode(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestRewriteLocalePaths(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target string
		want   string
	}{
		{"plain link", "See /en-us/pricing for details", "es", "See /es-es/pricing for details"},
		{"upper case", "/EN-US/docs", "fr", "/fr-fr/docs"},
		{"three letter region", "/es-mx/ and /en-gb/", "de", "/de-de/ and /de-de/"},
		{"inside attribute", `<a href="/en-us/about">About</a>`, "zh-Hant", `<a href="/zh-hk/about">About</a>`},
		{"no segment", "Nothing to change", "es", "Nothing to change"},
		{"unknown target", "/en-us/x", "nl", "/en-us/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteLocalePaths(tt.text, tt.target); got != tt.want {
				t.Errorf("RewriteLocalePaths() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteLocalePaths_Idempotent(t *testing.T) {
	inputs := []string{
		"/en-us/",
		`<p><a href="/fr-fr/a">x</a> /de-de/b</p>`,
		"plain text",
	}
	for _, in := range inputs {
		for _, target := range []string{"es", "zh", "hk", "nl", "pt-br"} {
			once := RewriteLocalePaths(in, target)
			if twice := RewriteLocalePaths(once, target); twice != once {
				t.Errorf("not idempotent for %q/%s: %q != %q", in, target, twice, once)
			}
		}
	}
}

func TestIsLocalePath(t *testing.T) {
	tests := map[string]bool{
		"/en-us/":         true,
		"/en-us/pricing":  true,
		" /es-mx/ ":       true,
		"en-us":           false,
		"see /en-us/":     false,
		"/english/":       false,
		"https://x/en-us": false,
	}
	for in, want := range tests {
		if got := IsLocalePath(in); got != want {
			t.Errorf("IsLocalePath(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetLanguageName(t *testing.T) {
	if got := GetLanguageName("es"); got != "Spanish" {
		t.Errorf("got %q", got)
	}
	if got := GetLanguageName("pt-BR"); got != "Portuguese" {
		t.Errorf("got %q", got)
	}
	if got := GetLanguageName("xx"); got != "xx" {
		t.Errorf("got %q", got)
	}
}

func TestResolveSourceLang(t *testing.T) {
	if got := ResolveSourceLang("fr", "anything"); got != "fr" {
		t.Errorf("explicit source changed: %q", got)
	}
	if got := ResolveSourceLang(AutoLang, "   "); got != AutoLang {
		t.Errorf("empty sample should stay auto, got %q", got)
	}
	sample := "The quick brown fox jumps over the lazy dog while the children are playing in the garden behind the old house."
	if got := ResolveSourceLang(AutoLang, sample); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
}

func TestSameLanguage(t *testing.T) {
	if !SameLanguage("en", "EN-us") {
		t.Error("en and EN-us share a base language")
	}
	if SameLanguage("en", "es") {
		t.Error("en and es differ")
	}
}
