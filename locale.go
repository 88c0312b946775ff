package prismlate

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// LocaleCodes maps short language tags to the localized-path codes used
// in the CMS URL scheme.
var LocaleCodes = map[string]string{
	"en":      "en-us",
	"es":      "es-es",
	"fr":      "fr-fr",
	"de":      "de-de",
	"it":      "it-it",
	"pt":      "pt-pt",
	"ru":      "ru-ru",
	"ja":      "ja-jp",
	"ko":      "ko-kr",
	"zh":      "zh-cn",
	"zh-Hant": "zh-hk",
	"hk":      "zh-hk",
	"zh-hk":   "zh-hk",
	"zh-cn":   "zh-cn",
}

// FallbackLocaleCode is used when a target maps to no well-formed code.
const FallbackLocaleCode = "en-us"

var (
	localePathPattern   = regexp.MustCompile(`(?i)/[a-z]{2}-[a-z]{2,3}/`)
	localePrefixPattern = regexp.MustCompile(`(?i)^/[a-z]{2}-[a-z]{2,3}/`)
	localeCodeShape     = regexp.MustCompile(`^[a-z]{2}-[a-z]{2,3}$`)
)

// LocaleCode returns the localized-path code for a target language.
// Unknown targets are used as-is when they already look like a code.
func LocaleCode(target string) string {
	code, ok := LocaleCodes[target]
	if !ok {
		code = target
	}
	if !localeCodeShape.MatchString(code) {
		return FallbackLocaleCode
	}
	return code
}

// RewriteLocalePaths replaces every localized-path segment in text with
// the code for target. It applies equally to plain values and to HTML,
// attribute values included. Applying it twice is the same as once.
func RewriteLocalePaths(text, target string) string {
	code := "/" + LocaleCode(target) + "/"
	return localePathPattern.ReplaceAllLiteralString(text, code)
}

// IsLocalePath reports whether value begins with a localized-path segment,
// as link values such as "/en-us/" or "/en-us/pricing" do.
func IsLocalePath(value string) bool {
	return localePrefixPattern.MatchString(strings.TrimSpace(value))
}

// LanguageNames maps short language tags to names used in AI prompts.
var LanguageNames = map[string]string{
	"en":      "English",
	"es":      "Spanish",
	"fr":      "French",
	"de":      "German",
	"it":      "Italian",
	"pt":      "Portuguese",
	"ru":      "Russian",
	"ja":      "Japanese",
	"ko":      "Korean",
	"zh":      "Chinese (Simplified)",
	"zh-Hant": "Chinese (Traditional)",
	"hk":      "Chinese (Hong Kong)",
	"nl":      "Dutch",
	"pl":      "Polish",
	"tr":      "Turkish",
	"ar":      "Arabic",
	"he":      "Hebrew",
}

// GetLanguageName returns the human-readable name for a language tag.
// Falls back to the tag itself if not found.
func GetLanguageName(lang string) string {
	if name, ok := LanguageNames[lang]; ok {
		return name
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		if name, ok := LanguageNames[strings.ToLower(lang[:i])]; ok {
			return name
		}
	}
	return lang
}

// AutoLang is the source language value asking for detection.
const AutoLang = "auto"

// ResolveSourceLang returns lang unless it is "auto" or empty, in which
// case the language of sample is detected. Undetectable samples yield
// "auto" again so providers can apply their own detection.
func ResolveSourceLang(lang, sample string) string {
	if lang != "" && lang != AutoLang {
		return lang
	}
	if strings.TrimSpace(sample) == "" {
		return AutoLang
	}
	info := whatlanggo.Detect(sample)
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return AutoLang
	}
	return code
}

// SameLanguage reports whether two language tags share a base language.
func SameLanguage(a, b string) bool {
	return baseLang(a) == baseLang(b)
}

func baseLang(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}
