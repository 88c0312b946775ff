package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/prismlate"
)

// DeepL endpoints. Keys ending in ":fx" belong to the free plan.
const (
	DeepLFreeURL = "https://api-free.deepl.com/v2/translate"
	DeepLProURL  = "https://api.deepl.com/v2/translate"
)

// deeplIgnoreTags lists the elements whose content DeepL must leave alone
// when translating HTML.
var deeplIgnoreTags = []string{
	"br", "hr", "img", "input", "meta", "link", "script", "style", "title", "head",
	"iframe", "svg", "canvas", "video", "audio", "object", "embed", "applet", "frame",
	"frameset", "noframes", "noscript", "area", "map", "track", "wbr", "source", "param",
	"picture", "base", "col", "colgroup", "tbody", "thead", "tfoot", "th", "tr", "td",
	"caption", "fieldset", "legend", "button", "select", "option", "optgroup", "datalist",
	"output", "progress", "meter", "details", "summary", "dialog", "menu", "menuitem",
	"template", "slot",
}

// DeepLProvider translates with the DeepL API.
type DeepLProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDeepLProvider creates a DeepL provider.
func NewDeepLProvider(cfg Config) *DeepLProvider {
	base := cfg.BaseURL
	if base == "" {
		base = DeepLProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			base = DeepLFreeURL
		}
	}
	return &DeepLProvider{apiKey: cfg.APIKey, baseURL: base, client: httpClient(cfg)}
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates one text.
func (p *DeepLProvider) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	form := p.buildForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceDeepL, Message: "invalid request", Cause: err}
	}
	setCommonHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", requestError(ServiceDeepL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ServiceDeepL, resp)
	}

	var body deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceDeepL, Message: "invalid response", Cause: err}
	}
	if len(body.Translations) == 0 {
		return "", &prismlate.ProviderError{Provider: ServiceDeepL, Message: "no translations in response"}
	}
	return body.Translations[0].Text, nil
}

func (p *DeepLProvider) buildForm(req prismlate.Request) url.Values {
	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("target_lang", deeplLang(req.TargetLang))
	if req.SourceLang != "" && req.SourceLang != prismlate.AutoLang {
		form.Set("source_lang", deeplLang(req.SourceLang))
	}
	if req.Context != "" {
		form.Set("context", req.Context)
	}
	if req.HTML {
		form.Set("tag_handling", "html")
		form.Set("ignore_tags", strings.Join(deeplIgnoreTags, ","))
	}
	return form
}

func deeplLang(lang string) string {
	switch strings.ToLower(lang) {
	case "hk", "zh-tw", "zh-hant":
		return "ZH-HANT"
	case "zh-cn", "zh-hans":
		return "ZH-HANS"
	}
	return strings.ToUpper(lang)
}

var _ prismlate.Gateway = (*DeepLProvider)(nil)
