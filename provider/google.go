package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/prismlate"
)

// GoogleBaseURL is the keyless Google Translate endpoint.
const GoogleBaseURL = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider translates with the public Google Translate endpoint.
type GoogleProvider struct {
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a Google provider. No API key is needed.
func NewGoogleProvider(cfg Config) *GoogleProvider {
	base := cfg.BaseURL
	if base == "" {
		base = GoogleBaseURL
	}
	return &GoogleProvider{baseURL: base, client: httpClient(cfg)}
}

// Translate translates one text.
func (p *GoogleProvider) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", googleLang(req.SourceLang))
	q.Set("tl", googleLang(req.TargetLang))
	q.Set("dt", "t")
	q.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceGoogle, Message: "invalid request", Cause: err}
	}
	setCommonHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", requestError(ServiceGoogle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ServiceGoogle, resp)
	}

	var body []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceGoogle, Message: "invalid response", Cause: err}
	}
	return parseGoogleSegments(body)
}

// parseGoogleSegments joins the translated segments of the first element
// of the response, which has the shape [[["translated","source",...],...],...].
func parseGoogleSegments(body []json.RawMessage) (string, error) {
	if len(body) == 0 {
		return "", &prismlate.ProviderError{Provider: ServiceGoogle, Message: "empty response"}
	}

	var segments [][]any
	if err := json.Unmarshal(body[0], &segments); err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceGoogle, Message: "unexpected response shape", Cause: err}
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

// googleLang maps short tags to the codes the endpoint expects.
func googleLang(lang string) string {
	switch strings.ToLower(lang) {
	case "", prismlate.AutoLang:
		return prismlate.AutoLang
	case "zh", "zh-cn", "zh-hans":
		return "zh-CN"
	case "hk", "zh-tw", "zh-hant", "zh-hk":
		return "zh-TW"
	default:
		return strings.ToLower(lang)
	}
}

var _ prismlate.Gateway = (*GoogleProvider)(nil)
