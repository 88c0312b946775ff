package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/prismlate"
)

// AzureBaseURL is the Azure Translator global endpoint.
const AzureBaseURL = "https://api.cognitive.microsofttranslator.com/translate"

// AzureProvider translates with Azure AI Translator.
type AzureProvider struct {
	apiKey  string
	region  string
	baseURL string
	client  *http.Client
}

// NewAzureProvider creates an Azure provider.
func NewAzureProvider(cfg Config) *AzureProvider {
	base := cfg.BaseURL
	if base == "" {
		base = AzureBaseURL
	}
	return &AzureProvider{apiKey: cfg.APIKey, region: cfg.Region, baseURL: base, client: httpClient(cfg)}
}

type azureItem struct {
	Text string `json:"text"`
}

type azureResponse []struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate translates one text.
func (p *AzureProvider) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	payload, err := json.Marshal([]azureItem{{Text: req.Text}})
	if err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceAzure, Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(req), bytes.NewReader(payload))
	if err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceAzure, Message: "invalid request", Cause: err}
	}
	setCommonHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)
	if p.region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", p.region)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", requestError(ServiceAzure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ServiceAzure, resp)
	}

	var body azureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &prismlate.ProviderError{Provider: ServiceAzure, Message: "invalid response", Cause: err}
	}
	if len(body) == 0 || len(body[0].Translations) == 0 {
		return "", &prismlate.ProviderError{Provider: ServiceAzure, Message: "no translations in response"}
	}
	return body[0].Translations[0].Text, nil
}

func (p *AzureProvider) endpoint(req prismlate.Request) string {
	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("to", azureLang(req.TargetLang))
	if req.SourceLang != "" && req.SourceLang != prismlate.AutoLang {
		q.Set("from", azureLang(req.SourceLang))
	}
	if req.HTML {
		q.Set("textType", "html")
	}
	return p.baseURL + "?" + q.Encode()
}

func azureLang(lang string) string {
	switch strings.ToLower(lang) {
	case "zh", "zh-cn":
		return "zh-Hans"
	case "hk", "zh-tw":
		return "zh-Hant"
	}
	return strings.ToLower(lang)
}

var _ prismlate.Gateway = (*AzureProvider)(nil)
