package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/prismlate"
	"github.com/sashabaranov/go-openai"
)

// Chat model defaults.
const (
	DefaultOpenAIModel   = "gpt-3.5-turbo"
	DefaultDeepSeekModel = "deepseek-chat"
	DeepSeekBaseURL      = "https://api.deepseek.com/v1"

	defaultTemperature = 0.2
	defaultMaxTokens   = 2048
)

// ChatProvider translates through an OpenAI-compatible chat completion
// API. It serves both OpenAI and DeepSeek.
type ChatProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIProvider creates a chat provider for OpenAI.
func NewOpenAIProvider(cfg Config) *ChatProvider {
	return newChatProvider(ServiceOpenAI, cfg, DefaultOpenAIModel, "")
}

// NewDeepSeekProvider creates a chat provider for DeepSeek.
func NewDeepSeekProvider(cfg Config) *ChatProvider {
	return newChatProvider(ServiceDeepSeek, cfg, DefaultDeepSeekModel, DeepSeekBaseURL)
}

func newChatProvider(name string, cfg Config, model, baseURL string) *ChatProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = httpClient(cfg)

	if cfg.Model != "" {
		model = cfg.Model
	}

	return &ChatProvider{
		name:        name,
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
}

// Name returns the service name.
func (p *ChatProvider) Name() string {
	return p.name
}

// Translate translates one text with a single chat completion.
func (p *ChatProvider) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", p.apiError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &prismlate.ProviderError{
			Provider:  p.name,
			Message:   "no choices in response",
			Retryable: true,
		}
	}

	return cleanCompletion(resp.Choices[0].Message.Content), nil
}

func (p *ChatProvider) buildSystemPrompt(req prismlate.Request) string {
	source := "the detected source language"
	if req.SourceLang != "" && req.SourceLang != prismlate.AutoLang {
		source = prismlate.GetLanguageName(req.SourceLang)
	}
	target := prismlate.GetLanguageName(req.TargetLang)

	var b strings.Builder
	if req.Context != "" {
		fmt.Fprintf(&b, "The content is for: %s. Adapt the tone to be appropriate for this context.\n\n", req.Context)
	}
	fmt.Fprintf(&b, "You are a translation engine. Translate the following text from %s to %s", source, target)
	if req.HTML {
		b.WriteString(", preserving all HTML tags and formatting.")
	} else {
		b.WriteString(", preserving formatting and line breaks.")
	}
	if req.FieldHint != "" {
		fmt.Fprintf(&b, "\nThe text is the %q field of a content management system entry.", req.FieldHint)
	}
	b.WriteString(`
- Do NOT translate HTML tags, attributes, URLs, email addresses, or placeholders such as {{name}} or %s.
- Keep leading and trailing whitespace.
- Return only the translation, without explanations or Markdown code blocks.`)
	return b.String()
}

func (p *ChatProvider) apiError(err error) error {
	perr := &prismlate.ProviderError{
		Provider:  p.name,
		Message:   "chat completion failed",
		Cause:     err,
		Retryable: isRetryableError(err),
	}

	// A zero status means no response arrived; the message decides then.
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		perr.StatusCode = reqErr.HTTPStatusCode
	}
	if perr.StatusCode != 0 {
		perr.Retryable = retryableStatus(perr.StatusCode)
	}
	return perr
}

// cleanCompletion removes a Markdown code fence some models wrap their
// answer in.
func cleanCompletion(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], " <") {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}

func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

var _ prismlate.Gateway = (*ChatProvider)(nil)
