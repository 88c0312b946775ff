// Package provider implements translation gateways for the supported
// translation services.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/prismlate"
)

// Supported services.
const (
	ServiceGoogle   = "google"
	ServiceDeepL    = "deepl"
	ServiceAzure    = "azure"
	ServiceDeepSeek = "deepseek"
	ServiceOpenAI   = "openai"
)

// Services lists every supported service name.
var Services = []string{ServiceGoogle, ServiceDeepL, ServiceAzure, ServiceDeepSeek, ServiceOpenAI}

// DefaultTimeout bounds a single request to a translation service.
const DefaultTimeout = 30 * time.Second

// Config selects and configures a translation service.
type Config struct {
	Service string
	APIKey  string
	BaseURL string // Override the service endpoint
	Model   string // Chat model for openai and deepseek
	Region  string // Azure resource region
	Timeout time.Duration
	Client  *http.Client
}

// IsSupported reports whether service names a supported service.
func IsSupported(service string) bool {
	for _, s := range Services {
		if s == service {
			return true
		}
	}
	return false
}

// RequiresKey reports whether the service needs an API key.
func RequiresKey(service string) bool {
	return service != ServiceGoogle
}

// New returns the gateway for cfg.Service.
func New(cfg Config) (prismlate.Gateway, error) {
	if RequiresKey(cfg.Service) && cfg.APIKey == "" && IsSupported(cfg.Service) {
		return nil, &prismlate.ProviderError{
			Provider: cfg.Service,
			Message:  "API key is required",
		}
	}

	switch cfg.Service {
	case ServiceGoogle:
		return NewGoogleProvider(cfg), nil
	case ServiceDeepL:
		return NewDeepLProvider(cfg), nil
	case ServiceAzure:
		return NewAzureProvider(cfg), nil
	case ServiceDeepSeek:
		return NewDeepSeekProvider(cfg), nil
	case ServiceOpenAI:
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, &prismlate.ProviderError{Message: fmt.Sprintf("unsupported translation service %q", cfg.Service)}
	}
}

func httpClient(cfg Config) *http.Client {
	if cfg.Client != nil {
		return cfg.Client
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// statusError converts a non-2xx response into a ProviderError.
func statusError(provider string, resp *http.Response) *prismlate.ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if b := strings.TrimSpace(string(body)); b != "" {
		msg += ": " + b
	}
	return &prismlate.ProviderError{
		Provider:   provider,
		Message:    msg,
		StatusCode: resp.StatusCode,
		Retryable:  retryableStatus(resp.StatusCode),
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// requestError wraps a transport failure. Transport failures other than
// context cancellation are worth retrying.
func requestError(provider string, err error) *prismlate.ProviderError {
	return &prismlate.ProviderError{
		Provider:  provider,
		Message:   "request failed",
		Cause:     err,
		Retryable: !isContextError(err),
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", prismlate.UserAgent())
	req.Header.Set("Accept", "application/json")
}
