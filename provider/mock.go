package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/ZaguanLabs/prismlate"
)

// MockProvider is a Gateway for tests and dry runs. It returns a canned
// translation when one is registered and otherwise tags the text with
// the target language.
type MockProvider struct {
	mu        sync.Mutex
	responses map[string]string
	requests  []prismlate.Request
	err       error
}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{responses: make(map[string]string)}
}

// SetResponse registers the translation returned for text.
func (m *MockProvider) SetResponse(text, translated string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[text] = translated
}

// SetError makes every subsequent call fail with err.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Translate implements prismlate.Gateway.
func (m *MockProvider) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if out, ok := m.responses[req.Text]; ok {
		return out, nil
	}
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}
	return "[" + req.TargetLang + "] " + req.Text, nil
}

// Requests returns the requests received so far.
func (m *MockProvider) Requests() []prismlate.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]prismlate.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of requests received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

var _ prismlate.Gateway = (*MockProvider)(nil)
