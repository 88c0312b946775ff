package usage

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/ZaguanLabs/prismlate"
	"go.uber.org/zap"
)

// ErrQuotaExceeded is returned by an enforcing MeteredGateway once the
// month's quota is used up.
var ErrQuotaExceeded = errors.New("monthly translation quota exceeded")

// MeteredGateway records the characters sent to a service.
type MeteredGateway struct {
	gw      prismlate.Gateway
	ledger  Ledger
	service string
	enforce bool
	logger  *zap.Logger
}

// MeterOption configures a MeteredGateway.
type MeterOption func(*MeteredGateway)

// Enforce makes the gateway refuse requests once the quota is used up.
func Enforce() MeterOption {
	return func(m *MeteredGateway) {
		m.enforce = true
	}
}

// WithLogger sets the logger used for ledger failures.
func WithLogger(l *zap.Logger) MeterOption {
	return func(m *MeteredGateway) {
		m.logger = l
	}
}

// NewMeteredGateway wraps gw so that each successful call is recorded in
// ledger under service.
func NewMeteredGateway(gw prismlate.Gateway, ledger Ledger, service string, opts ...MeterOption) *MeteredGateway {
	m := &MeteredGateway{gw: gw, ledger: ledger, service: service, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Translate implements prismlate.Gateway. Ledger failures are logged and
// never fail the translation.
func (m *MeteredGateway) Translate(ctx context.Context, req prismlate.Request) (string, error) {
	if m.enforce {
		q, err := m.ledger.Quota(ctx, m.service)
		if err != nil {
			m.logger.Warn("usage lookup failed", zap.String("service", m.service), zap.Error(err))
		} else if q.Exceeded() {
			return "", &prismlate.ProviderError{
				Provider: m.service,
				Message:  "quota check",
				Cause:    ErrQuotaExceeded,
			}
		}
	}

	out, err := m.gw.Translate(ctx, req)
	if err != nil {
		return "", err
	}

	chars := int64(utf8.RuneCountInString(req.Text))
	q, lerr := m.ledger.Add(ctx, m.service, chars)
	if lerr != nil {
		m.logger.Warn("usage recording failed", zap.String("service", m.service), zap.Error(lerr))
	} else {
		m.logger.Debug("usage recorded",
			zap.String("service", m.service),
			zap.Int64("characters", chars),
			zap.Int64("used", q.Used))
	}
	return out, nil
}

var _ prismlate.Gateway = (*MeteredGateway)(nil)
