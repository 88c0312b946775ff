// Package usage tracks how many characters each translation service has
// been sent in the current calendar month.
package usage

import (
	"context"
	"time"
)

// Default monthly character quotas of the free service tiers.
var DefaultQuotas = map[string]int64{
	"google": 500000,
	"deepl":  500000,
	"azure":  2000000,
}

// FallbackQuota applies to services without an entry in DefaultQuotas.
const FallbackQuota int64 = 100000

// DefaultQuota returns the monthly quota for service.
func DefaultQuota(service string) int64 {
	if q, ok := DefaultQuotas[service]; ok {
		return q
	}
	return FallbackQuota
}

// Quota is a snapshot of a service's usage for the current month.
type Quota struct {
	Service   string    `json:"service"`
	Total     int64     `json:"total"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	ResetDate time.Time `json:"reset_date"`
}

// Exceeded reports whether the month's quota is used up.
func (q Quota) Exceeded() bool {
	return q.Total > 0 && q.Used >= q.Total
}

func newQuota(service string, total, used int64, reset time.Time) Quota {
	remaining := total - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Service: service, Total: total, Used: used, Remaining: remaining, ResetDate: reset}
}

// Ledger records character usage per service.
type Ledger interface {
	// Quota returns the usage of the current month.
	Quota(ctx context.Context, service string) (Quota, error)
	// Add records chars and returns the updated usage.
	Add(ctx context.Context, service string, chars int64) (Quota, error)
}

// Option configures a ledger.
type Option func(*options)

type options struct {
	quotas map[string]int64
	now    func() time.Time
}

// WithQuota overrides the monthly quota of a service.
func WithQuota(service string, total int64) Option {
	return func(o *options) {
		o.quotas[service] = total
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{quotas: make(map[string]int64), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) quota(service string) int64 {
	if q, ok := o.quotas[service]; ok {
		return q
	}
	return DefaultQuota(service)
}

// monthStart returns the first instant of the month containing t.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// period names the month containing t, e.g. "2026-10".
func period(t time.Time) string {
	return t.Format("2006-01")
}
