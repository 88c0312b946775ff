package usage

import (
	"context"
	"sync"
	"time"
)

type record struct {
	chars int64
	reset time.Time
}

// MemoryLedger keeps usage in process memory.
type MemoryLedger struct {
	mu      sync.Mutex
	opts    options
	records map[string]record
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger(opts ...Option) *MemoryLedger {
	return &MemoryLedger{opts: buildOptions(opts), records: make(map[string]record)}
}

// Quota implements Ledger.
func (l *MemoryLedger) Quota(_ context.Context, service string) (Quota, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.currentLocked(service)
	return newQuota(service, l.opts.quota(service), r.chars, r.reset), nil
}

// Add implements Ledger.
func (l *MemoryLedger) Add(_ context.Context, service string, chars int64) (Quota, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.currentLocked(service)
	r.chars += chars
	l.records[service] = r
	return newQuota(service, l.opts.quota(service), r.chars, r.reset), nil
}

// currentLocked returns the service record, starting a fresh one when the
// stored record belongs to an earlier month.
func (l *MemoryLedger) currentLocked(service string) record {
	now := l.opts.now()
	r, ok := l.records[service]
	if !ok || now.Month() != r.reset.Month() || now.Year() != r.reset.Year() {
		r = record{reset: monthStart(now)}
		l.records[service] = r
	}
	return r
}

var _ Ledger = (*MemoryLedger)(nil)
