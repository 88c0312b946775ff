package usage

import (
	"context"
	"errors"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/redis/go-redis/v9"
)

// keyTTL keeps a month's counter around a little longer than the month.
const keyTTL = 40 * 24 * time.Hour

// RedisLedger keeps usage in Redis under one counter per service and
// month, so every process sharing the server sees the same totals.
type RedisLedger struct {
	client *redis.Client
	prefix string
	opts   options
}

// NewRedisLedger creates a ledger on client. Keys are
// "<prefix>usage:<service>:<yyyy-mm>".
func NewRedisLedger(client *redis.Client, prefix string, opts ...Option) *RedisLedger {
	if prefix == "" {
		prefix = "prismlate:"
	}
	return &RedisLedger{client: client, prefix: prefix, opts: buildOptions(opts)}
}

func (l *RedisLedger) key(service string, now time.Time) string {
	return l.prefix + "usage:" + service + ":" + period(now)
}

// Quota implements Ledger.
func (l *RedisLedger) Quota(ctx context.Context, service string) (Quota, error) {
	now := l.opts.now()
	used, err := l.client.Get(ctx, l.key(service, now)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Quota{}, &prismlate.CacheError{Message: "reading usage", Cause: err}
	}
	return newQuota(service, l.opts.quota(service), used, monthStart(now)), nil
}

// Add implements Ledger.
func (l *RedisLedger) Add(ctx context.Context, service string, chars int64) (Quota, error) {
	now := l.opts.now()
	key := l.key(service, now)

	pipe := l.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, chars)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return Quota{}, &prismlate.CacheError{Message: "recording usage", Cause: err}
	}
	return newQuota(service, l.opts.quota(service), incr.Val(), monthStart(now)), nil
}

var _ Ledger = (*RedisLedger)(nil)
