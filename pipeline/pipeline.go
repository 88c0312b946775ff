// Package pipeline assembles a configured translation stack: the provider
// gateway with its decorators, the cache and the usage ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/cache"
	"github.com/ZaguanLabs/prismlate/config"
	"github.com/ZaguanLabs/prismlate/metrics"
	"github.com/ZaguanLabs/prismlate/provider"
	"github.com/ZaguanLabs/prismlate/settings"
	"github.com/ZaguanLabs/prismlate/usage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options are the inputs of New.
type Options struct {
	Config   *config.Config
	Settings settings.Settings
	APIKey   string            // Explicit key, overrides env and settings
	Gateway  prismlate.Gateway // Replaces the configured provider when set
	Logger   *zap.Logger
	Recorder *metrics.Recorder // Optional
}

// Pipeline is a ready-to-use translation stack.
type Pipeline struct {
	Gateway  prismlate.Gateway
	Cache    cache.Lister // Nil when caching is disabled
	Ledger   usage.Ledger
	Settings settings.Settings

	cfg      *config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
	closers  []io.Closer
}

// New builds the stack. Requests pass through, from the outside in:
// retry, usage metering, rate limiting, metrics and the provider.
func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		Settings: opts.Settings,
		cfg:      opts.Config,
		logger:   logger,
		recorder: opts.Recorder,
	}

	service := opts.Settings.TranslationService
	gw := opts.Gateway
	if gw == nil {
		pcfg := opts.Settings.ProviderConfig(opts.APIKey)
		pcfg.Timeout = opts.Config.Provider.Timeout
		pcfg.BaseURL = opts.Config.Provider.BaseURL
		pcfg.Model = opts.Config.Provider.Model
		pcfg.Region = opts.Config.Provider.Region

		var err error
		gw, err = provider.New(pcfg)
		if err != nil {
			return nil, err
		}
	}

	if p.recorder != nil {
		gw = p.recorder.InstrumentGateway(gw, service)
	}
	if rpm := opts.Config.Runner.RateLimitRPM; rpm > 0 {
		gw = prismlate.NewRateLimitedGateway(gw, prismlate.RateLimitConfig{RequestsPerMinute: rpm})
	}

	ledger, err := p.openLedger()
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Ledger = ledger

	var meterOpts []usage.MeterOption
	meterOpts = append(meterOpts, usage.WithLogger(logger))
	if opts.Config.Usage.Enforce {
		meterOpts = append(meterOpts, usage.Enforce())
	}
	gw = usage.NewMeteredGateway(gw, ledger, service, meterOpts...)

	retry := prismlate.DefaultRetryConfig()
	retry.MaxRetries = opts.Config.Runner.MaxRetries
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("retrying translation request",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	p.Gateway = prismlate.NewRetryableGateway(gw, retry)

	if err := p.openCache(); err != nil {
		p.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		zap.String("service", service),
		zap.String("cache", opts.Config.Cache.Backend),
		zap.String("usage", opts.Config.Usage.Backend))
	return p, nil
}

func (p *Pipeline) openCache() error {
	c := p.cfg.Cache
	if c.Backend == "none" {
		return nil
	}
	lister, err := cache.New(cache.Config{
		Backend:    c.Backend,
		TTL:        c.TTL,
		MaxEntries: c.MaxEntries,
		RedisURL:   c.RedisURL,
		KeyPrefix:  c.KeyPrefix,
	})
	if err != nil {
		return err
	}
	if closer, ok := lister.(io.Closer); ok {
		p.closers = append(p.closers, closer)
	}
	p.Cache = lister
	return nil
}

func (p *Pipeline) openLedger() (usage.Ledger, error) {
	if p.cfg.Usage.Backend != "redis" {
		return usage.NewMemoryLedger(), nil
	}

	opts, err := redis.ParseURL(p.cfg.UsageRedisURL())
	if err != nil {
		return nil, &prismlate.CacheError{Message: "invalid usage redis URL", Cause: err}
	}
	client := redis.NewClient(opts)
	p.closers = append(p.closers, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &prismlate.CacheError{Message: "usage redis unreachable", Cause: err}
	}
	return usage.NewRedisLedger(client, p.cfg.Cache.KeyPrefix), nil
}

// Runner returns a runner translating into target, or into the settings'
// target language when target is empty.
func (p *Pipeline) Runner(target string, extra ...prismlate.RunnerOption) *prismlate.Runner {
	if target == "" {
		target = p.Settings.TargetLanguage
	}

	opts := p.Settings.RunnerOptions()
	opts = append(opts,
		prismlate.WithLogger(p.logger),
		prismlate.WithFieldDelay(p.cfg.Runner.FieldDelay),
		prismlate.WithHiddenFields(p.cfg.Runner.KeepHidden),
	)
	if p.Cache != nil {
		opts = append(opts, prismlate.WithCache(p.Cache))
	}
	if p.recorder != nil {
		opts = append(opts, prismlate.WithObserver(p.recorder))
	}
	opts = append(opts, extra...)

	return prismlate.NewRunner(target, p.Gateway, opts...)
}

// SelectionTimeout bounds a single selection translation. Zero means no
// bound beyond the caller's context.
func (p *Pipeline) SelectionTimeout() time.Duration {
	return p.cfg.Runner.SelectionWait
}

// Quota returns the current usage of the configured service.
func (p *Pipeline) Quota(ctx context.Context) (usage.Quota, error) {
	return p.Ledger.Quota(ctx, p.Settings.TranslationService)
}

// Close releases Redis connections.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("closing pipeline: %w", errors.Join(errs...))
	}
	return nil
}
