// Package currency converts catalog prices from the base currency (USD) into
// the display currency (COP) using an hourly refreshed exchange rate.
package currency

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"AlphaStore/pkg/kit"
)

const (
	DefaultTTL = time.Hour

	metricsComponent = "currency"
)

// DefaultSeed is the rate served before the first successful refresh.
var DefaultSeed = decimal.NewFromInt(4150)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RateSource fetches the current conversion rate from upstream.
type RateSource interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

type Freshness int

const (
	// Fresh means the rate was refreshed within the TTL.
	Fresh Freshness = iota
	// Stale means the refresh failed and the last known rate is served.
	Stale
)

func (f Freshness) String() string {
	if f == Fresh {
		return "fresh"
	}
	return "stale"
}

type RateResult struct {
	Rate        decimal.Decimal
	Freshness   Freshness
	RefreshedAt time.Time
}

func (r RateResult) Stale() bool { return r.Freshness == Stale }

type snapshot struct {
	rate        decimal.Decimal
	refreshedAt time.Time
}

// RateCache holds a single rate and the time it was last refreshed. The pair
// is swapped as one immutable snapshot, so readers never see a torn update.
// Concurrent refreshes may both hit upstream; the last writer wins.
type RateCache struct {
	source  RateSource
	clock   Clock
	ttl     time.Duration
	log     *zap.Logger
	metrics *kit.Metrics

	cur atomic.Pointer[snapshot]
}

type Option func(*RateCache)

func WithClock(c Clock) Option { return func(rc *RateCache) { rc.clock = c } }

func WithTTL(d time.Duration) Option { return func(rc *RateCache) { rc.ttl = d } }

func WithLogger(l *zap.Logger) Option { return func(rc *RateCache) { rc.log = kit.OrNop(l) } }

func WithMetrics(m *kit.Metrics) Option { return func(rc *RateCache) { rc.metrics = m } }

// WithSeededAt marks the seed as refreshed at t. Without it the seed counts
// as never refreshed and the first Rate call fetches.
func WithSeededAt(t time.Time) Option {
	return func(rc *RateCache) {
		s := *rc.cur.Load()
		s.refreshedAt = t
		rc.cur.Store(&s)
	}
}

func NewRateCache(source RateSource, seed decimal.Decimal, opts ...Option) *RateCache {
	rc := &RateCache{
		source: source,
		clock:  systemClock{},
		ttl:    DefaultTTL,
		log:    zap.NewNop(),
	}
	rc.cur.Store(&snapshot{rate: seed})

	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Rate returns the cached rate while it is younger than the TTL, otherwise
// attempts exactly one refresh. A failed refresh keeps the old rate and the
// old timestamp, so the next call retries.
func (c *RateCache) Rate(ctx context.Context) RateResult {
	s := c.cur.Load()
	now := c.clock.Now()

	if !s.refreshedAt.IsZero() && now.Sub(s.refreshedAt) < c.ttl {
		return RateResult{Rate: s.rate, Freshness: Fresh, RefreshedAt: s.refreshedAt}
	}

	rate, err := c.source.FetchRate(ctx)
	if err != nil {
		logf := c.log.Warn
		if errors.Is(err, ErrSourceDisabled) {
			logf = c.log.Debug
		}
		logf("exchange rate refresh failed, serving last known rate",
			zap.Error(err),
			zap.String("rate", s.rate.String()),
			zap.Time("refreshed_at", s.refreshedAt),
		)
		c.metrics.Fallback(metricsComponent, reason(err))
		return RateResult{Rate: s.rate, Freshness: Stale, RefreshedAt: s.refreshedAt}
	}

	next := &snapshot{rate: rate, refreshedAt: now}
	c.cur.Store(next)
	c.log.Debug("exchange rate refreshed", zap.String("rate", rate.String()))

	return RateResult{Rate: next.rate, Freshness: Fresh, RefreshedAt: next.refreshedAt}
}

// Peek returns the cached snapshot without refreshing.
func (c *RateCache) Peek() RateResult {
	s := c.cur.Load()
	f := Fresh
	if s.refreshedAt.IsZero() || c.clock.Now().Sub(s.refreshedAt) >= c.ttl {
		f = Stale
	}
	return RateResult{Rate: s.rate, Freshness: f, RefreshedAt: s.refreshedAt}
}

// Convert multiplies a base-currency amount by the current rate.
func (c *RateCache) Convert(ctx context.Context, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.Rate(ctx).Rate)
}
