package ratelimit

import (
	"context"

	"github.com/marketlane/settlo/internal/config"
	obsmetrics "github.com/marketlane/settlo/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ReplayLimiter throttles admin-triggered event replays so an operator
// cannot hammer the settlement pipeline. Without redis it degrades to
// allowing everything.
type ReplayLimiter struct {
	bucket     *TokenBucket
	log        *zap.Logger
	rate       float64
	burst      int
	obsMetrics *obsmetrics.Metrics
}

type ReplayLimiterParams struct {
	fx.In

	Bucket     *TokenBucket `optional:"true"`
	Log        *zap.Logger
	Cfg        config.Config
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewReplayLimiter(p ReplayLimiterParams) *ReplayLimiter {
	rate := p.Cfg.ReplayRatePerSecond
	if rate <= 0 {
		rate = 1
	}
	burst := p.Cfg.ReplayBurst
	if burst <= 0 {
		burst = 5
	}
	return &ReplayLimiter{
		bucket:     p.Bucket,
		log:        p.Log.Named("ratelimit.replay"),
		rate:       rate,
		burst:      burst,
		obsMetrics: p.ObsMetrics,
	}
}

func (l *ReplayLimiter) Allow(ctx context.Context, key string) (*Result, bool) {
	if l == nil || l.bucket == nil {
		return &Result{Allowed: true}, true
	}

	res, err := l.bucket.Allow(ctx, "settlo:replay:"+key, l.rate, l.burst)
	if err != nil {
		// Redis being down must not take the admin API with it.
		l.log.Warn("replay rate limit check failed", zap.Error(err))
		l.obsMetrics.RecordRateLimitAllowed(ctx, "replay")
		return &Result{Allowed: true}, true
	}
	if res.Allowed {
		l.obsMetrics.RecordRateLimitAllowed(ctx, "replay")
	} else {
		l.obsMetrics.RecordRateLimitDenied(ctx, "replay", "throttled")
	}
	return res, res.Allowed
}
