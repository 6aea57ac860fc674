package service

import (
	"time"

	"go.uber.org/zap"

	"marketplace/voucherhub/internal/metrics"
	"marketplace/voucherhub/internal/repository"
)

const (
	DefaultClaimExpiry         = 30 * 24 * time.Hour
	DefaultCacheTTL            = 5 * time.Minute
	DefaultInvalidationTimeout = 500 * time.Millisecond
	DefaultListLimit           = 20
	maxListLimit               = 100
)

// Options carries the collaborators and tunables shared by the voucher
// services. Zero values fall back to defaults.
type Options struct {
	Cache               repository.Cache
	Logger              *zap.Logger
	Metrics             *metrics.Recorder
	ClaimExpiry         time.Duration
	CacheTTL            time.Duration
	InvalidationTimeout time.Duration
	ListLimit           int
	Now                 func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ClaimExpiry <= 0 {
		o.ClaimExpiry = DefaultClaimExpiry
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.InvalidationTimeout <= 0 {
		o.InvalidationTimeout = DefaultInvalidationTimeout
	}
	if o.ListLimit <= 0 {
		o.ListLimit = DefaultListLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) invalidator() invalidator {
	return invalidator{cache: o.Cache, timeout: o.InvalidationTimeout, logger: o.Logger, metrics: o.Metrics}
}

func (o Options) cacheAside() CacheAside {
	return CacheAside{Cache: o.Cache, TTL: o.CacheTTL, Logger: o.Logger, Metrics: o.Metrics}
}
