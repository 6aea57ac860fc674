package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/metrics"
	"marketplace/voucherhub/internal/repository"
)

const (
	voucherDetailKeyPrefix = "voucher:detail:"
	voucherListKeyPrefix   = "voucher:list:"
)

func voucherDetailKey(id uuid.UUID) string {
	return voucherDetailKeyPrefix + id.String()
}

// CacheAside bundles a cache with the TTL applied on fill and the sinks
// that record cache failures.
type CacheAside struct {
	Cache   repository.Cache
	TTL     time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Remember returns the cached value for key, or calls loader and caches its
// result. Cache failures degrade to calling loader; loader errors are
// returned and never cached. A nil cache always calls loader.
func Remember[T any](ctx context.Context, ca CacheAside, key string, loader func(context.Context) (T, error)) (T, error) {
	if ca.Cache == nil {
		return loader(ctx)
	}

	if raw, err := ca.Cache.Get(ctx, key); err == nil && raw != nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err == nil {
		err = ca.Cache.Set(ctx, key, raw, ca.TTL)
	}
	if err != nil {
		ca.Metrics.Suppressed("cache_set")
		if ca.Logger != nil {
			ca.Logger.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// invalidator drops voucher cache entries after a mutation. Failures are
// logged, counted and never surface to the caller.
type invalidator struct {
	cache   repository.Cache
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func (inv invalidator) voucher(ctx context.Context, id uuid.UUID) {
	if inv.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inv.timeout)
	defer cancel()

	if err := inv.cache.Invalidate(ctx, voucherDetailKey(id)); err != nil {
		inv.failed(id, "detail", err)
	}
	if err := inv.cache.InvalidateByPrefix(ctx, voucherListKeyPrefix); err != nil {
		inv.failed(id, "list", err)
	}
}

func (inv invalidator) failed(id uuid.UUID, key string, err error) {
	inv.metrics.Suppressed("cache_invalidate")
	inv.logger.Warn("cache invalidation failed",
		zap.String("voucher_id", id.String()), zap.String("key", key), zap.Error(err))
}
