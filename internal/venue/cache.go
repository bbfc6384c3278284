package venue

import (
	"context"
	"sync"
	"time"

	"github.com/robogate/robogate/internal/pkg/logger"
	"github.com/robogate/robogate/internal/pkg/metrics"
)

// AssetInfo 是单个可交易币种的缓存事实
type AssetInfo struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	SzDecimals  int     `json:"sz_decimals"`
	MaxLeverage float64 `json:"max_leverage"`
	MinOrderUSD float64 `json:"min_order_usd"`
}

// CacheStatus 区分三种状态，调用方能记录降级运行而不是默默拿到空 map
type CacheStatus string

const (
	CacheFresh       CacheStatus = "fresh"
	CacheStale       CacheStatus = "stale"       // 刷新失败但上次成功的数据还能用
	CacheUnavailable CacheStatus = "unavailable" // 没有可用数据，size 检查跳过（fail-open）
)

// After this many TTLs without a successful refresh the last-good snapshot
// is considered unusable.
const staleGraceFactor = 3

// FetchFunc pulls the bulk metadata from the venue.
type FetchFunc func(ctx context.Context) (map[string]AssetInfo, error)

// AssetCache 定时刷新的币种元数据缓存，多读安全
// 刷新失败保留上次成功结果；完全不可用时返回空 map，
// 调用方必须把空 map 当作 “无法校验，放行” 而不是 “全部拒绝”
type AssetCache struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.RWMutex
	assets    map[string]AssetInfo
	fetchedAt time.Time
}

func NewAssetCache(fetch FetchFunc, ttl time.Duration, now func() time.Time) *AssetCache {
	if now == nil {
		now = time.Now
	}
	return &AssetCache{
		fetch: fetch,
		ttl:   ttl,
		now:   now,
	}
}

// Snapshot returns the current asset map and its freshness. It refreshes on
// expiry; a failed refresh keeps the last-good snapshot until it is hard
// stale. The returned map must not be mutated.
func (c *AssetCache) Snapshot(ctx context.Context) (map[string]AssetInfo, CacheStatus) {
	c.mu.RLock()
	assets, fetchedAt := c.assets, c.fetchedAt
	c.mu.RUnlock()

	now := c.now()
	if assets != nil && now.Sub(fetchedAt) < c.ttl {
		return assets, CacheFresh
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		metrics.AssetCacheRefresh.WithLabelValues("error").Inc()
		if assets != nil && now.Sub(fetchedAt) < c.ttl*staleGraceFactor {
			logger.Warn("asset metadata refresh failed, serving stale snapshot",
				"error", err, "age", now.Sub(fetchedAt).String())
			return assets, CacheStale
		}
		logger.Error("asset metadata unavailable, size checks will be skipped", "error", err)
		return map[string]AssetInfo{}, CacheUnavailable
	}

	metrics.AssetCacheRefresh.WithLabelValues("ok").Inc()
	c.mu.Lock()
	c.assets = fresh
	c.fetchedAt = now
	c.mu.Unlock()
	return fresh, CacheFresh
}
