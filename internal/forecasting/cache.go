package forecasting

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/cache"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/angelmondragon/stockcast-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/stockcast-backend/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	defaultSummaryTTL      = time.Hour
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// SummaryCacheParams configures the two cache tiers.
type SummaryCacheParams struct {
	Logger  *logger.Logger
	Local   *cache.LRU[string, Summary]
	Remote  pkgredis.SummaryStore
	TTL     time.Duration
	Metrics *metrics.ForecastMetrics
	// BreakerFailures consecutive Redis errors open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// SummaryCache keeps summaries in process memory in front of Redis. Either tier
// may be absent. Failures are logged and reported as misses. While the Redis
// breaker is open the remote tier is skipped entirely.
//
// Every Delete bumps a per-key generation, locally and in Redis. Writers that
// computed a summary under an older generation are refused by SetIfCurrent.
type SummaryCache struct {
	logg    *logger.Logger
	local   *cache.LRU[string, Summary]
	remote  pkgredis.SummaryStore
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	metrics *metrics.ForecastMetrics

	mu   sync.Mutex
	gens map[string]uint64
}

// Generation identifies the invalidation state a summary was computed under.
type Generation struct {
	local    uint64
	remote   string
	remoteOK bool
}

func NewSummaryCache(params SummaryCacheParams) *SummaryCache {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &SummaryCache{
		logg:    params.Logger,
		local:   params.Local,
		remote:  params.Remote,
		breaker: newRemoteBreaker(params.BreakerFailures, params.BreakerCooldown),
		ttl:     ttl,
		metrics: params.Metrics,
		gens:    make(map[string]uint64),
	}
}

func newRemoteBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "forecast-summary-redis",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// RemoteState reports the Redis breaker state ("closed", "half-open" or "open").
func (c *SummaryCache) RemoteState() string {
	if c == nil || c.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}

func (c *SummaryCache) Get(ctx context.Context, key sales.ProductKey) (Summary, bool) {
	if c == nil {
		return Summary{}, false
	}
	cacheKey := c.key(key)

	if c.local != nil {
		summary, ok := c.local.Get(cacheKey)
		c.metrics.CacheLookup(metrics.TierLocal, ok)
		if ok {
			return summary, true
		}
	}

	if c.remote == nil {
		return Summary{}, false
	}
	var missing bool
	res, err := c.breaker.Execute(func() (interface{}, error) {
		payload, err := c.remote.Get(ctx, cacheKey)
		if errors.Is(err, redis.Nil) {
			missing = true
			return "", nil
		}
		return payload, err
	})
	if err != nil || missing {
		if err != nil {
			c.warn(ctx, key, "forecast.cache.read_failed", err)
		}
		c.metrics.CacheLookup(metrics.TierRedis, false)
		return Summary{}, false
	}
	var summary Summary
	if err := json.Unmarshal([]byte(res.(string)), &summary); err != nil {
		c.warn(ctx, key, "forecast.cache.decode_failed", err)
		c.metrics.CacheLookup(metrics.TierRedis, false)
		return Summary{}, false
	}
	c.metrics.CacheLookup(metrics.TierRedis, true)
	c.local.Set(cacheKey, summary)
	return summary, true
}

// Set stores summary in both tiers unconditionally.
func (c *SummaryCache) Set(ctx context.Context, key sales.ProductKey, summary Summary) {
	if c == nil {
		return
	}
	c.local.Set(c.key(key), summary)
	c.setRemote(ctx, key, summary)
}

// Generation snapshots the invalidation state of key. Take it before loading
// the data a summary is computed from.
func (c *SummaryCache) Generation(ctx context.Context, key sales.ProductKey) Generation {
	if c == nil {
		return Generation{}
	}
	c.mu.Lock()
	gen := Generation{local: c.gens[c.key(key)]}
	c.mu.Unlock()

	if c.remote == nil {
		gen.remoteOK = true
		return gen
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		payload, err := c.remote.Get(ctx, c.remote.ForecastGenerationKey(key.ShopDomain, key.ProductID))
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return payload, err
	})
	if err != nil {
		c.warn(ctx, key, "forecast.cache.generation_failed", err)
		return gen
	}
	gen.remote, gen.remoteOK = res.(string), true
	return gen
}

// SetIfCurrent stores summary only if key has not been invalidated since gen
// was taken. It reports whether anything was stored. When the Redis generation
// cannot be read the summary is kept in the local tier only.
func (c *SummaryCache) SetIfCurrent(ctx context.Context, key sales.ProductKey, gen Generation, summary Summary) bool {
	if c == nil {
		return false
	}
	current := c.Generation(ctx, key)
	if current.remoteOK && gen.remoteOK && current.remote != gen.remote {
		return false
	}

	cacheKey := c.key(key)
	c.mu.Lock()
	if c.gens[cacheKey] != gen.local {
		c.mu.Unlock()
		return false
	}
	c.local.Set(cacheKey, summary)
	c.mu.Unlock()

	if current.remoteOK && gen.remoteOK {
		c.setRemote(ctx, key, summary)
	}
	return true
}

func (c *SummaryCache) setRemote(ctx context.Context, key sales.ProductKey, summary Summary) {
	if c.remote == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		c.warn(ctx, key, "forecast.cache.encode_failed", err)
		return
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.remote.Set(ctx, c.key(key), string(payload), c.ttl)
	})
	if err != nil {
		c.warn(ctx, key, "forecast.cache.write_failed", err)
	}
}

// Delete drops key from both tiers and bumps its generation.
func (c *SummaryCache) Delete(ctx context.Context, key sales.ProductKey) error {
	if c == nil {
		return nil
	}
	cacheKey := c.key(key)
	c.mu.Lock()
	c.gens[cacheKey]++
	c.local.Delete(cacheKey)
	c.mu.Unlock()
	if c.remote == nil {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		// generation before data; see SetIfCurrent
		if _, err := c.remote.IncrWithTTL(ctx, c.remote.ForecastGenerationKey(key.ShopDomain, key.ProductID), c.ttl); err != nil {
			return nil, err
		}
		return nil, c.remote.Del(ctx, cacheKey)
	})
	return err
}

func (c *SummaryCache) key(key sales.ProductKey) string {
	if c.remote != nil {
		return c.remote.ForecastSummaryKey(key.ShopDomain, key.ProductID)
	}
	return key.String()
}

func (c *SummaryCache) warn(ctx context.Context, key sales.ProductKey, event string, err error) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"shop_domain":   key.ShopDomain,
		"product_id":    key.ProductID,
		"error":         err.Error(),
		"redis_breaker": c.RemoteState(),
	})
	c.logg.Warn(ctx, event)
}
