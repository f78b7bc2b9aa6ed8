// Package verdictcache caches judge verdicts in a key-value store, so
// re-running a pipeline over the same data costs nothing at the provider.
package verdictcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/db"
	"github.com/sable-labs/ragmeter/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "verdict:"

// store is the consumer interface for the verdict cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedJudge caches verdicts keyed by the evaluated triple.
type CachedJudge struct {
	inner      domain.Judge
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Judge,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedJudge {
	return &CachedJudge{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Evaluate returns a cached verdict or calls the inner judge.
// Cache hit: zero token usage (no real tokens consumed).
func (c *CachedJudge) Evaluate(
	ctx context.Context, query, contextText, response string,
) (domain.JudgeResult, error) {
	key := c.cacheKey(query, contextText, response)

	if v, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.JudgeResult{Verdict: v}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Evaluate(ctx, query, contextText, response)
	if err != nil {
		return domain.JudgeResult{}, fmt.Errorf("evaluate pair: %w", err)
	}

	c.putToCache(ctx, key, result.Verdict)
	return result, nil
}

func (c *CachedJudge) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedJudge) cacheKey(query, contextText, response string) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(contextText))
	h.Write([]byte{0})
	h.Write([]byte(response))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedJudge) getFromCache(ctx context.Context, key string) (domain.Verdict, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("failed to get cached verdict", zap.String("key", key), zap.Error(err))
		}
		return domain.Verdict{}, false
	}

	var v domain.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("failed to parse cached verdict", zap.String("key", key), zap.Error(err))
		return domain.Verdict{}, false
	}
	return v, true
}

func (c *CachedJudge) putToCache(ctx context.Context, key string, v domain.Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("failed to cache verdict", zap.String("key", key), zap.Error(err))
	}
}
