package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
)

const (
	cacheKeyPrefix = "pick:summary:"
	pingTimeout    = 5 * time.Second
)

// Cache stores decoded summaries keyed by page slug.
type Cache interface {
	Get(ctx context.Context, key string) (candidate.Summary, bool, error)
	Set(ctx context.Context, key string, s candidate.Summary) error
}

// NewRedisClient connects to addr, which may be a redis:// URL or a bare
// host:port, and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type summaryRecord struct {
	Canonical   string  `json:"canonical"`
	Normalized  string  `json:"normalized"`
	Display     string  `json:"display"`
	PageID      *int    `json:"pageid,omitempty"`
	Extract     string  `json:"extract"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (candidate.Summary, bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return candidate.Summary{}, false, nil
	}
	if err != nil {
		return candidate.Summary{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec summaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return candidate.Summary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return candidate.Summary{
		CanonicalTitle:   rec.Canonical,
		NormalizedTitle:  rec.Normalized,
		DisplayTitle:     rec.Display,
		PageID:           rec.PageID,
		Extract:          rec.Extract,
		ShortDescription: rec.Description,
		ImageURL:         rec.Image,
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, s candidate.Summary) error {
	data, err := json.Marshal(summaryRecord{
		Canonical:   s.CanonicalTitle,
		Normalized:  s.NormalizedTitle,
		Display:     s.DisplayTitle,
		PageID:      s.PageID,
		Extract:     s.Extract,
		Description: s.ShortDescription,
		Image:       s.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CachedClient serves summaries from a Cache before falling back to the
// network. Title search always goes to the network. Cache failures are
// logged and never fail a lookup.
type CachedClient struct {
	next    *Client
	cache   Cache
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewCachedClient(next *Client, cache Cache, m *metrics.Metrics, log logger.Logger) *CachedClient {
	return &CachedClient{next: next, cache: cache, metrics: m, log: log}
}

func (c *CachedClient) SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error) {
	return c.next.SearchTitles(ctx, prefix, limit)
}

func (c *CachedClient) FetchSummary(ctx context.Context, page candidate.Page) (candidate.Summary, error) {
	key, err := page.Slug()
	if err != nil || key == "" {
		return c.next.FetchSummary(ctx, page)
	}

	s, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheResults.WithLabelValues("error").Inc()
		c.log.Warn("Summary cache read failed", logger.String("key", key), logger.Err(err))
	case ok:
		c.metrics.CacheResults.WithLabelValues("hit").Inc()
		return s, nil
	default:
		c.metrics.CacheResults.WithLabelValues("miss").Inc()
	}

	s, err = c.next.FetchSummary(ctx, page)
	if err != nil {
		return candidate.Summary{}, err
	}
	if err := c.cache.Set(ctx, key, s); err != nil {
		c.log.Warn("Summary cache write failed", logger.String("key", key), logger.Err(err))
	}
	return s, nil
}
