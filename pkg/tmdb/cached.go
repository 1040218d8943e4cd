package tmdb

import (
	"context"
	"strings"
	"time"

	"watchlist/pkg/logger"
	"watchlist/pkg/models"

	"github.com/sirupsen/logrus"
)

// ResultCache stores successful lookups. Misses and backend failures look the same.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.MetadataResult, bool)
	Set(ctx context.Context, key string, result *models.MetadataResult, ttl time.Duration)
}

// CachedClient serves repeated titles from a ResultCache.
type CachedClient struct {
	next   Lookup
	cache  ResultCache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedClient returns next unchanged when caching is disabled.
func NewCachedClient(next Lookup, cache ResultCache, ttl time.Duration, log *logrus.Logger) Lookup {
	if cache == nil || ttl <= 0 {
		return next
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, logger: log}
}

func (c *CachedClient) SearchByTitle(ctx context.Context, title string) (*models.MetadataResult, error) {
	key := cacheKey(title)
	if hit, ok := c.cache.Get(ctx, key); ok {
		c.logger.WithField("title", title).Debug("metadata cache hit")
		return hit, nil
	}

	result, err := c.next.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, result, c.ttl)
	return result, nil
}

func cacheKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
