// Package cache keeps presigned download URLs in redis so repeat reads of
// popular media do not re-sign on every request. Entries live for half the
// signature window, so a cached URL is always still valid when served.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const downloadURLKey = "download_url:%s" // download_url:objectKey

type URLCache struct {
	redis  *redis.Client
	expiry time.Duration
}

// NewURLCache creates a cache for URLs signed with the given expiry.
func NewURLCache(redisClient *redis.Client, signatureExpiry time.Duration) *URLCache {
	return &URLCache{
		redis:  redisClient,
		expiry: signatureExpiry / 2,
	}
}

// GetDownloadURL returns a cached URL for the key, if one is still fresh.
func (c *URLCache) GetDownloadURL(ctx context.Context, objectKey string) (string, bool) {
	cached, err := c.redis.Get(ctx, fmt.Sprintf(downloadURLKey, objectKey)).Result()
	if err != nil {
		return "", false
	}
	return cached, true
}

// PutDownloadURL caches a freshly signed URL. Failures are ignored: the
// cache is an optimization, not a source of truth.
func (c *URLCache) PutDownloadURL(ctx context.Context, objectKey, url string) {
	c.redis.Set(ctx, fmt.Sprintf(downloadURLKey, objectKey), url, c.expiry)
}

// Invalidate drops the cached URL for a key, e.g. after deletion.
func (c *URLCache) Invalidate(ctx context.Context, objectKey string) {
	c.redis.Del(ctx, fmt.Sprintf(downloadURLKey, objectKey))
}
