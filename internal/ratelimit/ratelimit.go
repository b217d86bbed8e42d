package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket rate-limits upload API actions per user, backed by redis so
// the limit holds across service replicas.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64         // Maximum number of tokens
	refill   int64         // Number of tokens to refill per window
	window   time.Duration // Time window for refilling (1 minute)
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

func bucketKey(userID, action string) string {
	return fmt.Sprintf("upload_rate:%s:%s", userID, action)
}

// consumeScript refills the bucket based on elapsed time, then tries to
// take one token. Runs atomically inside redis.
const consumeScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`

// remainingScript reports the current token count without consuming.
const remainingScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`

// Allow checks if the user can perform an action based on rate limiting
// Returns true if action is allowed, false otherwise
func (tb *TokenBucket) Allow(ctx context.Context, userID, action string) (bool, error) {
	now := time.Now().Unix()
	result, err := tb.redis.Eval(ctx, consumeScript, []string{bucketKey(userID, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), now).Result()

	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}

	return allowed == 1, nil
}

// GetRemaining returns the number of remaining tokens for a user action
func (tb *TokenBucket) GetRemaining(ctx context.Context, userID, action string) (int64, error) {
	now := time.Now().Unix()
	result, err := tb.redis.Eval(ctx, remainingScript, []string{bucketKey(userID, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), now).Result()

	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from remaining tokens script")
	}

	return remaining, nil
}

// Reset clears the rate limit for a specific user action
func (tb *TokenBucket) Reset(ctx context.Context, userID, action string) error {
	return tb.redis.Del(ctx, bucketKey(userID, action)).Err()
}
