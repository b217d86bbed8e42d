package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/mosaicmedia/media-service/internal/ratelimit"
	"github.com/mosaicmedia/media-service/internal/utils/response"
)

// Per-action limits per user per minute. Presigning is cheap but mints
// store credentials, so it gets the tightest bucket.
var actionLimits = map[string]int64{
	"presign":  30,
	"complete": 30,
	"ingest":   5,
}

const defaultLimit int64 = 60

type RateLimitConfig struct {
	redisClient *redis.Client
	limiters    map[string]*ratelimit.TokenBucket
}

func NewRateLimitConfig(redisClient *redis.Client) *RateLimitConfig {
	config := &RateLimitConfig{
		redisClient: redisClient,
		limiters:    make(map[string]*ratelimit.TokenBucket),
	}

	for action, limit := range actionLimits {
		config.limiters[action] = ratelimit.NewTokenBucket(redisClient, limit, limit)
	}

	return config
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get user ID from context (assumes auth middleware ran first)
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			// Get the appropriate rate limiter
			limiter, exists := rlc.limiters[action]
			if !exists {
				// If no rate limiter configured for this action, allow the request
				next.ServeHTTP(w, r)
				return
			}

			// Check if user is allowed to perform this action
			allowed, err := limiter.Allow(r.Context(), userID, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), userID, action)
			setRateLimitHeaders(w, action, remaining)

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			// Allow the request to proceed
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, action string, remaining int64) {
	limit := defaultLimit
	if l, ok := actionLimits[action]; ok {
		limit = l
	}

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", "60") // 1 minute window
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func (rlc *RateLimitConfig) RateLimitedHandler(action string, handler http.HandlerFunc) http.Handler {
	return rlc.RateLimitMiddleware(action)(http.HandlerFunc(handler))
}
