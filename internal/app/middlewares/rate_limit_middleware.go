package middlewares

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/pkg"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Rate) (bool, RateLimitInfo)
	Reset(ctx context.Context, key string) error
}

// Rate defines the rate limit configuration
type Rate struct {
	Requests int
	Window   time.Duration
}

// RateLimitInfo contains information about the current rate limit status
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	limiter RateLimiter
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RedisRateLimiter implements RateLimiter using Redis
type RedisRateLimiter struct {
	redis     *redis.Client
	keyPrefix string
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(redis *redis.Client, config *infrastructures.AppConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:     redis,
		keyPrefix: config.RATE_LIMIT_PREFIX,
	}
}

func (l *RedisRateLimiter) formatKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", l.keyPrefix, key)
}

// Allow implements RateLimiter.Allow using a sliding window over a sorted set
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit Rate) (bool, RateLimitInfo) {
	now := time.Now()
	windowKey := l.formatKey(key)

	pipe := l.redis.TxPipeline()

	// Remove old entries outside the window
	windowStart := now.Add(-limit.Window).UnixNano()
	pipe.ZRemRangeByScore(ctx, windowKey, "0", strconv.FormatInt(windowStart, 10))

	// Get current count
	card := pipe.ZCard(ctx, windowKey)

	// Add current request
	pipe.ZAdd(ctx, windowKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString()),
	})

	// Set expiry to clean up old keys
	pipe.Expire(ctx, windowKey, limit.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open
		logrus.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
		return true, RateLimitInfo{
			Limit:     limit.Requests,
			Remaining: limit.Requests,
			Reset:     now.Add(limit.Window),
		}
	}

	remaining := limit.Requests - int(card.Val()) - 1
	allowed := remaining >= 0
	if remaining < 0 {
		remaining = 0
	}

	return allowed, RateLimitInfo{
		Limit:     limit.Requests,
		Remaining: remaining,
		Reset:     now.Add(limit.Window),
	}
}

// Reset implements RateLimiter.Reset
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.formatKey(key)).Err()
}

// Common rate limits
var (
	PublicAPILimit = Rate{
		Requests: 120,
		Window:   time.Minute,
	}

	VerifyLimit = Rate{
		Requests: 30,
		Window:   time.Minute,
	}

	RedeemLimit = Rate{
		Requests: 10,
		Window:   time.Minute,
	}
)

// LimitByIP creates a middleware that rate limits by IP address
func (m *RateLimitMiddleware) LimitByIP(limit Rate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ip:%s", getIPAddress(c))
		return m.handleRateLimit(c, key, limit)
	}
}

// LimitByUser creates a middleware that rate limits by user ID, falling back to the IP
func (m *RateLimitMiddleware) LimitByUser(scope string, limit Rate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID := c.Locals(LocalUserID); userID != nil {
			key := fmt.Sprintf("%s:user:%v", scope, userID)
			return m.handleRateLimit(c, key, limit)
		}
		key := fmt.Sprintf("%s:ip:%s", scope, getIPAddress(c))
		return m.handleRateLimit(c, key, limit)
	}
}

func (m *RateLimitMiddleware) handleRateLimit(c *fiber.Ctx, key string, limit Rate) error {
	allowed, info := m.limiter.Allow(c.UserContext(), key, limit)

	c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))

	if !allowed {
		return pkg.ErrorResponse(c, errors.NewTooManyRequestsError("Rate limit exceeded", info.Limit, info.Reset.Unix()))
	}

	return c.Next()
}

// getIPAddress gets the client IP address from request
func getIPAddress(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xrip := c.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	return c.IP()
}
