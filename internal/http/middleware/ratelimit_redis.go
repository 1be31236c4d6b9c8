package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	// Allow records one hit for key and reports whether it is within the
	// limit, plus the hits left in the current window.
	Allow(ctx context.Context, key string) (bool, int64, error)
	Window() time.Duration
}

// InitRedis connects to Redis. It returns nil when addr is empty or the
// server does not answer, and callers fall back to in-process limiting.
func InitRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limiting", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", addr)
	return client
}

// RedisLimiter is a fixed-window limiter on INCR/EXPIRE.
// key format: <prefix>:<window_seconds>:<identifier>
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, max: max, window: window}
}

func (l *RedisLimiter) Window() time.Duration { return l.window }

func (l *RedisLimiter) Allow(ctx context.Context, ident string) (bool, int64, error) {
	key := l.prefix + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ident

	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if val == 1 {
		l.client.Expire(ctx, key, l.window)
	}
	remaining := int64(l.max) - val
	if remaining < 0 {
		remaining = 0
	}
	return val <= int64(l.max), remaining, nil
}

// NewLimiter picks Redis when a client is available, otherwise an
// in-process window.
func NewLimiter(client *redis.Client, prefix string, max int, window time.Duration) Limiter {
	if client == nil {
		return NewMemoryLimiter(max, window)
	}
	return NewRedisLimiter(client, prefix, max, window)
}

// RateLimit limits requests per client IP.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit(c, l, c.ClientIP(), c.FullPath())
	}
}

// TapRateLimit limits requests per authenticated player. JWT must run first.
func TapRateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := PlayerID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		limit(c, l, id.String(), "tap:"+c.FullPath())
	}
}

func limit(c *gin.Context, l Limiter, ident, endpoint string) {
	allowed, remaining, err := l.Allow(c.Request.Context(), ident)
	if err != nil {
		// fail-open
		c.Header("X-RateLimit-Error", "redis-error")
		logger.WithContext(c.Request.Context()).Warn("rate limiter error", "error", err)
		c.Next()
		return
	}
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

	if !allowed {
		metrics.RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(l.Window().Seconds()),
		})
		return
	}
	metrics.RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}
