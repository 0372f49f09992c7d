package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
)

const rateLimitRedisTimeout = 2 * time.Second

// RateLimitPolicy содержит настройки одного лимита
type RateLimitPolicy struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// PlayRateLimitPolicy возвращает лимит для маршрутов игроков
func PlayRateLimitPolicy(cfg config.RateLimitConfig) RateLimitPolicy {
	policy := RateLimitPolicy{
		MaxRequests: cfg.MaxRequests,
		Window:      cfg.Window,
		KeyPrefix:   "rl:play",
	}
	if policy.MaxRequests <= 0 {
		policy.MaxRequests = 60
	}
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	return policy
}

// RateLimiter создаёт middleware для rate limiting на основе Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit возвращает Gin middleware с заданной политикой.
// Ключ формируется из IP + шаблона маршрута. При недоступности Redis запрос пропускается.
func (rl *RateLimiter) Limit(policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", policy.KeyPrefix, clientIP, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), rateLimitRedisTimeout)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("[RateLimiter] Ошибка Redis, запрос пропущен (fail-open)")
			c.Next()
			return
		}

		// Первый запрос в окне задает TTL
		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, policy.Window).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("[RateLimiter] Не удалось установить TTL")
			}
		}

		remaining := policy.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(policy.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", policy.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > policy.MaxRequests {
			log.Warn().Str("ip", clientIP).Str("path", path).Int64("count", count).Int("limit", policy.MaxRequests).
				Msg("[RateLimiter] Превышен лимит запросов")

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
