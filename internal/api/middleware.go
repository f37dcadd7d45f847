// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Corphon/SceneStudio/internal/utils"
)

// RateLimiter implements a fixed window rate limiter keyed by client
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

// Visitor represents a client with rate limiting data
type Visitor struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop
func NewRateLimiter(cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		stop:     make(chan struct{}),
	}

	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	go rl.cleanup(cleanupInterval)

	return rl
}

// cleanup removes visitors whose window has expired
func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, visitor := range rl.visitors {
				if now.After(visitor.Reset) {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow checks if a visitor is allowed to make a request
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	visitor, exists := rl.visitors[key]

	if !exists || now.After(visitor.Reset) {
		rl.visitors[key] = &Visitor{
			Limit:     limit,
			Remaining: limit - 1,
			Reset:     now.Add(window),
		}
		return true
	}

	if visitor.Remaining <= 0 {
		return false
	}

	visitor.Remaining--
	return true
}

// GetRateLimitHeaders returns the rate limit headers
func (rl *RateLimiter) GetRateLimitHeaders(key string, limit int, window time.Duration) (int, int, int64) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	visitor, exists := rl.visitors[key]
	if !exists {
		return limit, limit, time.Now().Add(window).Unix()
	}

	remaining := visitor.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return limit, remaining, visitor.Reset.Unix()
}

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(rl *RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	response := NewResponseHelper()

	return func(c *gin.Context) {
		key := keyFunc(c)
		allowed := rl.Allow(key, limit, window)

		limit, remaining, reset := rl.GetRateLimitHeaders(key, limit, window)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, ErrorRateLimitExceeded, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimitByIP applies rate limiting based on client IP address
func RateLimitByIP(rl *RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimitMiddleware(rl, limit, window, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// metricsMiddleware 记录请求计数和耗时，成功的会话修改同时计为向导操作
func metricsMiddleware(metrics *utils.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordAPIRequest(endpoint, c.Request.Method, status, time.Since(start))

		if status >= http.StatusBadRequest {
			if code, ok := c.Get("error_code"); ok {
				metrics.RecordError(fmt.Sprint(code), endpoint)
			}
			return
		}
		if c.Request.Method != http.MethodGet && strings.Contains(endpoint, "/sessions/:id/") {
			action := endpoint[strings.LastIndex(endpoint, "/")+1:]
			if strings.HasPrefix(action, ":") {
				action = strings.ToLower(c.Request.Method) + "_scene"
			}
			metrics.RecordWizardAction(action)
		}
	}
}

// requestIDMiddleware 为每个请求分配ID，客户端提供 X-Request-ID 时沿用
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
