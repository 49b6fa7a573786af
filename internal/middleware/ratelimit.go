package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"microblog_backend/pkg/apperrors"
)

// RateLimitMiddleware applies a per-client-IP token bucket. Used on the
// credential endpoints (login, token issuance, reset requests) to slow
// down guessing.
func RateLimitMiddleware(rps rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rps, burst)
			limiters[ip] = l
		}
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			apperrors.HandleError(c, apperrors.New(
				apperrors.CodeValidationFailed,
				"too many requests, slow down",
				429,
			))
			return
		}
		c.Next()
	}
}
