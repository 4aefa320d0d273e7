package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/limiter"

	"github.com/labstack/echo/v4"
)

type RateLimitConfig struct {
	Limit   int
	Window  time.Duration
	KeyFunc func(c echo.Context) string
}

// NewRateLimitMiddleware throttles an endpoint with a fixed window per
// key. Used on the login route as a blunt brute-force brake in front of
// the per-id lockout ledger.
func NewRateLimitMiddleware(store limiter.Store, config RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var key string
			if config.KeyFunc != nil {
				key = config.KeyFunc(c)
			}
			if key == "" {
				key = c.RealIP()
			}
			redisKey := fmt.Sprintf("httplimit:%s", key)
			count, err := store.Incr(c.Request().Context(), redisKey, config.Window)

			if err != nil {
				// fail open so a store outage does not take the endpoint down
				c.Logger().Errorf("Rate limit store error: %v", err)
				return next(c)
			}

			if count > config.Limit {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code": "429",
					"msg":  "Too Many Requests",
				})
			}
			return next(c)
		}
	}
}
