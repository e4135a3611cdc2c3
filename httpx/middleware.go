package httpx

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = echo.HeaderXRequestID

// RequestIDMiddleware tags every request with a UUID unless the caller sent one.
func RequestIDMiddleware() MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// RateLimitMiddleware bounds inbound requests per client IP. Denied requests
// get 429 with a Retry-After of one second.
func RateLimitMiddleware(perSecond float64, burst int) MiddlewareFunc {
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c Context, _ string, _ error) error {
			c.Response().Header().Set("Retry-After", "1")
			return HTTPError(StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// ZapLoggerMiddleware logs one structured line per request.
func ZapLoggerMiddleware(logger *zap.Logger) MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("http request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("http request", fields...)
			return nil
		},
	})
}
