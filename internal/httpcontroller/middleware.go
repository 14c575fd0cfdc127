package httpcontroller

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/masvision/shelfsync/internal/logger"
)

func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.requestLogger())
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	log := s.log.Module("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()[:8]
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []logger.Field{
				logger.String("request_id", requestID),
				logger.String("client_ip", c.RealIP()),
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.Int("status", c.Response().Status),
				logger.Duration("duration", time.Since(start)),
			}
			if req.URL.Path == "/metrics" || req.URL.Path == "/" {
				log.Trace("request", fields...)
			} else {
				log.Info("request", fields...)
			}
			return nil
		}
	}
}

// updateRateLimiter limits trigger requests per client IP.
func (s *Server) updateRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.cfg.UpdateRate),
				Burst:     s.cfg.UpdateBurst,
				ExpiresIn: 10 * time.Minute,
			},
		),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.String(http.StatusForbidden, "Update failed")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.String(http.StatusTooManyRequests, "Too many update requests")
		},
	})
}
