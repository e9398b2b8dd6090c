package controller

import (
	reqctx "github.com/kvanc/server/internal/context"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// identityMiddleware stores the caller's network address on the request context.
func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		request := c.Request()
		c.SetRequest(request.WithContext(reqctx.WithIdentity(request.Context(), c.RealIP())))
		return next(c)
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"method":    values.Method,
				"uri":       values.URI,
				"status":    values.Status,
				"remote_ip": values.RemoteIP,
				"latency":   values.Latency,
			})
			if values.Error != nil {
				entry.WithError(values.Error).Warn("Request failed")
				return nil
			}
			entry.Debug("Request handled")
			return nil
		},
	})
}
