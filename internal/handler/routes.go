package handler

import (
	"github.com/labstack/echo/v4"

	"web-proxy-go/internal/config"
	"web-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(
	e *echo.Echo,
	cfg *config.Config,
	proxy *ProxyHandler,
	health *HealthHandler,
	index *IndexHandler,
	metrics *MetricsHandler,
) {
	secure := middleware.SecurityHeaders()

	e.GET("/", index.Index, secure)
	e.GET("/healthz", health.Healthz, secure)
	e.GET("/status", health.Status, secure)

	entry := cfg.Proxy.EntryPath
	e.Any(entry, proxy.Handle)
	e.Any(entry+"/*", proxy.Handle)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, metrics.Serve)
	}
}
