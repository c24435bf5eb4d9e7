package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"web-proxy-go/internal/metrics"
)

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	handler echo.HandlerFunc
}

// NewMetricsHandler creates a MetricsHandler serving m's registry.
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
	return &MetricsHandler{handler: echo.WrapHandler(h)}
}

// Serve writes the metrics exposition.
func (h *MetricsHandler) Serve(c echo.Context) error {
	return h.handler(c)
}
