package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"web-proxy-go/internal/config"
	"web-proxy-go/internal/metrics"
	"web-proxy-go/internal/model"
	"web-proxy-go/internal/service"
	"web-proxy-go/internal/validator"
)

const (
	invalidURLMessage  = "Invalid URL provided"
	proxyErrorPrefix   = "Proxy error: "
	relayBufferSize    = 32 * 1024
	missingParamFormat = "Missing url parameter. Usage: %s?url=https://example.com"
)

// ProxyHandler serves the entry path: it validates the target, forwards the
// request and streams the response back.
type ProxyHandler struct {
	service   *service.ProxyService
	metrics   *metrics.Metrics
	entryPath string
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler. m may be nil.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service:   svc,
		metrics:   m,
		entryPath: cfg.Proxy.EntryPath,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the target named by the url query parameter.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	target, err := validator.Validate(c.QueryParam(service.TargetParam))
	if err != nil {
		return h.reject(c, err)
	}

	// BodyLimit wraps every body, so a request without one must be made
	// recognisable to the transport again.
	body := req.Body
	if req.ContentLength == 0 {
		body = http.NoBody
	}

	pr := &model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header,
		Body:   body,
	}

	resp, err := h.service.Forward(pr, target)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already sent, so a failure here can only truncate
	// the response.
	if err := h.relay(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"target", target.Origin(),
		)
	}
	return nil
}

// relay copies body to w, flushing after every chunk so the caller receives
// bytes as soon as the target sends them.
func (h *ProxyHandler) relay(w *echo.Response, body io.Reader) error {
	rc := http.NewResponseController(w)
	buf := make([]byte, relayBufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to client: %w", werr)
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return fmt.Errorf("flush to client: %w", ferr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read from target: %w", rerr)
		}
	}
}

func (h *ProxyHandler) reject(c echo.Context, err error) error {
	reason := "malformed_url"
	msg := invalidURLMessage
	switch {
	case errors.Is(err, validator.ErrMissingParameter):
		reason = "missing_parameter"
		msg = fmt.Sprintf(missingParamFormat, h.entryPath)
	case errors.Is(err, validator.ErrUnsupportedScheme):
		reason = "unsupported_scheme"
	}

	if h.metrics != nil {
		h.metrics.ValidationErrors.WithLabelValues(reason).Inc()
	}
	h.logger.Debug("rejected target", "reason", reason, "err", err)

	return c.String(http.StatusBadRequest, msg)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	var te *service.TransportError
	if !errors.As(err, &te) {
		return fmt.Errorf("proxy: %w", err)
	}

	if h.metrics != nil {
		h.metrics.UpstreamFailures.WithLabelValues(te.Kind).Inc()
	}

	attrs := []any{"err", err, "kind", te.Kind, "path", c.Request().URL.Path}
	if te.Kind == service.KindCanceled {
		h.logger.Warn("proxy error", attrs...)
	} else {
		h.logger.Error("proxy error", attrs...)
	}

	return c.String(http.StatusInternalServerError, proxyErrorPrefix+te.Description())
}
