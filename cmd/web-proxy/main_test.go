package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"web-proxy-go/internal/client"
	"web-proxy-go/internal/config"
	"web-proxy-go/internal/handler"
	"web-proxy-go/internal/metrics"
	"web-proxy-go/internal/service"
)

func TestAppOptions_Validate(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions(&config.CLI{})))
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(&config.Config{Log: config.LogConfig{Level: tt.level, Format: "text"}})
			assert.True(t, logger.Enabled(context.Background(), tt.want))
			if tt.want > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tt.want-4))
			}
		})
	}
}

// newTestServer assembles the HTTP stack the same way the fx graph does.
func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	e := newEcho(cfg, logger, m, newPathNormalizer(cfg))
	svc := service.NewProxyService(client.NewTargetClient(cfg, logger, m), cfg, logger)
	index, err := handler.NewIndexHandler(cfg)
	require.NoError(t, err)
	handler.RegisterRoutes(e, cfg,
		handler.NewProxyHandler(svc, cfg, m, logger),
		handler.NewHealthHandler(cfg, "test"),
		index,
		handler.NewMetricsHandler(m),
	)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(&config.CLI{})
	require.NoError(t, err)
	return cfg
}

func TestServer_CORSOnEveryResponse(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "https://only.example.com")
		_, _ = w.Write([]byte("hello"))
	}))
	defer target.Close()

	srv := newTestServer(t, defaultConfig(t))

	paths := []string{
		"/",
		"/proxy",
		"/proxy?url=not%20a%20url",
		"/proxy?" + url.Values{"url": {target.URL}}.Encode(),
		"/proxy?url=http%3A%2F%2F127.0.0.1%3A1%2F",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+p, http.NoBody)
			require.NoError(t, err)
			req.Header.Set("Origin", "https://app.example.org")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_Preflight(t *testing.T) {
	srv := newTestServer(t, defaultConfig(t))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/proxy?url=https://example.com", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_RequestID(t *testing.T) {
	srv := newTestServer(t, defaultConfig(t))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Len(t, resp.Header.Get("X-Request-Id"), 36)
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Server.BodyMaxBytes = 8
	srv := newTestServer(t, cfg)

	resp, err := http.Post(srv.URL+"/proxy?url=http://127.0.0.1:1/", "text/plain",
		bytes.NewReader(bytes.Repeat([]byte("x"), 64)))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
