package handler

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"web-proxy-go/internal/config"
)

//go:embed static/index.html
var indexTemplate string

// IndexHandler serves the instructions page.
type IndexHandler struct {
	page []byte
}

// NewIndexHandler renders the instructions page for the configured entry path.
func NewIndexHandler(cfg *config.Config) (*IndexHandler, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ EntryPath string }{cfg.Proxy.EntryPath}); err != nil {
		return nil, fmt.Errorf("render index template: %w", err)
	}

	return &IndexHandler{page: buf.Bytes()}, nil
}

// Index returns the static instructions page.
func (h *IndexHandler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, h.page)
}
