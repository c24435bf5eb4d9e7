// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
)

// ProxyRequest represents an inbound request addressed to the entry path.
// Query still carries the url parameter; the forwarding engine removes it.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   io.ReadCloser
}

// ProxyResponse represents the target response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Target is a validated outbound destination.
type Target struct {
	Scheme   string
	Host     string
	Port     string
	Path     string
	RawPath  string
	RawQuery string
}

// DefaultPort returns the well-known port for scheme, or empty string.
func DefaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// Authority returns host[:port], omitting the port when it is the scheme default.
func (t *Target) Authority() string {
	if t.Port == "" || t.Port == DefaultPort(t.Scheme) {
		// IPv6 literals still need brackets without a port.
		if ip := net.ParseIP(t.Host); ip != nil && ip.To4() == nil {
			return "[" + t.Host + "]"
		}
		return t.Host
	}
	return net.JoinHostPort(t.Host, t.Port)
}

// Origin returns scheme://authority.
func (t *Target) Origin() string {
	return t.Scheme + "://" + t.Authority()
}

// URL returns the target as a *url.URL.
func (t *Target) URL() *url.URL {
	return &url.URL{
		Scheme:   t.Scheme,
		Host:     t.Authority(),
		Path:     t.Path,
		RawPath:  t.RawPath,
		RawQuery: t.RawQuery,
	}
}
