// Package validator turns the caller-supplied url parameter into a Target.
// It performs no network I/O.
package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"web-proxy-go/internal/model"
)

var (
	// ErrMissingParameter is returned when the url parameter is absent or empty.
	ErrMissingParameter = errors.New("missing url parameter")

	// ErrMalformedURL is returned when the value is not an absolute URL with a host.
	ErrMalformedURL = errors.New("malformed url")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// Validate parses raw into a Target. raw must already be percent-decoded.
func Validate(raw string) (*model.Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingParameter
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrMalformedURL, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Opaque != "" {
		return nil, fmt.Errorf("%w: %q has no authority", ErrMalformedURL, raw)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}

	port := u.Port()
	if port == "" {
		port = model.DefaultPort(scheme)
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("%w: invalid port %q", ErrMalformedURL, port)
	}

	return &model.Target{
		Scheme:   scheme,
		Host:     strings.ToLower(host),
		Port:     port,
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: u.RawQuery,
	}, nil
}
