// Package service implements the core proxy forwarding logic.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"web-proxy-go/internal/client"
	"web-proxy-go/internal/config"
	"web-proxy-go/internal/model"
)

// TargetParam is the query parameter carrying the target URL.
const TargetParam = "url"

// userAgent is sent when the caller did not supply one, instead of the Go default.
const userAgent = "web-proxy-go/1.0"

// hopByHopHeaders are meaningful for a single connection only.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ProxyService forwards validated requests to their targets.
// It holds no per-request state and is safe for concurrent use.
type ProxyService struct {
	client    *client.TargetClient
	entryPath string
	logger    *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.TargetClient, cfg *config.Config, logger *slog.Logger) *ProxyService {
	entry := cfg.Proxy.EntryPath
	if entry == "" {
		entry = "/proxy"
	}
	return &ProxyService{
		client:    c,
		entryPath: entry,
		logger:    logger.With("component", "proxy_service"),
	}
}

// Forward sends pr to target t and returns the response.
// The caller is responsible for closing the response body.
//
// Failures reaching the target are returned as *TransportError.
func (s *ProxyService) Forward(pr *model.ProxyRequest, t *model.Target) (*model.ProxyResponse, error) {
	targetURL := s.buildTargetURL(t, pr.Path, pr.Query)
	header := s.buildRequestHeaders(pr.Header, t)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"target", t.Origin(),
		"path", targetURL.Path,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, targetURL.String(), t.Authority(), header, pr.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("forward to %s: %w", t.Origin(), err))
	}

	resp.Header = s.filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildTargetURL joins the target with whatever the caller addressed below the
// entry path, and appends every inbound query parameter except TargetParam.
func (s *ProxyService) buildTargetURL(t *model.Target, inboundPath string, query url.Values) *url.URL {
	u := t.URL()

	if rest, ok := strings.CutPrefix(inboundPath, s.entryPath); ok && strings.HasPrefix(rest, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/") + rest
		u.RawPath = ""
	}

	extra := make(url.Values, len(query))
	for k, v := range query {
		if k == TargetParam {
			continue
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		if u.RawQuery != "" {
			u.RawQuery += "&"
		}
		u.RawQuery += extra.Encode()
	}

	return u
}

// buildRequestHeaders copies src minus hop-by-hop headers and rewrites the
// headers that identify the proxy as the origin of the request.
func (s *ProxyService) buildRequestHeaders(src http.Header, t *model.Target) http.Header {
	dst := stripHopByHop(src)

	// "TE: trailers" is the one TE value that must survive the hop.
	if httpguts.HeaderValuesContainsToken(src.Values("Te"), "trailers") {
		dst.Set("Te", "trailers")
	}

	dst.Del("Host")
	if dst.Get("Origin") != "" {
		dst.Set("Origin", t.Origin())
	}
	if ref := dst.Get("Referer"); ref != "" {
		if rewritten, ok := s.refererTarget(ref); ok {
			dst.Set("Referer", rewritten)
		}
	}
	if _, ok := dst["User-Agent"]; !ok {
		dst.Set("User-Agent", userAgent)
	}

	return dst
}

// refererTarget returns the target URL embedded in a referer that points at
// this proxy's entry path.
func (s *ProxyService) refererTarget(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Path != s.entryPath && !strings.HasPrefix(u.Path, s.entryPath+"/") {
		return "", false
	}
	inner := u.Query().Get(TargetParam)
	if inner == "" {
		return "", false
	}
	return inner, true
}

func (s *ProxyService) filterResponseHeaders(src http.Header) http.Header {
	dst := stripHopByHop(src)
	for key := range dst {
		// The entry surface applies its own CORS policy.
		if strings.HasPrefix(key, "Access-Control-") {
			delete(dst, key)
		}
	}
	return dst
}

// stripHopByHop returns a copy of h without hop-by-hop headers, including any
// header named in the Connection header.
func stripHopByHop(h http.Header) http.Header {
	dst := h.Clone()
	if dst == nil {
		dst = make(http.Header)
	}

	for _, v := range h.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			token = textproto.TrimString(token)
			if httpguts.ValidHeaderFieldName(token) {
				dst.Del(token)
			}
		}
	}
	for _, key := range hopByHopHeaders {
		dst.Del(key)
	}

	return dst
}
