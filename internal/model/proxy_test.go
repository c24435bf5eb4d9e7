package model

import (
	"testing"
)

func TestTarget_Authority(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"http default port", Target{Scheme: "http", Host: "example.com", Port: "80"}, "example.com"},
		{"https default port", Target{Scheme: "https", Host: "example.com", Port: "443"}, "example.com"},
		{"explicit port", Target{Scheme: "http", Host: "example.com", Port: "8080"}, "example.com:8080"},
		{"https on 80", Target{Scheme: "https", Host: "example.com", Port: "80"}, "example.com:80"},
		{"ipv6 default port", Target{Scheme: "http", Host: "::1", Port: "80"}, "[::1]"},
		{"ipv6 explicit port", Target{Scheme: "http", Host: "::1", Port: "8080"}, "[::1]:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Authority(); got != tt.want {
				t.Errorf("Authority() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTarget_OriginAndURL(t *testing.T) {
	tgt := &Target{Scheme: "https", Host: "example.com", Port: "8443", Path: "/a/b", RawQuery: "x=1"}

	if got := tgt.Origin(); got != "https://example.com:8443" {
		t.Errorf("Origin() = %q, want %q", got, "https://example.com:8443")
	}
	if got := tgt.URL().String(); got != "https://example.com:8443/a/b?x=1" {
		t.Errorf("URL() = %q, want %q", got, "https://example.com:8443/a/b?x=1")
	}
}
