package service

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"syscall"
)

// Transport failure kinds, used as the TransportError.Kind value and as a metric label.
const (
	KindTimeout  = "timeout"
	KindDNS      = "dns"
	KindRefused  = "refused"
	KindTLS      = "tls"
	KindCanceled = "canceled"
	KindOther    = "other"
)

// TransportError reports a failure to obtain a response from the target.
type TransportError struct {
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	return "transport failure (" + e.Kind + "): " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Description returns the underlying cause without the request method and URL
// that net/http prepends.
func (e *TransportError) Description() string {
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return e.Err.Error()
}

func newTransportError(err error) *TransportError {
	return &TransportError{Kind: classify(err), Err: err}
}

func classify(err error) string {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}

	var (
		recordErr    tls.RecordHeaderError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostnameErr) || errors.As(err, &invalidErr) {
		return KindTLS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindOther
}
