package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gqlreg/types"
)

// Reclassifier converts TLS and certificate failures raised by the layers
// below it into a synthetic 403 response. The GraphQL client library treats
// transport errors as transient and retries with backoff; a connection that
// fails certificate validation will never succeed, so those failures must
// surface as a terminal HTTP status instead. Everything that is not a
// security failure propagates unchanged.
type Reclassifier struct {
	Next http.RoundTripper
}

func NewReclassifier(next http.RoundTripper) *Reclassifier {
	return &Reclassifier{Next: next}
}

func (t *Reclassifier) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Next.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if !isSecurityError(err) {
		return nil, err
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", http.StatusForbidden, err.Error()),
		StatusCode:    http.StatusForbidden,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader([]byte("{}"))),
		ContentLength: 2,
		Request:       req,
	}, nil
}

// isSecurityError reports whether err is a TLS/certificate-validation
// failure, including a rejection by the certificate-transparency check.
func isSecurityError(err error) bool {
	var certVerify *tls.CertificateVerificationError
	if errors.As(err, &certVerify) {
		return true
	}
	var recordHeader tls.RecordHeaderError
	if errors.As(err, &recordHeader) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var systemRoots x509.SystemRootsError
	if errors.As(err, &systemRoots) {
		return true
	}
	return errors.Is(err, types.ErrUntrustedCert)
}
