package ports

import "net/http"

// CTVerifier wraps a transport with a certificate-transparency check.
// Implementations may perform network or disk I/O lazily on first use.
type CTVerifier interface {
	Wrap(next http.RoundTripper) http.RoundTripper
}
