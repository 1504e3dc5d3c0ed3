// Package ctverify checks that a server's TLS certificate carries a signed
// certificate timestamp (SCT) from a known certificate-transparency log.
// The set of known logs comes from a public log list, fetched lazily on
// first use and cached on disk and in memory.
package ctverify

import (
	"crypto/x509"
	"encoding/asn1"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gqlreg/types"
)

// OID of the embedded SCT list extension (RFC 6962 §3.3).
var sctExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}

// Verifier produces transport wrappers that reject peers whose leaf
// certificate has no embedded SCT from a known log. One Verifier per backend
// namespace; the log list is shared through the in-memory cache regardless.
type Verifier struct {
	cfg    types.CTLogConfig
	client *http.Client

	mu     sync.Mutex
	logIDs logIDSet
	cache  *ttlCache[string, logIDSet]
}

// New builds a Verifier whose log-list fetches go through the given
// transport (the registry's shared pool).
func New(cfg types.CTLogConfig, pool http.RoundTripper) *Verifier {
	if cfg.LogListURL == "" {
		cfg.LogListURL = types.DefaultLogListURL
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = types.DefaultLogListMaxAge
	}
	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Transport: pool, Timeout: 30 * time.Second},
		cache:  newTTLCache[string, logIDSet](),
	}
}

// Wrap implements ports.CTVerifier.
func (v *Verifier) Wrap(next http.RoundTripper) http.RoundTripper {
	return &ctRoundTripper{v: v, next: next}
}

type ctRoundTripper struct {
	v    *Verifier
	next http.RoundTripper
}

func (rt *ctRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	// Plaintext connections (local endpoints, tests) have nothing to check.
	if resp.TLS == nil || len(resp.TLS.PeerCertificates) == 0 {
		return resp, nil
	}
	if err := rt.v.VerifyLeaf(resp.TLS.PeerCertificates[0]); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// VerifyLeaf checks that cert embeds at least one SCT issued by a log on the
// current log list.
func (v *Verifier) VerifyLeaf(cert *x509.Certificate) error {
	ids, err := v.knownLogIDs()
	if err != nil {
		return err
	}
	scts, err := embeddedSCTLogIDs(cert)
	if err != nil {
		return types.Err(types.ErrUntrustedCert, err, "subject %q", cert.Subject.CommonName)
	}
	for _, id := range scts {
		if ids.contains(id) {
			return nil
		}
	}
	return types.Err(types.ErrUntrustedCert, nil, "subject %q: no SCT from a known log", cert.Subject.CommonName)
}

// knownLogIDs returns the accepted log IDs, loading the log list on first
// use: memory cache, then disk cache, then network.
func (v *Verifier) knownLogIDs() (logIDSet, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ids, ok := v.cache.Get(v.cfg.LogListURL); ok {
		return ids, nil
	}
	if raw, ok := readCachedLogList(v.cfg.CacheDir, v.cfg.MaxAge); ok {
		if ids, err := parseLogList(raw); err == nil {
			v.cache.Set(v.cfg.LogListURL, ids, v.cfg.MaxAge)
			return ids, nil
		}
	}
	raw, err := fetchLogList(v.client, v.cfg.LogListURL)
	if err != nil {
		return nil, err
	}
	ids, err := parseLogList(raw)
	if err != nil {
		return nil, err
	}
	writeCachedLogList(v.cfg.CacheDir, raw)
	v.cache.Set(v.cfg.LogListURL, ids, v.cfg.MaxAge)
	log.Debugf("ct log list loaded: %d logs", len(ids))
	return ids, nil
}

// embeddedSCTLogIDs parses the SCT list extension and returns the log ID of
// each v1 SCT. Signature bytes are not validated here; membership of the log
// ID in the public list is the property this check enforces.
func embeddedSCTLogIDs(cert *x509.Certificate) ([][]byte, error) {
	var raw []byte
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(sctExtensionOID) {
			raw = ext.Value
			break
		}
	}
	if raw == nil {
		return nil, asn1.SyntaxError{Msg: "no SCT extension"}
	}
	// Extension value is an OCTET STRING wrapping the TLS-encoded list.
	var inner []byte
	if _, err := asn1.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return parseSCTList(inner)
}

// parseSCTList walks a TLS SignedCertificateTimestampList: a 2-byte total
// length, then per-SCT 2-byte lengths. Each v1 SCT starts with a version
// byte and a 32-byte log ID.
func parseSCTList(b []byte) ([][]byte, error) {
	if len(b) < 2 {
		return nil, asn1.SyntaxError{Msg: "sct list truncated"}
	}
	total := int(b[0])<<8 | int(b[1])
	b = b[2:]
	if total > len(b) {
		return nil, asn1.SyntaxError{Msg: "sct list truncated"}
	}
	b = b[:total]

	var ids [][]byte
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, asn1.SyntaxError{Msg: "sct entry truncated"}
		}
		n := int(b[0])<<8 | int(b[1])
		b = b[2:]
		if n > len(b) {
			return nil, asn1.SyntaxError{Msg: "sct entry truncated"}
		}
		sct := b[:n]
		b = b[n:]
		// version(1) + log_id(32); skip SCTs of versions we do not know.
		if len(sct) < 33 || sct[0] != 0 {
			continue
		}
		ids = append(ids, sct[1:33])
	}
	return ids, nil
}
