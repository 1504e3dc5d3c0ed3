package ctverify

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gqlreg/types"
)

var (
	knownLogID   = fill(32, 0xAA)
	unknownLogID = fill(32, 0xBB)
)

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func logListJSON(ids ...[]byte) []byte {
	logs := ""
	for i, id := range ids {
		if i > 0 {
			logs += ","
		}
		logs += fmt.Sprintf(`{"log_id": %q}`, base64.StdEncoding.EncodeToString(id))
	}
	return []byte(fmt.Sprintf(`{"operators": [{"name": "Test Op", "logs": [%s]}]}`, logs))
}

// sctListBytes builds a TLS SignedCertificateTimestampList holding one v1
// SCT per log ID.
func sctListBytes(ids ...[]byte) []byte {
	var items []byte
	for _, id := range ids {
		sct := append([]byte{0}, id...)        // version + log id
		sct = append(sct, make([]byte, 14)...) // timestamp, extensions, sig stub
		items = append(items, byte(len(sct)>>8), byte(len(sct)))
		items = append(items, sct...)
	}
	return append([]byte{byte(len(items) >> 8), byte(len(items))}, items...)
}

func certWithSCTs(t *testing.T, ids ...[]byte) *x509.Certificate {
	t.Helper()
	der, err := asn1.Marshal(sctListBytes(ids...))
	require.NoError(t, err)
	return &x509.Certificate{
		Subject:    pkix.Name{CommonName: "api.example.com"},
		Extensions: []pkix.Extension{{Id: sctExtensionOID, Value: der}},
	}
}

// primedVerifier skips the network: the log list sits in the memory cache.
func primedVerifier(ids ...[]byte) *Verifier {
	v := New(types.CTLogConfig{LogListURL: "https://unused.example.com"}, nil)
	set := make(logIDSet)
	for _, id := range ids {
		var key [32]byte
		copy(key[:], id)
		set[key] = struct{}{}
	}
	v.cache.Set(v.cfg.LogListURL, set, time.Hour)
	return v
}

func TestParseLogList(t *testing.T) {
	ids, err := parseLogList(logListJSON(knownLogID, unknownLogID))
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.True(t, ids.contains(knownLogID))

	_, err = parseLogList([]byte(`{"operators": []}`))
	assert.Error(t, err)

	_, err = parseLogList([]byte(`not json`))
	assert.Error(t, err)
}

func TestVerifyLeaf(t *testing.T) {
	v := primedVerifier(knownLogID)

	require.NoError(t, v.VerifyLeaf(certWithSCTs(t, knownLogID)))
	require.NoError(t, v.VerifyLeaf(certWithSCTs(t, unknownLogID, knownLogID)))

	err := v.VerifyLeaf(certWithSCTs(t, unknownLogID))
	require.ErrorIs(t, err, types.ErrUntrustedCert)

	err = v.VerifyLeaf(&x509.Certificate{Subject: pkix.Name{CommonName: "bare.example.com"}})
	require.ErrorIs(t, err, types.ErrUntrustedCert)
}

func TestKnownLogIDsFromDiskCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, logListCacheFile), logListJSON(knownLogID), 0o644))

	// Any network attempt fails loudly; the disk copy must satisfy the load.
	v := New(types.CTLogConfig{
		LogListURL: "https://unreachable.example.com/log_list.json",
		CacheDir:   dir,
		MaxAge:     time.Hour,
	}, rtFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("no network in this test")
	}))

	ids, err := v.knownLogIDs()
	require.NoError(t, err)
	assert.True(t, ids.contains(knownLogID))

	// Second load hits the memory cache even if the disk copy vanishes.
	require.NoError(t, os.Remove(filepath.Join(dir, logListCacheFile)))
	ids, err = v.knownLogIDs()
	require.NoError(t, err)
	assert.True(t, ids.contains(knownLogID))
}

func TestFetchWritesDiskCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(logListJSON(knownLogID))
	}))
	defer srv.Close()

	dir := t.TempDir()
	v := New(types.CTLogConfig{LogListURL: srv.URL, CacheDir: dir, MaxAge: time.Hour}, nil)

	ids, err := v.knownLogIDs()
	require.NoError(t, err)
	assert.True(t, ids.contains(knownLogID))
	assert.FileExists(t, filepath.Join(dir, logListCacheFile))
}

func TestFetchLogListGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write(logListJSON(knownLogID))
		_ = gz.Close()
	}))
	defer srv.Close()

	raw, err := fetchLogList(srv.Client(), srv.URL)
	require.NoError(t, err)

	ids, err := parseLogList(raw)
	require.NoError(t, err)
	assert.True(t, ids.contains(knownLogID))
}

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestWrapSkipsPlaintext(t *testing.T) {
	v := primedVerifier(knownLogID)
	want := &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}
	rt := v.Wrap(rtFunc(func(*http.Request) (*http.Response, error) { return want, nil }))

	req, err := http.NewRequest(http.MethodGet, "http://localhost/graphql", nil)
	require.NoError(t, err)

	got, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestWrapRejectsUnknownLeaf(t *testing.T) {
	v := primedVerifier(knownLogID)
	rt := v.Wrap(rtFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       http.NoBody,
			TLS: &tls.ConnectionState{
				PeerCertificates: []*x509.Certificate{certWithSCTs(t, unknownLogID)},
			},
		}, nil
	}))

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/graphql", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, types.ErrUntrustedCert)
}

func TestWrapAcceptsKnownLeaf(t *testing.T) {
	v := primedVerifier(knownLogID)
	rt := v.Wrap(rtFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       http.NoBody,
			TLS: &tls.ConnectionState{
				PeerCertificates: []*x509.Certificate{certWithSCTs(t, knownLogID)},
			},
		}, nil
	}))

	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/graphql", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
