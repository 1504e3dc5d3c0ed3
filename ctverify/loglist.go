package ctverify

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

const logListCacheFile = "log_list.json"

// logList mirrors the subset of the v3 log-list schema we need: the set of
// log IDs currently accepted by browsers.
type logList struct {
	Operators []struct {
		Name string `json:"name"`
		Logs []struct {
			LogID string `json:"log_id"`
		} `json:"logs"`
	} `json:"operators"`
}

// logIDSet is the parsed form: base64-decoded 32-byte log IDs, keyed by their
// raw bytes for O(1) membership checks.
type logIDSet map[[32]byte]struct{}

func (s logIDSet) contains(id []byte) bool {
	if len(id) != 32 {
		return false
	}
	var key [32]byte
	copy(key[:], id)
	_, ok := s[key]
	return ok
}

func parseLogList(raw []byte) (logIDSet, error) {
	var list logList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("log list: %w", err)
	}
	ids := make(logIDSet)
	for _, op := range list.Operators {
		for _, l := range op.Logs {
			id, err := base64.StdEncoding.DecodeString(l.LogID)
			if err != nil || len(id) != 32 {
				continue
			}
			var key [32]byte
			copy(key[:], id)
			ids[key] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("log list: no usable log IDs")
	}
	return ids, nil
}

// readCachedLogList returns the on-disk copy if it is younger than maxAge.
func readCachedLogList(dir string, maxAge time.Duration) ([]byte, bool) {
	if dir == "" {
		return nil, false
	}
	path := filepath.Join(dir, logListCacheFile)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// writeCachedLogList is best-effort; a failed write only costs a re-fetch.
func writeCachedLogList(dir string, raw []byte) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, logListCacheFile), raw, 0o644)
}

// fetchLogList downloads the log list. We ask for gzip explicitly and
// decompress ourselves so the check works the same against mirrors that
// always compress.
func fetchLogList(client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log list: fetch %s: %s", url, resp.Status)
	}
	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("log list: gzip: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		body = gz
	}
	return io.ReadAll(io.LimitReader(body, 8<<20))
}
