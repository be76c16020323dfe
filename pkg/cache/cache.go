// Package cache is the content-addressed fetch store. Entries are
// immutable once written; a re-fetch of the same normalized key
// replaces the entry atomically via rename, so readers never observe a
// torn entry. Concurrent fetches for one key coalesce to a single
// upstream call.
package cache

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arclabs561/webpipe/pkg/fetch"
)

// Policy governs read/write behavior for one pipeline invocation.
type Policy struct {
	Read  bool
	Write bool
	// TTL treats entries older than this as a miss; zero means no limit.
	TTL time.Duration
}

// DefaultPolicy reads and writes with no TTL.
func DefaultPolicy() Policy {
	return Policy{Read: true, Write: true}
}

// Store is a filesystem-backed fetch cache. One entry is one file:
// a JSON meta line followed by the raw body bytes, renamed into place
// so replacement is atomic.
type Store struct {
	root   string
	flight singleflight.Group
	index  *Index
}

// NewStore opens (creating if needed) a cache rooted at dir. The
// SQLite corpus index is optional; a nil index disables it.
func NewStore(dir string, index *Index) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &Store{root: dir, index: index}, nil
}

// Index returns the corpus index, possibly nil.
func (s *Store) Index() *Index {
	return s.index
}

// Key derives the deterministic cache key for a normalized request:
// URL, backend, byte cap and the sorted post-sanitization header set.
// The egress proxy is transport routing and is excluded.
func Key(req fetch.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "url:%s\n", req.URL)
	fmt.Fprintf(h, "backend:%s\n", req.Backend)
	fmt.Fprintf(h, "max_bytes:%d\n", req.MaxBytes)
	names := make([]string, 0, len(req.Headers))
	for name := range req.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "header:%s=%s\n", name, req.Headers[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entryMeta struct {
	SchemaVersion int               `json:"schema_version"`
	FetchedAt     int64             `json:"fetched_at_epoch_s"`
	URL           string            `json:"url"`
	FinalURL      string            `json:"final_url"`
	Status        int               `json:"status"`
	ContentType   string            `json:"content_type"`
	Headers       map[string]string `json:"headers,omitempty"`
	Truncated     bool              `json:"truncated"`
	Provider      string            `json:"provider"`
}

// metaHeaderAllowlist keeps persisted response headers privacy-safe;
// Set-Cookie and friends never reach disk.
var metaHeaderAllowlist = map[string]struct{}{
	"content-type":   {},
	"content-length": {},
	"etag":           {},
	"last-modified":  {},
	"cache-control":  {},
}

func safeMetaHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string)
	for name, value := range headers {
		if _, ok := metaHeaderAllowlist[toLowerASCII(name)]; ok {
			out[name] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key[:2], key[2:4], key+".cache")
}

// Get returns a copy of the cached response for req, or nil on a miss.
// Entries older than policy.TTL are treated as misses.
func (s *Store) Get(req fetch.Request, policy Policy) (*fetch.Response, error) {
	if !policy.Read {
		return nil, nil
	}
	return s.getByKey(Key(req), policy)
}

// GetByKey reads an entry by its precomputed key, for corpus scans
// where the original request is not at hand.
func (s *Store) GetByKey(key string, policy Policy) (*fetch.Response, error) {
	if !policy.Read || len(key) < 4 {
		return nil, nil
	}
	return s.getByKey(key, policy)
}

func (s *Store) getByKey(key string, policy Policy) (*fetch.Response, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	metaLine, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("cache meta: %w", err)
	}
	var meta entryMeta
	if err := json.Unmarshal(bytes.TrimSpace(metaLine), &meta); err != nil {
		return nil, fmt.Errorf("cache meta: %w", err)
	}
	if policy.TTL > 0 {
		age := time.Since(time.Unix(meta.FetchedAt, 0))
		if age > policy.TTL {
			return nil, nil
		}
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cache body: %w", err)
	}

	return &fetch.Response{
		URL:         meta.URL,
		FinalURL:    meta.FinalURL,
		Status:      meta.Status,
		ContentType: meta.ContentType,
		Headers:     meta.Headers,
		Body:        body,
		Truncated:   meta.Truncated,
		FromCache:   true,
		FetchedAt:   meta.FetchedAt,
		Provider:    meta.Provider,
	}, nil
}

// Put persists resp under req's key. The entry is written to a temp
// file and renamed into place: last writer wins, readers never see a
// partial write.
func (s *Store) Put(req fetch.Request, resp *fetch.Response, policy Policy) error {
	if !policy.Write || resp == nil {
		return nil
	}
	key := Key(req)
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	meta := entryMeta{
		SchemaVersion: 1,
		FetchedAt:     resp.FetchedAt,
		URL:           resp.URL,
		FinalURL:      resp.FinalURL,
		Status:        resp.Status,
		ContentType:   resp.ContentType,
		Headers:       safeMetaHeaders(resp.Headers),
		Truncated:     resp.Truncated,
		Provider:      resp.Provider,
	}
	if meta.FetchedAt == 0 {
		meta.FetchedAt = time.Now().Unix()
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), key+".tmp*")
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(append(metaLine, '\n'))
	if err == nil {
		_, err = tmp.Write(resp.Body)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put: %w", err)
	}

	if s.index != nil {
		// Index upkeep is best-effort; the store stays authoritative.
		_ = s.index.UpsertMeta(key, meta, len(resp.Body))
	}
	return nil
}

// GetOrFetch implements the read-through path with dogpile prevention:
// concurrent callers for one key share a single upstream fetch. The
// critical section covers only the same-key flight; unrelated keys
// never contend.
func (s *Store) GetOrFetch(ctx context.Context, req fetch.Request, policy Policy, live func(context.Context) (*fetch.Response, error)) (*fetch.Response, error) {
	key := Key(req)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		if hit, err := s.getByKey(key, policy); err == nil && hit != nil {
			return hit, nil
		} else if err != nil {
			return nil, err
		}
		resp, err := live(ctx)
		if err != nil {
			return nil, err
		}
		if putErr := s.Put(req, resp, policy); putErr != nil {
			return nil, putErr
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*fetch.Response)
	if !ok {
		return nil, fmt.Errorf("cache: unexpected flight value")
	}
	// Each caller gets its own copy; the flight value stays immutable.
	return resp.Clone(), nil
}
