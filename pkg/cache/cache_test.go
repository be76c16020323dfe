package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arclabs561/webpipe/pkg/fetch"
)

func testRequest(url string) fetch.Request {
	return fetch.Request{URL: url, Backend: fetch.BackendLocal, MaxBytes: 1 << 16}
}

func testResponse(url, body string) *fetch.Response {
	return &fetch.Response{
		URL:         url,
		FinalURL:    url,
		Status:      200,
		ContentType: "text/html",
		Body:        []byte(body),
		FetchedAt:   time.Now().Unix(),
		Provider:    fetch.BackendLocal,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestKeyIsStableAndSensitiveToIdentity(t *testing.T) {
	a := Key(testRequest("https://example.com/a"))
	if a != Key(testRequest("https://example.com/a")) {
		t.Fatal("key must be deterministic")
	}
	if a == Key(testRequest("https://example.com/b")) {
		t.Fatal("key must change with URL")
	}
	withBackend := testRequest("https://example.com/a")
	withBackend.Backend = fetch.BackendRender
	if a == Key(withBackend) {
		t.Fatal("key must change with backend")
	}
	withBytes := testRequest("https://example.com/a")
	withBytes.MaxBytes = 99
	if a == Key(withBytes) {
		t.Fatal("key must change with max_bytes")
	}
	withProxy := testRequest("https://example.com/a")
	withProxy.Proxy = "socks5://127.0.0.1:9050"
	if a != Key(withProxy) {
		t.Fatal("proxy routing must not affect identity")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	req := testRequest("https://example.com/page")

	if err := store.Put(req, testResponse(req.URL, "hello world"), DefaultPolicy()); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(req, DefaultPolicy())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected hit")
	}
	if string(got.Body) != "hello world" {
		t.Fatalf("body=%q", got.Body)
	}
	if !got.FromCache {
		t.Fatal("cached response must set FromCache")
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Get(testRequest("https://example.com/missing"), DefaultPolicy())
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v, want nil,nil", got, err)
	}
}

func TestTTLExpiryIsAMiss(t *testing.T) {
	store := newTestStore(t)
	req := testRequest("https://example.com/old")
	resp := testResponse(req.URL, "stale")
	resp.FetchedAt = time.Now().Add(-2 * time.Hour).Unix()
	if err := store.Put(req, resp, DefaultPolicy()); err != nil {
		t.Fatalf("put: %v", err)
	}

	policy := DefaultPolicy()
	policy.TTL = time.Hour
	got, err := store.Get(req, policy)
	if err != nil || got != nil {
		t.Fatalf("expired entry must miss, got=%v err=%v", got, err)
	}
	got, err = store.Get(req, DefaultPolicy())
	if err != nil || got == nil {
		t.Fatalf("no-TTL read must hit, got=%v err=%v", got, err)
	}
}

func TestPutDropsUnsafeResponseHeaders(t *testing.T) {
	store := newTestStore(t)
	req := testRequest("https://example.com/h")
	resp := testResponse(req.URL, "x")
	resp.Headers = map[string]string{
		"Content-Type": "text/html",
		"Set-Cookie":   "session=secret",
		"ETag":         `"v1"`,
	}
	if err := store.Put(req, resp, DefaultPolicy()); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(req, DefaultPolicy())
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := got.Headers["Set-Cookie"]; ok {
		t.Fatal("Set-Cookie must never be persisted")
	}
	if got.Headers["ETag"] != `"v1"` {
		t.Fatalf("headers=%v, want ETag kept", got.Headers)
	}
}

func TestGetOrFetchCoalescesConcurrentFetches(t *testing.T) {
	store := newTestStore(t)
	req := testRequest("https://example.com/hot")

	var calls atomic.Int64
	release := make(chan struct{})
	live := func(ctx context.Context) (*fetch.Response, error) {
		calls.Add(1)
		<-release
		return testResponse(req.URL, "shared"), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*fetch.Response, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := store.GetOrFetch(context.Background(), req, DefaultPolicy(), live)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = resp
		}(i)
	}
	// Let all workers pile onto the in-flight key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("live fetches=%d, want exactly 1", n)
	}
	for i, resp := range results {
		if resp == nil || string(resp.Body) != "shared" {
			t.Fatalf("worker %d result=%v", i, resp)
		}
	}
	// Callers receive independent copies.
	results[0].Body[0] = 'X'
	if string(results[1].Body) == string(results[0].Body) {
		t.Fatal("responses must not share backing arrays")
	}
}

func TestGetOrFetchReadsThroughCache(t *testing.T) {
	store := newTestStore(t)
	req := testRequest("https://example.com/warm")
	if err := store.Put(req, testResponse(req.URL, "warm"), DefaultPolicy()); err != nil {
		t.Fatalf("put: %v", err)
	}
	resp, err := store.GetOrFetch(context.Background(), req, DefaultPolicy(), func(ctx context.Context) (*fetch.Response, error) {
		t.Fatal("live fetch must not run on a warm cache")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if !resp.FromCache || string(resp.Body) != "warm" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestIndexTracksEntries(t *testing.T) {
	dir := t.TempDir()
	index, err := OpenIndex(dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer index.Close()
	store, err := NewStore(dir, index)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	req := testRequest("https://example.com/doc")
	if err := store.Put(req, testResponse(req.URL, "body"), DefaultPolicy()); err != nil {
		t.Fatalf("put: %v", err)
	}

	docs, err := index.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(docs) != 1 || docs[0].URL != req.URL {
		t.Fatalf("docs=%+v", docs)
	}

	if err := index.SetText(docs[0].Key, "extracted", 9); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	docs, _ = index.Recent(10)
	if docs[0].Text != "extracted" {
		t.Fatalf("memoized text=%q", docs[0].Text)
	}

	// Overwriting the entry invalidates memoized text.
	if err := store.Put(req, testResponse(req.URL, "body2"), DefaultPolicy()); err != nil {
		t.Fatalf("put2: %v", err)
	}
	docs, _ = index.Recent(10)
	if docs[0].Text != "" {
		t.Fatal("replaced entry must drop memoized text")
	}
}
