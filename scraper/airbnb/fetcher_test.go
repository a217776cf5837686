package airbnb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFetcher answers from a function and records every URL requested.
type fakeFetcher struct {
	respond func(url string) ([]byte, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	return f.respond(url)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(2*time.Second, 5, time.Millisecond, newTestLogger())
}

func TestHTTPFetcherReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage("1", "2")))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/s/Rome?page=1")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := ParseSearchPage(body)
	if err != nil || len(ids) != 2 {
		t.Errorf("ids = %v err = %v", ids, err)
	}
}

func TestHTTPFetcherRetriesTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	if _, err := newTestFetcher().Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("hits = %d; want 3", got)
	}
}

func TestHTTPFetcherGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v; want FetchError", err)
	}
	if fe.Attempts != 5 {
		t.Errorf("Attempts = %d; want 5", fe.Attempts)
	}
	if got := atomic.LoadInt32(&hits); got != 5 {
		t.Errorf("hits = %d; want 5", got)
	}
	if !isPageFailure(err) {
		t.Error("exhausted fetch should count as a page failure")
	}
}

func TestHTTPFetcherStopsOnCancel(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher().Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if isPageFailure(err) {
		t.Error("cancellation must not count as a page failure")
	}
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Errorf("hits = %d; want 0", got)
	}
}

func TestHTTPFetcherDoesNotRetryNotFound(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/rooms/1")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v; want FetchError", err)
	}
	if fe.Attempts != 1 {
		t.Errorf("Attempts = %d; want 1", fe.Attempts)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("hits = %d; want 1", got)
	}
	if !isPageFailure(err) {
		t.Error("a missing page should count as a page failure")
	}
}

func TestHTTPFetcherRetriesRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	if _, err := newTestFetcher().Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected success after a 429, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("hits = %d; want 2", got)
	}
}

func TestHTTPFetcherCancelsStalledRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		w.Write([]byte("<html><body>late</body></html>"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := newTestFetcher().Fetch(ctx, srv.URL)
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if elapsed > time.Second {
		t.Errorf("Fetch returned after %v; want it to stop soon after cancel", elapsed)
	}
}

func TestHTTPFetcherReadsLargeBody(t *testing.T) {
	const size = 11 << 20
	page := "<html><body>" + strings.Repeat("a", size) + "</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(body) != len(page) {
		t.Errorf("len(body) = %d; want %d", len(body), len(page))
	}
}
