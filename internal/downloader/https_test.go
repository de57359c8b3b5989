package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHTTPRangeDownloader_SplitsIntoConcurrentRangesAndReassembles(t *testing.T) {
	const payload = "0123456789ABCDEFGHIJ" // 20 bytes
	var rangeCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Content-Length", "20")
			w.Header().Set("Accept-Ranges", "bytes")
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			atomic.AddInt32(&rangeCalls, 1)
			rng := r.Header.Get("Range")
			if rng == "" {
				t.Errorf("expected Range header on GET request")
			}
			w.Write([]byte(payload))
		}
	}))
	defer server.Close()

	dl := NewHTTPRangeDownloader(server.Client(), server.URL)
	dl.ChunkSize = 7 // forces multiple ranges over 20 bytes

	var buf bytes.Buffer
	if err := dl.Download(context.Background(), &buf); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got := atomic.LoadInt32(&rangeCalls); got != 3 {
		t.Fatalf("range GET call count=%d, want 3", got)
	}
}

func TestHTTPRangeDownloader_FallsBackToSingleGETWhenRangesUnsupported(t *testing.T) {
	const payload = "full-body-no-ranges"
	var getCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK) // no Content-Length, no Accept-Ranges
		case http.MethodGet:
			atomic.AddInt32(&getCalls, 1)
			w.Write([]byte(payload))
		}
	}))
	defer server.Close()

	dl := NewHTTPRangeDownloader(server.Client(), server.URL)

	var buf bytes.Buffer
	if err := dl.Download(context.Background(), &buf); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got := buf.String(); got != payload {
		t.Fatalf("payload mismatch: got=%q want=%q", got, payload)
	}
	if got := atomic.LoadInt32(&getCalls); got != 1 {
		t.Fatalf("GET call count=%d, want 1", got)
	}
}

func TestHTTPRangeDownloader_PropagatesRequestHeaders(t *testing.T) {
	const headerName = "X-Test-Header"
	const headerValue = "ytgrab-https"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(headerName); got != headerValue {
			http.Error(w, "missing header", http.StatusForbidden)
			return
		}
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Content-Length", "4")
			w.Header().Set("Accept-Ranges", "bytes")
		case http.MethodGet:
			w.Write([]byte("data"))
		}
	}))
	defer server.Close()

	dl := NewHTTPRangeDownloader(server.Client(), server.URL).WithRequestHeaders(http.Header{
		headerName: []string{headerValue},
	})

	var buf bytes.Buffer
	if err := dl.Download(context.Background(), &buf); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got := buf.String(); got != "data" {
		t.Fatalf("payload mismatch: got=%q", got)
	}
}
