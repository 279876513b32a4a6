package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// flakyServer fails the first `failures` requests with a 500 and then
// serves body.
func flakyServer(t *testing.T, failures int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func testOptions(buf *bytes.Buffer) Options {
	return Options{
		Retries:   5,
		RetryUnit: time.Microsecond,
		Timeout:   5 * time.Second,
		Logger:    log.New(buf),
	}
}

func TestFetchSuccess(t *testing.T) {
	server, calls := flakyServer(t, 0, "image-bytes")
	dest := filepath.Join(t.TempDir(), "0000.jpg")

	var buf bytes.Buffer
	f := New(server.Client(), testOptions(&buf))
	res, err := f.Fetch(context.Background(), server.URL+"/a.jpg", dest, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if res.Attempts != 1 || calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d (calls=%d)", res.Attempts, calls.Load())
	}
	if res.Bytes != int64(len("image-bytes")) {
		t.Errorf("expected %d bytes, got %d", len("image-bytes"), res.Bytes)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != "image-bytes" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestFetchSucceedsOnFifthAttempt(t *testing.T) {
	server, calls := flakyServer(t, 4, "ok")
	dest := filepath.Join(t.TempDir(), "0001.png")

	var buf bytes.Buffer
	f := New(server.Client(), testOptions(&buf))
	res, err := f.Fetch(context.Background(), server.URL+"/b.png", dest, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if res.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", res.Attempts)
	}
	if calls.Load() != 5 {
		t.Errorf("expected 5 requests, got %d", calls.Load())
	}
	if res.Waited < 4*time.Microsecond || res.Waited > 40*time.Microsecond {
		t.Errorf("waited %s, expected between 4 and 40 units", res.Waited)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	server, calls := flakyServer(t, 6, "never")
	dest := filepath.Join(t.TempDir(), "0002.jpg")

	var buf bytes.Buffer
	f := New(server.Client(), testOptions(&buf))
	res, err := f.Fetch(context.Background(), server.URL+"/c.jpg", dest, "")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}

	if res.Attempts != 6 || calls.Load() != 6 {
		t.Errorf("expected 6 attempts, got %d (calls=%d)", res.Attempts, calls.Load())
	}
	if !strings.Contains(buf.String(), "couldn't be retrieved") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}
}

func TestFetchRemovesTruncatedFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more than is sent so the client sees an unexpected EOF.
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("partial"))
	}))
	t.Cleanup(server.Close)
	dest := filepath.Join(t.TempDir(), "0003.jpg")

	var buf bytes.Buffer
	opts := testOptions(&buf)
	opts.Retries = 0
	res, err := New(server.Client(), opts).Fetch(context.Background(), server.URL+"/d.jpg", dest, "")
	if err == nil {
		t.Fatal("expected a truncated body to fail")
	}
	if res.Bytes != 0 {
		t.Errorf("expected no bytes reported, got %d", res.Bytes)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("truncated file left behind: %v", err)
	}
}

func TestFetchOverwrites(t *testing.T) {
	server, _ := flakyServer(t, 0, "new")
	dest := filepath.Join(t.TempDir(), "0000.jpg")
	if err := os.WriteFile(dest, []byte("old-and-longer"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := New(server.Client(), testOptions(&bytes.Buffer{}))
	if _, err := f.Fetch(context.Background(), server.URL, dest, ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != "new" {
		t.Errorf("expected file to be overwritten, got %q", got)
	}
}

func TestFetchSendsReferer(t *testing.T) {
	var referer atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer.Store(r.Header.Get("Referer"))
	}))
	defer server.Close()

	f := New(server.Client(), testOptions(&bytes.Buffer{}))
	dest := filepath.Join(t.TempDir(), "x.jpg")
	if _, err := f.Fetch(context.Background(), server.URL, dest, "https://example.com/ch-1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := referer.Load(); got != "https://example.com/ch-1" {
		t.Errorf("expected referer to be forwarded, got %v", got)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	server, _ := flakyServer(t, 100, "")

	opts := testOptions(&bytes.Buffer{})
	opts.RetryUnit = time.Hour
	f := New(server.Client(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "x.jpg"), "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	f := New(nil, Options{Retries: -3})
	if f.opts.Retries != 0 {
		t.Errorf("negative retries should clamp to 0, got %d", f.opts.Retries)
	}
	if f.opts.RetryUnit != time.Second {
		t.Errorf("expected default retry unit 1s, got %s", f.opts.RetryUnit)
	}
	if f.client != http.DefaultClient {
		t.Error("expected default client")
	}
}
