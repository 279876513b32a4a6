package generic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brogergvhs/cbzmaker/internal/providers"
)

const chapterPage = `<!doctype html>
<html><head>
<meta property="og:image" content="https://cdn.example.com/p/001.jpg">
<meta property="og:image" content="/p/002.png">
<meta property="og:image" content="https://cdn.example.com/p/001.jpg">
</head>
<body>
<div class="reader">
  <div data-index="2"><img src="/img/c.webp"></div>
  <div data-index="0"><img data-src="/img/a.webp"></div>
  <div data-index="1"><img srcset="/img/b.webp 1x, /img/b@2x.webp 2x"></div>
  <img src="data:image/png;base64,AAAA">
</div>
<img class="logo" src="/static/logo.svg">
</body></html>`

func newPageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFindImagesMetaSelector(t *testing.T) {
	server := newPageServer(t, chapterPage)

	s, err := NewScraper(server.Client(), Options{Selector: `meta[property="og:image"]`, Attr: "content"})
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}

	got, err := s.FindImages(context.Background(), server.URL+"/chapter-1")
	if err != nil {
		t.Fatalf("FindImages: %v", err)
	}

	want := []string{"https://cdn.example.com/p/001.jpg", server.URL + "/p/002.png"}
	if len(got) != len(want) {
		t.Fatalf("expected %d images, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("image %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFindImagesDataIndexOrder(t *testing.T) {
	server := newPageServer(t, chapterPage)

	s, err := NewScraper(server.Client(), Options{Selector: "div.reader img", AllowExt: []string{"webp"}})
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}

	got, err := s.FindImages(context.Background(), server.URL+"/chapter-1")
	if err != nil {
		t.Fatalf("FindImages: %v", err)
	}

	want := []string{server.URL + "/img/a.webp", server.URL + "/img/b.webp", server.URL + "/img/c.webp"}
	if len(got) != len(want) {
		t.Fatalf("expected %d images, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("image %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFindImagesNoMatch(t *testing.T) {
	server := newPageServer(t, chapterPage)

	s, err := NewScraper(server.Client(), Options{Selector: "section.missing img"})
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}

	_, err = s.FindImages(context.Background(), server.URL)
	if !errors.Is(err, providers.ErrNoImages) {
		t.Errorf("expected ErrNoImages, got %v", err)
	}
}

func TestFindImagesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s, err := NewScraper(server.Client(), Options{Selector: "img"})
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}

	if _, err := s.FindImages(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 page")
	}
}

func TestNewScraperValidation(t *testing.T) {
	if _, err := NewScraper(nil, Options{}); !errors.Is(err, ErrNoSelector) {
		t.Errorf("expected ErrNoSelector, got %v", err)
	}
	if _, err := NewScraper(nil, Options{Selector: "div[["}); err == nil {
		t.Error("expected error for invalid selector")
	}
}
