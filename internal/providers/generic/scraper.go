package generic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/charmbracelet/log"

	"github.com/brogergvhs/cbzmaker/internal/providers"
	"github.com/brogergvhs/cbzmaker/internal/ui"
	"github.com/brogergvhs/cbzmaker/internal/util"
)

// ErrNoSelector is returned by NewScraper when no CSS selector is given.
var ErrNoSelector = errors.New("generic: a CSS selector is required")

// Options configures a Scraper.
type Options struct {
	// Selector picks the elements carrying image URLs, e.g.
	// `meta[property="og:image"]` or `div.reader img`.
	Selector string

	// Attr is read first on every selected element. The common image
	// attributes are tried after it.
	Attr string

	// AllowExt restricts results to these extensions. Empty allows all.
	AllowExt []string

	Logger *log.Logger
}

// Scraper is a providers.Finder that selects image URLs from a chapter page
// with a CSS selector.
type Scraper struct {
	client   *http.Client
	selector string
	attrs    []string
	allowed  *regexp.Regexp
	log      *log.Logger
}

var _ providers.Finder = (*Scraper)(nil)

func NewScraper(c *http.Client, opts Options) (*Scraper, error) {
	sel := strings.TrimSpace(opts.Selector)
	if sel == "" {
		return nil, ErrNoSelector
	}

	// goquery silently matches nothing for a broken selector.
	if _, err := cascadia.Compile(sel); err != nil {
		return nil, fmt.Errorf("generic: invalid selector %q: %w", sel, err)
	}

	if c == nil {
		c = http.DefaultClient
	}

	attrs := defaultAttrs
	if a := strings.TrimSpace(opts.Attr); a != "" {
		attrs = append([]string{a}, defaultAttrs...)
	}

	return &Scraper{
		client:   c,
		selector: sel,
		attrs:    attrs,
		allowed:  buildExtRegex(normalizeExtList(opts.AllowExt)),
		log:      ui.OrDiscard(opts.Logger),
	}, nil
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := util.DoWithRetry(s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// FindImages returns the image URLs selected on chapterURL in document
// order, or in data-index order when the page provides one.
func (s *Scraper) FindImages(ctx context.Context, chapterURL string) ([]string, error) {
	doc, err := s.fetchDOM(ctx, chapterURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", chapterURL, err)
	}

	col := newImageCollector(s.allowed)
	added := col.scan(doc.Find(s.selector), chapterURL, s.attrs)
	s.log.Debugf("%s: %q matched %d candidates", chapterURL, s.selector, added)

	final := col.Finalize()
	if len(final) == 0 {
		return nil, fmt.Errorf("%s: %w", chapterURL, providers.ErrNoImages)
	}

	return final, nil
}
